package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/quilldesk/quill/internal/cli"
	"github.com/quilldesk/quill/internal/config"
	"github.com/quilldesk/quill/internal/db"
	"github.com/quilldesk/quill/internal/logging"
	"github.com/quilldesk/quill/internal/message"
	"github.com/quilldesk/quill/internal/thread"
)

func runThread(args []string) int {
	fs := flag.NewFlagSet("thread", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	conversationID := fs.String("conversation", "", "Conversation id to assemble")
	pages := fs.Int("pages", 1, "Number of store pages to accumulate")
	includeInternal := fs.Bool("include-internal", false, "Include internal notes in the view")
	viewerEmail := fs.String("viewer-email", "", "Email of the viewing agent")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if strings.TrimSpace(*conversationID) == "" {
		fmt.Fprintln(os.Stderr, "--conversation is required")
		return 2
	}
	if *pages < 1 {
		fmt.Fprintln(os.Stderr, "--pages must be >= 1")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	agentEmails, agentPhones, err := pool.AgentDirectory(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load agent directory: %v\n", err)
		return 1
	}

	nctx := message.NewNormalizeContext(strings.TrimSpace(*viewerEmail), agentEmails, agentPhones)
	if cfg.DetectLanguage {
		nctx.DetectLanguage = message.DetectLanguage
	}

	assembler := thread.NewAssembler(pool, strings.TrimSpace(*conversationID), nctx, thread.Options{
		InitialPageSize:     cfg.InitialPageSize,
		LoadMorePageSize:    cfg.LoadMorePageSize,
		ConfidenceMinSample: cfg.ConfidenceMinSample,
		ConfidenceMinRatio:  cfg.ConfidenceMinRatio,
		ConfidenceMaxRatio:  cfg.ConfidenceMaxRatio,
		ExcludeInternal:     !*includeInternal,
	}, logger)

	for i := 0; i < *pages; i++ {
		if err := assembler.FetchNext(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to fetch page %d: %v\n", i+1, err)
			if i == 0 {
				return 1
			}
			break
		}
		if !assembler.Snapshot().HasNextPage {
			break
		}
	}

	view := assembler.Snapshot()

	if outputFormat == outputFormatJSON {
		if err := printJSON(view); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf(
		"Conversation %s: %d of ~%d normalized messages loaded (total raw %d, confidence %s, more=%t)\n\n",
		view.ConversationID,
		view.NormalizedCountLoaded,
		view.TotalNormalizedEstimated,
		view.TotalCount,
		view.Confidence,
		view.HasNextPage,
	)

	rows := make([][]string, 0, len(view.Messages))
	for _, msg := range view.Messages {
		sender := msg.From.Email
		if sender == "" {
			sender = string(msg.From.Type)
		}
		rows = append(rows, []string{
			msg.Timestamp.UTC().Format(time.RFC3339),
			msg.ID,
			sender,
			truncateForTable(msg.VisibleBody, 60),
		})
	}
	if err := writeTable([]string{"TIMESTAMP", "ID", "SENDER", "BODY"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write table: %v\n", err)
		return 1
	}
	return 0
}
