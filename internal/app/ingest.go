package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/quilldesk/quill/internal/cli"
	"github.com/quilldesk/quill/internal/message"
	payloadschema "github.com/quilldesk/quill/schema"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 20*time.Second, "Command timeout")
	payload := fs.String("payload", "", "Message-event payload JSON")
	payloadFile := fs.String("payload-file", "", "Path to payload JSON file (overrides --payload)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "ingest does not accept positional arguments")
		return 2
	}

	payloadJSON, err := loadJSONInput(*payload, *payloadFile, "payload")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
	}

	event, err := payloadschema.ValidateMessageEventPayload(payloadJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	stored, err := pool.InsertMessage(ctx, message.FromIngestEvent(event))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to store message: %v\n", err)
		return 1
	}

	fmt.Printf("ok: stored message %s in conversation %s\n", stored.ID, stored.ConversationID)
	return 0
}

func loadJSONInput(inline, filePath, label string) (json.RawMessage, error) {
	if trimmed := strings.TrimSpace(filePath); trimmed != "" {
		content, err := os.ReadFile(trimmed)
		if err != nil {
			return nil, fmt.Errorf("read %s file: %w", label, err)
		}
		return content, nil
	}
	if trimmed := strings.TrimSpace(inline); trimmed != "" {
		return json.RawMessage(trimmed), nil
	}
	return nil, fmt.Errorf("%s is required (--%s or --%s-file)", label, label, label)
}
