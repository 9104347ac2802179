package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/quilldesk/quill/internal/cli"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	dayStart := defaultUTCDay()
	_, dayEnd := utcDayBounds(dayStart)

	stats, err := pool.QuerySupportStats(ctx, dayStart, dayEnd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query support stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := [][]string{
		{"conversations", strconv.FormatInt(stats.Totals.Conversations, 10)},
		{"messages", strconv.FormatInt(stats.Totals.Messages, 10)},
		{"internal_notes", strconv.FormatInt(stats.Totals.InternalNotes, 10)},
		{"active_agents", strconv.FormatInt(stats.Totals.ActiveAgents, 10)},
		{"messages_ingested_today", strconv.FormatInt(stats.Throughput.MessagesIngestedToday, 10)},
		{"conversations_touched_today", strconv.FormatInt(stats.Throughput.ConversationsTouchedToday, 10)},
	}

	fmt.Printf("Support store stats for %s (UTC)\n\n", stats.Day)
	if err := writeTable([]string{"METRIC", "VALUE"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write table: %v\n", err)
		return 1
	}
	return 0
}
