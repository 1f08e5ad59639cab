package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/cacheproxy/pkg/cli"
	"mercator-hq/cacheproxy/pkg/config"
	"mercator-hq/cacheproxy/pkg/journal"
)

var journalFlags struct {
	path   string
	limit  int
	output string
	counts bool
}

func newJournalCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List recent connections from the connection journal",
		Long: `List the most recent connections recorded in the SQLite connection journal,
newest first, or count them by outcome.

Examples:
  # Last 50 connections from the configured journal
  cacheproxy journal --config cacheproxy.yaml

  # Outcome counts as JSON
  cacheproxy journal --path data/journal.db --counts --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(cmd, *configFile)
		},
	}

	cmd.Flags().StringVar(&journalFlags.path, "path", "", "journal database file (default from config)")
	cmd.Flags().IntVarP(&journalFlags.limit, "limit", "n", 50, "number of connections to list")
	cmd.Flags().StringVarP(&journalFlags.output, "output", "o", "text", "output format (text, json)")
	cmd.Flags().BoolVar(&journalFlags.counts, "counts", false, "print counts per outcome instead of rows")
	return cmd
}

func runJournal(cmd *cobra.Command, configFile string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(journalFlags.output))
	if err != nil {
		return err
	}
	if journalFlags.limit <= 0 {
		return cli.NewUsageError("--limit must be positive, got %d", journalFlags.limit)
	}

	cfg, err := config.Read(configFile)
	if err != nil {
		return cli.NewConfigError("file", err.Error())
	}
	path := journalFlags.path
	if path == "" {
		path = cfg.Journal.Path
	}

	// Open would create an empty database; a missing journal is an error here.
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cli.NewCommandError("journal", fmt.Errorf("journal %s does not exist", path))
		}
		return cli.NewCommandError("journal", err)
	}

	store, err := journal.Open(path, cfg.Journal.BusyTimeout)
	if err != nil {
		return cli.NewCommandError("journal", err)
	}
	defer store.Close()

	var table cli.Table
	if journalFlags.counts {
		table, err = countsTable(cmd, store)
	} else {
		table, err = recentTable(cmd, store, journalFlags.limit)
	}
	if err != nil {
		return cli.NewCommandError("journal", err)
	}
	return formatter.Write(cmd.OutOrStdout(), table)
}

func recentTable(cmd *cobra.Command, store *journal.Store, limit int) (cli.Table, error) {
	entries, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return cli.Table{}, err
	}

	table := cli.Table{
		Headers: []string{"id", "started_at", "conn_id", "remote_addr", "method", "url", "outcome", "bytes_out", "duration", "error"},
		Rows:    make([][]string, 0, len(entries)),
	}
	for _, e := range entries {
		started := "-"
		if !e.StartedAt.IsZero() {
			started = e.StartedAt.UTC().Format(time.RFC3339Nano)
		}
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(e.ID, 10),
			started,
			e.ConnID,
			orDash(e.RemoteAddr),
			orDash(e.Method),
			orDash(e.URL),
			e.Outcome,
			strconv.Itoa(e.BytesOut),
			e.Duration.String(),
			orDash(e.Error),
		})
	}
	return table, nil
}

func countsTable(cmd *cobra.Command, store *journal.Store) (cli.Table, error) {
	counts, err := store.CountByOutcome(cmd.Context())
	if err != nil {
		return cli.Table{}, err
	}

	outcomes := make([]string, 0, len(counts))
	for outcome := range counts {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)

	table := cli.Table{Headers: []string{"outcome", "count"}}
	for _, outcome := range outcomes {
		table.Rows = append(table.Rows, []string{outcome, strconv.FormatInt(counts[outcome], 10)})
	}
	return table, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
