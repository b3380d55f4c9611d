package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/masahif/termspider/internal/crawler"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the page store",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := openExistingStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := commandContext(cmd)
	counts, err := store.Counts(ctx)
	if err != nil {
		return err
	}

	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Driver", store.Driver()})
	t.AppendRow(table.Row{"Pages", counts.Pages})
	t.AppendRow(table.Row{"Terms", counts.Terms})
	t.AppendRow(table.Row{"Hits", counts.Hits})
	for _, key := range []string{metaRunID, metaRunStarted, metaRunFinished} {
		value, err := store.GetMeta(ctx, key)
		if err != nil {
			return err
		}
		if value != "" {
			t.AppendRow(table.Row{key, value})
		}
	}
	t.Render()
	return nil
}

// renderCrawlStats prints the end of run summary.
func renderCrawlStats(w io.Writer, s crawler.Stats) {
	t := newTable(w)
	t.SetTitle("Crawl summary")
	t.AppendHeader(table.Row{"Processed", "Inserted", "Updated", "Skipped", "Errors", "Queued", "Duration"})
	t.AppendRow(table.Row{s.Processed, s.Inserted, s.Updated, s.Skipped, s.Errors, s.Queued, s.Duration.Round(time.Millisecond)})
	t.Render()
}
