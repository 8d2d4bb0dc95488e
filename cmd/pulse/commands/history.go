package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/plantpulse/plantpulse/pkg/config"
	"github.com/plantpulse/plantpulse/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the local analysis history",
		Long: `Manage the local analysis history: list saved analyses, show a saved
analysis with its findings, render an OEE trend, and prune old records.`,
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryTrendCommand())
	cmd.AddCommand(newHistoryPruneCommand())

	return cmd
}

// historySettings resolves the store configuration without requiring
// parseable analysis documents: history commands work from pulse.yaml
// alone.
func historySettings() config.Settings {
	settings := config.DefaultSettings()
	applyClientConfig(&settings)
	return settings
}

func newHistoryListCommand() *cobra.Command {
	var (
		machineID string
		limit     int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List saved analyses",
		Example: `  # The 20 most recent analyses
  pulse history list --limit 20

  # One machine's history
  pulse history list --machine press-04`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openHistoryStore(ctx, historySettings())
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("history is disabled (no store path configured)")
			}
			defer func() { _ = store.Close() }()

			records, err := store.ListAnalyses(ctx, stores.ListFilter{
				MachineID: machineID,
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(records)
			}

			if len(records) == 0 {
				fmt.Println("No saved analyses")
				return nil
			}

			fmt.Printf("%-36s %-15s %7s %-20s\n", "ID", "Machine", "OEE", "Created")
			fmt.Println(strings.Repeat("-", 82))
			for _, rec := range records {
				fmt.Printf("%-36s %-15s %6.2f%% %s\n",
					rec.ID, rec.MachineID, rec.OEE*100,
					rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&machineID, "machine", "m", "", "filter by machine ID")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of records (0 = default)")

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show <analysis-id>",
		Short:   "Show one saved analysis",
		Args:    cobra.ExactArgs(1),
		Example: `  pulse history show 6b3a9c1e-...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openHistoryStore(ctx, historySettings())
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("history is disabled (no store path configured)")
			}
			defer func() { _ = store.Close() }()

			rec, err := store.GetAnalysis(ctx, args[0])
			if err != nil {
				return err
			}
			findings, err := store.ListFindings(ctx, rec.ID)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(struct {
					*stores.AnalysisRecord
					Findings []*stores.FindingRecord `json:"findings,omitempty"`
				}{rec, findings})
			}

			result, err := rec.DecodeResult()
			if err != nil {
				return fmt.Errorf("failed to decode stored result: %w", err)
			}

			fmt.Printf("Analysis: %s\n", rec.ID)
			fmt.Printf("Machine:  %s\n", rec.MachineID)
			fmt.Printf("Window:   %s – %s\n",
				rec.WindowStart.Format(time.RFC3339), rec.WindowEnd.Format(time.RFC3339))
			fmt.Printf("Saved:    %s\n\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))

			fmt.Printf("Core metrics:\n")
			renderMetric("Availability", result.CoreMetrics.Availability)
			renderMetric("Performance", result.CoreMetrics.Performance)
			renderMetric("Quality", result.CoreMetrics.Quality)
			renderMetric("OEE", result.CoreMetrics.OEE)

			if len(findings) > 0 {
				fmt.Printf("\nFindings:\n")
				for _, f := range findings {
					fmt.Printf("  %s [%s] %s (policy: %s)\n",
						severityMark(f.Severity), f.Severity, f.Message, f.Policy)
				}
			}
			return nil
		},
	}

	return cmd
}

func newHistoryTrendCommand() *cobra.Command {
	var (
		limit int
	)

	cmd := &cobra.Command{
		Use:     "trend <machine-id>",
		Short:   "Show a machine's OEE trend",
		Args:    cobra.ExactArgs(1),
		Example: `  # The last 10 analyses, oldest first
  pulse history trend press-04 --limit 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openHistoryStore(ctx, historySettings())
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("history is disabled (no store path configured)")
			}
			defer func() { _ = store.Close() }()

			points, err := store.OEETrend(ctx, args[0], limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(points)
			}

			if len(points) == 0 {
				fmt.Printf("No history for machine %s\n", args[0])
				return nil
			}

			fmt.Printf("OEE trend for %s (%d analyses, oldest first):\n\n", args[0], len(points))
			for _, p := range points {
				bar := strings.Repeat("█", int(p.OEE*40))
				fmt.Printf("%s  %6.2f%%  %s\n",
					p.WindowStart.Local().Format("2006-01-02 15:04"), p.OEE*100, bar)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of analyses to include")

	return cmd
}

func newHistoryPruneCommand() *cobra.Command {
	var (
		keepDays int
	)

	cmd := &cobra.Command{
		Use:     "prune",
		Short:   "Delete old analyses",
		Example: `  # Use the configured retention (store.keep_days)
  pulse history prune

  # Keep only the last week
  pulse history prune --keep-days 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			settings := historySettings()

			days := keepDays
			if days == 0 {
				days = settings.Store.KeepDays
			}
			if days <= 0 {
				return fmt.Errorf("no retention configured; set store.keep_days or pass --keep-days")
			}

			store, err := openHistoryStore(ctx, settings)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("history is disabled (no store path configured)")
			}
			defer func() { _ = store.Close() }()

			cutoff := time.Now().UTC().AddDate(0, 0, -days)
			pruned, err := store.PruneBefore(ctx, cutoff)
			if err != nil {
				return err
			}

			fmt.Printf("Pruned %d analysis(es) older than %d days\n", pruned, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "delete analyses older than this many days (0 = use config)")

	return cmd
}
