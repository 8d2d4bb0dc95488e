package commands

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/plantpulse/plantpulse/pkg/config"
	"github.com/plantpulse/plantpulse/pkg/oee"
	"github.com/plantpulse/plantpulse/pkg/policy"
	"github.com/plantpulse/plantpulse/pkg/session"
	"github.com/plantpulse/plantpulse/pkg/stores"
)

func newCalculateCommand() *cobra.Command {
	var (
		machineID     string
		sensitivity   bool
		variation     float64
		temporalScrap bool
		leverage      bool
		marginPerUnit float64
		hourlyCost    float64
		currency      string
		save          bool
		skipPolicies  bool
	)

	cmd := &cobra.Command{
		Use:   "calculate [paths...]",
		Short: "Run an OEE calculation",
		Long: `Run an OEE calculation for a machine described by analysis documents.

The input is submitted to the compute service; the result carries the
core metrics, the loss tree, the assumption ledger, and any derived
analyses requested via flags. Plausibility policies run against the
result when enabled, and the analysis can be saved to local history.`,
		Example: `  # Calculate the sole machine of the current directory
  pulse calculate

  # Calculate one machine of a multi-machine document
  pulse calculate plant.cue --machine press-04

  # Request the derived analyses and save to history
  pulse calculate --sensitivity --leverage --temporal-scrap --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			parsed, err := loadAnalysis(ctx, args)
			if err != nil {
				return fmt.Errorf("failed to parse analysis documents: %w", err)
			}
			if err := reportParseErrors(parsed); err != nil {
				return err
			}

			input, err := selectInput(parsed.Inputs, machineID)
			if err != nil {
				return err
			}

			client, err := newComputeClient(parsed.Settings)
			if err != nil {
				return fmt.Errorf("failed to create compute client: %w", err)
			}

			sess := session.New(client, log.Logger)
			sess.SetInput(input)
			if sensitivity {
				sess.SetIncludeSensitivity(true, variation)
			}
			if temporalScrap {
				sess.SetIncludeTemporalScrap(true)
			}
			if leverage {
				sess.SetIncludeLeverage(true)
			}
			if marginPerUnit > 0 || hourlyCost > 0 {
				sess.SetEconomicParams(&oee.EconomicParameters{
					ContributionMarginPerUnit: marginPerUnit,
					HourlyOperatingCost:       hourlyCost,
					Currency:                  currency,
				})
			}

			// Advisory only: report and carry on.
			if issues := sess.Validate().Issues; len(issues) > 0 && !jsonOutput {
				for _, issue := range issues {
					fmt.Printf("%s [%s] %s\n", severityMark(string(issue.Severity)), issue.Severity, issue.MessageKey)
				}
				fmt.Println()
			}

			if err := sess.Calculate(ctx); err != nil {
				return err
			}

			state := sess.State()
			if state.Failed() {
				return state.Err
			}

			var findings []policy.Finding
			if parsed.Settings.Policy.Enabled && !skipPolicies {
				findings = evaluateResultPolicies(cmd, parsed.Settings.Policy.Paths, input, state.Result)
			}

			if save {
				if err := saveToHistory(cmd, parsed.Settings, input, state.Result, findings); err != nil {
					log.Warn().Err(err).Msg("Failed to save analysis to history")
				}
			}

			if jsonOutput {
				return printJSON(struct {
					session.State
					Findings []policy.Finding `json:"findings,omitempty"`
				}{state, findings})
			}

			renderResult(input.Machine.MachineID, state)
			renderFindings(findings)
			return nil
		},
	}

	cmd.Flags().StringVarP(&machineID, "machine", "m", "", "machine ID to calculate (required for multi-machine documents)")
	cmd.Flags().BoolVar(&sensitivity, "sensitivity", false, "include the sensitivity analysis")
	cmd.Flags().Float64Var(&variation, "variation", 0, "sensitivity perturbation percent (0 = service default)")
	cmd.Flags().BoolVar(&temporalScrap, "temporal-scrap", false, "include the temporal scrap analysis")
	cmd.Flags().BoolVar(&leverage, "leverage", false, "include the leverage analysis")
	cmd.Flags().Float64Var(&marginPerUnit, "margin-per-unit", 0, "contribution margin per good unit (enables economics)")
	cmd.Flags().Float64Var(&hourlyCost, "hourly-cost", 0, "machine-hour operating cost")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO 4217 currency code for the economic analysis")
	cmd.Flags().BoolVar(&save, "save", false, "save the analysis to local history")
	cmd.Flags().BoolVar(&skipPolicies, "skip-policies", false, "skip plausibility policy evaluation")

	return cmd
}

// selectInput picks the input to calculate: the flagged machine, or the
// sole machine of the parsed documents.
func selectInput(inputs []*oee.Input, machineID string) (*oee.Input, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no machine blocks found in the analysis documents")
	}
	if machineID == "" {
		if len(inputs) > 1 {
			ids := make([]string, len(inputs))
			for i, in := range inputs {
				ids[i] = in.Machine.MachineID
			}
			return nil, fmt.Errorf("documents describe %d machines (%s); select one with --machine",
				len(inputs), strings.Join(ids, ", "))
		}
		return inputs[0], nil
	}
	for _, in := range inputs {
		if in.Machine.MachineID == machineID {
			return in, nil
		}
	}
	return nil, fmt.Errorf("machine %q not found in the analysis documents", machineID)
}

// evaluateResultPolicies runs the plausibility policies against a
// completed result. Policy trouble is advisory and never fails the
// command.
func evaluateResultPolicies(cmd *cobra.Command, paths []string, input *oee.Input, result *oee.Result) []policy.Finding {
	engine, err := policy.NewEngine(log.Logger)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create policy engine")
		return nil
	}
	if len(paths) > 0 {
		if err := engine.LoadPolicies(cmd.Context(), paths); err != nil {
			log.Warn().Err(err).Msg("Failed to load custom policies")
		}
	}
	res, err := engine.EvaluateResult(cmd.Context(), input, result)
	if err != nil {
		log.Warn().Err(err).Msg("Policy evaluation failed")
		return nil
	}
	return res.Findings
}

// saveToHistory persists the analysis and its findings.
func saveToHistory(cmd *cobra.Command, settings config.Settings, input *oee.Input, result *oee.Result, findings []policy.Finding) error {
	store, err := openHistoryStore(cmd.Context(), settings)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("history is disabled (no store path configured)")
	}
	defer func() { _ = store.Close() }()

	rec, err := stores.NewAnalysisRecord(input, result)
	if err != nil {
		return err
	}
	if err := store.SaveAnalysis(cmd.Context(), rec); err != nil {
		return err
	}

	if len(findings) > 0 {
		frs := make([]*stores.FindingRecord, len(findings))
		for i, f := range findings {
			frs[i] = &stores.FindingRecord{
				Policy:     f.Policy,
				Severity:   string(f.Severity),
				Message:    f.Message,
				DetectedAt: f.DetectedAt,
			}
		}
		if err := store.SaveFindings(cmd.Context(), rec.ID, frs); err != nil {
			return err
		}
	}

	fmt.Printf("Saved analysis %s\n\n", rec.ID)
	return nil
}

// renderResult prints the human-readable result summary.
func renderResult(machineID string, state session.State) {
	res := state.Result

	fmt.Printf("Machine: %s\n\n", machineID)
	fmt.Printf("Core metrics:\n")
	renderMetric("Availability", res.CoreMetrics.Availability)
	renderMetric("Performance", res.CoreMetrics.Performance)
	renderMetric("Quality", res.CoreMetrics.Quality)
	renderMetric("OEE", res.CoreMetrics.OEE)

	if ext := res.ExtendedMetrics; ext.TEEP != nil || ext.ScrapRate != nil || ext.Throughput != nil {
		fmt.Printf("\nExtended metrics:\n")
		if ext.Utilization != nil {
			renderMetric("Utilization", *ext.Utilization)
		}
		if ext.TEEP != nil {
			renderMetric("TEEP", *ext.TEEP)
		}
		if ext.ScrapRate != nil {
			renderMetric("Scrap rate", *ext.ScrapRate)
		}
		if ext.ReworkRate != nil {
			renderMetric("Rework rate", *ext.ReworkRate)
		}
		if ext.Throughput != nil {
			fmt.Printf("  %-14s %.1f units/h\n", "Throughput", ext.Throughput.Value)
		}
	}

	fmt.Printf("\nLoss tree (of %s planned):\n", formatDuration(res.LossTree.PlannedTime))
	res.LossTree.Walk(func(node *oee.LossTreeNode, depth int) bool {
		fmt.Printf("  %s%-30s %8s  %5.1f%%\n",
			strings.Repeat("  ", depth), node.CategoryKey,
			formatDuration(node.Duration), node.PercentageOfPlanned*100)
		return true
	})

	if res.Economic != nil {
		fmt.Printf("\nEconomics: lost margin ≈ %.0f %s (range %.0f – %.0f)\n",
			res.Economic.LostMarginEstimate.Value, res.Economic.Currency,
			res.Economic.LostMarginLow, res.Economic.LostMarginHigh)
	}

	if len(res.Ledger.Assumptions) > 0 {
		fmt.Printf("\nAssumptions:\n")
		for _, a := range res.Ledger.Assumptions {
			fmt.Printf("  · %s [%s]\n", a.MessageKey, a.Source)
		}
	}
	stats := res.Ledger.SourceStatistics
	fmt.Printf("\nInput provenance: %.0f%% explicit, %.0f%% inferred, %.0f%% default\n",
		stats.ExplicitPercent, stats.InferredPercent, stats.DefaultPercent)

	if state.Sensitivity != nil {
		renderSensitivity(state.Sensitivity)
	}
	if state.TemporalScrap != nil {
		renderTemporalScrap(state.TemporalScrap)
	}
	if state.Leverage != nil {
		renderLeverage(state.Leverage.Impacts, state.Leverage.BaselineOEE)
	}
}

func renderMetric(label string, m oee.TrackedMetric) {
	fmt.Printf("  %-14s %6.2f%%  (confidence: %s)\n", label, m.Value*100, m.Confidence)
}

func renderSensitivity(sa *oee.SensitivityAnalysis) {
	fmt.Printf("\nSensitivity (±%.0f%%):\n", sa.VariationPercent)
	for _, p := range sa.Parameters {
		fmt.Printf("  %-30s ΔOEE %+.3f  [%s]\n", p.ParameterKey, p.OEEDelta, p.ImpactLevel)
	}
	if sa.MostSensitiveKey != "" {
		fmt.Printf("  Most sensitive: %s\n", sa.MostSensitiveKey)
	}
}

func renderTemporalScrap(ts *oee.TemporalScrapAnalysis) {
	fmt.Printf("\nTemporal scrap: %d startup units, steady-state rate %.2f%%\n",
		ts.StartupScrapUnits, ts.SteadyStateScrapRate*100)
	for _, b := range ts.Buckets {
		fmt.Printf("  +%6.0fs  %4d units  (%.2f%%)\n", b.OffsetSeconds, b.ScrapUnits, b.ScrapRate*100)
	}
}

func renderLeverage(impacts []oee.LeverageImpact, baseline float64) {
	fmt.Printf("\nLeverage (baseline OEE %.1f%%, if a category were eliminated):\n", baseline*100)
	for _, imp := range impacts {
		fmt.Printf("  %-30s +%.1f OEE pts  +%.0f units\n",
			imp.CategoryKey, imp.OEEOpportunityPoints, imp.ThroughputGainUnits)
	}
}

func renderFindings(findings []policy.Finding) {
	if len(findings) == 0 {
		return
	}
	fmt.Printf("\nPlausibility findings:\n")
	for _, f := range findings {
		fmt.Printf("  %s [%s] %s (policy: %s)\n",
			severityMark(string(f.Severity)), f.Severity, f.Message, f.Policy)
	}
}

func formatDuration(d oee.Duration) string {
	secs := d.SecondsValue()
	if secs >= 3600 {
		return fmt.Sprintf("%.1fh", secs/3600)
	}
	if secs >= 60 {
		return fmt.Sprintf("%.0fm", secs/60)
	}
	return fmt.Sprintf("%.0fs", secs)
}
