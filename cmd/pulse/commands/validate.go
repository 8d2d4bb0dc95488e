package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/plantpulse/plantpulse/pkg/policy"
	"github.com/plantpulse/plantpulse/pkg/validation"
)

func newValidateCommand() *cobra.Command {
	var (
		skipPolicies bool
	)

	cmd := &cobra.Command{
		Use:   "validate [paths...]",
		Short: "Validate analysis documents",
		Long: `Validate analysis documents: parse the CUE files, run the advisory
validation rules against each machine's input, and evaluate plausibility
policies when enabled.

Validation is advisory. Issues are reported but never block a
calculation; only unparseable documents fail this command.`,
		Example: `  # Validate the current directory
  pulse validate

  # Validate specific documents
  pulse validate analysis.cue overrides.cue

  # Skip the plausibility policies
  pulse validate --skip-policies`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			parsed, err := loadAnalysis(ctx, args)
			if err != nil {
				return fmt.Errorf("failed to parse analysis documents: %w", err)
			}
			if err := reportParseErrors(parsed); err != nil {
				return err
			}

			type machineReport struct {
				MachineID string             `json:"machine_id"`
				Issues    []validation.Issue `json:"issues,omitempty"`
				Findings  []policy.Finding   `json:"findings,omitempty"`
			}
			reports := make([]machineReport, 0, len(parsed.Inputs))

			var engine *policy.Engine
			if parsed.Settings.Policy.Enabled && !skipPolicies {
				engine, err = policy.NewEngine(log.Logger)
				if err != nil {
					return fmt.Errorf("failed to create policy engine: %w", err)
				}
				if len(parsed.Settings.Policy.Paths) > 0 {
					if err := engine.LoadPolicies(ctx, parsed.Settings.Policy.Paths); err != nil {
						log.Warn().Err(err).Msg("Failed to load custom policies")
					}
				}
			}

			issueTotal := 0
			for _, in := range parsed.Inputs {
				report := machineReport{MachineID: in.Machine.MachineID}
				report.Issues = validation.Check(in).Issues
				issueTotal += len(report.Issues)

				if engine != nil {
					res, perr := engine.EvaluateInput(ctx, in)
					if perr != nil {
						log.Warn().Err(perr).Str("machine_id", in.Machine.MachineID).
							Msg("Policy evaluation failed")
					} else {
						report.Findings = res.Findings
						issueTotal += len(res.Findings)
					}
				}
				reports = append(reports, report)
			}

			if jsonOutput {
				return printJSON(reports)
			}

			fmt.Printf("Parsed %d document(s), %d machine(s)\n\n",
				len(parsed.SourceFiles), len(parsed.Inputs))

			for _, report := range reports {
				fmt.Printf("Machine: %s\n", report.MachineID)
				if len(report.Issues) == 0 && len(report.Findings) == 0 {
					fmt.Printf("  ✓ No issues\n\n")
					continue
				}
				for _, issue := range report.Issues {
					fmt.Printf("  %s [%s] %s (%s)\n",
						severityMark(string(issue.Severity)), issue.Severity, issue.MessageKey, issue.Code)
					if issue.FieldPath != "" {
						fmt.Printf("      field: %s\n", issue.FieldPath)
					}
				}
				for _, finding := range report.Findings {
					fmt.Printf("  %s [%s] %s (policy: %s)\n",
						severityMark(string(finding.Severity)), finding.Severity, finding.Message, finding.Policy)
				}
				fmt.Println()
			}

			if issueTotal == 0 {
				fmt.Printf("✅ All inputs look plausible\n")
			} else {
				fmt.Printf("! %d advisory issue(s) found; calculations are never blocked\n", issueTotal)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPolicies, "skip-policies", false, "skip plausibility policy evaluation")

	return cmd
}

// severityMark picks a one-character marker for a severity string.
func severityMark(severity string) string {
	switch severity {
	case string(validation.SeverityFatal), "error":
		return "✗"
	case "warning":
		return "!"
	default:
		return "·"
	}
}
