package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plantpulse/plantpulse/pkg/compute"
)

func newSensitivityCommand() *cobra.Command {
	var (
		machineID string
		variation float64
	)

	cmd := &cobra.Command{
		Use:   "sensitivity [paths...]",
		Short: "Run a standalone sensitivity analysis",
		Long: `Perturb each input parameter by a fixed percentage and report how
strongly the OEE reacts, without running a full calculation.`,
		Example: `  # Default ±10% variation
  pulse sensitivity

  # A coarser ±25% variation for one machine
  pulse sensitivity plant.cue --machine press-04 --variation 25`,
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

			resp, err := client.Sensitivity(ctx, &compute.SensitivityRequest{
				Input:            input,
				VariationPercent: variation,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(resp.Analysis)
			}

			fmt.Printf("Machine: %s\n", input.Machine.MachineID)
			renderSensitivity(resp.Analysis)
			return nil
		},
	}

	cmd.Flags().StringVarP(&machineID, "machine", "m", "", "machine ID to analyze")
	cmd.Flags().Float64Var(&variation, "variation", 10, "perturbation percent applied to each parameter")

	return cmd
}
