package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plantpulse/plantpulse/pkg/compute"
)

func newLeverageCommand() *cobra.Command {
	var (
		machineID string
	)

	cmd := &cobra.Command{
		Use:   "leverage [paths...]",
		Short: "Rank loss categories by theoretical impact",
		Long: `Report, for each loss category, the OEE points and throughput that
would be recovered if the category were eliminated. The framing is
strictly theoretical; it is not a recommendation.`,
		Example: `  # Rank the losses of the sole machine
  pulse leverage

  # One machine of a multi-machine document
  pulse leverage plant.cue --machine press-04`,
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

			resp, err := client.Leverage(ctx, &compute.LeverageRequest{Input: input})
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(resp)
			}

			fmt.Printf("Machine: %s\n", input.Machine.MachineID)
			renderLeverage(resp.LeverageImpacts, resp.BaselineOEE)
			return nil
		},
	}

	cmd.Flags().StringVarP(&machineID, "machine", "m", "", "machine ID to analyze")

	return cmd
}
