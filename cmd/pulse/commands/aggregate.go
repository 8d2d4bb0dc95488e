package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/plantpulse/plantpulse/pkg/compute"
	"github.com/plantpulse/plantpulse/pkg/oee"
)

func newAggregateCommand() *cobra.Command {
	var (
		method string
	)

	cmd := &cobra.Command{
		Use:   "aggregate [paths...]",
		Short: "Aggregate machines into a system-level OEE",
		Long: `Calculate every machine described by the analysis documents, then
combine the per-machine results into one system-level OEE figure.

Available methods: simple_average, production_weighted, time_weighted,
minimum, multiplicative.`,
		Example: `  # Production-weighted system OEE of a plant document
  pulse aggregate plant.cue

  # The bottleneck view
  pulse aggregate plant.cue --method minimum`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			aggMethod := oee.AggregationMethod(method)
			if !aggMethod.Valid() {
				return fmt.Errorf("unknown aggregation method %q (known: %v)",
					method, oee.AggregationMethods())
			}

			machines, client, err := calculateAllMachines(ctx, args)
			if err != nil {
				return err
			}

			resp, err := client.AggregateSystem(ctx, &compute.AggregateRequest{
				Machines:          machines,
				AggregationMethod: aggMethod,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(resp.Analysis)
			}

			renderSystemAnalysis(resp.Analysis)
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", string(oee.AggProductionWeighted), "aggregation method")

	return cmd
}

// calculateAllMachines parses the documents and runs a core calculation
// for every machine block, collecting the per-machine results for
// system aggregation.
func calculateAllMachines(ctx context.Context, args []string) ([]oee.MachineResult, *compute.Client, error) {
	parsed, err := loadAnalysis(ctx, args)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse analysis documents: %w", err)
	}
	if err := reportParseErrors(parsed); err != nil {
		return nil, nil, err
	}
	if len(parsed.Inputs) < 2 {
		return nil, nil, fmt.Errorf("system aggregation needs at least 2 machines, got %d", len(parsed.Inputs))
	}

	client, err := newComputeClient(parsed.Settings)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create compute client: %w", err)
	}

	machines := make([]oee.MachineResult, 0, len(parsed.Inputs))
	for _, in := range parsed.Inputs {
		log.Info().Str("machine_id", in.Machine.MachineID).Msg("Calculating machine")
		resp, err := client.Calculate(ctx, &compute.CalculateRequest{Input: in})
		if err != nil {
			return nil, nil, fmt.Errorf("calculation for machine %s failed: %w", in.Machine.MachineID, err)
		}
		machines = append(machines, oee.MachineResult{
			MachineID: in.Machine.MachineID,
			Result:    *resp.Result,
		})
	}
	return machines, client, nil
}

func renderSystemAnalysis(sa *oee.SystemAnalysis) {
	fmt.Printf("System OEE (%s): %.2f%%\n\n", sa.Method, sa.SystemOEE.Value*100)
	fmt.Printf("%-20s %8s %8s\n", "Machine", "OEE", "Weight")
	for _, m := range sa.Machines {
		marker := ""
		if m.IsBottleneck {
			marker = "  ← bottleneck"
		}
		fmt.Printf("%-20s %7.2f%% %8.2f%s\n", m.MachineID, m.OEE*100, m.Weight, marker)
	}
	if len(sa.Bottlenecks) > 0 {
		fmt.Printf("\nBottleneck throughput impact: %.0f units\n", sa.ThroughputImpact)
	}
}
