package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plantpulse/plantpulse/pkg/compute"
)

func newCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [paths...]",
		Short: "Compare all system aggregation methods",
		Long: `Calculate every machine described by the analysis documents, run all
aggregation methods over the results, and report each method's system
OEE together with the service's recommendation.`,
		Example: `  # Compare aggregation methods for a plant document
  pulse compare plant.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			machines, client, err := calculateAllMachines(ctx, args)
			if err != nil {
				return err
			}

			resp, err := client.CompareMethods(ctx, &compute.CompareMethodsRequest{Machines: machines})
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(resp)
			}

			fmt.Printf("Aggregation method comparison (%d machines):\n\n", len(machines))
			fmt.Printf("%-22s %10s\n", "Method", "System OEE")
			for _, c := range resp.Comparisons {
				marker := ""
				if c.Method == resp.RecommendedMethod {
					marker = "  ← recommended"
				}
				fmt.Printf("%-22s %9.2f%%%s\n", c.Method, c.SystemOEE*100, marker)
			}
			return nil
		},
	}

	return cmd
}
