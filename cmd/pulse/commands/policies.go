package commands

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/plantpulse/plantpulse/pkg/policy"
)

func newPoliciesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Manage plausibility policies",
		Long: `Manage the plausibility policies that review inputs and results.
Policies are advisory: a finding never blocks a calculation.`,
	}

	cmd.AddCommand(newPoliciesListCommand())
	cmd.AddCommand(newPoliciesShowCommand())

	return cmd
}

// newPolicyEngine builds an engine with the builtin policies plus any
// custom paths from the client configuration.
func newPolicyEngine(cmd *cobra.Command) (*policy.Engine, error) {
	engine, err := policy.NewEngine(log.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy engine: %w", err)
	}
	settings := historySettings()
	if len(settings.Policy.Paths) > 0 {
		if err := engine.LoadPolicies(cmd.Context(), settings.Policy.Paths); err != nil {
			log.Warn().Err(err).Msg("Failed to load custom policies")
		}
	}
	return engine, nil
}

func newPoliciesListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List available policies",
		Example: `  pulse policies list
  pulse policies list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newPolicyEngine(cmd)
			if err != nil {
				return err
			}

			policies := engine.ListPolicies()

			if jsonOutput {
				return printJSON(policies)
			}

			fmt.Printf("%-24s %-9s %-8s %s\n", "Name", "Severity", "Enabled", "Description")
			fmt.Println(strings.Repeat("-", 90))
			for _, p := range policies {
				enabled := "yes"
				if !p.Enabled {
					enabled = "no"
				}
				fmt.Printf("%-24s %-9s %-8s %s\n", p.Name, p.Severity, enabled, p.Description)
			}
			return nil
		},
	}

	return cmd
}

func newPoliciesShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show <policy-name>",
		Short:   "Show one policy's Rego source",
		Args:    cobra.ExactArgs(1),
		Example: `  pulse policies show count-reconciliation`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newPolicyEngine(cmd)
			if err != nil {
				return err
			}

			p, err := engine.GetPolicy(args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(p)
			}

			fmt.Printf("Name:        %s\n", p.Name)
			fmt.Printf("Description: %s\n", p.Description)
			fmt.Printf("Severity:    %s\n", p.Severity)
			fmt.Printf("Enabled:     %t\n", p.Enabled)
			if len(p.Tags) > 0 {
				fmt.Printf("Tags:        %s\n", strings.Join(p.Tags, ", "))
			}
			fmt.Printf("\n%s\n", p.Rego)
			return nil
		},
	}

	return cmd
}
