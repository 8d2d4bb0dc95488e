package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/plantpulse/plantpulse/pkg/stores"
)

const starterAnalysis = `// PlantPulse analysis document.
//
// One machine block per machine; the map key is the machine ID.
// Every scalar may carry a source tag ("explicit" | "inferred" |
// "default"); untagged values count as explicit.

settings: {
	compute: base_url: "http://localhost:8750"
	store: path:       "./data/history.db"
	policy: enabled:   true
}

machines: "press-04": {
	window: {
		start: "2026-03-02T06:00:00Z"
		end:   "2026-03-02T14:00:00Z"
	}

	time_model: {
		planned_production_time: value: 28800
		allocations: [
			{state: "running", duration: value: 25200},
			{state: "stopped", duration: value: 3600, reason: {path: ["mechanical", "jam"], is_failure: true}},
		]
	}

	production: {
		total_units: value:    1000
		good_units: value:     950
		scrap_units: value:    30
		reworked_units: value: 20
	}

	cycle_time: ideal_cycle_time: value: 25.2

	// Derive scripts fill unset inputs as inferred values.
	// derive: """
	// 	planned_production_time = 8 * 3600 - 30 * 60
	// 	"""
}
`

const starterClientConfig = `# PlantPulse client configuration

compute:
  base_url: http://localhost:8750
  timeout_seconds: 30
  max_retries: 3

store:
  path: ./data/history.db
  keep_days: 90

policy:
  enabled: true
  paths: []
`

func newInitCommand() *cobra.Command {
	var (
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a PlantPulse workspace",
		Long: `Initialize a new PlantPulse workspace: a starter analysis document,
a client configuration file, and the local history database.`,
		Example: `  # Initialize a workspace in the current directory
  pulse init

  # Overwrite existing workspace files
  pulse init --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info().Bool("force", force).Msg("Initializing workspace")

			ctx := cmd.Context()
			dataDir := "./data"

			fmt.Printf("Initializing PlantPulse workspace\n\n")

			if err := os.MkdirAll(dataDir, 0700); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dataDir, err)
			}
			fmt.Printf("✓ Created directory: %s\n", dataDir)

			// History database
			dbPath := filepath.Join(dataDir, "history.db")
			store, err := stores.NewSQLiteStore(stores.Config{Path: dbPath})
			if err != nil {
				return fmt.Errorf("failed to create store: %w", err)
			}
			if err := store.Init(ctx); err != nil {
				return fmt.Errorf("failed to initialize store: %w", err)
			}
			defer func() { _ = store.Close() }()
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Printf("✓ Initialized history database: %s\n", dbPath)

			// Client config
			ccPath := configPath
			if ccPath == "" {
				ccPath = "./pulse.yaml"
			}
			if err := writeIfAbsent(ccPath, starterClientConfig, force); err != nil {
				return err
			}
			fmt.Printf("✓ Created config file: %s\n", ccPath)

			// Starter analysis document
			if err := writeIfAbsent("./analysis.cue", starterAnalysis, force); err != nil {
				return err
			}
			fmt.Printf("✓ Created analysis document: ./analysis.cue\n")

			fmt.Printf("\n✅ Workspace initialized successfully!\n\n")
			fmt.Printf("Next steps:\n")
			fmt.Printf("  1. Edit analysis.cue with your machine's data\n")
			fmt.Printf("  2. Check the input:\n")
			fmt.Printf("     pulse validate analysis.cue\n\n")
			fmt.Printf("  3. Run the calculation:\n")
			fmt.Printf("     pulse calculate analysis.cue\n\n")

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing workspace files")

	return cmd
}

func writeIfAbsent(path, content string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
