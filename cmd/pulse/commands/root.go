package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/plantpulse/plantpulse/pkg/compute"
	"github.com/plantpulse/plantpulse/pkg/config"
	"github.com/plantpulse/plantpulse/pkg/stores"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pulse",
		Short: "PlantPulse - OEE Analysis Client",
		Long: `PlantPulse is a client for a remote OEE (Overall Equipment Effectiveness)
compute service. It assembles provenance-tagged analysis inputs, submits
them for calculation, and renders the results.

Features:
  - Typed analysis documents via CUE
  - Light derivation scripting via Starlark
  - Advisory input validation that never blocks a calculation
  - Sensitivity, leverage and temporal scrap analyses
  - Multi-machine system aggregation with method comparison
  - Local calculation history in SQLite
  - Plausibility policies (OPA/Rego)`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "client config file path (pulse.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newCalculateCommand())
	rootCmd.AddCommand(newSensitivityCommand())
	rootCmd.AddCommand(newLeverageCommand())
	rootCmd.AddCommand(newAggregateCommand())
	rootCmd.AddCommand(newCompareCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newPoliciesCommand())

	return rootCmd
}

// clientConfig is the pulse.yaml client configuration. Analysis document
// settings override it; it overrides the built-in defaults.
type clientConfig struct {
	Compute struct {
		BaseURL        string  `yaml:"base_url"`
		TimeoutSeconds float64 `yaml:"timeout_seconds"`
		MaxRetries     int     `yaml:"max_retries"`
	} `yaml:"compute"`
	Store struct {
		Path     string `yaml:"path"`
		KeepDays int    `yaml:"keep_days"`
	} `yaml:"store"`
	Policy struct {
		Enabled bool     `yaml:"enabled"`
		Paths   []string `yaml:"paths"`
	} `yaml:"policy"`
}

// loadAnalysis parses the analysis documents named by args (defaulting
// to the current directory) and layers settings: built-in defaults,
// then pulse.yaml, then the documents themselves.
func loadAnalysis(ctx context.Context, args []string) (*config.ParsedAnalysis, error) {
	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}

	parser := config.NewParser()
	parsed, err := parser.Parse(ctx, paths)
	if err != nil {
		return nil, err
	}

	applyClientConfig(&parsed.Settings)
	return parsed, nil
}

// applyClientConfig overlays pulse.yaml values onto settings fields the
// analysis documents left at their defaults.
func applyClientConfig(settings *config.Settings) {
	path := configPath
	if path == "" {
		path = "pulse.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if configPath != "" {
			log.Warn().Err(err).Str("path", path).Msg("Failed to read client config")
		}
		return
	}

	var cc clientConfig
	if err := yaml.Unmarshal(data, &cc); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to parse client config")
		return
	}

	defaults := config.DefaultSettings()
	if settings.Compute.BaseURL == defaults.Compute.BaseURL && cc.Compute.BaseURL != "" {
		settings.Compute.BaseURL = cc.Compute.BaseURL
	}
	if settings.Compute.TimeoutSeconds == defaults.Compute.TimeoutSeconds && cc.Compute.TimeoutSeconds > 0 {
		settings.Compute.TimeoutSeconds = cc.Compute.TimeoutSeconds
	}
	if settings.Compute.MaxRetries == defaults.Compute.MaxRetries && cc.Compute.MaxRetries > 0 {
		settings.Compute.MaxRetries = cc.Compute.MaxRetries
	}
	if settings.Store.Path == "" {
		settings.Store.Path = cc.Store.Path
	}
	if settings.Store.KeepDays == 0 {
		settings.Store.KeepDays = cc.Store.KeepDays
	}
	if !settings.Policy.Enabled {
		settings.Policy.Enabled = cc.Policy.Enabled
	}
	if len(settings.Policy.Paths) == 0 {
		settings.Policy.Paths = cc.Policy.Paths
	}
}

// newComputeClient builds the compute client from settings.
func newComputeClient(settings config.Settings) (*compute.Client, error) {
	cfg := compute.Config{
		BaseURL: settings.Compute.BaseURL,
	}
	if settings.Compute.TimeoutSeconds > 0 {
		cfg.RequestTimeout = time.Duration(settings.Compute.TimeoutSeconds * float64(time.Second))
	}
	if settings.Compute.MaxRetries > 0 {
		retry := compute.DefaultRetryConfig()
		retry.MaxAttempts = settings.Compute.MaxRetries
		cfg.Retry = retry
	}
	return compute.NewClient(cfg, log.Logger)
}

// openHistoryStore opens and migrates the history store, or returns nil
// when history is disabled.
func openHistoryStore(ctx context.Context, settings config.Settings) (*stores.SQLiteStore, error) {
	if settings.Store.Path == "" {
		return nil, nil
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: settings.Store.Path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reportParseErrors prints parse errors and returns an error when any
// carry error severity. Advisory severities print without failing.
func reportParseErrors(parsed *config.ParsedAnalysis) error {
	hasErrors := false
	for _, e := range parsed.Errors {
		loc := e.File
		if e.Line > 0 {
			loc = fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column)
		}
		switch e.Severity {
		case "error":
			hasErrors = true
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", loc, e.Message)
		default:
			fmt.Fprintf(os.Stderr, "! %s: %s\n", loc, e.Message)
		}
	}
	if hasErrors {
		return fmt.Errorf("analysis documents contain %d error(s)", len(parsed.Errors))
	}
	return nil
}
