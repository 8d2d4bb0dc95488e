package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/plantpulse/plantpulse/pkg/session"
	"github.com/plantpulse/plantpulse/pkg/telemetry"
)

func newWatchCommand() *cobra.Command {
	var (
		machineID     string
		sensitivity   bool
		temporalScrap bool
		leverage      bool
		metricsAddr   string
	)

	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Recalculate whenever the documents change",
		Long: `Watch the analysis documents and rerun the calculation whenever they
change. Edits are debounced; a save burst triggers one recalculation.

Because every recalculation supersedes the one before it, a slow
response that arrives after a newer edit is discarded rather than
rendered.`,
		Example: `  # Watch the current directory
  pulse watch

  # Watch one machine with the derived analyses
  pulse watch plant.cue --machine press-04 --sensitivity --leverage

  # Expose Prometheus metrics while watching
  pulse watch --metrics-addr :9090`,
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

			tel, err := newWatchTelemetry(metricsAddr)
			if err != nil {
				return fmt.Errorf("failed to set up telemetry: %w", err)
			}
			defer func() { _ = tel.Shutdown(ctx) }()
			if metricsAddr != "" {
				if err := tel.StartMetricsServer(); err != nil {
					return fmt.Errorf("failed to start metrics server: %w", err)
				}
				log.Info().Str("addr", metricsAddr).Msg("Serving Prometheus metrics")
			}

			sess := session.New(client, log.Logger)
			sess.SetInput(input)
			if sensitivity {
				sess.SetIncludeSensitivity(true, 0)
			}
			if temporalScrap {
				sess.SetIncludeTemporalScrap(true)
			}
			if leverage {
				sess.SetIncludeLeverage(true)
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("failed to create file watcher: %w", err)
			}
			defer func() { _ = watcher.Close() }()

			// Watch the parent directories; editors often replace files
			// rather than writing them in place.
			watched := map[string]bool{}
			for _, file := range parsed.SourceFiles {
				dir := filepath.Dir(file)
				if watched[dir] {
					continue
				}
				if err := watcher.Add(dir); err != nil {
					return fmt.Errorf("failed to watch %s: %w", dir, err)
				}
				watched[dir] = true
			}

			runOnce := func() {
				reparsed, err := loadAnalysis(ctx, args)
				if err != nil {
					log.Warn().Err(err).Msg("Reparse failed; keeping the last good input")
					return
				}
				if rerr := reportParseErrors(reparsed); rerr != nil {
					return
				}
				in, err := selectInput(reparsed.Inputs, machineID)
				if err != nil {
					log.Warn().Err(err).Msg("Machine selection failed after reparse")
					return
				}
				sess.SetInput(in)

				for _, issue := range sess.Validate().Issues {
					tel.Metrics.RecordValidationIssue(string(issue.Severity), issue.Code)
				}

				tel.Metrics.RecordCalculationStarted(in.Machine.MachineID)
				_ = tel.Events.PublishCalculationStarted(sess.ID(), in.Machine.MachineID)
				timer := telemetry.NewTimer()

				if err := sess.Calculate(ctx); err != nil {
					tel.Metrics.RecordCalculationCompleted("failed", timer.Duration())
					_ = tel.Events.PublishCalculationFailed(sess.ID(), in.Machine.MachineID, "", err.Error())
					fmt.Printf("✗ Calculation failed: %v\n", err)
					return
				}
				state := sess.State()
				if !state.Succeeded() {
					return
				}
				tel.Metrics.RecordCalculationCompleted("succeeded", timer.Duration())
				_ = tel.Events.PublishCalculationCompleted(sess.ID(), in.Machine.MachineID,
					state.Result.CoreMetrics.OEE.Value, timer.Duration())
				if leverage && state.Leverage == nil {
					tel.Metrics.RecordLeverageSkipped()
				}

				fmt.Printf("\n─── %s ───\n\n", time.Now().Local().Format("15:04:05"))
				renderResult(in.Machine.MachineID, state)
			}

			fmt.Printf("Watching %d file(s); press Ctrl-C to stop\n", len(parsed.SourceFiles))
			runOnce()

			var debounce *time.Timer
			debounced := make(chan struct{}, 1)
			for {
				select {
				case <-ctx.Done():
					return nil

				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
						continue
					}
					if !strings.HasSuffix(event.Name, ".cue") {
						continue
					}
					log.Debug().Str("file", event.Name).Msg("Document changed")
					if debounce != nil {
						debounce.Stop()
					}
					debounce = time.AfterFunc(500*time.Millisecond, func() {
						select {
						case debounced <- struct{}{}:
						default:
						}
					})

				case <-debounced:
					runOnce()

				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Warn().Err(err).Msg("Watcher error")
				}
			}
		},
	}

	cmd.Flags().StringVarP(&machineID, "machine", "m", "", "machine ID to calculate")
	cmd.Flags().BoolVar(&sensitivity, "sensitivity", false, "include the sensitivity analysis")
	cmd.Flags().BoolVar(&temporalScrap, "temporal-scrap", false, "include the temporal scrap analysis")
	cmd.Flags().BoolVar(&leverage, "leverage", false, "include the leverage analysis")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while watching")

	return cmd
}

// newWatchTelemetry builds the telemetry stack for a watch loop. Metrics
// are served only when an address is given; tracing stays off since the
// compute client already spans its own requests.
func newWatchTelemetry(metricsAddr string) (*telemetry.Telemetry, error) {
	cfg := telemetry.DefaultConfig()
	cfg.Tracing.Enabled = false
	cfg.Metrics.Enabled = metricsAddr != ""
	cfg.Metrics.ListenAddress = metricsAddr
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return telemetry.NewTelemetry(cfg)
}
