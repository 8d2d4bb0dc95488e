// Package telemetry provides observability instrumentation for PlantPulse.
//
// The telemetry package integrates structured logging (zerolog), distributed
// tracing (OpenTelemetry), metrics (Prometheus), and event publishing into a
// unified system for monitoring and debugging OEE analyses.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Metrics Collection - Prometheus metrics for operational insights
//  4. Event Publishing - Async event system for audit and notifications
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "plantpulse"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	// Start metrics server
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context propagation:
//
//	logger := tel.Logger.NewComponentLogger("session")
//	logger = logger.WithSessionID("s-123").WithMachineID("press-04")
//	logger.Info("Starting calculation")
//	logger.WithError(err).Error("Calculation failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// Tracing provides visibility into request flow and performance:
//
//	ctx, span := tel.Tracer.StartComputeSpan(ctx, "/calculate-full")
//	defer span.End()
//
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Supported exporters: OTLP (production), Stdout (development)
//
// # Metrics
//
// Key metrics exposed:
//
//   - plantpulse_calculations_started_total{machine_id}
//   - plantpulse_calculations_completed_total{status}
//   - plantpulse_calculation_duration_seconds{status}
//   - plantpulse_compute_requests_total{endpoint}
//   - plantpulse_compute_request_duration_seconds{endpoint}
//   - plantpulse_compute_errors_total{endpoint,class}
//   - plantpulse_validation_issues_total{severity,code}
//   - plantpulse_aggregations_total{method}
//   - plantpulse_errors_by_class_total{class}
//   - plantpulse_leverage_skips_total
//   - plantpulse_active_sessions
//
// Metrics are exposed via HTTP at /metrics (default: :9090/metrics)
//
// # Event Publishing
//
// The event system provides async publishing with buffering and filtering:
//
//	tel.Events.PublishCalculationStarted(sessionID, machineID)
//	tel.Events.PublishLeverageSkipped(sessionID, machineID, reason)
//
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
//	}, telemetry.FilterByLevel("warning"))
//
// Event filters: FilterByLevel, FilterByType, FilterBySessionID, FilterByMachineID
//
// # Context Helpers
//
// High-level helpers simplify common instrumentation patterns:
//
//	ctx = telemetry.WithCalculationContext(ctx, sessionID, machineID)
//	defer telemetry.EndCalculationContext(ctx, sessionID, machineID, oee, err)
//
//	err := telemetry.RecordComputeOperation(ctx, "/leverage", func() error {
//	    return client.Leverage(ctx, req)
//	})
//
// # Graceful Shutdown
//
// Always shut down telemetry gracefully to flush pending data:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("Telemetry shutdown error: %v", err)
//	}
package telemetry
