package telemetry_test

import (
	"context"
	"fmt"
	"time"

	"github.com/plantpulse/plantpulse/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	// Create configuration
	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = "plantpulse"
	cfg.ServiceVersion = "1.0.0"

	// Initialize telemetry
	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	// Start metrics server (non-blocking)
	if err := tel.StartMetricsServer(); err != nil {
		panic(err)
	}

	// Add telemetry to context
	ctx := tel.WithContext(context.Background())

	// Use telemetry
	logger := telemetry.FromContext(ctx)
	logger.Info("Application started")

	// Output can vary, so we don't specify output for this example
}

// Example_structuredLogging demonstrates structured logging features.
func Example_structuredLogging() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Component-specific logger
	logger := tel.Logger.NewComponentLogger("session")

	// Add context fields
	logger = logger.WithSessionID("s-123").WithMachineID("press-04")

	// Log at different levels
	logger.Debug("Starting calculation")
	logger.Info("Calculation completed")
	logger.Warn("Input counts do not reconcile")

	// Log with error
	err := fmt.Errorf("network timeout")
	logger.WithError(err).Error("Failed to reach compute service")

	// Output varies, no output specified
}

// Example_metricsCollection demonstrates metrics collection.
func Example_metricsCollection() {
	cfg := telemetry.DefaultConfig()
	cfg.Metrics.Enabled = true

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Record calculation metrics
	tel.Metrics.RecordCalculationStarted("press-04")

	// Simulate calculation
	start := time.Now()
	time.Sleep(50 * time.Millisecond)
	duration := time.Since(start)

	tel.Metrics.RecordCalculationCompleted("succeeded", duration)

	// Record compute boundary metrics
	tel.Metrics.RecordComputeRequest("/calculate-full", 25*time.Millisecond)

	// Record validation and error metrics
	tel.Metrics.RecordValidationIssue("warning", "COUNT_MISMATCH")
	tel.Metrics.RecordError("network", "TIMEOUT")

	// Record an aggregation
	tel.Metrics.RecordAggregation("production_weighted")

	fmt.Println("Metrics recorded successfully")
	// Output: Metrics recorded successfully
}

// Example_eventPublishing demonstrates event publishing and subscription.
func Example_eventPublishing() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false // Synchronous for example

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Subscribe to events
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
	}, nil) // No filter, receive all events

	// Publish events
	tel.Events.PublishCalculationStarted("s-123", "press-04")
	tel.Events.PublishCalculationCompleted("s-123", "press-04", 0.83, 25*time.Millisecond)
	tel.Events.PublishLeverageSkipped("s-123", "press-04", "compute service unavailable")

	// Output varies due to async nature, no output specified
}

// Example_calculationInstrumentation demonstrates instrumenting a full calculation.
func Example_calculationInstrumentation() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start calculation context
	sessionID := "s-123"
	machineID := "press-04"
	ctx = telemetry.WithCalculationContext(ctx, sessionID, machineID)

	// Execute the compute round-trip (simulated)
	err := telemetry.RecordComputeOperation(ctx, "/calculate-full", func() error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	// End calculation context
	telemetry.EndCalculationContext(ctx, sessionID, machineID, 0.83, err)

	fmt.Println("Calculation instrumentation complete")
	// Output: Calculation instrumentation complete
}

// Example_instrumentedOperation demonstrates using the InstrumentedContext helper.
func Example_instrumentedOperation() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start instrumented operation
	ic := telemetry.StartOperation(ctx, "validate_input",
		attribute.String("machine.id", "press-04"),
	)
	defer ic.End(nil)

	// Use the instrumented context
	ic.Logger.Info("Validating analysis input")

	// Simulate validation
	time.Sleep(5 * time.Millisecond)

	ic.Logger.Debug("Input validation complete")

	fmt.Println("Operation instrumentation complete")
	// Output: Operation instrumentation complete
}

// Example_eventFiltering demonstrates event filtering.
func Example_eventFiltering() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Subscribe with level filter (only warnings and errors)
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Important event: %s\n", event.Type)
	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))

	// Subscribe with type filter (only policy findings)
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Policy event: %s\n", event.Message)
	}, telemetry.FilterByType(telemetry.EventTypePolicyFinding))

	// Publish various events
	tel.Events.PublishCalculationStarted("s-123", "press-04")                       // Info - filtered by level filter
	tel.Events.PublishPolicyFinding("press-04", "scrap_rate", "scrap rate over 5%") // Warning - passes level filter
	tel.Events.PublishCalculationFailed("s-123", "press-04", "TIMEOUT", "timeout")  // Error - passes level filter

	// Output varies, no output specified
}

// Example_productionConfiguration demonstrates production-ready configuration.
func Example_productionConfiguration() {
	cfg := telemetry.ProductionConfig()

	// Customize for your environment
	cfg.ServiceName = "plantpulse"
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "production"

	// Configure OTLP exporter
	cfg.Tracing.Exporter = "otlp"
	cfg.Tracing.Endpoint = "otel-collector.monitoring.svc.cluster.local:4317"
	cfg.Tracing.SamplingRate = 0.1 // 10% sampling
	cfg.Tracing.Insecure = false   // Use TLS in production

	// Configure metrics
	cfg.Metrics.ListenAddress = ":9090"
	cfg.Metrics.Namespace = "plantpulse"

	// Configure events
	cfg.Events.BufferSize = 10000
	cfg.Events.FlushInterval = 5 * time.Second

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	fmt.Println("Production configuration validated")
	// Output: Production configuration validated
}

// Example_multipleComponents demonstrates telemetry in a multi-component system.
func Example_multipleComponents() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Component-specific loggers
	sessionLogger := tel.Logger.NewComponentLogger("session")
	computeLogger := tel.Logger.NewComponentLogger("compute")
	storeLogger := tel.Logger.NewComponentLogger("store")

	sessionLogger.Info("Session opened")
	computeLogger.Info("Compute client configured")
	storeLogger.Info("History store ready")

	fmt.Println("Multi-component logging complete")
	// Output: Multi-component logging complete
}
