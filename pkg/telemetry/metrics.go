package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for PlantPulse.
type Metrics struct {
	config MetricsConfig

	// Calculation metrics
	calculationsStarted   *prometheus.CounterVec
	calculationsCompleted *prometheus.CounterVec
	calculationDuration   *prometheus.HistogramVec

	// Compute boundary metrics
	computeRequests        *prometheus.CounterVec
	computeRequestDuration *prometheus.HistogramVec
	computeErrors          *prometheus.CounterVec
	computeRetries         *prometheus.CounterVec

	// Validation metrics
	validationIssues *prometheus.CounterVec

	// Aggregation metrics
	aggregations *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	// Leverage analysis is non-critical; track how often it is skipped.
	leverageSkips prometheus.Counter

	// System metrics
	activeSessions prometheus.Gauge
	storedAnalyses prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// Calculation metrics
		calculationsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calculations_started_total",
				Help:      "Total number of OEE calculations started",
			},
			[]string{"machine_id"},
		),
		calculationsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calculations_completed_total",
				Help:      "Total number of OEE calculations completed",
			},
			[]string{"status"},
		),
		calculationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "calculation_duration_seconds",
				Help:      "End-to-end duration of OEE calculations in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		// Compute boundary metrics
		computeRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compute_requests_total",
				Help:      "Total number of compute service requests",
			},
			[]string{"endpoint"},
		),
		computeRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compute_request_duration_seconds",
				Help:      "Duration of compute service requests in seconds",
				Buckets:   buckets,
			},
			[]string{"endpoint"},
		),
		computeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compute_errors_total",
				Help:      "Total number of compute service errors",
			},
			[]string{"endpoint", "class"},
		),
		computeRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compute_retries_total",
				Help:      "Total number of retried compute service requests",
			},
			[]string{"endpoint"},
		),

		// Validation metrics
		validationIssues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_issues_total",
				Help:      "Total number of input validation issues raised",
			},
			[]string{"severity", "code"},
		),

		// Aggregation metrics
		aggregations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aggregations_total",
				Help:      "Total number of multi-machine aggregations",
			},
			[]string{"method"},
		),

		// Error metrics
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),

		leverageSkips: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "leverage_skips_total",
				Help:      "Total number of calculations that succeeded without leverage",
			},
		),

		// System metrics
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Current number of active analysis sessions",
			},
		),
		storedAnalyses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stored_analyses_total",
				Help:      "Total number of analyses written to the history store",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.calculationsStarted,
		m.calculationsCompleted,
		m.calculationDuration,
		m.computeRequests,
		m.computeRequestDuration,
		m.computeErrors,
		m.computeRetries,
		m.validationIssues,
		m.aggregations,
		m.errorsByClass,
		m.errorsByCode,
		m.leverageSkips,
		m.activeSessions,
		m.storedAnalyses,
	)

	return m, nil
}

// Calculation Metrics

// RecordCalculationStarted increments the counter for started calculations.
func (m *Metrics) RecordCalculationStarted(machineID string) {
	if m.calculationsStarted == nil {
		return
	}
	m.calculationsStarted.WithLabelValues(machineID).Inc()
}

// RecordCalculationCompleted records a completed calculation with its
// status and duration.
func (m *Metrics) RecordCalculationCompleted(status string, duration time.Duration) {
	if m.calculationsCompleted == nil {
		return
	}
	m.calculationsCompleted.WithLabelValues(status).Inc()
	m.calculationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// Compute Boundary Metrics

// RecordComputeRequest records a compute service request with its duration.
func (m *Metrics) RecordComputeRequest(endpoint string, duration time.Duration) {
	if m.computeRequests == nil {
		return
	}
	m.computeRequests.WithLabelValues(endpoint).Inc()
	m.computeRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordComputeError records a compute service error by endpoint and class.
func (m *Metrics) RecordComputeError(endpoint, class string) {
	if m.computeErrors == nil {
		return
	}
	m.computeErrors.WithLabelValues(endpoint, class).Inc()
}

// RecordComputeRetry records a retried compute service request.
func (m *Metrics) RecordComputeRetry(endpoint string) {
	if m.computeRetries == nil {
		return
	}
	m.computeRetries.WithLabelValues(endpoint).Inc()
}

// Validation Metrics

// RecordValidationIssue records a raised validation issue.
func (m *Metrics) RecordValidationIssue(severity, code string) {
	if m.validationIssues == nil {
		return
	}
	m.validationIssues.WithLabelValues(severity, code).Inc()
}

// Aggregation Metrics

// RecordAggregation records a multi-machine aggregation by method.
func (m *Metrics) RecordAggregation(method string) {
	if m.aggregations == nil {
		return
	}
	m.aggregations.WithLabelValues(method).Inc()
}

// Error Metrics

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" && m.errorsByCode != nil {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// RecordLeverageSkipped records a calculation that completed without its
// requested leverage analysis.
func (m *Metrics) RecordLeverageSkipped() {
	if m.leverageSkips == nil {
		return
	}
	m.leverageSkips.Inc()
}

// System Metrics

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m.activeSessions == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m.activeSessions == nil {
		return
	}
	m.activeSessions.Dec()
}

// RecordAnalysisStored records an analysis written to the history store.
func (m *Metrics) RecordAnalysisStored() {
	if m.storedAnalyses == nil {
		return
	}
	m.storedAnalyses.Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
