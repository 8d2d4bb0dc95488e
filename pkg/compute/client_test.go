package compute

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/plantpulse/plantpulse/pkg/oee"
)

func testInput() *oee.Input {
	return &oee.Input{
		Machine: oee.MachineContext{MachineID: "press-04"},
		TimeModel: oee.TimeModel{
			PlannedProductionTime: oee.Explicit(oee.Seconds(28800)),
		},
		Thresholds: oee.DefaultThresholds(),
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client, srv
}

func TestCalculateFullDecodesResponse(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != EndpointCalculateFull {
			t.Errorf("path = %s, want %s", r.URL.Path, EndpointCalculateFull)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"result": {
				"core_metrics": {
					"availability": {"name_key": "metric.availability", "value": 0.875, "confidence": "high"},
					"performance": {"name_key": "metric.performance", "value": 1.0, "confidence": "high"},
					"quality": {"name_key": "metric.quality", "value": 0.95, "confidence": "high"},
					"oee": {"name_key": "metric.oee", "value": 0.83125, "confidence": "high"}
				},
				"extended_metrics": {},
				"loss_tree": {"root": {"category_key": "loss.planned", "duration": 28800, "percentage_of_planned": 100, "source": "explicit"}, "planned_time": 28800},
				"ledger": {"analysis_timestamp": "2026-03-02T14:00:00Z", "source_statistics": {}}
			},
			"sensitivity_analysis": {"variation_percent": 10, "parameters": []}
		}`))
	}))

	resp, err := client.CalculateFull(context.Background(), &CalculateFullRequest{
		Input:              testInput(),
		IncludeSensitivity: true,
	})
	if err != nil {
		t.Fatalf("CalculateFull failed: %v", err)
	}
	if resp.Result == nil {
		t.Fatal("result missing")
	}
	if got := resp.Result.CoreMetrics.OEE.Value; got != 0.83125 {
		t.Errorf("oee = %v, want 0.83125", got)
	}
	if resp.Sensitivity == nil {
		t.Error("sensitivity missing")
	}
	if resp.TemporalScrap != nil {
		t.Error("temporal scrap should be absent")
	}
}

func TestErrorBodySurfacedVerbatim(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code": "NEGATIVE_PLANNED_TIME", "message_key": "api.error.negative_planned_time", "params": {"seconds": -5}}`))
	}))

	_, err := client.Calculate(context.Background(), &CalculateRequest{Input: testInput()})
	if err == nil {
		t.Fatal("expected error")
	}

	ae := oee.Normalize(err)
	if ae.Code != "NEGATIVE_PLANNED_TIME" {
		t.Errorf("code = %s, want NEGATIVE_PLANNED_TIME", ae.Code)
	}
	if ae.MessageKey != "api.error.negative_planned_time" {
		t.Errorf("message key = %s", ae.MessageKey)
	}
	if ae.Class != oee.ErrorClassValidation {
		t.Errorf("class = %s, want validation (4xx)", ae.Class)
	}
	if ae.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", ae.HTTPStatus)
	}
}

func TestServerFaultClassifiedAsCompute(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("not json"))
	}))

	_, err := client.Leverage(context.Background(), &LeverageRequest{Input: testInput()})
	ae := oee.Normalize(err)
	if ae.Class != oee.ErrorClassCompute {
		t.Errorf("class = %s, want compute (5xx)", ae.Class)
	}
	if ae.Code != oee.ErrCodeCompute {
		t.Errorf("code = %s, want %s", ae.Code, oee.ErrCodeCompute)
	}
}

func TestTimeoutClassified(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	client.timeout = 20 * time.Millisecond

	_, err := client.Calculate(context.Background(), &CalculateRequest{Input: testInput()})
	if !oee.IsTimeout(err) {
		t.Errorf("expected TIMEOUT classification, got %v", err)
	}
	if !oee.IsRetryable(err) {
		t.Error("timeout should be retryable")
	}
}

func TestConnectionFailureClassifiedAsNetwork(t *testing.T) {
	client, srv := newTestClient(t, http.NewServeMux())
	srv.Close()

	_, err := client.Calculate(context.Background(), &CalculateRequest{Input: testInput()})
	ae := oee.Normalize(err)
	if ae.Class != oee.ErrorClassNetwork {
		t.Errorf("class = %s, want network", ae.Class)
	}
}

func TestAggregateRejectsUnknownMethod(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))

	_, err := client.AggregateSystem(context.Background(), &AggregateRequest{
		AggregationMethod: oee.AggregationMethod("median"),
	})
	if err == nil {
		t.Fatal("expected error for unknown aggregation method")
	}
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			// Simulate a dropped connection by hijacking and closing.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("hijacking unsupported")
			}
			conn, _, _ := hj.Hijack()
			_ = conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result": {"core_metrics": {"oee": {"value": 0.5}}, "loss_tree": {"root": {}}, "ledger": {}, "extended_metrics": {}}}`))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL: srv.URL,
		Retry: &RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
		},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	resp, err := client.Calculate(context.Background(), &CalculateRequest{Input: testInput()})
	if err != nil {
		t.Fatalf("Calculate failed after retries: %v", err)
	}
	if resp.Result == nil {
		t.Fatal("result missing")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryDoesNotRetryAPIErrors(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code": "BAD_INPUT", "message_key": "api.error.bad_input"}`))
	}))
	client.retry = &RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}

	_, err := client.Calculate(context.Background(), &CalculateRequest{Input: testInput()})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (API errors are not retryable)", attempts)
	}
}
