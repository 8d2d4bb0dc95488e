package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/plantpulse/plantpulse/pkg/compute"
	"github.com/plantpulse/plantpulse/pkg/oee"
	"github.com/plantpulse/plantpulse/pkg/validation"
)

// fakeCalculator is an in-memory compute boundary. Aggregation is
// implemented just enough to exercise the method-dependent behavior.
type fakeCalculator struct {
	mu sync.Mutex

	fullErr     error
	leverageErr error

	fullCalls     int
	leverageCalls int

	// blockFull, when set, is closed by the test to release an
	// in-flight CalculateFull call.
	blockFull chan struct{}

	oeeValue float64
}

func (f *fakeCalculator) CalculateFull(ctx context.Context, req *compute.CalculateFullRequest) (*compute.CalculateFullResponse, error) {
	f.mu.Lock()
	f.fullCalls++
	block := f.blockFull
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.fullErr != nil {
		return nil, f.fullErr
	}

	value := f.oeeValue
	if value == 0 {
		value = 0.83125
	}
	resp := &compute.CalculateFullResponse{
		Result: &oee.Result{
			CoreMetrics: oee.CoreMetrics{
				Availability: oee.TrackedMetric{NameKey: "metric.availability", Value: 0.875, Confidence: oee.ConfidenceHigh},
				Performance:  oee.TrackedMetric{NameKey: "metric.performance", Value: 1.0, Confidence: oee.ConfidenceHigh},
				Quality:      oee.TrackedMetric{NameKey: "metric.quality", Value: 0.95, Confidence: oee.ConfidenceHigh},
				OEE:          oee.TrackedMetric{NameKey: "metric.oee", Value: value, Confidence: oee.ConfidenceHigh},
			},
		},
	}
	if req.IncludeSensitivity {
		resp.Sensitivity = &oee.SensitivityAnalysis{VariationPercent: 10}
	}
	if req.IncludeTemporalScrap {
		resp.TemporalScrap = &oee.TemporalScrapAnalysis{}
	}
	return resp, nil
}

func (f *fakeCalculator) Leverage(ctx context.Context, req *compute.LeverageRequest) (*compute.LeverageResponse, error) {
	f.mu.Lock()
	f.leverageCalls++
	f.mu.Unlock()
	if f.leverageErr != nil {
		return nil, f.leverageErr
	}
	return &compute.LeverageResponse{
		LeverageImpacts: []oee.LeverageImpact{
			{CategoryKey: "loss.availability.breakdown", OEEOpportunityPoints: 7.5},
		},
		BaselineOEE: 0.83125,
	}, nil
}

func (f *fakeCalculator) AggregateSystem(ctx context.Context, req *compute.AggregateRequest) (*compute.AggregateResponse, error) {
	var sum, min float64
	min = 2
	for _, m := range req.Machines {
		v := m.Result.CoreMetrics.OEE.Value
		sum += v
		if v < min {
			min = v
		}
	}
	var system float64
	switch req.AggregationMethod {
	case oee.AggMinimum:
		system = min
	case oee.AggSimpleAverage:
		system = sum / float64(len(req.Machines))
	default:
		system = sum / float64(len(req.Machines))
	}
	return &compute.AggregateResponse{
		Analysis: &oee.SystemAnalysis{
			Method:    req.AggregationMethod,
			SystemOEE: oee.TrackedMetric{NameKey: "metric.system_oee", Value: system},
		},
	}, nil
}

func (f *fakeCalculator) CompareMethods(ctx context.Context, req *compute.CompareMethodsRequest) (*compute.CompareMethodsResponse, error) {
	var comparisons []oee.MethodComparison
	for _, m := range oee.AggregationMethods() {
		resp, _ := f.AggregateSystem(ctx, &compute.AggregateRequest{Machines: req.Machines, AggregationMethod: m})
		comparisons = append(comparisons, oee.MethodComparison{Method: m, SystemOEE: resp.Analysis.SystemOEE.Value})
	}
	return &compute.CompareMethodsResponse{
		Comparisons:       comparisons,
		RecommendedMethod: oee.AggProductionWeighted,
	}, nil
}

func standardShiftInput() *oee.Input {
	return &oee.Input{
		Machine: oee.MachineContext{MachineID: "press-04"},
		TimeModel: oee.TimeModel{
			PlannedProductionTime: oee.Explicit(oee.Seconds(28800)),
			Allocations: []oee.TimeAllocation{
				{State: oee.StateRunning, Duration: oee.Explicit(oee.Seconds(25200))},
				{State: oee.StateStopped, Duration: oee.Explicit(oee.Seconds(3600))},
			},
		},
		Production: oee.ProductionSummary{
			TotalUnits:    oee.Explicit(int64(1000)),
			GoodUnits:     oee.Explicit(int64(950)),
			ScrapUnits:    oee.Explicit(int64(30)),
			ReworkedUnits: oee.Explicit(int64(20)),
		},
		CycleTime: oee.CycleTimeModel{
			IdealCycleTime: oee.Explicit(oee.Seconds(25.2)),
		},
		Thresholds: oee.DefaultThresholds(),
	}
}

func newTestSession(calc Calculator) *Session {
	return New(calc, zerolog.Nop())
}

func TestCalculateWithoutInputIsNoop(t *testing.T) {
	fake := &fakeCalculator{}
	s := newTestSession(fake)

	if err := s.Calculate(context.Background()); err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}
	if !s.State().Idle() {
		t.Errorf("phase = %s, want idle", s.State().Phase)
	}
	if fake.fullCalls != 0 {
		t.Errorf("compute called %d times, want 0", fake.fullCalls)
	}
}

func TestCalculateReachesSucceeded(t *testing.T) {
	fake := &fakeCalculator{}
	s := newTestSession(fake)
	s.SetInput(standardShiftInput())
	s.SetIncludeSensitivity(true, 10)
	s.SetIncludeTemporalScrap(true)

	if err := s.Calculate(context.Background()); err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	state := s.State()
	if !state.Succeeded() {
		t.Fatalf("phase = %s, want succeeded", state.Phase)
	}
	if state.Result == nil || state.Sensitivity == nil || state.TemporalScrap == nil {
		t.Error("success state incomplete")
	}
	if got := state.Result.CoreMetrics.Availability.Value; got != 0.875 {
		t.Errorf("availability = %v, want 0.875", got)
	}
	if s.Dirty() {
		t.Error("dirty flag should clear on success")
	}
	if s.LastCalculatedAt() == nil {
		t.Error("completion timestamp missing")
	}
}

func TestCalculateReachesFailedAndRetainsInput(t *testing.T) {
	fake := &fakeCalculator{
		fullErr: oee.NewAPIError(oee.ErrorClassCompute, "INTERNAL", "api.error.internal", nil, 500),
	}
	s := newTestSession(fake)
	s.SetInput(standardShiftInput())

	err := s.Calculate(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	state := s.State()
	if !state.Failed() {
		t.Fatalf("phase = %s, want failed", state.Phase)
	}
	if state.Err == nil || state.Err.Code != "INTERNAL" {
		t.Errorf("error = %+v, want INTERNAL surfaced verbatim", state.Err)
	}
	if s.Input() == nil {
		t.Error("input must be retained on failure for correction and resubmit")
	}
}

func TestCalculateFromFailedAndSucceededStates(t *testing.T) {
	fake := &fakeCalculator{fullErr: errors.New("transient")}
	s := newTestSession(fake)
	s.SetInput(standardShiftInput())

	_ = s.Calculate(context.Background())
	if !s.State().Failed() {
		t.Fatal("setup: expected failed state")
	}

	// Failed -> Loading -> Succeeded.
	fake.fullErr = nil
	if err := s.Calculate(context.Background()); err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if !s.State().Succeeded() {
		t.Fatalf("phase = %s, want succeeded", s.State().Phase)
	}

	// Succeeded -> Loading -> Succeeded (supersede, not mutate).
	first := s.State().Result
	if err := s.Calculate(context.Background()); err != nil {
		t.Fatalf("recalculate failed: %v", err)
	}
	if s.State().Result == first {
		t.Error("result should be superseded by a fresh instance")
	}
}

func TestUnknownErrorsAreNormalized(t *testing.T) {
	fake := &fakeCalculator{fullErr: errors.New("wire torn")}
	s := newTestSession(fake)
	s.SetInput(standardShiftInput())

	_ = s.Calculate(context.Background())

	state := s.State()
	if state.Err.Code != oee.ErrCodeUnknown {
		t.Errorf("code = %s, want %s", state.Err.Code, oee.ErrCodeUnknown)
	}
	if state.Err.MessageKey != "api.error.unknown" {
		t.Errorf("message key = %s, want api.error.unknown", state.Err.MessageKey)
	}
}

func TestLeverageFailureIsNonFatal(t *testing.T) {
	fake := &fakeCalculator{
		leverageErr: oee.NewAPIError(oee.ErrorClassCompute, "LEVERAGE_UNAVAILABLE", "api.error.leverage", nil, 503),
	}
	s := newTestSession(fake)
	s.SetInput(standardShiftInput())
	s.SetIncludeLeverage(true)

	if err := s.Calculate(context.Background()); err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	state := s.State()
	if !state.Succeeded() {
		t.Fatalf("phase = %s, want succeeded despite leverage failure", state.Phase)
	}
	if state.Leverage != nil {
		t.Error("leverage should be absent when its call failed")
	}
	if fake.leverageCalls != 1 {
		t.Errorf("leverage calls = %d, want 1", fake.leverageCalls)
	}
}

func TestLeverageAttachedOnSuccess(t *testing.T) {
	fake := &fakeCalculator{}
	s := newTestSession(fake)
	s.SetInput(standardShiftInput())
	s.SetIncludeLeverage(true)

	if err := s.Calculate(context.Background()); err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	state := s.State()
	if state.Leverage == nil || len(state.Leverage.Impacts) != 1 {
		t.Fatalf("leverage outcome = %+v, want one impact", state.Leverage)
	}
}

func TestLeverageNotRequestedNotCalled(t *testing.T) {
	fake := &fakeCalculator{}
	s := newTestSession(fake)
	s.SetInput(standardShiftInput())

	_ = s.Calculate(context.Background())
	if fake.leverageCalls != 0 {
		t.Errorf("leverage calls = %d, want 0", fake.leverageCalls)
	}
}

func TestResetClearsEverything(t *testing.T) {
	fake := &fakeCalculator{}
	s := newTestSession(fake)
	s.SetInput(standardShiftInput())
	s.SetIncludeLeverage(true)
	if err := s.Calculate(context.Background()); err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	s.Reset()

	if s.Input() != nil {
		t.Error("input not cleared")
	}
	if !s.State().Idle() {
		t.Errorf("phase = %s, want idle", s.State().Phase)
	}
	if s.Dirty() {
		t.Error("dirty flag not cleared")
	}
	if s.LastCalculatedAt() != nil {
		t.Error("completion timestamp not cleared")
	}
}

func TestStaleResponseDiscardedAfterReset(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeCalculator{blockFull: release}
	s := newTestSession(fake)
	s.SetInput(standardShiftInput())

	done := make(chan error, 1)
	go func() { done <- s.Calculate(context.Background()) }()

	// Wait for the request to be in flight, then reset underneath it.
	for s.State().Phase != PhaseLoading {
		time.Sleep(time.Millisecond)
	}
	s.Reset()
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	if !s.State().Idle() {
		t.Errorf("phase = %s, want idle (stale response must be discarded)", s.State().Phase)
	}
	if s.LastCalculatedAt() != nil {
		t.Error("stale response must not record a completion timestamp")
	}
}

func TestValidationAdvisoryDoesNotBlockCalculate(t *testing.T) {
	fake := &fakeCalculator{}
	s := newTestSession(fake)

	in := standardShiftInput()
	in.Production.TotalUnits = oee.Explicit(int64(100))
	in.Production.GoodUnits = oee.Explicit(int64(80))
	in.Production.ScrapUnits = oee.Explicit(int64(10))
	in.Production.ReworkedUnits = oee.Explicit(int64(5))
	s.SetInput(in)

	result := s.Validate()
	warnings := result.Warnings()
	if len(warnings) != 1 || warnings[0].Code != validation.CodeCountMismatch {
		t.Fatalf("expected a single count-mismatch warning, got %+v", result.Issues)
	}

	if err := s.Calculate(context.Background()); err != nil {
		t.Fatalf("Calculate blocked by advisory validation: %v", err)
	}
	if !s.State().Succeeded() {
		t.Errorf("phase = %s, want succeeded", s.State().Phase)
	}
}

func TestAggregationMinimumNeverExceedsAverage(t *testing.T) {
	fake := &fakeCalculator{}
	s := newTestSession(fake)

	machines := []oee.MachineResult{
		{MachineID: "m1", Result: oee.Result{CoreMetrics: oee.CoreMetrics{OEE: oee.TrackedMetric{Value: 0.62}}}},
		{MachineID: "m2", Result: oee.Result{CoreMetrics: oee.CoreMetrics{OEE: oee.TrackedMetric{Value: 0.81}}}},
		{MachineID: "m3", Result: oee.Result{CoreMetrics: oee.CoreMetrics{OEE: oee.TrackedMetric{Value: 0.74}}}},
	}

	minA, err := s.AggregateSystem(context.Background(), machines, oee.AggMinimum)
	if err != nil {
		t.Fatalf("minimum aggregation failed: %v", err)
	}
	avgA, err := s.AggregateSystem(context.Background(), machines, oee.AggSimpleAverage)
	if err != nil {
		t.Fatalf("average aggregation failed: %v", err)
	}

	if minA.SystemOEE.Value > avgA.SystemOEE.Value {
		t.Errorf("minimum (%v) exceeds simple average (%v)", minA.SystemOEE.Value, avgA.SystemOEE.Value)
	}
}

func TestCompareMethodsPassThrough(t *testing.T) {
	fake := &fakeCalculator{}
	s := newTestSession(fake)

	machines := []oee.MachineResult{
		{MachineID: "m1", Result: oee.Result{CoreMetrics: oee.CoreMetrics{OEE: oee.TrackedMetric{Value: 0.7}}}},
	}

	comparisons, recommended, err := s.CompareMethods(context.Background(), machines)
	if err != nil {
		t.Fatalf("CompareMethods failed: %v", err)
	}
	if len(comparisons) != len(oee.AggregationMethods()) {
		t.Errorf("comparisons = %d, want %d", len(comparisons), len(oee.AggregationMethods()))
	}
	if recommended == "" {
		t.Error("recommendation missing")
	}
}
