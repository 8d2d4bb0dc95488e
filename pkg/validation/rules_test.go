package validation

import (
	"testing"
	"time"

	"github.com/plantpulse/plantpulse/pkg/oee"
)

func consistentInput() *oee.Input {
	start := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	return &oee.Input{
		Window:  oee.AnalysisWindow{Start: start, End: start.Add(8 * time.Hour)},
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

func TestCheckConsistentInputIsClean(t *testing.T) {
	result := Check(consistentInput())
	if len(result.Issues) != 0 {
		t.Errorf("expected no issues, got %d: %+v", len(result.Issues), result.Issues)
	}
}

func TestCheckNilInput(t *testing.T) {
	result := Check(nil)
	if len(result.Issues) != 0 {
		t.Errorf("expected no issues for nil input, got %d", len(result.Issues))
	}
}

func TestCountMismatchWarning(t *testing.T) {
	in := consistentInput()
	in.Production.TotalUnits = oee.Explicit(int64(100))
	in.Production.GoodUnits = oee.Explicit(int64(80))
	in.Production.ScrapUnits = oee.Explicit(int64(10))
	in.Production.ReworkedUnits = oee.Explicit(int64(5))

	result := Check(in)

	warnings := result.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %d", len(warnings))
	}
	w := warnings[0]
	if w.Code != CodeCountMismatch {
		t.Errorf("code = %s, want %s", w.Code, CodeCountMismatch)
	}
	if w.Params["counted"] != int64(95) {
		t.Errorf("params counted = %v, want 95", w.Params["counted"])
	}
	if w.Params["total"] != int64(100) {
		t.Errorf("params total = %v, want 100", w.Params["total"])
	}
}

func TestAllocationOverflowWarning(t *testing.T) {
	in := consistentInput()
	in.TimeModel.Allocations = append(in.TimeModel.Allocations, oee.TimeAllocation{
		State:    oee.StateSetup,
		Duration: oee.Explicit(oee.Seconds(7200)),
	})

	result := Check(in)

	warnings := result.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(warnings))
	}
	if warnings[0].Code != CodeAllocationOverflow {
		t.Errorf("code = %s, want %s", warnings[0].Code, CodeAllocationOverflow)
	}
	if result.HasFatal() {
		t.Error("allocation overflow must never be fatal")
	}
}

func TestCycleFasterThanIdealIsInfo(t *testing.T) {
	in := consistentInput()
	avg := oee.Explicit(oee.Seconds(20))
	in.CycleTime.AverageCycleTime = &avg

	result := Check(in)

	if len(result.Issues) != 1 {
		t.Fatalf("expected one issue, got %d", len(result.Issues))
	}
	issue := result.Issues[0]
	if issue.Severity != SeverityInfo {
		t.Errorf("severity = %s, want info", issue.Severity)
	}
	if issue.Code != CodeCycleFasterThanIdeal {
		t.Errorf("code = %s, want %s", issue.Code, CodeCycleFasterThanIdeal)
	}
}

func TestThresholdRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*oee.ThresholdConfiguration)
		code   string
	}{
		{
			name:   "ratio above one",
			mutate: func(th *oee.ThresholdConfiguration) { th.HighScrapRateThreshold = 1.5 },
			code:   CodeRatioOutOfRange,
		},
		{
			name:   "ratio below zero",
			mutate: func(th *oee.ThresholdConfiguration) { th.LowUtilizationThreshold = -0.1 },
			code:   CodeRatioOutOfRange,
		},
		{
			name:   "negative duration threshold",
			mutate: func(th *oee.ThresholdConfiguration) { th.MicroStoppageThreshold = -5 },
			code:   CodeNegativeDuration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := consistentInput()
			tt.mutate(&in.Thresholds)

			result := Check(in)
			fatals := result.Fatals()
			if len(fatals) != 1 {
				t.Fatalf("expected one fatal issue, got %d", len(fatals))
			}
			if fatals[0].Code != tt.code {
				t.Errorf("code = %s, want %s", fatals[0].Code, tt.code)
			}
		})
	}
}

func TestNegativeCountsAreFatal(t *testing.T) {
	in := consistentInput()
	in.Production.ScrapUnits = oee.Explicit(int64(-3))

	result := Check(in)
	if !result.HasFatal() {
		t.Fatal("negative count should be fatal")
	}
}

func TestToResultIssues(t *testing.T) {
	in := consistentInput()
	in.Production.TotalUnits = oee.Explicit(int64(999))

	issues := ToResultIssues(Check(in))
	if len(issues) != 1 {
		t.Fatalf("expected one issue, got %d", len(issues))
	}
	if issues[0].Severity != string(SeverityWarning) {
		t.Errorf("severity = %s, want warning", issues[0].Severity)
	}
}
