package validation

import (
	"fmt"

	"github.com/plantpulse/plantpulse/pkg/oee"
)

// Rule checks one aspect of an input and returns its findings.
// Rules are pure functions of the input; they perform no I/O and stay
// useful when the compute boundary is unavailable.
type Rule func(in *oee.Input) []Issue

// Rules returns the rule set in evaluation order.
func Rules() []Rule {
	return []Rule{
		checkWindow,
		checkProductionCounts,
		checkCountReconciliation,
		checkAllocationOverflow,
		checkCycleTimes,
		checkThresholds,
	}
}

// Check runs all rules against the input and returns the ordered issues.
// The result is advisory only and never blocks a calculation.
func Check(in *oee.Input) Result {
	var result Result
	if in == nil {
		return result
	}
	for _, rule := range Rules() {
		result.Issues = append(result.Issues, rule(in)...)
	}
	return result
}

func checkWindow(in *oee.Input) []Issue {
	if in.Window.Start.IsZero() && in.Window.End.IsZero() {
		return nil
	}
	if !in.Window.End.After(in.Window.Start) {
		return []Issue{{
			MessageKey: "validation.window.empty",
			Params: map[string]any{
				"start": in.Window.Start,
				"end":   in.Window.End,
			},
			Severity:  SeverityFatal,
			FieldPath: "window",
			Code:      CodeEmptyWindow,
		}}
	}
	return nil
}

func checkProductionCounts(in *oee.Input) []Issue {
	counts := []struct {
		name  string
		value int64
	}{
		{"total_units", in.Production.TotalUnits.Value()},
		{"good_units", in.Production.GoodUnits.Value()},
		{"scrap_units", in.Production.ScrapUnits.Value()},
		{"reworked_units", in.Production.ReworkedUnits.Value()},
	}

	var issues []Issue
	for _, c := range counts {
		if c.value < 0 {
			issues = append(issues, Issue{
				MessageKey: "validation.production.negative",
				Params:     map[string]any{"field": c.name, "value": c.value},
				Severity:   SeverityFatal,
				FieldPath:  "production." + c.name,
				Code:       CodeNegativeCount,
			})
		}
	}
	return issues
}

// checkCountReconciliation warns when good + scrap + reworked does not
// equal total. Both sums are carried in the params so a caller can show
// them side by side.
func checkCountReconciliation(in *oee.Input) []Issue {
	total := in.Production.TotalUnits.Value()
	counted := in.Production.CountedUnits()
	if counted == total {
		return nil
	}
	return []Issue{{
		MessageKey: "validation.production.count_mismatch",
		Params: map[string]any{
			"counted": counted,
			"total":   total,
		},
		Severity:  SeverityWarning,
		FieldPath: "production",
		Code:      CodeCountMismatch,
	}}
}

func checkAllocationOverflow(in *oee.Input) []Issue {
	planned := in.TimeModel.PlannedProductionTime.Value()
	allocated := in.TimeModel.AllocatedTime()
	if allocated <= planned {
		return nil
	}
	return []Issue{{
		MessageKey: "validation.time.allocation_overflow",
		Params: map[string]any{
			"allocated_seconds": allocated.SecondsValue(),
			"planned_seconds":   planned.SecondsValue(),
		},
		Severity:  SeverityWarning,
		FieldPath: "time_model.allocations",
		Code:      CodeAllocationOverflow,
	}}
}

// checkCycleTimes flags an observed average faster than the theoretical
// ideal. Faster than ideal is suspicious, not invalid, hence info.
func checkCycleTimes(in *oee.Input) []Issue {
	if in.CycleTime.AverageCycleTime == nil {
		return nil
	}
	avg := in.CycleTime.AverageCycleTime.Value()
	ideal := in.CycleTime.IdealCycleTime.Value()
	if avg >= ideal {
		return nil
	}
	return []Issue{{
		MessageKey: "validation.cycle.faster_than_ideal",
		Params: map[string]any{
			"average_seconds": avg.SecondsValue(),
			"ideal_seconds":   ideal.SecondsValue(),
		},
		Severity:  SeverityInfo,
		FieldPath: "cycle_time.average_cycle_time",
		Code:      CodeCycleFasterThanIdeal,
	}}
}

func checkThresholds(in *oee.Input) []Issue {
	var issues []Issue

	ratios := []struct {
		name  string
		value float64
	}{
		{"speed_loss_threshold", in.Thresholds.SpeedLossThreshold},
		{"high_scrap_rate_threshold", in.Thresholds.HighScrapRateThreshold},
		{"low_utilization_threshold", in.Thresholds.LowUtilizationThreshold},
	}
	for _, r := range ratios {
		if r.value < 0 || r.value > 1 {
			issues = append(issues, Issue{
				MessageKey: "validation.thresholds.ratio_out_of_range",
				Params:     map[string]any{"field": r.name, "value": r.value},
				Severity:   SeverityFatal,
				FieldPath:  "thresholds." + r.name,
				Code:       CodeRatioOutOfRange,
			})
		}
	}

	durations := []struct {
		name  string
		value float64
	}{
		{"micro_stoppage_threshold", in.Thresholds.MicroStoppageThreshold},
		{"small_stop_threshold", in.Thresholds.SmallStopThreshold},
	}
	for _, d := range durations {
		if d.value < 0 {
			issues = append(issues, Issue{
				MessageKey: "validation.thresholds.negative_duration",
				Params:     map[string]any{"field": d.name, "value": d.value},
				Severity:   SeverityFatal,
				FieldPath:  "thresholds." + d.name,
				Code:       CodeNegativeDuration,
			})
		}
	}

	return issues
}

// ToResultIssues converts the local issue list into the wire shape
// attached to calculation results.
func ToResultIssues(r Result) []oee.ValidationIssue {
	if len(r.Issues) == 0 {
		return nil
	}
	out := make([]oee.ValidationIssue, len(r.Issues))
	for i, issue := range r.Issues {
		out[i] = oee.ValidationIssue{
			MessageKey: issue.MessageKey,
			Params:     issue.Params,
			Severity:   string(issue.Severity),
			FieldPath:  issue.FieldPath,
			Code:       issue.Code,
		}
	}
	return out
}

// Summarize renders a one-line textual summary for logs.
func Summarize(r Result) string {
	fatal, warn, info := 0, 0, 0
	for _, issue := range r.Issues {
		switch issue.Severity {
		case SeverityFatal:
			fatal++
		case SeverityWarning:
			warn++
		case SeverityInfo:
			info++
		}
	}
	return fmt.Sprintf("%d fatal, %d warning, %d info", fatal, warn, info)
}
