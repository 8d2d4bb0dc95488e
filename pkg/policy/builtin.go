package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in plausibility policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		countReconciliationPolicy(),
		highScrapRatePolicy(),
		timeOverallocationPolicy(),
		failureDowntimePolicy(),
		metricPlausibilityPolicy(),
		lowUtilizationPolicy(),
	}
}

// countReconciliationPolicy flags unit counts that do not add up.
func countReconciliationPolicy() Policy {
	return Policy{
		Name:        "count-reconciliation",
		Description: "Flags analyses where good + scrap + reworked units do not reconcile with total units",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"production", "consistency"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package plantpulse.checks.counts

import rego.v1

deny contains finding if {
	input.analysis
	p := input.analysis.production

	counted := p.good_units.value + p.scrap_units.value + p.reworked_units.value
	counted != p.total_units.value

	finding := {
		"message": sprintf("unit counts do not reconcile: %d counted vs %d total", [counted, p.total_units.value]),
		"severity": "warning",
		"machine": input.analysis.machine.machine_id,
	}
}

deny contains finding if {
	input.analysis
	p := input.analysis.production

	p.good_units.value > p.total_units.value

	finding := {
		"message": sprintf("good units (%d) exceed total units (%d)", [p.good_units.value, p.total_units.value]),
		"severity": "error",
		"machine": input.analysis.machine.machine_id,
	}
}`,
	}
}

// highScrapRatePolicy flags scrap above the configured threshold.
func highScrapRatePolicy() Policy {
	return Policy{
		Name:        "high-scrap-rate",
		Description: "Flags analyses whose scrap ratio exceeds the configured high scrap rate threshold",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"production", "quality"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package plantpulse.checks.scrap

import rego.v1

deny contains finding if {
	input.analysis
	p := input.analysis.production

	p.total_units.value > 0
	rate := p.scrap_units.value / p.total_units.value
	rate > input.analysis.thresholds.high_scrap_rate_threshold

	finding := {
		"message": sprintf("scrap rate %.1f%% exceeds the %.1f%% threshold", [rate * 100, input.analysis.thresholds.high_scrap_rate_threshold * 100]),
		"severity": "warning",
		"machine": input.analysis.machine.machine_id,
	}
}`,
	}
}

// timeOverallocationPolicy flags allocations exceeding the planned time.
func timeOverallocationPolicy() Policy {
	return Policy{
		Name:        "time-overallocation",
		Description: "Flags time models whose state allocations sum to more than the planned production time",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"time-model", "consistency"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package plantpulse.checks.time

import rego.v1

deny contains finding if {
	input.analysis
	tm := input.analysis.time_model
	count(tm.allocations) > 0

	allocated := sum([a.duration.value | some a in tm.allocations])
	planned := tm.planned_production_time.value
	planned > 0
	allocated > planned

	finding := {
		"message": sprintf("allocated time %.0fs exceeds planned production time %.0fs", [allocated, planned]),
		"severity": "warning",
		"machine": input.analysis.machine.machine_id,
	}
}`,
	}
}

// failureDowntimePolicy flags windows dominated by equipment failures.
func failureDowntimePolicy() Policy {
	return Policy{
		Name:        "failure-downtime",
		Description: "Flags windows where equipment failure downtime consumes more than a quarter of planned production time",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"downtime", "maintenance"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package plantpulse.checks.downtime

import rego.v1

deny contains finding if {
	input.analysis
	count(input.analysis.downtimes) > 0

	failure_time := sum([d.duration.value |
		some d in input.analysis.downtimes
		d.reason.is_failure
	])

	planned := input.analysis.time_model.planned_production_time.value
	planned > 0
	failure_time > (planned * 0.25)

	finding := {
		"message": sprintf("equipment failures account for %.0fs of %.0fs planned time", [failure_time, planned]),
		"severity": "warning",
		"machine": input.analysis.machine.machine_id,
	}
}`,
	}
}

// metricPlausibilityPolicy flags metric values outside their physical range.
func metricPlausibilityPolicy() Policy {
	return Policy{
		Name:        "metric-plausibility",
		Description: "Flags calculation results whose factor metrics leave the physically plausible [0,1] range",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"result", "plausibility"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package plantpulse.checks.metrics

import rego.v1

factor_metrics := ["availability", "performance", "quality"]

deny contains finding if {
	input.result
	some name in factor_metrics
	metric := input.result.core_metrics[name]

	metric.value > 1.0

	finding := {
		"message": sprintf("%s of %.1f%% is above 100%% - check the ideal cycle time and unit counts", [name, metric.value * 100]),
		"severity": "error",
		"machine": input.analysis.machine.machine_id,
	}
}

deny contains finding if {
	input.result
	some name in factor_metrics
	metric := input.result.core_metrics[name]

	metric.value < 0

	finding := {
		"message": sprintf("%s is negative (%.3f)", [name, metric.value]),
		"severity": "error",
		"machine": input.analysis.machine.machine_id,
	}
}`,
	}
}

// lowUtilizationPolicy flags machines below the utilization threshold.
func lowUtilizationPolicy() Policy {
	return Policy{
		Name:        "low-utilization",
		Description: "Flags results whose utilization falls below the configured low utilization threshold",
		Severity:    SeverityInfo,
		Enabled:     true,
		Tags:        []string{"result", "capacity"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package plantpulse.checks.utilization

import rego.v1

deny contains finding if {
	input.result
	input.analysis
	util := input.result.extended_metrics.utilization

	util.value < input.analysis.thresholds.low_utilization_threshold

	finding := {
		"message": sprintf("utilization %.1f%% is below the %.1f%% threshold", [util.value * 100, input.analysis.thresholds.low_utilization_threshold * 100]),
		"severity": "info",
		"machine": input.analysis.machine.machine_id,
	}
}`,
	}
}
