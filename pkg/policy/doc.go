// Package policy evaluates plausibility rules over analysis inputs and
// calculation results using Open Policy Agent's Rego.
//
// Policies are advisory. A finding never blocks a calculation or hides
// a result; it is surfaced alongside so the person reading the numbers
// can judge whether the data deserves trust. This mirrors the advisory
// stance of the validation layer: suspicious data still computes.
//
// The engine ships with built-in checks (unit count reconciliation,
// scrap rate, time overallocation, failure-heavy downtime, metric
// range plausibility, low utilization) and loads additional .rego or
// JSON policy files from configured paths. Each policy contributes
// findings through a deny set in its own package:
//
//	package plantpulse.checks.scrap
//
//	import rego.v1
//
//	deny contains finding if {
//		input.analysis
//		...
//		finding := {"message": "...", "severity": "warning", "machine": "..."}
//	}
//
// The evaluation input carries the analysis under "analysis", the
// calculation result (when one exists) under "result", and evaluation
// context under "context". Durations appear as float seconds.
package policy
