package oee

import (
	"time"
)

// Confidence grades how well supported a metric value is by the inputs.
type Confidence string

const (
	// ConfidenceHigh means the metric rests on explicit inputs.
	ConfidenceHigh Confidence = "high"

	// ConfidenceMedium means inferred inputs contributed.
	ConfidenceMedium Confidence = "medium"

	// ConfidenceLow means defaults contributed materially.
	ConfidenceLow Confidence = "low"
)

// TrackedMetric is one output scalar together with its formula trace.
// Every output number is a TrackedMetric, never a bare float; this is
// the traceability contract with the compute boundary.
type TrackedMetric struct {
	// NameKey is the i18n key naming the metric.
	NameKey string `json:"name_key"`

	// Value is the metric value.
	Value float64 `json:"value"`

	// UnitKey is the i18n key for the unit.
	UnitKey string `json:"unit_key,omitempty"`

	// FormulaKey is the i18n key identifying the formula used.
	FormulaKey string `json:"formula_key,omitempty"`

	// FormulaParams are the named operands that fed the formula.
	FormulaParams map[string]float64 `json:"formula_params,omitempty"`

	// Confidence grades how well supported the value is.
	Confidence Confidence `json:"confidence"`
}

// CoreMetrics are the four headline OEE metrics. The compute boundary
// guarantees oee ≈ availability × performance × quality within floating
// tolerance; the client never recomputes it.
type CoreMetrics struct {
	// Availability is run time over planned production time.
	Availability TrackedMetric `json:"availability"`

	// Performance is ideal output over actual run time.
	Performance TrackedMetric `json:"performance"`

	// Quality is good units over total units.
	Quality TrackedMetric `json:"quality"`

	// OEE is the product of the three factors.
	OEE TrackedMetric `json:"oee"`
}

// ExtendedMetrics are additional metrics beyond the core four.
// TEEP is present only when the input carried all_time.
type ExtendedMetrics struct {
	// TEEP is OEE scaled by utilization of all calendar time.
	TEEP *TrackedMetric `json:"teep,omitempty"`

	// Utilization is planned time over all time.
	Utilization *TrackedMetric `json:"utilization,omitempty"`

	// ScrapRate is scrap units over total units.
	ScrapRate *TrackedMetric `json:"scrap_rate,omitempty"`

	// ReworkRate is reworked units over total units.
	ReworkRate *TrackedMetric `json:"rework_rate,omitempty"`

	// Throughput is good units per hour of run time.
	Throughput *TrackedMetric `json:"throughput,omitempty"`
}

// LossTreeNode is one node of the hierarchical loss decomposition.
// Children strictly partition the parent: the sum of direct children
// durations never exceeds the parent duration. The tree is a partition
// of planned time, never a causal graph.
type LossTreeNode struct {
	// CategoryKey is the i18n key for the loss category.
	CategoryKey string `json:"category_key"`

	// DescriptionKey is the i18n key for the category description.
	DescriptionKey string `json:"description_key,omitempty"`

	// Duration is the time attributed to this node.
	Duration Duration `json:"duration"`

	// PercentageOfPlanned is the share of planned production time.
	PercentageOfPlanned float64 `json:"percentage_of_planned"`

	// PercentageOfParent is the share of the parent node, when not root.
	PercentageOfParent *float64 `json:"percentage_of_parent,omitempty"`

	// Children are the sub-categories partitioning this node.
	Children []LossTreeNode `json:"children,omitempty"`

	// Source records what the attribution was derived from.
	Source Source `json:"source"`
}

// LossTree is the full loss decomposition for one analysis.
type LossTree struct {
	// Root is the top of the decomposition, covering planned time.
	Root LossTreeNode `json:"root"`

	// PlannedTime is the planned production time the tree partitions.
	PlannedTime Duration `json:"planned_time"`
}

// Walk visits every node depth-first using an explicit stack; the tree
// is acyclic by construction so no visited set is needed.
func (t *LossTree) Walk(visit func(node *LossTreeNode, depth int) bool) {
	type frame struct {
		node  *LossTreeNode
		depth int
	}
	stack := []frame{{&t.Root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visit(f.node, f.depth) {
			return
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{&f.node.Children[i], f.depth + 1})
		}
	}
}

// CheckPartition verifies the partition invariant at every level: the
// sum of direct children durations must not exceed the parent duration.
// It returns the category keys of the nodes violating it.
func (t *LossTree) CheckPartition() []string {
	var violations []string
	t.Walk(func(node *LossTreeNode, _ int) bool {
		var children Duration
		for _, c := range node.Children {
			children += c.Duration
		}
		if len(node.Children) > 0 && children > node.Duration {
			violations = append(violations, node.CategoryKey)
		}
		return true
	})
	return violations
}

// AssumptionEntry records one assumption the compute service made.
type AssumptionEntry struct {
	// Key identifies the assumed quantity.
	Key string `json:"key"`

	// MessageKey is the i18n key describing the assumption.
	MessageKey string `json:"message_key"`

	// Params are the message parameters.
	Params map[string]any `json:"params,omitempty"`

	// Source is the provenance of the assumed value.
	Source Source `json:"source"`
}

// SourceStatistics counts inputs by provenance.
type SourceStatistics struct {
	// ExplicitCount is the number of explicit inputs.
	ExplicitCount int `json:"explicit_count"`

	// InferredCount is the number of inferred inputs.
	InferredCount int `json:"inferred_count"`

	// DefaultCount is the number of defaulted inputs.
	DefaultCount int `json:"default_count"`

	// ExplicitPercent is the explicit share of all inputs.
	ExplicitPercent float64 `json:"explicit_percent"`

	// InferredPercent is the inferred share of all inputs.
	InferredPercent float64 `json:"inferred_percent"`

	// DefaultPercent is the defaulted share of all inputs.
	DefaultPercent float64 `json:"default_percent"`
}

// AssumptionLedger is the append-only audit record for one calculation.
// The client treats it as read-only output and never mutates it.
type AssumptionLedger struct {
	// AnalysisTimestamp is when the calculation ran.
	AnalysisTimestamp time.Time `json:"analysis_timestamp"`

	// Assumptions lists every assumption made.
	Assumptions []AssumptionEntry `json:"assumptions,omitempty"`

	// Warnings lists compute-side warnings.
	Warnings []string `json:"warnings,omitempty"`

	// Thresholds echoes the threshold configuration used.
	Thresholds []string `json:"thresholds,omitempty"`

	// SourceStatistics counts inputs by provenance.
	SourceStatistics SourceStatistics `json:"source_statistics"`

	// Metadata holds additional ledger metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// EconomicAnalysis is the optional uncertainty-bounded cost estimate.
type EconomicAnalysis struct {
	// LostMarginEstimate is the estimated lost contribution margin.
	LostMarginEstimate TrackedMetric `json:"lost_margin_estimate"`

	// LostMarginLow is the lower bound of the estimate.
	LostMarginLow float64 `json:"lost_margin_low"`

	// LostMarginHigh is the upper bound of the estimate.
	LostMarginHigh float64 `json:"lost_margin_high"`

	// Currency is the ISO 4217 currency code.
	Currency string `json:"currency,omitempty"`
}

// Result is the aggregate response of one successful calculation. It is
// immutable; a subsequent calculation supersedes it, never mutates it.
type Result struct {
	// CoreMetrics are the four headline metrics.
	CoreMetrics CoreMetrics `json:"core_metrics"`

	// ExtendedMetrics are the optional additional metrics.
	ExtendedMetrics ExtendedMetrics `json:"extended_metrics"`

	// LossTree is the hierarchical loss decomposition.
	LossTree LossTree `json:"loss_tree"`

	// Economic is the optional economic analysis.
	Economic *EconomicAnalysis `json:"economic_analysis,omitempty"`

	// Ledger is the audit record for this calculation.
	Ledger AssumptionLedger `json:"ledger"`

	// Validation echoes the advisory validation issues, if any.
	Validation []ValidationIssue `json:"validation,omitempty"`
}

// ValidationIssue mirrors the validation layer's issue shape on the
// result so a rendered result carries its advisories with it.
type ValidationIssue struct {
	// MessageKey is the i18n key for the issue message.
	MessageKey string `json:"message_key"`

	// Params are the message parameters.
	Params map[string]any `json:"params,omitempty"`

	// Severity is fatal, warning or info.
	Severity string `json:"severity"`

	// FieldPath locates the offending field, when known.
	FieldPath string `json:"field_path,omitempty"`

	// Code is the stable issue code.
	Code string `json:"code"`
}
