package validation

// Severity ranks a validation issue.
type Severity string

const (
	// SeverityFatal marks a mathematically impossible input. Even fatal
	// issues never block submission; the layer is advisory only.
	SeverityFatal Severity = "fatal"

	// SeverityWarning marks an inconsistency worth reviewing.
	SeverityWarning Severity = "warning"

	// SeverityInfo marks a suspicious but valid input.
	SeverityInfo Severity = "info"
)

// Issue is one advisory finding about an input.
type Issue struct {
	// MessageKey is the i18n key for the issue message.
	MessageKey string `json:"message_key"`

	// Params are the message parameters.
	Params map[string]any `json:"params,omitempty"`

	// Severity is fatal, warning or info.
	Severity Severity `json:"severity"`

	// FieldPath locates the offending field (e.g. "production.total_units").
	FieldPath string `json:"field_path,omitempty"`

	// Code is the stable issue code.
	Code string `json:"code"`
}

// Issue codes.
const (
	CodeCountMismatch      = "COUNT_MISMATCH"
	CodeAllocationOverflow = "ALLOCATION_OVERFLOW"
	CodeCycleFasterThanIdeal = "CYCLE_FASTER_THAN_IDEAL"
	CodeRatioOutOfRange    = "RATIO_OUT_OF_RANGE"
	CodeNegativeDuration   = "NEGATIVE_DURATION"
	CodeNegativeCount      = "NEGATIVE_COUNT"
	CodeEmptyWindow        = "EMPTY_WINDOW"
)

// Result is the ordered list of issues for one input.
type Result struct {
	// Issues are the findings, in rule-evaluation order.
	Issues []Issue `json:"issues,omitempty"`
}

// HasFatal reports whether any issue is fatal.
func (r Result) HasFatal() bool {
	return r.count(SeverityFatal) > 0
}

// Warnings returns the warning-severity issues.
func (r Result) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

// Fatals returns the fatal-severity issues.
func (r Result) Fatals() []Issue {
	return r.filter(SeverityFatal)
}

func (r Result) count(sev Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			n++
		}
	}
	return n
}

func (r Result) filter(sev Severity) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}
