package policy

import (
	"time"

	"github.com/plantpulse/plantpulse/pkg/oee"
)

// Severity grades a plausibility finding. Findings are advisory across
// the board; no severity ever blocks a calculation.
type Severity string

const (
	// SeverityInfo is for informational observations.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that deserve review.
	SeverityWarning Severity = "warning"

	// SeverityError is for findings that almost certainly indicate bad data.
	SeverityError Severity = "error"
)

// Policy is one plausibility rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for findings.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// CreatedAt is when the policy was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the policy was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Finding is one plausibility observation about an analysis.
type Finding struct {
	// Policy is the name of the policy that produced the finding.
	Policy string `json:"policy"`

	// MachineID identifies the machine the finding is about.
	MachineID string `json:"machine_id,omitempty"`

	// Message is a human-readable description of the finding.
	Message string `json:"message"`

	// Severity is the finding severity level.
	Severity Severity `json:"severity"`

	// Details contains additional finding details.
	Details map[string]interface{} `json:"details,omitempty"`

	// DetectedAt is when the finding was produced.
	DetectedAt time.Time `json:"detected_at"`
}

// Result is the outcome of one policy evaluation pass. Findings never
// block anything downstream; callers surface them and move on.
type Result struct {
	// Findings lists all plausibility findings.
	Findings []Finding `json:"findings,omitempty"`

	// Warnings lists policies that failed to evaluate.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that ran.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// EvaluatedAt is when the evaluation ran.
	EvaluatedAt time.Time `json:"evaluated_at"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// CountBySeverity tallies findings per severity.
func (r *Result) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for i := range r.Findings {
		counts[r.Findings[i].Severity]++
	}
	return counts
}

// EvalInput is the document handed to Rego. The analysis input is always
// present; the result is present only when evaluating after a
// calculation succeeded.
type EvalInput struct {
	// Analysis is the analysis input under scrutiny.
	Analysis *oee.Input `json:"analysis,omitempty"`

	// Result is the calculation result, when one exists.
	Result *oee.Result `json:"result,omitempty"`

	// Context provides evaluation context.
	Context *EvalContext `json:"context"`
}

// EvalContext provides context information for policy evaluation.
type EvalContext struct {
	// SessionID identifies the analysis session, when known.
	SessionID string `json:"session_id,omitempty"`

	// Stage is what is being evaluated ("input" or "result").
	Stage string `json:"stage"`

	// Timestamp is when the evaluation is occurring.
	Timestamp time.Time `json:"timestamp"`

	// Metadata contains additional context metadata.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// PolicyBundle is a versioned collection of related policies.
type PolicyBundle struct {
	// Name is the unique name of the bundle.
	Name string `json:"name"`

	// Version is the bundle version.
	Version string `json:"version"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Policies are the policies in this bundle.
	Policies []Policy `json:"policies"`

	// CreatedAt is when the bundle was created.
	CreatedAt time.Time `json:"created_at"`
}
