package session

import (
	"github.com/plantpulse/plantpulse/pkg/oee"
)

// Phase is the calculation lifecycle phase.
type Phase string

const (
	// PhaseIdle means no calculation has been submitted.
	PhaseIdle Phase = "idle"

	// PhaseLoading means a calculation request is in flight.
	PhaseLoading Phase = "loading"

	// PhaseSucceeded holds a result until superseded.
	PhaseSucceeded Phase = "succeeded"

	// PhaseFailed holds a failure until superseded.
	PhaseFailed Phase = "failed"
)

// LeverageOutcome is the leverage analysis attached to a success.
type LeverageOutcome struct {
	// Impacts ranks the loss categories by theoretical impact.
	Impacts []oee.LeverageImpact `json:"impacts"`

	// BaselineOEE is the OEE the impacts are measured against.
	BaselineOEE float64 `json:"baseline_oee"`
}

// State is one snapshot of the calculation lifecycle. Exactly the
// fields of the active phase are populated: a failure never coexists
// with a result, and only leverage may be absent from an otherwise
// complete success.
type State struct {
	// Phase is the lifecycle phase.
	Phase Phase `json:"phase"`

	// Result is the core result, present in the succeeded phase.
	Result *oee.Result `json:"result,omitempty"`

	// Sensitivity is present when requested and the call succeeded.
	Sensitivity *oee.SensitivityAnalysis `json:"sensitivity,omitempty"`

	// TemporalScrap is present when requested and the call succeeded.
	TemporalScrap *oee.TemporalScrapAnalysis `json:"temporal_scrap,omitempty"`

	// Leverage is present when requested and its call succeeded.
	// A leverage failure never fails the calculation.
	Leverage *LeverageOutcome `json:"leverage,omitempty"`

	// Err is the normalized failure, present in the failed phase.
	Err *oee.AnalysisError `json:"error,omitempty"`
}

// Idle reports whether no calculation has been submitted.
func (s State) Idle() bool { return s.Phase == PhaseIdle }

// Loading reports whether a calculation is in flight.
func (s State) Loading() bool { return s.Phase == PhaseLoading }

// Succeeded reports whether the last calculation succeeded.
func (s State) Succeeded() bool { return s.Phase == PhaseSucceeded }

// Failed reports whether the last calculation failed.
func (s State) Failed() bool { return s.Phase == PhaseFailed }

// Config holds the session's calculation toggles.
type Config struct {
	// IncludeSensitivity requests the sensitivity analysis.
	IncludeSensitivity bool `json:"include_sensitivity"`

	// SensitivityVariation is the perturbation percentage. Zero means
	// the service default (10%).
	SensitivityVariation float64 `json:"sensitivity_variation,omitempty"`

	// IncludeTemporalScrap requests the temporal scrap analysis.
	IncludeTemporalScrap bool `json:"include_temporal_scrap"`

	// IncludeLeverage requests the leverage analysis in a second,
	// non-critical round-trip.
	IncludeLeverage bool `json:"include_leverage"`

	// Economic enables the economic analysis, when set.
	Economic *oee.EconomicParameters `json:"economic,omitempty"`
}
