package oee

import (
	"time"
)

// MachineState classifies a slice of planned production time.
type MachineState string

const (
	// StateRunning is normal production.
	StateRunning MachineState = "running"

	// StateStopped is an unplanned stop.
	StateStopped MachineState = "stopped"

	// StateSetup is changeover or setup work.
	StateSetup MachineState = "setup"

	// StateStarved is idle time waiting for upstream material.
	StateStarved MachineState = "starved"

	// StateBlocked is idle time waiting for downstream capacity.
	StateBlocked MachineState = "blocked"

	// StateMaintenance is planned or unplanned maintenance.
	StateMaintenance MachineState = "maintenance"

	// StateUnknown is unclassified time.
	StateUnknown MachineState = "unknown"
)

// MachineStates lists all known machine states.
func MachineStates() []MachineState {
	return []MachineState{
		StateRunning, StateStopped, StateSetup,
		StateStarved, StateBlocked, StateMaintenance, StateUnknown,
	}
}

// AnalysisWindow is the time span one analysis covers.
// The window is set once per session and is editable until a
// calculation has been submitted.
type AnalysisWindow struct {
	// Start is the inclusive start of the window.
	Start time.Time `json:"start" validate:"required"`

	// End is the exclusive end of the window. Must be after Start.
	End time.Time `json:"end" validate:"required,gtfield=Start"`
}

// Duration returns the length of the window.
func (w AnalysisWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// MachineContext identifies which machine, line, product and shift the
// analysis is about. Identifiers are free text; only the machine ID is
// required.
type MachineContext struct {
	// MachineID identifies the machine under analysis.
	MachineID string `json:"machine_id" validate:"required"`

	// LineID optionally identifies the production line.
	LineID string `json:"line_id,omitempty"`

	// ProductID optionally identifies the product being produced.
	ProductID string `json:"product_id,omitempty"`

	// ShiftID optionally identifies the shift.
	ShiftID string `json:"shift_id,omitempty"`
}

// ReasonCode is a hierarchical downtime category.
type ReasonCode struct {
	// Path is the category path, most general first
	// (e.g. ["mechanical", "jam", "infeed"]).
	Path []string `json:"path" validate:"required,min=1"`

	// IsFailure marks the reason as an equipment failure rather than an
	// organizational or external loss.
	IsFailure bool `json:"is_failure"`
}

// TimeAllocation assigns a duration of the planned time to one machine state.
type TimeAllocation struct {
	// State is the machine state this slice of time is attributed to.
	State MachineState `json:"state" validate:"required"`

	// Duration is the attributed time.
	Duration InputValue[Duration] `json:"duration"`

	// Reason optionally categorizes the allocation.
	Reason *ReasonCode `json:"reason,omitempty"`

	// Notes is free-text commentary.
	Notes string `json:"notes,omitempty"`
}

// TimeModel partitions the analysis window into planned production time
// and per-state allocations.
type TimeModel struct {
	// PlannedProductionTime is the time production was scheduled.
	PlannedProductionTime InputValue[Duration] `json:"planned_production_time"`

	// Allocations splits the planned time across machine states. Their
	// sum should not exceed the planned production time; validation
	// warns but never blocks when it does.
	Allocations []TimeAllocation `json:"allocations,omitempty"`

	// AllTime is the total calendar time, enabling the TEEP extended
	// metric downstream. Absent means the metric is simply omitted.
	AllTime *InputValue[Duration] `json:"all_time,omitempty"`
}

// RunningTime returns the total time allocated to the running state.
func (tm TimeModel) RunningTime() Duration {
	var total Duration
	for _, a := range tm.Allocations {
		if a.State == StateRunning {
			total += a.Duration.Value()
		}
	}
	return total
}

// AllocatedTime returns the sum of all allocation durations.
func (tm TimeModel) AllocatedTime() Duration {
	var total Duration
	for _, a := range tm.Allocations {
		total += a.Duration.Value()
	}
	return total
}

// ProductionSummary holds the unit counts for the window.
// good + scrap + reworked should reconcile with total; the mismatch is
// advisory, never enforced.
type ProductionSummary struct {
	// TotalUnits is the number of units started.
	TotalUnits InputValue[int64] `json:"total_units"`

	// GoodUnits is the number of first-pass good units.
	GoodUnits InputValue[int64] `json:"good_units"`

	// ScrapUnits is the number of units scrapped.
	ScrapUnits InputValue[int64] `json:"scrap_units"`

	// ReworkedUnits is the number of units needing rework.
	ReworkedUnits InputValue[int64] `json:"reworked_units"`
}

// CountedUnits returns good + scrap + reworked.
func (p ProductionSummary) CountedUnits() int64 {
	return p.GoodUnits.Value() + p.ScrapUnits.Value() + p.ReworkedUnits.Value()
}

// CycleTimeModel carries the theoretical and observed per-unit cycle times.
type CycleTimeModel struct {
	// IdealCycleTime is the theoretical per-unit minimum.
	IdealCycleTime InputValue[Duration] `json:"ideal_cycle_time"`

	// AverageCycleTime is the observed mean, if measured.
	AverageCycleTime *InputValue[Duration] `json:"average_cycle_time,omitempty"`
}

// DowntimeRecord is one recorded stoppage.
type DowntimeRecord struct {
	// Duration is the length of the stoppage.
	Duration InputValue[Duration] `json:"duration"`

	// Reason categorizes the stoppage.
	Reason ReasonCode `json:"reason"`

	// Timestamp is when the stoppage began, if known.
	Timestamp *time.Time `json:"timestamp,omitempty"`

	// Notes is free-text commentary.
	Notes string `json:"notes,omitempty"`
}

// ThresholdConfiguration holds the categorization knobs. Thresholds are
// plain configuration with no provenance concept, so they are not
// InputValue-wrapped.
type ThresholdConfiguration struct {
	// MicroStoppageThreshold is the maximum duration in seconds for a
	// stop to count as a micro stoppage.
	MicroStoppageThreshold float64 `json:"micro_stoppage_threshold" validate:"gte=0"`

	// SmallStopThreshold is the maximum duration in seconds for a stop
	// to count as a small stop.
	SmallStopThreshold float64 `json:"small_stop_threshold" validate:"gte=0"`

	// SpeedLossThreshold is the performance ratio below which speed loss
	// is flagged. Must be within [0,1].
	SpeedLossThreshold float64 `json:"speed_loss_threshold" validate:"gte=0,lte=1"`

	// HighScrapRateThreshold is the scrap ratio above which quality loss
	// is flagged. Must be within [0,1].
	HighScrapRateThreshold float64 `json:"high_scrap_rate_threshold" validate:"gte=0,lte=1"`

	// LowUtilizationThreshold is the utilization ratio below which the
	// machine is flagged as underutilized. Must be within [0,1].
	LowUtilizationThreshold float64 `json:"low_utilization_threshold" validate:"gte=0,lte=1"`
}

// DefaultThresholds returns the documented threshold defaults.
func DefaultThresholds() ThresholdConfiguration {
	return ThresholdConfiguration{
		MicroStoppageThreshold:  60,
		SmallStopThreshold:      300,
		SpeedLossThreshold:      0.85,
		HighScrapRateThreshold:  0.05,
		LowUtilizationThreshold: 0.60,
	}
}

// EconomicParameters enables the optional economic analysis.
type EconomicParameters struct {
	// ContributionMarginPerUnit is the margin per good unit.
	ContributionMarginPerUnit float64 `json:"contribution_margin_per_unit" validate:"gte=0"`

	// HourlyOperatingCost is the machine-hour cost.
	HourlyOperatingCost float64 `json:"hourly_operating_cost" validate:"gte=0"`

	// Currency is the ISO 4217 currency code.
	Currency string `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// Input is the aggregate root submitted to the compute boundary.
// It is freely mutable before submission and treated as immutable once
// a calculation has been issued against it.
type Input struct {
	// Window is the analysis time span.
	Window AnalysisWindow `json:"window"`

	// Machine identifies the machine under analysis.
	Machine MachineContext `json:"machine"`

	// TimeModel partitions the planned production time.
	TimeModel TimeModel `json:"time_model"`

	// Production holds the unit counts.
	Production ProductionSummary `json:"production"`

	// CycleTime holds the per-unit cycle times.
	CycleTime CycleTimeModel `json:"cycle_time"`

	// Downtimes is the ordered list of recorded stoppages.
	Downtimes []DowntimeRecord `json:"downtimes,omitempty"`

	// Thresholds are the categorization knobs.
	Thresholds ThresholdConfiguration `json:"thresholds"`
}

// Clone returns a deep copy of the input so a submitted snapshot cannot
// be mutated through the session afterwards.
func (in *Input) Clone() *Input {
	if in == nil {
		return nil
	}
	out := *in
	out.TimeModel.Allocations = make([]TimeAllocation, len(in.TimeModel.Allocations))
	copy(out.TimeModel.Allocations, in.TimeModel.Allocations)
	for i, a := range out.TimeModel.Allocations {
		if a.Reason != nil {
			r := *a.Reason
			r.Path = append([]string(nil), a.Reason.Path...)
			out.TimeModel.Allocations[i].Reason = &r
		}
	}
	if in.TimeModel.AllTime != nil {
		at := *in.TimeModel.AllTime
		out.TimeModel.AllTime = &at
	}
	if in.CycleTime.AverageCycleTime != nil {
		avg := *in.CycleTime.AverageCycleTime
		out.CycleTime.AverageCycleTime = &avg
	}
	out.Downtimes = make([]DowntimeRecord, len(in.Downtimes))
	copy(out.Downtimes, in.Downtimes)
	for i, d := range out.Downtimes {
		out.Downtimes[i].Reason.Path = append([]string(nil), d.Reason.Path...)
		if d.Timestamp != nil {
			ts := *d.Timestamp
			out.Downtimes[i].Timestamp = &ts
		}
	}
	return &out
}
