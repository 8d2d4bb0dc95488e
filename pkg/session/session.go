package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/plantpulse/plantpulse/pkg/compute"
	"github.com/plantpulse/plantpulse/pkg/oee"
	"github.com/plantpulse/plantpulse/pkg/validation"
)

// Calculator is the compute boundary as the session consumes it.
// *compute.Client satisfies it; tests inject fakes.
type Calculator interface {
	CalculateFull(ctx context.Context, req *compute.CalculateFullRequest) (*compute.CalculateFullResponse, error)
	Leverage(ctx context.Context, req *compute.LeverageRequest) (*compute.LeverageResponse, error)
	AggregateSystem(ctx context.Context, req *compute.AggregateRequest) (*compute.AggregateResponse, error)
	CompareMethods(ctx context.Context, req *compute.CompareMethodsRequest) (*compute.CompareMethodsResponse, error)
}

// Session owns one analysis: the current input, the calculation
// toggles, and the lifecycle state machine. It is the single writer of
// its own state; a mutex guards against accidental cross-goroutine use.
//
// Every Calculate and Reset bumps an epoch counter. A response whose
// epoch no longer matches the session's is discarded, so a stale
// in-flight response can never clobber a newer one (last-write-wins).
type Session struct {
	mu sync.Mutex

	id     string
	calc   Calculator
	logger zerolog.Logger

	input  *oee.Input
	config Config

	state            State
	epoch            uint64
	dirty            bool
	lastCalculatedAt *time.Time
}

// New creates an idle session over the given compute boundary.
func New(calc Calculator, logger zerolog.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:     id,
		calc:   calc,
		logger: logger.With().Str("component", "oee-session").Str("session_id", id).Logger(),
		state:  State{Phase: PhaseIdle},
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// SetInput replaces the session input and marks the session dirty.
// Legal in any state; it does not transition the calculation state.
func (s *Session) SetInput(in *oee.Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = in.Clone()
	s.dirty = true
}

// UpdateInput edits the current input in place and marks the session
// dirty. No-op when no input is set.
func (s *Session) UpdateInput(edit func(*oee.Input)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.input == nil {
		return
	}
	edit(s.input)
	s.dirty = true
}

// Input returns a copy of the current input, or nil.
func (s *Session) Input() *oee.Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input.Clone()
}

// SetEconomicParams sets the economic parameters and marks the session dirty.
func (s *Session) SetEconomicParams(p *oee.EconomicParameters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.Economic = p
	s.dirty = true
}

// SetIncludeSensitivity toggles the sensitivity analysis.
func (s *Session) SetIncludeSensitivity(include bool, variationPercent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.IncludeSensitivity = include
	s.config.SensitivityVariation = variationPercent
	s.dirty = true
}

// SetIncludeTemporalScrap toggles the temporal scrap analysis.
func (s *Session) SetIncludeTemporalScrap(include bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.IncludeTemporalScrap = include
	s.dirty = true
}

// SetIncludeLeverage toggles the leverage analysis.
func (s *Session) SetIncludeLeverage(include bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.IncludeLeverage = include
	s.dirty = true
}

// State returns the current lifecycle snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dirty reports whether the input or config changed since the last
// completed calculation.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// LastCalculatedAt returns when the last calculation completed, or nil.
func (s *Session) LastCalculatedAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCalculatedAt
}

// Validate runs the advisory validation layer against the current
// input. Purely local; it never blocks a subsequent Calculate.
func (s *Session) Validate() validation.Result {
	s.mu.Lock()
	in := s.input
	s.mu.Unlock()
	return validation.Check(in)
}

// Reset returns the session to idle, clearing input, config, result
// state, the dirty flag and the completion timestamp. It cannot cancel
// an in-flight network call, but bumping the epoch guarantees a late
// response is discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.input = nil
	s.config = Config{}
	s.state = State{Phase: PhaseIdle}
	s.dirty = false
	s.lastCalculatedAt = nil
	s.logger.Debug().Msg("Session reset")
}

// Calculate submits the current input to the compute boundary.
//
// The contract: no-op without input; one round-trip covering core
// metrics, sensitivity and temporal scrap; then, when configured, a
// second independent leverage round-trip whose failure is swallowed.
// On success the state becomes Succeeded, the dirty flag clears and the
// completion timestamp is recorded. On failure of the first call the
// state becomes Failed and the input is retained so the caller can
// correct and resubmit.
func (s *Session) Calculate(ctx context.Context) error {
	s.mu.Lock()
	if s.input == nil {
		s.mu.Unlock()
		return nil
	}
	s.epoch++
	myEpoch := s.epoch
	input := s.input.Clone()
	cfg := s.config
	s.state = State{Phase: PhaseLoading}
	s.mu.Unlock()

	s.logger.Info().
		Str("machine_id", input.Machine.MachineID).
		Bool("sensitivity", cfg.IncludeSensitivity).
		Bool("temporal_scrap", cfg.IncludeTemporalScrap).
		Bool("leverage", cfg.IncludeLeverage).
		Msg("Calculation started")

	full, err := s.calc.CalculateFull(ctx, &compute.CalculateFullRequest{
		Input:                input,
		EconomicParameters:   cfg.Economic,
		IncludeSensitivity:   cfg.IncludeSensitivity,
		SensitivityVariation: cfg.SensitivityVariation,
		IncludeTemporalScrap: cfg.IncludeTemporalScrap,
	})
	if err != nil {
		aerr := oee.Normalize(err)
		s.resolve(myEpoch, State{Phase: PhaseFailed, Err: aerr}, false)
		s.logger.Warn().Err(err).Str("code", aerr.Code).Msg("Calculation failed")
		return aerr
	}

	next := State{
		Phase:         PhaseSucceeded,
		Result:        full.Result,
		Sensitivity:   full.Sensitivity,
		TemporalScrap: full.TemporalScrap,
	}

	// Sequenced after the core call for simplicity, not correctness:
	// leverage depends on nothing from the first response.
	if cfg.IncludeLeverage {
		lev, lerr := s.calc.Leverage(ctx, &compute.LeverageRequest{Input: input})
		if lerr != nil {
			s.logger.Warn().Err(lerr).Msg("Leverage analysis failed; continuing without it")
		} else {
			next.Leverage = &LeverageOutcome{
				Impacts:     lev.LeverageImpacts,
				BaselineOEE: lev.BaselineOEE,
			}
		}
	}

	if s.resolve(myEpoch, next, true) {
		s.logger.Info().Msg("Calculation completed")
	}
	return nil
}

// resolve applies a terminal state if this invocation's epoch is still
// current; stale responses are dropped. Returns whether it applied.
func (s *Session) resolve(epoch uint64, next State, success bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		s.logger.Debug().
			Uint64("response_epoch", epoch).
			Uint64("session_epoch", s.epoch).
			Msg("Discarding stale calculation response")
		return false
	}
	s.state = next
	if success {
		now := time.Now()
		s.dirty = false
		s.lastCalculatedAt = &now
	}
	return true
}

// AggregateSystem combines per-machine results into one system figure.
// Independent of the session state machine.
func (s *Session) AggregateSystem(ctx context.Context, machines []oee.MachineResult, method oee.AggregationMethod) (*oee.SystemAnalysis, error) {
	resp, err := s.calc.AggregateSystem(ctx, &compute.AggregateRequest{
		Machines:          machines,
		AggregationMethod: method,
	})
	if err != nil {
		return nil, oee.Normalize(err)
	}
	return resp.Analysis, nil
}

// CompareMethods runs all aggregation methods and returns the
// comparisons with the service's recommendation.
func (s *Session) CompareMethods(ctx context.Context, machines []oee.MachineResult) ([]oee.MethodComparison, oee.AggregationMethod, error) {
	resp, err := s.calc.CompareMethods(ctx, &compute.CompareMethodsRequest{Machines: machines})
	if err != nil {
		return nil, "", oee.Normalize(err)
	}
	return resp.Comparisons, resp.RecommendedMethod, nil
}
