package compute

import (
	"github.com/plantpulse/plantpulse/pkg/oee"
)

// CalculateRequest is the body for POST /calculate.
type CalculateRequest struct {
	// Input is the analysis input.
	Input *oee.Input `json:"input"`
}

// CalculateResponse is the body returned by /calculate and
// /calculate-with-economics.
type CalculateResponse struct {
	// Result is the calculated analysis result.
	Result *oee.Result `json:"result"`
}

// CalculateWithEconomicsRequest is the body for POST /calculate-with-economics.
type CalculateWithEconomicsRequest struct {
	// Input is the analysis input.
	Input *oee.Input `json:"input"`

	// EconomicParameters enable the economic analysis.
	EconomicParameters *oee.EconomicParameters `json:"economic_parameters"`
}

// CalculateFullRequest is the body for POST /calculate-full. One call
// covers core metrics plus the optional sensitivity and temporal-scrap
// analyses so shared intermediates are computed once.
type CalculateFullRequest struct {
	// Input is the analysis input.
	Input *oee.Input `json:"input"`

	// EconomicParameters enable the economic analysis, when present.
	EconomicParameters *oee.EconomicParameters `json:"economic_parameters,omitempty"`

	// IncludeSensitivity requests the sensitivity analysis.
	IncludeSensitivity bool `json:"include_sensitivity,omitempty"`

	// SensitivityVariation is the perturbation percentage. Zero means
	// the service default (10%).
	SensitivityVariation float64 `json:"sensitivity_variation,omitempty"`

	// IncludeTemporalScrap requests the temporal scrap analysis.
	IncludeTemporalScrap bool `json:"include_temporal_scrap,omitempty"`
}

// CalculateFullResponse is the body returned by /calculate-full.
type CalculateFullResponse struct {
	// Result is the calculated analysis result.
	Result *oee.Result `json:"result"`

	// Sensitivity is present when requested and computable.
	Sensitivity *oee.SensitivityAnalysis `json:"sensitivity_analysis,omitempty"`

	// TemporalScrap is present when requested and computable.
	TemporalScrap *oee.TemporalScrapAnalysis `json:"temporal_scrap_analysis,omitempty"`
}

// SensitivityRequest is the body for POST /sensitivity.
type SensitivityRequest struct {
	// Input is the analysis input.
	Input *oee.Input `json:"input"`

	// VariationPercent is the perturbation applied to each parameter.
	VariationPercent float64 `json:"variation_percent"`
}

// SensitivityResponse is the body returned by /sensitivity.
type SensitivityResponse struct {
	// Analysis is the per-parameter perturbation report.
	Analysis *oee.SensitivityAnalysis `json:"analysis"`
}

// LeverageRequest is the body for POST /leverage.
type LeverageRequest struct {
	// Input is the analysis input.
	Input *oee.Input `json:"input"`
}

// LeverageResponse is the body returned by /leverage.
type LeverageResponse struct {
	// LeverageImpacts ranks the loss categories by theoretical impact.
	LeverageImpacts []oee.LeverageImpact `json:"leverage_impacts"`

	// BaselineOEE is the OEE the impacts are measured against.
	BaselineOEE float64 `json:"baseline_oee"`
}

// AggregateRequest is the body for POST /system/aggregate.
type AggregateRequest struct {
	// Machines are the per-machine results to aggregate.
	Machines []oee.MachineResult `json:"machines"`

	// AggregationMethod selects the combination rule.
	AggregationMethod oee.AggregationMethod `json:"aggregation_method"`
}

// AggregateResponse is the body returned by /system/aggregate.
type AggregateResponse struct {
	// Analysis is the system-level aggregation.
	Analysis *oee.SystemAnalysis `json:"analysis"`
}

// CompareMethodsRequest is the body for POST /system/compare-methods.
type CompareMethodsRequest struct {
	// Machines are the per-machine results to aggregate.
	Machines []oee.MachineResult `json:"machines"`
}

// CompareMethodsResponse is the body returned by /system/compare-methods.
type CompareMethodsResponse struct {
	// Comparisons holds every method's system OEE.
	Comparisons []oee.MethodComparison `json:"comparisons"`

	// RecommendedMethod is the method the service suggests.
	RecommendedMethod oee.AggregationMethod `json:"recommended_method"`
}

// ErrorBody is the uniform error shape all endpoints return.
type ErrorBody struct {
	// Code is the stable error code.
	Code string `json:"code"`

	// MessageKey is the i18n key for the error message.
	MessageKey string `json:"message_key"`

	// Params are the message parameters.
	Params map[string]any `json:"params,omitempty"`
}
