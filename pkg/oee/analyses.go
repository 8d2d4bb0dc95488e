package oee

// ImpactLevel grades how strongly a parameter variation moves the OEE.
type ImpactLevel string

const (
	// ImpactHigh means the variation moved OEE substantially.
	ImpactHigh ImpactLevel = "high"

	// ImpactMedium means a moderate movement.
	ImpactMedium ImpactLevel = "medium"

	// ImpactLow means a negligible movement.
	ImpactLow ImpactLevel = "low"
)

// ParameterSensitivity reports the effect of perturbing one parameter.
type ParameterSensitivity struct {
	// ParameterKey identifies the perturbed parameter.
	ParameterKey string `json:"parameter_key"`

	// BaselineValue is the unperturbed parameter value.
	BaselineValue float64 `json:"baseline_value"`

	// VariedValue is the perturbed parameter value.
	VariedValue float64 `json:"varied_value"`

	// BaselineOEE is the OEE before perturbation.
	BaselineOEE float64 `json:"baseline_oee"`

	// VariedOEE is the OEE after perturbation.
	VariedOEE float64 `json:"varied_oee"`

	// OEEDelta is varied minus baseline OEE.
	OEEDelta float64 `json:"oee_delta"`

	// ImpactLevel grades the magnitude of the delta.
	ImpactLevel ImpactLevel `json:"impact_level"`

	// MetricChanges lists per-metric deltas caused by the perturbation.
	MetricChanges map[string]float64 `json:"metric_changes,omitempty"`
}

// SensitivityAnalysis is the full per-parameter perturbation report.
// The client orchestrates the request and surfaces it unmodified.
type SensitivityAnalysis struct {
	// VariationPercent is the perturbation applied to each parameter.
	VariationPercent float64 `json:"variation_percent"`

	// Parameters lists the per-parameter results.
	Parameters []ParameterSensitivity `json:"parameters"`

	// MostSensitiveKey names the parameter with the largest OEE delta.
	MostSensitiveKey string `json:"most_sensitive_key,omitempty"`

	// LeastSensitiveKey names the parameter with the smallest OEE delta.
	LeastSensitiveKey string `json:"least_sensitive_key,omitempty"`
}

// LeverageImpact is the theoretical impact of eliminating one loss
// category. It is framed strictly as "if eliminated", never prescriptive.
type LeverageImpact struct {
	// CategoryKey identifies the loss category.
	CategoryKey string `json:"category_key"`

	// OEEOpportunityPoints is the OEE points recoverable.
	OEEOpportunityPoints float64 `json:"oee_opportunity_points"`

	// ThroughputGainUnits is the additional units recoverable.
	ThroughputGainUnits float64 `json:"throughput_gain_units"`

	// SensitivityScore ranks the category among its peers.
	SensitivityScore float64 `json:"sensitivity_score"`
}

// TemporalScrapBucket is scrap counted within one slice of the window.
type TemporalScrapBucket struct {
	// OffsetSeconds is the bucket start relative to the window start.
	OffsetSeconds float64 `json:"offset_seconds"`

	// ScrapUnits is the scrap counted in this bucket.
	ScrapUnits int64 `json:"scrap_units"`

	// ScrapRate is scrap over total for this bucket.
	ScrapRate float64 `json:"scrap_rate"`
}

// TemporalScrapAnalysis distributes scrap over the analysis window.
type TemporalScrapAnalysis struct {
	// Buckets are the time-sliced scrap counts.
	Buckets []TemporalScrapBucket `json:"buckets"`

	// StartupScrapUnits is scrap attributed to the startup phase.
	StartupScrapUnits int64 `json:"startup_scrap_units"`

	// SteadyStateScrapRate is the scrap rate after startup.
	SteadyStateScrapRate float64 `json:"steady_state_scrap_rate"`
}

// AggregationMethod selects how per-machine OEEs combine into one
// system-level figure.
type AggregationMethod string

const (
	// AggSimpleAverage is the unweighted mean of machine OEEs.
	AggSimpleAverage AggregationMethod = "simple_average"

	// AggProductionWeighted weights each machine by units produced.
	AggProductionWeighted AggregationMethod = "production_weighted"

	// AggTimeWeighted weights each machine by planned time.
	AggTimeWeighted AggregationMethod = "time_weighted"

	// AggMinimum takes the lowest machine OEE (bottleneck view).
	AggMinimum AggregationMethod = "minimum"

	// AggMultiplicative multiplies machine OEEs (serial-line view).
	AggMultiplicative AggregationMethod = "multiplicative"
)

// AggregationMethods lists all known aggregation methods.
func AggregationMethods() []AggregationMethod {
	return []AggregationMethod{
		AggSimpleAverage, AggProductionWeighted, AggTimeWeighted,
		AggMinimum, AggMultiplicative,
	}
}

// Valid reports whether the method is one of the known variants.
func (m AggregationMethod) Valid() bool {
	for _, known := range AggregationMethods() {
		if m == known {
			return true
		}
	}
	return false
}

// MachineResult pairs a machine identifier with its calculated result
// for system aggregation.
type MachineResult struct {
	// MachineID identifies the machine.
	MachineID string `json:"machine_id"`

	// Result is the machine's calculated result.
	Result Result `json:"result"`
}

// MachineBreakdown is one machine's contribution to the system figure.
type MachineBreakdown struct {
	// MachineID identifies the machine.
	MachineID string `json:"machine_id"`

	// OEE is the machine's OEE.
	OEE float64 `json:"oee"`

	// Weight is the weight the aggregation gave this machine.
	Weight float64 `json:"weight"`

	// IsBottleneck marks the lowest-OEE machine(s).
	IsBottleneck bool `json:"is_bottleneck"`
}

// SystemAnalysis is the multi-machine aggregation result.
type SystemAnalysis struct {
	// Method is the aggregation method used.
	Method AggregationMethod `json:"method"`

	// SystemOEE is the aggregated system-level OEE.
	SystemOEE TrackedMetric `json:"system_oee"`

	// Bottlenecks lists the lowest-OEE machine IDs.
	Bottlenecks []string `json:"bottlenecks,omitempty"`

	// ThroughputImpact estimates the system throughput loss attributable
	// to the bottleneck, in units.
	ThroughputImpact float64 `json:"throughput_impact"`

	// Machines is the per-machine breakdown.
	Machines []MachineBreakdown `json:"machines"`
}

// MethodComparison is one method's result in a compare-methods call.
type MethodComparison struct {
	// Method is the aggregation method.
	Method AggregationMethod `json:"method"`

	// SystemOEE is the system OEE under this method.
	SystemOEE float64 `json:"system_oee"`

	// RationaleKey is the i18n key explaining when the method fits.
	RationaleKey string `json:"rationale_key,omitempty"`
}
