package config

import (
	"context"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	ctx := cuecontext.New()
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	// Register built-in schemas
	sr.registerBuiltInSchemas()

	return sr
}

// registerBuiltInSchemas registers all built-in schemas.
func (sr *SchemaRegistry) registerBuiltInSchemas() {
	sr.RegisterSchema("input_value", builtinInputValueSchema)
	sr.RegisterSchema("window", builtinWindowSchema)
	sr.RegisterSchema("time_model", builtinTimeModelSchema)
	sr.RegisterSchema("production", builtinProductionSchema)
	sr.RegisterSchema("thresholds", builtinThresholdsSchema)
	sr.RegisterSchema("settings", builtinSettingsSchema)
}

// RegisterSchema registers a CUE schema with the given name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	// A schema file holds a single definition; store that value so
	// unification actually constrains the data.
	iter, err := val.Fields(cue.Definitions(true))
	if err == nil {
		for iter.Next() {
			if iter.Selector().IsDefinition() {
				val = iter.Value()
				break
			}
		}
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName string, data interface{}) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	// Convert data to CUE value
	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	// Unify with schema (validates)
	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	return names
}

// Built-in schema definitions

const builtinInputValueSchema = `
// Provenance-tagged scalar input
#InputValue: {
	// value is the wrapped scalar
	value: number

	// source records how the value entered the analysis
	source: *"explicit" | "inferred" | "default"
}
`

const builtinWindowSchema = `
// Analysis window bounds
#Window: {
	// start is the inclusive window start (RFC 3339)
	start: string & =~"^[0-9]{4}-[0-9]{2}-[0-9]{2}T"

	// end is the exclusive window end (RFC 3339)
	end: string & =~"^[0-9]{4}-[0-9]{2}-[0-9]{2}T"
}
`

const builtinTimeModelSchema = `
// Time model partitioning the planned production time
#TimeModel: {
	// planned_production_time is the scheduled production time in seconds
	planned_production_time: {value: number & >=0, source?: "explicit" | "inferred" | "default"}

	// allocations split the planned time across machine states
	allocations?: [...{
		state:    "running" | "stopped" | "setup" | "starved" | "blocked" | "maintenance" | "unknown"
		duration: {value: number & >=0, source?: "explicit" | "inferred" | "default"}
		reason?: {
			path:       [...string] & [_, ...]
			is_failure?: bool
		}
		notes?: string
	}]

	// all_time is the total calendar time in seconds, enabling TEEP
	all_time?: {value: number & >=0, source?: "explicit" | "inferred" | "default"}
}
`

const builtinProductionSchema = `
// Production unit counts for the window
#Production: {
	total_units:    {value: int & >=0, source?: "explicit" | "inferred" | "default"}
	good_units:     {value: int & >=0, source?: "explicit" | "inferred" | "default"}
	scrap_units:    {value: int & >=0, source?: "explicit" | "inferred" | "default"}
	reworked_units: {value: int & >=0, source?: "explicit" | "inferred" | "default"}
}
`

const builtinThresholdsSchema = `
// Categorization thresholds
#Thresholds: {
	// micro_stoppage_threshold is the micro stop cutoff in seconds
	micro_stoppage_threshold: number & >=0

	// small_stop_threshold is the small stop cutoff in seconds
	small_stop_threshold: number & >=0

	// speed_loss_threshold is the performance ratio cutoff
	speed_loss_threshold: number & >=0 & <=1

	// high_scrap_rate_threshold is the scrap ratio cutoff
	high_scrap_rate_threshold: number & >=0 & <=1

	// low_utilization_threshold is the utilization ratio cutoff
	low_utilization_threshold: number & >=0 & <=1
}
`

const builtinSettingsSchema = `
// Client settings section
#Settings: {
	compute: {
		// base_url is the compute service base URL
		base_url: string & =~"^https?://"

		// timeout_seconds bounds each request
		timeout_seconds?: number & >0

		// max_retries is the attempt count for transport failures
		max_retries?: int & >=0 & <=10
	}

	store?: {
		path?:      string
		keep_days?: int & >=0
	}

	policy?: {
		enabled: bool
		paths?: [...string]
	}
}
`

// ValidateSettings validates a settings section against the settings schema.
func (sr *SchemaRegistry) ValidateSettings(ctx context.Context, settings Settings) error {
	return sr.ValidateAgainstSchema(ctx, "settings", settings)
}

// ValidateThresholds validates threshold configuration against the thresholds schema.
func (sr *SchemaRegistry) ValidateThresholds(ctx context.Context, data interface{}) error {
	return sr.ValidateAgainstSchema(ctx, "thresholds", data)
}
