package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"github.com/go-playground/validator/v10"

	"github.com/plantpulse/plantpulse/pkg/oee"
)

// Parser parses and validates CUE analysis documents.
//
// An analysis document has two top-level sections: "settings" holds the
// client configuration, and "machines" maps machine IDs to analysis
// inputs. Each machine block may carry a "derive" Starlark script that
// fills in missing inputs as inferred values.
type Parser struct {
	ctx               *cue.Context
	schemaRegistry    *SchemaRegistry
	starlarkEvaluator *StarlarkEvaluator
	validator         *validator.Validate
}

// NewParser creates a new analysis document parser.
func NewParser() *Parser {
	return &Parser{
		ctx:               cuecontext.New(),
		schemaRegistry:    NewSchemaRegistry(),
		starlarkEvaluator: NewStarlarkEvaluator(30 * time.Second),
		validator:         validator.New(),
	}
}

// Parse parses CUE analysis documents from the given sources.
func (p *Parser) Parse(ctx context.Context, sources []string) (*ParsedAnalysis, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources provided")
	}

	var cueValue cue.Value
	var sourceFiles []string
	var parseErrors []ValidationError

	// Determine if sources are files or directories
	for _, source := range sources {
		info, err := os.Stat(source)
		if err != nil {
			return nil, fmt.Errorf("failed to stat source %s: %w", source, err)
		}

		if info.IsDir() {
			// Load directory as CUE package
			val, files, errs := p.loadDirectory(source)
			if len(errs) > 0 {
				parseErrors = append(parseErrors, errs...)
			}
			if val.Exists() {
				if cueValue.Exists() {
					cueValue = cueValue.Unify(val)
				} else {
					cueValue = val
				}
			}
			sourceFiles = append(sourceFiles, files...)
		} else {
			// Load single file
			val, errs := p.loadFile(source)
			if len(errs) > 0 {
				parseErrors = append(parseErrors, errs...)
			}
			if val.Exists() {
				if cueValue.Exists() {
					cueValue = cueValue.Unify(val)
				} else {
					cueValue = val
				}
			}
			sourceFiles = append(sourceFiles, source)
		}
	}

	// Check for parse errors
	if len(parseErrors) > 0 {
		return &ParsedAnalysis{
			Settings:    DefaultSettings(),
			SourceFiles: sourceFiles,
			ParsedAt:    time.Now(),
			Errors:      parseErrors,
		}, nil
	}

	// Validate the unified value
	if err := cueValue.Err(); err != nil {
		parseErrors = append(parseErrors, p.convertCUEErrors(err)...)
		return &ParsedAnalysis{
			Settings:    DefaultSettings(),
			SourceFiles: sourceFiles,
			ParsedAt:    time.Now(),
			Errors:      parseErrors,
		}, nil
	}

	// Extract the analysis
	parsed, err := p.extractAnalysis(ctx, cueValue, sourceFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to extract analysis: %w", err)
	}

	return parsed, nil
}

// ParseInline parses inline CUE content.
func (p *Parser) ParseInline(ctx context.Context, content string) (*ParsedAnalysis, error) {
	val := p.ctx.CompileString(content)
	if err := val.Err(); err != nil {
		return &ParsedAnalysis{
			Settings:    DefaultSettings(),
			SourceFiles: []string{"inline"},
			ParsedAt:    time.Now(),
			Errors:      p.convertCUEErrors(err),
		}, nil
	}

	return p.extractAnalysis(ctx, val, []string{"inline"})
}

// loadDirectory loads a directory as a CUE package.
func (p *Parser) loadDirectory(dir string) (cue.Value, []string, []ValidationError) {
	// Load the package
	buildInstances := load.Instances([]string{dir}, nil)
	if len(buildInstances) == 0 {
		return cue.Value{}, nil, []ValidationError{{
			File:     dir,
			Message:  "no CUE files found",
			Severity: "error",
		}}
	}

	inst := buildInstances[0]
	if inst.Err != nil {
		return cue.Value{}, nil, p.convertCUEErrors(inst.Err)
	}

	val := p.ctx.BuildInstance(inst)
	if err := val.Err(); err != nil {
		return cue.Value{}, nil, p.convertCUEErrors(err)
	}

	// Get list of files
	var files []string
	for _, file := range inst.Files {
		if file.Filename != "" {
			files = append(files, file.Filename)
		}
	}

	return val, files, nil
}

// loadFile loads a single CUE file.
func (p *Parser) loadFile(path string) (cue.Value, []ValidationError) {
	content, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, []ValidationError{{
			File:     path,
			Message:  fmt.Sprintf("failed to read file: %v", err),
			Severity: "error",
		}}
	}

	val := p.ctx.CompileString(string(content), cue.Filename(path))
	if err := val.Err(); err != nil {
		return cue.Value{}, p.convertCUEErrors(err)
	}

	return val, nil
}

// extractAnalysis extracts settings and machine inputs from a CUE value.
func (p *Parser) extractAnalysis(ctx context.Context, val cue.Value, sourceFiles []string) (*ParsedAnalysis, error) {
	parsed := &ParsedAnalysis{
		Settings:    DefaultSettings(),
		SourceFiles: sourceFiles,
		ParsedAt:    time.Now(),
	}

	// Extract settings
	settingsVal := val.LookupPath(cue.ParsePath("settings"))
	if settingsVal.Exists() {
		var settings Settings
		if err := decodeValue(settingsVal, &settings); err != nil {
			parsed.Errors = append(parsed.Errors, ValidationError{
				Path:     "settings",
				Message:  fmt.Sprintf("failed to decode settings: %v", err),
				Severity: "error",
			})
		} else {
			mergeSettings(&parsed.Settings, settings)
			if err := p.validator.Struct(parsed.Settings); err != nil {
				parsed.Errors = append(parsed.Errors, ValidationError{
					Path:     "settings",
					Message:  err.Error(),
					Severity: "error",
				})
			}
		}
	}

	// Extract machine inputs
	machinesVal := val.LookupPath(cue.ParsePath("machines"))
	if machinesVal.Exists() {
		if machinesVal.Kind() != cue.StructKind {
			parsed.Errors = append(parsed.Errors, ValidationError{
				Path:     "machines",
				Message:  "machines must be a struct keyed by machine ID",
				Severity: "error",
			})
			return parsed, nil
		}

		iter, err := machinesVal.Fields(cue.All())
		if err != nil {
			parsed.Errors = append(parsed.Errors, ValidationError{
				Path:     "machines",
				Message:  fmt.Sprintf("failed to iterate machines: %v", err),
				Severity: "error",
			})
			return parsed, nil
		}
		for iter.Next() {
			machineID := strings.Trim(iter.Selector().String(), `"`)
			input, err := p.extractInput(ctx, machineID, iter.Value())
			if err != nil {
				parsed.Errors = append(parsed.Errors, ValidationError{
					Path:     fmt.Sprintf("machines.%s", machineID),
					Message:  err.Error(),
					Severity: "error",
				})
				continue
			}
			parsed.Inputs = append(parsed.Inputs, input)
		}
	}

	return parsed, nil
}

// extractInput extracts one machine's analysis input from a CUE value.
func (p *Parser) extractInput(ctx context.Context, machineID string, val cue.Value) (*oee.Input, error) {
	var input oee.Input
	if err := decodeValue(val, &input); err != nil {
		return nil, fmt.Errorf("failed to decode machine block: %w", err)
	}

	// The map key doubles as the machine ID unless the block overrides it.
	if input.Machine.MachineID == "" {
		input.Machine.MachineID = machineID
	}

	// Unset thresholds get the documented defaults.
	if (input.Thresholds == oee.ThresholdConfiguration{}) {
		input.Thresholds = oee.DefaultThresholds()
	}

	// Run the derive script, if any, and fill gaps as inferred values.
	deriveVal := val.LookupPath(cue.ParsePath("derive"))
	if deriveVal.Exists() {
		script, err := deriveVal.String()
		if err != nil {
			return nil, fmt.Errorf("derive must be a string: %w", err)
		}
		if err := p.applyDerivations(ctx, &input, val, script); err != nil {
			return nil, err
		}
	}

	// Validate using struct tags
	if err := p.validator.Struct(&input); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &input, nil
}

// applyDerivations runs a machine block's derive script and fills unset
// inputs with the script's outputs, tagged as inferred. Values already
// set in the block always win over derived ones.
func (p *Parser) applyDerivations(ctx context.Context, input *oee.Input, val cue.Value, script string) error {
	// The script sees the raw machine block as its input environment.
	var raw map[string]interface{}
	if err := decodeValue(val, &raw); err != nil {
		return fmt.Errorf("failed to prepare derive input: %w", err)
	}
	delete(raw, "derive")

	result, err := p.starlarkEvaluator.Evaluate(ctx, script, raw)
	if err != nil {
		return fmt.Errorf("derive script failed: %w", err)
	}

	if v, ok := asFloat(result.Output["planned_production_time"]); ok &&
		input.TimeModel.PlannedProductionTime.Value() == 0 {
		input.TimeModel.PlannedProductionTime = oee.Inferred(oee.Seconds(v))
	}
	if v, ok := asFloat(result.Output["all_time"]); ok && input.TimeModel.AllTime == nil {
		at := oee.Inferred(oee.Seconds(v))
		input.TimeModel.AllTime = &at
	}
	if v, ok := asFloat(result.Output["ideal_cycle_time"]); ok &&
		input.CycleTime.IdealCycleTime.Value() == 0 {
		input.CycleTime.IdealCycleTime = oee.Inferred(oee.Seconds(v))
	}
	if v, ok := asInt(result.Output["total_units"]); ok &&
		input.Production.TotalUnits.Value() == 0 {
		input.Production.TotalUnits = oee.Inferred(v)
	}
	if v, ok := asInt(result.Output["good_units"]); ok &&
		input.Production.GoodUnits.Value() == 0 {
		input.Production.GoodUnits = oee.Inferred(v)
	}

	return nil
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// mergeSettings overlays non-zero document settings onto the defaults.
func mergeSettings(base *Settings, doc Settings) {
	if doc.Compute.BaseURL != "" {
		base.Compute.BaseURL = doc.Compute.BaseURL
	}
	if doc.Compute.TimeoutSeconds != 0 {
		base.Compute.TimeoutSeconds = doc.Compute.TimeoutSeconds
	}
	if doc.Compute.MaxRetries != 0 {
		base.Compute.MaxRetries = doc.Compute.MaxRetries
	}
	if doc.Store.Path != "" {
		base.Store.Path = doc.Store.Path
	}
	if doc.Store.KeepDays != 0 {
		base.Store.KeepDays = doc.Store.KeepDays
	}
	if doc.Policy.Enabled {
		base.Policy.Enabled = true
	}
	if len(doc.Policy.Paths) > 0 {
		base.Policy.Paths = append(base.Policy.Paths, doc.Policy.Paths...)
	}
}

// decodeValue round-trips a CUE value through JSON so custom
// unmarshalers (input provenance, float-second durations) apply.
func decodeValue(val cue.Value, out interface{}) error {
	b, err := val.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// convertCUEErrors converts CUE errors to ValidationError slice.
func (p *Parser) convertCUEErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	// Handle CUE error types
	errs := errors.Errors(err)
	for _, e := range errs {
		pos := errors.Positions(e)
		var file string
		var line, column int

		if len(pos) > 0 {
			file = pos[0].Filename()
			line = pos[0].Line()
			column = pos[0].Column()
		}

		validationErrors = append(validationErrors, ValidationError{
			File:     file,
			Line:     line,
			Column:   column,
			Message:  errors.Details(e, nil),
			Severity: "error",
		})
	}

	return validationErrors
}

// ValidateWithSchema validates a value against a named built-in schema.
func (p *Parser) ValidateWithSchema(ctx context.Context, data interface{}, schemaName string) error {
	return p.schemaRegistry.ValidateAgainstSchema(ctx, schemaName, data)
}

// GetSchemaRegistry returns the schema registry.
func (p *Parser) GetSchemaRegistry() *SchemaRegistry {
	return p.schemaRegistry
}

// ExportJSON exports a CUE value to JSON.
func (p *Parser) ExportJSON(val cue.Value) ([]byte, error) {
	var data interface{}
	if err := val.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}

	return json.MarshalIndent(data, "", "  ")
}

// LoadFromDirectory loads all CUE files from a directory.
func (p *Parser) LoadFromDirectory(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && strings.HasSuffix(path, ".cue") {
			files = append(files, path)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return files, nil
}
