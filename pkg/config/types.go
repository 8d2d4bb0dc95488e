package config

import (
	"time"

	"github.com/plantpulse/plantpulse/pkg/oee"
)

// ComputeSettings configures the compute service client.
type ComputeSettings struct {
	// BaseURL is the compute service base URL.
	BaseURL string `json:"base_url" validate:"required,url"`

	// TimeoutSeconds bounds each compute request. Zero means the
	// client default.
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty" validate:"gte=0"`

	// MaxRetries is the number of attempts for transport failures.
	// Zero means no retry.
	MaxRetries int `json:"max_retries,omitempty" validate:"gte=0,lte=10"`
}

// StoreSettings configures the local analysis history store.
type StoreSettings struct {
	// Path is the SQLite database file path. Empty disables history.
	Path string `json:"path,omitempty"`

	// KeepDays prunes records older than this many days. Zero keeps
	// everything.
	KeepDays int `json:"keep_days,omitempty" validate:"gte=0"`
}

// PolicySettings configures the plausibility policy engine.
type PolicySettings struct {
	// Enabled indicates if plausibility checks run after calculations.
	Enabled bool `json:"enabled"`

	// Paths lists additional Rego policy file paths.
	Paths []string `json:"paths,omitempty"`
}

// Settings is the client configuration section of an analysis document.
type Settings struct {
	// Compute configures the compute service client.
	Compute ComputeSettings `json:"compute"`

	// Store configures the analysis history store.
	Store StoreSettings `json:"store,omitempty"`

	// Policy configures the plausibility policy engine.
	Policy PolicySettings `json:"policy,omitempty"`
}

// DefaultSettings returns the documented settings defaults.
func DefaultSettings() Settings {
	return Settings{
		Compute: ComputeSettings{
			BaseURL:        "http://localhost:8750",
			TimeoutSeconds: 30,
			MaxRetries:     3,
		},
	}
}

// ParsedAnalysis is the result of parsing one or more analysis documents.
type ParsedAnalysis struct {
	// Settings is the merged client configuration.
	Settings Settings `json:"settings"`

	// Inputs are the analysis inputs, one per machine block.
	Inputs []*oee.Input `json:"inputs"`

	// SourceFiles are the CUE files that were parsed.
	SourceFiles []string `json:"source_files"`

	// ParsedAt is when the documents were parsed.
	ParsedAt time.Time `json:"parsed_at"`

	// Errors lists any parse or validation errors.
	Errors []ValidationError `json:"errors,omitempty"`
}

// InputFor returns the input for the given machine ID, or nil.
func (pa *ParsedAnalysis) InputFor(machineID string) *oee.Input {
	for _, in := range pa.Inputs {
		if in.Machine.MachineID == machineID {
			return in
		}
	}
	return nil
}

// ValidationError represents a parse error with location information.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the CUE path to the error (e.g., "machines.press-04.window").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`

	// Severity is the error severity (error, warning, info).
	Severity string `json:"severity" validate:"required,oneof=error warning info"`
}

// AnalysisSource represents a source of CUE analysis configuration.
type AnalysisSource struct {
	// Type is the source type (file, directory, inline).
	Type string `json:"type" validate:"required,oneof=file directory inline"`

	// Path is the file or directory path.
	Path string `json:"path,omitempty"`

	// Content is the inline CUE content.
	Content string `json:"content,omitempty"`
}

// StarlarkResult represents the result of a derive script execution.
type StarlarkResult struct {
	// Output is the output data from the script.
	Output map[string]interface{} `json:"output,omitempty"`

	// ExecutionTime is how long the script took to execute.
	ExecutionTime time.Duration `json:"execution_time"`

	// Error is any error that occurred.
	Error string `json:"error,omitempty"`
}
