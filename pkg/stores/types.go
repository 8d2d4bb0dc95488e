package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/plantpulse/plantpulse/pkg/oee"
)

// AnalysisRecord is one persisted calculation: the submitted input, the
// full result, and the headline metrics denormalized for querying.
type AnalysisRecord struct {
	ID           string    `json:"id"`
	MachineID    string    `json:"machine_id"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	Input        string    `json:"input"`  // JSON blob
	Result       string    `json:"result"` // JSON blob
	OEE          float64   `json:"oee"`
	Availability float64   `json:"availability"`
	Performance  float64   `json:"performance"`
	Quality      float64   `json:"quality"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewAnalysisRecord builds a record from a calculated input/result pair.
func NewAnalysisRecord(in *oee.Input, res *oee.Result) (*AnalysisRecord, error) {
	inJSON, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input: %w", err)
	}
	resJSON, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &AnalysisRecord{
		ID:           uuid.New().String(),
		MachineID:    in.Machine.MachineID,
		WindowStart:  in.Window.Start,
		WindowEnd:    in.Window.End,
		Input:        string(inJSON),
		Result:       string(resJSON),
		OEE:          res.CoreMetrics.OEE.Value,
		Availability: res.CoreMetrics.Availability.Value,
		Performance:  res.CoreMetrics.Performance.Value,
		Quality:      res.CoreMetrics.Quality.Value,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// DecodeInput unmarshals the stored input blob.
func (r *AnalysisRecord) DecodeInput() (*oee.Input, error) {
	var in oee.Input
	if err := json.Unmarshal([]byte(r.Input), &in); err != nil {
		return nil, fmt.Errorf("failed to decode stored input: %w", err)
	}
	return &in, nil
}

// DecodeResult unmarshals the stored result blob.
func (r *AnalysisRecord) DecodeResult() (*oee.Result, error) {
	var res oee.Result
	if err := json.Unmarshal([]byte(r.Result), &res); err != nil {
		return nil, fmt.Errorf("failed to decode stored result: %w", err)
	}
	return &res, nil
}

// FindingRecord is one persisted advisory finding attached to an analysis.
type FindingRecord struct {
	ID         int64     `json:"id"`
	AnalysisID string    `json:"analysis_id"`
	Policy     string    `json:"policy"`
	Severity   string    `json:"severity"`
	Message    string    `json:"message"`
	DetectedAt time.Time `json:"detected_at"`
}

// TrendPoint is one point of an OEE time series for a machine.
type TrendPoint struct {
	RecordID     string    `json:"record_id"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	OEE          float64   `json:"oee"`
	Availability float64   `json:"availability"`
	Performance  float64   `json:"performance"`
	Quality      float64   `json:"quality"`
}

// ListFilter narrows a history listing.
type ListFilter struct {
	// MachineID restricts the listing to one machine when non-empty.
	MachineID string

	// Limit caps the number of records; zero means a default of 50.
	Limit int

	// Offset skips records for pagination.
	Offset int
}

// Store is the persistence layer for calculation history.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Analysis operations
	SaveAnalysis(ctx context.Context, rec *AnalysisRecord) error
	GetAnalysis(ctx context.Context, id string) (*AnalysisRecord, error)
	ListAnalyses(ctx context.Context, filter ListFilter) ([]*AnalysisRecord, error)
	LatestAnalysis(ctx context.Context, machineID string) (*AnalysisRecord, error)
	DeleteAnalysis(ctx context.Context, id string) error
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Finding operations
	SaveFindings(ctx context.Context, analysisID string, findings []*FindingRecord) error
	ListFindings(ctx context.Context, analysisID string) ([]*FindingRecord, error)

	// Trend reporting
	OEETrend(ctx context.Context, machineID string, limit int) ([]*TrendPoint, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
