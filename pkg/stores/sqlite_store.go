package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction.
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction.
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction.
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// SaveAnalysis persists one calculation record.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, rec *AnalysisRecord) error {
	query := `
		INSERT INTO analyses (
			id, machine_id, window_start, window_end, input, result,
			oee, availability, performance, quality, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.MachineID,
		rec.WindowStart.UTC(),
		rec.WindowEnd.UTC(),
		rec.Input,
		rec.Result,
		rec.OEE,
		rec.Availability,
		rec.Performance,
		rec.Quality,
		rec.CreatedAt.UTC(),
	)

	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	return nil
}

// GetAnalysis retrieves an analysis record by ID.
func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*AnalysisRecord, error) {
	query := `
		SELECT id, machine_id, window_start, window_end, input, result,
		       oee, availability, performance, quality, created_at
		FROM analyses
		WHERE id = ?
	`

	rec := &AnalysisRecord{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.MachineID,
		&rec.WindowStart,
		&rec.WindowEnd,
		&rec.Input,
		&rec.Result,
		&rec.OEE,
		&rec.Availability,
		&rec.Performance,
		&rec.Quality,
		&rec.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("analysis not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	return rec, nil
}

// ListAnalyses lists analysis records, newest first.
func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter ListFilter) ([]*AnalysisRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, machine_id, window_start, window_end, input, result,
		       oee, availability, performance, quality, created_at
		FROM analyses
		WHERE (? = '' OR machine_id = ?)
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, filter.MachineID, filter.MachineID, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	records := []*AnalysisRecord{}
	for rows.Next() {
		rec := &AnalysisRecord{}
		err := rows.Scan(
			&rec.ID,
			&rec.MachineID,
			&rec.WindowStart,
			&rec.WindowEnd,
			&rec.Input,
			&rec.Result,
			&rec.OEE,
			&rec.Availability,
			&rec.Performance,
			&rec.Quality,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}

	return records, nil
}

// LatestAnalysis returns the newest record for a machine.
func (s *SQLiteStore) LatestAnalysis(ctx context.Context, machineID string) (*AnalysisRecord, error) {
	records, err := s.ListAnalyses(ctx, ListFilter{MachineID: machineID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no analyses recorded for machine: %s", machineID)
	}
	return records[0], nil
}

// DeleteAnalysis deletes an analysis record by ID.
func (s *SQLiteStore) DeleteAnalysis(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("analysis not found: %s", id)
	}

	return nil
}

// PruneBefore deletes all records created before the cutoff and returns
// how many were removed. Findings go with their analyses via cascade.
func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune analyses: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// SaveFindings persists findings for an analysis in one transaction.
func (s *SQLiteStore) SaveFindings(ctx context.Context, analysisID string, findings []*FindingRecord) error {
	if len(findings) == 0 {
		return nil
	}

	tx, err := s.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO findings (analysis_id, policy, severity, message, detected_at)
		VALUES (?, ?, ?, ?, ?)
	`

	for _, f := range findings {
		result, err := tx.ExecContext(ctx, query,
			analysisID,
			f.Policy,
			f.Severity,
			f.Message,
			f.DetectedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to save finding: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get finding ID: %w", err)
		}
		f.ID = id
		f.AnalysisID = analysisID
	}

	return tx.Commit()
}

// ListFindings retrieves the findings recorded for an analysis.
func (s *SQLiteStore) ListFindings(ctx context.Context, analysisID string) ([]*FindingRecord, error) {
	query := `
		SELECT id, analysis_id, policy, severity, message, detected_at
		FROM findings
		WHERE analysis_id = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}
	defer rows.Close()

	findings := []*FindingRecord{}
	for rows.Next() {
		f := &FindingRecord{}
		err := rows.Scan(
			&f.ID,
			&f.AnalysisID,
			&f.Policy,
			&f.Severity,
			&f.Message,
			&f.DetectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		findings = append(findings, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating findings: %w", err)
	}

	return findings, nil
}

// OEETrend returns the metric time series for one machine, oldest first,
// covering at most the last limit analyses.
func (s *SQLiteStore) OEETrend(ctx context.Context, machineID string, limit int) ([]*TrendPoint, error) {
	if limit <= 0 {
		limit = 30
	}

	// Take the newest N, then flip to chronological order.
	query := `
		SELECT id, window_start, window_end, oee, availability, performance, quality
		FROM (
			SELECT id, window_start, window_end, oee, availability, performance, quality, created_at
			FROM analyses
			WHERE machine_id = ?
			ORDER BY created_at DESC
			LIMIT ?
		)
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, machineID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trend: %w", err)
	}
	defer rows.Close()

	points := []*TrendPoint{}
	for rows.Next() {
		p := &TrendPoint{}
		err := rows.Scan(
			&p.RecordID,
			&p.WindowStart,
			&p.WindowEnd,
			&p.OEE,
			&p.Availability,
			&p.Performance,
			&p.Quality,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trend point: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trend points: %w", err)
	}

	return points, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
