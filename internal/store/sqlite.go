package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/intersim/internal/simulation"
)

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 20

// timeLayout is fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRunStore implements RunStore using SQLite.
type SQLiteRunStore struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

var _ RunStore = (*SQLiteRunStore)(nil)
var _ simulation.Recorder = (*SQLiteRunStore)(nil)

// NewSQLiteRunStore creates a run store rooted at projectRoot.
// The database lives at .intersim/intersim.db.
func NewSQLiteRunStore(projectRoot string) (*SQLiteRunStore, error) {
	dir := LocalPath(projectRoot)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", DirName, err)
	}

	dbPath := filepath.Join(dir, "intersim.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string { return s.dbPath }

// RecordRun stores a finished run and its vehicles in one transaction.
// Recording the same run ID twice replaces the earlier row.
func (s *SQLiteRunStore) RecordRun(ctx context.Context, r simulation.Result) error {
	if r.RunID == "" {
		return fmt.Errorf("run has no ID")
	}
	rec := NewRunRecord(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, rec.RunID); err != nil {
		return fmt.Errorf("failed to replace run: %w", err)
	}

	var errText sql.NullString
	if rec.Error != "" {
		errText = sql.NullString{String: rec.Error, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, name, outcome, started_at, elapsed_ms, timeout_ms,
			check_interval_ms, shared, vehicles, departed, signals, controllers_stopped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Name, rec.Outcome, rec.StartedAt.UTC().Format(timeLayout),
		rec.Elapsed.Milliseconds(), rec.Timeout.Milliseconds(), rec.CheckInterval.Milliseconds(),
		boolToInt(rec.Shared), rec.Vehicles, rec.Departed, rec.Signals,
		boolToInt(rec.ControllersStopped), errText)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, v := range r.Vehicles {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_vehicles (run_id, seq, origin, destination, state, departed)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.RunID, i, v.Move.From.String(), v.Move.To.String(), v.State.String(), boolToInt(v.Departed))
		if err != nil {
			return fmt.Errorf("failed to insert vehicle %d: %w", v.ID, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, name, outcome, started_at, elapsed_ms, timeout_ms, check_interval_ms,
			shared, vehicles, departed, signals, controllers_stopped, error
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run and its vehicles in arrival order.
func (s *SQLiteRunStore) GetRun(ctx context.Context, runID string) (*RunRecord, []VehicleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, name, outcome, started_at, elapsed_ms, timeout_ms, check_interval_ms,
			shared, vehicles, departed, signals, controllers_stopped, error
		FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, origin, destination, state, departed
		FROM run_vehicles WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []VehicleRecord
	for rows.Next() {
		var v VehicleRecord
		var departed int
		if err := rows.Scan(&v.Seq, &v.From, &v.To, &v.State, &departed); err != nil {
			return nil, nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		v.Departed = departed != 0
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate vehicles: %w", err)
	}
	return &rec, vehicles, nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunRecord, error) {
	var (
		rec                              RunRecord
		started                          string
		elapsedMS, timeoutMS, intervalMS int64
		shared, stopped                  int
		errText                          sql.NullString
	)
	err := sc.Scan(&rec.RunID, &rec.Name, &rec.Outcome, &started, &elapsedMS, &timeoutMS, &intervalMS,
		&shared, &rec.Vehicles, &rec.Departed, &rec.Signals, &stopped, &errText)
	if err == sql.ErrNoRows {
		return rec, err
	}
	if err != nil {
		return rec, fmt.Errorf("failed to scan run: %w", err)
	}
	rec.StartedAt, err = time.Parse(timeLayout, started)
	if err != nil {
		return rec, fmt.Errorf("failed to parse started_at %q: %w", started, err)
	}
	rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	rec.Timeout = time.Duration(timeoutMS) * time.Millisecond
	rec.CheckInterval = time.Duration(intervalMS) * time.Millisecond
	rec.Shared = shared != 0
	rec.ControllersStopped = stopped != 0
	rec.Error = errText.String
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
