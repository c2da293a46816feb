package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/formcourier/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "formcourier.db"

var (
	// ErrRunNotFound is returned when no stored run matches the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrEmptyRunID is returned when a run is looked up or deleted without an ID.
	ErrEmptyRunID = errors.New("run id is required")

	// ErrAmbiguousRunID is returned when an ID prefix matches more than one run.
	ErrAmbiguousRunID = errors.New("run id prefix matches more than one run")
)

// RunDB stores runs and their outcomes.
type RunDB struct {
	db *sql.DB

	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw&_pragma=foreign_keys(1)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- One row per batch invocation
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		engine TEXT NOT NULL,
		input_file TEXT NOT NULL,
		interrupted INTEGER NOT NULL DEFAULT 0,
		summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- One row per processed site, in input order
	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		detail TEXT,
		contact_url TEXT,
		filled_fields TEXT,
		started_at TEXT,
		duration_ms INTEGER,
		UNIQUE(run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_url ON outcomes(url);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores run and its outcomes in a single transaction.
// Saving a run with an existing ID replaces it.
func (rdb *RunDB) SaveRun(ctx context.Context, run *model.Run) (err error) {
	summary := make(map[string]int, len(model.AllStatuses))
	for status, count := range run.Summary() {
		summary[status.String()] = count
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM outcomes WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to replace run: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to replace run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, started_at, finished_at, engine, input_file, interrupted, summary)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.Engine,
		run.InputFile,
		run.Interrupted,
		string(summaryJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO outcomes (run_id, position, url, status, detail, contact_url, filled_fields, started_at, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for i, o := range run.Outcomes {
		fields, merr := json.Marshal(o.FilledFields)
		if merr != nil {
			err = fmt.Errorf("failed to serialize filled fields: %w", merr)
			return err
		}
		_, err = stmt.ExecContext(ctx,
			run.ID,
			i,
			o.URL,
			o.Status.String(),
			o.Detail,
			o.ContactURL,
			string(fields),
			formatTimestamp(o.StartedAt),
			o.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("failed to save outcome for %s: %w", o.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// RunMetadata contains summary information about a stored run.
// This is used for listing runs without loading every outcome.
type RunMetadata struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Engine      string
	InputFile   string
	Interrupted bool

	// Summary counts outcomes by status text.
	Summary map[string]int
}

// Total returns the number of outcomes in the run.
func (m RunMetadata) Total() int {
	var total int
	for _, n := range m.Summary {
		total += n
	}
	return total
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (rdb *RunDB) ListRuns(ctx context.Context, limit int) ([]RunMetadata, error) {
	query := `
	SELECT id, started_at, finished_at, engine, input_file, interrupted, summary
	FROM runs
	ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var started string
		var finished, summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &started, &finished, &meta.Engine, &meta.InputFile, &meta.Interrupted, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		meta.StartedAt = parseTimestamp(started)
		meta.FinishedAt = parseTimestamp(finished.String)

		meta.Summary = make(map[string]int)
		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.Summary); err != nil {
				meta.Summary = make(map[string]int)
			}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetRun loads a run and its outcomes. id may be a unique prefix of a run ID.
func (rdb *RunDB) GetRun(ctx context.Context, id string) (*model.Run, error) {
	fullID, err := rdb.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	run := &model.Run{ID: fullID}
	var started string
	var finished sql.NullString
	err = rdb.db.QueryRowContext(ctx, `
	SELECT started_at, finished_at, engine, input_file, interrupted
	FROM runs WHERE id = ?
	`, fullID).Scan(&started, &finished, &run.Engine, &run.InputFile, &run.Interrupted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.StartedAt = parseTimestamp(started)
	run.FinishedAt = parseTimestamp(finished.String)

	outcomes, err := rdb.outcomes(ctx, fullID)
	if err != nil {
		return nil, err
	}
	run.Outcomes = outcomes

	return run, nil
}

// resolveID expands a run ID prefix to the full ID.
// An empty prefix would match every run, so it is rejected.
func (rdb *RunDB) resolveID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", ErrEmptyRunID
	}

	rows, err := rdb.db.QueryContext(ctx, `SELECT id FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("failed to look up run: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to look up run: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		for _, id := range ids {
			if id == prefix {
				return id, nil
			}
		}
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRunID, prefix)
	}
}

// outcomes loads a run's outcomes in input order.
func (rdb *RunDB) outcomes(ctx context.Context, runID string) ([]model.Outcome, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT url, status, detail, contact_url, filled_fields, started_at, duration_ms
	FROM outcomes
	WHERE run_id = ?
	ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := make([]model.Outcome, 0)
	for rows.Next() {
		var o model.Outcome
		var status string
		var detail, contactURL, fields, started sql.NullString
		var durationMS sql.NullInt64

		if err := rows.Scan(&o.URL, &status, &detail, &contactURL, &fields, &started, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}

		// Unknown statuses are kept verbatim so that the log line still renders.
		o.Status = model.Status(status)
		o.Detail = detail.String
		o.ContactURL = contactURL.String
		o.StartedAt = parseTimestamp(started.String)
		o.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		if fields.Valid && fields.String != "" && fields.String != "null" {
			if err := json.Unmarshal([]byte(fields.String), &o.FilledFields); err != nil {
				o.FilledFields = nil
			}
		}

		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}

// DeleteRun removes a run and its outcomes.
func (rdb *RunDB) DeleteRun(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyRunID
	}
	if _, err := rdb.db.ExecContext(ctx, `DELETE FROM outcomes WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete outcomes: %w", err)
	}
	res, err := rdb.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// storedTimestampFormat has fixed-width fractions so that stored values sort
// chronologically as text.
const storedTimestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storedTimestampFormat)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
