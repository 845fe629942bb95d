package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"labwatch/internal/config"
)

// Store persists experiment results in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Row is one recorded evaluation.
type Row struct {
	ID               int64
	RunID            string
	ExperimentNumber int
	FileName         string
	Category         string
	Accepted         bool
	Summary          string
	StatsJSON        string
	ProcessorType    string
	CumulativeValue  int
	SpectrumBins     int
	RecordedAt       time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the results database under the state dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.ResultsPath())
}

// OpenPath opens the database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path is the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts row and returns its id.
func (s *Store) Record(ctx context.Context, row Row) (int64, error) {
	if row.RecordedAt.IsZero() {
		row.RecordedAt = time.Now().UTC()
	}
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx,
			`INSERT INTO experiment_results (
                run_id, experiment_number, file_name, category, accepted,
                summary_statistics, stats_json, processor_type, cumulative_value,
                spectrum_bins, recorded_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.RunID,
			row.ExperimentNumber,
			row.FileName,
			row.Category,
			boolToInt(row.Accepted),
			nullableString(row.Summary),
			nullableString(row.StatsJSON),
			nullableString(row.ProcessorType),
			row.CumulativeValue,
			row.SpectrumBins,
			row.RecordedAt.UTC().Format(time.RFC3339Nano),
		)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("insert result: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// ListOptions filters List.
type ListOptions struct {
	// Limit caps the number of rows; zero means no limit.
	Limit int
	// RunID restricts rows to one daemon run.
	RunID string
	// RejectedOnly returns only rejected files.
	RejectedOnly bool
}

// List returns the most recent rows, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Row, error) {
	query := `SELECT ` + rowColumns + ` FROM experiment_results`
	var (
		where []string
		args  []any
	)
	if opts.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, opts.RunID)
	}
	if opts.RejectedOnly {
		where = append(where, "accepted = 0")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Totals summarizes stored results.
type Totals struct {
	Total    int
	Accepted int
}

// Totals counts stored rows, optionally for one run.
func (s *Store) Totals(ctx context.Context, runID string) (Totals, error) {
	query := `SELECT COUNT(1), COALESCE(SUM(accepted), 0) FROM experiment_results`
	var args []any
	if runID != "" {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	var totals Totals
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&totals.Total, &totals.Accepted); err != nil {
		return Totals{}, fmt.Errorf("count results: %w", err)
	}
	return totals, nil
}

const rowColumns = "id, run_id, experiment_number, file_name, category, accepted, summary_statistics, stats_json, processor_type, cumulative_value, spectrum_bins, recorded_at"

func scanRow(scanner interface{ Scan(dest ...any) error }) (Row, error) {
	var (
		row         Row
		accepted    int64
		summary     sql.NullString
		statsJSON   sql.NullString
		processor   sql.NullString
		recordedRaw string
	)
	if err := scanner.Scan(
		&row.ID,
		&row.RunID,
		&row.ExperimentNumber,
		&row.FileName,
		&row.Category,
		&accepted,
		&summary,
		&statsJSON,
		&processor,
		&row.CumulativeValue,
		&row.SpectrumBins,
		&recordedRaw,
	); err != nil {
		return Row{}, fmt.Errorf("scan result: %w", err)
	}
	row.Accepted = accepted != 0
	row.Summary = summary.String
	row.StatsJSON = statsJSON.String
	row.ProcessorType = processor.String
	if ts, err := time.Parse(time.RFC3339Nano, recordedRaw); err == nil {
		row.RecordedAt = ts
	}
	return row, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
