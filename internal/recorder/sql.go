package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/afdelacruz/stock-finder/internal/model"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// SQLRecorder persists scan history to SQLite or Postgres.
type SQLRecorder struct {
	db     *sqlx.DB
	driver string
	mu     sync.Mutex
}

// runRow mirrors the scan_runs table.
type runRow struct {
	ID            int64          `db:"id"`
	RunID         string         `db:"run_id"`
	StartedAt     int64          `db:"started_at"`
	CompletedAt   sql.NullInt64  `db:"completed_at"`
	MinGainPct    float64        `db:"min_gain_pct"`
	LookbackYears int            `db:"lookback_years"`
	Universe      sql.NullString `db:"universe"`
	TickerCount   int            `db:"ticker_count"`
	ResultsCount  int            `db:"results_count"`
	Status        string         `db:"status"`
}

// resultRow mirrors the scan_results table.
type resultRow struct {
	ID           int64   `db:"id"`
	ScanRunID    int64   `db:"scan_run_id"`
	Ticker       string  `db:"ticker"`
	GainPct      float64 `db:"gain_pct"`
	LowPrice     float64 `db:"low_price"`
	LowDate      string  `db:"low_date"`
	HighPrice    float64 `db:"high_price"`
	HighDate     string  `db:"high_date"`
	CurrentPrice float64 `db:"current_price"`
	DaysToPeak   int     `db:"days_to_peak"`
	CreatedAt    int64   `db:"created_at"`
}

// Open connects to the database and runs migrations. For SQLite the dsn is
// a file path whose parent directory is created if needed.
func Open(driver, dsn string) (*SQLRecorder, error) {
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "" && dir != "." && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// WAL mode lets readers (results command, dashboards) run during a scan.
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
		db.SetMaxOpenConns(1)
	}

	r := &SQLRecorder{db: db, driver: driver}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("driver", driver).Msg("recorder opened")
	return r, nil
}

func (r *SQLRecorder) migrate() error {
	idCol, floatCol, intCol := "INTEGER PRIMARY KEY AUTOINCREMENT", "REAL", "INTEGER"
	if r.driver == DriverPostgres {
		idCol, floatCol, intCol = "BIGSERIAL PRIMARY KEY", "DOUBLE PRECISION", "BIGINT"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_runs (
			id             ` + idCol + `,
			run_id         TEXT NOT NULL UNIQUE,
			started_at     ` + intCol + ` NOT NULL,
			completed_at   ` + intCol + `,
			min_gain_pct   ` + floatCol + ` NOT NULL,
			lookback_years INTEGER NOT NULL,
			universe       TEXT,
			ticker_count   INTEGER NOT NULL DEFAULT 0,
			results_count  INTEGER NOT NULL DEFAULT 0,
			status         TEXT NOT NULL DEFAULT 'running'
		)`,
		`CREATE TABLE IF NOT EXISTS scan_results (
			id            ` + idCol + `,
			scan_run_id   ` + intCol + ` NOT NULL REFERENCES scan_runs(id),
			ticker        TEXT NOT NULL,
			gain_pct      ` + floatCol + ` NOT NULL,
			low_price     ` + floatCol + ` NOT NULL,
			low_date      TEXT NOT NULL,
			high_price    ` + floatCol + ` NOT NULL,
			high_date     TEXT NOT NULL,
			current_price ` + floatCol + ` NOT NULL,
			days_to_peak  INTEGER NOT NULL,
			created_at    ` + intCol + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_ticker ON scan_results(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_results_gain ON scan_results(gain_pct DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_results_scan_run ON scan_results(scan_run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// StartRun inserts a running scan and fills in run.ID, run.RunID and
// run.StartedAt when unset.
func (r *SQLRecorder) StartRun(ctx context.Context, run *ScanRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.RunID == uuid.Nil {
		run.RunID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = StatusRunning

	q := r.db.Rebind(`INSERT INTO scan_runs
		(run_id, started_at, min_gain_pct, lookback_years, universe, ticker_count, status)
		VALUES (?,?,?,?,?,?,?) RETURNING id`)
	err := r.db.GetContext(ctx, &run.ID, q,
		run.RunID.String(), run.StartedAt.Unix(), run.MinGainPct, run.LookbackYears,
		run.Universe, run.TickerCount, run.Status,
	)
	if err != nil {
		return fmt.Errorf("insert scan run: %w", err)
	}
	log.Info().Int64("scan_run_id", run.ID).Str("run_id", run.RunID.String()).Msg("started scan run")
	return nil
}

// AddResult stores one result and bumps the run's result count.
func (r *SQLRecorder) AddResult(ctx context.Context, runID int64, res model.ScanResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	row := resultRow{
		ScanRunID:    runID,
		Ticker:       res.Ticker,
		GainPct:      res.GainPct,
		LowPrice:     res.LowPrice,
		LowDate:      res.LowDate.Format(model.DateLayout),
		HighPrice:    res.HighPrice,
		HighDate:     res.HighDate.Format(model.DateLayout),
		CurrentPrice: res.CurrentPrice,
		DaysToPeak:   res.DaysToPeak,
		CreatedAt:    time.Now().Unix(),
	}
	if _, err := tx.NamedExecContext(ctx, `INSERT INTO scan_results
		(scan_run_id, ticker, gain_pct, low_price, low_date, high_price, high_date, current_price, days_to_peak, created_at)
		VALUES (:scan_run_id, :ticker, :gain_pct, :low_price, :low_date, :high_price, :high_date, :current_price, :days_to_peak, :created_at)`,
		row); err != nil {
		return fmt.Errorf("insert scan result: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE scan_runs SET results_count = results_count + 1 WHERE id = ?`), runID); err != nil {
		return fmt.Errorf("update results count: %w", err)
	}
	return tx.Commit()
}

// CompleteRun stamps the completion time and final status.
func (r *SQLRecorder) CompleteRun(ctx context.Context, runID int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE scan_runs SET completed_at = ?, status = ? WHERE id = ?`),
		time.Now().Unix(), status, runID)
	if err != nil {
		return fmt.Errorf("complete scan run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("scan run %d not found", runID)
	}
	log.Info().Int64("scan_run_id", runID).Str("status", status).Msg("completed scan run")
	return nil
}

// ListResults returns results ordered by gain, largest first.
func (r *SQLRecorder) ListResults(ctx context.Context, q ResultQuery) ([]StoredResult, error) {
	query := `SELECT * FROM scan_results WHERE 1=1`
	var args []interface{}
	if q.RunID > 0 {
		query += ` AND scan_run_id = ?`
		args = append(args, q.RunID)
	}
	if q.MinGain > 0 {
		query += ` AND gain_pct >= ?`
		args = append(args, q.MinGain)
	}
	query += ` ORDER BY gain_pct DESC, id ASC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	var rows []resultRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query scan results: %w", err)
	}
	return toResults(rows), nil
}

// TopGainers returns the best result per ticker across all runs.
func (r *SQLRecorder) TopGainers(ctx context.Context, limit int) ([]StoredResult, error) {
	var rows []resultRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM scan_results ORDER BY gain_pct DESC, id ASC`); err != nil {
		return nil, fmt.Errorf("query top gainers: %w", err)
	}

	seen := make(map[string]struct{})
	var best []resultRow
	for _, row := range rows {
		if _, ok := seen[row.Ticker]; ok {
			continue
		}
		seen[row.Ticker] = struct{}{}
		best = append(best, row)
		if limit > 0 && len(best) == limit {
			break
		}
	}
	return toResults(best), nil
}

// ListRuns returns scan runs, most recent first.
func (r *SQLRecorder) ListRuns(ctx context.Context, limit int) ([]ScanRun, error) {
	query := `SELECT * FROM scan_runs ORDER BY started_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query scan runs: %w", err)
	}

	runs := make([]ScanRun, 0, len(rows))
	for _, row := range rows {
		run := ScanRun{
			ID:            row.ID,
			StartedAt:     time.Unix(row.StartedAt, 0),
			MinGainPct:    row.MinGainPct,
			LookbackYears: row.LookbackYears,
			Universe:      row.Universe.String,
			TickerCount:   row.TickerCount,
			ResultsCount:  row.ResultsCount,
			Status:        row.Status,
		}
		if id, err := uuid.Parse(row.RunID); err == nil {
			run.RunID = id
		}
		if row.CompletedAt.Valid {
			run.CompletedAt = time.Unix(row.CompletedAt.Int64, 0)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (r *SQLRecorder) Close() error {
	log.Info().Msg("closing recorder")
	return r.db.Close()
}

func toResults(rows []resultRow) []StoredResult {
	out := make([]StoredResult, 0, len(rows))
	for _, row := range rows {
		low, _ := time.Parse(model.DateLayout, row.LowDate)
		high, _ := time.Parse(model.DateLayout, row.HighDate)
		out = append(out, StoredResult{
			ID:        row.ID,
			ScanRunID: row.ScanRunID,
			CreatedAt: time.Unix(row.CreatedAt, 0),
			ScanResult: model.ScanResult{
				Ticker:       row.Ticker,
				GainPct:      row.GainPct,
				LowDate:      low,
				LowPrice:     row.LowPrice,
				HighDate:     high,
				HighPrice:    row.HighPrice,
				CurrentPrice: row.CurrentPrice,
				DaysToPeak:   row.DaysToPeak,
			},
		})
	}
	return out
}
