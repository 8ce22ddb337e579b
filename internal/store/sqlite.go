// Package store persists backtest runs, trades, and equity curves.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"momentum-backtester/internal/models"
)

// RunRecord is one completed backtest run.
type RunRecord struct {
	ID             int64     `json:"id"`
	Symbol         string    `json:"symbol"`
	StartedAt      time.Time `json:"started_at"`
	InitialCapital float64   `json:"initial_capital"`
	FinalEquity    float64   `json:"final_equity"`
	TotalReturn    float64   `json:"total_return"`
	TradeCount     int       `json:"trade_count"`
	WinRate        float64   `json:"win_rate"`
	AverageTrade   float64   `json:"average_trade"`
	MaxDrawdown    float64   `json:"max_drawdown"`
}

// RunFilter narrows GetRuns queries. Zero values are ignored.
type RunFilter struct {
	Symbol string
	Since  time.Time
	Limit  int
}

// SQLiteStore persists run history using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the run database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Runs table, one row per completed backtest
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		initial_capital REAL NOT NULL,
		final_equity REAL NOT NULL,
		total_return REAL NOT NULL,
		trade_count INTEGER NOT NULL,
		win_rate REAL NOT NULL,
		average_trade REAL NOT NULL,
		max_drawdown REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Trades table, closed trades belonging to a run
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		trade_id INTEGER NOT NULL,
		side TEXT NOT NULL,
		entry_time DATETIME NOT NULL,
		entry_price REAL NOT NULL,
		exit_time DATETIME NOT NULL,
		exit_price REAL NOT NULL,
		size REAL NOT NULL,
		pnl REAL NOT NULL,
		exit_reason TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	-- Equity curve samples, one per bar per run
	CREATE TABLE IF NOT EXISTS equity_points (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		equity REAL NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_symbol ON runs(symbol);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);
	CREATE INDEX IF NOT EXISTS idx_equity_run ON equity_points(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun persists a run record together with its trades and equity curve
// in one transaction, and returns the assigned run id.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *RunRecord, trades []models.Trade, curve []models.EquityPoint) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs (symbol, started_at, initial_capital, final_equity, total_return, trade_count, win_rate, average_trade, max_drawdown)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.Symbol, run.StartedAt, run.InitialCapital, run.FinalEquity, run.TotalReturn, run.TradeCount, run.WinRate, run.AverageTrade, run.MaxDrawdown)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	tradeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (run_id, trade_id, side, entry_time, entry_price, exit_time, exit_price, size, pnl, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare trade statement: %w", err)
	}
	defer tradeStmt.Close()

	for _, t := range trades {
		_, err := tradeStmt.ExecContext(ctx, runID, t.ID, string(t.Side), t.EntryTime, t.EntryPrice, t.ExitTime, t.ExitPrice, t.Size, t.PnL, string(t.ExitReason))
		if err != nil {
			return 0, fmt.Errorf("failed to insert trade: %w", err)
		}
	}

	equityStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO equity_points (run_id, timestamp, equity) VALUES (?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare equity statement: %w", err)
	}
	defer equityStmt.Close()

	for _, p := range curve {
		if _, err := equityStmt.ExecContext(ctx, runID, p.Timestamp, p.Equity); err != nil {
			return 0, fmt.Errorf("failed to insert equity point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	run.ID = runID
	return runID, nil
}

// GetRuns retrieves run records matching the filter, newest first.
func (s *SQLiteStore) GetRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	query := "SELECT id, symbol, started_at, initial_capital, final_equity, total_return, trade_count, win_rate, average_trade, max_drawdown FROM runs WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.Since.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, filter.Since)
	}

	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Symbol, &r.StartedAt, &r.InitialCapital, &r.FinalEquity, &r.TotalReturn, &r.TradeCount, &r.WinRate, &r.AverageTrade, &r.MaxDrawdown); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// GetRun retrieves one run record by id. Returns sql.ErrNoRows when the
// run does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, runID int64) (*RunRecord, error) {
	var r RunRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, started_at, initial_capital, final_equity, total_return, trade_count, win_rate, average_trade, max_drawdown
		FROM runs WHERE id = ?
	`, runID).Scan(&r.ID, &r.Symbol, &r.StartedAt, &r.InitialCapital, &r.FinalEquity, &r.TotalReturn, &r.TradeCount, &r.WinRate, &r.AverageTrade, &r.MaxDrawdown)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetTrades retrieves the trades of one run in entry order.
func (s *SQLiteStore) GetTrades(ctx context.Context, runID int64) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_id, side, entry_time, entry_price, exit_time, exit_price, size, pnl, exit_reason
		FROM trades WHERE run_id = ? ORDER BY trade_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var side, reason string
		if err := rows.Scan(&t.ID, &side, &t.EntryTime, &t.EntryPrice, &t.ExitTime, &t.ExitPrice, &t.Size, &t.PnL, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Side = models.Side(side)
		t.ExitReason = models.ExitReason(reason)
		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// GetEquityCurve retrieves the equity curve of one run in time order.
func (s *SQLiteStore) GetEquityCurve(ctx context.Context, runID int64) ([]models.EquityPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, equity FROM equity_points WHERE run_id = ? ORDER BY timestamp ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query equity curve: %w", err)
	}
	defer rows.Close()

	var curve []models.EquityPoint
	for rows.Next() {
		var p models.EquityPoint
		if err := rows.Scan(&p.Timestamp, &p.Equity); err != nil {
			return nil, fmt.Errorf("failed to scan equity point: %w", err)
		}
		curve = append(curve, p)
	}

	return curve, rows.Err()
}
