package storage

// sqlite.go — histórico de runs de backtest.
//
// Dos tablas: `runs` con una fila por run (todas las métricas del informe) y
// `closed_positions` con el detalle de cierres. Los valores monetarios se
// guardan como TEXT decimal para no perder precisión; el redondeo es cosa
// del renderizado, no del almacenamiento.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/copybot/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    ran_at          DATETIME NOT NULL,
    start_date      TEXT NOT NULL,
    end_date        TEXT NOT NULL,
    total_trades    INTEGER NOT NULL DEFAULT 0,
    winning_trades  INTEGER NOT NULL DEFAULT 0,
    losing_trades   INTEGER NOT NULL DEFAULT 0,
    win_rate        TEXT NOT NULL,
    total_pnl       TEXT NOT NULL,
    roi             TEXT NOT NULL,
    avg_win         TEXT NOT NULL,
    avg_loss        TEXT NOT NULL,
    profit_factor   TEXT NOT NULL,
    max_drawdown    TEXT NOT NULL,
    sharpe_ratio    TEXT NOT NULL,
    initial_balance TEXT NOT NULL,
    final_balance   TEXT NOT NULL,
    total_fees      TEXT NOT NULL,
    total_slippage  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS closed_positions (
    id          TEXT PRIMARY KEY,
    run_id      TEXT NOT NULL REFERENCES runs(id),
    market_id   TEXT NOT NULL,
    side        TEXT NOT NULL,
    entry_price TEXT NOT NULL,
    exit_price  TEXT NOT NULL,
    size        TEXT NOT NULL,
    pnl         TEXT NOT NULL,
    opened_at   DATETIME NOT NULL,
    closed_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_ran_at ON runs(ran_at DESC);
CREATE INDEX IF NOT EXISTS idx_closed_run  ON closed_positions(run_id);
`

// SQLiteStore implementa ports.ResultStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica el
// schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveRun persiste el run completo en una transacción.
func (s *SQLiteStore) SaveRun(ctx context.Context, run domain.BacktestRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	r := run.Results
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(id, ran_at, start_date, end_date, total_trades, winning_trades,
			 losing_trades, win_rate, total_pnl, roi, avg_win, avg_loss,
			 profit_factor, max_drawdown, sharpe_ratio, initial_balance,
			 final_balance, total_fees, total_slippage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.RanAt.UTC(),
		run.StartDate.Format("2006-01-02"),
		run.EndDate.Format("2006-01-02"),
		r.TotalTrades,
		r.WinningTrades,
		r.LosingTrades,
		r.WinRate.String(),
		r.TotalPnL.String(),
		r.ROI.String(),
		r.AvgWin.String(),
		r.AvgLoss.String(),
		r.ProfitFactor.String(),
		r.MaxDrawdown.String(),
		r.SharpeRatio.String(),
		r.InitialBalance.String(),
		r.FinalBalance.String(),
		r.TotalFees.String(),
		r.TotalSlippage.String(),
	); err != nil {
		return fmt.Errorf("storage.SaveRun: insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO closed_positions
			(id, run_id, market_id, side, entry_price, exit_price, size, pnl,
			 opened_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare: %w", err)
	}
	defer stmt.Close()

	for _, cp := range run.Closed {
		if _, err := stmt.ExecContext(ctx,
			cp.Position.ID,
			run.ID,
			cp.Position.MarketID,
			string(cp.Position.Side),
			cp.Position.EntryPrice.String(),
			cp.ExitPrice.String(),
			cp.Position.Size.String(),
			cp.PnL.String(),
			cp.Position.OpenedAt.UTC(),
			cp.ClosedAt.UTC(),
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert position %s: %w", cp.Position.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// GetRuns devuelve los últimos runs, el más reciente primero, sin detalle de
// posiciones.
func (s *SQLiteStore) GetRuns(ctx context.Context, limit int) ([]domain.BacktestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ran_at, start_date, end_date, total_trades, winning_trades,
		       losing_trades, win_rate, total_pnl, roi, avg_win, avg_loss,
		       profit_factor, max_drawdown, sharpe_ratio, initial_balance,
		       final_balance, total_fees, total_slippage
		FROM runs
		ORDER BY ran_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.BacktestRun
	for rows.Next() {
		var run domain.BacktestRun
		var ranAt, startDate, endDate string
		dec := decScanner{}

		if err := rows.Scan(
			&run.ID,
			&ranAt,
			&startDate,
			&endDate,
			&run.Results.TotalTrades,
			&run.Results.WinningTrades,
			&run.Results.LosingTrades,
			dec.dst(&run.Results.WinRate),
			dec.dst(&run.Results.TotalPnL),
			dec.dst(&run.Results.ROI),
			dec.dst(&run.Results.AvgWin),
			dec.dst(&run.Results.AvgLoss),
			dec.dst(&run.Results.ProfitFactor),
			dec.dst(&run.Results.MaxDrawdown),
			dec.dst(&run.Results.SharpeRatio),
			dec.dst(&run.Results.InitialBalance),
			dec.dst(&run.Results.FinalBalance),
			dec.dst(&run.Results.TotalFees),
			dec.dst(&run.Results.TotalSlippage),
		); err != nil {
			return nil, fmt.Errorf("storage.GetRuns: scan row: %w", err)
		}
		if err := dec.err(); err != nil {
			return nil, fmt.Errorf("storage.GetRuns: parse decimals: %w", err)
		}

		run.RanAt = parseStoredTime(ranAt)
		run.StartDate, _ = time.ParseInLocation("2006-01-02", startDate, time.UTC)
		run.EndDate, _ = time.ParseInLocation("2006-01-02", endDate, time.UTC)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetClosedPositions devuelve el detalle de cierres de un run, en orden de
// cierre.
func (s *SQLiteStore) GetClosedPositions(ctx context.Context, runID string) ([]domain.ClosedPosition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, market_id, side, entry_price, exit_price, size, pnl,
		       opened_at, closed_at
		FROM closed_positions
		WHERE run_id = ?
		ORDER BY closed_at, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetClosedPositions: query: %w", err)
	}
	defer rows.Close()

	var closed []domain.ClosedPosition
	for rows.Next() {
		var cp domain.ClosedPosition
		var side, openedAt, closedAt string
		dec := decScanner{}

		if err := rows.Scan(
			&cp.Position.ID,
			&cp.Position.MarketID,
			&side,
			dec.dst(&cp.Position.EntryPrice),
			dec.dst(&cp.ExitPrice),
			dec.dst(&cp.Position.Size),
			dec.dst(&cp.PnL),
			&openedAt,
			&closedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.GetClosedPositions: scan row: %w", err)
		}
		if err := dec.err(); err != nil {
			return nil, fmt.Errorf("storage.GetClosedPositions: parse decimals: %w", err)
		}

		cp.Position.Side = domain.Side(side)
		cp.Position.OpenedAt = parseStoredTime(openedAt)
		cp.ClosedAt = parseStoredTime(closedAt)
		closed = append(closed, cp)
	}

	return closed, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// decScanner acumula destinos decimal para un Scan y recoge el primer error
// de parseo, evitando repetir el NewFromString en cada columna.
type decScanner struct {
	targets []*decTarget
}

type decTarget struct {
	raw string
	dst *decimal.Decimal
}

func (ds *decScanner) dst(d *decimal.Decimal) any {
	t := &decTarget{dst: d}
	ds.targets = append(ds.targets, t)
	return &t.raw
}

func (ds *decScanner) err() error {
	for _, t := range ds.targets {
		v, err := decimal.NewFromString(t.raw)
		if err != nil {
			return fmt.Errorf("decimal %q: %w", t.raw, err)
		}
		*t.dst = v
	}
	return nil
}

func parseStoredTime(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
