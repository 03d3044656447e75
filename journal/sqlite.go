package journal

import (
	"database/sql"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/optback/internal/id"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	entry_time DATETIME NOT NULL,
	exit_time DATETIME NOT NULL,
	entry_underlying REAL NOT NULL,
	exit_underlying REAL NOT NULL,
	profit REAL NOT NULL,
	incomplete INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS trade_legs (
	trade_id TEXT NOT NULL,
	leg INTEGER NOT NULL,
	type TEXT NOT NULL,
	action TEXT NOT NULL,
	strike REAL NOT NULL,
	entry_price REAL,
	exit_price REAL,
	pnl REAL,
	PRIMARY KEY (trade_id, leg)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	equity REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id, exit_time);
CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, time);
`

// SQLite stores trades and equity keyed by a run ID generated per journal
// instance, so one database file can hold many backtest runs.
type SQLite struct {
	db    *sql.DB
	runID string
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db, runID: id.New()}, nil
}

// RunID identifies this journal's run within the database.
func (j *SQLite) RunID() string { return j.runID }

func (j *SQLite) RecordTrade(t TradeRecord) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO trades
		(trade_id, run_id, entry_time, exit_time, entry_underlying, exit_underlying, profit, incomplete)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, j.runID, t.EntryTime, t.ExitTime,
		t.EntryUnderlying, t.ExitUnderlying, t.Profit, t.Incomplete,
	)
	if err != nil {
		return err
	}

	for i, leg := range t.Legs {
		_, err = tx.Exec(`
			INSERT INTO trade_legs
			(trade_id, leg, type, action, strike, entry_price, exit_price, pnl)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.TradeID, i, leg.Type, leg.Action, leg.Strike,
			nullable(leg.EntryPrice), nullable(leg.ExitPrice), nullable(leg.PnL),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (j *SQLite) RecordEquity(e EquityRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (run_id, time, equity) VALUES (?, ?, ?)`,
		j.runID, e.Time, e.Equity,
	)
	return err
}

// GetTrade returns a single trade with its legs.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	var rec TradeRecord

	row := j.db.QueryRow(`
		SELECT trade_id, entry_time, exit_time, entry_underlying, exit_underlying, profit, incomplete
		FROM trades WHERE trade_id = ?`, tradeID)
	err := row.Scan(
		&rec.TradeID, &rec.EntryTime, &rec.ExitTime,
		&rec.EntryUnderlying, &rec.ExitUnderlying, &rec.Profit, &rec.Incomplete,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}

	legs, err := j.legsFor(tradeID)
	if err != nil {
		return TradeRecord{}, err
	}
	rec.Legs = legs
	return rec, nil
}

// ListTrades returns the run's trades ordered by exit time.
func (j *SQLite) ListTrades(runID string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, entry_time, exit_time, entry_underlying, exit_underlying, profit, incomplete
		FROM trades WHERE run_id = ? ORDER BY exit_time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID, &rec.EntryTime, &rec.ExitTime,
			&rec.EntryUnderlying, &rec.ExitUnderlying, &rec.Profit, &rec.Incomplete,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		legs, err := j.legsFor(out[i].TradeID)
		if err != nil {
			return nil, err
		}
		out[i].Legs = legs
	}
	return out, nil
}

// ListEquity returns the run's equity curve in time order.
func (j *SQLite) ListEquity(runID string) ([]EquityRecord, error) {
	rows, err := j.db.Query(`
		SELECT time, equity FROM equity WHERE run_id = ? ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityRecord
	for rows.Next() {
		var rec EquityRecord
		if err := rows.Scan(&rec.Time, &rec.Equity); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListRuns returns the distinct run IDs present in the database, newest
// first (ULIDs sort by creation time).
func (j *SQLite) ListRuns() ([]string, error) {
	rows, err := j.db.Query(`SELECT DISTINCT run_id FROM trades ORDER BY run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (j *SQLite) legsFor(tradeID string) ([]LegRecord, error) {
	rows, err := j.db.Query(`
		SELECT type, action, strike, entry_price, exit_price, pnl
		FROM trade_legs WHERE trade_id = ? ORDER BY leg ASC`, tradeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LegRecord
	for rows.Next() {
		var rec LegRecord
		var entry, exit, pnl sql.NullFloat64
		if err := rows.Scan(&rec.Type, &rec.Action, &rec.Strike, &entry, &exit, &pnl); err != nil {
			return nil, err
		}
		rec.EntryPrice = fromNullable(entry)
		rec.ExitPrice = fromNullable(exit)
		rec.PnL = fromNullable(pnl)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// nullable maps NaN to NULL so unpriced legs round-trip as "no value"
// instead of a driver error.
func nullable(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
