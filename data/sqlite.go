package data

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/optback/market"
	"github.com/rustyeddy/optback/strategy"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS underlying_prices (
	symbol TEXT NOT NULL,
	time DATETIME NOT NULL,
	price REAL,
	vix REAL
);

CREATE TABLE IF NOT EXISTS option_prices (
	symbol TEXT NOT NULL,
	type TEXT NOT NULL,
	strike REAL NOT NULL,
	expiry DATE NOT NULL,
	time DATETIME NOT NULL,
	open REAL, high REAL, low REAL,
	close REAL,
	volume REAL, open_interest REAL
);

CREATE INDEX IF NOT EXISTS idx_underlying ON underlying_prices(symbol, time);
CREATE INDEX IF NOT EXISTS idx_option ON option_prices(symbol, type, strike, expiry, time);
`

// Store is a SQLite-backed price store serving both provider interfaces.
// The import command fills it; the backtest only reads.
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// FetchUnderlying returns the raw rows for a symbol, uncleaned.
func (s *Store) FetchUnderlying(ctx context.Context, symbol string) ([]market.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, price, vix FROM underlying_prices WHERE symbol = ?`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Row
	for rows.Next() {
		var t time.Time
		var price, vix sql.NullFloat64
		if err := rows.Scan(&t, &price, &vix); err != nil {
			return nil, err
		}
		row := market.Row{Time: t, Price: orNaN(price)}
		if vix.Valid {
			row.Extra = map[string]float64{"VIX": vix.Float64}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("data: no underlying rows for %q", symbol)
	}
	return out, nil
}

// FetchContract returns the raw close-price rows for one contract, or
// ErrContractNotFound.
func (s *Store) FetchContract(ctx context.Context, symbol string, optType strategy.OptionType, strike float64, expiry time.Time) ([]market.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, close FROM option_prices
		WHERE symbol = ? AND type = ? AND strike = ? AND expiry = ?`,
		symbol, string(optType), strike, expiry.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Row
	for rows.Next() {
		var t time.Time
		var closePx sql.NullFloat64
		if err := rows.Scan(&t, &closePx); err != nil {
			return nil, err
		}
		out = append(out, market.Row{Time: t, Price: orNaN(closePx)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("data: %s %s %.0f %s: %w",
			symbol, optType, strike, expiry.Format("2006-01-02"), ErrContractNotFound)
	}
	return out, nil
}

// PutUnderlying appends raw underlying rows for a symbol.
func (s *Store) PutUnderlying(symbol string, rows []market.Row) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO underlying_prices (symbol, time, price, vix) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		var vix interface{}
		if v, ok := r.Extra["VIX"]; ok {
			vix = v
		}
		if _, err := stmt.Exec(symbol, r.Time, nullNaN(r.Price), vix); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ContractRow is one raw option candle as it appears in data drops. The
// backtest consumes only Close.
type ContractRow struct {
	Time         time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	OpenInterest float64
}

// PutContract appends raw candles for one contract key.
func (s *Store) PutContract(symbol string, optType strategy.OptionType, strike float64, expiry time.Time, rows []ContractRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO option_prices
		(symbol, type, strike, expiry, time, open, high, low, close, volume, open_interest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.Exec(symbol, string(optType), strike, expiry.Format("2006-01-02"),
			r.Time, nullNaN(r.Open), nullNaN(r.High), nullNaN(r.Low),
			nullNaN(r.Close), nullNaN(r.Volume), nullNaN(r.OpenInterest))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nullNaN(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
