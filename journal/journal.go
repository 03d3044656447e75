// Package journal records backtest output: closed trades (with per-leg
// detail) and the equity curve. CSV and SQLite implementations share the
// Journal interface.
package journal

import "time"

// LegRecord is one leg's slice of a recorded trade. PnL is NaN for a leg
// that could not be priced; stores keep that visible instead of zeroing it.
type LegRecord struct {
	Type       string
	Action     string
	Strike     float64
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
}

// TradeRecord is one realized trade.
type TradeRecord struct {
	TradeID         string
	EntryTime       time.Time
	ExitTime        time.Time
	EntryUnderlying float64
	ExitUnderlying  float64
	Profit          float64
	Incomplete      bool
	Legs            []LegRecord
}

// EquityRecord is one point of the capital trajectory.
type EquityRecord struct {
	Time   time.Time
	Equity float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquityRecord) error
	Close() error
}

// Nop discards everything. Useful when a run only needs the in-memory
// result.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error   { return nil }
func (Nop) RecordEquity(EquityRecord) error { return nil }
func (Nop) Close() error                    { return nil }
