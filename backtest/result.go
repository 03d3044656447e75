package backtest

import (
	"time"

	"github.com/rustyeddy/optback/strategy"
)

// LegDetail is one leg's contribution to a closed trade. PnL is NaN when
// the leg had no usable contract price at entry or exit.
type LegDetail struct {
	Type       strategy.OptionType
	Action     strategy.Action
	Strike     float64
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
}

// ClosedTrade is an immutable record of one realized round trip.
// Incomplete marks trades where at least one leg could not be priced; its
// NaN contribution is excluded from Profit rather than poisoning it.
type ClosedTrade struct {
	ID              string
	EntryTime       time.Time
	ExitTime        time.Time
	EntryUnderlying float64
	ExitUnderlying  float64
	Profit          float64
	Incomplete      bool
	Legs            []LegDetail
}

// EquityPoint is one mark of account capital. The engine emits exactly one
// per underlying observation in the backtest window, whether or not a
// position is open; capital only moves on realized closes.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}

// Result is everything one run produces. OpenAtEnd reports a position that
// was still open when the data ran out; it is left unrealized and excluded
// from Trades.
type Result struct {
	Trades         []ClosedTrade
	Equity         []EquityPoint
	InitialCapital float64
	FinalCapital   float64
	OpenAtEnd      bool
}
