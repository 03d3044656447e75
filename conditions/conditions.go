// Package conditions implements the entry/exit rules a strategy is built
// from. The set of kinds is closed: each is a parameter struct evaluated
// through the single Condition interface, and the config layer is the only
// place instances are created from user input.
//
// All conditions fail closed: missing history, a missing context, or a
// missing data field evaluates to false rather than raising.
package conditions

import (
	"time"

	"github.com/rustyeddy/optback/market"
)

// Condition is one boolean rule. Entry rules are evaluated with a nil
// Context (no position exists yet); exit rules receive the Context built
// from the open trade.
type Condition interface {
	Evaluate(cur market.Observation, hist *market.Series, ctx *Context) bool
}

// LegView is the slice of leg state the stop-loss rules need: direction,
// lot count, and the per-leg pricing captured at entry.
type LegView struct {
	Buy  bool
	Lots int
}

// Context carries the open position's entry-time state into exit
// evaluation. It lives exactly as long as one trade.
//
// RunningMax is the trailing-stop high-water mark. It sits here, not on the
// TrailingStop condition value, so that a condition reused across trades
// can never leak a prior position's maximum: the engine builds a fresh
// Context per trade.
type Context struct {
	EntryTime       time.Time
	EntryUnderlying float64
	CurrentCapital  float64

	Legs           []LegView
	ContractSeries []*market.Series
	EntryPrices    []float64
	Multiplier     float64

	RunningMax float64
}

// MarkedProfit values the open position at t from each leg's contract
// series: signed (mark - entry) * multiplier * lots, positive direction for
// buys. Legs with no usable mark or entry price are skipped.
func (c *Context) MarkedProfit(t time.Time) float64 {
	total := 0.0
	for i, leg := range c.Legs {
		if i >= len(c.ContractSeries) || i >= len(c.EntryPrices) {
			break
		}
		s := c.ContractSeries[i]
		if s == nil {
			continue
		}
		mark, ok := s.NearestPrice(t)
		if !ok {
			continue
		}
		entry := c.EntryPrices[i]
		if entry != entry || mark != mark { // NaN
			continue
		}
		pl := (mark - entry) * c.Multiplier * float64(leg.Lots)
		if !leg.Buy {
			pl = -pl
		}
		total += pl
	}
	return total
}

// longBias is the direction vote: majority buy means long, ties long.
func (c *Context) longBias() bool {
	buys, sells := 0, 0
	for _, l := range c.Legs {
		if l.Buy {
			buys++
		} else {
			sells++
		}
	}
	return buys >= sells
}

// Direction orients threshold comparisons.
type Direction string

const (
	Above Direction = "above"
	Below Direction = "below"
)
