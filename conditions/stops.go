package conditions

import (
	"github.com/rustyeddy/optback/market"
)

// TakeProfit triggers on a favorable move of the underlying from its entry
// price: percentage ((cur-entry)/entry >= Pct) or absolute
// (cur >= entry + Abs). Pct wins when both are set. Without an open
// position (nil context) it is false.
type TakeProfit struct {
	Pct *float64
	Abs *float64
}

func (c TakeProfit) Evaluate(cur market.Observation, _ *market.Series, ctx *Context) bool {
	if ctx == nil || ctx.EntryUnderlying == 0 {
		return false
	}
	entry := ctx.EntryUnderlying
	if c.Pct != nil {
		return (cur.Price-entry)/entry >= *c.Pct
	}
	if c.Abs != nil {
		return cur.Price >= entry+*c.Abs
	}
	return false
}

// TrailingStop triggers when the underlying falls Pct below its running
// maximum since entry. The maximum lives on the Context (seeded with the
// entry price on first evaluation), so each trade starts tracking afresh.
type TrailingStop struct {
	Pct float64
}

func (c TrailingStop) Evaluate(cur market.Observation, _ *market.Series, ctx *Context) bool {
	if ctx == nil {
		return false
	}
	if ctx.RunningMax == 0 {
		ctx.RunningMax = ctx.EntryUnderlying
		if ctx.RunningMax == 0 {
			ctx.RunningMax = cur.Price
		}
	} else if cur.Price > ctx.RunningMax {
		ctx.RunningMax = cur.Price
	}
	if ctx.RunningMax == 0 {
		return false
	}
	return (cur.Price-ctx.RunningMax)/ctx.RunningMax <= -c.Pct
}

// StopLoss is the composite stop: up to four independently configured
// thresholds, any one of which closes the position. Nil thresholds are
// skipped entirely.
//
//   - AccountPct: marked loss exceeds this fraction of current capital
//   - StrategyPct: underlying moved adversely by this fraction of its entry
//     price, direction from the legs' majority vote
//   - UnderlyingMovePct: same comparison as StrategyPct with its own level
//   - AbsoluteLoss: marked loss exceeds this fixed amount
type StopLoss struct {
	AccountPct        *float64
	StrategyPct       *float64
	UnderlyingMovePct *float64
	AbsoluteLoss      *float64
}

func (c StopLoss) Evaluate(cur market.Observation, _ *market.Series, ctx *Context) bool {
	if ctx == nil {
		return false
	}

	entry := ctx.EntryUnderlying
	if entry != 0 {
		adverse := (entry - cur.Price) / entry
		if !ctx.longBias() {
			adverse = (cur.Price - entry) / entry
		}
		if c.StrategyPct != nil && adverse >= *c.StrategyPct {
			return true
		}
		if c.UnderlyingMovePct != nil && adverse >= *c.UnderlyingMovePct {
			return true
		}
	}

	if c.AbsoluteLoss != nil || c.AccountPct != nil {
		profit := ctx.MarkedProfit(cur.Time)
		if c.AbsoluteLoss != nil && profit <= -*c.AbsoluteLoss {
			return true
		}
		if c.AccountPct != nil && profit <= -(*c.AccountPct*ctx.CurrentCapital) {
			return true
		}
	}

	return false
}
