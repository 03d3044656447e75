package conditions

import (
	"github.com/rustyeddy/optback/market"
)

// MovingAverage compares the current price to the simple mean of the
// trailing Window observations. With fewer than Window points of history it
// evaluates to false.
type MovingAverage struct {
	Window    int
	Direction Direction
}

func (c MovingAverage) Evaluate(cur market.Observation, hist *market.Series, _ *Context) bool {
	if hist == nil || hist.Len() < c.Window || c.Window <= 0 {
		return false
	}
	obs := hist.Observations()
	sum := 0.0
	for _, o := range obs[len(obs)-c.Window:] {
		sum += o.Price
	}
	ma := sum / float64(c.Window)
	if c.Direction == Below {
		return cur.Price < ma
	}
	return cur.Price > ma
}

// Volatility compares an externally supplied per-tick field (e.g. "VIX")
// to a threshold. A tick without the field evaluates to false.
type Volatility struct {
	Field     string
	Threshold float64
	Direction Direction
}

func (c Volatility) Evaluate(cur market.Observation, _ *market.Series, _ *Context) bool {
	v, ok := cur.Value(c.Field)
	if !ok {
		return false
	}
	if c.Direction == Below {
		return v < c.Threshold
	}
	return v > c.Threshold
}
