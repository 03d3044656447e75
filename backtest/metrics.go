package backtest

import "math"

// Metrics are the run summary. Every field is optional: nil means the
// metric is undefined for this run (no trades, degenerate variance, empty
// curve), which is distinct from zero.
type Metrics struct {
	WinRate     *float64
	Sharpe      *float64
	MaxDrawdown *float64
}

// Summary derives the performance metrics from the closed trades and the
// equity curve.
//
// WinRate counts trades with positive profit over all trades. Sharpe is
// sqrt(252) * mean/stdev of per-tick percentage changes of the equity curve
// (sample stdev; the first change is taken as zero). The curve is not
// resampled to daily. MaxDrawdown is the deepest peak-to-trough fraction.
func (r *Result) Summary() Metrics {
	var m Metrics

	if n := len(r.Trades); n > 0 {
		wins := 0
		for _, t := range r.Trades {
			if t.Profit > 0 {
				wins++
			}
		}
		wr := float64(wins) / float64(n)
		m.WinRate = &wr
	}

	m.Sharpe = sharpe(r.Equity)
	m.MaxDrawdown = maxDrawdown(r.Equity)

	return m
}

func sharpe(curve []EquityPoint) *float64 {
	if len(curve) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(curve))
	returns = append(returns, 0) // no prior point for the first mark
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	sd := math.Sqrt(variance)
	if sd == 0 {
		return nil
	}

	s := math.Sqrt(252) * mean / sd
	return &s
}

func maxDrawdown(curve []EquityPoint) *float64 {
	if len(curve) == 0 {
		return nil
	}
	peak := curve[0].Equity
	worst := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (p.Equity - peak) / peak
			if dd < worst {
				worst = dd
			}
		}
	}
	return &worst
}
