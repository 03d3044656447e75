// Package market holds the cleaned price series the backtest engine walks.
package market

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrEmptySeries is returned when cleaning leaves no usable rows.
var ErrEmptySeries = errors.New("market: series is empty after cleaning")

// Row is one raw input row before cleaning. Price may be NaN when the
// source had no value for that timestamp.
type Row struct {
	Time  time.Time
	Price float64
	Extra map[string]float64
}

// Observation is a single cleaned price point.
type Observation struct {
	Time  time.Time
	Price float64
	Extra map[string]float64
}

// Value returns the named auxiliary field (e.g. "VIX") if present.
func (o Observation) Value(field string) (float64, bool) {
	v, ok := o.Extra[field]
	return v, ok
}

// Series is an ordered, deduplicated price series. It is immutable after
// construction; range views share the backing array.
type Series struct {
	Symbol string
	obs    []Observation
}

// NewSeries cleans raw rows into a Series:
//
//  1. rows whose timestamp duplicates an earlier row are dropped
//     (first occurrence in input order wins)
//  2. rows are sorted ascending by timestamp
//  3. NaN prices are forward-filled from the nearest prior non-NaN value
//     (rows before the first real price keep NaN)
//
// The transform is idempotent: feeding a cleaned series back through it
// changes nothing. Rows with a zero timestamp are rejected, and an empty
// result is ErrEmptySeries.
func NewSeries(symbol string, rows []Row) (*Series, error) {
	seen := make(map[int64]bool, len(rows))
	obs := make([]Observation, 0, len(rows))

	for _, r := range rows {
		if r.Time.IsZero() {
			return nil, fmt.Errorf("market: row for %q has no timestamp", symbol)
		}
		key := r.Time.UnixNano()
		if seen[key] {
			continue
		}
		seen[key] = true
		obs = append(obs, Observation{Time: r.Time, Price: r.Price, Extra: r.Extra})
	}

	if len(obs) == 0 {
		return nil, fmt.Errorf("market: %q: %w", symbol, ErrEmptySeries)
	}

	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Time.Before(obs[j].Time)
	})

	last := math.NaN()
	for i := range obs {
		if math.IsNaN(obs[i].Price) {
			obs[i].Price = last
		} else {
			last = obs[i].Price
		}
	}

	return &Series{Symbol: symbol, obs: obs}, nil
}

func (s *Series) Len() int { return len(s.obs) }

// At returns the i-th observation.
func (s *Series) At(i int) Observation { return s.obs[i] }

// Observations exposes the backing slice. Callers must not modify it.
func (s *Series) Observations() []Observation { return s.obs }

// First and Last panic on an empty series; views can be empty, a freshly
// built series cannot.
func (s *Series) First() Observation { return s.obs[0] }
func (s *Series) Last() Observation  { return s.obs[len(s.obs)-1] }

// Between returns the sub-series with start <= Time <= end. The view shares
// the backing array with the parent.
func (s *Series) Between(start, end time.Time) *Series {
	lo := sort.Search(len(s.obs), func(i int) bool {
		return !s.obs[i].Time.Before(start)
	})
	hi := sort.Search(len(s.obs), func(i int) bool {
		return s.obs[i].Time.After(end)
	})
	return &Series{Symbol: s.Symbol, obs: s.obs[lo:hi]}
}

// UpTo returns the sub-series with Time <= t. This is the only history shape
// the engine hands to conditions, so evaluation at time T can never see
// past T.
func (s *Series) UpTo(t time.Time) *Series {
	hi := sort.Search(len(s.obs), func(i int) bool {
		return s.obs[i].Time.After(t)
	})
	return &Series{Symbol: s.Symbol, obs: s.obs[:hi]}
}

// NearestPrice returns the price of the observation closest in time to t,
// preferring the earlier one on an exact tie. ok is false for an empty
// series.
func (s *Series) NearestPrice(t time.Time) (price float64, ok bool) {
	if len(s.obs) == 0 {
		return 0, false
	}
	i := sort.Search(len(s.obs), func(i int) bool {
		return !s.obs[i].Time.Before(t)
	})
	if i == len(s.obs) {
		return s.obs[len(s.obs)-1].Price, true
	}
	if i == 0 {
		return s.obs[0].Price, true
	}
	after := s.obs[i].Time.Sub(t)
	before := t.Sub(s.obs[i-1].Time)
	if before <= after {
		return s.obs[i-1].Price, true
	}
	return s.obs[i].Price, true
}

// Dates returns the distinct calendar days covered by the series, in order.
// The engine uses the full series' dates as the trading calendar for expiry
// resolution.
func (s *Series) Dates() []time.Time {
	var out []time.Time
	for _, o := range s.obs {
		d := midnight(o.Time)
		if len(out) == 0 || !out[len(out)-1].Equal(d) {
			out = append(out, d)
		}
	}
	return out
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
