package conditions

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/optback/market"
)

func tick(h, m int, price float64) market.Observation {
	return market.Observation{
		Time:  time.Date(2022, 5, 30, h, m, 0, 0, time.UTC),
		Price: price,
	}
}

func series(t *testing.T, prices ...float64) *market.Series {
	t.Helper()
	var rows []market.Row
	for i, p := range prices {
		rows = append(rows, market.Row{
			Time:  time.Date(2022, 5, 30, 9, 15+i, 0, 0, time.UTC),
			Price: p,
		})
	}
	s, err := market.NewSeries("X", rows)
	require.NoError(t, err)
	return s
}

func ptr(v float64) *float64 { return &v }

func TestTimeOfDay(t *testing.T) {
	t.Parallel()

	c, err := ParseClock("9:45")
	require.NoError(t, err)

	assert.True(t, c.Evaluate(tick(9, 45, 100), nil, nil))
	assert.False(t, c.Evaluate(tick(9, 46, 100), nil, nil))
	assert.False(t, c.Evaluate(tick(14, 45, 100), nil, nil))

	// seconds are ignored at minute precision
	withSecs := market.Observation{Time: time.Date(2022, 5, 30, 9, 45, 30, 0, time.UTC)}
	assert.True(t, c.Evaluate(withSecs, nil, nil))

	_, err = ParseClock("945")
	assert.Error(t, err)
	_, err = ParseClock("25:00")
	assert.Error(t, err)
}

func TestDayOfWeek(t *testing.T) {
	t.Parallel()

	c := DayOfWeek{Day: "monday"} // 2022-05-30 is a Monday
	assert.True(t, c.Evaluate(tick(9, 45, 100), nil, nil))

	c = DayOfWeek{Day: "Friday"}
	assert.False(t, c.Evaluate(tick(9, 45, 100), nil, nil))
}

func TestMovingAverage(t *testing.T) {
	t.Parallel()

	hist := series(t, 100, 102, 104) // mean of last 3 = 102

	above := MovingAverage{Window: 3, Direction: Above}
	assert.True(t, above.Evaluate(tick(10, 0, 105), hist, nil))
	assert.False(t, above.Evaluate(tick(10, 0, 101), hist, nil))

	below := MovingAverage{Window: 3, Direction: Below}
	assert.True(t, below.Evaluate(tick(10, 0, 101), hist, nil))

	// insufficient history fails closed
	short := MovingAverage{Window: 5, Direction: Above}
	assert.False(t, short.Evaluate(tick(10, 0, 200), hist, nil))
	assert.False(t, short.Evaluate(tick(10, 0, 200), nil, nil))
}

func TestVolatility(t *testing.T) {
	t.Parallel()

	c := Volatility{Field: "VIX", Threshold: 20, Direction: Above}

	hot := market.Observation{Time: time.Now(), Price: 1, Extra: map[string]float64{"VIX": 25}}
	cold := market.Observation{Time: time.Now(), Price: 1, Extra: map[string]float64{"VIX": 15}}
	missing := market.Observation{Time: time.Now(), Price: 1}

	assert.True(t, c.Evaluate(hot, nil, nil))
	assert.False(t, c.Evaluate(cold, nil, nil))
	assert.False(t, c.Evaluate(missing, nil, nil), "missing field fails closed")

	under := Volatility{Field: "VIX", Threshold: 20, Direction: Below}
	assert.True(t, under.Evaluate(cold, nil, nil))
}

func TestTakeProfit(t *testing.T) {
	t.Parallel()

	pct := TakeProfit{Pct: ptr(0.05)}
	ctx := &Context{EntryUnderlying: 100}

	assert.True(t, pct.Evaluate(tick(10, 0, 105), nil, ctx))
	assert.False(t, pct.Evaluate(tick(10, 0, 104), nil, ctx))
	assert.False(t, pct.Evaluate(tick(10, 0, 200), nil, nil), "no entry price fails closed")

	abs := TakeProfit{Abs: ptr(10.0)}
	assert.True(t, abs.Evaluate(tick(10, 0, 110), nil, ctx))
	assert.False(t, abs.Evaluate(tick(10, 0, 109), nil, ctx))
}

func TestTrailingStop(t *testing.T) {
	t.Parallel()

	c := TrailingStop{Pct: 0.02}
	ctx := &Context{EntryUnderlying: 100}

	// seeds the running max with the entry price
	assert.False(t, c.Evaluate(tick(10, 0, 101), nil, ctx))
	assert.Equal(t, 100.0, ctx.RunningMax)

	// new high ratchets the max up
	assert.False(t, c.Evaluate(tick(10, 1, 110), nil, ctx))
	assert.Equal(t, 110.0, ctx.RunningMax)

	// 2% off the 110 high triggers
	assert.True(t, c.Evaluate(tick(10, 2, 107.8), nil, ctx))

	// a fresh context starts tracking from scratch
	fresh := &Context{EntryUnderlying: 100}
	assert.False(t, c.Evaluate(tick(11, 0, 99), nil, fresh))
	assert.Equal(t, 100.0, fresh.RunningMax)
}

func stopCtx(t *testing.T) *Context {
	t.Helper()
	return &Context{
		EntryUnderlying: 100,
		CurrentCapital:  100000,
		Legs:            []LegView{{Buy: true, Lots: 1}},
		ContractSeries:  []*market.Series{series(t, 50, 40, 30)},
		EntryPrices:     []float64{50},
		Multiplier:      50,
	}
}

func TestStopLossStrategyPct(t *testing.T) {
	t.Parallel()

	c := StopLoss{StrategyPct: ptr(0.02)}
	ctx := stopCtx(t)

	// long bias: adverse move is a drop
	assert.True(t, c.Evaluate(tick(10, 0, 98), nil, ctx))
	assert.False(t, c.Evaluate(tick(10, 0, 99), nil, ctx))

	// short bias flips the direction
	short := stopCtx(t)
	short.Legs = []LegView{{Buy: false, Lots: 1}}
	assert.True(t, c.Evaluate(tick(10, 0, 102), nil, short))
	assert.False(t, c.Evaluate(tick(10, 0, 98), nil, short))
}

func TestStopLossAbsoluteAndAccount(t *testing.T) {
	t.Parallel()

	ctx := stopCtx(t)
	// mark at 9:17 is 30: loss = (30-50)*50*1 = -1000

	abs := StopLoss{AbsoluteLoss: ptr(1000.0)}
	assert.True(t, abs.Evaluate(tick(9, 17, 100), nil, ctx))

	loose := StopLoss{AbsoluteLoss: ptr(2000.0)}
	assert.False(t, loose.Evaluate(tick(9, 17, 100), nil, ctx))

	acct := StopLoss{AccountPct: ptr(0.01)} // 1% of 100000 = 1000
	assert.True(t, acct.Evaluate(tick(9, 17, 100), nil, ctx))

	acctLoose := StopLoss{AccountPct: ptr(0.02)}
	assert.False(t, acctLoose.Evaluate(tick(9, 17, 100), nil, ctx))
}

func TestStopLossUnconfigured(t *testing.T) {
	t.Parallel()

	none := StopLoss{}
	assert.False(t, none.Evaluate(tick(9, 17, 50), nil, stopCtx(t)))
	assert.False(t, StopLoss{AbsoluteLoss: ptr(1.0)}.Evaluate(tick(9, 17, 50), nil, nil))
}

func TestMarkedProfitSkipsUnpricedLegs(t *testing.T) {
	t.Parallel()

	ctx := stopCtx(t)
	ctx.Legs = append(ctx.Legs, LegView{Buy: false, Lots: 2})
	ctx.ContractSeries = append(ctx.ContractSeries, nil)
	ctx.EntryPrices = append(ctx.EntryPrices, math.NaN())

	// only the priced leg contributes: (30-50)*50*1 = -1000
	got := ctx.MarkedProfit(time.Date(2022, 5, 30, 9, 17, 0, 0, time.UTC))
	assert.Equal(t, -1000.0, got)
}
