package journal

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T) *SQLite {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "optback.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSQLiteTradeRoundTrip(t *testing.T) {
	t.Parallel()

	j := newSQLite(t)

	entry := time.Date(2022, 5, 30, 9, 45, 0, 0, time.UTC)
	exit := time.Date(2022, 5, 30, 14, 45, 0, 0, time.UTC)

	rec := TradeRecord{
		TradeID:         "T1",
		EntryTime:       entry,
		ExitTime:        exit,
		EntryUnderlying: 22734,
		ExitUnderlying:  22800,
		Profit:          500,
		Incomplete:      true,
		Legs: []LegRecord{
			{Type: "CE", Action: "BUY", Strike: 22750, EntryPrice: 100, ExitPrice: 110, PnL: 500},
			{Type: "PE", Action: "SELL", Strike: 22750, EntryPrice: math.NaN(), ExitPrice: math.NaN(), PnL: math.NaN()},
		},
	}
	require.NoError(t, j.RecordTrade(rec))

	got, err := j.GetTrade("T1")
	require.NoError(t, err)
	assert.Equal(t, rec.Profit, got.Profit)
	assert.True(t, got.Incomplete)
	require.Len(t, got.Legs, 2)
	assert.Equal(t, 110.0, got.Legs[0].ExitPrice)
	assert.True(t, math.IsNaN(got.Legs[1].PnL), "NULL maps back to NaN")

	_, err = j.GetTrade("nope")
	assert.Error(t, err)
}

func TestSQLiteListByRun(t *testing.T) {
	t.Parallel()

	j := newSQLite(t)
	base := time.Date(2022, 5, 30, 9, 45, 0, 0, time.UTC)

	for i, id := range []string{"T1", "T2"} {
		require.NoError(t, j.RecordTrade(TradeRecord{
			TradeID:   id,
			EntryTime: base.Add(time.Duration(i) * time.Hour),
			ExitTime:  base.Add(time.Duration(i+1) * time.Hour),
			Profit:    float64(i * 100),
		}))
	}
	require.NoError(t, j.RecordEquity(EquityRecord{Time: base, Equity: 100000}))
	require.NoError(t, j.RecordEquity(EquityRecord{Time: base.Add(time.Hour), Equity: 100100}))

	trades, err := j.ListTrades(j.RunID())
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "T1", trades[0].TradeID, "ordered by exit time")

	equity, err := j.ListEquity(j.RunID())
	require.NoError(t, err)
	require.Len(t, equity, 2)
	assert.Equal(t, 100100.0, equity[1].Equity)

	runs, err := j.ListRuns()
	require.NoError(t, err)
	assert.Equal(t, []string{j.RunID()}, runs)

	none, err := j.ListTrades("no-such-run")
	require.NoError(t, err)
	assert.Empty(t, none)
}
