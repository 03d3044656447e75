package journal

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCSVPaths(t *testing.T) (string, string, string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "trades.csv"),
		filepath.Join(dir, "legs.csv"),
		filepath.Join(dir, "equity.csv")
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	tp, lp, ep := newCSVPaths(t)
	j, err := NewCSV(tp, lp, ep)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	assert.Equal(t,
		[]string{"trade_id", "entry_time", "exit_time", "entry_underlying", "exit_underlying", "profit", "incomplete"},
		readCSV(t, tp)[0])
	assert.Equal(t,
		[]string{"trade_id", "leg", "type", "action", "strike", "entry_price", "exit_price", "pnl"},
		readCSV(t, lp)[0])
	assert.Equal(t, []string{"time", "equity"}, readCSV(t, ep)[0])
}

func TestCSVJournalRecords(t *testing.T) {
	t.Parallel()

	tp, lp, ep := newCSVPaths(t)
	j, err := NewCSV(tp, lp, ep)
	require.NoError(t, err)

	entry := time.Date(2022, 5, 30, 9, 45, 0, 0, time.UTC)
	exit := time.Date(2022, 5, 30, 14, 45, 0, 0, time.UTC)

	require.NoError(t, j.RecordTrade(TradeRecord{
		TradeID:         "T1",
		EntryTime:       entry,
		ExitTime:        exit,
		EntryUnderlying: 22734,
		ExitUnderlying:  22800,
		Profit:          500,
		Legs: []LegRecord{
			{Type: "CE", Action: "BUY", Strike: 22750, EntryPrice: 100, ExitPrice: 110, PnL: 500},
			{Type: "PE", Action: "SELL", Strike: 22750, EntryPrice: 80, ExitPrice: math.NaN(), PnL: math.NaN()},
		},
	}))
	require.NoError(t, j.RecordEquity(EquityRecord{Time: exit, Equity: 100500}))
	require.NoError(t, j.Close())

	trades := readCSV(t, tp)
	require.Len(t, trades, 2)
	assert.Equal(t, "T1", trades[1][0])
	assert.Equal(t, "500", trades[1][5])

	legs := readCSV(t, lp)
	require.Len(t, legs, 3)
	assert.Equal(t, "CE", legs[1][2])
	assert.Equal(t, "NaN", legs[2][6], "unpriced leg stays visible")

	equity := readCSV(t, ep)
	require.Len(t, equity, 2)
	assert.Equal(t, "100500", equity[1][1])
}
