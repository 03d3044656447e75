package data

import (
	"archive/zip"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/rustyeddy/optback/market"
	"github.com/rustyeddy/optback/strategy"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "prices.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreUnderlyingRoundTrip(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	base := time.Date(2022, 5, 30, 9, 15, 0, 0, time.UTC)

	require.NoError(t, s.PutUnderlying("BANKNIFTY", []market.Row{
		{Time: base, Price: 22734, Extra: map[string]float64{"VIX": 18.5}},
		{Time: base.Add(time.Minute), Price: math.NaN()},
	}))

	rows, err := s.FetchUnderlying(context.Background(), "BANKNIFTY")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 22734.0, rows[0].Price)
	assert.Equal(t, 18.5, rows[0].Extra["VIX"])
	assert.True(t, math.IsNaN(rows[1].Price), "NULL price comes back as NaN")

	_, err = s.FetchUnderlying(context.Background(), "NOPE")
	assert.Error(t, err)
}

func TestStoreContractRoundTrip(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	expiry := time.Date(2022, 6, 2, 0, 0, 0, 0, time.UTC)
	base := time.Date(2022, 5, 30, 9, 15, 0, 0, time.UTC)

	require.NoError(t, s.PutContract("BANKNIFTY", strategy.Call, 22750, expiry, []ContractRow{
		{Time: base, Open: 99, High: 105, Low: 98, Close: 100, Volume: 1000, OpenInterest: 500},
		{Time: base.Add(time.Minute), Close: 102},
	}))

	rows, err := s.FetchContract(context.Background(), "BANKNIFTY", strategy.Call, 22750, expiry)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 100.0, rows[0].Price, "close column feeds the price")
	assert.Equal(t, 102.0, rows[1].Price)

	_, err = s.FetchContract(context.Background(), "BANKNIFTY", strategy.Put, 22750, expiry)
	assert.ErrorIs(t, err, ErrContractNotFound)

	_, err = s.FetchContract(context.Background(), "BANKNIFTY", strategy.Call, 22800, expiry)
	assert.ErrorIs(t, err, ErrContractNotFound)
}

const underlyingCSV = `DateTime,Price
2022-05-30 09:15:00,22734
2022-05-30 09:16:00,22740
`

const contractCSV = `DateTime,Open,High,Low,Close,Volume,OpenInterest
2022-05-30 09:15:00,99,105,98,100,1000,500
2022-05-30 09:16:00,100,106,99,102,1100,510
`

func TestImportCSVFile(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "BANKNIFTY.csv")
	require.NoError(t, os.WriteFile(path, []byte(underlyingCSV), 0o644))

	n, err := ImportArchive(s, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := s.FetchUnderlying(context.Background(), "BANKNIFTY")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestImportZip(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "drop.zip")

	zf, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(zf)
	for name, body := range map[string]string{
		"BANKNIFTY.csv":                    underlyingCSV,
		"BANKNIFTY_CE_22750_2022-06-02.csv": contractCSV,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, zf.Close())

	n, err := ImportArchive(s, zipPath)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	expiry := time.Date(2022, 6, 2, 0, 0, 0, 0, time.UTC)
	rows, err := s.FetchContract(context.Background(), "BANKNIFTY", strategy.Call, 22750, expiry)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 102.0, rows[1].Price)
}

func TestImportXZ(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "BANKNIFTY.csv.xz")

	f, err := os.Create(path)
	require.NoError(t, err)
	xw, err := xz.NewWriter(f)
	require.NoError(t, err)
	_, err = xw.Write([]byte(underlyingCSV))
	require.NoError(t, err)
	require.NoError(t, xw.Close())
	require.NoError(t, f.Close())

	n, err := ImportArchive(s, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := s.FetchUnderlying(context.Background(), "BANKNIFTY")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestParseContractName(t *testing.T) {
	t.Parallel()

	sym, typ, strike, expiry, ok := parseContractName("BANKNIFTY_CE_22750_2022-06-02")
	require.True(t, ok)
	assert.Equal(t, "BANKNIFTY", sym)
	assert.Equal(t, strategy.Call, typ)
	assert.Equal(t, 22750.0, strike)
	assert.Equal(t, 2, expiry.Day())

	_, _, _, _, ok = parseContractName("BANKNIFTY")
	assert.False(t, ok)
	_, _, _, _, ok = parseContractName("BANKNIFTY_XX_22750_2022-06-02")
	assert.False(t, ok)
}

func TestImportUnsupported(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := ImportArchive(s, "data.parquet")
	assert.Error(t, err)
}
