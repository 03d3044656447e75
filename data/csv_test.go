package data

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadUnderlyingCSV(t *testing.T) {
	t.Parallel()

	in := `DateTime,Price,VIX
2022-05-30 09:15:00,22734,18.5
2022-05-30 09:16:00,,19.0
2022-05-30 09:17:00,22740,
`
	rows, err := ReadUnderlyingCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 22734.0, rows[0].Price)
	assert.Equal(t, 18.5, rows[0].Extra["VIX"])
	assert.True(t, math.IsNaN(rows[1].Price), "empty price becomes NaN for cleaning")
	_, hasVIX := rows[2].Extra["VIX"]
	assert.False(t, hasVIX)
}

func TestReadUnderlyingCSVEpochSeconds(t *testing.T) {
	t.Parallel()

	in := "DateTime,Close\n1653903300,22734\n"
	rows, err := ReadUnderlyingCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1653903300), rows[0].Time.Unix())
	assert.Equal(t, 22734.0, rows[0].Price, "Close accepted as the price column")
}

func TestReadUnderlyingCSVErrors(t *testing.T) {
	t.Parallel()

	_, err := ReadUnderlyingCSV(strings.NewReader("Foo,Bar\n1,2\n"))
	assert.Error(t, err, "missing required columns")

	_, err = ReadUnderlyingCSV(strings.NewReader("DateTime,Price\nnot-a-time,5\n"))
	assert.Error(t, err, "unparseable time")
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		"2022-05-30 09:15:00",
		"2022-05-30T09:15:00",
		"2022-05-30T09:15:00Z",
		"2022-05-30 09:15",
	} {
		got, err := ParseTime(s)
		require.NoError(t, err, s)
		assert.Equal(t, 30, got.Day())
	}

	_, err := ParseTime("30/05/2022")
	assert.Error(t, err)
	_, err = ParseTime("")
	assert.Error(t, err)
}
