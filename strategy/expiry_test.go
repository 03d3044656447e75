package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	// 2022-05-30 is a Monday
	return time.Date(2022, 5, d, 0, 0, 0, 0, time.UTC)
}

func TestNextWeeklyExpiry(t *testing.T) {
	t.Parallel()

	// Mon May 30 .. Fri Jun 3
	days := []time.Time{
		day(30), day(31),
		time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 6, 3, 0, 0, 0, 0, time.UTC),
	}

	mon := time.Date(2022, 5, 30, 9, 45, 0, 0, time.UTC)

	got, err := NextWeeklyExpiry(mon, time.Thursday, days)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 6, 2, 0, 0, 0, 0, time.UTC), got)
}

func TestNextWeeklyExpiryHoliday(t *testing.T) {
	t.Parallel()

	// Thursday June 2 missing: holiday, expiry slides back to Wednesday
	days := []time.Time{
		day(30), day(31),
		time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 6, 3, 0, 0, 0, 0, time.UTC),
	}
	mon := time.Date(2022, 5, 30, 9, 45, 0, 0, time.UTC)

	got, err := NextWeeklyExpiry(mon, time.Thursday, days)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestNextWeeklyExpirySameDay(t *testing.T) {
	t.Parallel()

	// entering on the expiry weekday selects that same day
	thu := time.Date(2022, 6, 2, 9, 45, 0, 0, time.UTC)
	days := []time.Time{time.Date(2022, 6, 2, 0, 0, 0, 0, time.UTC)}

	got, err := NextWeeklyExpiry(thu, time.Thursday, days)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 6, 2, 0, 0, 0, 0, time.UTC), got)
}

func TestNextWeeklyExpiryNoCalendar(t *testing.T) {
	t.Parallel()

	mon := time.Date(2022, 5, 30, 9, 45, 0, 0, time.UTC)
	// calendar nowhere near the candidate: bounded error, not a hang
	far := []time.Time{time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)}

	_, err := NextWeeklyExpiry(mon, time.Thursday, far)
	assert.Error(t, err)
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Monday, ParseWeekday("MON"))
	assert.Equal(t, time.Friday, ParseWeekday("friday"))
	assert.Equal(t, time.Thursday, ParseWeekday("THU"))
	assert.Equal(t, time.Thursday, ParseWeekday("??"), "unknown defaults to Thursday")
}
