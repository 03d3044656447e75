package conditions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rustyeddy/optback/market"
)

// TimeOfDay matches the observation's local clock at minute precision.
// Seconds are not compared: a "9:45" rule fires on any observation whose
// hour and minute are 9:45.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseClock parses "H:MM" or "HH:MM" into a TimeOfDay.
func ParseClock(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("conditions: bad clock %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("conditions: bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("conditions: bad minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (c TimeOfDay) Evaluate(cur market.Observation, _ *market.Series, _ *Context) bool {
	return cur.Time.Hour() == c.Hour && cur.Time.Minute() == c.Minute
}

// DayOfWeek matches the observation's weekday name, case-insensitively.
type DayOfWeek struct {
	Day string
}

func (c DayOfWeek) Evaluate(cur market.Observation, _ *market.Series, _ *Context) bool {
	return strings.EqualFold(cur.Time.Weekday().String(), c.Day)
}
