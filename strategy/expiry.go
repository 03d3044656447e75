package strategy

import (
	"fmt"
	"strings"
	"time"
)

// maxExpiryBackstep bounds the holiday search. A weekly expiry shifted back
// more than a full week means the trading calendar does not bracket the
// candidate at all, which is a data problem, not a holiday.
const maxExpiryBackstep = 7

// ParseWeekday maps config shorthand ("THU") to a weekday. Unknown strings
// default to Thursday, the NSE weekly expiry day the original rules assumed.
func ParseWeekday(s string) time.Weekday {
	u := strings.ToUpper(strings.TrimSpace(s))
	if len(u) > 3 {
		u = u[:3]
	}
	switch u {
	case "MON":
		return time.Monday
	case "TUE":
		return time.Tuesday
	case "WED":
		return time.Wednesday
	case "FRI":
		return time.Friday
	case "SAT":
		return time.Saturday
	case "SUN":
		return time.Sunday
	default:
		return time.Thursday
	}
}

// NextWeeklyExpiry computes the expiry date for a trade entered at ref: the
// nearest date on or after ref whose weekday matches target (entering on the
// expiry weekday itself selects that same day). When the candidate is not a
// trading day (holiday), it steps back one calendar day at a time.
//
// tradingDays is the set of dates the market actually traded; the engine
// passes the full underlying calendar, not the filtered backtest window.
func NextWeeklyExpiry(ref time.Time, target time.Weekday, tradingDays []time.Time) (time.Time, error) {
	days := make(map[time.Time]bool, len(tradingDays))
	for _, d := range tradingDays {
		days[midnight(d)] = true
	}

	ahead := (int(target) - int(ref.Weekday()) + 7) % 7
	candidate := midnight(ref.AddDate(0, 0, ahead))

	for i := 0; i <= maxExpiryBackstep; i++ {
		if days[candidate] {
			return candidate, nil
		}
		candidate = candidate.AddDate(0, 0, -1)
	}
	return time.Time{}, fmt.Errorf(
		"strategy: no trading day within %d days of %s expiry for reference %s",
		maxExpiryBackstep, target, ref.Format("2006-01-02"))
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
