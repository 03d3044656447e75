package strategy

import (
	"math"
	"strconv"
	"strings"
)

// ATMStrike rounds the underlying price to the nearest multiple of the
// strike step, half away from zero: 22734 with step 50 -> 22750.
func ATMStrike(underlying, step float64) float64 {
	return math.Round(underlying/step) * step
}

// ResolveStrike maps a leg's selection rule and the underlying price at
// entry to a concrete strike.
//
// An empty method resolves as ATM, the behavior the original pricing rules
// used for anything unrecognized; config validation rejects unknown method
// strings before a strategy is built, so only hand-constructed selections
// reach the fallback.
func ResolveStrike(sel StrikeSelection, underlying, step float64) float64 {
	atm := ATMStrike(underlying, step)
	switch sel.Method {
	case Offset:
		return atm + ParseOffset(sel.Value)
	case Delta:
		return atm - step
	default: // ATM and the empty fallback
		return atm
	}
}

// ParseOffset extracts the signed numeric magnitude from a free-form offset
// string: "+200 pts" -> 200, "-12.5" -> -12.5. Strings with no numeric
// content parse as 0.
func ParseOffset(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	// strconv rejects a bare sign; treat any parse failure as 0
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return f
}
