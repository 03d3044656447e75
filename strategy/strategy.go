// Package strategy defines the option strategy model: legs, strike
// selection, and expiry resolution.
package strategy

import "github.com/rustyeddy/optback/conditions"

// OptionType: CE (call) / PE (put).
type OptionType string

const (
	Call OptionType = "CE"
	Put  OptionType = "PE"
)

// Action is the direction of a leg.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// SelectionMethod picks a strike relative to the underlying at entry.
type SelectionMethod string

const (
	// ATM rounds the underlying to the nearest strike step.
	ATM SelectionMethod = "ATM"
	// Offset adds a signed point offset (parsed from Value) to the ATM strike.
	Offset SelectionMethod = "OFFSET"
	// Delta is a placeholder: ATM minus one step. Not a real option delta.
	Delta SelectionMethod = "DELTA"
)

// StrikeSelection is a leg's strike rule. Value is free-form ("+200 pts",
// "-150"); only its signed numeric content is used.
type StrikeSelection struct {
	Method SelectionMethod
	Value  string
}

// Leg is one option position within a strategy. Lots is a contract-lot
// count, converted to notional with the configured multiplier at PnL time.
// ComputedStrike is set once per trade when the leg enters.
type Leg struct {
	Type      OptionType
	Action    Action
	Selection StrikeSelection
	Lots      int

	ComputedStrike float64
}

// Strategy is immutable after construction except for the per-trade
// ComputedStrike on each leg. Entry conditions AND together; exit
// conditions OR together.
type Strategy struct {
	Name  string
	Entry []conditions.Condition
	Exit  []conditions.Condition
	Legs  []Leg
}
