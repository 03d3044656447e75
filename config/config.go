// Package config loads and validates a backtest configuration and builds
// the strategy it describes. Everything user-supplied is checked here, once,
// before any simulation state exists; the engine never sees raw strings.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/optback/conditions"
)

// Config is the complete backtest configuration.
type Config struct {
	Underlying UnderlyingConfig `json:"underlying" yaml:"underlying"`
	Legs       []LegConfig      `json:"legs" yaml:"legs"`
	Entry      EntryConditions  `json:"entry_conditions" yaml:"entry_conditions"`
	Exit       ExitConditions   `json:"exit_conditions" yaml:"exit_conditions"`
	Backtest   BacktestConfig   `json:"backtest" yaml:"backtest"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Data       DataConfig       `json:"data" yaml:"data"`
}

// UnderlyingConfig describes the traded asset and its option chain.
type UnderlyingConfig struct {
	Symbol       string  `json:"symbol" yaml:"symbol"`
	OptionExpiry string  `json:"option_expiry" yaml:"option_expiry"` // WEEKLY or STATIC
	ExpiryDay    string  `json:"expiry_day" yaml:"expiry_day"`       // THU, FRI, ...
	StrikeStep   float64 `json:"strike_step" yaml:"strike_step"`
	LotSize      float64 `json:"lot_size" yaml:"lot_size"`
}

// LegConfig is one leg of the strategy.
type LegConfig struct {
	Type            string                `json:"type" yaml:"type"`     // CE or PE
	Action          string                `json:"action" yaml:"action"` // BUY or SELL
	StrikeSelection StrikeSelectionConfig `json:"strike_selection" yaml:"strike_selection"`
	Lots            int                   `json:"lots" yaml:"lots"`
}

type StrikeSelectionConfig struct {
	Method string `json:"method" yaml:"method"`
	Value  string `json:"value" yaml:"value"`
}

// EntryConditions holds the keyed entry rule blocks. All blocks present
// must pass for a trade to open.
type EntryConditions struct {
	Time          string            `json:"time,omitempty" yaml:"time,omitempty"`
	Date          string            `json:"date,omitempty" yaml:"date,omitempty"`
	MovingAverage *MAConfig         `json:"moving_average,omitempty" yaml:"moving_average,omitempty"`
	Volatility    *VolatilityConfig `json:"volatility,omitempty" yaml:"volatility,omitempty"`
}

// ExitConditions holds the keyed exit rule blocks. Any block firing closes
// the position.
type ExitConditions struct {
	TimeExit       string            `json:"time_exit,omitempty" yaml:"time_exit,omitempty"`
	StopLoss       *StopLossConfig   `json:"stoploss,omitempty" yaml:"stoploss,omitempty"`
	TakeProfit     string            `json:"take_profit,omitempty" yaml:"take_profit,omitempty"`
	TrailingStop   string            `json:"trailing_stoploss,omitempty" yaml:"trailing_stoploss,omitempty"`
	IndicatorExit  *IndicatorExit    `json:"indicator_exit,omitempty" yaml:"indicator_exit,omitempty"`
	VolatilityExit *VolatilityConfig `json:"volatility_exit,omitempty" yaml:"volatility_exit,omitempty"`
}

type MAConfig struct {
	Window    int    `json:"window" yaml:"window"`
	Direction string `json:"direction" yaml:"direction"` // above or below
}

// VolatilityConfig compares the tick's VIX field: exactly one of the two
// thresholds should be set.
type VolatilityConfig struct {
	VIXAbove *float64 `json:"vix_above,omitempty" yaml:"vix_above,omitempty"`
	VIXBelow *float64 `json:"vix_below,omitempty" yaml:"vix_below,omitempty"`
}

// IndicatorExit exits when price drops below the trailing SMA of the given
// window.
type IndicatorExit struct {
	PriceBelowSMA int `json:"price_below_sma" yaml:"price_below_sma"`
}

// StopLossConfig carries the four optional composite stop thresholds as the
// percent strings the original rule files used ("2%", "1000").
type StopLossConfig struct {
	AccountStopLossPct    string `json:"account_stop_loss_pct,omitempty" yaml:"account_stop_loss_pct,omitempty"`
	StrategyStopLossPct   string `json:"strategy_stop_loss_pct,omitempty" yaml:"strategy_stop_loss_pct,omitempty"`
	UnderlyingMoveStopPct string `json:"underlying_move_stop_pct,omitempty" yaml:"underlying_move_stop_pct,omitempty"`
	AbsoluteStopLoss      string `json:"absolute_stop_loss,omitempty" yaml:"absolute_stop_loss,omitempty"`
}

// BacktestConfig is the run window.
type BacktestConfig struct {
	StartDate   string   `json:"start_date" yaml:"start_date"`
	EndDate     string   `json:"end_date" yaml:"end_date"`
	Capital     float64  `json:"capital" yaml:"capital"`
	ExpiryDate  string   `json:"expiry_date,omitempty" yaml:"expiry_date,omitempty"` // STATIC mode only
	TradingDays []string `json:"trading_days,omitempty" yaml:"trading_days,omitempty"`
}

// JournalConfig selects where results are recorded.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // csv, sqlite or none
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	LegsFile   string `json:"legs_file,omitempty" yaml:"legs_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// DataConfig points at the price store.
type DataConfig struct {
	Store string `json:"store" yaml:"store"`
}

// symbolDefaults fills lot size and strike step for known indices when the
// config leaves them zero.
var symbolDefaults = map[string]struct {
	ExpiryDay  string
	LotSize    float64
	StrikeStep float64
}{
	"NIFTY":     {ExpiryDay: "THU", LotSize: 75, StrikeStep: 50},
	"BANKNIFTY": {ExpiryDay: "THU", LotSize: 25, StrikeStep: 100},
}

// LoadFromFile loads a configuration, YAML first with a JSON fallback, and
// validates it.
func LoadFromFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true) // typos in condition keys are config errors, not no-ops
	if err := dec.Decode(cfg); err != nil {
		if jerr := json.Unmarshal(raw, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplySymbolDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplySymbolDefaults fills zero-valued underlying fields from the static
// per-symbol table.
func (c *Config) ApplySymbolDefaults() {
	d, ok := symbolDefaults[strings.ToUpper(c.Underlying.Symbol)]
	if !ok {
		return
	}
	if c.Underlying.ExpiryDay == "" {
		c.Underlying.ExpiryDay = d.ExpiryDay
	}
	if c.Underlying.LotSize == 0 {
		c.Underlying.LotSize = d.LotSize
	}
	if c.Underlying.StrikeStep == 0 {
		c.Underlying.StrikeStep = d.StrikeStep
	}
}

// Validate checks the whole configuration. It is the only gate between
// user input and the engine, so every rule parameter is parsed here even
// when the parsed value is rebuilt later.
func (c *Config) Validate() error {
	if c.Underlying.Symbol == "" {
		return fmt.Errorf("underlying.symbol is required")
	}
	if c.Underlying.StrikeStep <= 0 {
		return fmt.Errorf("underlying.strike_step must be positive")
	}
	if c.Underlying.LotSize <= 0 {
		return fmt.Errorf("underlying.lot_size must be positive")
	}

	expiry := strings.ToUpper(c.Underlying.OptionExpiry)
	if expiry != "" && expiry != "WEEKLY" && expiry != "STATIC" {
		return fmt.Errorf("underlying.option_expiry must be WEEKLY or STATIC, got %q", c.Underlying.OptionExpiry)
	}
	if expiry == "STATIC" && c.Backtest.ExpiryDate == "" {
		return fmt.Errorf("backtest.expiry_date is required with STATIC expiry")
	}
	if c.Backtest.ExpiryDate != "" {
		if _, err := time.Parse("2006-01-02", c.Backtest.ExpiryDate); err != nil {
			return fmt.Errorf("backtest.expiry_date: %w", err)
		}
	}

	if len(c.Legs) == 0 {
		return fmt.Errorf("at least one leg is required")
	}
	for i, leg := range c.Legs {
		if err := validateLeg(leg); err != nil {
			return fmt.Errorf("legs[%d]: %w", i, err)
		}
	}

	if err := c.validateConditions(); err != nil {
		return err
	}

	if c.Backtest.Capital <= 0 {
		return fmt.Errorf("backtest.capital must be positive")
	}
	start, err := time.Parse("2006-01-02", c.Backtest.StartDate)
	if err != nil {
		return fmt.Errorf("backtest.start_date: %w", err)
	}
	end, err := time.Parse("2006-01-02", c.Backtest.EndDate)
	if err != nil {
		return fmt.Errorf("backtest.end_date: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("backtest.end_date is before start_date")
	}
	for _, d := range c.Backtest.TradingDays {
		if !validWeekday(d) {
			return fmt.Errorf("backtest.trading_days: unknown weekday %q", d)
		}
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.LegsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal: trades_file, legs_file and equity_file required for csv")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal: db_path required for sqlite")
		}
	default:
		return fmt.Errorf("journal.type must be csv, sqlite or none, got %q", c.Journal.Type)
	}

	return nil
}

func validateLeg(leg LegConfig) error {
	switch strings.ToUpper(leg.Type) {
	case "CE", "PE":
	default:
		return fmt.Errorf("type must be CE or PE, got %q", leg.Type)
	}
	switch strings.ToUpper(leg.Action) {
	case "BUY", "SELL":
	default:
		return fmt.Errorf("action must be BUY or SELL, got %q", leg.Action)
	}
	// The original pricing rules silently treated unknown methods as ATM;
	// rejecting them here keeps that fallback out of reach of config files.
	switch strings.ToUpper(leg.StrikeSelection.Method) {
	case "ATM", "OFFSET", "DELTA":
	default:
		return fmt.Errorf("strike_selection.method must be ATM, OFFSET or DELTA, got %q", leg.StrikeSelection.Method)
	}
	if leg.Lots <= 0 {
		return fmt.Errorf("lots must be positive, got %d", leg.Lots)
	}
	return nil
}

func (c *Config) validateConditions() error {
	check := func(field, s string) error {
		if s == "" {
			return nil
		}
		if _, err := ParsePercent(s); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		return nil
	}

	if c.Entry.Time != "" {
		if _, err := conditions.ParseClock(c.Entry.Time); err != nil {
			return fmt.Errorf("entry_conditions.time: %w", err)
		}
	}
	if c.Entry.Date != "" && !validWeekday(c.Entry.Date) {
		return fmt.Errorf("entry_conditions.date: unknown weekday %q", c.Entry.Date)
	}
	if ma := c.Entry.MovingAverage; ma != nil {
		if ma.Window <= 0 {
			return fmt.Errorf("entry_conditions.moving_average.window must be positive")
		}
		if ma.Direction != "" && ma.Direction != "above" && ma.Direction != "below" {
			return fmt.Errorf("entry_conditions.moving_average.direction must be above or below")
		}
	}
	if v := c.Entry.Volatility; v != nil && v.VIXAbove == nil && v.VIXBelow == nil {
		return fmt.Errorf("entry_conditions.volatility needs vix_above or vix_below")
	}

	if c.Exit.TimeExit != "" {
		if _, err := conditions.ParseClock(c.Exit.TimeExit); err != nil {
			return fmt.Errorf("exit_conditions.time_exit: %w", err)
		}
	}
	if err := check("exit_conditions.take_profit", c.Exit.TakeProfit); err != nil {
		return err
	}
	if err := check("exit_conditions.trailing_stoploss", c.Exit.TrailingStop); err != nil {
		return err
	}
	if sl := c.Exit.StopLoss; sl != nil {
		for field, s := range map[string]string{
			"account_stop_loss_pct":    sl.AccountStopLossPct,
			"strategy_stop_loss_pct":   sl.StrategyStopLossPct,
			"underlying_move_stop_pct": sl.UnderlyingMoveStopPct,
			"absolute_stop_loss":       sl.AbsoluteStopLoss,
		} {
			if err := check("exit_conditions.stoploss."+field, s); err != nil {
				return err
			}
		}
	}
	if ie := c.Exit.IndicatorExit; ie != nil && ie.PriceBelowSMA <= 0 {
		return fmt.Errorf("exit_conditions.indicator_exit.price_below_sma must be positive")
	}
	if v := c.Exit.VolatilityExit; v != nil && v.VIXAbove == nil && v.VIXBelow == nil {
		return fmt.Errorf("exit_conditions.volatility_exit needs vix_above or vix_below")
	}

	return nil
}

// Default returns a runnable sample configuration: one ATM long call on
// BANKNIFTY entered at 9:45 and closed at 14:45.
func Default() *Config {
	return &Config{
		Underlying: UnderlyingConfig{
			Symbol:       "BANKNIFTY",
			OptionExpiry: "WEEKLY",
			ExpiryDay:    "THU",
			StrikeStep:   100,
			LotSize:      25,
		},
		Legs: []LegConfig{{
			Type:            "CE",
			Action:          "BUY",
			StrikeSelection: StrikeSelectionConfig{Method: "ATM"},
			Lots:            1,
		}},
		Entry: EntryConditions{Time: "9:45"},
		Exit:  ExitConditions{TimeExit: "14:45"},
		Backtest: BacktestConfig{
			StartDate: "2022-05-30",
			EndDate:   "2022-06-03",
			Capital:   100000,
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			LegsFile:   "./legs.csv",
			EquityFile: "./equity.csv",
		},
		Data: DataConfig{Store: "./prices.sqlite"},
	}
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

// ParsePercent parses rule thresholds: "2%" is the fraction 0.02, a bare
// number like "1000" stays absolute.
func ParsePercent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	pct := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("bad numeric value %q", s)
	}
	if pct {
		v /= 100
	}
	return v, nil
}

func validWeekday(s string) bool {
	switch strings.ToLower(s) {
	case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		return true
	}
	return false
}
