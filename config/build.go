package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/optback/backtest"
	"github.com/rustyeddy/optback/conditions"
	"github.com/rustyeddy/optback/strategy"
)

// BuildStrategy turns the validated condition blocks and legs into a
// Strategy. Call Validate first; construction assumes clean input and only
// returns errors for parse steps that cannot be pre-checked structurally.
func (c *Config) BuildStrategy() (*strategy.Strategy, error) {
	s := &strategy.Strategy{Name: c.Underlying.Symbol}

	for _, lc := range c.Legs {
		s.Legs = append(s.Legs, strategy.Leg{
			Type:   strategy.OptionType(strings.ToUpper(lc.Type)),
			Action: strategy.Action(strings.ToUpper(lc.Action)),
			Selection: strategy.StrikeSelection{
				Method: strategy.SelectionMethod(strings.ToUpper(lc.StrikeSelection.Method)),
				Value:  lc.StrikeSelection.Value,
			},
			Lots: lc.Lots,
		})
	}

	entry, err := c.buildEntry()
	if err != nil {
		return nil, err
	}
	s.Entry = entry

	exit, err := c.buildExit()
	if err != nil {
		return nil, err
	}
	s.Exit = exit

	return s, nil
}

func (c *Config) buildEntry() ([]conditions.Condition, error) {
	var out []conditions.Condition

	if c.Entry.Time != "" {
		clock, err := conditions.ParseClock(c.Entry.Time)
		if err != nil {
			return nil, fmt.Errorf("entry_conditions.time: %w", err)
		}
		out = append(out, clock)
	}
	if c.Entry.Date != "" {
		out = append(out, conditions.DayOfWeek{Day: c.Entry.Date})
	}
	if ma := c.Entry.MovingAverage; ma != nil {
		out = append(out, conditions.MovingAverage{
			Window:    ma.Window,
			Direction: maDirection(ma.Direction),
		})
	}
	if v := c.Entry.Volatility; v != nil {
		out = append(out, volatilityCondition(v))
	}

	return out, nil
}

func (c *Config) buildExit() ([]conditions.Condition, error) {
	var out []conditions.Condition

	if c.Exit.TimeExit != "" {
		clock, err := conditions.ParseClock(c.Exit.TimeExit)
		if err != nil {
			return nil, fmt.Errorf("exit_conditions.time_exit: %w", err)
		}
		out = append(out, clock)
	}

	if tp := c.Exit.TakeProfit; tp != "" {
		v, err := ParsePercent(tp)
		if err != nil {
			return nil, fmt.Errorf("exit_conditions.take_profit: %w", err)
		}
		cond := conditions.TakeProfit{}
		if strings.HasSuffix(strings.TrimSpace(tp), "%") {
			cond.Pct = &v
		} else {
			cond.Abs = &v
		}
		out = append(out, cond)
	}

	if ts := c.Exit.TrailingStop; ts != "" {
		v, err := ParsePercent(ts)
		if err != nil {
			return nil, fmt.Errorf("exit_conditions.trailing_stoploss: %w", err)
		}
		out = append(out, conditions.TrailingStop{Pct: v})
	}

	if sl := c.Exit.StopLoss; sl != nil {
		cond := conditions.StopLoss{}
		var err error
		if cond.AccountPct, err = optionalPercent(sl.AccountStopLossPct); err != nil {
			return nil, fmt.Errorf("exit_conditions.stoploss.account_stop_loss_pct: %w", err)
		}
		if cond.StrategyPct, err = optionalPercent(sl.StrategyStopLossPct); err != nil {
			return nil, fmt.Errorf("exit_conditions.stoploss.strategy_stop_loss_pct: %w", err)
		}
		if cond.UnderlyingMovePct, err = optionalPercent(sl.UnderlyingMoveStopPct); err != nil {
			return nil, fmt.Errorf("exit_conditions.stoploss.underlying_move_stop_pct: %w", err)
		}
		if cond.AbsoluteLoss, err = optionalPercent(sl.AbsoluteStopLoss); err != nil {
			return nil, fmt.Errorf("exit_conditions.stoploss.absolute_stop_loss: %w", err)
		}
		out = append(out, cond)
	}

	if ie := c.Exit.IndicatorExit; ie != nil {
		out = append(out, conditions.MovingAverage{
			Window:    ie.PriceBelowSMA,
			Direction: conditions.Below,
		})
	}
	if v := c.Exit.VolatilityExit; v != nil {
		out = append(out, volatilityCondition(v))
	}

	return out, nil
}

// EngineConfig converts the validated config into the engine's run
// parameters.
func (c *Config) EngineConfig() backtest.Config {
	start, _ := time.Parse("2006-01-02", c.Backtest.StartDate)
	end, _ := time.Parse("2006-01-02", c.Backtest.EndDate)

	cfg := backtest.Config{
		Symbol:         c.Underlying.Symbol,
		Start:          start,
		End:            end,
		InitialCapital: c.Backtest.Capital,
		StrikeStep:     c.Underlying.StrikeStep,
		LotSize:        c.Underlying.LotSize,
		ExpiryMode:     backtest.Weekly,
		ExpiryWeekday:  strategy.ParseWeekday(c.Underlying.ExpiryDay),
	}

	if strings.ToUpper(c.Underlying.OptionExpiry) == "STATIC" {
		cfg.ExpiryMode = backtest.Static
		cfg.StaticExpiry, _ = time.Parse("2006-01-02", c.Backtest.ExpiryDate)
	}

	if len(c.Backtest.TradingDays) > 0 {
		cfg.AllowedDays = map[time.Weekday]bool{}
		for _, name := range c.Backtest.TradingDays {
			for d := time.Sunday; d <= time.Saturday; d++ {
				if strings.EqualFold(d.String(), name) {
					cfg.AllowedDays[d] = true
				}
			}
		}
	}

	return cfg
}

func optionalPercent(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := ParsePercent(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func maDirection(s string) conditions.Direction {
	if strings.EqualFold(s, "below") {
		return conditions.Below
	}
	return conditions.Above
}

func volatilityCondition(v *VolatilityConfig) conditions.Condition {
	if v.VIXAbove != nil {
		return conditions.Volatility{Field: "VIX", Threshold: *v.VIXAbove, Direction: conditions.Above}
	}
	return conditions.Volatility{Field: "VIX", Threshold: *v.VIXBelow, Direction: conditions.Below}
}
