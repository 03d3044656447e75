// Package backtest runs a rule-based option strategy over a historical
// underlying series and accumulates realized PnL.
package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/rustyeddy/optback/conditions"
	"github.com/rustyeddy/optback/internal/id"
	"github.com/rustyeddy/optback/journal"
	"github.com/rustyeddy/optback/market"
	"github.com/rustyeddy/optback/strategy"
)

// ContractSource supplies raw option contract rows for a resolved
// (symbol, type, strike, expiry) key. Implementations should return
// data.ErrContractNotFound when no contract matches; the engine treats any
// error as a degraded leg, never a dead run.
type ContractSource interface {
	FetchContract(ctx context.Context, symbol string, optType strategy.OptionType, strike float64, expiry time.Time) ([]market.Row, error)
}

// ExpiryMode selects how contract expiry is chosen at entry.
type ExpiryMode string

const (
	// Weekly resolves the next weekly expiry from the trading calendar.
	Weekly ExpiryMode = "WEEKLY"
	// Static uses Config.StaticExpiry verbatim (monthly and ad-hoc modes).
	Static ExpiryMode = "STATIC"
)

// Config is one run's parameters, already validated by the config layer.
type Config struct {
	Symbol         string
	Start, End     time.Time
	InitialCapital float64

	// AllowedDays gates both entries and exits; nil allows every weekday.
	AllowedDays map[time.Weekday]bool

	StrikeStep    float64 // strike grid step, also the ATM rounding unit
	LotSize       float64 // contract multiplier applied per lot at PnL time
	ExpiryMode    ExpiryMode
	ExpiryWeekday time.Weekday
	StaticExpiry  time.Time
}

// Engine walks one (series, strategy, config) triple to completion. It owns
// capital, the open-trade context, the trade log, and the equity curve for
// the duration of the run; instances are not reused.
type Engine struct {
	underlying *market.Series
	strat      *strategy.Strategy
	contracts  ContractSource
	cfg        Config
	jnl        journal.Journal
	log        *slog.Logger
}

// NewEngine wires a run. jnl may be nil to skip recording; logger may be
// nil for slog.Default().
func NewEngine(underlying *market.Series, strat *strategy.Strategy, contracts ContractSource, cfg Config, jnl journal.Journal, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		underlying: underlying,
		strat:      strat,
		contracts:  contracts,
		cfg:        cfg,
		jnl:        jnl,
		log:        logger,
	}
}

// openTrade is the engine's state while a position is open. It is created
// on entry and discarded on exit; nothing in it survives the trade.
type openTrade struct {
	ctx  *conditions.Context
	legs []strategy.Leg // copies with ComputedStrike set
}

// Run executes the single forward pass. Observations are processed in
// strictly increasing time order and conditions only ever see history up to
// the current tick, so no information can leak backward.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.underlying == nil {
		return nil, fmt.Errorf("backtest: underlying series is required")
	}
	window := e.underlying.Between(e.cfg.Start, endOfDay(e.cfg.End))
	if window.Len() == 0 {
		return nil, fmt.Errorf("backtest: %q has no data between %s and %s: %w",
			e.cfg.Symbol, e.cfg.Start.Format("2006-01-02"), e.cfg.End.Format("2006-01-02"),
			market.ErrEmptySeries)
	}

	// The expiry calendar comes from the full dataset, not the filtered
	// window, so expiries past the window's end still resolve.
	calendar := e.underlying.Dates()

	res := &Result{
		InitialCapital: e.cfg.InitialCapital,
		Equity:         make([]EquityPoint, 0, window.Len()),
	}
	capital := e.cfg.InitialCapital

	var open *openTrade

	for _, obs := range window.Observations() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Disallowed weekdays skip all trade logic, exits included.
		if !e.dayAllowed(obs.Time.Weekday()) {
			capital = e.markEquity(res, obs.Time, capital)
			continue
		}

		if open != nil {
			open.ctx.CurrentCapital = capital
			if e.exitTriggered(obs, window.UpTo(obs.Time), open.ctx) {
				trade := e.closeTrade(open, obs)
				res.Trades = append(res.Trades, trade)
				capital += trade.Profit
				e.recordTrade(trade)
				open = nil
			}
		} else if e.entryTriggered(obs, window.UpTo(obs.Time)) {
			var err error
			open, err = e.openPosition(ctx, obs, calendar)
			if err != nil {
				return nil, err
			}
		}

		capital = e.markEquity(res, obs.Time, capital)
	}

	// A position still open here stays unrealized: no force-close, no
	// trade record. Reported PnL would change if this ever auto-closed.
	res.OpenAtEnd = open != nil
	res.FinalCapital = capital

	return res, nil
}

func (e *Engine) dayAllowed(d time.Weekday) bool {
	if e.cfg.AllowedDays == nil {
		return true
	}
	return e.cfg.AllowedDays[d]
}

func (e *Engine) entryTriggered(obs market.Observation, hist *market.Series) bool {
	for _, c := range e.strat.Entry {
		// entry rules never see position state
		if !c.Evaluate(obs, hist, nil) {
			return false
		}
	}
	return true
}

func (e *Engine) exitTriggered(obs market.Observation, hist *market.Series, tctx *conditions.Context) bool {
	for _, c := range e.strat.Exit {
		if c.Evaluate(obs, hist, tctx) {
			return true
		}
	}
	return false
}

// openPosition resolves expiry and per-leg strikes, fetches and cleans each
// leg's contract series, and builds the trade context. A failed fetch
// degrades that leg to an unpriced state; only a broken expiry calendar
// aborts the run.
func (e *Engine) openPosition(ctx context.Context, obs market.Observation, calendar []time.Time) (*openTrade, error) {
	expiry := e.cfg.StaticExpiry
	if e.cfg.ExpiryMode == Weekly {
		var err error
		expiry, err = strategy.NextWeeklyExpiry(obs.Time, e.cfg.ExpiryWeekday, calendar)
		if err != nil {
			return nil, fmt.Errorf("backtest: resolving expiry at %s: %w", obs.Time, err)
		}
	}

	legs := make([]strategy.Leg, len(e.strat.Legs))
	copy(legs, e.strat.Legs)

	tctx := &conditions.Context{
		EntryTime:       obs.Time,
		EntryUnderlying: obs.Price,
		Multiplier:      e.cfg.LotSize,
	}

	for i := range legs {
		legs[i].ComputedStrike = strategy.ResolveStrike(legs[i].Selection, obs.Price, e.cfg.StrikeStep)

		series := e.fetchContractSeries(ctx, legs[i], expiry, obs.Time)
		entryPrice := math.NaN()
		if series != nil {
			if p, ok := series.NearestPrice(obs.Time); ok {
				entryPrice = p
			}
		}

		tctx.Legs = append(tctx.Legs, conditions.LegView{
			Buy:  legs[i].Action == strategy.Buy,
			Lots: legs[i].Lots,
		})
		tctx.ContractSeries = append(tctx.ContractSeries, series)
		tctx.EntryPrices = append(tctx.EntryPrices, entryPrice)
	}

	return &openTrade{ctx: tctx, legs: legs}, nil
}

// fetchContractSeries returns the cleaned series for one leg, or nil when
// the data is unavailable. Never fails the run.
func (e *Engine) fetchContractSeries(ctx context.Context, leg strategy.Leg, expiry time.Time, at time.Time) *market.Series {
	rows, err := e.contracts.FetchContract(ctx, e.cfg.Symbol, leg.Type, leg.ComputedStrike, expiry)
	if err != nil {
		e.log.Warn("contract fetch failed, leg degraded to unpriced",
			"symbol", e.cfg.Symbol,
			"type", string(leg.Type),
			"action", string(leg.Action),
			"strike", leg.ComputedStrike,
			"expiry", expiry.Format("2006-01-02"),
			"at", at,
			"err", err)
		return nil
	}
	series, err := market.NewSeries(e.cfg.Symbol, rows)
	if err != nil {
		e.log.Warn("contract series empty after cleaning",
			"symbol", e.cfg.Symbol,
			"strike", leg.ComputedStrike,
			"expiry", expiry.Format("2006-01-02"),
			"err", err)
		return nil
	}
	return series
}

// closeTrade realizes the open position at obs. Buy legs earn
// (exit - entry), sell legs the reverse, each scaled by LotSize * lots.
func (e *Engine) closeTrade(open *openTrade, obs market.Observation) ClosedTrade {
	trade := ClosedTrade{
		ID:              id.New(),
		EntryTime:       open.ctx.EntryTime,
		ExitTime:        obs.Time,
		EntryUnderlying: open.ctx.EntryUnderlying,
		ExitUnderlying:  obs.Price,
	}

	for i, leg := range open.legs {
		entry := open.ctx.EntryPrices[i]
		exit := math.NaN()
		if s := open.ctx.ContractSeries[i]; s != nil {
			if p, ok := s.NearestPrice(obs.Time); ok {
				exit = p
			}
		}

		pnl := (exit - entry) * e.cfg.LotSize * float64(leg.Lots)
		if leg.Action == strategy.Sell {
			pnl = -pnl
		}

		trade.Legs = append(trade.Legs, LegDetail{
			Type:       leg.Type,
			Action:     leg.Action,
			Strike:     leg.ComputedStrike,
			EntryPrice: entry,
			ExitPrice:  exit,
			PnL:        pnl,
		})

		if math.IsNaN(pnl) {
			// surfaced, not silently zeroed: the leg keeps its NaN detail
			// and the trade is flagged
			trade.Incomplete = true
			e.log.Warn("leg had no usable price, excluded from trade total",
				"trade", trade.ID,
				"type", string(leg.Type),
				"strike", leg.ComputedStrike)
			continue
		}
		trade.Profit += pnl
	}

	return trade
}

func (e *Engine) markEquity(res *Result, t time.Time, capital float64) float64 {
	res.Equity = append(res.Equity, EquityPoint{Time: t, Equity: capital})
	if e.jnl != nil {
		if err := e.jnl.RecordEquity(journal.EquityRecord{Time: t, Equity: capital}); err != nil {
			e.log.Warn("journal equity write failed", "err", err)
		}
	}
	return capital
}

func (e *Engine) recordTrade(t ClosedTrade) {
	if e.jnl == nil {
		return
	}
	rec := journal.TradeRecord{
		TradeID:         t.ID,
		EntryTime:       t.EntryTime,
		ExitTime:        t.ExitTime,
		EntryUnderlying: t.EntryUnderlying,
		ExitUnderlying:  t.ExitUnderlying,
		Profit:          t.Profit,
		Incomplete:      t.Incomplete,
	}
	for _, l := range t.Legs {
		rec.Legs = append(rec.Legs, journal.LegRecord{
			Type:       string(l.Type),
			Action:     string(l.Action),
			Strike:     l.Strike,
			EntryPrice: l.EntryPrice,
			ExitPrice:  l.ExitPrice,
			PnL:        l.PnL,
		})
	}
	if err := e.jnl.RecordTrade(rec); err != nil {
		e.log.Warn("journal trade write failed", "trade", t.ID, "err", err)
	}
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
