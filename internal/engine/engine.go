// Package engine runs the trade-lifecycle state machine for one instrument:
// buy-rule scans open positions, sell-rule scans produce fills with partial
// fills and persistent stop-loss orders, and the fill log is consolidated
// into round-trip trades.
package engine

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"plumsim/internal/expr"
	"plumsim/internal/logging"
	"plumsim/internal/models"
	"plumsim/internal/strategy"
	"plumsim/internal/timeframe"
)

// Quantities are fractions of fractions; comparisons against zero use this
// tolerance.
const qtyEps = 1e-9

// Result is the outcome of one instrument's run.
type Result struct {
	Ticker    string
	Positions []models.Position
	Fills     []models.Fill
	Trades    []models.ConsolidatedTrade
}

// Engine executes one instrument's run. Processing is single-threaded and
// strictly sequential in bar order; instances must not be shared.
type Engine struct {
	ticker   string
	daily    *models.Series
	intraday *models.IntradaySeries
	strat    *strategy.Strategy
	logger   zerolog.Logger

	positions []models.Position
	fills     []models.Fill

	totalQty  float64
	liveStops []models.LiveStopLoss
	triggered []triggeredFill

	// entry price of the position under sell evaluation, injected as the
	// Price pseudo-field
	entryPrice float64
	inSell     bool

	warned map[string]bool
}

type triggeredFill struct {
	price float64
	qty   float64
	date  time.Time
}

// New creates an engine for one instrument. The daily series must already be
// enriched by the indicator compiler.
func New(ticker string, daily *models.Series, intraday *models.IntradaySeries, strat *strategy.Strategy, logger zerolog.Logger) *Engine {
	return &Engine{
		ticker:   ticker,
		daily:    daily,
		intraday: intraday,
		strat:    strat,
		logger:   logger.With().Str("ticker", ticker).Logger(),
		warned:   make(map[string]bool),
	}
}

// Run executes the scan states in order: buys, sells, consolidation. An
// instrument with no bars or no opened positions returns an empty result.
func (e *Engine) Run(mode MatchMode) (*Result, error) {
	res := &Result{Ticker: e.ticker}
	if e.daily == nil || e.daily.Empty() {
		e.logger.Warn().Msg("no bars, skipping run")
		return res, nil
	}

	e.scanBuys()
	res.Positions = e.positions
	if len(e.positions) == 0 {
		e.logger.Info().Msg("buy scan opened no positions")
		return res, nil
	}

	e.scanSells()
	res.Fills = e.fills

	trades, err := Consolidate(e.ticker, e.fills, mode)
	if err != nil {
		return res, err
	}
	res.Trades = trades
	if err := CheckConservation(e.ticker, e.fills, trades); err != nil {
		return res, err
	}
	return res, nil
}

// scanBuys iterates bars in ascending date order and evaluates every BUY
// rule in rule order. Each firing rule opens a new position; a single bar
// may open one position per firing rule.
func (e *Engine) scanBuys() {
	for _, bar := range e.daily.Bars {
		date := bar.Date
		for ri := range e.strat.BuyRules {
			rule := &e.strat.BuyRules[ri]
			w := rule.Timeframe.Select(e.daily, e.intraday, date, date, time.Time{})
			e.findTrade(w, rule, rule.Quantity, rule.Quantity)
			for _, t := range e.triggered {
				e.positions = append(e.positions, models.Position{
					Date:     date,
					Ticker:   e.ticker,
					Strategy: rule.Name,
					Price:    t.price,
					Quantity: t.qty,
				})
			}
			e.triggered = e.triggered[:0]
		}
	}
}

// scanSells processes positions in open order, carrying the running open
// quantity across positions and truncating newly added quantity to the
// MAX_POSITION_SIZE cap.
func (e *Engine) scanSells() {
	maxSize := e.strat.Params.Float(strategy.ParamMaxPositionSize, math.Inf(1))

	e.inSell = true
	defer func() { e.inSell = false }()

	for pi, pos := range e.positions {
		e.entryPrice = pos.Price
		prevQty := e.totalQty
		tradeQty := pos.Quantity
		tradeDate := pos.Date

		// The lot window ends where the next position opens.
		var endDate time.Time
		if pi+1 < len(e.positions) {
			endDate = e.positions[pi+1].Date
		}

		// Truncate, never negative.
		if prevQty+tradeQty > maxSize {
			tradeQty = maxSize - prevQty
			if tradeQty < 0 {
				tradeQty = 0
			}
		}

		if tradeQty > qtyEps {
			e.fills = append(e.fills, models.Fill{
				Date:     tradeDate,
				Ticker:   e.ticker,
				Side:     models.SideBuy,
				Strategy: pos.Strategy,
				Price:    pos.Price,
				Quantity: tradeQty,
			})
			logging.LogFill(e.logger, string(models.SideBuy), pos.Strategy, tradeQty, pos.Price)
		}

		e.totalQty = e.runSellRules(tradeQty, prevQty, tradeDate, endDate)

		// A fully closed position clears its protective orders.
		if e.totalQty <= qtyEps {
			e.totalQty = 0
			e.liveStops = nil
		}
	}
}

// runSellRules applies every SELL rule in order to the live open quantity.
// Each rule runs two passes: the newly opened quantity over the lot window,
// then any quantity carried from earlier positions over an unanchored
// window. Returns the quantity still open.
func (e *Engine) runSellRules(newQty, prevQty float64, tradeDate, endDate time.Time) float64 {
	remaining := newQty + prevQty

	for ri := range e.strat.SellRules {
		rule := &e.strat.SellRules[ri]

		passes := []struct {
			qty   float64
			start time.Time
			isNew bool
		}{
			{newQty, tradeDate, true},
			{prevQty, time.Time{}, false},
		}

		for _, pass := range passes {
			// Nothing to sell in this pass, already fully sold, or the new
			// quantity was consumed and only carried quantity remains.
			if pass.qty <= qtyEps || remaining <= qtyEps || (pass.isNew && remaining <= prevQty) {
				continue
			}

			w := rule.Timeframe.Select(e.daily, e.intraday, tradeDate, pass.start, endDate)
			if w.Empty() {
				continue
			}

			// The rule quantity is a fraction of this pass's quantity; the
			// remainder is protected by any stop-loss the rule sets.
			qty := pass.qty * rule.Quantity
			stopQty := pass.qty * (1 - rule.Quantity)

			e.findTrade(w, rule, qty, stopQty)

			for _, t := range e.triggered {
				q := t.qty
				if remaining < q {
					q = remaining
				}
				e.fills = append(e.fills, models.Fill{
					Date:     t.date,
					Ticker:   e.ticker,
					Side:     models.SideSell,
					Strategy: rule.Name,
					Price:    t.price,
					Quantity: q,
				})
				logging.LogFill(e.logger, string(models.SideSell), rule.Name, q, t.price)
				remaining -= q
				if remaining <= qtyEps {
					remaining = 0
					break
				}
			}
			e.triggered = e.triggered[:0]
		}
	}
	return remaining
}

// findTrade walks a window and records the first firing of the rule. During
// sell evaluation every live stop-loss is tested first, in creation order,
// skipping its creation bar; a breach fills at stop price adjusted for
// dispersion. Scanning stops at the first bar that produced a fill.
func (e *Engine) findTrade(w timeframe.Window, rule *strategy.Rule, qty, stopQty float64) bool {
	if w.Empty() {
		return false
	}
	dispersion := e.strat.Params.Float(strategy.ParamDispersion, 0)

	found := false
	for i := w.Lo; i < w.Hi; i++ {
		bar := w.Series.Bars[i]
		overlay := make(expr.MapScope)

		if e.inSell {
			overlay["Price"] = expr.Number(e.entryPrice)
			if e.entryPrice != 0 {
				overlay["Drawdown"] = expr.Number((e.entryPrice - bar.Low) / e.entryPrice)
			}

			// Stop-losses are never evaluated on the bar they were created.
			keep := e.liveStops[:0]
			for _, sl := range e.liveStops {
				if sl.Created.Equal(bar.Date) {
					keep = append(keep, sl)
					continue
				}
				if bar.Low < sl.Price {
					found = true
					e.triggered = append(e.triggered, triggeredFill{
						price: sl.Price * (1 - dispersion),
						qty:   sl.Quantity,
						date:  bar.Date,
					})
					e.logger.Debug().
						Time("date", bar.Date).
						Float64("stop", sl.Price).
						Msg("stop-loss triggered")
					continue
				}
				keep = append(keep, sl)
			}
			e.liveStops = keep
		}

		env := expr.NewEnv(rowScope{s: w.Series, i: i, overlay: overlay}, e.strat.Params)

		if e.eval(rule, "condition", rule.Condition, env).IsTrue() {
			price := e.eval(rule, "price", rule.Price, env)
			if price.Kind == expr.KindNumber {
				found = true
				e.triggered = append(e.triggered, triggeredFill{price: price.Num, qty: qty, date: bar.Date})

				if rule.Stop != nil {
					stop := e.eval(rule, "stop-loss", rule.Stop, env)
					if stop.Kind == expr.KindNumber {
						e.liveStops = append(e.liveStops, models.LiveStopLoss{
							Price:    stop.Num,
							Quantity: stopQty,
							Created:  bar.Date,
						})
					}
				}
			}
		}

		if found {
			break
		}
	}
	return found
}

// eval evaluates a rule expression; an undefined result is a non-trigger,
// warned once per rule and expression kind.
func (e *Engine) eval(rule *strategy.Rule, kind string, node expr.Node, env *expr.Env) expr.Value {
	v := node.Eval(env)
	if v.IsUndefined() {
		key := rule.Name + "/" + kind
		if !e.warned[key] {
			e.warned[key] = true
			e.logger.Warn().
				Str("rule", rule.Name).
				Str("expr", kind).
				Msg("expression undefined, treating as non-trigger")
		}
	}
	return v
}

// rowScope resolves identifiers against the current bar: raw OHLCV fields,
// derived indicator columns, and engine-injected pseudo-fields.
type rowScope struct {
	s       *models.Series
	i       int
	overlay expr.MapScope
}

func (r rowScope) Lookup(name string) (expr.Value, bool) {
	if v, ok := r.overlay[name]; ok {
		return v, true
	}
	if v, ok := r.s.Value(r.i, name); ok {
		return expr.Number(v), true
	}
	if sv, ok := r.s.StringValue(r.i, name); ok {
		return expr.String(sv), true
	}
	return expr.Undefined, false
}
