// Package sim runs a strategy over many instruments. Each instrument is an
// independent worker with no shared mutable state; results merge only at the
// portfolio aggregator.
package sim

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"plumsim/internal/engine"
	"plumsim/internal/indicators"
	"plumsim/internal/models"
	"plumsim/internal/portfolio"
	"plumsim/internal/store"
	"plumsim/internal/strategy"
)

// InstrumentResult is one instrument's outcome. Err carries data or
// invariant errors; an error in one instrument never affects another.
type InstrumentResult struct {
	Ticker string
	Result *engine.Result
	Err    error
}

// Output is a full simulation run.
type Output struct {
	Results []InstrumentResult
	Summary *portfolio.Summary
}

// Simulator fans instrument runs out over a worker pool.
type Simulator struct {
	loader    *store.Loader
	logger    zerolog.Logger
	workers   int
	matchMode engine.MatchMode
}

// New creates a simulator.
func New(loader *store.Loader, logger zerolog.Logger, workers int) *Simulator {
	return &Simulator{loader: loader, logger: logger, workers: workers}
}

// SetMatchMode overrides the consolidation matching discipline.
func (s *Simulator) SetMatchMode(mode engine.MatchMode) {
	s.matchMode = mode
}

// Run backtests the strategy over every ticker and aggregates the merged
// trades. Cancellation is at run granularity: a cancelled context stops
// further instruments from starting.
func (s *Simulator) Run(ctx context.Context, strat *strategy.Strategy, tickers []string) (*Output, error) {
	out := &Output{Results: make([]InstrumentResult, len(tickers))}

	pool := NewWorkerPool(s.workers)
	pool.Start()
	defer pool.Stop()

	var wg sync.WaitGroup
	for i, ticker := range tickers {
		if ctx.Err() != nil {
			break
		}
		i, ticker := i, ticker
		wg.Add(1)
		ok := pool.Submit(func() {
			defer wg.Done()
			out.Results[i] = s.runInstrument(ctx, strat, ticker)
		})
		if !ok {
			wg.Done()
			break
		}
	}
	wg.Wait()

	start, _ := strat.Params.Date(strategy.ParamStartDate)
	end, _ := strat.Params.Date(strategy.ParamEndDate)

	var merged []models.ConsolidatedTrade
	for _, r := range out.Results {
		if r.Err != nil || r.Result == nil {
			continue
		}
		trades := r.Result.Trades
		if !start.IsZero() || !end.IsZero() {
			fills := engine.FilterFills(r.Result.Fills, start, end)
			ranged, err := engine.Consolidate(r.Ticker, fills, s.matchMode)
			if err == nil {
				trades = ranged
			}
		}
		merged = append(merged, trades...)
	}

	out.Summary = portfolio.Aggregate(merged, portfolio.ConfigFromParams(strat.Params))
	return out, ctx.Err()
}

// runInstrument loads the instrument's series, compiles the strategy's
// indicator columns onto it, and runs the trade engine.
func (s *Simulator) runInstrument(ctx context.Context, strat *strategy.Strategy, ticker string) InstrumentResult {
	logger := s.logger.With().Str("ticker", ticker).Logger()

	daily, err := s.loader.Daily(ctx, ticker)
	if err != nil {
		logger.Warn().Err(err).Msg("loading daily series")
		return InstrumentResult{Ticker: ticker, Err: err}
	}
	intraday, err := s.loader.Intraday(ctx, ticker)
	if err != nil {
		logger.Warn().Err(err).Msg("loading intraday series")
		return InstrumentResult{Ticker: ticker, Err: err}
	}

	compiler := indicators.New(logger)
	if err := compiler.Compile(daily, strat.RuleTexts); err != nil {
		return InstrumentResult{Ticker: ticker, Err: err}
	}

	eng := engine.New(ticker, daily, intraday, strat, logger)
	res, err := eng.Run(s.matchMode)
	return InstrumentResult{Ticker: ticker, Result: res, Err: err}
}
