// Package portfolio combines consolidated trades across instruments into an
// equity curve and win/loss statistics.
package portfolio

import (
	"sort"

	"plumsim/internal/models"
	"plumsim/internal/strategy"
)

// Config controls capital allocation per trade.
type Config struct {
	InitialCapital float64
	Compound       bool
}

// ConfigFromParams reads INIT_CAP and COMPOUND.
func ConfigFromParams(p *strategy.Params) Config {
	return Config{
		InitialCapital: p.Float(strategy.ParamInitCap, 0),
		Compound:       p.Bool(strategy.ParamCompound, false),
	}
}

// TradePnL is one consolidated trade with its capital allocation applied.
type TradePnL struct {
	models.ConsolidatedTrade
	Invested     float64
	DollarProfit float64
	Equity       float64
}

// Summary is the aggregate over a merged, date-ordered trade sequence.
type Summary struct {
	Trades      []TradePnL
	Wins        int
	Losses      int
	TotalProfit float64
}

// WinRate is the fraction of profitable trades, 0 when there are none.
func (s *Summary) WinRate() float64 {
	total := s.Wins + s.Losses
	if total == 0 {
		return 0
	}
	return float64(s.Wins) / float64(total)
}

// Aggregate merges trades from any number of instruments. The merge is a
// pure combine followed by one explicit sort by open date; compounding and
// the cumulative sum depend on the merged order, not the per-instrument
// order.
func Aggregate(trades []models.ConsolidatedTrade, cfg Config) *Summary {
	merged := make([]models.ConsolidatedTrade, len(trades))
	copy(merged, trades)
	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].OpenDate.Equal(merged[j].OpenDate) {
			return merged[i].OpenDate.Before(merged[j].OpenDate)
		}
		if !merged[i].CloseDate.Equal(merged[j].CloseDate) {
			return merged[i].CloseDate.Before(merged[j].CloseDate)
		}
		return merged[i].Ticker < merged[j].Ticker
	})

	s := &Summary{Trades: make([]TradePnL, 0, len(merged))}
	amount := cfg.InitialCapital
	equity := 0.0

	for _, t := range merged {
		invested := cfg.InitialCapital
		if cfg.Compound {
			invested = amount
			amount = amount * (1 + t.Profit)
		}
		profit := invested * t.Profit
		equity += profit

		s.Trades = append(s.Trades, TradePnL{
			ConsolidatedTrade: t,
			Invested:          invested,
			DollarProfit:      profit,
			Equity:            equity,
		})

		switch {
		case profit > 0:
			s.Wins++
		case profit < 0:
			s.Losses++
		}
		s.TotalProfit += profit
	}
	return s
}
