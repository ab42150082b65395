package portfolio

import (
	"math"
	"testing"
	"time"

	"plumsim/internal/expr"
	"plumsim/internal/models"
	"plumsim/internal/strategy"
)

func day(d int) time.Time {
	return time.Date(2024, time.June, d, 0, 0, 0, 0, time.UTC)
}

func trade(ticker string, open, close int, profit float64) models.ConsolidatedTrade {
	return models.ConsolidatedTrade{
		OpenDate:  day(open),
		CloseDate: day(close),
		Ticker:    ticker,
		Quantity:  1,
		Profit:    profit,
	}
}

func TestAggregateCompounding(t *testing.T) {
	trades := []models.ConsolidatedTrade{
		trade("A", 1, 3, 0.1),
		trade("A", 4, 6, -0.05),
	}
	s := Aggregate(trades, Config{InitialCapital: 1000, Compound: true})

	if len(s.Trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(s.Trades))
	}
	t1, t2 := s.Trades[0], s.Trades[1]
	if t1.Invested != 1000 || math.Abs(t1.DollarProfit-100) > 1e-9 || math.Abs(t1.Equity-100) > 1e-9 {
		t.Errorf("trade 1 = invested %v, profit %v, equity %v", t1.Invested, t1.DollarProfit, t1.Equity)
	}
	if math.Abs(t2.Invested-1100) > 1e-9 || math.Abs(t2.DollarProfit+55) > 1e-9 || math.Abs(t2.Equity-45) > 1e-9 {
		t.Errorf("trade 2 = invested %v, profit %v, equity %v", t2.Invested, t2.DollarProfit, t2.Equity)
	}
	if s.Wins != 1 || s.Losses != 1 {
		t.Errorf("wins/losses = %d/%d, want 1/1", s.Wins, s.Losses)
	}
	if math.Abs(s.TotalProfit-45) > 1e-9 {
		t.Errorf("total = %v, want 45", s.TotalProfit)
	}
}

func TestAggregateFixedCapital(t *testing.T) {
	trades := []models.ConsolidatedTrade{
		trade("A", 1, 3, 0.1),
		trade("A", 4, 6, -0.05),
	}
	s := Aggregate(trades, Config{InitialCapital: 1000, Compound: false})

	// Every trade invests the same initial amount.
	if s.Trades[0].Invested != 1000 || s.Trades[1].Invested != 1000 {
		t.Errorf("invested = %v, %v, want 1000 each", s.Trades[0].Invested, s.Trades[1].Invested)
	}
	if math.Abs(s.Trades[1].DollarProfit+50) > 1e-9 {
		t.Errorf("trade 2 profit = %v, want -50", s.Trades[1].DollarProfit)
	}
	if math.Abs(s.TotalProfit-50) > 1e-9 {
		t.Errorf("total = %v, want 50", s.TotalProfit)
	}
}

func TestAggregateMergeOrder(t *testing.T) {
	// Trades arrive grouped by instrument; the aggregate must interleave
	// them by open date before compounding.
	trades := []models.ConsolidatedTrade{
		trade("B", 2, 5, 0.1),
		trade("A", 1, 4, 0.2),
		trade("A", 7, 9, -0.1),
	}
	s := Aggregate(trades, Config{InitialCapital: 100, Compound: true})

	want := []string{"A", "B", "A"}
	for i, tr := range s.Trades {
		if tr.Ticker != want[i] {
			t.Fatalf("order = %v at %d, want %v", tr.Ticker, i, want[i])
		}
	}
	// Compounded: 100 -> 120 -> 132 -> 118.8.
	if math.Abs(s.Trades[2].Invested-132) > 1e-9 {
		t.Errorf("third invested = %v, want 132", s.Trades[2].Invested)
	}

	// The input slice is untouched.
	if trades[0].Ticker != "B" {
		t.Errorf("input reordered in place")
	}
}

func TestAggregateTieBreaks(t *testing.T) {
	trades := []models.ConsolidatedTrade{
		trade("B", 1, 3, 0),
		trade("A", 1, 3, 0),
		trade("A", 1, 2, 0),
	}
	s := Aggregate(trades, Config{InitialCapital: 100})

	// Same open date: earlier close first, then ticker.
	if s.Trades[0].Ticker != "A" || !s.Trades[0].CloseDate.Equal(day(2)) {
		t.Errorf("first = %+v", s.Trades[0].ConsolidatedTrade)
	}
	if s.Trades[1].Ticker != "A" || s.Trades[2].Ticker != "B" {
		t.Errorf("tie break order = %v, %v", s.Trades[1].Ticker, s.Trades[2].Ticker)
	}
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil, Config{InitialCapital: 1000, Compound: true})
	if len(s.Trades) != 0 || s.TotalProfit != 0 {
		t.Errorf("empty aggregate = %+v", s)
	}
	if s.WinRate() != 0 {
		t.Errorf("WinRate = %v, want 0", s.WinRate())
	}
}

func TestZeroProfitIsNeitherWinNorLoss(t *testing.T) {
	s := Aggregate([]models.ConsolidatedTrade{trade("A", 1, 2, 0)}, Config{InitialCapital: 100})
	if s.Wins != 0 || s.Losses != 0 {
		t.Errorf("wins/losses = %d/%d, want 0/0", s.Wins, s.Losses)
	}
}

func TestConfigFromParams(t *testing.T) {
	p := strategy.NewParams()
	p.Set(strategy.ParamInitCap, expr.Number(5000))
	p.Set(strategy.ParamCompound, expr.Boolean(true))

	cfg := ConfigFromParams(p)
	if cfg.InitialCapital != 5000 || !cfg.Compound {
		t.Errorf("cfg = %+v", cfg)
	}

	// Defaults: no capital, no compounding.
	cfg = ConfigFromParams(strategy.NewParams())
	if cfg.InitialCapital != 0 || cfg.Compound {
		t.Errorf("default cfg = %+v", cfg)
	}
}
