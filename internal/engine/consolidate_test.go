package engine

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"plumsim/internal/errors"
	"plumsim/internal/models"
)

func fill(d int, side models.Side, price, qty float64) models.Fill {
	return models.Fill{Date: day(d), Ticker: "TEST", Side: side, Price: price, Quantity: qty}
}

func TestConsolidateSingleLot(t *testing.T) {
	fills := []models.Fill{
		fill(1, models.SideBuy, 10, 10),
		fill(3, models.SideSell, 12, 4),
		fill(4, models.SideSell, 11, 6),
	}
	trades, err := Consolidate("TEST", fills, MatchLIFO)
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("trades = %+v, want 2", trades)
	}
	if trades[0].Quantity != 4 || math.Abs(trades[0].Profit-0.2) > 1e-12 {
		t.Errorf("trade 1 = %+v", trades[0])
	}
	if trades[1].Quantity != 6 || math.Abs(trades[1].Profit-0.1) > 1e-12 {
		t.Errorf("trade 2 = %+v", trades[1])
	}
	if err := CheckConservation("TEST", fills, trades); err != nil {
		t.Errorf("CheckConservation: %v", err)
	}
}

func TestConsolidateMatchModes(t *testing.T) {
	// Two overlapping lots at different prices: the mode decides which lot
	// the sell closes.
	fills := []models.Fill{
		fill(1, models.SideBuy, 10, 1),
		fill(2, models.SideBuy, 20, 1),
		fill(3, models.SideSell, 30, 1),
	}

	lifo, err := Consolidate("TEST", fills, MatchLIFO)
	if err != nil {
		t.Fatalf("Consolidate LIFO: %v", err)
	}
	if len(lifo) != 1 || lifo[0].EntryPrice != 20 || !lifo[0].OpenDate.Equal(day(2)) {
		t.Errorf("LIFO trade = %+v, want entry 20 from day 2", lifo)
	}

	fifo, err := Consolidate("TEST", fills, MatchFIFO)
	if err != nil {
		t.Fatalf("Consolidate FIFO: %v", err)
	}
	if len(fifo) != 1 || fifo[0].EntryPrice != 10 || !fifo[0].OpenDate.Equal(day(1)) {
		t.Errorf("FIFO trade = %+v, want entry 10 from day 1", fifo)
	}
}

func TestConsolidateSellSpansLots(t *testing.T) {
	fills := []models.Fill{
		fill(1, models.SideBuy, 10, 1),
		fill(2, models.SideBuy, 12, 1),
		fill(3, models.SideSell, 15, 2),
	}
	trades, err := Consolidate("TEST", fills, MatchLIFO)
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("trades = %+v, want 2", trades)
	}
	// LIFO closes the day-2 lot first, then recurses into the day-1 lot.
	if trades[0].EntryPrice != 12 || trades[1].EntryPrice != 10 {
		t.Errorf("entry prices = %v, %v, want 12, 10", trades[0].EntryPrice, trades[1].EntryPrice)
	}
}

func TestConsolidateExcessSell(t *testing.T) {
	fills := []models.Fill{
		fill(1, models.SideBuy, 10, 1),
		fill(2, models.SideSell, 12, 2),
	}
	_, err := Consolidate("TEST", fills, MatchLIFO)
	var inv *errors.InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("Consolidate error = %v, want InvariantError", err)
	}
	if inv.Ticker != "TEST" || !inv.Date.Equal(day(2)) {
		t.Errorf("InvariantError = %+v", inv)
	}
}

func TestFilterFills(t *testing.T) {
	fills := []models.Fill{
		fill(1, models.SideBuy, 10, 1),
		fill(5, models.SideSell, 12, 1),
		fill(9, models.SideBuy, 11, 1),
	}

	// Bounds are exclusive.
	got := FilterFills(fills, day(1), day(9))
	if len(got) != 1 || !got[0].Date.Equal(day(5)) {
		t.Errorf("FilterFills = %+v, want only day 5", got)
	}

	// Zero bounds are open.
	if got := FilterFills(fills, time.Time{}, time.Time{}); len(got) != 3 {
		t.Errorf("open FilterFills = %+v, want all 3", got)
	}
	if got := FilterFills(fills, day(1), time.Time{}); len(got) != 2 {
		t.Errorf("start-bounded FilterFills = %+v, want 2", got)
	}
}

// Property: for any fill log where sells never exceed the open quantity,
// consolidation conserves quantity in both match modes and never errors.
func TestProperty_ConsolidationConservesQuantity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	qtyGen := gen.Float64Range(0.1, 10)
	fracGen := gen.Float64Range(0.05, 1)

	buildFills := func(buys []float64, fracs []float64) []models.Fill {
		var fills []models.Fill
		d := 1
		var open float64
		for i, q := range buys {
			fills = append(fills, fill(d, models.SideBuy, 10+float64(i), q))
			open += q
			d++
		}
		for _, f := range fracs {
			q := open * f
			if q <= qtyEps {
				continue
			}
			fills = append(fills, fill(d, models.SideSell, 12, q))
			open -= q
			d++
		}
		return fills
	}

	check := func(mode MatchMode) func([]float64, []float64) bool {
		return func(buys, fracs []float64) bool {
			fills := buildFills(buys, fracs)
			trades, err := Consolidate("TEST", fills, mode)
			if err != nil {
				return false
			}
			if err := CheckConservation("TEST", fills, trades); err != nil {
				return false
			}
			var sold, cons float64
			for _, f := range fills {
				if f.Side == models.SideSell {
					sold += f.Quantity
				}
			}
			for _, tr := range trades {
				cons += tr.Quantity
			}
			return math.Abs(sold-cons) < 1e-6
		}
	}

	buysGen := gen.SliceOfN(3, qtyGen)
	fracsGen := gen.SliceOfN(3, fracGen)

	properties.Property("LIFO conserves quantity", prop.ForAll(check(MatchLIFO), buysGen, fracsGen))
	properties.Property("FIFO conserves quantity", prop.ForAll(check(MatchFIFO), buysGen, fracsGen))

	properties.TestingRun(t)
}
