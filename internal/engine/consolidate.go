package engine

import (
	"math"
	"time"

	"plumsim/internal/errors"
	"plumsim/internal/models"
)

// MatchMode selects the lot-matching discipline of the consolidator.
//
// MatchLIFO pops the most recently opened lot, the literal stack behavior of
// the fill log. For strategies holding at most one lot at a time the two
// modes are observationally identical; they diverge only with overlapping
// multi-lot positions.
type MatchMode int

const (
	MatchLIFO MatchMode = iota
	MatchFIFO
)

type lot struct {
	openDate time.Time
	price    float64
	open     float64
}

// Consolidate matches the ordered fill log into round-trip trades. Each BUY
// fill opens a lot; each SELL fill consumes lot quantity per the match mode,
// recording one trade per matched chunk and recursing on any leftover. A
// SELL with no open lot to match is an invariant violation.
func Consolidate(ticker string, fills []models.Fill, mode MatchMode) ([]models.ConsolidatedTrade, error) {
	var lots []lot
	var trades []models.ConsolidatedTrade

	for _, f := range fills {
		switch f.Side {
		case models.SideBuy:
			lots = append(lots, lot{openDate: f.Date, price: f.Price, open: f.Quantity})

		case models.SideSell:
			qty := f.Quantity
			for qty > qtyEps {
				if len(lots) == 0 {
					return trades, &errors.InvariantError{
						Ticker:  ticker,
						Date:    f.Date,
						Detail:  "sell fill exceeds open lot quantity",
						SellQty: f.Quantity,
					}
				}
				idx := len(lots) - 1
				if mode == MatchFIFO {
					idx = 0
				}
				l := &lots[idx]

				matched := math.Min(l.open, qty)
				trades = append(trades, models.ConsolidatedTrade{
					OpenDate:   l.openDate,
					CloseDate:  f.Date,
					Ticker:     ticker,
					EntryPrice: l.price,
					ExitPrice:  f.Price,
					Quantity:   matched,
					Profit:     (f.Price - l.price) / l.price,
				})
				l.open -= matched
				qty -= matched

				if l.open <= qtyEps {
					lots = append(lots[:idx], lots[idx+1:]...)
				}
			}
		}
	}
	return trades, nil
}

// CheckConservation verifies that consolidation neither created nor lost
// quantity: consolidated quantity equals sold quantity, and never exceeds
// bought quantity.
func CheckConservation(ticker string, fills []models.Fill, trades []models.ConsolidatedTrade) error {
	var buyQty, sellQty, consQty float64
	var last time.Time
	for _, f := range fills {
		if f.Date.After(last) {
			last = f.Date
		}
		switch f.Side {
		case models.SideBuy:
			buyQty += f.Quantity
		case models.SideSell:
			sellQty += f.Quantity
		}
	}
	for _, t := range trades {
		consQty += t.Quantity
	}

	if math.Abs(consQty-sellQty) > 1e-6 {
		return &errors.InvariantError{
			Ticker:  ticker,
			Date:    last,
			Detail:  "consolidated quantity does not match sold quantity",
			BuyQty:  buyQty,
			SellQty: sellQty,
		}
	}
	if consQty > buyQty+1e-6 {
		return &errors.InvariantError{
			Ticker:  ticker,
			Date:    last,
			Detail:  "consolidated quantity exceeds bought quantity",
			BuyQty:  buyQty,
			SellQty: sellQty,
		}
	}
	return nil
}

// FilterFills keeps fills strictly inside (start, end). A zero bound is
// open.
func FilterFills(fills []models.Fill, start, end time.Time) []models.Fill {
	out := make([]models.Fill, 0, len(fills))
	for _, f := range fills {
		if !start.IsZero() && !f.Date.After(start) {
			continue
		}
		if !end.IsZero() && !f.Date.Before(end) {
			continue
		}
		out = append(out, f)
	}
	return out
}
