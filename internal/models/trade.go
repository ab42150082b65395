package models

import "time"

// Side represents the side of a fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Fill is a single executed buy or sell event. Fills are immutable once
// recorded; the engine keeps an append-only log per instrument.
type Fill struct {
	Date     time.Time
	Ticker   string
	Side     Side
	Strategy string
	Price    float64
	Quantity float64
}

// Position is an open buy lot created by a firing BUY rule.
type Position struct {
	Date     time.Time
	Ticker   string
	Strategy string
	Price    float64
	Quantity float64
}

// LiveStopLoss is a standing protective sell order carried across bars until
// it triggers or the position it protects is fully closed.
type LiveStopLoss struct {
	Price    float64
	Quantity float64
	Created  time.Time
}

// ConsolidatedTrade is one round trip matched out of the fill log.
type ConsolidatedTrade struct {
	OpenDate   time.Time
	CloseDate  time.Time
	Ticker     string
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	Profit     float64 // fraction: (exit - entry) / entry
}
