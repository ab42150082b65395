// Package store provides bar-series persistence: a SQLite cache and CSV
// price files.
package store

import (
	"context"
	"time"

	"plumsim/internal/models"
)

// Periods of a stored series.
const (
	PeriodDaily    = "daily"
	PeriodIntraday = "intraday"
)

// DataStore is the persistence interface for cached bar series.
type DataStore interface {
	SaveBars(ctx context.Context, ticker, period string, bars []models.Bar) error
	GetBars(ctx context.Context, ticker, period string, from, to time.Time) ([]models.Bar, error)
	GetFreshness(ctx context.Context, ticker, period string) (time.Time, error)
	Close() error
}
