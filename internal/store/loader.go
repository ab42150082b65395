package store

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"plumsim/internal/errors"
	"plumsim/internal/models"
)

var zeroTime time.Time

// Loader assembles per-instrument series, preferring the cache store and
// falling back to CSV price files (which it then caches).
type Loader struct {
	dataDir string
	store   DataStore
	logger  zerolog.Logger
}

// NewLoader creates a loader. The store may be nil, in which case only CSV
// files are consulted.
func NewLoader(dataDir string, ds DataStore, logger zerolog.Logger) *Loader {
	return &Loader{dataDir: dataDir, store: ds, logger: logger}
}

// Daily loads an instrument's daily series.
func (l *Loader) Daily(ctx context.Context, ticker string) (*models.Series, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if l.store != nil {
		bars, err := l.store.GetBars(ctx, ticker, PeriodDaily, zeroTime, zeroTime)
		if err == nil && len(bars) > 0 {
			return models.NewSeries(ticker, bars)
		}
	}

	bars, err := ReadDailyCSV(DailyPath(l.dataDir, ticker))
	if err != nil {
		return nil, errors.NewDataError(ticker, PeriodDaily, err)
	}
	if len(bars) == 0 {
		return nil, errors.NewDataError(ticker, PeriodDaily, errors.ErrNoData)
	}

	if l.store != nil {
		if err := l.store.SaveBars(ctx, ticker, PeriodDaily, bars); err != nil {
			l.logger.Warn().Err(err).Str("ticker", ticker).Msg("caching daily bars failed")
		}
	}
	return models.NewSeries(ticker, bars)
}

// Intraday loads an instrument's minute series. A missing intraday file is
// not an error; strategies without intraday timeframes never need it.
func (l *Loader) Intraday(ctx context.Context, ticker string) (*models.IntradaySeries, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if l.store != nil {
		bars, err := l.store.GetBars(ctx, ticker, PeriodIntraday, zeroTime, zeroTime)
		if err == nil && len(bars) > 0 {
			return models.NewIntradaySeries(ticker, bars), nil
		}
	}

	path := IntradayPath(l.dataDir, ticker)
	bars, err := ReadIntradayCSV(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewDataError(ticker, PeriodIntraday, err)
	}

	if l.store != nil && len(bars) > 0 {
		if err := l.store.SaveBars(ctx, ticker, PeriodIntraday, bars); err != nil {
			l.logger.Warn().Err(err).Str("ticker", ticker).Msg("caching intraday bars failed")
		}
	}
	return models.NewIntradaySeries(ticker, bars), nil
}
