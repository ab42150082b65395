package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"plumsim/internal/models"
)

// CSV price files follow the provider cache layout:
// <dir>/<TICKER>/<TICKER>-daily.csv and <dir>/<TICKER>/<TICKER>-intraday-1m.csv.

// DailyPath returns the daily CSV path for a ticker.
func DailyPath(dataDir, ticker string) string {
	ticker = strings.ToUpper(ticker)
	return filepath.Join(dataDir, ticker, ticker+"-daily.csv")
}

// IntradayPath returns the intraday CSV path for a ticker.
func IntradayPath(dataDir, ticker string) string {
	ticker = strings.ToUpper(ticker)
	return filepath.Join(dataDir, ticker, ticker+"-intraday-1m.csv")
}

type dailyRow struct {
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume int64   `csv:"volume"`
}

type intradayRow struct {
	Date   string  `csv:"date"`
	Minute string  `csv:"minute"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume int64   `csv:"volume"`
}

// ReadDailyCSV loads daily bars from a CSV file, sorted ascending.
func ReadDailyCSV(path string) ([]models.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*dailyRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	bars := make([]models.Bar, 0, len(rows))
	for _, r := range rows {
		date, err := time.Parse("2006-01-02", strings.TrimSpace(r.Date))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: bad date %q", path, r.Date)
		}
		bars = append(bars, models.Bar{
			Date: date, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// ReadIntradayCSV loads minute bars from a CSV file, sorted ascending.
func ReadIntradayCSV(path string) ([]models.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*intradayRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	bars := make([]models.Bar, 0, len(rows))
	for _, r := range rows {
		ts, err := time.Parse("2006-01-02 15:04",
			strings.TrimSpace(r.Date)+" "+strings.TrimSpace(r.Minute))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: bad timestamp %q %q", path, r.Date, r.Minute)
		}
		bars = append(bars, models.Bar{
			Date: ts, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
