// Package models provides domain models for the strategy simulator.
package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Bar represents one OHLCV observation of an instrument's price series.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Series is a date-ordered bar series for one instrument, plus derived
// indicator columns. Columns are parallel to Bars; a NaN cell means the
// indicator has no value at that bar (insufficient history).
type Series struct {
	Ticker string
	Bars   []Bar

	columns map[string][]float64
	strCols map[string][]string
}

// NewSeries builds a series from bars, which must be sorted ascending by
// date with no duplicate timestamps.
func NewSeries(ticker string, bars []Bar) (*Series, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return nil, fmt.Errorf("series %s: bars out of order at %s", ticker, bars[i].Date.Format("2006-01-02"))
		}
	}
	return &Series{
		Ticker:  ticker,
		Bars:    bars,
		columns: make(map[string][]float64),
		strCols: make(map[string][]string),
	}, nil
}

// Len returns the number of bars.
func (s *Series) Len() int {
	return len(s.Bars)
}

// Empty reports whether the series has no bars.
func (s *Series) Empty() bool {
	return len(s.Bars) == 0
}

// SetColumn stores a derived numeric column. The column must be parallel to
// the bar slice.
func (s *Series) SetColumn(name string, values []float64) error {
	if len(values) != len(s.Bars) {
		return fmt.Errorf("column %s: length %d does not match series length %d", name, len(values), len(s.Bars))
	}
	s.columns[name] = values
	return nil
}

// SetStringColumn stores a derived string column.
func (s *Series) SetStringColumn(name string, values []string) error {
	if len(values) != len(s.Bars) {
		return fmt.Errorf("column %s: length %d does not match series length %d", name, len(values), len(s.Bars))
	}
	s.strCols[name] = values
	return nil
}

// DropColumn removes a derived column if present.
func (s *Series) DropColumn(name string) {
	delete(s.columns, name)
	delete(s.strCols, name)
}

// HasColumn reports whether a derived column exists.
func (s *Series) HasColumn(name string) bool {
	if _, ok := s.columns[name]; ok {
		return true
	}
	_, ok := s.strCols[name]
	return ok
}

// Column returns a derived numeric column.
func (s *Series) Column(name string) ([]float64, bool) {
	c, ok := s.columns[name]
	return c, ok
}

// ColumnNames returns the derived column names in sorted order.
func (s *Series) ColumnNames() []string {
	names := make([]string, 0, len(s.columns)+len(s.strCols))
	for n := range s.columns {
		names = append(names, n)
	}
	for n := range s.strCols {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Value looks up a raw field or derived numeric column at bar i. The second
// return is false when the name is unknown or the cell has no value.
func (s *Series) Value(i int, name string) (float64, bool) {
	if i < 0 || i >= len(s.Bars) {
		return 0, false
	}
	switch name {
	case "Open":
		return s.Bars[i].Open, true
	case "High":
		return s.Bars[i].High, true
	case "Low":
		return s.Bars[i].Low, true
	case "Close":
		return s.Bars[i].Close, true
	case "Volume":
		return float64(s.Bars[i].Volume), true
	}
	if col, ok := s.columns[name]; ok {
		v := col[i]
		if math.IsNaN(v) {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

// StringValue looks up a derived string column at bar i.
func (s *Series) StringValue(i int, name string) (string, bool) {
	col, ok := s.strCols[name]
	if !ok || i < 0 || i >= len(col) {
		return "", false
	}
	if col[i] == "" {
		return "", false
	}
	return col[i], true
}

// IndexOf returns the index of the first bar not before date, or -1 when
// every bar is earlier.
func (s *Series) IndexOf(date time.Time) int {
	i := sort.Search(len(s.Bars), func(i int) bool {
		return !s.Bars[i].Date.Before(date)
	})
	if i == len(s.Bars) {
		return -1
	}
	return i
}

// IntradaySeries holds sub-day bars grouped by trading day.
type IntradaySeries struct {
	Ticker string
	days   map[time.Time][]Bar
}

// NewIntradaySeries groups minute bars by calendar day. Bars must be sorted
// ascending by timestamp.
func NewIntradaySeries(ticker string, bars []Bar) *IntradaySeries {
	days := make(map[time.Time][]Bar)
	for _, b := range bars {
		day := dayOf(b.Date)
		days[day] = append(days[day], b)
	}
	return &IntradaySeries{Ticker: ticker, days: days}
}

// Days reports how many trading days the series covers.
func (s *IntradaySeries) Days() int {
	if s == nil {
		return 0
	}
	return len(s.days)
}

// Day returns the minute bars belonging to one trading day.
func (s *IntradaySeries) Day(date time.Time) []Bar {
	if s == nil {
		return nil
	}
	return s.days[dayOf(date)]
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
