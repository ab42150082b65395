// Package timeframe parses compact timeframe descriptors and resolves them
// into bar-range selectors.
package timeframe

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"plumsim/internal/errors"
	"plumsim/internal/models"
)

// Kind identifies the bar-range selection a descriptor stands for.
type Kind int

const (
	// SingleDay selects exactly the bar at the reference date, and only when
	// the reference matches an explicit start date.
	SingleDay Kind = iota
	// DayRange selects all daily bars from the reference date to an end
	// bound, or to series end when unbounded.
	DayRange
	// Intraday selects the minute bars belonging to the reference day.
	Intraday
)

// Timeframe is a parsed descriptor.
type Timeframe struct {
	Kind Kind
	Raw  string
}

// String returns the descriptor as written.
func (tf Timeframe) String() string {
	return tf.Raw
}

// Descriptor grammar: unit with optional leading count, optional dash,
// optional second unit. Examples: "Day1", "Day - All", "1Min - 1Min".
var descriptorRe = regexp.MustCompile(`^(\d{0,2}[A-Za-z]+)(\d{1,2})?(?:\s*-\s*(\d{0,2}[A-Za-z]+)(\d{1,2})?)?$`)

// Parse parses a descriptor. A malformed descriptor is a configuration
// error; the caller skips the rule.
func Parse(desc string) (Timeframe, error) {
	m := descriptorRe.FindStringSubmatch(strings.TrimSpace(desc))
	if m == nil {
		return Timeframe{}, errors.Wrap(errors.ErrMalformedTimeframe, desc)
	}
	d1, t1, d2 := strings.ToLower(m[1]), m[2], strings.ToLower(m[3])
	switch {
	case d1 == "day" && t1 == "1" && d2 == "":
		return Timeframe{Kind: SingleDay, Raw: desc}, nil
	case d1 == "day" && d2 == "all":
		return Timeframe{Kind: DayRange, Raw: desc}, nil
	case d1 == "1min" && d2 == "1min":
		return Timeframe{Kind: Intraday, Raw: desc}, nil
	}
	return Timeframe{}, errors.Wrap(errors.ErrMalformedTimeframe, desc)
}

// Window is a contiguous run of bars [Lo, Hi) in a series.
type Window struct {
	Series *models.Series
	Lo, Hi int
}

// Empty reports whether the window selects no bars.
func (w Window) Empty() bool {
	return w.Series == nil || w.Lo >= w.Hi
}

// Select resolves the timeframe against a reference date.
//
// For SingleDay the window is the reference bar, but only when ref equals the
// explicit start date. For DayRange the window runs from ref to end; a zero
// end means series end, a set end bounds the lot window end-exclusively. For
// Intraday the window is the reference day's minute bars.
func (tf Timeframe) Select(daily *models.Series, intraday *models.IntradaySeries, ref, start, end time.Time) Window {
	switch tf.Kind {
	case SingleDay:
		if start.IsZero() || !ref.Equal(start) {
			return Window{}
		}
		i := daily.IndexOf(ref)
		if i < 0 || !daily.Bars[i].Date.Equal(ref) {
			return Window{}
		}
		return Window{Series: daily, Lo: i, Hi: i + 1}

	case DayRange:
		lo := daily.IndexOf(ref)
		if lo < 0 {
			return Window{}
		}
		if end.IsZero() {
			return Window{Series: daily, Lo: lo, Hi: daily.Len()}
		}
		// Bars in [ref, end). The end bound is exclusive: when a later lot
		// opens on the end date, that bar belongs to the next lot's window.
		hi := sort.Search(daily.Len(), func(i int) bool {
			return !daily.Bars[i].Date.Before(end)
		})
		return Window{Series: daily, Lo: lo, Hi: hi}

	case Intraday:
		bars := intraday.Day(ref)
		if len(bars) == 0 {
			return Window{}
		}
		s, err := models.NewSeries(daily.Ticker, bars)
		if err != nil {
			return Window{}
		}
		return Window{Series: s, Lo: 0, Hi: s.Len()}
	}
	return Window{}
}
