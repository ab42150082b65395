package indicators

import (
	"fmt"
	"math"

	"plumsim/internal/errors"
	"plumsim/internal/models"
)

// compute fills in one column. Dependencies are already present.
func compute(s *models.Series, r Request) error {
	n := s.Len()
	switch r.Family {
	case FamMA:
		return s.SetColumn(r.Name, sma(closes(s), r.Period))

	case FamEMA:
		return s.SetColumn(r.Name, ema(closes(s), r.Period))

	case FamTrend:
		dep := dependencies(r)[0].Name
		ma, ok := s.Column(dep)
		if !ok {
			return errors.Wrap(errors.ErrUnknownIndicator, dep)
		}
		// EMA of span 5 over the moving average.
		return s.SetColumn(r.Name, ema(ma, 5))

	case FamRange:
		vals := make([]float64, n)
		for i, b := range s.Bars {
			if b.Low == 0 {
				vals[i] = math.NaN()
				continue
			}
			vals[i] = b.High/b.Low - 1
		}
		return s.SetColumn(r.Name, vals)

	case FamADR:
		rng, ok := s.Column("Range")
		if !ok {
			return errors.Wrap(errors.ErrUnknownIndicator, "Range")
		}
		return s.SetColumn(r.Name, sma(rng, r.Period))

	case FamPrevClose:
		return s.SetColumn(r.Name, shift(closes(s), r.Period))
	case FamPrevOpen:
		return s.SetColumn(r.Name, shift(opens(s), r.Period))
	case FamPrevHigh:
		return s.SetColumn(r.Name, shift(highs(s), r.Period))
	case FamPrevLow:
		return s.SetColumn(r.Name, shift(lows(s), r.Period))

	case FamGapOpen:
		prev, ok := s.Column(dependencies(r)[0].Name)
		if !ok {
			return errors.Wrap(errors.ErrUnknownIndicator, r.Name)
		}
		vals := make([]float64, n)
		for i, b := range s.Bars {
			vals[i] = ratio(b.Open-prev[i], prev[i])
		}
		return s.SetColumn(r.Name, vals)

	case FamPrevOpenCloseRange:
		deps := dependencies(r)
		pc, ok1 := s.Column(deps[0].Name)
		po, ok2 := s.Column(deps[1].Name)
		if !ok1 || !ok2 {
			return errors.Wrap(errors.ErrUnknownIndicator, r.Name)
		}
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = ratio(pc[i]-po[i], pc[i])
		}
		return s.SetColumn(r.Name, vals)

	case FamPrevRange:
		deps := dependencies(r)
		ph, ok1 := s.Column(deps[0].Name)
		pl, ok2 := s.Column(deps[1].Name)
		if !ok1 || !ok2 {
			return errors.Wrap(errors.ErrUnknownIndicator, r.Name)
		}
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = ratio(ph[i]-pl[i], pl[i])
		}
		return s.SetColumn(r.Name, vals)

	case FamDayOfWeek:
		vals := make([]string, n)
		for i, b := range s.Bars {
			vals[i] = b.Date.Weekday().String()
		}
		return s.SetStringColumn(r.Name, vals)
	}
	return errors.Wrap(errors.ErrUnknownIndicator, fmt.Sprintf("family %d", r.Family))
}

func closes(s *models.Series) []float64 {
	vals := make([]float64, s.Len())
	for i, b := range s.Bars {
		vals[i] = b.Close
	}
	return vals
}

func opens(s *models.Series) []float64 {
	vals := make([]float64, s.Len())
	for i, b := range s.Bars {
		vals[i] = b.Open
	}
	return vals
}

func highs(s *models.Series) []float64 {
	vals := make([]float64, s.Len())
	for i, b := range s.Bars {
		vals[i] = b.High
	}
	return vals
}

func lows(s *models.Series) []float64 {
	vals := make([]float64, s.Len())
	for i, b := range s.Bars {
		vals[i] = b.Low
	}
	return vals
}

// sma is a trailing mean over period bars; cells with insufficient history
// are NaN. NaN inputs inside the window also yield NaN.
func sma(vals []float64, period int) []float64 {
	out := make([]float64, len(vals))
	for i := range out {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += vals[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

// ema is a span-weighted exponential moving average. Weights follow the
// adjusted form sum((1-a)^k * x) / sum((1-a)^k), defined from the first
// valued cell onward; leading NaNs stay NaN.
func ema(vals []float64, span int) []float64 {
	out := make([]float64, len(vals))
	alpha := 2.0 / float64(span+1)
	decay := 1 - alpha
	num, den := 0.0, 0.0
	started := false
	for i, v := range vals {
		if math.IsNaN(v) {
			if !started {
				out[i] = math.NaN()
				continue
			}
			// Carry the running average across a gap.
			out[i] = num / den
			continue
		}
		started = true
		num = v + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out
}

// shift returns vals moved forward by lag bars.
func shift(vals []float64, lag int) []float64 {
	out := make([]float64, len(vals))
	for i := range out {
		if i < lag {
			out[i] = math.NaN()
			continue
		}
		out[i] = vals[i-lag]
	}
	return out
}

func ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsNaN(num) {
		return math.NaN()
	}
	return num / den
}
