package strategy

import (
	"time"

	"plumsim/internal/expr"
)

// Reserved parameter names read by the engine and aggregator.
const (
	ParamDispersion      = "DISPERSION"
	ParamMaxPositionSize = "MAX_POSITION_SIZE"
	ParamInitCap         = "INIT_CAP"
	ParamCompound        = "COMPOUND"
	ParamStartDate       = "START_DATE"
	ParamEndDate         = "END_DATE"
)

// Params holds the run parameters of a loaded strategy. Every condition
// expression can read them; they are set once per load and read-only during
// a run.
type Params struct {
	values map[string]expr.Value
}

// NewParams creates an empty parameter set.
func NewParams() *Params {
	return &Params{values: make(map[string]expr.Value)}
}

// Set stores a parameter value.
func (p *Params) Set(name string, v expr.Value) {
	p.values[name] = v
}

// Lookup implements expr.Scope.
func (p *Params) Lookup(name string) (expr.Value, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Float returns a numeric parameter or the default.
func (p *Params) Float(name string, def float64) float64 {
	if v, ok := p.values[name]; ok && v.Kind == expr.KindNumber {
		return v.Num
	}
	return def
}

// Bool returns a boolean parameter or the default.
func (p *Params) Bool(name string, def bool) bool {
	if v, ok := p.values[name]; ok {
		switch v.Kind {
		case expr.KindBool:
			return v.Bool
		case expr.KindNumber:
			return v.Num != 0
		}
	}
	return def
}

// Date returns a date parameter parsed as YYYY-MM-DD. ok is false when the
// parameter is absent or malformed.
func (p *Params) Date(name string) (time.Time, bool) {
	v, ok := p.values[name]
	if !ok || v.Kind != expr.KindString {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", v.Str)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Names returns the parameter names (unordered).
func (p *Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for n := range p.values {
		names = append(names, n)
	}
	return names
}
