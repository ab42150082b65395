// Package indicators derives computed columns from rule text. It scans the
// text of every rule's expressions for indicator references, resolves their
// dependencies through an explicit graph, and enriches the bar series so that
// every referenced column exists before evaluation.
package indicators

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"

	"plumsim/internal/errors"
	"plumsim/internal/models"
)

// Family identifies a formula family.
type Family int

const (
	FamMA Family = iota
	FamEMA
	FamTrend
	FamRange
	FamADR
	FamPrevClose
	FamPrevOpen
	FamPrevHigh
	FamPrevLow
	FamGapOpen
	FamPrevOpenCloseRange
	FamPrevRange
	FamDayOfWeek
)

// Request is one indicator reference found in rule text. Name is the column
// name exactly as written; Period carries the family default when the suffix
// is absent.
type Request struct {
	Name   string
	Family Family
	Period int
}

type pattern struct {
	re         *regexp.Regexp
	family     Family
	defPeriod  int
	needSuffix bool
}

// Longer prefixes come first so PrevOpenCloseRange is not claimed by
// PrevOpen.
var patterns = []pattern{
	{regexp.MustCompile(`^(?i)prevopencloserange(\d{1,2})?$`), FamPrevOpenCloseRange, 1, false},
	{regexp.MustCompile(`^(?i)prevrange(\d{1,2})?$`), FamPrevRange, 1, false},
	{regexp.MustCompile(`^(?i)prevclose(\d{1,2})?$`), FamPrevClose, 1, false},
	{regexp.MustCompile(`^(?i)prevopen(\d{1,2})?$`), FamPrevOpen, 1, false},
	{regexp.MustCompile(`^(?i)(?:prevdayhigh|prevhigh)(\d{1,2})?$`), FamPrevHigh, 1, false},
	{regexp.MustCompile(`^(?i)prevlow(\d{1,2})?$`), FamPrevLow, 1, false},
	{regexp.MustCompile(`^(?i)gapopen(\d{1,2})?$`), FamGapOpen, 1, false},
	{regexp.MustCompile(`^(?i)dayofweek$`), FamDayOfWeek, 0, false},
	{regexp.MustCompile(`^(?i)trend(\d{1,2})$`), FamTrend, 0, true},
	{regexp.MustCompile(`^(?i)range$`), FamRange, 0, false},
	{regexp.MustCompile(`^(?i)adr(\d{1,2})?$`), FamADR, 20, false},
	{regexp.MustCompile(`^(?i)ema(\d{1,2})$`), FamEMA, 0, true},
	{regexp.MustCompile(`^(?i)ma(\d{1,2})$`), FamMA, 0, true},
}

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// parseRef matches one identifier against the indicator patterns. ok is
// false for plain identifiers (parameters, raw fields).
func parseRef(ident string) (Request, bool, error) {
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(ident)
		if m == nil {
			continue
		}
		period := p.defPeriod
		if len(m) > 1 && m[1] != "" {
			period, _ = strconv.Atoi(m[1])
			if period <= 0 {
				return Request{}, false, errors.Wrap(errors.ErrInvalidPeriod, ident)
			}
		}
		return Request{Name: ident, Family: p.family, Period: period}, true, nil
	}
	return Request{}, false, nil
}

// ScanRefs extracts indicator references from rule text in first-occurrence
// order.
func ScanRefs(text string) ([]Request, error) {
	var refs []Request
	seen := make(map[string]bool)
	for _, ident := range identRe.FindAllString(text, -1) {
		if seen[ident] {
			continue
		}
		seen[ident] = true
		req, ok, err := parseRef(ident)
		if err != nil {
			return nil, err
		}
		if ok {
			refs = append(refs, req)
		}
	}
	return refs, nil
}

// Compiler derives indicator columns with transitive dependencies.
type Compiler struct {
	logger zerolog.Logger
}

// New creates an indicator compiler.
func New(logger zerolog.Logger) *Compiler {
	return &Compiler{logger: logger}
}

// Compile guarantees that every indicator referenced by the rule texts
// exists as a column on the series. Dependency columns created only to
// satisfy a request are removed afterwards. Compiling the same text twice is
// idempotent.
func (c *Compiler) Compile(s *models.Series, texts []string) error {
	requested := make(map[string]bool)
	var order []Request
	for _, text := range texts {
		refs, err := ScanRefs(text)
		if err != nil {
			return err
		}
		for _, r := range refs {
			if !requested[r.Name] {
				requested[r.Name] = true
				order = append(order, r)
			}
		}
	}

	created := make(map[string]bool) // dependency-only columns
	visiting := make(map[string]bool)
	for _, r := range order {
		if err := c.ensure(s, r, requested, created, visiting); err != nil {
			return err
		}
	}

	// Drop dependency-only columns unless independently requested.
	for name := range created {
		if !requested[name] {
			s.DropColumn(name)
		}
	}
	return nil
}

func (c *Compiler) ensure(s *models.Series, r Request, requested, created, visiting map[string]bool) error {
	if s.HasColumn(r.Name) {
		return nil
	}
	if visiting[r.Name] {
		return errors.Wrap(errors.ErrDependencyCycle, r.Name)
	}
	visiting[r.Name] = true
	defer delete(visiting, r.Name)

	for _, dep := range dependencies(r) {
		if !s.HasColumn(dep.Name) && !requested[dep.Name] {
			created[dep.Name] = true
		}
		if err := c.ensure(s, dep, requested, created, visiting); err != nil {
			return err
		}
	}

	c.logger.Debug().Str("column", r.Name).Msg("computing indicator")
	return compute(s, r)
}

// dependencies maps a request to the columns its formula reads.
func dependencies(r Request) []Request {
	suffix := func(n int) string {
		if n == 1 {
			return ""
		}
		return strconv.Itoa(n)
	}
	switch r.Family {
	case FamTrend:
		return []Request{{Name: fmt.Sprintf("MA%d", r.Period), Family: FamMA, Period: r.Period}}
	case FamADR:
		return []Request{{Name: "Range", Family: FamRange}}
	case FamGapOpen:
		return []Request{{Name: "PrevClose" + suffix(r.Period), Family: FamPrevClose, Period: r.Period}}
	case FamPrevOpenCloseRange:
		return []Request{
			{Name: "PrevClose" + suffix(r.Period), Family: FamPrevClose, Period: r.Period},
			{Name: "PrevOpen" + suffix(r.Period), Family: FamPrevOpen, Period: r.Period},
		}
	case FamPrevRange:
		return []Request{
			{Name: "PrevHigh" + suffix(r.Period), Family: FamPrevHigh, Period: r.Period},
			{Name: "PrevLow" + suffix(r.Period), Family: FamPrevLow, Period: r.Period},
		}
	}
	return nil
}
