// Package expr implements the bounded expression language used by strategy
// rule conditions. Expressions are parsed once into an AST and evaluated per
// bar against read-only scopes; a reference to a missing or valueless field
// evaluates to the undefined value, which never satisfies a condition.
package expr

import "strconv"

// Kind discriminates the evaluation result types.
type Kind int

const (
	KindUndefined Kind = iota
	KindNumber
	KindBool
	KindString
)

// Value is a typed evaluation result.
type Value struct {
	Kind Kind
	Num  float64
	Bool bool
	Str  string
}

// Undefined is the "no value" result.
var Undefined = Value{Kind: KindUndefined}

// Number wraps a float64 as a Value.
func Number(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// Boolean wraps a bool as a Value.
func Boolean(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// String wraps a string as a Value.
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// IsUndefined reports whether the value is undefined.
func (v Value) IsUndefined() bool {
	return v.Kind == KindUndefined
}

// IsTrue reports whether the value satisfies a condition. Undefined is never
// true.
func (v Value) IsTrue() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num != 0
	case KindString:
		return v.Str != ""
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindString:
		return v.Str
	default:
		return "undefined"
	}
}

// Scope resolves identifier names to values.
type Scope interface {
	Lookup(name string) (Value, bool)
}

// MapScope is a Scope backed by a plain map.
type MapScope map[string]Value

// Lookup implements Scope.
func (m MapScope) Lookup(name string) (Value, bool) {
	v, ok := m[name]
	return v, ok
}

// Env is an ordered chain of scopes. Earlier scopes shadow later ones.
type Env struct {
	scopes []Scope
}

// NewEnv creates an environment from scopes in shadowing order.
func NewEnv(scopes ...Scope) *Env {
	return &Env{scopes: scopes}
}

// Lookup resolves a name through the scope chain, falling back to the
// builtin constants.
func (e *Env) Lookup(name string) (Value, bool) {
	for _, s := range e.scopes {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(name); ok {
			return v, ok
		}
	}
	v, ok := builtins[name]
	return v, ok
}

// Weekday names resolve as string constants so conditions can compare
// against the DayOfWeek column without string literals.
var builtins = map[string]Value{
	"Monday":    String("Monday"),
	"Tuesday":   String("Tuesday"),
	"Wednesday": String("Wednesday"),
	"Thursday":  String("Thursday"),
	"Friday":    String("Friday"),
	"Saturday":  String("Saturday"),
	"Sunday":    String("Sunday"),
	"True":      Boolean(true),
	"False":     Boolean(false),
}
