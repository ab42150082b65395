// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Standard sentinel errors
var (
	ErrNoData             = errors.New("no data for instrument")
	ErrSymbolNotFound     = errors.New("symbol not found")
	ErrStrategyNotFound   = errors.New("strategy not found")
	ErrDatabaseError      = errors.New("database error")
	ErrInvalidPeriod      = errors.New("invalid indicator period")
	ErrInsufficientData   = errors.New("insufficient data")
	ErrUnknownIndicator   = errors.New("unknown indicator")
	ErrDependencyCycle    = errors.New("indicator dependency cycle")
	ErrMalformedTimeframe = errors.New("malformed timeframe descriptor")
)

// ConfigError reports a malformed piece of strategy configuration. The
// offending rule is skipped; the run continues.
type ConfigError struct {
	Strategy string
	Rule     string
	Detail   string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error [%s/%s]: %s: %v", e.Strategy, e.Rule, e.Detail, e.Err)
	}
	return fmt.Sprintf("config error [%s/%s]: %s", e.Strategy, e.Rule, e.Detail)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(strategy, rule, detail string, err error) *ConfigError {
	return &ConfigError{Strategy: strategy, Rule: rule, Detail: detail, Err: err}
}

// EvalError reports an expression that could not be evaluated. It is treated
// as a non-trigger, never as a fatal error.
type EvalError struct {
	Expr   string
	Detail string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("eval error [%s]: %s", e.Expr, e.Detail)
}

// NewEvalError creates a new EvalError.
func NewEvalError(expr, detail string) *EvalError {
	return &EvalError{Expr: expr, Detail: detail}
}

// DataError reports a missing or empty bar series. The affected instrument
// yields an empty result; other instruments are unaffected.
type DataError struct {
	Ticker string
	Period string
	Err    error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s %s]: %v", e.Ticker, e.Period, e.Err)
	}
	return fmt.Sprintf("data error [%s %s]", e.Ticker, e.Period)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(ticker, period string, err error) *DataError {
	return &DataError{Ticker: ticker, Period: period, Err: err}
}

// InvariantError reports a broken engine invariant, fatal for one
// instrument's run only. It carries enough context to reproduce.
type InvariantError struct {
	Ticker  string
	Date    time.Time
	Detail  string
	BuyQty  float64
	SellQty float64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation [%s %s]: %s (buys=%.4f sells=%.4f)",
		e.Ticker, e.Date.Format("2006-01-02"), e.Detail, e.BuyQty, e.SellQty)
}

// Is reports whether target matches this error kind.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
