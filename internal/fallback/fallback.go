// Package fallback runs an ordered list of degrading strategies until one succeeds.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoStrategies is returned when Run is given nothing to try
var ErrNoStrategies = errors.New("no strategies configured")

// Strategy is one way of producing a T
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Attempt records the outcome of one strategy
type Attempt struct {
	Name     string
	Err      error
	Duration time.Duration
}

// Result is the winning value and the attempts that led to it
type Result[T any] struct {
	Value    T
	Winner   string
	Attempts []Attempt
}

// Failures returns only the failed attempts
func (r Result[T]) Failures() []Attempt {
	var failed []Attempt
	for _, a := range r.Attempts {
		if a.Err != nil {
			failed = append(failed, a)
		}
	}
	return failed
}

// ExhaustedError means every strategy failed with a recoverable error
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	return "all strategies failed: " + describe(e.Attempts)
}

// Unwrap exposes every attempt error to errors.Is and errors.As
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// AbortedError means a strategy failed with an error the policy refused to skip
type AbortedError struct {
	Strategy string
	Err      error
	Attempts []Attempt
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("strategy %s failed: %v", e.Strategy, e.Err)
}

func (e *AbortedError) Unwrap() error {
	return e.Err
}

func describe(attempts []Attempt) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Name, a.Err))
	}
	return strings.Join(parts, "; ")
}

type options struct {
	recoverable func(error) bool
	onFailure   func(Attempt)
}

// Option configures Run
type Option func(*options)

// WithRecoverable sets which errors move on to the next strategy.
// Everything is recoverable by default.
func WithRecoverable(fn func(error) bool) Option {
	return func(o *options) {
		o.recoverable = fn
	}
}

// WithOnFailure registers a hook called after each failed attempt
func WithOnFailure(fn func(Attempt)) Option {
	return func(o *options) {
		o.onFailure = fn
	}
}

// Run tries strategies strictly in order and returns the first success.
// Cancellation of ctx stops the chain before the next attempt starts.
func Run[T any](ctx context.Context, strategies []Strategy[T], opts ...Option) (Result[T], error) {
	o := options{recoverable: func(error) bool { return true }}
	for _, opt := range opts {
		opt(&o)
	}

	var result Result[T]
	if len(strategies) == 0 {
		return result, ErrNoStrategies
	}

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		start := time.Now()
		value, err := s.Run(ctx)
		attempt := Attempt{Name: s.Name, Err: err, Duration: time.Since(start)}
		result.Attempts = append(result.Attempts, attempt)

		if err == nil {
			result.Value = value
			result.Winner = s.Name
			return result, nil
		}

		if o.onFailure != nil {
			o.onFailure(attempt)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("%s: %w", s.Name, ctxErr)
		}

		if !o.recoverable(err) {
			return result, &AbortedError{Strategy: s.Name, Err: err, Attempts: result.Attempts}
		}
	}

	return result, &ExhaustedError{Attempts: result.Failures()}
}
