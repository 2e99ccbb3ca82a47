// Package ai writes narration scripts through an ordered chain of providers,
// falling through to the next provider on recoverable failures.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/fallback"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

const defaultAttemptTimeout = 45 * time.Second

// ErrEmptyScript is returned when a provider answers with no usable text
var ErrEmptyScript = errors.New("provider returned an empty script")

// Failure is one provider's reason for not producing a script
type Failure struct {
	Provider string
	Err      error
}

// ExhaustedError means every provider in the chain failed recoverably
type ExhaustedError struct {
	Failures []Failure
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Provider, f.Err))
	}
	return "all ai providers failed: " + strings.Join(parts, "; ")
}

func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// AbortedError means a provider failed in a way that must not be retried elsewhere
type AbortedError struct {
	Provider string
	Err      error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("ai provider %s failed: %v", e.Provider, e.Err)
}

func (e *AbortedError) Unwrap() error {
	return e.Err
}

// ChainOptions tunes the chain
type ChainOptions struct {
	// AttemptTimeout bounds each provider call
	AttemptTimeout time.Duration
	Style          string
}

// Chain tries AI providers strictly in order
type Chain struct {
	providers []provider.NamedAI
	opts      ChainOptions
	logger    *logging.Logger
}

// NewChain creates a chain over providers in fallback order
func NewChain(providers []provider.NamedAI, opts ChainOptions, logger *logging.Logger) *Chain {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = defaultAttemptTimeout
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Chain{providers: providers, opts: opts, logger: logger}
}

// Names returns the providers in the order they are tried
func (c *Chain) Names() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name
	}
	return names
}

// Generate writes a script for item. The result's metadata names the
// provider that produced it.
func (c *Chain) Generate(ctx context.Context, item models.ContentItem) (models.ScriptResult, error) {
	prompt := BuildPrompt(item, c.opts.Style)

	strategies := make([]fallback.Strategy[models.ScriptResult], 0, len(c.providers))
	for _, p := range c.providers {
		p := p
		strategies = append(strategies, fallback.Strategy[models.ScriptResult]{
			Name: p.Name,
			Run: func(ctx context.Context) (models.ScriptResult, error) {
				return c.attempt(ctx, p, prompt)
			},
		})
	}

	result, err := fallback.Run(ctx, strategies,
		fallback.WithRecoverable(provider.IsRecoverable),
		fallback.WithOnFailure(func(a fallback.Attempt) {
			metrics.RecordAIAttempt(a.Name, outcome(a.Err))
			c.logger.LogProviderAttempt("ai", a.Name, a.Duration, a.Err)
		}),
	)
	if err != nil {
		var exhausted *fallback.ExhaustedError
		var aborted *fallback.AbortedError
		switch {
		case errors.As(err, &exhausted):
			failures := make([]Failure, 0, len(exhausted.Attempts))
			for _, a := range exhausted.Attempts {
				failures = append(failures, Failure{Provider: a.Name, Err: a.Err})
			}
			return models.ScriptResult{}, &ExhaustedError{Failures: failures}
		case errors.As(err, &aborted):
			return models.ScriptResult{}, &AbortedError{Provider: aborted.Strategy, Err: aborted.Err}
		case errors.Is(err, fallback.ErrNoStrategies):
			return models.ScriptResult{}, &ExhaustedError{}
		default:
			return models.ScriptResult{}, err
		}
	}

	winner := result.Attempts[len(result.Attempts)-1]
	metrics.RecordAIAttempt(result.Winner, "success")
	c.logger.LogProviderAttempt("ai", result.Winner, winner.Duration, nil)
	if len(result.Attempts) > 1 {
		c.logger.WithProvider(result.Winner).Infof("script generated by fallback provider after %d failures", len(result.Attempts)-1)
	}

	script := result.Value
	script.Metadata.Provider = result.Winner
	return script, nil
}

func (c *Chain) attempt(ctx context.Context, p provider.NamedAI, prompt models.Prompt) (models.ScriptResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.AttemptTimeout)
	defer cancel()

	script, err := p.Provider.Generate(attemptCtx, prompt)
	if err != nil {
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && provider.Class(err) == nil {
			return script, fmt.Errorf("%w: no answer within %s: %w", provider.ErrProviderTimeout, c.opts.AttemptTimeout, err)
		}
		return script, provider.Classify(err)
	}

	if strings.TrimSpace(script.Narration()) == "" {
		return script, fmt.Errorf("%w: %w", provider.ErrProviderUnavailable, ErrEmptyScript)
	}
	return script, nil
}

func outcome(err error) string {
	switch provider.Class(err) {
	case provider.ErrProviderTimeout:
		return "timeout"
	case provider.ErrRateLimited:
		return "rate_limited"
	case provider.ErrProviderUnavailable:
		return "unavailable"
	case provider.ErrUnsupportedContent:
		return "unsupported"
	default:
		if errors.Is(err, context.Canceled) {
			return "cancelled"
		}
		return "error"
	}
}
