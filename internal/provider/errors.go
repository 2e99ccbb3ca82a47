package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// Registry errors
var (
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrDuplicateKind    = errors.New("provider kind already registered")
	ErrWrongCapability  = errors.New("provider does not implement the requested capability")
	ErrNoProviderForSet = errors.New("no provider configured")
)

// Provider failure classes. The first three are recoverable inside a fallback chain.
var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderTimeout     = errors.New("provider timeout")
	ErrRateLimited         = errors.New("provider rate limited")
	ErrUnsupportedContent  = errors.New("unsupported content")
)

// InitError reports a provider whose constructor failed
type InitError struct {
	Kind Kind
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("provider %s: init failed: %v", e.Kind, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx response from a provider API
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// IsRecoverable reports whether err belongs to a class a fallback chain may skip past
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrProviderTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// Class returns the failure class sentinel err carries, or nil
func Class(err error) error {
	for _, class := range []error{ErrProviderTimeout, ErrRateLimited, ErrProviderUnavailable, ErrUnsupportedContent} {
		if errors.Is(err, class) {
			return class
		}
	}
	return nil
}

// ClassifyHTTPStatus maps a response status to a failure class.
// Authentication failures count as unavailable so a misconfigured provider
// does not stop the chain.
func ClassifyHTTPStatus(code int) error {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ErrProviderTimeout
	case code == http.StatusUnauthorized || code == http.StatusForbidden || code == http.StatusPaymentRequired:
		return ErrProviderUnavailable
	case code == http.StatusNotFound:
		return ErrProviderUnavailable
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity || code == http.StatusRequestEntityTooLarge:
		return ErrUnsupportedContent
	case code >= 500:
		return ErrProviderUnavailable
	default:
		return ErrProviderUnavailable
	}
}

// Classify attaches a failure class to a transport-level error. Errors that
// already carry a class are returned unchanged.
func Classify(err error) error {
	if err == nil || Class(err) != nil {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrProviderTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %w", ErrProviderTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("%w: %w", ClassifyHTTPStatus(statusErr.StatusCode), err)
	}
	return err
}

// CheckResponse returns a classified error for non-2xx responses
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
	return fmt.Errorf("%w: %w", ClassifyHTTPStatus(resp.StatusCode), statusErr)
}
