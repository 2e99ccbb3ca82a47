package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusUnauthorized, ErrProviderUnavailable},
		{http.StatusForbidden, ErrProviderUnavailable},
		{http.StatusNotFound, ErrProviderUnavailable},
		{http.StatusInternalServerError, ErrProviderUnavailable},
		{http.StatusServiceUnavailable, ErrProviderUnavailable},
		{http.StatusGatewayTimeout, ErrProviderTimeout},
		{http.StatusBadRequest, ErrUnsupportedContent},
		{http.StatusUnprocessableEntity, ErrUnsupportedContent},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyHTTPStatus(tt.code))
		})
	}
}

func TestIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(fmt.Errorf("wrapped: %w", ErrRateLimited)))
	assert.True(t, IsRecoverable(ErrProviderTimeout))
	assert.True(t, IsRecoverable(ErrProviderUnavailable))
	assert.False(t, IsRecoverable(ErrUnsupportedContent))
	assert.False(t, IsRecoverable(errors.New("boom")))
	assert.False(t, IsRecoverable(nil))
}

func TestClassify(t *testing.T) {
	t.Run("DeadlineIsTimeout", func(t *testing.T) {
		err := Classify(fmt.Errorf("request: %w", context.DeadlineExceeded))
		assert.ErrorIs(t, err, ErrProviderTimeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("CancelUnchanged", func(t *testing.T) {
		err := Classify(context.Canceled)
		assert.Nil(t, Class(err))
	})

	t.Run("StatusError", func(t *testing.T) {
		err := Classify(&StatusError{StatusCode: 429})
		assert.ErrorIs(t, err, ErrRateLimited)
	})

	t.Run("AlreadyClassified", func(t *testing.T) {
		in := fmt.Errorf("%w: quota", ErrRateLimited)
		assert.Equal(t, in, Classify(in))
	})
}

func TestCheckResponse(t *testing.T) {
	ok := &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(""))}
	assert.NoError(t, CheckResponse(ok))

	limited := &http.Response{StatusCode: 429, Body: io.NopCloser(strings.NewReader("slow down"))}
	err := CheckResponse(limited)
	assert.ErrorIs(t, err, ErrRateLimited)

	var statusErr *StatusError
	if assert.ErrorAs(t, err, &statusErr) {
		assert.Equal(t, 429, statusErr.StatusCode)
		assert.Equal(t, "slow down", statusErr.Body)
	}
}
