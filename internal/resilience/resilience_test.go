package resilience

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyAndClassOf(t *testing.T) {
	err := Classify(ClassBadRequest, errors.New("bad input"))
	assert.Equal(t, ClassBadRequest, ClassOf(err))
	assert.Contains(t, err.Error(), "bad input")

	wrapped := errors.Join(errors.New("outer"), err)
	assert.Equal(t, ClassBadRequest, ClassOf(wrapped))

	assert.Empty(t, ClassOf(errors.New("plain")))
	assert.Empty(t, ClassOf(nil))
	assert.Nil(t, Classify(ClassBadRequest, nil))
}

func TestClassifyTruncatesUpstreamBody(t *testing.T) {
	long := strings.Repeat("x", 2000)
	err := Classify(ClassUpstreamGateway, errors.New(long))
	assert.LessOrEqual(t, len(err.Error()), maxDiagnosticLen+len(string(ClassUpstreamGateway))+2)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(NewTransientError(errors.New("x"), 503)))
	assert.True(t, IsTransient(errors.New("read tcp: connection reset by peer")))
	assert.True(t, IsTransient(errors.New("dial tcp: i/o timeout")))
	assert.False(t, IsTransient(errors.New("invalid input")))
	assert.False(t, IsTransient(nil))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "code %d", code)
	}
	for _, code := range []int{200, 400, 401, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "code %d", code)
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	var calls int
	err := Do(context.Background(), RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("flaky"), 503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	var calls int
	err := Do(context.Background(), RetryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond}, func(context.Context) error {
		calls++
		return errors.New("permanent")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	err := Do(ctx, RetryConfig{MaxAttempts: 10, InitialBackoff: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("flaky"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	var calls int
	err := Do(context.Background(), RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}, func(context.Context) error {
		calls++
		return NewTransientError(errors.New("always"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}
