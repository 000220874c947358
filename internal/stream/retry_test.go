package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryHandler_Backoff(t *testing.T) {
	h := NewRetryHandler(nil, "dlq")

	assert.Equal(t, 500*time.Millisecond, h.Backoff(1))
	assert.Equal(t, time.Second, h.Backoff(2))
	assert.Equal(t, 2*time.Second, h.Backoff(3))
	assert.Equal(t, 10*time.Second, h.Backoff(10))
	assert.Equal(t, 10*time.Second, h.Backoff(80))
	assert.Equal(t, 500*time.Millisecond, h.Backoff(0))
}

func TestRetryHandler_RetriesUntilSuccess(t *testing.T) {
	h := NewRetryHandler(nil, "dlq")
	h.baseDelay = time.Millisecond

	calls := 0
	err := h.RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, "1-0", nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryHandler_StopsOnCancel(t *testing.T) {
	h := NewRetryHandler(nil, "dlq")
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := h.RetryWithBackoff(ctx, func() error {
		calls++
		cancel()
		return errors.New("down")
	}, "1-0", nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
