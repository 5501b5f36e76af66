package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestCaller_RetriesTransientFailures(t *testing.T) {
	calls := 0
	err := Caller{Policy: fastPolicy(3)}.Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestCaller_StopsAfterAttempts(t *testing.T) {
	calls := 0
	err := Caller{Policy: fastPolicy(2)}.Do(context.Background(), "op", func() error {
		calls++
		return errors.New("still down")
	})
	require.Error(t, err)
	assert.Equal(t, "still down", err.Error())
	assert.Equal(t, 2, calls)
}

func TestCaller_PermanentErrorsAreNotRetried(t *testing.T) {
	sentinel := errors.New("bad request")
	calls := 0
	err := Caller{Policy: fastPolicy(5)}.Do(context.Background(), "op", func() error {
		calls++
		return Permanent(sentinel)
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestCaller_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Caller{Policy: fastPolicy(5), Limiter: rate.NewLimiter(rate.Inf, 1)}.Do(ctx, "op", func() error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestPolicyDefaults(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, 7, p.WithAttempts(7).Attempts)
	assert.Equal(t, 3, p.WithAttempts(0).Attempts)
	assert.Nil(t, Permanent(nil))
}

func TestRetryable(t *testing.T) {
	for _, code := range []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable} {
		assert.True(t, Retryable(code), code)
	}
	for _, code := range []int{http.StatusOK, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity} {
		assert.False(t, Retryable(code), code)
	}
}
