// Package retry paces and retries calls to remote collaborators (the REST API, GitHub
// and the object store).
package retry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Policy bounds the exponential backoff applied to a failing call.
type Policy struct {
	// Attempts is the total number of tries, including the first one.
	Attempts int
	// InitialInterval is the wait before the first retry.
	InitialInterval time.Duration
	// MaxInterval caps the wait between retries.
	MaxInterval time.Duration
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:        3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// WithAttempts returns a copy of p with the given attempt count. Values below one are ignored.
func (p Policy) WithAttempts(n int) Policy {
	if n > 0 {
		p.Attempts = n
	}
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	// The attempt count is the only bound.
	b.MaxElapsedTime = 0

	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Retryable reports whether an HTTP status code signals a transient failure.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Caller runs operations under a shared rate limiter and retry policy.
type Caller struct {
	Policy  Policy
	Limiter *rate.Limiter
	Logger  *zap.Logger
}

// Do runs op until it succeeds, returns a Permanent error, the attempts run out, or ctx
// is done. The limiter is consulted before every attempt. The last error is returned
// unwrapped from its Permanent marker.
func (c Caller) Do(ctx context.Context, name string, op func() error) error {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	attempt := 0
	operation := func() error {
		attempt++
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		var perm *backoff.PermanentError
		if !errors.As(err, &perm) {
			logger.Debug("Transient failure, retrying.",
				zap.String("operation", name),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return err
	}
	return backoff.Retry(operation, c.Policy.backOff(ctx))
}
