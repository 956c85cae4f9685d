// Package retry provides bounded exponential backoff retry logic.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"chanfeed/internal/errs"
)

// Config holds retry configuration.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration
	// Multiplier is the exponential backoff multiplier.
	Multiplier float64
	// JitterFraction is the fraction of backoff used for jitter (0.0-1.0).
	JitterFraction float64
}

// DefaultConfig returns three attempts spaced 1s then 2s apart.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     8 * time.Second,
		Multiplier:     2.0,
	}
}

// ErrorClassifier determines if an error is retryable.
type ErrorClassifier func(error) bool

// Notify is called before sleeping ahead of attempt number next.
type Notify func(next int, wait time.Duration, err error)

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that IsRetryable reports false for it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryable is the default error classifier.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}

	switch {
	case errors.Is(err, errs.ErrValidation),
		errors.Is(err, errs.ErrNotFound),
		errors.Is(err, errs.ErrQuotaExceeded),
		errors.Is(err, errs.ErrDuplicate):
		return false
	}

	// Per-attempt timeouts are transient; the caller's own context is
	// checked separately by Do.
	return true
}

// Do executes fn until it succeeds, returns a non-retryable error, the
// attempts are exhausted or ctx is done. After exhaustion the last error is
// returned wrapped in a *RetryableError.
func Do(ctx context.Context, cfg Config, classifier ErrorClassifier, fn func(context.Context) error) error {
	return DoNotify(ctx, cfg, classifier, nil, fn)
}

// DoNotify is Do with a hook invoked before every backoff sleep.
func DoNotify(ctx context.Context, cfg Config, classifier ErrorClassifier, notify Notify, fn func(context.Context) error) error {
	if classifier == nil {
		classifier = IsRetryable
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !classifier(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		sleep := backoff + jitter(backoff, cfg.JitterFraction)
		if cfg.MaxBackoff > 0 && sleep > cfg.MaxBackoff {
			sleep = cfg.MaxBackoff
		}
		if notify != nil {
			notify(attempt+1, sleep, err)
		}

		timer := time.NewTimer(sleep)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}

		backoff = time.Duration(float64(backoff) * cfg.Multiplier)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return &RetryableError{Err: lastErr, Attempts: attempts}
}

// jitter returns a random duration in range [-fraction*d, +fraction*d].
func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return 0
	}
	jitterRange := float64(d) * fraction
	return time.Duration((rand.Float64() - 0.5) * 2 * jitterRange)
}

// RetryableError is returned once every attempt failed with a retryable error.
// It matches errs.ErrTransientNetwork.
type RetryableError struct {
	Err      error
	Attempts int
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// Is reports transient-network kind for exhausted retries.
func (e *RetryableError) Is(target error) bool {
	return target == errs.ErrTransientNetwork
}
