package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrQuotaExceeded signals the provider's request quota is exhausted.
// Terminal for the current run, non-fatal for the process: strategies
// return it alongside whatever candidates they already yielded.
var ErrQuotaExceeded = errors.New("provider quota exceeded")

// TransientError wraps a failure worth retrying (timeouts, 5xx).
// Retry policy is owned by the strategy that produced it.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps a failure that makes the current candidate or
// request unusable (not found, malformed payload). The strategy skips
// it and continues the sequence.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return fmt.Sprintf("permanent: %v", e.Err) }
func (e *PermanentError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err marks the candidate as skippable.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// withRetry runs fn up to attempts times, sleeping backoff (doubled
// each round) between transient failures. Non-transient errors return
// immediately.
func withRetry(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !IsTransient(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
