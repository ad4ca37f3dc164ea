package transport

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// retry calls fn up to attempts times, at most once per delay. It stops early
// when fn succeeds, when fn returns a permanent error, or when ctx ends.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func(attempt int) error) error {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if werr := limiter.Wait(ctx); werr != nil {
			if err == nil {
				err = werr
			}
			return fmt.Errorf("%w: gave up after %d attempts: %v", ErrTransport, attempt-1, err)
		}
		if err = fn(attempt); err == nil {
			return nil
		}
		if pe, ok := err.(permanentError); ok {
			return pe.err
		}
	}
	return fmt.Errorf("%w: gave up after %d attempts: %v", ErrTransport, attempts, err)
}

// permanentError stops a retry loop immediately.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }

func permanent(err error) error { return permanentError{err: err} }

// sleep waits for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
