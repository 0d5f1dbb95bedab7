package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// callWithRetry runs fn with a per-attempt timeout, retrying failures
// with doubling backoff up to the configured bound. Attempts that keep
// exceeding their deadline surface as ErrUpstreamTimeout; cancellation of
// the parent context surfaces as ErrCancelled.
func (p *Pipeline) callWithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := p.config.RetryBackoff
	if backoff <= 0 {
		backoff = DefaultConfig().RetryBackoff
	}

	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if p.config.CallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, p.config.CallTimeout)
		}
		err := fn(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		// Parent cancellation is terminal, not retryable
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}

		if attempt < p.config.MaxRetries {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
			}
			backoff *= 2
		}
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, lastErr)
	}
	return lastErr
}
