// Package retry wraps a call with a fixed-attempt-count, growing-delay retry
// policy. Cancellation is honored between attempts; there is no in-flight
// interruption because batch jobs run to completion or fail.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/Ishizuka-Ma/Company-Analysis/internal/logger"
)

// Policy is the retry configuration for a single external call.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay after the first failure; grows linearly
}

// Default matches the batch ingestion policy: three attempts, 5s/10s waits.
func Default() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 5 * time.Second}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// Do invokes fn until it succeeds or the attempt budget is exhausted. The
// delay before attempt n+1 is BaseDelay*n. The last error is returned
// unwrapped inside a retry context so errors.Is still matches sentinels.
func (p Policy) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	p = p.withDefaults()
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		wait := time.Duration(attempt) * p.BaseDelay
		logger.Warnf("retry %s: attempt %d/%d failed: %v (next in %s)",
			name, attempt, p.MaxAttempts, lastErr, wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("%s: %d attempts: %w", name, p.MaxAttempts, lastErr)
}
