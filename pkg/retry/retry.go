package retry

import (
	"fmt"
	"log"
	"time"
)

// Policy retries an operation with exponential backoff. One policy value is
// shared by every persistence call so the knobs live in a single place.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Default matches the pipeline's contract: up to 3 attempts, delay doubling
// from a 1-second base.
func Default() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Do runs fn until it succeeds or attempts are exhausted. The returned error
// wraps the last failure with the operation name and attempt count.
func (p Policy) Do(op string, fn func() error) error {
	delay := p.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt < p.MaxAttempts {
			log.Printf("[Retry] %s attempt %d/%d failed, retrying in %s: %v", op, attempt, p.MaxAttempts, delay, lastErr)
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, p.MaxAttempts, lastErr)
}
