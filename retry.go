package durable

// RetryPolicy is an immutable declaration of retry limits and backoff
// schedule for a step. A nil *RetryPolicy disables retry persistence
// entirely: a failing step is marked FAILED without retry_count or
// next_retry_at, and every subsequent invocation re-runs the closure.
type RetryPolicy struct {
	MaxAttempts      int
	InitialBackoffMs int64
}

// BackoffForAttempt computes the advisory delay, in milliseconds, before
// attempt should be retried. Pure exponential, no jitter:
// initialBackoffMs * 2^(attempt-1).
func (p *RetryPolicy) BackoffForAttempt(attempt int) int64 {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 62 {
		attempt = 62 // unspecified behavior beyond this; avoid overflow
	}
	return p.InitialBackoffMs * (int64(1) << uint(attempt-1))
}

// Standard presets.
var (
	RetryDefault    = &RetryPolicy{MaxAttempts: 3, InitialBackoffMs: 1000}
	RetryAggressive = &RetryPolicy{MaxAttempts: 5, InitialBackoffMs: 500}
	RetryNone       = &RetryPolicy{MaxAttempts: 1, InitialBackoffMs: 0}
)
