package durable

import "time"

// PolicyBuilder provides a fluent way to construct the retry policy and
// stop conditions passed to NewManager:
//
//	mgr := durable.NewMemoryManager(
//	    durable.Retry(3).
//	        WithExponentialBackoff(100*time.Millisecond, 2.0, 2*time.Second).
//	        StopAfter(24*time.Hour).
//	        Options()...,
//	)
type PolicyBuilder struct {
	retry RetryPolicy
	stop  []StopCondition
}

// Retry creates a PolicyBuilder with the given maxAttempts.
//
// maxAttempts <= 0 is treated as 1 (no retries).
func Retry(maxAttempts int) PolicyBuilder {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return PolicyBuilder{
		retry: RetryPolicy{MaxAttempts: maxAttempts},
	}
}

// WithExponentialBackoff configures exponential backoff:
//
//   - initial is the delay before the first retry.
//   - multiplier > 1 grows the delay each attempt (default 2.0 if <= 0).
//   - max caps the delay; if <= 0, there is no cap.
func (b PolicyBuilder) WithExponentialBackoff(initial time.Duration, multiplier float64, max time.Duration) PolicyBuilder {
	p := b.retry
	p.InitialBackoff = initial
	p.MaxBackoff = max
	if multiplier <= 0 {
		multiplier = 2.0
	}
	p.BackoffMultiplier = multiplier
	return PolicyBuilder{retry: p, stop: b.stop}
}

// WithConstantBackoff configures a constant delay between retries.
//
// This is equivalent to an exponential backoff with multiplier 1.0 and
// no cap.
func (b PolicyBuilder) WithConstantBackoff(delay time.Duration) PolicyBuilder {
	p := b.retry
	p.InitialBackoff = delay
	p.MaxBackoff = 0
	p.BackoffMultiplier = 1.0
	return PolicyBuilder{retry: p, stop: b.stop}
}

// Immediate disables any sleep between retries.
// Retries still respect the attempt bound.
func (b PolicyBuilder) Immediate() PolicyBuilder {
	p := b.retry
	p.InitialBackoff = 0
	p.MaxBackoff = 0
	p.BackoffMultiplier = 0
	return PolicyBuilder{retry: p, stop: b.stop}
}

// StopAfterConsecutiveFailures halts a workflow once n attempts have
// failed without an intervening success, across steps.
func (b PolicyBuilder) StopAfterConsecutiveFailures(n int) PolicyBuilder {
	return PolicyBuilder{
		retry: b.retry,
		stop:  append(b.stop, MaxConsecutiveFailures(n)),
	}
}

// StopAfter halts a workflow once it has been alive longer than d,
// measured from creation. The bound is only evaluated when a caller
// drives the workflow.
func (b PolicyBuilder) StopAfter(d time.Duration) PolicyBuilder {
	return PolicyBuilder{
		retry: b.retry,
		stop:  append(b.stop, MaxDuration(d)),
	}
}

// Options returns the manager options encoding this policy.
func (b PolicyBuilder) Options() []Option {
	opts := []Option{WithRetryPolicy(b.retry)}
	if len(b.stop) > 0 {
		opts = append(opts, WithStopConditions(b.stop...))
	}
	return opts
}
