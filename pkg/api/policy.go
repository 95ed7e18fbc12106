package api

import "time"

// RetryPolicy controls how a step is retried when an attempt returns a
// Retryable outcome. MaxAttempts includes the first attempt:
//
//	MaxAttempts = 1 => no retries (just the initial call)
//	MaxAttempts = 3 => initial call + up to 2 retries
//
// InitialBackoff is the delay before the first retry; each subsequent
// delay is multiplied by BackoffMultiplier (default 2.0 when <= 0) and
// capped at MaxBackoff when that is > 0. A zero InitialBackoff retries
// immediately.
type RetryPolicy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultRetryPolicy allows three attempts with no delay between them.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3}

// StopContext is the input to a StopCondition: the workflow's own
// history plus the position of the attempt being considered. Conditions
// are pure functions over this value, so they evaluate identically
// against a freshly reloaded snapshot.
type StopContext struct {
	Snapshot *Snapshot

	// Step names the step being considered. Attempt counts the attempts
	// of that step completed so far: 0 before anything has run, and after
	// a failure the number of attempts that have failed. MaxAttempts(n)
	// therefore permits exactly n executions.
	Step    string
	Attempt int

	// ConsecutiveFailures counts failed attempts since the last success
	// anywhere in the workflow, including in-flight attempts of the
	// current step.
	ConsecutiveFailures int

	Now time.Time
}

// StopCondition decides whether further attempts should halt. Returning
// true trips the condition: the step is exhausted and the workflow
// escalates to FAILED.
type StopCondition func(StopContext) bool

// MaxAttempts stops once the current step has been attempted n times.
func MaxAttempts(n int) StopCondition {
	return func(c StopContext) bool {
		return n > 0 && c.Attempt >= n
	}
}

// MaxConsecutiveFailures stops once n attempts have failed without an
// intervening success. Unlike MaxAttempts this counts across steps and
// resets whenever any step succeeds.
func MaxConsecutiveFailures(n int) StopCondition {
	return func(c StopContext) bool {
		return n > 0 && c.ConsecutiveFailures >= n
	}
}

// MaxDuration stops once the workflow has been alive longer than d,
// measured from the snapshot's CreatedAt. It is only evaluated when a
// caller drives the workflow; a parked workflow is never failed in the
// background.
func MaxDuration(d time.Duration) StopCondition {
	return func(c StopContext) bool {
		if d <= 0 || c.Snapshot == nil {
			return false
		}
		return c.Now.Sub(c.Snapshot.CreatedAt) > d
	}
}

// AnyOf combines conditions; it trips when any one of them trips.
func AnyOf(conds ...StopCondition) StopCondition {
	return func(c StopContext) bool {
		for _, cond := range conds {
			if cond != nil && cond(c) {
				return true
			}
		}
		return false
	}
}
