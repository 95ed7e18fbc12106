package durable

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRetryBuilderAttemptBound(t *testing.T) {
	ctx := context.Background()
	mgr := NewMemoryManager(Retry(2).Immediate().Options()...)

	inst, err := mgr.Create(ctx, "case-1", "billing")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	boom := errors.New("gateway timeout")
	var calls int32
	op := func(ctx context.Context, input Payload) Outcome {
		atomic.AddInt32(&calls, 1)
		return Retryable(boom)
	}

	_, err = inst.Step(ctx, "charge", op, Payload{})
	var exhausted *StepExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected StepExhaustedError, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("operation ran %d times, want 2", got)
	}
}

func TestRetryBuilderNormalizesAttempts(t *testing.T) {
	ctx := context.Background()
	mgr := NewMemoryManager(Retry(0).Options()...)

	inst, err := mgr.Create(ctx, "case-1", "billing")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var calls int32
	op := func(ctx context.Context, input Payload) Outcome {
		atomic.AddInt32(&calls, 1)
		return Retryable(errors.New("nope"))
	}

	if _, err := inst.Step(ctx, "once", op, Payload{}); err == nil {
		t.Fatal("expected failure")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("Retry(0) should mean a single attempt, got %d", got)
	}
}

func TestRetryBuilderStopConditions(t *testing.T) {
	ctx := context.Background()
	mgr := NewMemoryManager(
		Retry(10).Immediate().StopAfterConsecutiveFailures(3).Options()...,
	)

	inst, err := mgr.Create(ctx, "case-1", "billing")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var calls int32
	op := func(ctx context.Context, input Payload) Outcome {
		atomic.AddInt32(&calls, 1)
		return Retryable(errors.New("nope"))
	}

	if _, err := inst.Step(ctx, "doomed", op, Payload{}); err == nil {
		t.Fatal("expected failure")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("consecutive-failure bound should trump the attempt bound: %d calls", got)
	}
}

func TestRetryBuilderBackoffShapes(t *testing.T) {
	exp := Retry(5).WithExponentialBackoff(100*time.Millisecond, 3.0, 2*time.Second)
	if exp.retry.InitialBackoff != 100*time.Millisecond ||
		exp.retry.BackoffMultiplier != 3.0 ||
		exp.retry.MaxBackoff != 2*time.Second {
		t.Fatalf("unexpected exponential policy: %+v", exp.retry)
	}

	constant := Retry(5).WithConstantBackoff(time.Second)
	if constant.retry.InitialBackoff != time.Second || constant.retry.BackoffMultiplier != 1.0 {
		t.Fatalf("unexpected constant policy: %+v", constant.retry)
	}

	immediate := constant.Immediate()
	if immediate.retry.InitialBackoff != 0 {
		t.Fatalf("Immediate should clear the delay: %+v", immediate.retry)
	}
	if immediate.retry.MaxAttempts != 5 {
		t.Fatalf("attempt bound lost in chaining: %+v", immediate.retry)
	}
}
