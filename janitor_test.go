package durable

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJanitorSweepsTerminalWorkflows(t *testing.T) {
	ctx := context.Background()
	mgr := NewMemoryManager()

	inst, err := mgr.Create(ctx, "done-1", "campaign")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := inst.Complete(ctx); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if _, err := mgr.Create(ctx, "active-1", "campaign"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Zero retention: anything terminal is eligible on the next sweep.
	j := NewJanitor(mgr, 10*time.Millisecond, 0)
	if err := j.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer j.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := mgr.Get(ctx, "done-1"); errors.Is(err, ErrNotFound) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("janitor never swept the completed workflow")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := mgr.Get(ctx, "active-1"); err != nil {
		t.Fatalf("active workflow must survive sweeps: %v", err)
	}
}

func TestJanitorStartStop(t *testing.T) {
	mgr := NewMemoryManager()
	j := NewJanitor(mgr, time.Minute, time.Hour)

	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := j.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail")
	}

	j.Stop()
	j.Stop() // idempotent

	// Restart after Stop is allowed.
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	j.Stop()
}
