package api

import (
	"errors"
	"fmt"
	"testing"
)

var errTest = errors.New("provider unavailable")

func TestIsTerminalState(t *testing.T) {
	err := &TerminalStateError{Identity: "c1", Status: StatusCompleted}
	if !IsTerminalState(err) {
		t.Fatal("expected IsTerminalState to match")
	}
	if !IsTerminalState(fmt.Errorf("step: %w", err)) {
		t.Fatal("expected IsTerminalState to match through wrapping")
	}
	if IsTerminalState(errTest) {
		t.Fatal("unrelated error should not match")
	}
}

func TestStepExhaustedErrorUnwraps(t *testing.T) {
	err := &StepExhaustedError{Step: "send", Attempts: 3, Err: errTest}
	if !errors.Is(err, errTest) {
		t.Fatalf("expected cause to unwrap, got %v", err)
	}

	var exhausted *StepExhaustedError
	if !errors.As(fmt.Errorf("drive: %w", err), &exhausted) {
		t.Fatal("errors.As should find StepExhaustedError through wrapping")
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("unexpected attempts: %d", exhausted.Attempts)
	}
}

func TestPersistenceErrorUnwraps(t *testing.T) {
	err := &PersistenceError{Op: "save", Err: errTest}
	if !errors.Is(err, errTest) {
		t.Fatalf("expected cause to unwrap, got %v", err)
	}
}

func TestIsApprovalPending(t *testing.T) {
	err := NewApprovalPendingError("send to 500 contacts?")

	question, ok := IsApprovalPending(err)
	if !ok {
		t.Fatal("expected pending approval to be detected")
	}
	if question != "send to 500 contacts?" {
		t.Fatalf("unexpected question %q", question)
	}

	question, ok = IsApprovalPending(fmt.Errorf("step gate: %w", err))
	if !ok || question != "send to 500 contacts?" {
		t.Fatal("expected detection through wrapping")
	}

	if _, ok := IsApprovalPending(errTest); ok {
		t.Fatal("unrelated error should not be pending")
	}
	if _, ok := IsApprovalPending(nil); ok {
		t.Fatal("nil should not be pending")
	}
}
