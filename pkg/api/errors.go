package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no workflow exists for an identity,
	// neither in memory nor in the checkpoint store.
	ErrNotFound = errors.New("workflow not found")

	// ErrAlreadyExists is returned when creating a workflow whose
	// identity is already held by a non-terminal workflow.
	ErrAlreadyExists = errors.New("workflow already exists")

	// ErrBusy is returned in fail-fast mode when another caller is
	// currently driving the same workflow identity.
	ErrBusy = errors.New("workflow busy")

	// ErrAlreadyResolved is returned when resolving an approval that was
	// already resolved with a different decision. Re-resolving with the
	// identical decision is a no-op.
	ErrAlreadyResolved = errors.New("approval already resolved")
)

// TerminalStateError is returned for any action attempted on a workflow
// in COMPLETED or FAILED status.
type TerminalStateError struct {
	Identity string
	Status   Status
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("workflow %s is terminal (%s)", e.Identity, e.Status)
}

// IsTerminalState reports whether err is a TerminalStateError.
func IsTerminalState(err error) bool {
	var t *TerminalStateError
	return errors.As(err, &t)
}

// StepExhaustedError is returned when a step fails and the stop policy
// permits no further attempts. The workflow transitions to FAILED.
type StepExhaustedError struct {
	Step     string
	Attempts int
	Err      error
}

func (e *StepExhaustedError) Error() string {
	return fmt.Sprintf("step %q exhausted after %d attempt(s): %v", e.Step, e.Attempts, e.Err)
}

func (e *StepExhaustedError) Unwrap() error { return e.Err }

// PersistenceError wraps a checkpoint store failure. It is always
// surfaced: a swallowed persistence failure is indistinguishable from
// data loss, so the caller must decide whether the side effect of the
// in-flight step already happened.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("checkpoint %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// approvalPendingError is the control-flow error returned by
// AwaitApproval while the decision is outstanding. It is not a failure:
// the workflow is durably parked in AWAITING_APPROVAL and the caller
// should return and re-drive after ResolveApproval.
type approvalPendingError struct {
	Question string
}

func (e *approvalPendingError) Error() string {
	return "awaiting approval: " + e.Question
}

// NewApprovalPendingError is primarily used by the engine, but custom
// drivers can use it to signal an approval gate of their own.
func NewApprovalPendingError(question string) error {
	return &approvalPendingError{Question: question}
}

// IsApprovalPending returns (question, true) if err indicates the
// workflow is parked waiting on a human decision.
func IsApprovalPending(err error) (string, bool) {
	var a *approvalPendingError
	if errors.As(err, &a) {
		return a.Question, true
	}
	return "", false
}
