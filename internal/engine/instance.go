package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/internal/persistence"
	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/pkg/api"
)

// errPolicyHalted is recorded when a stop condition trips before any
// attempt has failed (for example the wall-clock bound).
var errPolicyHalted = errors.New("stop policy halted execution")

// Instance is a single running workflow. It owns an in-memory projection
// of the durable snapshot for the duration of one driven call and
// reconciles with the checkpoint store before trusting it, since a crash
// may have left the store authoritative and the projection stale.
//
// All driven methods serialize on a single-slot semaphore: at most one
// execution is active per identity at a time. A second caller either
// blocks until the slot frees or fails fast with api.ErrBusy, depending
// on the manager's busy mode.
type Instance struct {
	store    persistence.Store
	observer api.Observer
	retry    api.RetryPolicy
	stop     api.StopCondition
	busyMode BusyMode
	now      func() time.Time

	sem chan struct{}

	mu   sync.Mutex
	snap *api.Snapshot
}

func newInstance(m *Manager, snap *api.Snapshot) *Instance {
	return &Instance{
		store:    m.store,
		observer: m.observer,
		retry:    m.retry,
		stop:     api.AnyOf(m.stop...),
		busyMode: m.busyMode,
		now:      m.now,
		sem:      make(chan struct{}, 1),
		snap:     snap,
	}
}

// Identity returns the caller-supplied unique identity.
func (in *Instance) Identity() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.snap.Identity
}

// Kind returns the workflow's classification string.
func (in *Instance) Kind() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.snap.Kind
}

// Status returns the current lifecycle status.
func (in *Instance) Status() api.Status {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.snap.Status
}

// Snapshot returns a deep copy of the current in-memory snapshot.
func (in *Instance) Snapshot() *api.Snapshot {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.snap.Clone()
}

// acquire takes the single drive slot. In fail-fast mode it returns
// api.ErrBusy immediately when the slot is held.
func (in *Instance) acquire(ctx context.Context) error {
	if in.busyMode == BusyFailFast {
		select {
		case in.sem <- struct{}{}:
			return nil
		default:
			return fmt.Errorf("workflow %s: %w", in.Identity(), api.ErrBusy)
		}
	}
	select {
	case in.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (in *Instance) release() {
	<-in.sem
}

// refresh reconciles the in-memory projection with the store.
func (in *Instance) refresh(ctx context.Context) error {
	snap, err := in.store.Load(ctx, in.Identity())
	if err != nil {
		if errors.Is(err, persistence.ErrSnapshotNotFound) {
			return fmt.Errorf("workflow %s: %w", in.Identity(), api.ErrNotFound)
		}
		return &api.PersistenceError{Op: "load", Err: err}
	}
	in.mu.Lock()
	in.snap = snap
	in.mu.Unlock()
	return nil
}

// persist writes the full snapshot to the store, bumping UpdatedAt
// monotonically first. A transition is not considered done until the
// store acknowledges the write.
func (in *Instance) persist(ctx context.Context) error {
	in.mu.Lock()
	now := in.now().UTC()
	if now.After(in.snap.UpdatedAt) {
		in.snap.UpdatedAt = now
	}
	snap := in.snap.Clone()
	in.mu.Unlock()

	if err := in.store.Save(ctx, snap); err != nil {
		return &api.PersistenceError{Op: "save", Err: err}
	}
	return nil
}

func (in *Instance) terminalErr() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.snap.Status.Terminal() {
		return &api.TerminalStateError{Identity: in.snap.Identity, Status: in.snap.Status}
	}
	return nil
}

// Step executes-or-replays the named step.
//
// If a SUCCEEDED record with this name exists, its stored result is
// returned without invoking op: after a process restart, re-driving the
// same step sequence reproduces prior outputs with zero side effects.
// Otherwise the operation runs under the retry policy, the resulting
// record is persisted, and only then is the result returned (fail-closed:
// a persist failure surfaces instead of the result, so a side effect is
// repeated rather than its record lost).
func (in *Instance) Step(ctx context.Context, name string, op api.Operation, input api.Payload) (api.Payload, error) {
	var zero api.Payload
	if name == "" {
		return zero, errors.New("step name must not be empty")
	}
	if op == nil {
		return zero, fmt.Errorf("step %q has nil operation", name)
	}

	if err := in.acquire(ctx); err != nil {
		return zero, err
	}
	defer in.release()

	if err := in.refresh(ctx); err != nil {
		return zero, err
	}
	if err := in.terminalErr(); err != nil {
		return zero, err
	}

	in.mu.Lock()
	snap := in.snap
	if rec := snap.Step(name); rec != nil && rec.Status == api.StepSucceeded {
		result := rec.Result
		in.mu.Unlock()
		in.observer.OnStepReplayed(ctx, snap, name)
		return result, nil
	}
	if snap.Status == api.StatusAwaitingApproval && !snap.Approval.Resolved() {
		question := snap.Approval.Question
		in.mu.Unlock()
		return zero, api.NewApprovalPendingError(question)
	}
	statusDirty := snap.Status != api.StatusInProgress
	snap.Status = api.StatusInProgress
	in.mu.Unlock()

	if statusDirty {
		if err := in.persist(ctx); err != nil {
			return zero, err
		}
	}

	return in.runStep(ctx, name, op, input)
}

// runStep is the attempt loop: stop conditions are consulted before each
// attempt and after each failure.
func (in *Instance) runStep(ctx context.Context, name string, op api.Operation, input api.Payload) (api.Payload, error) {
	var zero api.Payload

	in.mu.Lock()
	snap := in.snap
	consecutive := snap.ConsecutiveFailures()
	in.mu.Unlock()

	maxAttempts := in.retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = api.DefaultRetryPolicy.MaxAttempts
	}
	stop := api.AnyOf(in.stop, api.MaxAttempts(maxAttempts))

	backoff := in.retry.InitialBackoff
	multiplier := in.retry.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	started := in.now().UTC()
	attempt := 0
	var lastErr error

	for {
		// Pre-attempt check over completed attempts.
		if stop(api.StopContext{
			Snapshot:            snap,
			Step:                name,
			Attempt:             attempt,
			ConsecutiveFailures: consecutive,
			Now:                 in.now().UTC(),
		}) {
			if lastErr == nil {
				lastErr = errPolicyHalted
			}
			return zero, in.exhaust(ctx, name, attempt, started, lastErr)
		}

		attempt++
		in.observer.OnStepStart(ctx, snap, name, attempt)

		attemptStart := in.now()
		outcome := op(ctx, input)
		duration := in.now().Sub(attemptStart)

		in.observer.OnStepCompleted(ctx, snap, name, attempt, outcome.Err(), duration)

		if outcome.OK() {
			result := outcome.Value()
			finished := in.now().UTC()
			in.mu.Lock()
			in.snap.Steps = append(in.snap.Steps, api.StepRecord{
				Name:       name,
				Attempt:    attempt,
				Status:     api.StepSucceeded,
				Result:     result,
				StartedAt:  started,
				FinishedAt: finished,
			})
			in.mu.Unlock()

			if err := in.persist(ctx); err != nil {
				// Fail-closed: drop the unacknowledged record so the
				// projection matches the store.
				in.mu.Lock()
				in.snap.Steps = in.snap.Steps[:len(in.snap.Steps)-1]
				in.mu.Unlock()
				return zero, err
			}
			return result, nil
		}

		lastErr = outcome.Err()
		consecutive++

		tripped := stop(api.StopContext{
			Snapshot:            snap,
			Step:                name,
			Attempt:             attempt,
			ConsecutiveFailures: consecutive,
			Now:                 in.now().UTC(),
		})
		if outcome.IsFatal() || tripped {
			return zero, in.exhaust(ctx, name, attempt, started, lastErr)
		}

		if backoff > 0 {
			delay := backoff
			if in.retry.MaxBackoff > 0 && delay > in.retry.MaxBackoff {
				delay = in.retry.MaxBackoff
			}
			select {
			case <-ctx.Done():
				// No record is written: the step simply did not finish,
				// and a later drive re-executes it (the crash-resume path).
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			next := time.Duration(float64(backoff) * multiplier)
			if in.retry.MaxBackoff > 0 && next > in.retry.MaxBackoff {
				backoff = in.retry.MaxBackoff
			} else {
				backoff = next
			}
		} else if err := ctx.Err(); err != nil {
			return zero, err
		}
	}
}

// exhaust records the failed step, moves the workflow to FAILED, and
// persists both before surfacing StepExhaustedError.
func (in *Instance) exhaust(ctx context.Context, name string, attempts int, started time.Time, cause error) error {
	// A stop condition can refuse the very first attempt; the record
	// still counts one, since attempt numbers start at 1.
	if attempts < 1 {
		attempts = 1
	}
	in.mu.Lock()
	in.snap.Steps = append(in.snap.Steps, api.StepRecord{
		Name:       name,
		Attempt:    attempts,
		Status:     api.StepFailed,
		Error:      cause.Error(),
		StartedAt:  started,
		FinishedAt: in.now().UTC(),
	})
	in.snap.Status = api.StatusFailed
	snap := in.snap
	in.mu.Unlock()

	exhausted := &api.StepExhaustedError{Step: name, Attempts: attempts, Err: cause}
	if err := in.persist(ctx); err != nil {
		return err
	}
	in.observer.OnWorkflowFailed(ctx, snap, exhausted)
	return exhausted
}

// AwaitApproval parks the workflow on a human decision. It never blocks:
// while the decision is outstanding it persists AWAITING_APPROVAL and
// returns an approval-pending error, and once the gate has been resolved
// (via Manager.ResolveApproval) a re-drive of the same gate returns the
// stored decision immediately, symmetric with step replay.
func (in *Instance) AwaitApproval(ctx context.Context, question string, reviewContext api.Payload) (api.Payload, error) {
	var zero api.Payload
	if question == "" {
		return zero, errors.New("approval question must not be empty")
	}

	if err := in.acquire(ctx); err != nil {
		return zero, err
	}
	defer in.release()

	if err := in.refresh(ctx); err != nil {
		return zero, err
	}
	if err := in.terminalErr(); err != nil {
		return zero, err
	}

	in.mu.Lock()
	snap := in.snap
	if res := snap.ApprovalDecision(question); res != nil {
		decision := *res
		in.mu.Unlock()
		return decision, nil
	}
	if a := snap.Approval; a != nil && !a.Resolved() {
		// Either the same gate re-driven, or an attempt to open a
		// second gate while one is outstanding. In both cases the
		// pending question is what blocks progress.
		pending := a.Question
		in.mu.Unlock()
		return zero, api.NewApprovalPendingError(pending)
	}
	// A resolved gate with a different question keeps its decision in the
	// archive so a later re-drive still replays it.
	if a := snap.Approval; a.Resolved() {
		snap.Approvals = append(snap.Approvals, *a)
	}
	snap.Approval = &api.ApprovalRequest{
		ID:          uuid.NewString(),
		Question:    question,
		Context:     reviewContext,
		RequestedAt: in.now().UTC(),
	}
	snap.Status = api.StatusAwaitingApproval
	in.mu.Unlock()

	if err := in.persist(ctx); err != nil {
		return zero, err
	}
	in.observer.OnApprovalRequested(ctx, snap, question)
	return zero, api.NewApprovalPendingError(question)
}

// resolveApproval supplies the awaited decision. Resolving again with
// the identical decision is a no-op; a different decision fails with
// api.ErrAlreadyResolved.
func (in *Instance) resolveApproval(ctx context.Context, decision api.Payload) error {
	if err := in.acquire(ctx); err != nil {
		return err
	}
	defer in.release()

	if err := in.refresh(ctx); err != nil {
		return err
	}
	if err := in.terminalErr(); err != nil {
		return err
	}

	in.mu.Lock()
	snap := in.snap
	a := snap.Approval
	if a == nil {
		identity := snap.Identity
		in.mu.Unlock()
		return fmt.Errorf("no pending approval for workflow %s: %w", identity, api.ErrNotFound)
	}
	if a.Resolved() {
		same := a.Resolution.Equal(decision)
		identity := snap.Identity
		in.mu.Unlock()
		if same {
			return nil
		}
		return fmt.Errorf("workflow %s: %w", identity, api.ErrAlreadyResolved)
	}
	a.Resolution = &decision
	a.ResolvedAt = in.now().UTC()
	snap.Status = api.StatusInProgress
	question := a.Question
	in.mu.Unlock()

	if err := in.persist(ctx); err != nil {
		return err
	}
	in.observer.OnApprovalResolved(ctx, snap, question)
	return nil
}

// Complete marks the workflow COMPLETED. It is the caller's assertion
// that every step it considers mandatory has succeeded; the engine only
// refuses while a decision is still outstanding.
func (in *Instance) Complete(ctx context.Context) error {
	if err := in.acquire(ctx); err != nil {
		return err
	}
	defer in.release()

	if err := in.refresh(ctx); err != nil {
		return err
	}
	if err := in.terminalErr(); err != nil {
		return err
	}

	in.mu.Lock()
	snap := in.snap
	if snap.Status == api.StatusAwaitingApproval && !snap.Approval.Resolved() {
		question := snap.Approval.Question
		in.mu.Unlock()
		return api.NewApprovalPendingError(question)
	}
	snap.Status = api.StatusCompleted
	in.mu.Unlock()

	if err := in.persist(ctx); err != nil {
		return err
	}
	in.observer.OnWorkflowCompleted(ctx, snap)
	return nil
}

// Pause suspends the workflow explicitly. PAUSED is a valid non-terminal
// state from which step execution resumes exactly like after a
// crash-restart replay.
func (in *Instance) Pause(ctx context.Context) error {
	if err := in.acquire(ctx); err != nil {
		return err
	}
	defer in.release()

	if err := in.refresh(ctx); err != nil {
		return err
	}
	if err := in.terminalErr(); err != nil {
		return err
	}

	in.mu.Lock()
	snap := in.snap
	if snap.Status != api.StatusPending && snap.Status != api.StatusInProgress {
		status := snap.Status
		in.mu.Unlock()
		return fmt.Errorf("cannot pause workflow %s in status %s", snap.Identity, status)
	}
	snap.Status = api.StatusPaused
	in.mu.Unlock()

	return in.persist(ctx)
}

// Resume lifts an explicit pause.
func (in *Instance) Resume(ctx context.Context) error {
	if err := in.acquire(ctx); err != nil {
		return err
	}
	defer in.release()

	if err := in.refresh(ctx); err != nil {
		return err
	}
	if err := in.terminalErr(); err != nil {
		return err
	}

	in.mu.Lock()
	snap := in.snap
	if snap.Status != api.StatusPaused {
		status := snap.Status
		in.mu.Unlock()
		return fmt.Errorf("cannot resume workflow %s in status %s", snap.Identity, status)
	}
	snap.Status = api.StatusInProgress
	in.mu.Unlock()

	return in.persist(ctx)
}

// Terminate is the administrative force-fail for parked or paused
// workflows. The reason is kept on a synthetic step record so the
// failure survives restarts like any other.
func (in *Instance) Terminate(ctx context.Context, reason string) error {
	if err := in.acquire(ctx); err != nil {
		return err
	}
	defer in.release()

	if err := in.refresh(ctx); err != nil {
		return err
	}
	if err := in.terminalErr(); err != nil {
		return err
	}

	if reason == "" {
		reason = "terminated by operator"
	}

	now := in.now().UTC()
	in.mu.Lock()
	in.snap.Steps = append(in.snap.Steps, api.StepRecord{
		Name:       "terminate",
		Attempt:    1,
		Status:     api.StepFailed,
		Error:      reason,
		StartedAt:  now,
		FinishedAt: now,
	})
	in.snap.Status = api.StatusFailed
	snap := in.snap
	in.mu.Unlock()

	if err := in.persist(ctx); err != nil {
		return err
	}
	in.observer.OnWorkflowFailed(ctx, snap, errors.New(reason))
	return nil
}
