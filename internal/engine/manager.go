package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/internal/persistence"
	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/pkg/api"
)

// BusyMode selects what happens when a second caller drives an identity
// that already has an execution in flight.
type BusyMode int

const (
	// BusyBlock makes the second caller wait for the slot (honoring its
	// context).
	BusyBlock BusyMode = iota

	// BusyFailFast makes the second caller fail immediately with
	// api.ErrBusy.
	BusyFailFast
)

// Manager is the registry of workflow instances: it creates, looks up,
// lists, and garbage-collects them, and enforces one active instance per
// identity. It is an explicit dependency-injected value with
// process-wide lifecycle; construct one at startup and share it.
type Manager struct {
	store    persistence.Store
	observer api.Observer
	retry    api.RetryPolicy
	stop     []api.StopCondition
	busyMode BusyMode
	now      func() time.Time

	mu        sync.Mutex
	instances map[string]*Instance
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver sets the Observer notified of workflow lifecycle events.
func WithObserver(obs api.Observer) Option {
	return func(m *Manager) {
		if obs != nil {
			m.observer = obs
		}
	}
}

// WithRetryPolicy sets the retry policy applied to every step.
func WithRetryPolicy(p api.RetryPolicy) Option {
	return func(m *Manager) { m.retry = p }
}

// WithStopConditions adds stop conditions evaluated alongside the retry
// policy's attempt bound.
func WithStopConditions(conds ...api.StopCondition) Option {
	return func(m *Manager) { m.stop = append(m.stop, conds...) }
}

// WithBusyMode selects blocking or fail-fast behavior for concurrent
// drivers of the same identity.
func WithBusyMode(mode BusyMode) Option {
	return func(m *Manager) { m.busyMode = mode }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager over the given checkpoint store.
func NewManager(store persistence.Store, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		observer:  api.NoopObserver{},
		retry:     api.DefaultRetryPolicy,
		busyMode:  BusyBlock,
		now:       time.Now,
		instances: make(map[string]*Instance),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create registers a fresh PENDING workflow for the identity. It fails
// with api.ErrAlreadyExists while a non-terminal workflow (in memory or
// in the store) holds the identity; a terminal predecessor is displaced.
func (m *Manager) Create(ctx context.Context, identity, kind string) (*Instance, error) {
	if identity == "" {
		return nil, errors.New("workflow identity must not be empty")
	}
	if kind == "" {
		return nil, errors.New("workflow kind must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if inst, ok := m.instances[identity]; ok && !inst.Status().Terminal() {
		return nil, fmt.Errorf("workflow %s: %w", identity, api.ErrAlreadyExists)
	}

	prior, err := m.store.Load(ctx, identity)
	switch {
	case err == nil:
		if !prior.Status.Terminal() {
			return nil, fmt.Errorf("workflow %s: %w", identity, api.ErrAlreadyExists)
		}
	case errors.Is(err, persistence.ErrSnapshotNotFound):
		// Fresh identity.
	default:
		return nil, &api.PersistenceError{Op: "load", Err: err}
	}

	now := m.now().UTC()
	snap := &api.Snapshot{
		Identity:  identity,
		Kind:      kind,
		Status:    api.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(ctx, snap); err != nil {
		return nil, &api.PersistenceError{Op: "save", Err: err}
	}

	inst := newInstance(m, snap)
	m.instances[identity] = inst
	m.observer.OnWorkflowCreated(ctx, snap)
	return inst, nil
}

// Get returns the instance for an identity, reconstructing it from the
// checkpoint store when it is not held in memory (the resume-after-crash
// path). It fails with api.ErrNotFound when neither has a record.
func (m *Manager) Get(ctx context.Context, identity string) (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if inst, ok := m.instances[identity]; ok {
		return inst, nil
	}

	snap, err := m.store.Load(ctx, identity)
	if err != nil {
		if errors.Is(err, persistence.ErrSnapshotNotFound) {
			return nil, fmt.Errorf("workflow %s: %w", identity, api.ErrNotFound)
		}
		return nil, &api.PersistenceError{Op: "load", Err: err}
	}

	inst := newInstance(m, snap)
	m.instances[identity] = inst
	return inst, nil
}

// List is a read-only projection over the store.
func (m *Manager) List(ctx context.Context, opts api.ListOptions) ([]*api.Snapshot, error) {
	snaps, err := m.store.List(ctx, persistence.Filter{
		Kind:   opts.Kind,
		Status: opts.Status,
	})
	if err != nil {
		return nil, &api.PersistenceError{Op: "list", Err: err}
	}
	return snaps, nil
}

// ResolveApproval supplies the decision a parked workflow is waiting on.
// It is callable at arbitrary times by an external review surface and is
// idempotent for a repeated identical decision.
func (m *Manager) ResolveApproval(ctx context.Context, identity string, decision api.Payload) error {
	inst, err := m.Get(ctx, identity)
	if err != nil {
		return err
	}
	return inst.resolveApproval(ctx, decision)
}

// Terminate force-fails a non-terminal workflow, typically one parked in
// AWAITING_APPROVAL or PAUSED that will never be resumed.
func (m *Manager) Terminate(ctx context.Context, identity, reason string) error {
	inst, err := m.Get(ctx, identity)
	if err != nil {
		return err
	}
	return inst.Terminate(ctx, reason)
}

// Cleanup deletes terminal workflows whose UpdatedAt predates olderThan.
// With no statuses given it covers COMPLETED and FAILED; non-terminal
// statuses are ignored outright, so cleanup can never touch an in-flight
// workflow. It is best-effort housekeeping: per-record failures are
// collected and the sweep continues.
func (m *Manager) Cleanup(ctx context.Context, olderThan time.Time, statuses ...api.Status) (int, error) {
	if len(statuses) == 0 {
		statuses = []api.Status{api.StatusCompleted, api.StatusFailed}
	}

	removed := 0
	var errs []error
	for _, status := range statuses {
		if !status.Terminal() {
			continue
		}
		snaps, err := m.store.List(ctx, persistence.Filter{Status: status})
		if err != nil {
			errs = append(errs, &api.PersistenceError{Op: "list", Err: err})
			continue
		}
		for _, snap := range snaps {
			if !snap.UpdatedAt.Before(olderThan) {
				continue
			}
			if err := m.store.Delete(ctx, snap.Identity); err != nil {
				errs = append(errs, &api.PersistenceError{Op: "delete", Err: err})
				continue
			}
			m.mu.Lock()
			delete(m.instances, snap.Identity)
			m.mu.Unlock()
			removed++
		}
	}
	return removed, errors.Join(errs...)
}
