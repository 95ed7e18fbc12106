package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the workflow engine for logging and
// metrics.
//
// Implementations should be fast and non-blocking; heavy work should be
// done asynchronously so as not to delay workflow execution.
type Observer interface {
	// OnWorkflowCreated is called once when the manager registers a fresh
	// PENDING workflow.
	OnWorkflowCreated(ctx context.Context, snap *Snapshot)

	// OnWorkflowCompleted is called when a workflow reaches StatusCompleted.
	OnWorkflowCompleted(ctx context.Context, snap *Snapshot)

	// OnWorkflowFailed is called when a workflow transitions to StatusFailed,
	// whether by step exhaustion or administrative termination.
	OnWorkflowFailed(ctx context.Context, snap *Snapshot, err error)

	// OnStepStart is called before each operation attempt (attempt starts at 1).
	OnStepStart(ctx context.Context, snap *Snapshot, step string, attempt int)

	// OnStepCompleted is called after each operation attempt, for both
	// successes and failures (err != nil).
	OnStepCompleted(ctx context.Context, snap *Snapshot, step string, attempt int, err error, duration time.Duration)

	// OnStepReplayed is called when a driven step returns its checkpointed
	// result without invoking the operation.
	OnStepReplayed(ctx context.Context, snap *Snapshot, step string)

	// OnApprovalRequested is called when a workflow parks in
	// StatusAwaitingApproval.
	OnApprovalRequested(ctx context.Context, snap *Snapshot, question string)

	// OnApprovalResolved is called when an external decision unblocks a
	// parked workflow.
	OnApprovalResolved(ctx context.Context, snap *Snapshot, question string)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnWorkflowCreated(ctx context.Context, snap *Snapshot)             {}
func (NoopObserver) OnWorkflowCompleted(ctx context.Context, snap *Snapshot)           {}
func (NoopObserver) OnWorkflowFailed(ctx context.Context, snap *Snapshot, err error)   {}
func (NoopObserver) OnStepStart(ctx context.Context, snap *Snapshot, step string, attempt int) {
}
func (NoopObserver) OnStepCompleted(ctx context.Context, snap *Snapshot, step string, attempt int, err error, d time.Duration) {
}
func (NoopObserver) OnStepReplayed(ctx context.Context, snap *Snapshot, step string) {}
func (NoopObserver) OnApprovalRequested(ctx context.Context, snap *Snapshot, question string) {
}
func (NoopObserver) OnApprovalResolved(ctx context.Context, snap *Snapshot, question string) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnWorkflowCreated(ctx context.Context, snap *Snapshot) {
	for _, o := range c.observers {
		o.OnWorkflowCreated(ctx, snap)
	}
}

func (c *CompositeObserver) OnWorkflowCompleted(ctx context.Context, snap *Snapshot) {
	for _, o := range c.observers {
		o.OnWorkflowCompleted(ctx, snap)
	}
}

func (c *CompositeObserver) OnWorkflowFailed(ctx context.Context, snap *Snapshot, err error) {
	for _, o := range c.observers {
		o.OnWorkflowFailed(ctx, snap, err)
	}
}

func (c *CompositeObserver) OnStepStart(ctx context.Context, snap *Snapshot, step string, attempt int) {
	for _, o := range c.observers {
		o.OnStepStart(ctx, snap, step, attempt)
	}
}

func (c *CompositeObserver) OnStepCompleted(ctx context.Context, snap *Snapshot, step string, attempt int, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnStepCompleted(ctx, snap, step, attempt, err, d)
	}
}

func (c *CompositeObserver) OnStepReplayed(ctx context.Context, snap *Snapshot, step string) {
	for _, o := range c.observers {
		o.OnStepReplayed(ctx, snap, step)
	}
}

func (c *CompositeObserver) OnApprovalRequested(ctx context.Context, snap *Snapshot, question string) {
	for _, o := range c.observers {
		o.OnApprovalRequested(ctx, snap, question)
	}
}

func (c *CompositeObserver) OnApprovalResolved(ctx context.Context, snap *Snapshot, question string) {
	for _, o := range c.observers {
		o.OnApprovalResolved(ctx, snap, question)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs workflow / step
// lifecycle events using the provided slog.Logger. If logger is nil,
// slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnWorkflowCreated(ctx context.Context, snap *Snapshot) {
	o.Logger.InfoContext(ctx, "workflow_created",
		slog.String("identity", snap.Identity),
		slog.String("kind", snap.Kind),
	)
}

func (o *LoggingObserver) OnWorkflowCompleted(ctx context.Context, snap *Snapshot) {
	o.Logger.InfoContext(ctx, "workflow_completed",
		slog.String("identity", snap.Identity),
		slog.String("kind", snap.Kind),
		slog.Int("steps", len(snap.Steps)),
	)
}

func (o *LoggingObserver) OnWorkflowFailed(ctx context.Context, snap *Snapshot, err error) {
	o.Logger.ErrorContext(ctx, "workflow_failed",
		slog.String("identity", snap.Identity),
		slog.String("kind", snap.Kind),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnStepStart(ctx context.Context, snap *Snapshot, step string, attempt int) {
	o.Logger.DebugContext(ctx, "step_start",
		slog.String("identity", snap.Identity),
		slog.String("step", step),
		slog.Int("attempt", attempt),
	)
}

func (o *LoggingObserver) OnStepCompleted(ctx context.Context, snap *Snapshot, step string, attempt int, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	o.Logger.Log(ctx, level, "step_completed",
		slog.String("identity", snap.Identity),
		slog.String("step", step),
		slog.Int("attempt", attempt),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnStepReplayed(ctx context.Context, snap *Snapshot, step string) {
	o.Logger.DebugContext(ctx, "step_replayed",
		slog.String("identity", snap.Identity),
		slog.String("step", step),
	)
}

func (o *LoggingObserver) OnApprovalRequested(ctx context.Context, snap *Snapshot, question string) {
	o.Logger.InfoContext(ctx, "approval_requested",
		slog.String("identity", snap.Identity),
		slog.String("question", question),
	)
}

func (o *LoggingObserver) OnApprovalResolved(ctx context.Context, snap *Snapshot, question string) {
	o.Logger.InfoContext(ctx, "approval_resolved",
		slog.String("identity", snap.Identity),
		slog.String("question", question),
	)
}

// BasicMetrics collects simple counters and aggregate step durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	workflowsCreated   atomic.Int64
	workflowsCompleted atomic.Int64
	workflowsFailed    atomic.Int64
	stepsExecuted      atomic.Int64
	stepsReplayed      atomic.Int64
	approvalsRequested atomic.Int64
	approvalsResolved  atomic.Int64
	totalStepDuration  atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	WorkflowsCreated   int64
	WorkflowsCompleted int64
	WorkflowsFailed    int64
	ActiveWorkflows    int64

	StepsExecuted   int64
	StepsReplayed   int64
	AvgStepDuration time.Duration

	ApprovalsRequested int64
	ApprovalsResolved  int64
}

func (m *BasicMetrics) OnWorkflowCreated(ctx context.Context, snap *Snapshot) {
	m.workflowsCreated.Add(1)
}

func (m *BasicMetrics) OnWorkflowCompleted(ctx context.Context, snap *Snapshot) {
	m.workflowsCompleted.Add(1)
}

func (m *BasicMetrics) OnWorkflowFailed(ctx context.Context, snap *Snapshot, err error) {
	m.workflowsFailed.Add(1)
}

func (m *BasicMetrics) OnStepCompleted(ctx context.Context, snap *Snapshot, step string, attempt int, err error, d time.Duration) {
	// Only successful attempts count toward the average duration.
	if err == nil {
		m.stepsExecuted.Add(1)
		m.totalStepDuration.Add(d.Nanoseconds())
	}
}

func (m *BasicMetrics) OnStepReplayed(ctx context.Context, snap *Snapshot, step string) {
	m.stepsReplayed.Add(1)
}

func (m *BasicMetrics) OnApprovalRequested(ctx context.Context, snap *Snapshot, question string) {
	m.approvalsRequested.Add(1)
}

func (m *BasicMetrics) OnApprovalResolved(ctx context.Context, snap *Snapshot, question string) {
	m.approvalsResolved.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	created := m.workflowsCreated.Load()
	completed := m.workflowsCompleted.Load()
	failed := m.workflowsFailed.Load()
	steps := m.stepsExecuted.Load()
	totalNs := m.totalStepDuration.Load()

	var avg time.Duration
	if steps > 0 {
		avg = time.Duration(totalNs / steps)
	}

	return BasicMetricsSnapshot{
		WorkflowsCreated:   created,
		WorkflowsCompleted: completed,
		WorkflowsFailed:    failed,
		ActiveWorkflows:    created - completed - failed,
		StepsExecuted:      steps,
		StepsReplayed:      m.stepsReplayed.Load(),
		AvgStepDuration:    avg,
		ApprovalsRequested: m.approvalsRequested.Load(),
		ApprovalsResolved:  m.approvalsResolved.Load(),
	}
}
