package durable

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/internal/engine"
	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/internal/persistence"
	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Manager              = engine.Manager
	Instance             = engine.Instance
	Option               = engine.Option
	BusyMode             = engine.BusyMode
	Snapshot             = api.Snapshot
	StepRecord           = api.StepRecord
	ApprovalRequest      = api.ApprovalRequest
	Payload              = api.Payload
	Status               = api.Status
	StepStatus           = api.StepStatus
	Operation            = api.Operation
	Outcome              = api.Outcome
	RetryPolicy          = api.RetryPolicy
	StopCondition        = api.StopCondition
	StopContext          = api.StopContext
	ListOptions          = api.ListOptions
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
	TerminalStateError   = api.TerminalStateError
	StepExhaustedError   = api.StepExhaustedError
	PersistenceError     = api.PersistenceError
)

// Re-export status values for convenience.

const (
	StatusPending          = api.StatusPending
	StatusInProgress       = api.StatusInProgress
	StatusPaused           = api.StatusPaused
	StatusAwaitingApproval = api.StatusAwaitingApproval
	StatusCompleted        = api.StatusCompleted
	StatusFailed           = api.StatusFailed

	StepSucceeded = api.StepSucceeded
	StepFailed    = api.StepFailed

	BusyBlock    = engine.BusyBlock
	BusyFailFast = engine.BusyFailFast
)

// Re-export the error taxonomy and helpers.

var (
	ErrNotFound        = api.ErrNotFound
	ErrAlreadyExists   = api.ErrAlreadyExists
	ErrBusy            = api.ErrBusy
	ErrAlreadyResolved = api.ErrAlreadyResolved

	IsApprovalPending = api.IsApprovalPending
	IsTerminalState   = api.IsTerminalState
)

// Re-export payload/outcome constructors and policy combinators.

var (
	NewPayload  = api.NewPayload
	MustPayload = api.MustPayload

	Succeed   = api.Succeed
	Retryable = api.Retryable
	Fatal     = api.Fatal

	MaxAttempts            = api.MaxAttempts
	MaxConsecutiveFailures = api.MaxConsecutiveFailures
	MaxDuration            = api.MaxDuration
	AnyOf                  = api.AnyOf

	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export manager options.

var (
	WithObserver       = engine.WithObserver
	WithRetryPolicy    = engine.WithRetryPolicy
	WithStopConditions = engine.WithStopConditions
	WithBusyMode       = engine.WithBusyMode
	WithClock          = engine.WithClock
)

// Manager constructors
// These wrap the internal packages so external callers never need to
// import them.

// NewMemoryManager returns a Manager backed entirely by an in-memory
// checkpoint store. State does not survive the process; best for tests
// and local development.
func NewMemoryManager(opts ...Option) *Manager {
	return engine.NewManager(persistence.NewMemoryStore(), opts...)
}

// NewSQLiteManager returns a Manager that persists workflow snapshots in
// a SQLite database. The caller imports the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
func NewSQLiteManager(db *sql.DB, opts ...Option) (*Manager, error) {
	store, err := persistence.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return engine.NewManager(store, opts...), nil
}

// NewPostgresManager returns a Manager that persists snapshots in
// PostgreSQL. The caller imports a database/sql driver, e.g.:
//
//	import _ "github.com/jackc/pgx/v5/stdlib"
func NewPostgresManager(db *sql.DB, opts ...Option) (*Manager, error) {
	store, err := persistence.NewPostgresStore(db)
	if err != nil {
		return nil, err
	}
	return engine.NewManager(store, opts...), nil
}

// NewRedisManager returns a Manager that persists snapshots in Redis
// under the given key prefix ("durable:" when empty).
func NewRedisManager(client *redis.Client, prefix string, opts ...Option) *Manager {
	return engine.NewManager(persistence.NewRedisStore(client, prefix), opts...)
}

// NewMongoManager returns a Manager that persists snapshots in the given
// MongoDB database and collection ("workflow_snapshots" when empty).
func NewMongoManager(db *mongo.Database, collection string, opts ...Option) *Manager {
	return engine.NewManager(persistence.NewMongoStore(db, collection), opts...)
}
