package api

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// Status represents the lifecycle state of a workflow.
type Status string

const (
	StatusPending          Status = "PENDING"
	StatusInProgress       Status = "IN_PROGRESS"
	StatusPaused           Status = "PAUSED"
	StatusAwaitingApproval Status = "AWAITING_APPROVAL"
	StatusCompleted        Status = "COMPLETED"
	StatusFailed           Status = "FAILED"
)

// Terminal reports whether no further transitions are permitted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StepStatus is the final status of a recorded step.
type StepStatus string

const (
	StepSucceeded StepStatus = "SUCCEEDED"
	StepFailed    StepStatus = "FAILED"
)

// Payload is an opaque serialized value plus a schema tag. The engine
// round-trips payloads through the checkpoint store without interpreting
// them; the schema tag lets callers (and human-review surfaces) decide
// how to decode the bytes.
type Payload struct {
	Schema string `json:"schema,omitempty"`
	Data   []byte `json:"data,omitempty"`
}

// NewPayload JSON-encodes v under the given schema tag.
func NewPayload(schema string, v any) (Payload, error) {
	if v == nil {
		return Payload{Schema: schema}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Schema: schema, Data: data}, nil
}

// MustPayload is like NewPayload but panics on encoding errors.
// Useful for literals in tests and examples.
func MustPayload(schema string, v any) Payload {
	p, err := NewPayload(schema, v)
	if err != nil {
		panic(err)
	}
	return p
}

// Decode unmarshals the payload bytes into v.
func (p Payload) Decode(v any) error {
	if len(p.Data) == 0 {
		return nil
	}
	return json.Unmarshal(p.Data, v)
}

// IsZero reports whether the payload carries neither a schema nor data.
func (p Payload) IsZero() bool {
	return p.Schema == "" && len(p.Data) == 0
}

// Equal reports whether two payloads have the same schema and bytes.
func (p Payload) Equal(other Payload) bool {
	return p.Schema == other.Schema && bytes.Equal(p.Data, other.Data)
}

// StepRecord is the durable record of one named step. Records are
// append-only within a snapshot and keyed by step name: a name never
// repeats, because re-driving a succeeded step replays the stored
// result instead of executing again.
type StepRecord struct {
	Name       string     `json:"name"`
	Attempt    int        `json:"attempt"`
	Status     StepStatus `json:"status"`
	Result     Payload    `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// ApprovalRequest describes a pending (or resolved) human decision that
// gates a workflow. It is owned by the workflow that created it and is
// resolved in place via Manager.ResolveApproval.
type ApprovalRequest struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Context     Payload   `json:"context,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
	Resolution  *Payload  `json:"resolution,omitempty"`
	ResolvedAt  time.Time `json:"resolved_at,omitempty"`
}

// Resolved reports whether a decision has been supplied.
func (a *ApprovalRequest) Resolved() bool {
	return a != nil && a.Resolution != nil
}

// Snapshot is the full durable state of one workflow. The checkpoint
// store owns the durable bytes; the engine holds an in-memory projection
// that it reconciles against the store before trusting it.
type Snapshot struct {
	Identity  string           `json:"identity"`
	Kind      string           `json:"kind"`
	Status    Status           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Steps     []StepRecord     `json:"steps,omitempty"`
	Approval  *ApprovalRequest `json:"approval,omitempty"`

	// Approvals is the append-only archive of resolved gates. The engine
	// moves a resolved Approval here before opening a new one, so earlier
	// decisions stay replayable for the lifetime of the workflow.
	Approvals []ApprovalRequest `json:"approvals,omitempty"`
}

// ApprovalDecision returns the stored decision for a resolved gate with
// the given question, checking the live slot first and then the archive
// newest-first. It returns nil when the question has never been resolved.
func (s *Snapshot) ApprovalDecision(question string) *Payload {
	if a := s.Approval; a.Resolved() && a.Question == question {
		return a.Resolution
	}
	for i := len(s.Approvals) - 1; i >= 0; i-- {
		if s.Approvals[i].Question == question {
			return s.Approvals[i].Resolution
		}
	}
	return nil
}

// Step returns the most recent record with the given name, or nil.
func (s *Snapshot) Step(name string) *StepRecord {
	for i := len(s.Steps) - 1; i >= 0; i-- {
		if s.Steps[i].Name == name {
			return &s.Steps[i]
		}
	}
	return nil
}

// LastStep returns the most recently appended record, or nil.
func (s *Snapshot) LastStep() *StepRecord {
	if len(s.Steps) == 0 {
		return nil
	}
	return &s.Steps[len(s.Steps)-1]
}

// ConsecutiveFailures counts failed attempts since the last successful
// step, walking the history backwards. A succeeded record resets the
// count; a failed record contributes its attempt count.
func (s *Snapshot) ConsecutiveFailures() int {
	n := 0
	for i := len(s.Steps) - 1; i >= 0; i-- {
		if s.Steps[i].Status == StepSucceeded {
			break
		}
		n += s.Steps[i].Attempt
	}
	return n
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	if s.Steps != nil {
		out.Steps = make([]StepRecord, len(s.Steps))
		copy(out.Steps, s.Steps)
	}
	if s.Approval != nil {
		appr := *s.Approval
		if s.Approval.Resolution != nil {
			res := *s.Approval.Resolution
			appr.Resolution = &res
		}
		out.Approval = &appr
	}
	if s.Approvals != nil {
		out.Approvals = make([]ApprovalRequest, len(s.Approvals))
		for i, a := range s.Approvals {
			out.Approvals[i] = a
			if a.Resolution != nil {
				res := *a.Resolution
				out.Approvals[i].Resolution = &res
			}
		}
	}
	return &out
}

// ListOptions controls which workflows a listing returns.
// Zero values mean "no filter" for that field.
type ListOptions struct {
	// Kind, if non-empty, limits results to workflows of the given kind.
	Kind string

	// Status, if non-empty, limits results to workflows with the given status.
	Status Status
}

// Operation is a single step body. The engine treats it as opaque and
// non-idempotent: once an operation has succeeded and its result is
// checkpointed, the engine never invokes it again for the same step name.
type Operation func(ctx context.Context, input Payload) Outcome

type outcomeKind int

const (
	outcomeSucceeded outcomeKind = iota
	outcomeRetryable
	outcomeFatal
)

// Outcome is the tagged result of one operation attempt: Succeeded with
// a value, Retryable with an error the engine may retry, or Fatal with
// an error that ends the step immediately.
type Outcome struct {
	kind  outcomeKind
	value Payload
	err   error
}

// Succeed returns a successful outcome carrying the step result.
func Succeed(value Payload) Outcome {
	return Outcome{kind: outcomeSucceeded, value: value}
}

// Retryable returns a failed outcome that the retry policy may re-attempt.
func Retryable(err error) Outcome {
	return Outcome{kind: outcomeRetryable, err: err}
}

// Fatal returns a failed outcome that exhausts the step immediately,
// regardless of remaining retry budget.
func Fatal(err error) Outcome {
	return Outcome{kind: outcomeFatal, err: err}
}

// OK reports whether the outcome succeeded.
func (o Outcome) OK() bool { return o.kind == outcomeSucceeded }

// IsFatal reports whether the outcome ends the step without retrying.
func (o Outcome) IsFatal() bool { return o.kind == outcomeFatal }

// Value returns the success payload (zero unless OK).
func (o Outcome) Value() Payload { return o.value }

// Err returns the failure (nil if OK).
func (o Outcome) Err() error { return o.err }
