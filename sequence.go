package durable

import (
	"context"
	"errors"
	"fmt"
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Sequence is a declarative, ordered list of named steps and approval
// gates for one workflow kind:
//
//	seq := durable.NewSequence("lead_processing").
//	    Step("enrich", enrichLead).
//	    ApprovalGate("send outreach?").
//	    Step("send", sendMessage)
//
// Run drives the sequence against a Manager. Because every step is
// checkpointed by name, Run can be called again after a crash, a pause,
// or an approval resolution: completed steps replay, the rest execute.
type Sequence struct {
	kind  string
	steps []sequenceStep
}

type sequenceStep struct {
	name     string
	op       Operation
	gate     bool
	question string
}

// NewSequence creates a sequence for workflows of the given kind.
func NewSequence(kind string) *Sequence {
	if kind == "" {
		panic("durable: sequence kind must not be empty")
	}
	return &Sequence{kind: kind}
}

// Kind returns the workflow kind this sequence drives.
func (s *Sequence) Kind() string {
	return s.kind
}

// Step appends a named step. The step's input is the previous step's
// output (or Run's input for the first step).
func (s *Sequence) Step(name string, op Operation) *Sequence {
	if name == "" {
		panic("durable: step name must not be empty")
	}
	if op == nil {
		panic(fmt.Sprintf("durable: step %q has nil operation", name))
	}
	s.steps = append(s.steps, sequenceStep{name: name, op: op})
	return s
}

// ApprovalGate appends a human decision point. The current payload is
// attached as review context, and once resolved the decision payload
// becomes the input to the following step.
func (s *Sequence) ApprovalGate(question string) *Sequence {
	if question == "" {
		panic("durable: approval question must not be empty")
	}
	s.steps = append(s.steps, sequenceStep{gate: true, question: question})
	return s
}

// Run drives the sequence for the given identity, creating the workflow
// if it does not exist yet. It returns the final payload after all steps
// have succeeded and the workflow is completed.
//
// While an approval gate is outstanding, Run returns an error for which
// IsApprovalPending reports true; call Manager.ResolveApproval and then
// Run again to continue from the gate.
func (s *Sequence) Run(ctx context.Context, mgr *Manager, identity string, input Payload) (Payload, error) {
	var zero Payload

	inst, err := mgr.Get(ctx, identity)
	if err != nil {
		if !isNotFound(err) {
			return zero, err
		}
		inst, err = mgr.Create(ctx, identity, s.kind)
		if err != nil {
			return zero, err
		}
	}

	current := input
	for _, step := range s.steps {
		if step.gate {
			decision, err := inst.AwaitApproval(ctx, step.question, current)
			if err != nil {
				return zero, err
			}
			current = decision
			continue
		}
		out, err := inst.Step(ctx, step.name, step.op, current)
		if err != nil {
			return zero, err
		}
		current = out
	}

	if err := inst.Complete(ctx); err != nil {
		return zero, err
	}
	return current, nil
}
