package api

import (
	"testing"
	"time"
)

func TestPayloadDecode(t *testing.T) {
	type lead struct {
		Company string `json:"company"`
		Score   int    `json:"score"`
	}

	p, err := NewPayload("lead/v1", lead{Company: "acme", Score: 82})
	if err != nil {
		t.Fatalf("NewPayload failed: %v", err)
	}
	if p.Schema != "lead/v1" {
		t.Fatalf("unexpected schema %q", p.Schema)
	}

	var got lead
	if err := p.Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Company != "acme" || got.Score != 82 {
		t.Fatalf("unexpected decoded value: %+v", got)
	}
}

func TestPayloadDecodeZero(t *testing.T) {
	var p Payload
	if !p.IsZero() {
		t.Fatal("zero payload should report IsZero")
	}

	// Decoding a zero payload is a no-op, not an error.
	var v map[string]string
	if err := p.Decode(&v); err != nil {
		t.Fatalf("zero payload Decode should be a no-op, got %v", err)
	}
	if v != nil {
		t.Fatalf("no-op decode mutated the target: %+v", v)
	}
}

func TestPayloadEqual(t *testing.T) {
	a := MustPayload("x/v1", "hello")
	b := MustPayload("x/v1", "hello")
	c := MustPayload("x/v2", "hello")
	d := MustPayload("x/v1", "bye")

	if !a.Equal(b) {
		t.Fatal("identical payloads should compare equal")
	}
	if a.Equal(c) {
		t.Fatal("schema mismatch should not compare equal")
	}
	if a.Equal(d) {
		t.Fatal("data mismatch should not compare equal")
	}
}

func TestNewPayloadRejectsUnencodable(t *testing.T) {
	if _, err := NewPayload("bad/v1", make(chan int)); err == nil {
		t.Fatal("expected an error for a non-JSON value")
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusPending:          false,
		StatusInProgress:       false,
		StatusPaused:           false,
		StatusAwaitingApproval: false,
		StatusCompleted:        true,
		StatusFailed:           true,
	}
	for status, want := range terminal {
		if status.Terminal() != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, !want, want)
		}
	}
}

func TestOutcomeAccessors(t *testing.T) {
	ok := Succeed(MustPayload("r/v1", 1))
	if !ok.OK() || ok.IsFatal() || ok.Err() != nil {
		t.Fatalf("unexpected succeed outcome: %+v", ok)
	}

	retry := Retryable(errTest)
	if retry.OK() || retry.IsFatal() || retry.Err() != errTest {
		t.Fatalf("unexpected retryable outcome: %+v", retry)
	}

	fatal := Fatal(errTest)
	if fatal.OK() || !fatal.IsFatal() || fatal.Err() != errTest {
		t.Fatalf("unexpected fatal outcome: %+v", fatal)
	}
}

func TestSnapshotStepLookup(t *testing.T) {
	snap := &Snapshot{
		Steps: []StepRecord{
			{Name: "fetch", Attempt: 1, Status: StepFailed},
			{Name: "fetch", Attempt: 2, Status: StepSucceeded},
			{Name: "send", Attempt: 1, Status: StepSucceeded},
		},
	}

	got := snap.Step("fetch")
	if got == nil || got.Attempt != 2 {
		t.Fatalf("Step should return the latest record, got %+v", got)
	}
	if snap.Step("missing") != nil {
		t.Fatal("unknown step should return nil")
	}
	if last := snap.LastStep(); last == nil || last.Name != "send" {
		t.Fatalf("unexpected last step: %+v", last)
	}
}

func TestSnapshotConsecutiveFailures(t *testing.T) {
	snap := &Snapshot{
		Steps: []StepRecord{
			{Name: "a", Attempt: 2, Status: StepSucceeded},
			// A failed record's Attempt is the total number of attempts
			// that failed before the step was given up on.
			{Name: "b", Attempt: 3, Status: StepFailed},
		},
	}
	if got := snap.ConsecutiveFailures(); got != 3 {
		t.Fatalf("expected 3 trailing failures, got %d", got)
	}

	snap.Steps = append(snap.Steps, StepRecord{Name: "c", Attempt: 1, Status: StepSucceeded})
	if got := snap.ConsecutiveFailures(); got != 0 {
		t.Fatalf("success should reset the tally, got %d", got)
	}
}

func TestSnapshotClone(t *testing.T) {
	now := time.Now()
	earlier := MustPayload("d/v1", "yes")
	snap := &Snapshot{
		Identity:  "c1",
		Kind:      "k",
		Status:    StatusInProgress,
		Steps:     []StepRecord{{Name: "a", Attempt: 1, Status: StepSucceeded}},
		Approval:  &ApprovalRequest{ID: "appr", Question: "go?", RequestedAt: now},
		Approvals: []ApprovalRequest{{ID: "prior", Question: "start?", Resolution: &earlier}},
	}

	clone := snap.Clone()
	clone.Steps[0].Name = "mutated"
	clone.Approval.Question = "mutated"
	clone.Approvals[0].Question = "mutated"
	*clone.Approvals[0].Resolution = MustPayload("d/v1", "mutated")

	if snap.Steps[0].Name != "a" || snap.Approval.Question != "go?" {
		t.Fatalf("Clone shares state with the original: %+v", snap)
	}
	if snap.Approvals[0].Question != "start?" {
		t.Fatalf("Clone shares archive entries with the original: %+v", snap.Approvals)
	}
	var answer string
	if err := snap.Approvals[0].Resolution.Decode(&answer); err != nil || answer != "yes" {
		t.Fatalf("Clone shares archived decisions with the original: %q, %v", answer, err)
	}
}

func TestSnapshotApprovalDecision(t *testing.T) {
	first := MustPayload("d/v1", "ship")
	second := MustPayload("d/v1", "hold")
	snap := &Snapshot{
		Approvals: []ApprovalRequest{{ID: "g1", Question: "ship?", Resolution: &first}},
		Approval:  &ApprovalRequest{ID: "g2", Question: "announce?", Resolution: &second},
	}

	var answer string
	if res := snap.ApprovalDecision("ship?"); res == nil {
		t.Fatal("archived decision not found")
	} else if err := res.Decode(&answer); err != nil || answer != "ship" {
		t.Fatalf("archived decision mismatch: %q, %v", answer, err)
	}
	if res := snap.ApprovalDecision("announce?"); res == nil {
		t.Fatal("live decision not found")
	} else if err := res.Decode(&answer); err != nil || answer != "hold" {
		t.Fatalf("live decision mismatch: %q, %v", answer, err)
	}
	if snap.ApprovalDecision("unknown?") != nil {
		t.Fatal("unknown question should have no decision")
	}

	// A pending slot is not a decision.
	pending := &Snapshot{Approval: &ApprovalRequest{ID: "g3", Question: "retry?"}}
	if pending.ApprovalDecision("retry?") != nil {
		t.Fatal("pending gate should have no decision")
	}
}
