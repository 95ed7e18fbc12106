package persistence

import (
	"testing"

	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/pkg/api"
)

func TestCodec_SnapshotRoundTrip(t *testing.T) {
	snap := sampleSnapshot("codec-1")

	blob, err := encodeSnapshot(snap)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got, err := decodeSnapshot(blob)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Identity != snap.Identity || got.Kind != snap.Kind || got.Status != snap.Status {
		t.Fatalf("header mismatch: %+v", got)
	}
	if len(got.Steps) != 1 || got.Steps[0].Result.Schema != "lead/v1" {
		t.Fatalf("steps mismatch: %+v", got.Steps)
	}
	if got.Approval != nil {
		t.Fatalf("expected nil approval, got %+v", got.Approval)
	}
}

func TestCodec_NilApprovalEncoding(t *testing.T) {
	blob, err := encodeApprovals(nil, nil)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if blob != nil {
		t.Fatalf("expected empty blob, got %d bytes", len(blob))
	}

	current, resolved, err := decodeApprovals(blob)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if current != nil || resolved != nil {
		t.Fatalf("expected nil state, got %+v / %+v", current, resolved)
	}
}

func TestCodec_ApprovalArchiveRoundTrip(t *testing.T) {
	decision := api.MustPayload("decision/v1", "approved")
	resolved := []api.ApprovalRequest{{
		ID:         "gate-1",
		Question:   "publish the report?",
		Resolution: &decision,
	}}
	current := &api.ApprovalRequest{ID: "gate-2", Question: "archive the source data?"}

	blob, err := encodeApprovals(current, resolved)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	gotCurrent, gotResolved, err := decodeApprovals(blob)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if gotCurrent == nil || gotCurrent.Question != current.Question {
		t.Fatalf("current mismatch: %+v", gotCurrent)
	}
	if len(gotResolved) != 1 || !gotResolved[0].Resolved() {
		t.Fatalf("resolved mismatch: %+v", gotResolved)
	}
	var answer string
	if err := gotResolved[0].Resolution.Decode(&answer); err != nil || answer != "approved" {
		t.Fatalf("decision mismatch: %q, %v", answer, err)
	}
}

func TestCodec_EmptySteps(t *testing.T) {
	blob, err := encodeSteps(nil)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	got, err := decodeSteps(blob)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no steps, got %d", len(got))
	}
}
