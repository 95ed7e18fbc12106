package persistence

import (
	"bytes"
	"encoding/gob"

	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/pkg/api"
)

// The SQL backends store step history and approval requests as gob
// blobs inside the snapshot row; the Redis backend gob-encodes whole
// snapshots. All payload bytes inside these structures are already
// opaque, so gob only has to handle concrete types.

func encodeSteps(steps []api.StepRecord) ([]byte, error) {
	if len(steps) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(steps); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeSteps(data []byte) ([]api.StepRecord, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var steps []api.StepRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// approvalState bundles the live approval slot with the archive of
// resolved gates so both travel in one blob column.
type approvalState struct {
	Current  *api.ApprovalRequest
	Resolved []api.ApprovalRequest
}

func encodeApprovals(current *api.ApprovalRequest, resolved []api.ApprovalRequest) ([]byte, error) {
	if current == nil && len(resolved) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(approvalState{Current: current, Resolved: resolved}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeApprovals(data []byte) (*api.ApprovalRequest, []api.ApprovalRequest, error) {
	if len(data) == 0 {
		return nil, nil, nil
	}
	var state approvalState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return nil, nil, err
	}
	return state.Current, state.Resolved, nil
}

func encodeSnapshot(snap *api.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeSnapshot(data []byte) (*api.Snapshot, error) {
	if len(data) == 0 {
		return nil, ErrSnapshotNotFound
	}
	var snap api.Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
