package persistence

import (
	"context"
	"errors"

	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/pkg/api"
)

// ErrSnapshotNotFound is returned when no snapshot exists for an identity.
// Implementations must return it for "does not exist" and never for
// transport failures, so callers can tell the two apart.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Filter selects snapshots from the store.
// Empty string / zero status mean "no filter" for that field.
type Filter struct {
	Kind   string
	Status api.Status
}

// Store is the checkpoint store contract: durable keyed storage for
// workflow snapshots, with no business logic.
//
// Save is an idempotent full overwrite of the prior snapshot for that
// identity. Implementations must make the per-identity write atomic: a
// crash mid-write must never leave a half-written snapshot observable
// to a subsequent Load.
type Store interface {
	Save(ctx context.Context, snap *api.Snapshot) error
	Load(ctx context.Context, identity string) (*api.Snapshot, error)
	List(ctx context.Context, filter Filter) ([]*api.Snapshot, error)
	// Delete removes the snapshot for an identity. Deleting an unknown
	// identity is a no-op.
	Delete(ctx context.Context, identity string) error
}

// matches reports whether a snapshot passes the filter. Shared by
// backends that filter client-side.
func matches(snap *api.Snapshot, filter Filter) bool {
	if filter.Kind != "" && snap.Kind != filter.Kind {
		return false
	}
	if filter.Status != "" && snap.Status != filter.Status {
		return false
	}
	return true
}
