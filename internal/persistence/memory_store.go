package persistence

import (
	"context"
	"sync"

	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/pkg/api"
)

// MemoryStore is a goroutine-safe Store backed by a map. It is
// non-durable and intended for tests and local development.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]*api.Snapshot
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]*api.Snapshot),
	}
}

func (s *MemoryStore) Save(ctx context.Context, snap *api.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy so later mutations by the engine cannot reach in.
	s.snapshots[snap.Identity] = snap.Clone()
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, identity string) (*api.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[identity]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*api.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.Snapshot
	for _, snap := range s.snapshots {
		if matches(snap, filter) {
			result = append(result, snap.Clone())
		}
	}
	return result, nil
}

func (s *MemoryStore) Delete(ctx context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, identity)
	return nil
}
