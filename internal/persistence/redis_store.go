package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/pkg/api"
)

// RedisStore is a Store backed by Redis. It uses a simple key structure:
//
//	<prefix>snap:<identity>        => gob-encoded snapshot
//	<prefix>idx:all                => SET of all identities
//	<prefix>idx:kind:<kind>        => SET of identities for a given kind
//	<prefix>idx:status:<status>    => SET of identities for a given status
//
// The indexes are best-effort; they are always updated on Save/Delete,
// and List uses them for candidate selection with a decode-side filter
// as the source of truth.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

var allStatuses = []api.Status{
	api.StatusPending,
	api.StatusInProgress,
	api.StatusPaused,
	api.StatusAwaitingApproval,
	api.StatusCompleted,
	api.StatusFailed,
}

// NewRedisStore creates a RedisStore.
// prefix is optional but recommended (e.g. "durable:").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "durable:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) keySnapshot(identity string) string {
	return s.prefix + "snap:" + identity
}

func (s *RedisStore) keyAll() string {
	return s.prefix + "idx:all"
}

func (s *RedisStore) keyKind(kind string) string {
	return s.prefix + "idx:kind:" + kind
}

func (s *RedisStore) keyStatus(status api.Status) string {
	return s.prefix + "idx:status:" + string(status)
}

func (s *RedisStore) Save(ctx context.Context, snap *api.Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.keySnapshot(snap.Identity), data, 0).Err(); err != nil {
		return err
	}

	// Update indexes. The snapshot moves between status sets, so drop it
	// from every status index before re-adding the current one.
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.keyAll(), snap.Identity)
	pipe.SAdd(ctx, s.keyKind(snap.Kind), snap.Identity)
	for _, status := range allStatuses {
		if status == snap.Status {
			pipe.SAdd(ctx, s.keyStatus(status), snap.Identity)
		} else {
			pipe.SRem(ctx, s.keyStatus(status), snap.Identity)
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Load(ctx context.Context, identity string) (*api.Snapshot, error) {
	data, err := s.client.Get(ctx, s.keySnapshot(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	return decodeSnapshot(data)
}

func (s *RedisStore) List(ctx context.Context, filter Filter) ([]*api.Snapshot, error) {
	// Narrow candidates with the most selective available index.
	indexKey := s.keyAll()
	switch {
	case filter.Status != "":
		indexKey = s.keyStatus(filter.Status)
	case filter.Kind != "":
		indexKey = s.keyKind(filter.Kind)
	}

	identities, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}

	var snapshots []*api.Snapshot
	for _, identity := range identities {
		snap, err := s.Load(ctx, identity)
		if err != nil {
			if errors.Is(err, ErrSnapshotNotFound) {
				// Stale index entry; skip.
				continue
			}
			return nil, err
		}
		if matches(snap, filter) {
			snapshots = append(snapshots, snap)
		}
	}
	return snapshots, nil
}

func (s *RedisStore) Delete(ctx context.Context, identity string) error {
	// Read the snapshot first so the kind index can be cleaned up too.
	snap, err := s.Load(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.keySnapshot(identity))
	pipe.SRem(ctx, s.keyAll(), identity)
	pipe.SRem(ctx, s.keyKind(snap.Kind), identity)
	for _, status := range allStatuses {
		pipe.SRem(ctx, s.keyStatus(status), identity)
	}
	_, err = pipe.Exec(ctx)
	return err
}
