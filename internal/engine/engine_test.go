package engine

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/internal/persistence"
	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/pkg/api"
)

var errBoom = errors.New("upstream provider error")

type storeFactory func(t *testing.T) persistence.Store

// storeFactories enumerates the backends every engine test runs against.
// The container-backed stores are covered in the persistence package;
// the engine's behavior is backend-independent, so the fast backends
// suffice here.
var storeFactories = map[string]storeFactory{
	"in-memory": func(t *testing.T) persistence.Store {
		t.Helper()
		return persistence.NewMemoryStore()
	},
	"sqlite": func(t *testing.T) persistence.Store {
		t.Helper()
		db, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			t.Fatalf("failed to open sqlite: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		store, err := persistence.NewSQLiteStore(db)
		if err != nil {
			t.Fatalf("failed to create sqlite store: %v", err)
		}
		return store
	},
}

func forEachStore(t *testing.T, fn func(t *testing.T, store persistence.Store)) {
	t.Helper()
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

// succeedWith returns an operation that always succeeds with the given
// value.
func succeedWith(schema string, v any) api.Operation {
	return func(ctx context.Context, input api.Payload) api.Outcome {
		return api.Succeed(api.MustPayload(schema, v))
	}
}

// flakyStore injects a Save failure after a configurable number of
// successful writes.
type flakyStore struct {
	persistence.Store
	savesUntilFailure int
	failed            bool
}

func (f *flakyStore) Save(ctx context.Context, snap *api.Snapshot) error {
	if !f.failed && f.savesUntilFailure <= 0 {
		f.failed = true
		return errBoom
	}
	f.savesUntilFailure--
	return f.Store.Save(ctx, snap)
}
