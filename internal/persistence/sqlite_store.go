package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/pkg/api"
)

// SQLiteStore is a Store backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database
// and returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_snapshots (
			identity   TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			status     TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			steps      BLOB,
			approval   BLOB
		);`,
	)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, snap *api.Snapshot) error {
	steps, err := encodeSteps(snap.Steps)
	if err != nil {
		return err
	}
	approval, err := encodeApprovals(snap.Approval, snap.Approvals)
	if err != nil {
		return err
	}

	// Single-statement upsert: the full snapshot replaces the prior row
	// atomically, never a partial-field update.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_snapshots
			(identity, kind, status, created_at, updated_at, steps, approval)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			kind       = excluded.kind,
			status     = excluded.status,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			steps      = excluded.steps,
			approval   = excluded.approval`,
		snap.Identity,
		snap.Kind,
		string(snap.Status),
		snap.CreatedAt.UnixNano(),
		snap.UpdatedAt.UnixNano(),
		steps,
		approval,
	)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context, identity string) (*api.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT identity, kind, status, created_at, updated_at, steps, approval
		FROM workflow_snapshots
		WHERE identity = ?`,
		identity,
	)
	snap, err := scanSnapshot(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	return snap, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*api.Snapshot, error) {
	query := `
		SELECT identity, kind, status, created_at, updated_at, steps, approval
		FROM workflow_snapshots`
	var args []any
	var clauses []string

	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(clauses) > 0 {
		query = query + " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*api.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, identity string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM workflow_snapshots WHERE identity = ?`, identity)
	return err
}

// scanSnapshot decodes one row of the workflow_snapshots shape shared by
// the SQLite and Postgres stores.
func scanSnapshot(scan func(dest ...any) error) (*api.Snapshot, error) {
	var snap api.Snapshot
	var statusStr string
	var createdNs, updatedNs int64
	var steps, approval []byte

	if err := scan(&snap.Identity, &snap.Kind, &statusStr, &createdNs, &updatedNs, &steps, &approval); err != nil {
		return nil, err
	}

	snap.Status = api.Status(statusStr)
	snap.CreatedAt = time.Unix(0, createdNs).UTC()
	snap.UpdatedAt = time.Unix(0, updatedNs).UTC()

	decodedSteps, err := decodeSteps(steps)
	if err != nil {
		return nil, err
	}
	snap.Steps = decodedSteps

	current, resolved, err := decodeApprovals(approval)
	if err != nil {
		return nil, err
	}
	snap.Approval = current
	snap.Approvals = resolved

	return &snap, nil
}
