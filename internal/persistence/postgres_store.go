package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/pkg/api"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore initializes the required schema in the given
// database and returns a new PostgresStore.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_snapshots (
			identity   TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			status     TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			steps      BYTEA,
			approval   BYTEA
		);
	`)
	return err
}

func (s *PostgresStore) Save(ctx context.Context, snap *api.Snapshot) error {
	steps, err := encodeSteps(snap.Steps)
	if err != nil {
		return err
	}
	approval, err := encodeApprovals(snap.Approval, snap.Approvals)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_snapshots
			(identity, kind, status, created_at, updated_at, steps, approval)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (identity) DO UPDATE SET
			kind       = EXCLUDED.kind,
			status     = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			steps      = EXCLUDED.steps,
			approval   = EXCLUDED.approval
	`,
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

func (s *PostgresStore) Load(ctx context.Context, identity string) (*api.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT identity, kind, status, created_at, updated_at, steps, approval
		FROM workflow_snapshots
		WHERE identity = $1`,
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

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*api.Snapshot, error) {
	query := `
		SELECT identity, kind, status, created_at, updated_at, steps, approval
		FROM workflow_snapshots`
	var args []any
	var clauses []string

	if filter.Kind != "" {
		args = append(args, filter.Kind)
		clauses = append(clauses, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
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

func (s *PostgresStore) Delete(ctx context.Context, identity string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM workflow_snapshots WHERE identity = $1`, identity)
	return err
}
