package persistence

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jcbdelo26/chiefaiofficer-alpha-swarm-sub002/pkg/api"
)

// MongoStore is a Store backed by MongoDB. Each identity maps to one
// document; Save replaces the whole document, which MongoDB applies
// atomically per document.
type MongoStore struct {
	coll *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// mongoSnapshot is the document shape. Step history and approval blobs
// use the same gob encoding as the SQL backends so all stores round-trip
// identical bytes.
type mongoSnapshot struct {
	Identity  string `bson:"_id"`
	Kind      string `bson:"kind"`
	Status    string `bson:"status"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
	Steps     []byte `bson:"steps,omitempty"`
	Approval  []byte `bson:"approval,omitempty"`
}

// NewMongoStore creates a MongoStore over the given database and
// collection name. An empty collection name defaults to
// "workflow_snapshots".
func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	if collection == "" {
		collection = "workflow_snapshots"
	}
	return &MongoStore{coll: db.Collection(collection)}
}

func (s *MongoStore) Save(ctx context.Context, snap *api.Snapshot) error {
	steps, err := encodeSteps(snap.Steps)
	if err != nil {
		return err
	}
	approval, err := encodeApprovals(snap.Approval, snap.Approvals)
	if err != nil {
		return err
	}

	doc := mongoSnapshot{
		Identity:  snap.Identity,
		Kind:      snap.Kind,
		Status:    string(snap.Status),
		CreatedAt: snap.CreatedAt.UnixNano(),
		UpdatedAt: snap.UpdatedAt.UnixNano(),
		Steps:     steps,
		Approval:  approval,
	}

	_, err = s.coll.ReplaceOne(ctx,
		bson.M{"_id": snap.Identity},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) Load(ctx context.Context, identity string) (*api.Snapshot, error) {
	var doc mongoSnapshot
	err := s.coll.FindOne(ctx, bson.M{"_id": identity}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	return doc.toSnapshot()
}

func (s *MongoStore) List(ctx context.Context, filter Filter) ([]*api.Snapshot, error) {
	query := bson.M{}
	if filter.Kind != "" {
		query["kind"] = filter.Kind
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}

	cursor, err := s.coll.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var snapshots []*api.Snapshot
	for cursor.Next(ctx) {
		var doc mongoSnapshot
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		snap, err := doc.toSnapshot()
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, cursor.Err()
}

func (s *MongoStore) Delete(ctx context.Context, identity string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": identity})
	return err
}

func (d *mongoSnapshot) toSnapshot() (*api.Snapshot, error) {
	steps, err := decodeSteps(d.Steps)
	if err != nil {
		return nil, err
	}
	current, resolved, err := decodeApprovals(d.Approval)
	if err != nil {
		return nil, err
	}
	return &api.Snapshot{
		Identity:  d.Identity,
		Kind:      d.Kind,
		Status:    api.Status(d.Status),
		CreatedAt: time.Unix(0, d.CreatedAt).UTC(),
		UpdatedAt: time.Unix(0, d.UpdatedAt).UTC(),
		Steps:     steps,
		Approval:  current,
		Approvals: resolved,
	}, nil
}
