package repository

import (
	"context"
	"errors"
	"time"

	"harfzaar/internal/database"
	"harfzaar/internal/models"
	"harfzaar/internal/observability"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// PoetRepository defines persistence operations for poet profiles.
type PoetRepository interface {
	GetByName(ctx context.Context, name string) (*models.Poet, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, p *models.Poet) error
	Delete(ctx context.Context, id bson.ObjectID) error
}

// PendingPoetRepository stores poet submissions awaiting review.
type PendingPoetRepository interface {
	Create(ctx context.Context, p *models.PendingPoet) error
}

type poetRepository struct {
	coll *mongo.Collection
	log  *observability.RepoLogger
}

// NewPoetRepository returns a PoetRepository backed by coll.
func NewPoetRepository(coll *mongo.Collection) PoetRepository {
	return &poetRepository{coll: coll, log: observability.NewRepoLogger(database.PoetsCollection)}
}

func (r *poetRepository) GetByName(ctx context.Context, name string) (p *models.Poet, err error) {
	ctx, end := begin(ctx, "find_one", database.PoetsCollection)
	defer func() { end(err) }()

	var poet models.Poet
	if err = r.coll.FindOne(ctx, bson.D{{Key: "name", Value: name}}).Decode(&poet); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundMessage("Poet not found")
		}
		return nil, wrap(ctx, r.log, "get_by_name", err)
	}
	return &poet, nil
}

func (r *poetRepository) ExistsByName(ctx context.Context, name string) (exists bool, err error) {
	ctx, end := begin(ctx, "count", database.PoetsCollection)
	defer func() { end(err) }()

	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, wrap(ctx, r.log, "exists_by_name", err)
	}
	return n > 0, nil
}

func (r *poetRepository) Create(ctx context.Context, p *models.Poet) (err error) {
	ctx, end := begin(ctx, "insert", database.PoetsCollection)
	defer func() { end(err) }()

	now := time.Now().UTC()
	p.ID = bson.NewObjectID()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Ghazals == nil {
		p.Ghazals = []bson.ObjectID{}
	}
	if _, err = r.coll.InsertOne(ctx, p); err != nil {
		p.ID = bson.NilObjectID
		if mongo.IsDuplicateKeyError(err) {
			return models.NewConflictError("Poet name already exists")
		}
		return wrap(ctx, r.log, "create", err)
	}
	r.log.LogWrite(ctx, "create", map[string]any{"poet_id": p.ID.Hex(), "name": p.Name})
	return nil
}

func (r *poetRepository) Delete(ctx context.Context, id bson.ObjectID) (err error) {
	ctx, end := begin(ctx, "delete", database.PoetsCollection)
	defer func() { end(err) }()

	if _, err = r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return wrap(ctx, r.log, "delete", err)
	}
	r.log.LogWrite(ctx, "delete", map[string]any{"poet_id": id.Hex()})
	return nil
}

type pendingPoetRepository struct {
	coll *mongo.Collection
	log  *observability.RepoLogger
}

// NewPendingPoetRepository returns a PendingPoetRepository backed by coll.
func NewPendingPoetRepository(coll *mongo.Collection) PendingPoetRepository {
	return &pendingPoetRepository{coll: coll, log: observability.NewRepoLogger(database.PendingPoetsCollection)}
}

func (r *pendingPoetRepository) Create(ctx context.Context, p *models.PendingPoet) (err error) {
	ctx, end := begin(ctx, "insert", database.PendingPoetsCollection)
	defer func() { end(err) }()

	now := time.Now().UTC()
	p.ID = bson.NewObjectID()
	p.CreatedAt, p.UpdatedAt = now, now
	if _, err = r.coll.InsertOne(ctx, p); err != nil {
		p.ID = bson.NilObjectID
		return wrap(ctx, r.log, "create", err)
	}
	r.log.LogWrite(ctx, "create", map[string]any{"pending_poet_id": p.ID.Hex(), "user_id": p.UserID.Hex()})
	return nil
}
