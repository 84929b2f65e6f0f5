package repository

import (
	"context"
	"time"

	"harfzaar/internal/database"
	"harfzaar/internal/models"
	"harfzaar/internal/observability"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NewsRepository defines persistence operations for news items.
type NewsRepository interface {
	Create(ctx context.Context, n *models.News) error
	ListRecent(ctx context.Context) ([]models.News, error)
}

// FeedbackRepository stores contact-form submissions.
type FeedbackRepository interface {
	Create(ctx context.Context, f *models.Feedback) error
}

type newsRepository struct {
	coll *mongo.Collection
	log  *observability.RepoLogger
}

// NewNewsRepository returns a NewsRepository backed by coll.
func NewNewsRepository(coll *mongo.Collection) NewsRepository {
	return &newsRepository{coll: coll, log: observability.NewRepoLogger(database.NewsCollection)}
}

func (r *newsRepository) Create(ctx context.Context, n *models.News) (err error) {
	ctx, end := begin(ctx, "insert", database.NewsCollection)
	defer func() { end(err) }()

	now := time.Now().UTC()
	n.ID = bson.NewObjectID()
	n.CreatedAt, n.UpdatedAt = now, now
	if _, err = r.coll.InsertOne(ctx, n); err != nil {
		n.ID = bson.NilObjectID
		return wrap(ctx, r.log, "create", err)
	}
	r.log.LogWrite(ctx, "create", map[string]any{"news_id": n.ID.Hex()})
	return nil
}

func (r *newsRepository) ListRecent(ctx context.Context) (items []models.News, err error) {
	ctx, end := begin(ctx, "find", database.NewsCollection)
	defer func() { end(err) }()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	items, err = findAll[models.News](ctx, cur, err)
	if err != nil {
		return nil, wrap(ctx, r.log, "list_recent", err)
	}
	return items, nil
}

type feedbackRepository struct {
	coll *mongo.Collection
	log  *observability.RepoLogger
}

// NewFeedbackRepository returns a FeedbackRepository backed by coll.
func NewFeedbackRepository(coll *mongo.Collection) FeedbackRepository {
	return &feedbackRepository{coll: coll, log: observability.NewRepoLogger(database.FeedbackCollection)}
}

func (r *feedbackRepository) Create(ctx context.Context, f *models.Feedback) (err error) {
	ctx, end := begin(ctx, "insert", database.FeedbackCollection)
	defer func() { end(err) }()

	f.ID = bson.NewObjectID()
	f.CreatedAt = time.Now().UTC()
	if _, err = r.coll.InsertOne(ctx, f); err != nil {
		f.ID = bson.NilObjectID
		return wrap(ctx, r.log, "create", err)
	}
	r.log.LogWrite(ctx, "create", map[string]any{"feedback_id": f.ID.Hex()})
	return nil
}
