package repository

import (
	"context"
	"errors"

	"harfzaar/internal/database"
	"harfzaar/internal/models"
	"harfzaar/internal/observability"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// GhazalRepository defines persistence operations for ghazals.
type GhazalRepository interface {
	All(ctx context.Context) ([]models.Ghazal, error)
	Distinct(ctx context.Context, field string) ([]string, error)
	ListTitles(ctx context.Context, filter models.GhazalFilter) ([]models.GhazalTitle, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*models.Ghazal, error)
	GetByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Ghazal, error)
	GetByTitle(ctx context.Context, title string) (*models.Ghazal, error)
	ListByPoet(ctx context.Context, poetName string) ([]models.Ghazal, error)
	ListByGenre(ctx context.Context, genre string) ([]models.Ghazal, error)
	Create(ctx context.Context, g *models.Ghazal) error
	Delete(ctx context.Context, id bson.ObjectID) error
	UpsertMany(ctx context.Context, ghazals []models.Ghazal) (int64, error)
}

type ghazalRepository struct {
	coll *mongo.Collection
	log  *observability.RepoLogger
}

// NewGhazalRepository returns a GhazalRepository backed by coll.
func NewGhazalRepository(coll *mongo.Collection) GhazalRepository {
	return &ghazalRepository{coll: coll, log: observability.NewRepoLogger(database.GhazalsCollection)}
}

func (r *ghazalRepository) find(ctx context.Context, op string, filter any, opts ...options.Lister[options.FindOptions]) (out []models.Ghazal, err error) {
	ctx, end := begin(ctx, "find", database.GhazalsCollection)
	defer func() { end(err) }()

	cur, err := r.coll.Find(ctx, filter, opts...)
	out, err = findAll[models.Ghazal](ctx, cur, err)
	if err != nil {
		return nil, wrap(ctx, r.log, op, err)
	}
	return out, nil
}

func (r *ghazalRepository) findOne(ctx context.Context, op string, filter any) (g *models.Ghazal, err error) {
	ctx, end := begin(ctx, "find_one", database.GhazalsCollection)
	defer func() { end(err) }()

	var out models.Ghazal
	if err = r.coll.FindOne(ctx, filter).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NewNotFoundMessage("Poetry not found")
		}
		return nil, wrap(ctx, r.log, op, err)
	}
	return &out, nil
}

func (r *ghazalRepository) All(ctx context.Context) ([]models.Ghazal, error) {
	return r.find(ctx, "all", bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (r *ghazalRepository) Distinct(ctx context.Context, field string) (values []string, err error) {
	ctx, end := begin(ctx, "distinct", database.GhazalsCollection)
	defer func() { end(err) }()

	values = []string{}
	if err = r.coll.Distinct(ctx, field, bson.D{}).Decode(&values); err != nil {
		return nil, wrap(ctx, r.log, "distinct", err)
	}
	return values, nil
}

func (r *ghazalRepository) ListTitles(ctx context.Context, filter models.GhazalFilter) (titles []models.GhazalTitle, err error) {
	q := bson.D{}
	if filter.PoetName != "" {
		q = append(q, bson.E{Key: "poetName", Value: filter.PoetName})
	}
	if filter.Genre != "" {
		q = append(q, bson.E{Key: "genre", Value: filter.Genre})
	}
	if filter.PoetryDomain != "" {
		q = append(q, bson.E{Key: "poetryDomain", Value: filter.PoetryDomain})
	}

	ctx, end := begin(ctx, "find", database.GhazalsCollection)
	defer func() { end(err) }()

	opts := options.Find().SetProjection(bson.D{{Key: "poetryTitle", Value: 1}})
	cur, err := r.coll.Find(ctx, q, opts)
	titles, err = findAll[models.GhazalTitle](ctx, cur, err)
	if err != nil {
		return nil, wrap(ctx, r.log, "list_titles", err)
	}
	return titles, nil
}

func (r *ghazalRepository) GetByID(ctx context.Context, id bson.ObjectID) (*models.Ghazal, error) {
	return r.findOne(ctx, "get_by_id", bson.D{{Key: "_id", Value: id}})
}

func (r *ghazalRepository) GetByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Ghazal, error) {
	if len(ids) == 0 {
		return []models.Ghazal{}, nil
	}
	return r.find(ctx, "get_by_ids", bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
}

func (r *ghazalRepository) GetByTitle(ctx context.Context, title string) (*models.Ghazal, error) {
	return r.findOne(ctx, "get_by_title", bson.D{{Key: "poetryTitle", Value: title}})
}

func (r *ghazalRepository) ListByPoet(ctx context.Context, poetName string) ([]models.Ghazal, error) {
	return r.find(ctx, "list_by_poet", bson.D{{Key: "poetName", Value: poetName}})
}

func (r *ghazalRepository) ListByGenre(ctx context.Context, genre string) ([]models.Ghazal, error) {
	return r.find(ctx, "list_by_genre", bson.D{{Key: "genre", Value: genre}})
}

func (r *ghazalRepository) Create(ctx context.Context, g *models.Ghazal) (err error) {
	ctx, end := begin(ctx, "insert", database.GhazalsCollection)
	defer func() { end(err) }()

	g.ID = bson.NewObjectID()
	if _, err = r.coll.InsertOne(ctx, g); err != nil {
		g.ID = bson.NilObjectID
		return wrap(ctx, r.log, "create", err)
	}
	r.log.LogWrite(ctx, "create", map[string]any{"ghazal_id": g.ID.Hex(), "poet": g.PoetName})
	return nil
}

func (r *ghazalRepository) Delete(ctx context.Context, id bson.ObjectID) (err error) {
	ctx, end := begin(ctx, "delete", database.GhazalsCollection)
	defer func() { end(err) }()

	if _, err = r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return wrap(ctx, r.log, "delete", err)
	}
	r.log.LogWrite(ctx, "delete", map[string]any{"ghazal_id": id.Hex()})
	return nil
}

func (r *ghazalRepository) UpsertMany(ctx context.Context, ghazals []models.Ghazal) (n int64, err error) {
	if len(ghazals) == 0 {
		return 0, nil
	}
	ctx, end := begin(ctx, "bulk_write", database.GhazalsCollection)
	defer func() { end(err) }()

	writes := make([]mongo.WriteModel, 0, len(ghazals))
	for _, g := range ghazals {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.D{
				{Key: "poetName", Value: g.PoetName},
				{Key: "poetryTitle", Value: g.PoetryTitle},
			}).
			SetUpdate(bson.D{{Key: "$set", Value: bson.D{
				{Key: "poetryDomain", Value: g.PoetryDomain},
				{Key: "poetryContent", Value: g.PoetryContent},
				{Key: "genre", Value: g.Genre},
			}}}).
			SetUpsert(true))
	}

	res, err := r.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, wrap(ctx, r.log, "upsert_many", err)
	}
	return res.UpsertedCount + res.ModifiedCount, nil
}
