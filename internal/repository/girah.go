package repository

import (
	"context"

	"harfzaar/internal/database"
	"harfzaar/internal/models"
	"harfzaar/internal/observability"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// GirahLineRepository serves reference verses for the girah game.
type GirahLineRepository interface {
	Random(ctx context.Context) (*models.GirahLine, error)
	UpsertMany(ctx context.Context, lines []string) (int64, error)
}

type girahLineRepository struct {
	coll *mongo.Collection
	log  *observability.RepoLogger
}

// NewGirahLineRepository returns a GirahLineRepository backed by coll.
func NewGirahLineRepository(coll *mongo.Collection) GirahLineRepository {
	return &girahLineRepository{coll: coll, log: observability.NewRepoLogger(database.GirahLinesCollection)}
}

func (r *girahLineRepository) Random(ctx context.Context) (line *models.GirahLine, err error) {
	ctx, end := begin(ctx, "aggregate", database.GirahLinesCollection)
	defer func() { end(err) }()

	pipeline := mongo.Pipeline{{{Key: "$sample", Value: bson.D{{Key: "size", Value: 1}}}}}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	lines, err := findAll[models.GirahLine](ctx, cur, err)
	if err != nil {
		return nil, wrap(ctx, r.log, "random", err)
	}
	if len(lines) == 0 {
		return nil, models.NewNotFoundMessage("No girah lines available")
	}
	return &lines[0], nil
}

func (r *girahLineRepository) UpsertMany(ctx context.Context, lines []string) (n int64, err error) {
	if len(lines) == 0 {
		return 0, nil
	}
	ctx, end := begin(ctx, "bulk_write", database.GirahLinesCollection)
	defer func() { end(err) }()

	writes := make([]mongo.WriteModel, 0, len(lines))
	for _, l := range lines {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "line", Value: l}}).
			SetUpdate(bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: "line", Value: l}}}}).
			SetUpsert(true))
	}
	res, err := r.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, wrap(ctx, r.log, "upsert_many", err)
	}
	return res.UpsertedCount, nil
}
