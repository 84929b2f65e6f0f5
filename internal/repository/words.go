package repository

import (
	"context"
	"slices"

	"harfzaar/internal/database"
	"harfzaar/internal/models"
	"harfzaar/internal/observability"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// WordRepository reads the qaafia dictionary.
type WordRepository interface {
	// FindByRavi returns words whose column equals pattern, case-insensitively,
	// in store order. Duplicates are not removed.
	FindByRavi(ctx context.Context, column, pattern string) ([]string, error)
	UpsertMany(ctx context.Context, words []models.Word) (int64, error)
}

type wordRepository struct {
	coll *mongo.Collection
	log  *observability.RepoLogger
}

// NewWordRepository returns a WordRepository backed by coll.
func NewWordRepository(coll *mongo.Collection) WordRepository {
	return &wordRepository{coll: coll, log: observability.NewRepoLogger(database.WordsCollection)}
}

func (r *wordRepository) FindByRavi(ctx context.Context, column, pattern string) (words []string, err error) {
	if !slices.Contains(database.RaviColumns, column) {
		return nil, models.NewValidationError("Unknown ravi column")
	}

	ctx, end := begin(ctx, "find", database.WordsCollection)
	defer func() { end(err) }()

	opts := options.Find().
		SetCollation(database.CaseInsensitive).
		SetProjection(bson.D{{Key: "word", Value: 1}}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cur, err := r.coll.Find(ctx, bson.D{{Key: column, Value: pattern}}, opts)
	docs, err := findAll[models.Word](ctx, cur, err)
	if err != nil {
		return nil, wrap(ctx, r.log, "find_by_ravi", err)
	}

	words = make([]string, 0, len(docs))
	for _, d := range docs {
		words = append(words, d.Word)
	}
	return words, nil
}

func (r *wordRepository) UpsertMany(ctx context.Context, words []models.Word) (n int64, err error) {
	if len(words) == 0 {
		return 0, nil
	}
	ctx, end := begin(ctx, "bulk_write", database.WordsCollection)
	defer func() { end(err) }()

	writes := make([]mongo.WriteModel, 0, len(words))
	for _, w := range words {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "word", Value: w.Word}}).
			SetUpdate(bson.D{{Key: "$set", Value: bson.D{
				{Key: "ravi1", Value: w.Ravi1},
				{Key: "ravi2", Value: w.Ravi2},
				{Key: "ravi3", Value: w.Ravi3},
				{Key: "ravi4", Value: w.Ravi4},
				{Key: "ravi5", Value: w.Ravi5},
			}}}).
			SetUpsert(true))
	}

	res, err := r.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, wrap(ctx, r.log, "upsert_many", err)
	}
	r.log.LogWrite(ctx, "upsert_many", map[string]any{"upserted": res.UpsertedCount, "modified": res.ModifiedCount})
	return res.UpsertedCount + res.ModifiedCount, nil
}
