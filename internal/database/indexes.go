package database

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"harfzaar/internal/middleware"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// RaviColumns lists the qaafia columns in pattern-length order.
var RaviColumns = []string{"ravi1", "ravi2", "ravi3", "ravi4", "ravi5"}

func indexPlan() map[string][]mongo.IndexModel {
	raviIndexes := make([]mongo.IndexModel, 0, len(RaviColumns)+1)
	for _, col := range RaviColumns {
		raviIndexes = append(raviIndexes, mongo.IndexModel{
			Keys:    bson.D{{Key: col, Value: 1}},
			Options: options.Index().SetCollation(CaseInsensitive),
		})
	}
	raviIndexes = append(raviIndexes, mongo.IndexModel{
		Keys:    bson.D{{Key: "word", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return map[string][]mongo.IndexModel{
		WordsCollection: raviIndexes,
		UsersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "lastActivity", Value: 1}}},
		},
		ChatsCollection: {
			{Keys: bson.D{{Key: "roomId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "participants", Value: 1}}},
		},
		PoetsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		GhazalsCollection: {
			{Keys: bson.D{{Key: "poetName", Value: 1}}},
			{Keys: bson.D{{Key: "genre", Value: 1}}},
			{Keys: bson.D{{Key: "poetryDomain", Value: 1}}},
			{Keys: bson.D{{Key: "poetryTitle", Value: 1}}},
		},
		PendingPoetsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		NewsCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		GirahLinesCollection: {
			{Keys: bson.D{{Key: "line", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

// EnsureIndexes creates every index the repositories rely on. It is idempotent.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	for coll, models := range indexPlan() {
		names, err := c.db.Collection(coll).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
		middleware.Logger.Debug("indexes ensured",
			slog.String("collection", coll),
			slog.Any("indexes", names),
		)
	}
	return nil
}

// IndexReport compares one collection's live indexes with the plan.
type IndexReport struct {
	Collection string
	Present    []string
	Missing    []string
}

// indexName mirrors the driver's default name: field_dir joined by "_".
func indexName(keys bson.D) string {
	name := ""
	for i, k := range keys {
		if i > 0 {
			name += "_"
		}
		name += fmt.Sprintf("%s_%v", k.Key, k.Value)
	}
	return name
}

// IndexStatus reports which planned indexes exist, collection by collection.
func (c *Client) IndexStatus(ctx context.Context) ([]IndexReport, error) {
	plan := indexPlan()
	out := make([]IndexReport, 0, len(plan))
	for _, coll := range slices.Sorted(maps.Keys(plan)) {
		specs, err := c.db.Collection(coll).Indexes().ListSpecifications(ctx)
		if err != nil {
			return nil, fmt.Errorf("list indexes on %s: %w", coll, err)
		}
		live := make(map[string]bool, len(specs))
		for _, s := range specs {
			live[s.Name] = true
		}

		report := IndexReport{Collection: coll}
		for _, m := range plan[coll] {
			name := indexName(m.Keys.(bson.D))
			if live[name] {
				report.Present = append(report.Present, name)
			} else {
				report.Missing = append(report.Missing, name)
			}
		}
		out = append(out, report)
	}
	return out, nil
}

// DropIndexes removes every index except _id from coll so EnsureIndexes can
// rebuild them, e.g. after a collation change.
func (c *Client) DropIndexes(ctx context.Context, coll string) error {
	if _, ok := indexPlan()[coll]; !ok {
		return fmt.Errorf("unknown collection %q", coll)
	}
	return c.db.Collection(coll).Indexes().DropAll(ctx)
}
