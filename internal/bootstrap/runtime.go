// Package bootstrap wires the datastores shared by the server and tooling commands.
package bootstrap

import (
	"context"
	"fmt"

	"harfzaar/internal/cache"
	"harfzaar/internal/config"
	"harfzaar/internal/database"
	"harfzaar/internal/repository"
	"harfzaar/internal/seed"

	"github.com/redis/go-redis/v9"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedSample loads the bundled dictionary when the word collection is empty.
	SeedSample bool
}

// InitRuntime connects to MongoDB and Redis, ensures indexes and optionally
// seeds the sample dictionary. The Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*database.Client, *redis.Client, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := db.EnsureIndexes(ctx); err != nil {
		_ = db.Close(context.Background())
		return nil, nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	if opts.SeedSample {
		if err := seedSampleIfEmpty(ctx, db); err != nil {
			_ = db.Close(context.Background())
			return nil, nil, fmt.Errorf("failed to seed sample dictionary: %w", err)
		}
	}

	return db, cache.GetClient(), nil
}

func seedSampleIfEmpty(ctx context.Context, db *database.Client) error {
	n, err := db.Collection(database.WordsCollection).EstimatedDocumentCount(ctx)
	if err != nil || n > 0 {
		return err
	}
	dict, err := seed.LoadFile("")
	if err != nil {
		return err
	}
	s := seed.NewSeeder(
		repository.NewWordRepository(db.Collection(database.WordsCollection)),
		repository.NewGirahLineRepository(db.Collection(database.GirahLinesCollection)),
		repository.NewGhazalRepository(db.Collection(database.GhazalsCollection)),
		repository.NewUserRepository(db.Collection(database.UsersCollection)),
		0,
	)
	_, err = s.Load(ctx, dict)
	return err
}
