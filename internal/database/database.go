// Package database manages the MongoDB connection, collections and indexes.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"harfzaar/internal/config"
	"harfzaar/internal/middleware"

	"go.mongodb.org/mongo-driver/v2/event"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Collection names.
const (
	WordsCollection        = "qaafia_words"
	GhazalsCollection      = "ghazals"
	PoetsCollection        = "poets"
	PendingPoetsCollection = "pending_poets"
	UsersCollection        = "users"
	ChatsCollection        = "chats"
	NewsCollection         = "news"
	FeedbackCollection     = "feedback"
	GirahLinesCollection   = "girah_lines"
)

// QueryTimeout bounds every single datastore operation.
const QueryTimeout = 5 * time.Second

// slowCommandThreshold is the latency above which a command is logged as slow.
const slowCommandThreshold = 200 * time.Millisecond

// CaseInsensitive is the collation used for qaafia lookups and their indexes.
var CaseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// Client wraps mongo.Client and exposes the application database.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens a MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context, cfg *config.Config) (*Client, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetConnectTimeout(10 * time.Second).
		SetMonitor(commandMonitor())

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	middleware.Logger.Info("Database connected successfully", slog.String("database", cfg.MongoDatabase))

	return &Client{client: client, db: client.Database(cfg.MongoDatabase)}, nil
}

// commandMonitor logs failed and slow commands through the request-aware logger.
func commandMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Succeeded: func(ctx context.Context, e *event.CommandSucceededEvent) {
			if e.Duration > slowCommandThreshold {
				middleware.Logger.WarnContext(ctx, "MongoDB slow command",
					slog.String("command", e.CommandName),
					slog.Duration("elapsed", e.Duration),
				)
			}
		},
		Failed: func(ctx context.Context, e *event.CommandFailedEvent) {
			middleware.Logger.ErrorContext(ctx, "MongoDB command error",
				slog.String("command", e.CommandName),
				slog.Duration("elapsed", e.Duration),
				slog.String("error", e.Failure.Error()),
			)
		},
	}
}

// Database returns the application database handle.
func (c *Client) Database() *mongo.Database {
	return c.db
}

// Collection returns the named collection.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

// Ping checks that the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// WithTimeout derives a context bounded by QueryTimeout.
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, QueryTimeout)
}
