// Package repository implements the MongoDB data access layer.
package repository

import (
	"context"
	"errors"

	"harfzaar/internal/database"
	"harfzaar/internal/models"
	"harfzaar/internal/observability"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// begin bounds ctx by the query timeout and opens a span plus a latency timer.
// The returned func must be called exactly once with the operation's error.
func begin(ctx context.Context, operation, collection string) (context.Context, func(error)) {
	ctx, cancel := database.WithTimeout(ctx)
	ctx, span := observability.StartRepositorySpan(ctx, operation, collection)
	done := observability.TrackQuery(operation, collection)
	return ctx, func(err error) {
		done()
		observability.EndSpan(span, err)
		cancel()
	}
}

// wrap converts a driver error into an AppError and logs it.
func wrap(ctx context.Context, log *observability.RepoLogger, operation string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	log.LogError(ctx, err, operation)
	return models.NewInternalError(err)
}

// findAll decodes every document matched by a cursor-returning call.
func findAll[T any](ctx context.Context, cur *mongo.Cursor, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseID parses a hex ObjectID, reporting failures as validation errors.
func ParseID(hex, field string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return bson.NilObjectID, models.NewValidationError("Invalid " + field)
	}
	return id, nil
}
