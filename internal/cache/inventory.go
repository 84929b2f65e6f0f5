package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	QaafiaKeyPrefix    = "qaafia:%s:%s"
	GhazalFacetPrefix  = "ghazals:facet:%s"
	RevokedTokenPrefix = "blacklist:%s"
	ghazalFacetPoets   = "poets"
	ghazalFacetGenres  = "genres"
	ghazalFacetDomains = "domains"
)

const (
	// QaafiaTTL is the default; the service takes its TTL from config.
	QaafiaTTL      = 10 * time.Minute
	GhazalFacetTTL = 5 * time.Minute
)

// QaafiaKey caches the deduplicated result for one column/pattern pair.
func QaafiaKey(column, pattern string) string {
	return fmt.Sprintf(QaafiaKeyPrefix, column, pattern)
}

// GhazalFacetKey caches a distinct-value list (poets, genres, domains).
func GhazalFacetKey(facet string) string {
	return fmt.Sprintf(GhazalFacetPrefix, facet)
}

// RevokedTokenKey marks a token id as revoked until its expiry.
func RevokedTokenKey(jti string) string {
	return fmt.Sprintf(RevokedTokenPrefix, jti)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateQaafia drops every cached qaafia result, returning how many
// keys were removed. Used after the word dictionary changes.
func InvalidateQaafia(ctx context.Context) (int, error) {
	if client == nil {
		return 0, nil
	}
	var removed int
	iter := client.Scan(ctx, 0, "qaafia:*", 500).Iterator()
	batch := make([]string, 0, 500)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := client.Del(ctx, batch...).Err(); err != nil {
				return removed, err
			}
			removed += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	if len(batch) > 0 {
		if err := client.Del(ctx, batch...).Err(); err != nil {
			return removed, err
		}
		removed += len(batch)
	}
	return removed, nil
}

// InvalidateGhazalFacets drops every cached distinct list after a ghazal write.
func InvalidateGhazalFacets(ctx context.Context) {
	Invalidate(ctx,
		GhazalFacetKey(ghazalFacetPoets),
		GhazalFacetKey(ghazalFacetGenres),
		GhazalFacetKey(ghazalFacetDomains),
	)
}
