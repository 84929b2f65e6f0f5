package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"harfzaar/internal/config"
	"harfzaar/internal/database"

	"github.com/stretchr/testify/require"
)

// testClient connects to the MongoDB named by MONGODB_URI using a throwaway
// database, or skips the test when no server is configured.
func testClient(t *testing.T) *database.Client {
	t.Helper()

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("Repository integration tests skipped: MONGODB_URI not set")
	}

	cfg := &config.Config{
		MongoURI:      uri,
		MongoDatabase: fmt.Sprintf("harfzaar_repo_test_%d", time.Now().UnixNano()),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := database.Connect(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, client.EnsureIndexes(ctx))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Database().Drop(ctx)
		_ = client.Close(ctx)
	})
	return client
}
