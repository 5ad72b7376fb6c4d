package cmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codegraph-dev/codegraph/internal/store"
)

// setupTestProject points STORAGE_ROOT at a scratch directory and an
// unreachable embedding endpoint (port 1 is always refused, never bound by
// a real service), so openApp falls back to the static embedder instantly
// instead of probing a real network address.
func setupTestProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORAGE_ROOT", filepath.Join(dir, "storage"))
	t.Setenv("EMBEDDING_ENDPOINT", "http://127.0.0.1:1")

	return filepath.Join(dir, "project")
}

// seedChunk opens root's app, upserts a single hand-built chunk, and closes
// the app again, so a later command invocation reopens the same on-disk
// store/graph and finds the chunk already indexed.
func seedChunk(t *testing.T, root string, c *store.Chunk) *app {
	t.Helper()
	ctx := context.Background()
	a, err := openApp(ctx, root)
	require.NoError(t, err)

	if c.Vector == nil {
		vec, err := a.embedder.Embed(ctx, c.Content)
		require.NoError(t, err)
		c.Vector = vec
	}
	if c.LastModified.IsZero() {
		c.LastModified = time.Now()
	}

	require.NoError(t, a.store.UpsertChunks(ctx, a.projectID, []*store.Chunk{c}))
	return a
}

func TestOpenApp_OpensAndCloses(t *testing.T) {
	root := setupTestProject(t)

	a, err := openApp(context.Background(), root)
	require.NoError(t, err)
	require.NotNil(t, a.store)
	require.NotNil(t, a.graph)
	require.NotNil(t, a.retriever)
	a.Close()
}

func TestOpenApp_DerivesSameProjectIDForSameRoot(t *testing.T) {
	root := setupTestProject(t)

	a1, err := openApp(context.Background(), root)
	require.NoError(t, err)
	a1.Close()

	a2, err := openApp(context.Background(), root)
	require.NoError(t, err)
	defer a2.Close()

	require.Equal(t, a1.projectID, a2.projectID)
}
