package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/codegraph-dev/codegraph/internal/config"
	"github.com/codegraph-dev/codegraph/internal/embed"
	"github.com/codegraph-dev/codegraph/internal/embedcache"
	"github.com/codegraph-dev/codegraph/internal/graph"
	"github.com/codegraph-dev/codegraph/internal/index"
	"github.com/codegraph-dev/codegraph/internal/search"
	"github.com/codegraph-dev/codegraph/internal/store"
)

// embedderProbeTimeout bounds how long a CLI invocation waits on a
// configured HTTP embedder before falling back to the static embedder; it
// is shorter than codegraphd's 15s startup probe.
const embedderProbeTimeout = 5 * time.Second

// app bundles the open handles one codegraph invocation needs. Every
// subcommand opens and closes its own app rather than sharing a daemon
// connection, the same direct-open shape runLocalSearch used in the
// teacher's CLI before a daemon client existed.
type app struct {
	cfg       *config.Config
	store     *store.Store
	graph     *graph.Graph
	cache     *embedcache.Cache
	embedder  embed.Embedder
	indexer   *index.Indexer
	retriever *search.Retriever
	projectID string
	root      string
}

// openApp resolves root to a project directory, loads its config, and
// opens every on-disk handle an operation might need. Close must be
// called when the caller is done.
func openApp(ctx context.Context, root string) (*app, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	cfg, err := config.Load(absRoot)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(cfg.Storage.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	embedder := selectEmbedder(ctx, cfg)

	st, err := store.Open(
		filepath.Join(cfg.Storage.Root, "vectors.db"),
		filepath.Join(cfg.Storage.Root, "vector-indexes"),
		store.Config{Dimensions: embedder.Dimensions()},
	)
	if err != nil {
		embedder.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	kg, err := graph.Open(filepath.Join(cfg.Storage.Root, "graph.db"))
	if err != nil {
		st.Close()
		embedder.Close()
		return nil, fmt.Errorf("open graph: %w", err)
	}

	cache, err := embedcache.Open(filepath.Join(cfg.Storage.Root, "embed-cache.db"))
	if err != nil {
		kg.Close()
		st.Close()
		embedder.Close()
		return nil, fmt.Errorf("open embed cache: %w", err)
	}

	projectID, err := index.ProjectID(absRoot)
	if err != nil {
		cache.Close()
		kg.Close()
		st.Close()
		embedder.Close()
		return nil, fmt.Errorf("derive project id: %w", err)
	}

	return &app{
		cfg:       cfg,
		store:     st,
		graph:     kg,
		cache:     cache,
		embedder:  embedder,
		indexer:   index.New(cfg, st, kg, embedder, cache),
		retriever: search.New(st, kg, embedder),
		projectID: projectID,
		root:      absRoot,
	}, nil
}

// selectEmbedder mirrors codegraphd's own startup fallback: prefer the
// configured HTTP embedder, fall back to the static embedder when it is
// unreachable, so a CLI invocation never blocks indefinitely on a server
// that may not be running.
func selectEmbedder(ctx context.Context, cfg *config.Config) embed.Embedder {
	probeCtx, cancel := context.WithTimeout(ctx, embedderProbeTimeout)
	defer cancel()

	if e, err := embed.NewHTTPEmbedder(probeCtx, cfg.Embeddings); err == nil {
		return embed.NewCachedEmbedderWithDefaults(e)
	} else {
		slog.Debug("HTTP embedder unavailable, falling back to static embedder", "error", err)
	}
	return embed.NewCachedEmbedderWithDefaults(embed.NewStaticEmbedder())
}

func (a *app) Close() {
	a.cache.Close()
	a.graph.Close()
	a.store.Close()
	a.embedder.Close()
}
