// Command codegraphd is the stdio daemon: it wires the Indexer and
// Retriever to a JSON-RPC 2.0 stream over stdin/stdout, one process
// serving every project a client names by root_path.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/codegraph-dev/codegraph/internal/config"
	"github.com/codegraph-dev/codegraph/internal/embed"
	"github.com/codegraph-dev/codegraph/internal/embedcache"
	"github.com/codegraph-dev/codegraph/internal/graph"
	"github.com/codegraph-dev/codegraph/internal/index"
	"github.com/codegraph-dev/codegraph/internal/logging"
	"github.com/codegraph-dev/codegraph/internal/rpc"
	"github.com/codegraph-dev/codegraph/internal/search"
	"github.com/codegraph-dev/codegraph/internal/store"
)

// embedderProbeTimeout bounds how long startup waits on the configured
// HTTP embedder before falling back to the static embedder.
const embedderProbeTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "codegraphd:", err)
		os.Exit(1)
	}
}

func run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getwd: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Server.LogLevel
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Storage.Root, 0o755); err != nil {
		return fmt.Errorf("create storage root: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	embedder := selectEmbedder(ctx, cfg, logger)
	defer embedder.Close()

	st, err := store.Open(
		filepath.Join(cfg.Storage.Root, "vectors.db"),
		filepath.Join(cfg.Storage.Root, "vector-indexes"),
		store.Config{Dimensions: embedder.Dimensions()},
	)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	kg, err := graph.Open(filepath.Join(cfg.Storage.Root, "graph.db"))
	if err != nil {
		return fmt.Errorf("open graph: %w", err)
	}
	defer kg.Close()

	cache, err := embedcache.Open(filepath.Join(cfg.Storage.Root, "embed-cache.db"))
	if err != nil {
		return fmt.Errorf("open embed cache: %w", err)
	}
	defer cache.Close()

	ix := index.New(cfg, st, kg, embedder, cache)
	defer ix.Close()

	retriever := search.New(st, kg, embedder)

	server := rpc.NewServer(logger)
	registerHandlers(server, ix, retriever)

	logger.Info("codegraphd starting", "storage_root", cfg.Storage.Root)
	return server.Serve(ctx, os.Stdin, os.Stdout)
}

// selectEmbedder prefers the configured HTTP embedding server, falling
// back to the deterministic static embedder (wrapped with an in-memory
// cache) when the server is unreachable at startup. This mirrors the
// teacher's offline fallback in spirit (never block the daemon
// indefinitely on an embedder that may never come up) without the
// teacher's thermal/MLX-provider selection machinery, which this system
// has no equivalent surface for.
func selectEmbedder(ctx context.Context, cfg *config.Config, logger *slog.Logger) embed.Embedder {
	probeCtx, cancel := context.WithTimeout(ctx, embedderProbeTimeout)
	defer cancel()

	if e, err := embed.NewHTTPEmbedder(probeCtx, cfg.Embeddings); err == nil {
		logger.Info("using HTTP embedder", "endpoint", cfg.Embeddings.Endpoint, "model", cfg.Embeddings.Model)
		return embed.NewCachedEmbedderWithDefaults(e)
	} else {
		logger.Warn("HTTP embedder unavailable, falling back to static embedder", "endpoint", cfg.Embeddings.Endpoint, "error", err)
	}
	return embed.NewCachedEmbedderWithDefaults(embed.NewStaticEmbedder())
}
