// Package index is the Indexer: it drives discovery, parsing, embedding,
// storage, knowledge-graph linking, and git enrichment for one project
// through a single public entry point, RefreshIndex.
package index

import (
	"time"

	"github.com/codegraph-dev/codegraph/internal/chunk"
	"github.com/codegraph-dev/codegraph/internal/config"
	"github.com/codegraph-dev/codegraph/internal/embed"
	"github.com/codegraph-dev/codegraph/internal/embedcache"
	"github.com/codegraph-dev/codegraph/internal/graph"
	"github.com/codegraph-dev/codegraph/internal/store"
)

// DefaultGitConcurrency bounds concurrent git subprocesses during
// enrichment, matching gitmeta's own default.
const DefaultGitConcurrency = 10

// RefreshOptions parameterizes one refresh_index call.
type RefreshOptions struct {
	Root          string   // project root, absolute or relative to the daemon's cwd
	ForceFull     bool     // ignore stored content hashes and re-parse every discovered file
	IncludeGlobs  []string // caller include filters, merged with project config's (matching either keeps a file)
	ExcludeGlobs  []string // caller exclude filters, merged with project config's (matching either drops a file)
}

// FileError records one file's parse or embedding failure. It never aborts
// the run; it is surfaced so a caller can see which files were skipped and
// why.
type FileError struct {
	File string
	Kind string
	Msg  string
}

// RefreshResult is the refresh_index response.
type RefreshResult struct {
	Indexed   int // files parsed and upserted this run
	Skipped   int // files whose content hash was unchanged
	Chunks    int // total chunks upserted this run
	ElapsedMs int64
	Errors    []FileError // per-file parse/embed failures isolated from the run
}

// Indexer wires the Parser, ImportResolvers, VectorStore, KnowledgeGraph,
// Embedder, and GitMeta fetcher together behind one RefreshIndex call,
// serialized per project by a file lock so at most one index pass runs
// against a project's on-disk state at a time.
type Indexer struct {
	cfg       *config.Config
	store     *store.Store
	graph     *graph.Graph
	embedder  embed.Embedder
	cache     *embedcache.Cache
	chunkers  *chunkerSet
	gitLimit  int
}

// New wires an Indexer from already-opened dependencies. Callers own the
// lifetime of store/graph/embedder/cache (the daemon opens them once per
// process and shares them across every project it serves).
func New(cfg *config.Config, st *store.Store, kg *graph.Graph, embedder embed.Embedder, cache *embedcache.Cache) *Indexer {
	return &Indexer{
		cfg:      cfg,
		store:    st,
		graph:    kg,
		embedder: embedder,
		cache:    cache,
		chunkers: newChunkerSet(),
		gitLimit: DefaultGitConcurrency,
	}
}

// Close releases the chunkers' tree-sitter parser resources. Store, Graph,
// embedder, and cache lifetimes are owned by the caller.
func (ix *Indexer) Close() {
	ix.chunkers.close()
}

// parsedFile is Pass 1's output for one file, kept in memory and reused by
// Pass 2 so a file is never re-parsed within the same refresh.
type parsedFile struct {
	relPath     string
	language    string
	contentHash string
	modTime     time.Time
	chunks      []*chunk.Chunk
}
