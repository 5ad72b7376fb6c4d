package search

import (
	"context"
	"regexp"
	"sort"

	"github.com/codegraph-dev/codegraph/internal/embed"
	"github.com/codegraph-dev/codegraph/internal/gitignore"
	"github.com/codegraph-dev/codegraph/internal/graph"
	"github.com/codegraph-dev/codegraph/internal/priority"
	"github.com/codegraph-dev/codegraph/internal/store"
)

// systemExcludeGlobs are applied to every search regardless of caller-supplied
// filters, mirroring the patterns the indexer always excludes from scanning.
var systemExcludeGlobs = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
}

const (
	defaultLimit   = 10
	maxLimit       = 100
	maxKeywords    = 3
	keywordLimit   = 50 // per-keyword FindChunksContainingText cap
	maxDefinitions = 10
	maxReferences  = 50
)

// keywordPattern extracts candidate identifiers from a natural-language or
// code-shaped query: ALL-CAPS acronyms/error-codes of 3+ letters, or any
// run of 6+ letters (covers camelCase/snake_case identifiers and ordinary
// words alike).
var keywordPattern = regexp.MustCompile(`\b[A-Z]{3,}\b|\b[A-Za-z]{6,}\b`)

// extractKeywords returns up to maxKeywords distinct keywords from query, in
// order of first appearance.
func extractKeywords(query string) []string {
	matches := keywordPattern.FindAllString(query, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// languageHints maps a query keyword (case-insensitive) to the canonical
// language string it suggests, used to rerank results toward the language
// the caller is most likely asking about. This is a heuristic: a query
// mentioning no language name ranks every language equally.
var languageHints = map[string]string{
	"python": "python", "py": "python",
	"javascript": "javascript", "js": "javascript",
	"typescript": "typescript", "ts": "typescript",
	"golang": "go", "go": "go",
	"rust": "rust", "java": "java", "cpp": "cpp", "c++": "cpp",
	"dart": "dart", "flutter": "dart",
	"sql": "sql", "html": "html", "css": "css",
	"firestore": "firestore", "markdown": "markdown",
}

// languageTokenPattern splits a query into word tokens of any length (a
// trailing "+" is kept so "c++" survives), unlike keywordPattern, which
// skips the short words most language names are.
var languageTokenPattern = regexp.MustCompile(`[A-Za-z][A-Za-z+]*`)

// inferQueryLanguage scans query for a language name or file-extension-like
// token and returns the canonical language string it maps to, or "" if
// none is recognized.
func inferQueryLanguage(query string) string {
	for _, kw := range languageTokenPattern.FindAllString(query, -1) {
		if lang, ok := languageHints[toLowerASCII(kw)]; ok {
			return lang
		}
	}
	return ""
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Retriever answers the read-side operations over a project's indexed
// chunks and knowledge-graph edges: hybrid search, definition/reference
// lookup, and summary statistics.
type Retriever struct {
	store    *store.Store
	graph    *graph.Graph
	embedder embed.Embedder
}

// New builds a Retriever over an already-populated Store and Graph.
func New(s *store.Store, g *graph.Graph, embedder embed.Embedder) *Retriever {
	return &Retriever{store: s, graph: g, embedder: embedder}
}

// SearchCode runs a hybrid vector+keyword search: the query is embedded and
// matched against the vector index, then up to three extracted keywords are
// matched against chunk content via substring search; the two result sets
// are merged (deduped by chunk id, preferring the vector score), glob
// filtered, and reranked by inferred language then file priority.
func (r *Retriever) SearchCode(ctx context.Context, projectID, query string, opts SearchOptions) ([]SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	hasGlobFilter := len(opts.IncludeGlobs) > 0 || len(opts.ExcludeGlobs) > 0
	fetchLimit := limit
	if hasGlobFilter {
		fetchLimit = limit * 5
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	vectorHits, err := r.store.Search(ctx, projectID, vector, fetchLimit, "")
	if err != nil {
		return nil, err
	}

	merged := make(map[string]SearchResult, len(vectorHits))
	order := make([]string, 0, len(vectorHits))
	for _, c := range vectorHits {
		merged[c.ID] = SearchResult{Chunk: c, Score: c.Score}
		order = append(order, c.ID)
	}

	for _, kw := range extractKeywords(query) {
		hits, err := r.store.FindChunksContainingText(ctx, projectID, kw, keywordLimit)
		if err != nil {
			return nil, err
		}
		for _, c := range hits {
			if _, exists := merged[c.ID]; exists {
				continue
			}
			merged[c.ID] = SearchResult{Chunk: c, MatchedKeyword: kw}
			order = append(order, c.ID)
		}
	}

	results := make([]SearchResult, 0, len(order))
	for _, id := range order {
		results = append(results, merged[id])
	}

	results = filterByGlobs(results, opts.IncludeGlobs, opts.ExcludeGlobs)

	queryLang := inferQueryLanguage(query)
	sort.SliceStable(results, func(i, j int) bool {
		li, lj := results[i].Chunk.Language == queryLang, results[j].Chunk.Language == queryLang
		if li != lj {
			return li
		}
		return priority.Less(results[i].Chunk.Filename, results[j].Chunk.Filename)
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// filterByGlobs drops any result whose file matches an exclude glob (system
// defaults always apply) or, when include globs are given, fails to match
// at least one of them. Exclude always wins over include.
func filterByGlobs(results []SearchResult, include, exclude []string) []SearchResult {
	allExclude := append(append([]string{}, systemExcludeGlobs...), exclude...)

	out := make([]SearchResult, 0, len(results))
	for _, res := range results {
		name := res.Chunk.Filename
		if gitignore.MatchesAnyPattern(name, allExclude) {
			continue
		}
		if len(include) > 0 && !gitignore.MatchesAnyPattern(name, include) {
			continue
		}
		out = append(out, res)
	}
	return out
}

// FindDefinition resolves the usage at (filename, line) to its defining
// chunk by following that usage's outgoing knowledge-graph edges. When the
// file/line doesn't resolve to an indexed chunk, or the chunk has no
// outgoing edges, it falls back to a project-wide symbol-name lookup
// reranked by language match and file priority.
func (r *Retriever) FindDefinition(ctx context.Context, projectID, filename string, line int, symbol string) ([]DefinitionCandidate, error) {
	lang := ""
	if usage, err := r.store.FindChunkAtLine(ctx, projectID, filename, line); err == nil && usage != nil {
		lang = usage.Language
		edges, err := r.graph.EdgesFrom(ctx, projectID, usage.ID)
		if err != nil {
			return nil, err
		}
		if len(edges) > 0 {
			return r.hydrateDefinitions(ctx, projectID, edges)
		}
	}

	chunks, err := r.store.FindChunksBySymbol(ctx, projectID, symbol, "")
	if err != nil {
		return nil, err
	}
	sortChunksByPriority(chunks, lang)
	if len(chunks) > maxDefinitions {
		chunks = chunks[:maxDefinitions]
	}

	out := make([]DefinitionCandidate, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, DefinitionCandidate{Chunk: c, Confidence: string(graph.ConfidenceNameMatch)})
	}
	return out, nil
}

func (r *Retriever) hydrateDefinitions(ctx context.Context, projectID string, edges []graph.Edge) ([]DefinitionCandidate, error) {
	confidenceByID := make(map[string]graph.Confidence, len(edges))
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		if _, seen := confidenceByID[e.TargetID]; !seen {
			ids = append(ids, e.TargetID)
		}
		confidenceByID[e.TargetID] = e.Confidence
	}

	chunks, err := r.store.FindChunksByID(ctx, projectID, ids)
	if err != nil {
		return nil, err
	}
	if len(chunks) > maxDefinitions {
		chunks = chunks[:maxDefinitions]
	}

	out := make([]DefinitionCandidate, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, DefinitionCandidate{Chunk: c, Confidence: string(confidenceByID[c.ID])})
	}
	return out, nil
}

// FindReferences returns every chunk that references symbol: chunks named
// symbol are located, their incoming knowledge-graph edges are followed
// back to the referencing chunks, and when a named chunk has no incoming
// edges at all the search falls back to a text-containing-symbol scan
// tagged name_match.
func (r *Retriever) FindReferences(ctx context.Context, projectID, symbol string) ([]ReferenceResult, error) {
	targets, err := r.store.FindChunksBySymbol(ctx, projectID, symbol, "")
	if err != nil {
		return nil, err
	}

	var sourceIDs []string
	confidenceByID := make(map[string]graph.Confidence)
	for _, target := range targets {
		edges, err := r.graph.EdgesTo(ctx, projectID, target.ID)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if _, seen := confidenceByID[e.SourceID]; !seen {
				sourceIDs = append(sourceIDs, e.SourceID)
			}
			confidenceByID[e.SourceID] = e.Confidence
		}
	}

	if len(sourceIDs) == 0 {
		chunks, err := r.store.FindChunksContainingText(ctx, projectID, symbol, maxReferences)
		if err != nil {
			return nil, err
		}
		out := make([]ReferenceResult, 0, len(chunks))
		for _, c := range chunks {
			out = append(out, ReferenceResult{Chunk: c, Confidence: "name_match"})
		}
		return out, nil
	}

	chunks, err := r.store.FindChunksByID(ctx, projectID, sourceIDs)
	if err != nil {
		return nil, err
	}
	sortChunksByPriority(chunks, "")
	if len(chunks) > maxReferences {
		chunks = chunks[:maxReferences]
	}

	out := make([]ReferenceResult, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, ReferenceResult{Chunk: c, Confidence: string(confidenceByID[c.ID])})
	}
	return out, nil
}

// GetStats delegates directly to the store's summary query; every figure
// it reports (counts, language breakdown, dependency hubs, complexity
// candidates, branch/staleness) is already maintained there by the
// indexer and GitMeta.
func (r *Retriever) GetStats(ctx context.Context, projectID string) (*store.Stats, error) {
	return r.store.Stats(ctx, projectID)
}

// sortChunksByPriority orders chunks by inferred-language match (when lang
// is non-empty) then file priority, matching SearchCode's rerank rule.
func sortChunksByPriority(chunks []*store.Chunk, lang string) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if lang != "" {
			li, lj := chunks[i].Language == lang, chunks[j].Language == lang
			if li != lj {
				return li
			}
		}
		return priority.Less(chunks[i].Filename, chunks[j].Filename)
	})
}
