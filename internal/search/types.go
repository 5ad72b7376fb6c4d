// Package search is the Retriever: hybrid vector+keyword code search plus
// definition/reference lookup and project statistics, all read-only views
// over a project's Store and Graph.
package search

import "github.com/codegraph-dev/codegraph/internal/store"

// SearchOptions configures a search_code query.
type SearchOptions struct {
	// Limit is the maximum number of results to return. Clamped to [1, 100];
	// zero falls back to 10.
	Limit int

	// IncludeGlobs restricts results to files matching at least one glob.
	// Empty means no include restriction.
	IncludeGlobs []string

	// ExcludeGlobs drops any file matching one of these globs, even one
	// that also matches an include glob. System default excludes (vendor,
	// node_modules, .git, build output) are always applied in addition to
	// these.
	ExcludeGlobs []string
}

// SearchResult is one ranked hit from search_code.
type SearchResult struct {
	Chunk *store.Chunk

	// Score is the chunk's vector similarity score, or zero for a hit that
	// only matched a keyword.
	Score float32

	// MatchedKeyword is the extracted keyword that surfaced this chunk via
	// the text-LIKE fallback, empty for vector-only hits.
	MatchedKeyword string
}

// DefinitionCandidate is one ranked hit from find_definition.
type DefinitionCandidate struct {
	Chunk      *store.Chunk
	Confidence string
}

// ReferenceResult is one ranked hit from find_references.
type ReferenceResult struct {
	Chunk *store.Chunk

	// Confidence is "structural" for a knowledge-graph edge match, or
	// "name_match" for the text-LIKE fallback when a symbol has no
	// recorded incoming edges.
	Confidence string
}
