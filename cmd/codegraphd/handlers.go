package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/codegraph-dev/codegraph/internal/errs"
	"github.com/codegraph-dev/codegraph/internal/index"
	"github.com/codegraph-dev/codegraph/internal/rpc"
	"github.com/codegraph-dev/codegraph/internal/search"
	"github.com/codegraph-dev/codegraph/internal/store"
)

// registerHandlers binds the five external operations of spec.md §6 onto
// server, each unmarshaling its own request shape and translating the
// Indexer/Retriever's internal types into the wire shapes that table
// names.
func registerHandlers(server *rpc.Server, ix *index.Indexer, retriever *search.Retriever) {
	server.Register("refresh_index", refreshIndexHandler(ix))
	server.Register("search_code", searchCodeHandler(retriever))
	server.Register("get_stats", getStatsHandler(retriever))
	server.Register("find_definition", findDefinitionHandler(retriever))
	server.Register("find_references", findReferencesHandler(retriever))
}

type refreshIndexRequest struct {
	RootPath      string   `json:"root_path"`
	ForceFullScan bool     `json:"force_full_scan"`
	Include       []string `json:"include,omitempty"`
	Exclude       []string `json:"exclude,omitempty"`
}

type fileErrorResult struct {
	File string `json:"file"`
	Kind string `json:"kind"`
	Msg  string `json:"msg"`
}

type refreshIndexResponse struct {
	Indexed   int               `json:"indexed"`
	Skipped   int               `json:"skipped"`
	Chunks    int               `json:"chunks"`
	ElapsedMs int64             `json:"elapsed_ms"`
	Errors    []fileErrorResult `json:"errors,omitempty"`
}

func toFileErrorResults(fileErrs []index.FileError) []fileErrorResult {
	out := make([]fileErrorResult, 0, len(fileErrs))
	for _, e := range fileErrs {
		out = append(out, fileErrorResult{File: e.File, Kind: e.Kind, Msg: e.Msg})
	}
	return out
}

func refreshIndexHandler(ix *index.Indexer) rpc.Handler {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var req refreshIndexRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, rpc.NewError(rpc.CodeInvalidParams, err)
		}
		if req.RootPath == "" {
			return nil, errs.NewNotFoundError("root_path")
		}

		result, err := ix.RefreshIndex(ctx, index.RefreshOptions{
			Root:         req.RootPath,
			ForceFull:    req.ForceFullScan,
			IncludeGlobs: req.Include,
			ExcludeGlobs: req.Exclude,
		})
		if err != nil {
			return nil, err
		}
		return refreshIndexResponse{
			Indexed: result.Indexed, Skipped: result.Skipped,
			Chunks: result.Chunks, ElapsedMs: result.ElapsedMs,
			Errors: toFileErrorResults(result.Errors),
		}, nil
	}
}

type searchCodeRequest struct {
	Query    string   `json:"query"`
	RootPath string   `json:"root_path"`
	Limit    int      `json:"limit"`
	Include  []string `json:"include,omitempty"`
	Exclude  []string `json:"exclude,omitempty"`
}

type chunkResult struct {
	Filename     string  `json:"filename"`
	StartLine    int     `json:"start_line"`
	EndLine      int     `json:"end_line"`
	SymbolName   string  `json:"symbol_name"`
	Language     string  `json:"language"`
	Content      string  `json:"content"`
	Author       string  `json:"author,omitempty"`
	LastModified *string `json:"last_modified,omitempty"`
	Score        float32 `json:"score"`
}

func toChunkResult(c *store.Chunk) chunkResult {
	r := chunkResult{
		Filename: c.Filename, StartLine: c.StartLine, EndLine: c.EndLine,
		SymbolName: c.SymbolName, Language: c.Language, Content: c.Content,
		Author: c.Author, Score: c.Score,
	}
	if !c.LastModified.IsZero() {
		ts := c.LastModified.UTC().Format(time.RFC3339)
		r.LastModified = &ts
	}
	return r
}

func searchCodeHandler(retriever *search.Retriever) rpc.Handler {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var req searchCodeRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, rpc.NewError(rpc.CodeInvalidParams, err)
		}
		if req.RootPath == "" || req.Query == "" {
			return nil, errs.NewNotFoundError("query/root_path")
		}

		projectID, err := index.ProjectID(req.RootPath)
		if err != nil {
			return nil, err
		}

		results, err := retriever.SearchCode(ctx, projectID, req.Query, search.SearchOptions{
			Limit: req.Limit, IncludeGlobs: req.Include, ExcludeGlobs: req.Exclude,
		})
		if err != nil {
			return nil, err
		}

		out := make([]chunkResult, 0, len(results))
		for _, res := range results {
			out = append(out, toChunkResult(res.Chunk))
		}
		return out, nil
	}
}

type statsRequest struct {
	RootPath string `json:"root_path"`
}

type dependencyHub struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type complexityCandidate struct {
	Filename      string `json:"filename"`
	SymbolName    string `json:"symbol_name"`
	Complexity    int    `json:"complexity"`
	LooksUntested bool   `json:"looks_untested"`
}

type statsResponse struct {
	ChunkCount        int                   `json:"chunk_count"`
	FileCount         int                   `json:"file_count"`
	LanguageBreakdown map[string]int        `json:"language_breakdown"`
	TopDependencies   []dependencyHub       `json:"top_dependencies"`
	HighComplexity    []complexityCandidate `json:"high_complexity"`
	ActiveBranch      string                `json:"active_branch"`
	StaleFileCount    int                   `json:"stale_file_count"`
}

func toStatsResponse(s *store.Stats) statsResponse {
	deps := make([]dependencyHub, 0, len(s.TopDependencies))
	for _, d := range s.TopDependencies {
		deps = append(deps, dependencyHub{Name: d.Name, Count: d.Count})
	}
	complex := make([]complexityCandidate, 0, len(s.HighComplexity))
	for _, c := range s.HighComplexity {
		complex = append(complex, complexityCandidate{
			Filename: c.Filename, SymbolName: c.SymbolName,
			Complexity: c.Complexity, LooksUntested: c.LooksUntested,
		})
	}
	return statsResponse{
		ChunkCount: s.ChunkCount, FileCount: s.FileCount,
		LanguageBreakdown: s.LanguageBreakdown, TopDependencies: deps,
		HighComplexity: complex, ActiveBranch: s.ActiveBranch, StaleFileCount: s.StaleFileCount,
	}
}

func getStatsHandler(retriever *search.Retriever) rpc.Handler {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var req statsRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, rpc.NewError(rpc.CodeInvalidParams, err)
		}
		if req.RootPath == "" {
			return nil, errs.NewNotFoundError("root_path")
		}

		projectID, err := index.ProjectID(req.RootPath)
		if err != nil {
			return nil, err
		}
		stats, err := retriever.GetStats(ctx, projectID)
		if err != nil {
			return nil, err
		}
		return toStatsResponse(stats), nil
	}
}

type findDefinitionRequest struct {
	Symbol   string `json:"symbol"`
	Filename string `json:"filename,omitempty"`
	Line     int    `json:"line,omitempty"`
	RootPath string `json:"root_path"`
}

type definitionResult struct {
	chunkResult
	Confidence string `json:"confidence"`
}

func findDefinitionHandler(retriever *search.Retriever) rpc.Handler {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var req findDefinitionRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, rpc.NewError(rpc.CodeInvalidParams, err)
		}
		if req.RootPath == "" || req.Symbol == "" {
			return nil, errs.NewNotFoundError("symbol/root_path")
		}

		projectID, err := index.ProjectID(req.RootPath)
		if err != nil {
			return nil, err
		}

		candidates, err := retriever.FindDefinition(ctx, projectID, req.Filename, req.Line, req.Symbol)
		if err != nil {
			return nil, err
		}

		out := make([]definitionResult, 0, len(candidates))
		for _, c := range candidates {
			out = append(out, definitionResult{chunkResult: toChunkResult(c.Chunk), Confidence: c.Confidence})
		}
		return out, nil
	}
}

type findReferencesRequest struct {
	Symbol   string `json:"symbol"`
	RootPath string `json:"root_path"`
}

type referenceResult struct {
	chunkResult
	Confidence string `json:"confidence"`
}

func findReferencesHandler(retriever *search.Retriever) rpc.Handler {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var req findReferencesRequest
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, rpc.NewError(rpc.CodeInvalidParams, err)
		}
		if req.RootPath == "" || req.Symbol == "" {
			return nil, errs.NewNotFoundError("symbol/root_path")
		}

		projectID, err := index.ProjectID(req.RootPath)
		if err != nil {
			return nil, err
		}

		refs, err := retriever.FindReferences(ctx, projectID, req.Symbol)
		if err != nil {
			return nil, err
		}

		out := make([]referenceResult, 0, len(refs))
		for _, r := range refs {
			out = append(out, referenceResult{chunkResult: toChunkResult(r.Chunk), Confidence: r.Confidence})
		}
		return out, nil
	}
}
