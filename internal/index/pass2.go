package index

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/codegraph-dev/codegraph/internal/chunk"
	"github.com/codegraph-dev/codegraph/internal/graph"
	"github.com/codegraph-dev/codegraph/internal/pathutil"
	"github.com/codegraph-dev/codegraph/internal/priority"
	"github.com/codegraph-dev/codegraph/internal/resolve"
	"github.com/codegraph-dev/codegraph/internal/store"
)

// runPass2 resolves every usage recorded during Pass 1 to a knowledge-graph
// edge. Edges are batched into one transaction per file, matching the
// per-file edge-clear Pass 1 already did before writing that file's new
// chunks.
func (ix *Indexer) runPass2(ctx context.Context, projectID, root string, parsed []*parsedFile) error {
	for _, pf := range parsed {
		edges := ix.resolveFile(ctx, projectID, root, pf)
		if len(edges) == 0 {
			continue
		}
		if err := ix.graph.AddEdges(ctx, edges); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Indexer) resolveFile(ctx context.Context, projectID, root string, pf *parsedFile) []graph.Edge {
	resolver, hasResolver := resolve.New(pf.language)

	var edges []graph.Edge
	for _, c := range pf.chunks {
		for _, u := range c.Usages {
			target, confidence, ok := ix.resolveUsage(ctx, projectID, root, pf, c, u, resolver, hasResolver)
			if !ok {
				continue
			}
			edges = append(edges, graph.Edge{
				SourceID:   c.ID,
				TargetID:   target,
				Kind:       edgeKind(u.Context),
				Confidence: confidence,
				Project:    projectID,
				SourceFile: pf.relPath,
			})
		}
	}
	return edges
}

// resolveUsage applies the three-step lookup order: import-associated file,
// same file, project-global name match restricted to the source language.
func (ix *Indexer) resolveUsage(
	ctx context.Context, projectID, root string, pf *parsedFile, src *chunk.Chunk, u chunk.Usage,
	resolver resolve.Resolver, hasResolver bool,
) (targetID string, confidence graph.Confidence, ok bool) {
	if hasResolver {
		if importedFile, found := associatedImport(pf.relPath, root, u, src.Dependencies, resolver); found {
			if id, ok := ix.lookupSymbol(ctx, projectID, u.Name, importedFile); ok {
				return id, graph.ConfidenceStructural, true
			}
		}
	}

	if id, ok := ix.lookupSymbol(ctx, projectID, u.Name, pf.relPath); ok {
		return id, graph.ConfidenceStructural, true
	}

	if id, ok := ix.lookupGlobal(ctx, projectID, pf.language, u.Name); ok {
		return id, graph.ConfidenceNameMatch, true
	}

	return "", "", false
}

func (ix *Indexer) lookupSymbol(ctx context.Context, projectID, name, filename string) (string, bool) {
	chunks, err := ix.store.FindChunksBySymbol(ctx, projectID, name, filename)
	if err != nil || len(chunks) == 0 {
		return "", false
	}
	return chunks[0].ID, true
}

// lookupGlobal finds the project-wide symbol-name match, restricted to
// language and broken by file priority when more than one file declares
// the same name.
func (ix *Indexer) lookupGlobal(ctx context.Context, projectID, language, name string) (string, bool) {
	chunks, err := ix.store.FindChunksBySymbol(ctx, projectID, name, "")
	if err != nil || len(chunks) == 0 {
		return "", false
	}

	var candidates []*store.Chunk
	for _, c := range chunks {
		if c.Language == language {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if priority.Less(c.Filename, best.Filename) {
			best = c
		}
	}
	return best.ID, true
}

// associatedImport finds the import specifier in deps whose resolved local
// binding name matches u's qualifier (the common "pkg.Name()" shape) or, for
// an unqualified usage, its own name (the common "import Foo from './foo'"
// default-export shape), then resolves that specifier to a project file.
func associatedImport(sourceFile, root string, u chunk.Usage, deps []string, resolver resolve.Resolver) (string, bool) {
	key := u.Qualifier
	if key == "" {
		key = u.Name
	}
	if key == "" {
		return "", false
	}

	for _, spec := range deps {
		if !bindingMatches(spec, key) {
			continue
		}
		abs, ok := resolver.Resolve(spec, filepath.Join(root, sourceFile), root)
		if !ok {
			continue
		}
		rel, err := pathutil.Relative(root, abs)
		if err != nil {
			continue
		}
		return rel, true
	}
	return "", false
}

// bindingMatches reports whether spec's final path component (its module
// or package name, extension and case ignored) matches key. This is a
// best-effort heuristic: dependencies.go records raw import specifier text,
// not the bound local identifier, so an aliased import ("import { X as Y }")
// or a re-exported name will fall through to the same-file/global lookup
// instead of the import-associated one.
func bindingMatches(spec, key string) bool {
	s := strings.TrimSuffix(spec, "/")
	if idx := strings.LastIndexAny(s, "/."); idx != -1 && strings.ContainsRune(s, '/') {
		s = s[strings.LastIndexByte(s, '/')+1:]
	}
	s = strings.TrimSuffix(s, filepath.Ext(s))
	return strings.EqualFold(s, key)
}

func edgeKind(ctx chunk.UsageContext) graph.Kind {
	switch ctx {
	case chunk.UsageContextCall:
		return graph.KindCall
	case chunk.UsageContextInstantiate:
		return graph.KindInstantiate
	case chunk.UsageContextDecorator:
		return graph.KindDecorator
	default:
		return graph.KindReference
	}
}
