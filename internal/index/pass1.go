package index

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/codegraph-dev/codegraph/internal/chunk"
	"github.com/codegraph-dev/codegraph/internal/errs"
	"github.com/codegraph-dev/codegraph/internal/scanner"
	"github.com/codegraph-dev/codegraph/internal/store"
)

// runPass1 parses, embeds, and upserts every file in files, clearing the
// knowledge-graph edges that originated from each file's previous chunks
// before its new ones land. Parsed chunks (with their in-memory usages)
// are returned for Pass 2 to resolve without re-parsing. Per-file failures
// are collected into fileErrs rather than aborting the run.
func (ix *Indexer) runPass1(ctx context.Context, projectID, root string, files []*scanner.FileInfo) ([]*parsedFile, []FileError, error) {
	var parsed []*parsedFile
	var fileErrs []FileError

	for _, f := range files {
		pf, err := ix.parseOneFile(ctx, projectID, f)
		if err != nil {
			fileErrs = append(fileErrs, newFileError(f.Path, err))
			continue // a single file's parse/embed failure never aborts the run
		}
		if pf == nil {
			continue
		}
		parsed = append(parsed, pf)
	}

	return parsed, fileErrs, nil
}

// newFileError classifies err by its errs.CodeGraphError kind when
// available, falling back to a generic IO label for plain os errors (e.g. a
// file that vanished between discovery and read).
func newFileError(file string, err error) FileError {
	kind := "IOError"
	var cgErr *errs.CodeGraphError
	if errors.As(err, &cgErr) {
		kind = string(cgErr.Kind)
	}
	return FileError{File: file, Kind: kind, Msg: err.Error()}
}

func (ix *Indexer) parseOneFile(ctx context.Context, projectID string, f *scanner.FileInfo) (*parsedFile, error) {
	content, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return nil, err
	}

	chunker := ix.chunkers.forLanguage(f.Language)
	if chunker == nil {
		return nil, nil
	}

	chunks, err := chunker.Chunk(ctx, &chunk.FileInput{Path: f.Path, Content: content, Language: f.Language})
	if err != nil {
		return nil, errs.NewParseError(f.Path, err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := ix.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	hash := contentHash(content)
	now := time.Now()
	storeChunks := make([]*store.Chunk, len(chunks))
	for i, c := range chunks {
		storeChunks[i] = toStoreChunk(f.Path, f.Language, c, vectors[i], hash, now)
	}

	if err := ix.graph.ClearSourceFiles(ctx, projectID, []string{f.Path}); err != nil {
		return nil, err
	}
	if err := ix.store.UpsertChunks(ctx, projectID, storeChunks); err != nil {
		return nil, err
	}

	return &parsedFile{
		relPath:     f.Path,
		language:    f.Language,
		contentHash: hash,
		modTime:     f.ModTime,
		chunks:      chunks,
	}, nil
}

// embedChunks returns one vector per chunk, aligned by index, checking the
// persistent embedding cache (keyed by chunk content hash) before calling
// the embedder and populating the cache with freshly computed vectors. A
// chunk whose text is identical to one embedded in an earlier run (or
// earlier in this same batch, for a duplicate block) never makes a second
// embedding request.
func (ix *Indexer) embedChunks(ctx context.Context, chunks []*chunk.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	var missIdx []int
	var missTexts []string
	for i, c := range chunks {
		h := contentHash([]byte(c.Content))
		if v, ok := ix.cache.Get(h); ok {
			vectors[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, c.Content)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	embedded, err := ix.embedder.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, errs.NewEmbeddingError(err)
	}
	for j, idx := range missIdx {
		vectors[idx] = embedded[j]
		_ = ix.cache.Set(contentHash([]byte(chunks[idx].Content)), embedded[j])
	}

	return vectors, nil
}
