package index

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/codegraph-dev/codegraph/internal/errs"
	"github.com/codegraph-dev/codegraph/internal/gitmeta"
	"github.com/codegraph-dev/codegraph/internal/scanner"
)

// RefreshIndex discovers indexable files under opts.Root, parses and
// embeds the ones whose content changed since the last run, links usages
// into knowledge-graph edges, and schedules best-effort git enrichment.
// It is the Indexer's sole public operation.
func (ix *Indexer) RefreshIndex(ctx context.Context, opts RefreshOptions) (*RefreshResult, error) {
	started := time.Now()

	projectID, err := ProjectID(opts.Root)
	if err != nil {
		return nil, errs.NewStorageError("compute project id", err)
	}

	lock, err := newProjectLock(ix.cfg.Storage.Root, projectID)
	if err != nil {
		return nil, err
	}
	release, err := lock.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	files, err := ix.discover(ctx, opts)
	if err != nil {
		return nil, err
	}

	existingHashes, err := ix.store.FileHashes(ctx, projectID)
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{}
	var toParse []*scanner.FileInfo
	for _, f := range files {
		h, err := fileHash(f.AbsPath)
		if err != nil {
			continue // file vanished or became unreadable between discover and hash; skip this run
		}
		if !opts.ForceFull && existingHashes[f.Path] == h {
			result.Skipped++
			continue
		}
		toParse = append(toParse, f)
	}

	parsed, fileErrs, err := ix.runPass1(ctx, projectID, opts.Root, toParse)
	if err != nil {
		return nil, err
	}
	result.Indexed = len(parsed)
	result.Errors = fileErrs
	for _, pf := range parsed {
		result.Chunks += len(pf.chunks)
	}

	if err := ix.runPass2(ctx, projectID, opts.Root, parsed); err != nil {
		return nil, err
	}

	go ix.scheduleGitEnrichment(projectID, opts.Root, parsed)

	result.ElapsedMs = time.Since(started).Milliseconds()
	return result, nil
}

// discover walks opts.Root with the scanner, merging project config
// include/exclude patterns with the caller's: a file matching any include
// pattern from either list is kept, and one matching any exclude pattern
// from either list is dropped.
func (ix *Indexer) discover(ctx context.Context, opts RefreshOptions) ([]*scanner.FileInfo, error) {
	sc, err := scanner.New()
	if err != nil {
		return nil, errs.NewStorageError("create scanner", err)
	}

	include := append(append([]string{}, ix.cfg.Paths.Include...), opts.IncludeGlobs...)
	exclude := append(append([]string{}, ix.cfg.Paths.Exclude...), opts.ExcludeGlobs...)

	results, err := sc.Scan(ctx, &scanner.ScanOptions{
		RootDir:          opts.Root,
		IncludePatterns:  include,
		ExcludePatterns:  exclude,
		RespectGitignore: true,
	})
	if err != nil {
		return nil, errs.NewStorageError("scan project", err)
	}

	var files []*scanner.FileInfo
	for r := range results {
		if r.Error != nil || r.File == nil {
			continue
		}
		if r.File.IsGenerated {
			continue
		}
		files = append(files, r.File)
	}
	return files, nil
}

func fileHash(absPath string) (string, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	return contentHash(data), nil
}

// scheduleGitEnrichment fills author/last_modified fields from git history
// for every re-parsed file, bounded by a fixed concurrency limit and never
// allowed to fail the refresh: a repository with no git history (or no
// history at all) just leaves those fields at their ingest-time default.
func (ix *Indexer) scheduleGitEnrichment(projectID, root string, parsed []*parsedFile) {
	if len(parsed) == 0 {
		return
	}

	paths := make([]string, len(parsed))
	abs := make(map[string]*parsedFile, len(parsed))
	for i, pf := range parsed {
		p := filepath.Join(root, pf.relPath)
		paths[i] = p
		abs[p] = pf
	}

	fetcher := gitmeta.New(root, ix.gitLimit)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	infos := fetcher.FetchAll(ctx, paths)
	branch := fetcher.ActiveBranch(ctx)

	staleCutoff := time.Now().AddDate(0, 0, -30)
	staleCount := 0
	for p, info := range infos {
		pf := abs[p]
		if pf == nil {
			continue
		}
		_ = ix.store.SetFileGitInfo(ctx, projectID, pf.relPath, info.Author, info.LastModified)
		if info.LastModified.Before(staleCutoff) {
			staleCount++
		}
	}
	_ = ix.store.SetProjectMeta(ctx, projectID, branch, staleCount)
}
