// Package gitmeta is the async side channel that fills in a chunk's author
// and last_modified fields from git history. It never blocks an index
// pass: every fetch is best-effort, and a file with no git history (or a
// project that isn't a git repository at all) simply yields an empty Info
// rather than an error.
package gitmeta

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codegraph-dev/codegraph/internal/pathutil"
)

// Info is the git-derived metadata for one file.
type Info struct {
	Author       string
	LastModified time.Time
}

// Fetcher runs bounded `git` subprocesses against one repository root.
type Fetcher struct {
	repoRoot string
	limit    int
}

// New returns a Fetcher rooted at repoRoot, bounding concurrent `git`
// invocations to limit. A limit <= 0 defaults to 10, matching the
// concurrency gate the Indexer's post-Pass-2 enrichment step uses.
func New(repoRoot string, limit int) *Fetcher {
	if limit <= 0 {
		limit = 10
	}
	return &Fetcher{repoRoot: repoRoot, limit: limit}
}

// FetchAll resolves Info for every path concurrently, bounded by the
// Fetcher's limit. The returned map omits paths git has no history for;
// it never contains an error for an individual path, since a missing
// history is not a failure the caller should react to.
func (f *Fetcher) FetchAll(ctx context.Context, paths []string) map[string]Info {
	results := make(map[string]Info, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.limit)

	for _, p := range paths {
		p := p
		g.Go(func() error {
			info, ok := f.fetch(gctx, p)
			if ok {
				mu.Lock()
				results[p] = info
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // fetch never returns an error; Wait only propagates ctx cancellation

	return results
}

// Fetch resolves Info for a single path. ok is false when git has no
// history for the path (including when the repository itself is absent).
func (f *Fetcher) Fetch(ctx context.Context, path string) (Info, bool) {
	return f.fetch(ctx, path)
}

func (f *Fetcher) fetch(ctx context.Context, path string) (Info, bool) {
	if !pathutil.Contains(f.repoRoot, path) {
		return Info{}, false
	}
	rel, err := pathutil.Relative(f.repoRoot, path)
	if err != nil {
		return Info{}, false
	}

	// %x1f (unit separator) can't appear in a commit author name, so it's
	// a safe field delimiter; "--" stops path from being parsed as a flag.
	cmd := exec.CommandContext(ctx, "git", "log", "-1", "--format=%an\x1f%aI", "--", rel)
	cmd.Dir = f.repoRoot

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return Info{}, false
	}

	line := strings.TrimSpace(out.String())
	if line == "" {
		return Info{}, false
	}
	parts := strings.SplitN(line, "\x1f", 2)
	if len(parts) != 2 {
		return Info{}, false
	}

	when, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return Info{}, false
	}
	return Info{Author: parts[0], LastModified: when}, true
}

// ActiveBranch returns the repository's current branch name, or "" if the
// root isn't a git repository or is in detached-HEAD state with no
// symbolic ref.
func (f *Fetcher) ActiveBranch(ctx context.Context) string {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = f.repoRoot

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	branch := strings.TrimSpace(out.String())
	if branch == "HEAD" {
		return ""
	}
	return branch
}
