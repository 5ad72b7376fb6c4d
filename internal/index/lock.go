package index

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/codegraph-dev/codegraph/internal/errs"
)

// projectLock serializes refresh_index calls against one project: at most
// one index pass runs against a project's on-disk state at a time. Only
// RefreshIndex takes this lock; store.DeleteProject does not.
type projectLock struct {
	fl *flock.Flock
}

func newProjectLock(storageRoot, projectID string) (*projectLock, error) {
	dir := filepath.Join(storageRoot, "locks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.NewStorageError("create lock directory", err)
	}
	return &projectLock{fl: flock.New(filepath.Join(dir, projectID+".lock"))}, nil
}

// acquire blocks until the lock is held or ctx is done, polling at a short
// fixed interval since flock has no native context-aware blocking call.
func (l *projectLock) acquire(ctx context.Context) (func(), error) {
	for {
		ok, err := l.fl.TryLock()
		if err != nil {
			return nil, errs.NewStorageError("acquire project lock", err)
		}
		if ok {
			return func() { _ = l.fl.Unlock() }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
