package index

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// ProjectID derives the stable project identifier store/graph table names
// key on: sha256 of the root's canonical absolute path, truncated to the
// same 32 hex characters a chunk ID uses. Spellings of a path that differ
// only by a trailing slash or ".." segments collapse to one project;
// symlinks are not resolved, so a path through a symlink gets its own id.
func ProjectID(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	return hex.EncodeToString(sum[:])[:32], nil
}
