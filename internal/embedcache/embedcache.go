// Package embedcache persists embedding vectors keyed by content hash, so
// re-indexing a file whose chunks haven't changed never re-embeds them. A
// SQLite table is the durable store; an in-memory LRU fronts it so repeated
// lookups within one index run avoid a database round trip.
package embedcache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/codegraph-dev/codegraph/internal/errs"
)

// DefaultHotCacheSize is the number of vectors kept in the in-memory LRU.
const DefaultHotCacheSize = 2000

// Cache is a SQLite-backed embedding cache with an LRU hot layer.
type Cache struct {
	mu   sync.Mutex
	db   *sql.DB
	hot  *lru.Cache[string, []float32]
	path string
}

// Open opens (creating if necessary) the embedding cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, errs.NewStorageError("open embedding cache", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS embeddings (
			hash TEXT PRIMARY KEY,
			vector TEXT NOT NULL,
			last_accessed INTEGER NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, errs.NewStorageError("create embeddings table", err)
	}

	hot, _ := lru.New[string, []float32](DefaultHotCacheSize)
	return &Cache{db: db, hot: hot, path: path}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached vector for hash, if present. A malformed stored
// vector is treated as a cache miss and the row is evicted rather than
// returned or propagated as an error: callers always re-embed on a miss, so
// a corrupt row should self-heal on the next Set rather than fail the
// index run.
func (c *Cache) Get(hash string) ([]float32, bool) {
	c.mu.Lock()
	if vec, ok := c.hot.Get(hash); ok {
		c.mu.Unlock()
		return vec, true
	}
	c.mu.Unlock()

	var raw string
	err := c.db.QueryRow(`SELECT vector FROM embeddings WHERE hash = ?`, hash).Scan(&raw)
	if err != nil {
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		_, _ = c.db.Exec(`DELETE FROM embeddings WHERE hash = ?`, hash)
		return nil, false
	}

	c.mu.Lock()
	c.hot.Add(hash, vec)
	c.mu.Unlock()

	_, _ = c.db.Exec(`UPDATE embeddings SET last_accessed = ? WHERE hash = ?`, time.Now().Unix(), hash)
	return vec, true
}

// Set stores vec under hash, overwriting any existing entry.
func (c *Cache) Set(hash string, vec []float32) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("marshal vector: %w", err)
	}

	_, err = c.db.Exec(`
		INSERT INTO embeddings (hash, vector, last_accessed) VALUES (?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET vector = excluded.vector, last_accessed = excluded.last_accessed
	`, hash, string(raw), time.Now().Unix())
	if err != nil {
		return errs.NewStorageError("set embedding cache entry", err)
	}

	c.mu.Lock()
	c.hot.Add(hash, vec)
	c.mu.Unlock()

	return nil
}

// Prune removes entries not accessed within the last olderThanDays days and
// returns the number of rows removed.
func (c *Cache) Prune(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays).Unix()

	result, err := c.db.Exec(`DELETE FROM embeddings WHERE last_accessed < ?`, cutoff)
	if err != nil {
		return 0, errs.NewStorageError("prune embedding cache", err)
	}

	// Drop the hot layer so a pruned hash cannot still be served from it.
	c.mu.Lock()
	c.hot.Purge()
	c.mu.Unlock()

	n, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Count returns the number of entries currently in the cache.
func (c *Cache) Count() (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM embeddings`).Scan(&n)
	if err != nil {
		return 0, errs.NewStorageError("count embedding cache", err)
	}
	return n, nil
}
