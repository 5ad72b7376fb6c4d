package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/codegraph-dev/codegraph/internal/errs"
	"github.com/codegraph-dev/codegraph/internal/filterutil"
)

// projectIDPattern matches the sha256(normalize(root))[:32] identifiers
// every project is keyed by. Table names are built by string
// concatenation (SQLite has no bind-parameter support for identifiers), so
// this check is what keeps a project ID from being used to inject
// arbitrary SQL into a CREATE/DROP TABLE statement.
var projectIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

func tableName(projectID string) (string, error) {
	if !projectIDPattern.MatchString(projectID) {
		return "", errs.NewOutOfRootError(projectID)
	}
	return "t_" + projectID, nil
}

// Store is the VectorStore: one SQLite table per project for chunk scalar
// fields plus an in-memory vectorIndex per project for nearest-neighbor
// search. A single *sql.DB backs every project's table.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	dataDir string // persisted vectorIndex files live under dataDir/<project_id>.hnsw
	config  Config

	indexes map[string]*vectorIndex // lazily populated per project
}

// Open opens (creating if necessary) the metadata database at dbPath and
// prepares a Store whose per-project vector indexes persist under dataDir.
// An empty dbPath opens an in-memory database, used by tests; in that mode
// vectorIndex persistence is skipped entirely since there is nothing to
// load back into on restart.
func Open(dbPath, dataDir string, cfg Config) (*Store, error) {
	dsn := dbPath
	if dsn == "" {
		dsn = ":memory:"
	} else {
		dsn += "?_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.NewStorageError("open vector store", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS project_meta (
			project_id       TEXT PRIMARY KEY,
			active_branch    TEXT NOT NULL DEFAULT '',
			stale_file_count INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		_ = db.Close()
		return nil, errs.NewStorageError("create project_meta table", err)
	}

	return &Store{
		db:      db,
		dataDir: dataDir,
		config:  cfg.withDefaults(),
		indexes: make(map[string]*vectorIndex),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) indexPath(projectID string) string {
	return filepath.Join(s.dataDir, projectID+".hnsw")
}

// vectorIndexFor returns the project's in-memory index, loading it from
// disk on first use (or creating an empty one if nothing was persisted).
func (s *Store) vectorIndexFor(projectID string) (*vectorIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.indexes[projectID]; ok {
		return v, nil
	}

	if s.dataDir != "" {
		loaded, err := loadVectorIndex(s.indexPath(projectID))
		if err != nil {
			return nil, errs.NewStorageError("load vector index", err)
		}
		if loaded != nil {
			s.indexes[projectID] = loaded
			return loaded, nil
		}
	}

	v := newVectorIndex(s.config)
	s.indexes[projectID] = v
	return v, nil
}

// ensureTable creates a project's chunk table and indexes if they do not
// already exist.
func (s *Store) ensureTable(ctx context.Context, projectID string) (string, error) {
	table, err := tableName(projectID)
	if err != nil {
		return "", err
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id            TEXT PRIMARY KEY,
			filename      TEXT NOT NULL,
			language      TEXT NOT NULL,
			symbol_name   TEXT NOT NULL,
			symbol_kind   TEXT NOT NULL,
			start_line    INTEGER NOT NULL,
			end_line      INTEGER NOT NULL,
			content       TEXT NOT NULL,
			signature     TEXT NOT NULL,
			complexity    INTEGER NOT NULL,
			dependencies  TEXT NOT NULL,
			author        TEXT NOT NULL DEFAULT '',
			last_modified TIMESTAMP,
			content_hash  TEXT NOT NULL
		)
	`, table)); err != nil {
		return "", errs.NewStorageError("create chunk table", err)
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_%s_filename ON %s(filename)`, table, table)); err != nil {
		return "", errs.NewStorageError("create filename index", err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS idx_%s_symbol_name ON %s(symbol_name)`, table, table)); err != nil {
		return "", errs.NewStorageError("create symbol_name index", err)
	}

	return table, nil
}

// UpsertChunks deletes any existing rows sharing a filename with one of the
// input chunks, then inserts the input chunks, in both the SQLite table and
// the in-memory vector index.
func (s *Store) UpsertChunks(ctx context.Context, projectID string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	table, err := s.ensureTable(ctx, projectID)
	if err != nil {
		return err
	}

	filenames := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		filenames[c.Filename] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.NewStorageError("begin upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	deleteStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE filename = ?`, table))
	if err != nil {
		return errs.NewStorageError("prepare delete", err)
	}
	defer deleteStmt.Close()

	for fn := range filenames {
		if _, err := deleteStmt.ExecContext(ctx, fn); err != nil {
			return errs.NewStorageError("delete existing chunks for filename", err)
		}
	}

	insertStmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, filename, language, symbol_name, symbol_kind, start_line, end_line,
			content, signature, complexity, dependencies, author, last_modified, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, table))
	if err != nil {
		return errs.NewStorageError("prepare insert", err)
	}
	defer insertStmt.Close()

	for _, c := range chunks {
		depsJSON, err := json.Marshal(c.Dependencies)
		if err != nil {
			return errs.NewStorageError("marshal dependencies", err)
		}
		var lastModified any
		if !c.LastModified.IsZero() {
			lastModified = c.LastModified
		}
		if _, err := insertStmt.ExecContext(ctx, c.ID, c.Filename, c.Language, c.SymbolName, string(c.SymbolKind),
			c.StartLine, c.EndLine, c.Content, c.Signature, c.Complexity, string(depsJSON), c.Author,
			lastModified, c.ContentHash); err != nil {
			return errs.NewStorageError("insert chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.NewStorageError("commit upsert", err)
	}

	vi, err := s.vectorIndexFor(projectID)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if len(c.Vector) == 0 {
			continue
		}
		if err := vi.upsert(c.ID, c.Vector); err != nil {
			return errs.NewStorageError("upsert vector", err)
		}
	}
	if s.dataDir != "" {
		if err := vi.save(s.indexPath(projectID)); err != nil {
			return errs.NewStorageError("persist vector index", err)
		}
	}

	return nil
}

// Search returns the chunks nearest to queryVector, ordered by ascending
// distance. extraFilter, when non-empty, is appended as a raw SQL boolean
// expression ANDed onto the WHERE clause — callers must have already run it
// through filterutil.Sanitize.
func (s *Store) Search(ctx context.Context, projectID string, queryVector []float32, limit int, extraFilter string) ([]*Chunk, error) {
	vi, err := s.vectorIndexFor(projectID)
	if err != nil {
		return nil, err
	}

	// Over-fetch so post-filtering by extraFilter can still return up to
	// limit rows after some candidates are excluded.
	fetchK := limit
	if extraFilter != "" {
		fetchK = limit * 4
		if fetchK < limit {
			fetchK = limit
		}
	}

	hits, err := vi.search(queryVector, fetchK)
	if err != nil {
		return nil, errs.NewStorageError("vector search", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	table, err := tableName(projectID)
	if err != nil {
		return nil, err
	}

	order := make(map[string]int, len(hits))
	score := make(map[string]float32, len(hits))
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
		order[h.ID] = i
		score[h.ID] = h.Score
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id IN (%s)`, chunkColumns, table, placeholders(len(ids)))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if extraFilter != "" {
		query += " AND (" + extraFilter + ")"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.NewStorageError("query search results", err)
	}
	chunks, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}

	for _, c := range chunks {
		c.Score = score[c.ID]
	}
	sort.Slice(chunks, func(i, j int) bool { return order[chunks[i].ID] < order[chunks[j].ID] })
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return chunks, nil
}

// FindChunksBySymbol returns chunks whose symbol_name matches name exactly,
// optionally narrowed to one filename.
func (s *Store) FindChunksBySymbol(ctx context.Context, projectID, name, filename string) ([]*Chunk, error) {
	table, err := tableName(projectID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE symbol_name = ?`, chunkColumns, table)
	args := []any{name}
	if filename != "" {
		query += " AND filename = ?"
		args = append(args, filename)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.NewStorageError("find chunks by symbol", err)
	}
	return scanChunks(rows)
}

// FindChunksContainingText returns up to limit chunks whose content
// contains literal as a substring, matched via LIKE on a sanitized pattern.
func (s *Store) FindChunksContainingText(ctx context.Context, projectID, literal string, limit int) ([]*Chunk, error) {
	table, err := tableName(projectID)
	if err != nil {
		return nil, err
	}

	escaped, err := filterutil.SanitizeLike(literal)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE content LIKE '%%' || ? || '%%' ESCAPE '\' LIMIT ?`, chunkColumns, table),
		escaped, limit)
	if err != nil {
		return nil, errs.NewStorageError("find chunks containing text", err)
	}
	return scanChunks(rows)
}

// FindChunksByID returns the chunks matching ids, in no particular order.
// Used to hydrate knowledge-graph edge endpoints (which carry only a chunk
// id) back into full chunk rows for a query response.
func (s *Store) FindChunksByID(ctx context.Context, projectID string, ids []string) ([]*Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	table, err := tableName(projectID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id IN (%s)`, chunkColumns, table, placeholders(len(ids)))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.NewStorageError("find chunks by id", err)
	}
	return scanChunks(rows)
}

// FindChunkAtLine returns the chunk in filename whose line range contains
// line, or nil if none does. Used by find_definition to resolve the usage
// the caller is asking about before following its knowledge-graph edges.
func (s *Store) FindChunkAtLine(ctx context.Context, projectID, filename string, line int) (*Chunk, error) {
	table, err := tableName(projectID)
	if err != nil {
		return nil, err
	}
	exists, err := s.tableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE filename = ? AND start_line <= ? AND end_line >= ? LIMIT 1`, chunkColumns, table),
		filename, line, line)
	if err != nil {
		return nil, errs.NewStorageError("find chunk at line", err)
	}
	chunks, err := scanChunks(rows)
	if err != nil || len(chunks) == 0 {
		return nil, err
	}
	return chunks[0], nil
}

// FileHashes returns the content_hash of one chunk per filename currently
// stored for projectID, keyed by filename. Used by the indexer's change
// detection to skip re-parsing files whose hash is unchanged since the
// last refresh. Gates against a project never indexed before: an absent
// table returns an empty map rather than a SQL error, mirroring the
// _open_or_none pattern Search already gets for free via its empty vector
// index.
func (s *Store) FileHashes(ctx context.Context, projectID string) (map[string]string, error) {
	table, err := tableName(projectID)
	if err != nil {
		return nil, err
	}

	exists, err := s.tableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return map[string]string{}, nil
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT filename, content_hash FROM %s GROUP BY filename`, table))
	if err != nil {
		return nil, errs.NewStorageError("query file hashes", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var filename, hash string
		if err := rows.Scan(&filename, &hash); err != nil {
			return nil, errs.NewStorageError("scan file hash", err)
		}
		hashes[filename] = hash
	}
	return hashes, rows.Err()
}

// SetFileGitInfo updates the author and last_modified columns for every
// chunk belonging to filename. Called from the indexer's git-enrichment
// step, after Pass 1/2 have already upserted the file's chunks, so this is
// always a targeted UPDATE rather than part of the insert path.
func (s *Store) SetFileGitInfo(ctx context.Context, projectID, filename, author string, lastModified time.Time) error {
	table, err := tableName(projectID)
	if err != nil {
		return err
	}

	exists, err := s.tableExists(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE %s SET author = ?, last_modified = ? WHERE filename = ?`, table),
		author, lastModified, filename); err != nil {
		return errs.NewStorageError("set file git info", err)
	}
	return nil
}

func (s *Store) tableExists(ctx context.Context, table string) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errs.NewStorageError("check table existence", err)
	}
	return true, nil
}

// DeleteProject drops a project's chunk table and discards its in-memory
// vector index and project_meta row.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	table, err := tableName(projectID)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
		return errs.NewStorageError("drop project table", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM project_meta WHERE project_id = ?`, projectID); err != nil {
		return errs.NewStorageError("delete project_meta row", err)
	}

	s.mu.Lock()
	delete(s.indexes, projectID)
	s.mu.Unlock()

	return nil
}

// SetProjectMeta records the side-channel facts Stats reports that this
// package has no way to derive itself: the active git branch (from
// GitMeta) and how many tracked files are stale relative to disk (from the
// Indexer's reconciliation pass).
func (s *Store) SetProjectMeta(ctx context.Context, projectID, activeBranch string, staleFileCount int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_meta (project_id, active_branch, stale_file_count)
		VALUES (?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			active_branch = excluded.active_branch,
			stale_file_count = excluded.stale_file_count
	`, projectID, activeBranch, staleFileCount)
	if err != nil {
		return errs.NewStorageError("set project meta", err)
	}
	return nil
}

const highComplexityLimit = 10
const topDependencyLimit = 10

// Stats summarizes a project's stored chunks: counts, language breakdown,
// the most-referenced dependency specifiers, and the most complex chunks,
// each flagged LooksUntested when its own filename carries no test-file
// marker (test files are flagged, not left out).
func (s *Store) Stats(ctx context.Context, projectID string) (*Stats, error) {
	table, err := tableName(projectID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{LanguageBreakdown: make(map[string]int)}

	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&stats.ChunkCount); err != nil {
		return nil, errs.NewStorageError("count chunks", err)
	}
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(DISTINCT filename) FROM %s`, table)).Scan(&stats.FileCount); err != nil {
		return nil, errs.NewStorageError("count files", err)
	}

	langRows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT language, COUNT(*) FROM %s GROUP BY language`, table))
	if err != nil {
		return nil, errs.NewStorageError("language breakdown", err)
	}
	defer langRows.Close()
	for langRows.Next() {
		var lang string
		var count int
		if err := langRows.Scan(&lang, &count); err != nil {
			return nil, errs.NewStorageError("scan language breakdown", err)
		}
		stats.LanguageBreakdown[lang] = count
	}
	if err := langRows.Err(); err != nil {
		return nil, errs.NewStorageError("iterate language breakdown", err)
	}

	deps, err := s.dependencyHubs(ctx, table)
	if err != nil {
		return nil, err
	}
	stats.TopDependencies = deps

	complexity, err := s.highComplexityCandidates(ctx, table)
	if err != nil {
		return nil, err
	}
	stats.HighComplexity = complexity

	var activeBranch sql.NullString
	var staleCount sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`SELECT active_branch, stale_file_count FROM project_meta WHERE project_id = ?`, projectID,
	).Scan(&activeBranch, &staleCount)
	if err != nil && err != sql.ErrNoRows {
		return nil, errs.NewStorageError("read project meta", err)
	}
	stats.ActiveBranch = activeBranch.String
	stats.StaleFileCount = int(staleCount.Int64)

	return stats, nil
}

// dependencyHubs aggregates the dependencies column in application code
// rather than via SQLite's json_each, since the column stores a JSON array
// per row and json1 support is a build-time SQLite option this module does
// not assume is compiled in.
func (s *Store) dependencyHubs(ctx context.Context, table string) ([]DependencyHub, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT dependencies FROM %s`, table))
	if err != nil {
		return nil, errs.NewStorageError("read dependencies", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, errs.NewStorageError("scan dependencies", err)
		}
		var deps []string
		if err := json.Unmarshal([]byte(raw), &deps); err != nil {
			continue
		}
		for _, d := range deps {
			counts[d]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewStorageError("iterate dependencies", err)
	}

	hubs := make([]DependencyHub, 0, len(counts))
	for name, count := range counts {
		hubs = append(hubs, DependencyHub{Name: name, Count: count})
	}
	sort.Slice(hubs, func(i, j int) bool {
		if hubs[i].Count != hubs[j].Count {
			return hubs[i].Count > hubs[j].Count
		}
		return hubs[i].Name < hubs[j].Name
	})
	if len(hubs) > topDependencyLimit {
		hubs = hubs[:topDependencyLimit]
	}
	return hubs, nil
}

func (s *Store) highComplexityCandidates(ctx context.Context, table string) ([]ComplexityCandidate, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, filename, symbol_name, complexity FROM %s ORDER BY complexity DESC LIMIT ?`, table),
		highComplexityLimit)
	if err != nil {
		return nil, errs.NewStorageError("high complexity candidates", err)
	}
	defer rows.Close()

	var candidates []ComplexityCandidate
	for rows.Next() {
		var c ComplexityCandidate
		if err := rows.Scan(&c.ID, &c.Filename, &c.SymbolName, &c.Complexity); err != nil {
			return nil, errs.NewStorageError("scan complexity candidate", err)
		}
		c.LooksUntested = !looksLikeTestFile(c.Filename)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewStorageError("iterate complexity candidates", err)
	}
	return candidates, nil
}

var testFileMarkers = []string{"_test.", "test_", ".test.", ".spec."}

// looksLikeTestFile applies a filename-convention heuristic common across
// Go, Python, and JS/TS test layouts. It is deliberately conservative: a
// false negative (missing a real test file) is cheaper than flagging every
// chunk as an untested candidate.
func looksLikeTestFile(filename string) bool {
	base := strings.ToLower(filepath.Base(filename))
	for _, marker := range testFileMarkers {
		if strings.Contains(base, marker) {
			return true
		}
	}
	return false
}

const chunkColumns = `id, filename, language, symbol_name, symbol_kind, start_line, end_line,
	content, signature, complexity, dependencies, author, last_modified, content_hash`

func scanChunks(rows *sql.Rows) ([]*Chunk, error) {
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		var c Chunk
		var symbolKind, depsJSON string
		var lastModified sql.NullTime
		if err := rows.Scan(&c.ID, &c.Filename, &c.Language, &c.SymbolName, &symbolKind, &c.StartLine, &c.EndLine,
			&c.Content, &c.Signature, &c.Complexity, &depsJSON, &c.Author, &lastModified, &c.ContentHash); err != nil {
			return nil, errs.NewStorageError("scan chunk row", err)
		}
		c.SymbolKind = SymbolKind(symbolKind)
		if lastModified.Valid {
			c.LastModified = lastModified.Time
		}
		if depsJSON != "" {
			_ = json.Unmarshal([]byte(depsJSON), &c.Dependencies)
		}
		chunks = append(chunks, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewStorageError("iterate chunk rows", err)
	}
	return chunks, nil
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ", ")
}
