// Package graph persists the edges linking chunks across a project: calls,
// imports, inheritance, instantiation, decorators, and name-match
// fallbacks. It is the KnowledgeGraph half of the two-pass indexing
// pipeline — Pass 1 clears edges sourced from a re-parsed file, Pass 2
// writes the edges the usage-resolution step discovers.
package graph

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/codegraph-dev/codegraph/internal/errs"
)

// Kind is the relationship an edge records between two chunks.
type Kind string

const (
	KindCall        Kind = "call"
	KindImport      Kind = "import"
	KindInherit     Kind = "inherit"
	KindInstantiate Kind = "instantiate"
	KindDecorator   Kind = "decorator"
	KindReference   Kind = "reference"
)

// Confidence records how an edge was derived.
type Confidence string

const (
	ConfidenceStructural Confidence = "structural"
	ConfidenceNameMatch  Confidence = "name_match"
)

// Edge is a directed link from one chunk to another within a project.
// SourceFile is the file the source chunk belongs to; chunk IDs are
// position/name hashes with no recoverable file path, so this column is
// what ClearSourceFiles filters on during an incremental reindex.
type Edge struct {
	SourceID   string
	TargetID   string
	Kind       Kind
	Confidence Confidence
	Project    string
	SourceFile string
}

// Graph is a SQLite-backed store for project edges. A single connection is
// held for the process lifetime; callers batch writes into one transaction
// per file during Pass 2.
type Graph struct {
	db *sql.DB
}

// Open opens (creating if necessary) the knowledge graph database at path.
// An empty path opens an in-memory graph, used by tests.
func Open(path string) (*Graph, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	} else {
		dsn += "?_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.NewStorageError("open knowledge graph", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS edges (
			source_id   TEXT NOT NULL,
			target_id   TEXT NOT NULL,
			kind        TEXT NOT NULL,
			confidence  TEXT NOT NULL,
			project     TEXT NOT NULL,
			source_file TEXT NOT NULL,
			PRIMARY KEY (source_id, target_id, kind)
		)
	`); err != nil {
		_ = db.Close()
		return nil, errs.NewStorageError("create edges table", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_edges_project_source ON edges(project, source_id)`); err != nil {
		_ = db.Close()
		return nil, errs.NewStorageError("create edges source index", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_edges_project_target ON edges(project, target_id)`); err != nil {
		_ = db.Close()
		return nil, errs.NewStorageError("create edges target index", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_edges_project_source_file ON edges(project, source_file)`); err != nil {
		_ = db.Close()
		return nil, errs.NewStorageError("create edges source_file index", err)
	}

	return &Graph{db: db}, nil
}

// Close releases the underlying database handle.
func (g *Graph) Close() error {
	return g.db.Close()
}

const upsertEdgeSQL = `
	INSERT INTO edges (source_id, target_id, kind, confidence, project, source_file)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(source_id, target_id, kind) DO UPDATE SET
		confidence = excluded.confidence,
		source_file = excluded.source_file
`

// AddEdge upserts a single edge.
func (g *Graph) AddEdge(ctx context.Context, e Edge) error {
	_, err := g.db.ExecContext(ctx, upsertEdgeSQL,
		e.SourceID, e.TargetID, string(e.Kind), string(e.Confidence), e.Project, e.SourceFile)
	if err != nil {
		return errs.NewStorageError("add edge", err)
	}
	return nil
}

// AddEdges upserts a batch of edges within a single transaction, the shape
// Pass 2 uses once per re-parsed file.
func (g *Graph) AddEdges(ctx context.Context, edges []Edge) error {
	if len(edges) == 0 {
		return nil
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.NewStorageError("begin edge batch", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertEdgeSQL)
	if err != nil {
		return errs.NewStorageError("prepare edge batch", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.ExecContext(ctx, e.SourceID, e.TargetID, string(e.Kind), string(e.Confidence), e.Project, e.SourceFile); err != nil {
			return errs.NewStorageError("insert edge", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.NewStorageError("commit edge batch", err)
	}
	return nil
}

// EdgesFrom returns the edges originating at src, ordered by target_id for
// stable pagination-free callers.
func (g *Graph) EdgesFrom(ctx context.Context, project, src string) ([]Edge, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT source_id, target_id, kind, confidence, project, source_file
		FROM edges WHERE project = ? AND source_id = ?
		ORDER BY target_id
	`, project, src)
	if err != nil {
		return nil, errs.NewStorageError("query edges_from", err)
	}
	return scanEdges(rows)
}

// EdgesTo returns the edges that reference tgt, ordered by source_id.
func (g *Graph) EdgesTo(ctx context.Context, project, tgt string) ([]Edge, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT source_id, target_id, kind, confidence, project, source_file
		FROM edges WHERE project = ? AND target_id = ?
		ORDER BY source_id
	`, project, tgt)
	if err != nil {
		return nil, errs.NewStorageError("query edges_to", err)
	}
	return scanEdges(rows)
}

// ClearProject deletes every edge belonging to project, used before a full
// reindex cycle.
func (g *Graph) ClearProject(ctx context.Context, project string) error {
	if _, err := g.db.ExecContext(ctx, `DELETE FROM edges WHERE project = ?`, project); err != nil {
		return errs.NewStorageError("clear project edges", err)
	}
	return nil
}

// ClearSourceFiles deletes every edge sourced from one of the given files,
// used at the start of Pass 1 for an incremental reindex before that
// file's chunks are re-parsed.
func (g *Graph) ClearSourceFiles(ctx context.Context, project string, files []string) error {
	if len(files) == 0 {
		return nil
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.NewStorageError("begin clear source files", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM edges WHERE project = ? AND source_file = ?`)
	if err != nil {
		return errs.NewStorageError("prepare clear source files", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, project, f); err != nil {
			return errs.NewStorageError("clear source file edges", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.NewStorageError("commit clear source files", err)
	}
	return nil
}

func scanEdges(rows *sql.Rows) ([]Edge, error) {
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var e Edge
		var kind, confidence string
		if err := rows.Scan(&e.SourceID, &e.TargetID, &kind, &confidence, &e.Project, &e.SourceFile); err != nil {
			return nil, errs.NewStorageError("scan edge row", err)
		}
		e.Kind = Kind(kind)
		e.Confidence = Confidence(confidence)
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewStorageError("iterate edge rows", err)
	}
	return edges, nil
}
