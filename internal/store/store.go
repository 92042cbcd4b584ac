package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Querier abstracts *sql.DB and *sql.Tx so store methods work in both contexts.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store wraps a SQLite connection holding persisted graph records.
type Store struct {
	db     *sql.DB
	q      Querier // active querier: db or tx
	dbPath string
}

// GraphRecord is one persisted cached graph. GraphData carries the full
// serialized graph; DependsOn the absolute source paths whose change
// invalidates it.
type GraphRecord struct {
	ID               string
	ProjectPath      string
	SourceFile       string // relative to project root
	FunctionName     string
	AnalyzedAt       time.Time
	SourceModifiedAt time.Time
	NodeCount        int
	EdgeCount        int
	DependsOn        []string
	GraphData        []byte
}

// cacheDir returns the default cache directory for databases.
func cacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	dir := filepath.Join(home, ".cache", "flowgraph")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir cache: %w", err)
	}
	return dir, nil
}

// Open opens or creates the SQLite database for the given project name.
func Open(project string) (*Store, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, err
	}
	return OpenPath(filepath.Join(dir, project+".db"))
}

// OpenPath opens a SQLite database at the given path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{db: db, dbPath: dbPath}
	s.q = s.db
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// OpenMemory opens an in-memory SQLite database (for testing).
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	s := &Store{db: db, dbPath: ":memory:"}
	s.q = s.db
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// WithTransaction executes fn within a single SQLite transaction. The
// callback receives a transaction-scoped Store; the receiver's q field is
// never mutated, so concurrent readers on s.q == s.db are unaffected.
func (s *Store) WithTransaction(fn func(txStore *Store) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txStore := &Store{db: s.db, q: tx, dbPath: s.dbPath}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	_, err := s.q.Exec(`
		CREATE TABLE IF NOT EXISTS graphs (
			id TEXT PRIMARY KEY,
			project_path TEXT NOT NULL,
			source_file TEXT NOT NULL,
			function_name TEXT NOT NULL,
			analyzed_at INTEGER NOT NULL,
			source_modified_at INTEGER NOT NULL,
			node_count INTEGER NOT NULL,
			edge_count INTEGER NOT NULL,
			depends_on TEXT NOT NULL DEFAULT '[]',
			graph_data TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_graphs_project ON graphs(project_path);
	`)
	return err
}

// SaveGraph inserts or replaces one graph record.
func (s *Store) SaveGraph(rec *GraphRecord) error {
	deps, err := json.Marshal(rec.DependsOn)
	if err != nil {
		return fmt.Errorf("marshal depends_on: %w", err)
	}
	_, err = s.q.Exec(`
		INSERT OR REPLACE INTO graphs
			(id, project_path, source_file, function_name, analyzed_at,
			 source_modified_at, node_count, edge_count, depends_on, graph_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProjectPath, rec.SourceFile, rec.FunctionName,
		rec.AnalyzedAt.UnixNano(), rec.SourceModifiedAt.UnixNano(),
		rec.NodeCount, rec.EdgeCount, string(deps), string(rec.GraphData))
	if err != nil {
		return fmt.Errorf("save graph %s: %w", rec.ID, err)
	}
	return nil
}

// LoadGraphs returns every record persisted for a project. Corrupt records
// are skipped with a warning; they never fail the load.
func (s *Store) LoadGraphs(projectPath string) ([]*GraphRecord, error) {
	rows, err := s.q.Query(`
		SELECT id, project_path, source_file, function_name, analyzed_at,
		       source_modified_at, node_count, edge_count, depends_on, graph_data
		FROM graphs WHERE project_path = ?`, projectPath)
	if err != nil {
		return nil, fmt.Errorf("load graphs: %w", err)
	}
	defer rows.Close()

	var out []*GraphRecord
	for rows.Next() {
		var rec GraphRecord
		var analyzedAt, modifiedAt int64
		var deps, data string
		if err := rows.Scan(&rec.ID, &rec.ProjectPath, &rec.SourceFile, &rec.FunctionName,
			&analyzedAt, &modifiedAt, &rec.NodeCount, &rec.EdgeCount, &deps, &data); err != nil {
			slog.Warn("store.record_skipped", "err", err)
			continue
		}
		if err := json.Unmarshal([]byte(deps), &rec.DependsOn); err != nil {
			slog.Warn("store.record_corrupt", "id", rec.ID, "err", err)
			continue
		}
		rec.AnalyzedAt = time.Unix(0, analyzedAt)
		rec.SourceModifiedAt = time.Unix(0, modifiedAt)
		rec.GraphData = []byte(data)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// DeleteGraph removes one record by ID.
func (s *Store) DeleteGraph(id string) error {
	_, err := s.q.Exec(`DELETE FROM graphs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete graph %s: %w", id, err)
	}
	return nil
}

// DeleteProject removes every record for a project.
func (s *Store) DeleteProject(projectPath string) error {
	_, err := s.q.Exec(`DELETE FROM graphs WHERE project_path = ?`, projectPath)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", projectPath, err)
	}
	return nil
}
