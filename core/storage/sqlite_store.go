package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps documents in a single table keyed by (entity, id)
type SQLiteStore struct {
	db *sql.DB
	mu *sync.Mutex
}

type sharedDB struct {
	db *sql.DB
	mu sync.Mutex
}

var (
	dbCacheMu sync.Mutex
	dbCache   = map[string]*sharedDB{}
)

// OpenSQLite returns the store for the database at path, creating it on first
// use. Stores for the same path share one connection pool for the life of
// the process.
func OpenSQLite(path string) (*SQLiteStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	dbCacheMu.Lock()
	defer dbCacheMu.Unlock()

	if shared, ok := dbCache[abs]; ok {
		return &SQLiteStore{db: shared.db, mu: &shared.mu}, nil
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", abs)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			entity TEXT NOT NULL,
			id INTEGER NOT NULL,
			body BLOB NOT NULL,
			PRIMARY KEY (entity, id)
		);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	shared := &sharedDB{db: db}
	dbCache[abs] = shared
	return &SQLiteStore{db: db, mu: &shared.mu}, nil
}

// Create stores doc under a fresh id
func (s *SQLiteStore) Create(entity string, doc []byte) (int, error) {
	if !ValidEntity(entity) {
		return 0, ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var id int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(id), 0) + 1 FROM documents WHERE entity = ?`, entity).Scan(&id); err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO documents (entity, id, body) VALUES (?, ?, ?)`, entity, id, doc); err != nil {
		return 0, fmt.Errorf("insert %s/%d: %w", entity, id, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns the stored document
func (s *SQLiteStore) Get(entity string, id int) ([]byte, error) {
	if err := checkKey(entity, id); err != nil {
		return nil, err
	}
	var body []byte
	err := s.db.QueryRow(`SELECT body FROM documents WHERE entity = ? AND id = ?`, entity, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return body, err
}

// Put creates or replaces the document at id
func (s *SQLiteStore) Put(entity string, id int, doc []byte) error {
	if err := checkKey(entity, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR REPLACE INTO documents (entity, id, body) VALUES (?, ?, ?)`, entity, id, doc)
	return err
}

// Delete removes the document at id
func (s *SQLiteStore) Delete(entity string, id int) error {
	if err := checkKey(entity, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM documents WHERE entity = ? AND id = ?`, entity, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the ids stored for entity in ascending order
func (s *SQLiteStore) List(entity string) ([]int, error) {
	if !ValidEntity(entity) {
		return nil, ErrInvalidEntity
	}
	rows, err := s.db.Query(`SELECT id FROM documents WHERE entity = ? ORDER BY id`, entity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
