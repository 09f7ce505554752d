package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry describes one sorted output file.
type Entry struct {
	Path        string
	Source      string
	RecordSize  int
	KeySpec     string
	Algorithm   string
	RecordCount int64
	Comparisons uint64
	Elapsed     time.Duration
	CreatedAt   time.Time
}

// Catalog is a SQLite registry of the files produced by sorts, so later
// searches know each file's record size and ordering.
type Catalog struct {
	db *sql.DB
	mu sync.Mutex
}

const schema = `
CREATE TABLE IF NOT EXISTS sorted_files (
	path         TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	record_size  INTEGER NOT NULL,
	key_spec     TEXT NOT NULL,
	algorithm    TEXT NOT NULL,
	record_count INTEGER NOT NULL,
	comparisons  INTEGER NOT NULL,
	elapsed_ns   INTEGER NOT NULL,
	created_at   INTEGER NOT NULL
);`

const upsert = `INSERT OR REPLACE INTO sorted_files
	(path, source, record_size, key_spec, algorithm, record_count, comparisons, elapsed_ns, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectCols = `SELECT path, source, record_size, key_spec, algorithm, record_count, comparisons, elapsed_ns, created_at FROM sorted_files`

func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: init table: %w", err)
	}

	_, err = db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
	`)
	if err != nil {
		log.Printf("[Catalog] Warning: Failed to set PRAGMA: %v", err)
	}

	return &Catalog{db: db}, nil
}

func (c *Catalog) Register(e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.Exec(upsert, args(e)...)
	if err != nil {
		return fmt.Errorf("catalog: register %s: %w", e.Path, err)
	}
	return nil
}

// RegisterBatch registers all entries in one transaction.
func (c *Catalog) RegisterBatch(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin: %w", err)
	}

	stmt, err := tx.Prepare(upsert)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("catalog: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(args(e)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("catalog: register %s: %w", e.Path, err)
		}
	}

	return tx.Commit()
}

// Get returns the entry for path; ok is false when none is registered.
func (c *Catalog) Get(path string) (Entry, bool, error) {
	e, err := scan(c.db.QueryRow(selectCols+" WHERE path = ?", path))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("catalog: get %s: %w", path, err)
	}
	return e, true, nil
}

// List returns every entry, newest first.
func (c *Catalog) List() ([]Entry, error) {
	rows, err := c.db.Query(selectCols + " ORDER BY created_at DESC, path ASC")
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: list: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Remove deletes the entry for path. The file itself is left alone.
func (c *Catalog) Remove(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.db.Exec("DELETE FROM sorted_files WHERE path = ?", path); err != nil {
		return fmt.Errorf("catalog: remove %s: %w", path, err)
	}
	return nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

func args(e Entry) []interface{} {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return []interface{}{
		e.Path, e.Source, e.RecordSize, e.KeySpec, e.Algorithm,
		e.RecordCount, int64(e.Comparisons), int64(e.Elapsed), created.UnixNano(),
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scan(s scanner) (Entry, error) {
	var (
		e                    Entry
		comparisons, elapsed int64
		created              int64
	)
	err := s.Scan(&e.Path, &e.Source, &e.RecordSize, &e.KeySpec, &e.Algorithm,
		&e.RecordCount, &comparisons, &elapsed, &created)
	if err != nil {
		return Entry{}, err
	}
	e.Comparisons = uint64(comparisons)
	e.Elapsed = time.Duration(elapsed)
	e.CreatedAt = time.Unix(0, created)
	return e, nil
}
