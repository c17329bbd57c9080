// Package catalog keeps a SQLite record of extraction runs: which pages were
// processed, which failed and why, and where each panel was written.
package catalog

import (
	"database/sql"
	"fmt"
	"image"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Catalog struct {
	*sql.DB
	path string
}

// PageRecord is the outcome of one page.
type PageRecord struct {
	Index  int
	Name   string
	Err    error
	Panels []PanelRecord
}

type PanelRecord struct {
	Seq  int
	Rect image.Rectangle
	File string
}

// PageFailure is one skipped page of a run.
type PageFailure struct {
	Index int
	Name  string
	Error string
}

// PageStats summarises a run.
type PageStats struct {
	Pages  int
	Failed int
	Panels int
}

// openDB opens a SQLite database at the given path
func openDB(dbPath string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Workers record pages concurrently; one connection serialises writers
	// and keeps an in-memory database on a single handle.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return sqlDB, nil
}

// Open opens or creates the catalog at path and makes sure the schema exists.
func Open(path string) (*Catalog, error) {
	sqlDB, err := openDB(path)
	if err != nil {
		return nil, err
	}

	c := &Catalog{DB: sqlDB, path: path}
	if err := c.InitSchema(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return c, nil
}

// Path returns the database file path
func (c *Catalog) Path() string {
	return c.path
}

// InitSchema initializes the database schema
func (c *Catalog) InitSchema() error {
	_, err := c.Exec(schema)
	return err
}

// BeginRun registers a new run and returns its ID.
func (c *Catalog) BeginRun(source, strategy string) (string, error) {
	id := uuid.NewString()
	if _, err := c.Exec(`INSERT INTO runs (run_id, source, strategy) VALUES (?, ?, ?)`, id, source, strategy); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// RecordPage stores a page outcome and its panels in one transaction.
func (c *Catalog) RecordPage(runID string, rec PageRecord) error {
	tx, err := c.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	status := "ok"
	var errText sql.NullString
	if rec.Err != nil {
		status = "failed"
		errText = sql.NullString{String: rec.Err.Error(), Valid: true}
	}

	res, err := tx.Exec(
		`INSERT INTO pages (run_id, page_index, name, status, error, panel_count) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, rec.Index, rec.Name, status, errText, len(rec.Panels),
	)
	if err != nil {
		return fmt.Errorf("failed to insert page %d: %w", rec.Index, err)
	}
	pageID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read page id: %w", err)
	}

	for _, p := range rec.Panels {
		_, err := tx.Exec(
			`INSERT INTO panels (page_id, seq, x, y, width, height, file_path) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			pageID, p.Seq, p.Rect.Min.X, p.Rect.Min.Y, p.Rect.Dx(), p.Rect.Dy(), p.File,
		)
		if err != nil {
			return fmt.Errorf("failed to insert panel %d of page %d: %w", p.Seq, rec.Index, err)
		}
	}

	return tx.Commit()
}

// Stats returns page, failure and panel counts for a run.
func (c *Catalog) Stats(runID string) (PageStats, error) {
	var s PageStats
	err := c.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(panel_count), 0)
		FROM pages WHERE run_id = ?`, runID).Scan(&s.Pages, &s.Failed, &s.Panels)
	if err != nil {
		return s, fmt.Errorf("failed to read stats: %w", err)
	}
	return s, nil
}

// FailedPages returns the skipped pages of a run in page order.
func (c *Catalog) FailedPages(runID string) ([]PageFailure, error) {
	rows, err := c.Query(`SELECT page_index, name, error FROM pages WHERE run_id = ? AND status = 'failed' ORDER BY page_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed pages: %w", err)
	}
	defer rows.Close()

	var out []PageFailure
	for rows.Next() {
		var f PageFailure
		var msg sql.NullString
		if err := rows.Scan(&f.Index, &f.Name, &msg); err != nil {
			return nil, err
		}
		f.Error = msg.String
		out = append(out, f)
	}
	return out, rows.Err()
}
