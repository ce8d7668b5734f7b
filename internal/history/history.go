// Package history persists search history and user-defined aliases in a
// local SQLite database. History is capped at a configurable number of
// entries; the oldest rows are trimmed on insert.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	pkgerrors "github.com/browniellc/emojitools/pkg/errors"
)

// Entry is one recorded search.
type Entry struct {
	ID         int64     `json:"id"`
	Query      string    `json:"query"`
	Results    int       `json:"results"`
	SearchedAt time.Time `json:"searched_at"`
}

// Alias maps a user-chosen shorthand to an emoji character.
type Alias struct {
	Name      string    `json:"name"`
	Character string    `json:"character"`
	CreatedAt time.Time `json:"created_at"`
}

// QueryCount is an aggregated history row for the top-queries view.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// Store is the SQLite-backed history and alias store.
type Store struct {
	db         *sql.DB
	path       string
	maxEntries int
	logger     *slog.Logger
}

// Open opens (or creates) the history database at path. maxEntries <= 0
// keeps history unbounded.
func Open(path string, maxEntries int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{
		db:         db,
		path:       path,
		maxEntries: maxEntries,
		logger:     slog.Default().With("component", "history"),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS searches (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			query       TEXT    NOT NULL,
			results     INTEGER NOT NULL,
			searched_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_searches_query ON searches(query);
		CREATE TABLE IF NOT EXISTS aliases (
			name       TEXT PRIMARY KEY,
			emoji      TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating history schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RecordSearch appends a search to the history and trims it to the
// configured cap.
func (s *Store) RecordSearch(ctx context.Context, query string, results int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (query, results, searched_at) VALUES (?, ?, ?)`,
		query, results, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording search: %w", err)
	}
	if s.maxEntries > 0 {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM searches WHERE id NOT IN (SELECT id FROM searches ORDER BY id DESC LIMIT ?)`,
			s.maxEntries,
		)
		if err != nil {
			return fmt.Errorf("trimming search history: %w", err)
		}
	}
	return nil
}

// Recent returns the most recent searches, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, results, searched_at FROM searches ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing search history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Query, &e.Results, &e.SearchedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TopQueries returns the most frequently searched queries.
func (s *Store) TopQueries(ctx context.Context, limit int) ([]QueryCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT query, COUNT(*) AS n FROM searches GROUP BY query ORDER BY n DESC, query ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregating search history: %w", err)
	}
	defer rows.Close()

	var counts []QueryCount
	for rows.Next() {
		var qc QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, fmt.Errorf("scanning aggregate row: %w", err)
		}
		counts = append(counts, qc)
	}
	return counts, rows.Err()
}

// ClearHistory deletes all recorded searches. Aliases are kept.
func (s *Store) ClearHistory(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM searches`); err != nil {
		return fmt.Errorf("clearing search history: %w", err)
	}
	s.logger.Info("search history cleared")
	return nil
}

// SetAlias creates or replaces an alias for an emoji character.
func (s *Store) SetAlias(ctx context.Context, name, character string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO aliases (name, emoji, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET emoji = excluded.emoji, created_at = excluded.created_at`,
		name, character, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("setting alias %q: %w", name, err)
	}
	s.logger.Info("alias set", "name", name, "character", character)
	return nil
}

// ResolveAlias returns the character an alias points at.
func (s *Store) ResolveAlias(ctx context.Context, name string) (string, error) {
	var character string
	err := s.db.QueryRowContext(ctx,
		`SELECT emoji FROM aliases WHERE name = ?`, name,
	).Scan(&character)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %q", pkgerrors.ErrAliasNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("resolving alias %q: %w", name, err)
	}
	return character, nil
}

// DeleteAlias removes an alias.
func (s *Store) DeleteAlias(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM aliases WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting alias %q: %w", name, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: %q", pkgerrors.ErrAliasNotFound, name)
	}
	s.logger.Info("alias deleted", "name", name)
	return nil
}

// Aliases lists all aliases sorted by name.
func (s *Store) Aliases(ctx context.Context) ([]Alias, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, emoji, created_at FROM aliases ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing aliases: %w", err)
	}
	defer rows.Close()

	var aliases []Alias
	for rows.Next() {
		var a Alias
		if err := rows.Scan(&a.Name, &a.Character, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning alias row: %w", err)
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}
