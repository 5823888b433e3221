// Package audit keeps a sqlite record of aggregations and SEO runs. Nothing
// in the aggregation path reads it back.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"zerocrash/internal/model"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Search is one completed aggregation.
type Search struct {
	ID          string
	Fingerprint string
	Query       string
	Sources     []model.Source
	Category    string
	Degraded    bool
	Items       []model.ContentItem
	At          time.Time
}

// SEORun is one SEO scoring request.
type SEORun struct {
	ID          string
	ContentHash string
	Keywords    []string
	Suggestion  model.SeoSuggestion
	At          time.Time
}

// Log is the sqlite audit store. Safe for concurrent use.
type Log struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens the audit database at path; ":memory:" gives a
// private in-memory database.
func Open(path string) (*Log, error) {
	dsn := path
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("audit: enable WAL: %w", err)
		}
	}
	l := &Log{db: db}
	if err := l.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: create tables: %w", err)
	}
	return l, nil
}

func (l *Log) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS searches (
		id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		query TEXT NOT NULL,
		sources TEXT NOT NULL,
		category TEXT,
		degraded INTEGER NOT NULL DEFAULT 0,
		item_count INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS search_items (
		search_id TEXT NOT NULL REFERENCES searches(id),
		position INTEGER NOT NULL,
		item_id TEXT NOT NULL,
		source TEXT NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		author TEXT,
		published_at DATETIME,
		category TEXT,
		engagement REAL NOT NULL,
		PRIMARY KEY (search_id, position)
	);

	CREATE TABLE IF NOT EXISTS seo_runs (
		id TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL,
		keywords TEXT,
		language TEXT NOT NULL,
		score REAL NOT NULL,
		suggestion TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_searches_fingerprint ON searches(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_search_items_category ON search_items(category);
	CREATE INDEX IF NOT EXISTS idx_seo_runs_hash ON seo_runs(content_hash);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Close closes the database.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Close()
}

// Ping checks the database is reachable.
func (l *Log) Ping(ctx context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.db.PingContext(ctx)
}

// RecordSearch stores s and its items in one transaction. A missing ID or
// timestamp is filled in.
func (l *Log) RecordSearch(ctx context.Context, s Search) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.At.IsZero() {
		s.At = time.Now().UTC()
	}
	names := make([]string, len(s.Sources))
	for i, src := range s.Sources {
		names[i] = string(src)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("audit: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO searches (id, fingerprint, query, sources, category, degraded, item_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Fingerprint, s.Query, strings.Join(names, ","), s.Category, s.Degraded, len(s.Items), s.At,
	); err != nil {
		return fmt.Errorf("audit: insert search: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO search_items (search_id, position, item_id, source, title, url, author, published_at, category, engagement)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("audit: prepare items: %w", err)
	}
	defer stmt.Close()
	for i, it := range s.Items {
		var published any
		if !it.PublishedAt.IsZero() {
			published = it.PublishedAt.UTC()
		}
		if _, err := stmt.ExecContext(ctx, s.ID, i, it.ID, string(it.Source), it.Title, it.URL,
			it.Author, published, it.Category, it.EngagementScore); err != nil {
			return fmt.Errorf("audit: insert item %s: %w", it.ID, err)
		}
	}
	return tx.Commit()
}

// RecordSEO stores one scoring run.
func (l *Log) RecordSEO(ctx context.Context, r SEORun) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.At.IsZero() {
		r.At = time.Now().UTC()
	}
	payload, err := json.Marshal(r.Suggestion)
	if err != nil {
		return fmt.Errorf("audit: encode suggestion: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO seo_runs (id, content_hash, keywords, language, score, suggestion, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ContentHash, strings.Join(r.Keywords, ","), r.Suggestion.Language, r.Suggestion.Score, string(payload), r.At,
	)
	if err != nil {
		return fmt.Errorf("audit: insert seo run: %w", err)
	}
	return nil
}

// CategoryCounts returns how many recorded items carry each category,
// lowercased.
func (l *Log) CategoryCounts(ctx context.Context) (map[string]int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rows, err := l.db.QueryContext(ctx,
		`SELECT lower(category), COUNT(*) FROM search_items
		 WHERE category IS NOT NULL AND category != ''
		 GROUP BY lower(category)`)
	if err != nil {
		return nil, fmt.Errorf("audit: category counts: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		out[cat] = n
	}
	return out, rows.Err()
}

// Stats summarizes the log for health reporting.
type Stats struct {
	Searches int `json:"searches"`
	Items    int `json:"items"`
	SEORuns  int `json:"seo_runs"`
}

// Stats counts rows in each table.
func (l *Log) Stats(ctx context.Context) (Stats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var st Stats
	err := l.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM searches), (SELECT COUNT(*) FROM search_items), (SELECT COUNT(*) FROM seo_runs)`,
	).Scan(&st.Searches, &st.Items, &st.SEORuns)
	if err != nil {
		return Stats{}, fmt.Errorf("audit: stats: %w", err)
	}
	return st, nil
}
