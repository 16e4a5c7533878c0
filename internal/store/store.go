package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// timestamps are stored as fixed-width UTC text so ORDER BY sorts them
const timeLayout = "2006-01-02T15:04:05.000Z"

type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database at path and migrates it.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(2)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id         TEXT PRIMARY KEY,
			url        TEXT NOT NULL DEFAULT '',
			name       TEXT NOT NULL DEFAULT '',
			price      REAL NOT NULL DEFAULT 0,
			list_price REAL NOT NULL DEFAULT 0,
			discount   TEXT NOT NULL DEFAULT '',
			category   TEXT NOT NULL DEFAULT '',
			provider   TEXT NOT NULL DEFAULT '',
			status     TEXT NOT NULL DEFAULT '',
			scraped_at TEXT NOT NULL DEFAULT '',
			error      TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_status_scraped ON results(status, scraped_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_results_provider ON results(provider)`,
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name          TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL,
			active        INTEGER NOT NULL DEFAULT 1,
			created_at    TEXT NOT NULL,
			last_access   TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS urls (
			id         TEXT PRIMARY KEY,
			url        TEXT NOT NULL UNIQUE,
			provider   TEXT NOT NULL DEFAULT '',
			status     TEXT NOT NULL DEFAULT 'pending',
			added_at   TEXT NOT NULL,
			last_error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_urls_status ON urls(status)`,
		`CREATE TABLE IF NOT EXISTS scraper_state (
			id       INTEGER PRIMARY KEY CHECK (id = 1),
			active   INTEGER NOT NULL DEFAULT 0,
			last_run TEXT NOT NULL DEFAULT ''
		)`,
		`INSERT OR IGNORE INTO scraper_state (id) VALUES (1)`,
	}
	for _, stmt := range statements {
		if _, err := s.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
