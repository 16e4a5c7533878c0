package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Queue states of a product URL.
const (
	URLPending    = "pending"
	URLProcessing = "processing"
	URLDone       = "done"
	URLError      = "error"
)

// URLItem is a product page queued for scraping.
type URLItem struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Provider  string    `json:"proveedor"`
	Status    string    `json:"status"`
	AddedAt   time.Time `json:"fechaAgregada"`
	LastError string    `json:"ultimoError,omitempty"`
}

type URLFilter struct {
	Status   string
	Provider string
	Search   string // case-insensitive substring of the url
	Limit    int
	Offset   int
}

type URLTotals struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Error      int `json:"error"`
}

// ScraperState is the scraper's own bookkeeping, shown next to the queue.
type ScraperState struct {
	Active  bool       `json:"scrapingActivo"`
	LastRun *time.Time `json:"ultimaEjecucion"` // nil until the first run
}

const urlColumns = `id, url, provider, status, added_at, last_error`

// InsertURLs queues items as pending, skipping urls already queued (in the
// table or earlier in items). It returns how many were added.
func (s *Store) InsertURLs(ctx context.Context, items []URLItem) (int, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO urls (`+urlColumns+`) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	now := time.Now().UTC()
	for i := range items {
		it := &items[i]
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if it.Status == "" {
			it.Status = URLPending
		}
		if it.AddedAt.IsZero() {
			it.AddedAt = now
		}
		res, err := stmt.ExecContext(ctx, it.ID, it.URL, it.Provider, it.Status, formatTime(it.AddedAt), it.LastError)
		if err != nil {
			return 0, fmt.Errorf("insert url %s: %w", it.URL, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// ListURLs returns a page of queued urls matching f, newest first, and the
// number of matches.
func (s *Store) ListURLs(ctx context.Context, f URLFilter) ([]URLItem, int, error) {
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Provider != "" {
		conds = append(conds, "provider = ?")
		args = append(args, f.Provider)
	}
	if f.Search != "" {
		conds = append(conds, "instr(lower(url), ?) > 0")
		args = append(args, strings.ToLower(f.Search))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM urls`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count urls: %w", err)
	}

	q := `SELECT ` + urlColumns + ` FROM urls` + where + ` ORDER BY added_at DESC, id`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, max(f.Offset, 0))
	}
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query urls: %w", err)
	}
	defer rows.Close()

	out := make([]URLItem, 0)
	for rows.Next() {
		var it URLItem
		var addedAt string
		if err := rows.Scan(&it.ID, &it.URL, &it.Provider, &it.Status, &addedAt, &it.LastError); err != nil {
			return nil, 0, fmt.Errorf("scan url: %w", err)
		}
		it.AddedAt = parseTime(addedAt)
		out = append(out, it)
	}
	return out, total, rows.Err()
}

// URLTotals counts the whole queue per status.
func (s *Store) URLTotals(ctx context.Context) (URLTotals, error) {
	var t URLTotals
	rows, err := s.conn.QueryContext(ctx, `SELECT status, COUNT(*) FROM urls GROUP BY status`)
	if err != nil {
		return t, fmt.Errorf("count urls by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return t, err
		}
		switch status {
		case URLPending:
			t.Pending = n
		case URLProcessing:
			t.Processing = n
		case URLDone:
			t.Done = n
		case URLError:
			t.Error = n
		}
	}
	return t, rows.Err()
}

func (s *Store) ScraperState(ctx context.Context) (ScraperState, error) {
	var st ScraperState
	var lastRun string
	err := s.conn.QueryRowContext(ctx, `SELECT active, last_run FROM scraper_state WHERE id = 1`).Scan(&st.Active, &lastRun)
	if err != nil {
		return st, fmt.Errorf("load scraper state: %w", err)
	}
	if t := parseTime(lastRun); !t.IsZero() {
		st.LastRun = &t
	}
	return st, nil
}
