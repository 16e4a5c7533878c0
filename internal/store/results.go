package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"price-monitor/internal/compare/model"
)

const StatusSuccess = "success"

// Result is one scrape attempt for a product URL.
type Result struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Name      string    `json:"nombre"`
	Price     float64   `json:"precio"`
	ListPrice float64   `json:"precioLista,omitempty"`
	Discount  string    `json:"descuento"`
	Category  string    `json:"categoria"`
	Provider  string    `json:"proveedor"`
	Status    string    `json:"status"`
	ScrapedAt time.Time `json:"fechaScraping"`
	Error     string    `json:"error,omitempty"`
}

// Candidate projects a result onto the matcher's input record.
func (r Result) Candidate() model.CandidateRecord {
	return model.CandidateRecord{
		ID:        r.ID,
		Name:      r.Name,
		Price:     r.Price,
		Provider:  r.Provider,
		ScrapedAt: r.ScrapedAt,
		URL:       r.URL,
		Discount:  r.Discount,
	}
}

type ResultFilter struct {
	Provider    string
	Status      string
	Category    string // case-insensitive substring
	Search      string // case-insensitive substring of the name
	MinPrice    float64
	MaxPrice    float64
	HasDiscount bool
	Limit       int
	Offset      int
}

const resultColumns = `id, url, name, price, list_price, discount, category, provider, status, scraped_at, error`

// InsertResults upserts results by id, generating ids for new rows.
func (s *Store) InsertResults(ctx context.Context, results []Result) (int, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO results (`+resultColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range results {
		r := &results[i]
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.URL, r.Name, r.Price, r.ListPrice, r.Discount, r.Category,
			r.Provider, r.Status, formatTime(r.ScrapedAt), r.Error,
		); err != nil {
			return 0, fmt.Errorf("insert result %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(results), nil
}

// RecentCandidates returns up to n of the most recently scraped successful
// results, newest first, keeping only rows with a name and a positive price.
func (s *Store) RecentCandidates(ctx context.Context, n int) ([]model.CandidateRecord, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+resultColumns+` FROM results
		WHERE status = ? ORDER BY scraped_at DESC, id LIMIT ?`, StatusSuccess, n)
	if err != nil {
		return nil, fmt.Errorf("query recent results: %w", err)
	}
	defer rows.Close()

	out := make([]model.CandidateRecord, 0, n)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(r.Name) == "" || r.Price <= 0 {
			continue
		}
		out = append(out, r.Candidate())
	}
	return out, rows.Err()
}

// CandidatesByID loads the given results in the order requested. Unknown ids
// are skipped.
func (s *Store) CandidatesByID(ctx context.Context, ids []string) ([]model.CandidateRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT ` + resultColumns + ` FROM results WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query results by id: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]Result, len(ids))
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		byID[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.CandidateRecord, 0, len(byID))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if _, dup := seen[id]; !ok || dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r.Candidate())
	}
	return out, nil
}

// ListResults returns a page of results matching f and the total number of
// matches, newest first.
func (s *Store) ListResults(ctx context.Context, f ResultFilter) ([]Result, int, error) {
	where, args := f.where()

	var total int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count results: %w", err)
	}

	q := `SELECT ` + resultColumns + ` FROM results` + where + ` ORDER BY scraped_at DESC, id`
	pageArgs := append([]any{}, args...)
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		pageArgs = append(pageArgs, f.Limit, max(f.Offset, 0))
	}
	rows, err := s.conn.QueryContext(ctx, q, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	out := make([]Result, 0)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func (f ResultFilter) where() (string, []any) {
	var conds []string
	var args []any
	if f.Provider != "" {
		conds = append(conds, "provider = ?")
		args = append(args, f.Provider)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		conds = append(conds, "instr(lower(category), ?) > 0")
		args = append(args, strings.ToLower(f.Category))
	}
	if f.Search != "" {
		conds = append(conds, "instr(lower(name), ?) > 0")
		args = append(args, strings.ToLower(f.Search))
	}
	if f.MinPrice > 0 {
		conds = append(conds, "price >= ?")
		args = append(args, f.MinPrice)
	}
	if f.MaxPrice > 0 {
		conds = append(conds, "price <= ?")
		args = append(args, f.MaxPrice)
	}
	if f.HasDiscount {
		conds = append(conds, "discount <> ''")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Providers lists the distinct providers, sorted.
func (s *Store) Providers(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "provider")
}

// Categories lists the distinct categories, sorted.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "category")
}

func (s *Store) distinct(ctx context.Context, col string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT DISTINCT `+col+` FROM results WHERE `+col+` <> '' ORDER BY `+col)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", col, err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanResult(rows *sql.Rows) (Result, error) {
	var r Result
	var scrapedAt string
	if err := rows.Scan(&r.ID, &r.URL, &r.Name, &r.Price, &r.ListPrice, &r.Discount,
		&r.Category, &r.Provider, &r.Status, &scrapedAt, &r.Error); err != nil {
		return r, fmt.Errorf("scan result: %w", err)
	}
	r.ScrapedAt = parseTime(scrapedAt)
	return r, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
