package urls

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"price-monitor/internal/fileio"
	"price-monitor/internal/middleware"
	"price-monitor/internal/store"
	"price-monitor/internal/utils"
)

const (
	defaultLimit = 200
	maxLimit     = 500
	maxExport    = 50000
	maxPerPost   = 5000
)

var exportHeaders = []string{"url", "proveedor", "status", "fechaAgregada", "ultimoError"}

// Queue is the part of *store.Store the URL endpoints need.
type Queue interface {
	InsertURLs(ctx context.Context, items []store.URLItem) (int, error)
	ListURLs(ctx context.Context, f store.URLFilter) ([]store.URLItem, int, error)
	URLTotals(ctx context.Context) (store.URLTotals, error)
	ScraperState(ctx context.Context) (store.ScraperState, error)
}

type Handler struct {
	queue  Queue
	logger zerolog.Logger
}

func NewHandler(queue Queue, logger zerolog.Logger) *Handler {
	return &Handler{queue: queue, logger: logger}
}

func (h *Handler) reqLogger(r *http.Request) zerolog.Logger {
	return h.logger.With().Str("rid", middleware.GetRequestID(r)).Logger()
}

type listResponse struct {
	URLs    []store.URLItem    `json:"urls"`
	Totals  store.URLTotals    `json:"totals"`
	Scraper store.ScraperState `json:"config"`
	Total   int                `json:"total"`
}

// List serves GET /api/urls: a filtered page of the queue with per-status
// totals and the scraper state, or the filtered queue as CSV with format=csv.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.reqLogger(r)
	q := r.URL.Query()
	f := store.URLFilter{
		Status:   strings.TrimSpace(q.Get("status")),
		Provider: strings.TrimSpace(q.Get("proveedor")),
		Search:   strings.TrimSpace(q.Get("search")),
		Limit:    utils.Clamp(utils.Atoi(q.Get("limit"), defaultLimit), 1, maxLimit),
		Offset:   max(utils.Atoi(q.Get("offset"), 0), 0),
	}

	format := strings.ToLower(q.Get("format"))
	switch format {
	case "", "json":
	case "csv":
		f.Limit, f.Offset = maxExport, 0
	default:
		utils.WriteError(w, http.StatusBadRequest, "format must be json or csv")
		return
	}

	items, total, err := h.queue.ListURLs(r.Context(), f)
	if err != nil {
		log.Error().Err(err).Msg("list urls")
		utils.WriteError(w, http.StatusInternalServerError, "could not load urls")
		return
	}

	if format == "csv" {
		rows := make([][]string, 0, len(items))
		for _, it := range items {
			rows = append(rows, []string{it.URL, it.Provider, it.Status, it.AddedAt.UTC().Format(time.RFC3339), it.LastError})
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="urls.csv"`)
		if err := fileio.WriteCSV(w, exportHeaders, rows); err != nil {
			log.Error().Err(err).Msg("write csv")
		}
		return
	}

	totals, err := h.queue.URLTotals(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("count urls")
		utils.WriteError(w, http.StatusInternalServerError, "could not load urls")
		return
	}
	state, err := h.queue.ScraperState(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("load scraper state")
		utils.WriteError(w, http.StatusInternalServerError, "could not load urls")
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, listResponse{URLs: items, Totals: totals, Scraper: state, Total: total})
}

type addRequest struct {
	URLs []string `json:"urls"`
	CSV  string   `json:"csv"`
	URL  string   `json:"url"`
}

// received picks the first non-empty source, in the order urls, csv, url.
func (req addRequest) received() ([]string, error) {
	switch {
	case len(req.URLs) > 0:
		return req.URLs, nil
	case strings.TrimSpace(req.CSV) != "":
		return parseCSVURLs(req.CSV)
	case req.URL != "":
		return []string{req.URL}, nil
	}
	return nil, nil
}

// parseCSVURLs takes the first column of every line that holds an http(s)
// URL. Header lines and blanks fall out on their own.
func parseCSVURLs(text string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var out []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			continue
		}
		if u, ok := cleanURL(rec[0]); ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// Add serves POST /api/urls with {urls: [...]}, {csv: "..."} or {url: "..."}.
// URLs are queued as pending with their detected provider; ones already in
// the queue are skipped.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := h.reqLogger(r)

	var req addRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteError(w, http.StatusRequestEntityTooLarge, "body too large")
			return
		}
		utils.WriteError(w, http.StatusBadRequest, "invalid json")
		return
	}
	raw, err := req.received()
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid csv: "+err.Error())
		return
	}
	if len(raw) > maxPerPost {
		utils.WriteError(w, http.StatusBadRequest, "too many urls")
		return
	}

	items := make([]store.URLItem, 0, len(raw))
	for _, s := range raw {
		u, ok := cleanURL(s)
		if !ok {
			continue
		}
		items = append(items, store.URLItem{URL: u, Provider: detectProvider(u), Status: store.URLPending})
	}
	if len(items) == 0 {
		utils.WriteError(w, http.StatusBadRequest, "no urls received")
		return
	}

	inserted, err := h.queue.InsertURLs(r.Context(), items)
	if err != nil {
		log.Error().Err(err).Msg("insert urls")
		utils.WriteError(w, http.StatusInternalServerError, "could not save urls")
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, map[string]int{"inserted": inserted, "totalReceived": len(raw)})
	log.Info().
		Int("received", len(raw)).
		Int("inserted", inserted).
		Dur("elapsed", time.Since(start)).
		Msg("urls queued")
}
