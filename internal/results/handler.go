package results

import (
	"context"
	"errors"
	"net/http"
	"strconv"
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
)

var exportHeaders = []string{"url", "nombre", "precio", "descuento", "categoria", "proveedor", "status", "fechaScraping", "error"}

// Repository is the part of *store.Store the results endpoints need.
type Repository interface {
	ListResults(ctx context.Context, f store.ResultFilter) ([]store.Result, int, error)
	InsertResults(ctx context.Context, results []store.Result) (int, error)
	Providers(ctx context.Context) ([]string, error)
	Categories(ctx context.Context) ([]string, error)
}

type Handler struct {
	repo        Repository
	maxUploadMB int
	logger      zerolog.Logger
	now         func() time.Time
}

func NewHandler(repo Repository, maxUploadMB int, logger zerolog.Logger) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 32
	}
	return &Handler{repo: repo, maxUploadMB: maxUploadMB, logger: logger, now: time.Now}
}

func (h *Handler) reqLogger(r *http.Request) zerolog.Logger {
	return h.logger.With().Str("rid", middleware.GetRequestID(r)).Logger()
}

func filterFromQuery(r *http.Request) store.ResultFilter {
	q := r.URL.Query()
	return store.ResultFilter{
		Provider:    strings.TrimSpace(q.Get("proveedor")),
		Status:      strings.TrimSpace(q.Get("status")),
		Category:    strings.TrimSpace(q.Get("categoria")),
		Search:      strings.TrimSpace(q.Get("search")),
		MinPrice:    utils.ToFloat(q.Get("minPrecio"), 0),
		MaxPrice:    utils.ToFloat(q.Get("maxPrecio"), 0),
		HasDiscount: utils.ToBool(q.Get("conDescuento"), false),
		Limit:       utils.Clamp(utils.Atoi(q.Get("limit"), defaultLimit), 1, maxLimit),
		Offset:      max(utils.Atoi(q.Get("offset"), 0), 0),
	}
}

// List serves GET /api/results. With format=csv or format=xlsx the whole
// filtered set is sent as a download instead of a JSON page.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.reqLogger(r)
	f := filterFromQuery(r)

	format := strings.ToLower(r.URL.Query().Get("format"))
	switch format {
	case "", "json":
	case "csv", "xlsx":
		f.Limit, f.Offset = maxExport, 0
	default:
		utils.WriteError(w, http.StatusBadRequest, "format must be json, csv or xlsx")
		return
	}

	list, total, err := h.repo.ListResults(r.Context(), f)
	if err != nil {
		log.Error().Err(err).Msg("list results")
		utils.WriteError(w, http.StatusInternalServerError, "could not load results")
		return
	}

	switch format {
	case "csv":
		h.exportCSV(w, list, log)
	case "xlsx":
		h.exportXLSX(w, list, log)
	default:
		_ = utils.WriteJSON(w, http.StatusOK, map[string]any{"results": list, "total": total})
	}
}

func exportRow(res store.Result) []string {
	return []string{
		res.URL,
		res.Name,
		strconv.FormatFloat(res.Price, 'f', -1, 64),
		res.Discount,
		res.Category,
		res.Provider,
		res.Status,
		res.ScrapedAt.UTC().Format(time.RFC3339),
		res.Error,
	}
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Cache-Control", "no-store")
}

func (h *Handler) exportCSV(w http.ResponseWriter, list []store.Result, log zerolog.Logger) {
	rows := make([][]string, 0, len(list))
	for _, res := range list {
		rows = append(rows, exportRow(res))
	}
	attachment(w, "text/csv; charset=utf-8", "resultados.csv")
	if err := fileio.WriteCSV(w, exportHeaders, rows); err != nil {
		log.Error().Err(err).Msg("write csv")
	}
}

func (h *Handler) exportXLSX(w http.ResponseWriter, list []store.Result, log zerolog.Logger) {
	rows := make([][]any, 0, len(list))
	for _, res := range list {
		// keep the price numeric in the sheet
		rows = append(rows, []any{
			res.URL, res.Name, res.Price, res.Discount, res.Category,
			res.Provider, res.Status, res.ScrapedAt.UTC().Format(time.RFC3339), res.Error,
		})
	}
	attachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "resultados.xlsx")
	if err := fileio.WriteXLSX(w, "Resultados", exportHeaders, rows); err != nil {
		log.Error().Err(err).Msg("write xlsx")
	}
}

// Providers serves GET /api/results/providers.
func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	h.distinct(w, r, "providers", h.repo.Providers)
}

// Categories serves GET /api/results/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	h.distinct(w, r, "categories", h.repo.Categories)
}

func (h *Handler) distinct(w http.ResponseWriter, r *http.Request, key string, load func(context.Context) ([]string, error)) {
	vals, err := load(r.Context())
	if err != nil {
		log := h.reqLogger(r)
		log.Error().Err(err).Str("what", key).Msg("load distinct values")
		utils.WriteError(w, http.StatusInternalServerError, "could not load "+key)
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, map[string]any{key: vals})
}

// Import serves POST /api/results/import: a multipart "file" (.csv, .xlsx or
// .xls) whose rows are upserted as results.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := h.reqLogger(r)
	defer r.Body.Close()

	if err := r.ParseMultipartForm(int64(h.maxUploadMB) << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		utils.WriteError(w, http.StatusBadRequest, "bad multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "missing file: "+err.Error())
		return
	}
	defer file.Close()

	rows, err := fileio.ReadAnyMaps(file, header.Filename, utils.Atoi(r.FormValue("header_row"), 1))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "failed to read file: "+err.Error())
		return
	}

	list, skipped := toResults(rows, h.now().UTC())
	inserted := 0
	if len(list) > 0 {
		inserted, err = h.repo.InsertResults(r.Context(), list)
		if err != nil {
			log.Error().Err(err).Msg("insert results")
			utils.WriteError(w, http.StatusInternalServerError, "could not store results")
			return
		}
	}

	_ = utils.WriteJSON(w, http.StatusOK, map[string]int{"inserted": inserted, "skipped": skipped})
	log.Info().
		Str("file", header.Filename).
		Int("rows", len(rows)).
		Int("inserted", inserted).
		Int("skipped", skipped).
		Dur("elapsed", time.Since(start)).
		Msg("import done")
}
