package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"price-monitor/internal/compare/model"
	"price-monitor/internal/compare/service"
	"price-monitor/internal/middleware"
	"price-monitor/internal/utils"
)

const defaultLimit = 50

// Source supplies the records to compare. Implemented by *store.Store.
type Source interface {
	RecentCandidates(ctx context.Context, n int) ([]model.CandidateRecord, error)
	CandidatesByID(ctx context.Context, ids []string) ([]model.CandidateRecord, error)
}

type Options struct {
	FeedSize int // recent records loaded per request
	MaxLimit int // cap for ?limit
}

type Handler struct {
	src     Source
	matcher *service.Matcher
	opts    Options
	logger  zerolog.Logger
}

func New(src Source, matcher *service.Matcher, opts Options, logger zerolog.Logger) *Handler {
	if opts.FeedSize <= 0 {
		opts.FeedSize = 500
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 100
	}
	return &Handler{src: src, matcher: matcher, opts: opts, logger: logger}
}

func (h *Handler) reqLogger(r *http.Request) zerolog.Logger {
	return h.logger.With().Str("rid", middleware.GetRequestID(r)).Logger()
}

type comparisonsResponse struct {
	Comparisons []model.ComparisonSummary `json:"comparisons"`
	Total       int                       `json:"total"`
}

// Comparisons serves GET /api/comparisons?limit=N: the recent feed grouped
// across providers, biggest price spread first.
func (h *Handler) Comparisons(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := h.reqLogger(r)

	limit := utils.Clamp(utils.Atoi(r.URL.Query().Get("limit"), defaultLimit), 1, h.opts.MaxLimit)

	records, err := h.src.RecentCandidates(r.Context(), h.opts.FeedSize)
	if err != nil {
		log.Error().Err(err).Msg("load candidates")
		utils.WriteError(w, http.StatusInternalServerError, "could not load comparisons")
		return
	}

	groups := h.matcher.Group(records)
	out := service.Aggregate(groups, limit)

	if err := utils.WriteJSON(w, http.StatusOK, comparisonsResponse{Comparisons: out, Total: len(out)}); err != nil {
		log.Error().Err(err).Msg("write json")
		return
	}
	log.Info().
		Int("records", len(records)).
		Int("groups", len(groups)).
		Int("returned", len(out)).
		Dur("elapsed", time.Since(start)).
		Msg("comparisons done")
}

type selectionRequest struct {
	IDs []string `json:"ids"`
}

type selectionResponse struct {
	Groups  []model.SelectionGroup `json:"groups"`
	Summary model.SelectionSummary `json:"summary"`
}

// Selection serves POST /api/comparisons/selection: the records picked by the
// user grouped by exact name.
func (h *Handler) Selection(w http.ResponseWriter, r *http.Request) {
	log := h.reqLogger(r)

	var req selectionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			utils.WriteError(w, http.StatusRequestEntityTooLarge, "body too large")
		case errors.Is(err, io.EOF):
			utils.WriteError(w, http.StatusBadRequest, "empty body")
		default:
			utils.WriteError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		}
		return
	}
	if len(req.IDs) == 0 {
		utils.WriteError(w, http.StatusBadRequest, "ids required")
		return
	}
	if len(req.IDs) > h.opts.FeedSize {
		utils.WriteError(w, http.StatusBadRequest, "too many ids")
		return
	}

	records, err := h.src.CandidatesByID(r.Context(), req.IDs)
	if err != nil {
		log.Error().Err(err).Msg("load selection")
		utils.WriteError(w, http.StatusInternalServerError, "could not load selection")
		return
	}

	groups := service.GroupExact(records)
	resp := selectionResponse{Groups: groups, Summary: service.Summarize(records, groups)}
	if err := utils.WriteJSON(w, http.StatusOK, resp); err != nil {
		log.Error().Err(err).Msg("write json")
	}
}

// Stats serves GET /api/stats?type=provider-stats|price-analysis.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	log := h.reqLogger(r)
	kind := r.URL.Query().Get("type")
	if kind != "provider-stats" && kind != "price-analysis" {
		utils.WriteError(w, http.StatusBadRequest, "type must be provider-stats or price-analysis")
		return
	}

	records, err := h.src.RecentCandidates(r.Context(), h.opts.FeedSize)
	if err != nil {
		log.Error().Err(err).Str("type", kind).Msg("load candidates")
		utils.WriteError(w, http.StatusInternalServerError, "could not load stats")
		return
	}

	var body any
	if kind == "provider-stats" {
		body = map[string]any{"stats": service.ProviderStatistics(records)}
	} else {
		summaries := h.matcher.Compare(records, h.opts.MaxLimit)
		body = map[string]any{"analysis": service.PriceAnalysis(summaries)}
	}
	if err := utils.WriteJSON(w, http.StatusOK, body); err != nil {
		log.Error().Err(err).Msg("write json")
	}
}
