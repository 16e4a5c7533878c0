package serverhttp

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"price-monitor/internal/auth"
	authHnd "price-monitor/internal/auth/handler"
	cmpHnd "price-monitor/internal/compare/handler"
	"price-monitor/internal/compare/service"
	"price-monitor/internal/config"
	"price-monitor/internal/middleware"
	"price-monitor/internal/results"
	"price-monitor/internal/store"
	"price-monitor/internal/urls"
	"price-monitor/server/http/handlers"
)

func NewRouter(cfg config.Config, logger zerolog.Logger, st *store.Store) *chi.Mux {
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	matcher := service.NewMatcher(cfg.Match)

	authH := authHnd.New(st, tokens, logger)
	cmpH := cmpHnd.New(st, matcher, cmpHnd.Options{FeedSize: cfg.FeedSize, MaxLimit: cfg.MaxCompareSize}, logger)
	resH := results.NewHandler(st, cfg.MaxUploadMB, logger)
	urlH := urls.NewHandler(st, logger)

	r := chi.NewRouter()

	// order matters: recover -> requestID -> logging -> cors -> limit
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) * 1024 * 1024))

	r.Get("/health", handlers.Health(st))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(cfg.LoginRatePerMin)).Post("/init", authH.Init)
			r.With(middleware.RateLimit(cfg.LoginRatePerMin)).Post("/login", authH.Login)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(tokens))
				r.Get("/me", authH.Me)
				r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/register", authH.Register)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokens))

			// read-only views for every role
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(auth.RoleViewer))
				r.Get("/comparisons", cmpH.Comparisons)
				r.Post("/comparisons/selection", cmpH.Selection)
				r.Get("/stats", cmpH.Stats)
				r.Get("/results", resH.List)
				r.Get("/results/providers", resH.Providers)
				r.Get("/results/categories", resH.Categories)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(auth.RoleAdmin))
				r.Post("/results/import", resH.Import)
				r.Get("/urls", urlH.List)
				r.Post("/urls", urlH.Add)
				r.Get("/users", authH.ListUsers)
				r.Patch("/users", authH.UpdateUser)
			})
		})
	})

	return r
}
