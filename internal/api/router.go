package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/subpipe/backend/internal/api/handlers"
	"github.com/subpipe/backend/internal/api/middleware"
	"github.com/subpipe/backend/internal/auth"
	"github.com/subpipe/backend/internal/config"
	"github.com/subpipe/backend/internal/db"
	"github.com/subpipe/backend/internal/pipeline"
)

func NewRouter(cfg *config.Config, database *db.Database, jwtService *auth.JWTService, manager *pipeline.Manager) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(cfg.CORSOrigins)))
	r.Use(middleware.MaxBodySize(middleware.DefaultBodyLimit))

	authHandler := handlers.NewAuthHandler(database, jwtService)
	runsHandler := handlers.NewRunsHandler(manager)
	settingsHandler := handlers.NewSettingsHandler(database)
	subtitleHandler := handlers.NewSubtitleHandler()

	loginLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.With(loginLimiter.Handler).Post("/api/auth/login", authHandler.Login)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtService))

		r.Get("/api/auth/me", authHandler.Me)

		r.Route("/api/runs", func(r chi.Router) {
			r.Post("/", runsHandler.Create)
			r.Get("/", runsHandler.List)
			r.Get("/{id}", runsHandler.Get)
			r.Post("/{id}/pause", runsHandler.Pause)
			r.Post("/{id}/resume", runsHandler.Resume)
			r.Post("/{id}/cancel", runsHandler.Cancel)
			r.Post("/{id}/reset", runsHandler.Reset)
			r.Post("/{id}/chunks/{idx}/retry", runsHandler.RetryChunk)
			r.Put("/{id}/chunks/{idx}", runsHandler.OverrideChunk)
		})

		r.Route("/api/subtitle", func(r chi.Router) {
			r.Post("/validate", subtitleHandler.Validate)
			r.Post("/repair", subtitleHandler.Repair)
			r.Post("/srt", subtitleHandler.ToSRT)
			r.Post("/merge", subtitleHandler.Merge)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("admin"))
			r.Get("/api/settings", settingsHandler.Get)
			r.Put("/api/settings", settingsHandler.Update)
			r.Get("/api/admin/ratelimit", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(loginLimiter.Status())
			})
			r.Post("/api/admin/ratelimit/clear", func(w http.ResponseWriter, r *http.Request) {
				loginLimiter.Clear()
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"status":"ok"}`))
			})
		})
	})

	return r
}
