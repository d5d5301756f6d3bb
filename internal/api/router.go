package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sproutsync/sproutsync/internal/repositories"
	"github.com/sproutsync/sproutsync/internal/services"
)

// Server serves the read-only activity API. The summary cache and token
// service are optional: a nil cache reads straight through to the store, a
// nil token service leaves the API open.
type Server struct {
	store  repositories.Store
	cache  *repositories.SummaryCache
	tokens *services.TokenService
	logger *slog.Logger
}

func NewServer(store repositories.Store, cache *repositories.SummaryCache, tokens *services.TokenService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, cache: cache, tokens: tokens, logger: logger}
}

func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(s.requireToken)

		r.Get("/children", s.handleListChildren)
		r.Get("/children/{childID}", s.handleGetChild)
		r.Get("/children/{childID}/activities", s.handleGetActivities)
		r.Get("/children/{childID}/activities/latest", s.handleGetLatestActivity)
		r.Get("/children/{childID}/summary/{date}", s.handleGetDailySummary)
		r.Get("/sync/status", s.handleSyncStatus)
	})

	return router
}
