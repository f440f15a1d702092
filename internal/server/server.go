package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"district-dashboard/internal/errors"
	"district-dashboard/internal/handlers"
	"district-dashboard/internal/observability"
	"district-dashboard/internal/services"
)

type Server struct {
	router      chi.Router
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, dashboard http.Handler) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes(dashboard)
	return s
}

func (s *Server) setupRoutes(dashboard http.Handler) {
	r := s.router

	r.Method(http.MethodGet, "/", dashboard)
	r.Get("/health", s.apiHandlers.HandleHealth)
	r.Get("/admin/stats", s.apiHandlers.HandleStats)

	r.Route("/api", func(r chi.Router) {
		r.Get("/quarters", s.apiHandlers.HandleQuarters)
		r.Get("/overview", s.apiHandlers.HandleOverview)
		r.Get("/subdivisions", s.apiHandlers.HandleSubdivisions)
		r.Get("/subdivisions/{name}", s.apiHandlers.HandleSubdivision)
	})

	// Datastar SSE endpoints
	r.Route("/sse", func(r chi.Router) {
		r.Get("/overview", s.sseHandlers.HandleOverview)
		r.Get("/search", s.sseHandlers.HandleSearch)
		r.Get("/detail", s.sseHandlers.HandleDetail)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(r.Context(), w, s.logger, errors.NotFound("route not found"), observability.GetRequestID(r.Context()))
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
