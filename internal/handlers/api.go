package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"district-dashboard/internal/errors"
	"district-dashboard/internal/observability"
	"district-dashboard/internal/services"
)

// The dataset never changes after load, so responses can be cached briefly.
var cacheHeaders = map[string]string{
	"Cache-Control": "public, max-age=300",
}

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(r.Context(), w, h.logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) HandleQuarters(w http.ResponseWriter, r *http.Request) {
	quarters, err := h.analytics.Quarters(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, quarters, cacheHeaders)
}

func (h *APIHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.analytics.Overview(r.Context(), r.URL.Query().Get("quarter"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, overview, cacheHeaders)
}

func (h *APIHandlers) HandleSubdivisions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	names, err := h.analytics.Search(r.Context(), q.Get("quarter"), q.Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, names, cacheHeaders)
}

// HandleSubdivision returns the detail for one subdivision, or the overview
// when the name is the ALL sentinel.
func (h *APIHandlers) HandleSubdivision(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	if name == "" {
		h.fail(w, r, errors.Validation("subdivision name is required"))
		return
	}
	if name == services.AllSubdivisions {
		h.HandleOverview(w, r)
		return
	}

	detail, err := h.analytics.Detail(r.Context(), r.URL.Query().Get("quarter"), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, detail, cacheHeaders)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
