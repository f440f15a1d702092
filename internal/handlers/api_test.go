package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"

	"district-dashboard/internal/models"
	"district-dashboard/internal/schema"
	"district-dashboard/internal/services"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestAnalytics() *services.Analytics {
	s := &schema.Schema{Breakdowns: []schema.Dimension{{
		Name:  "sex",
		Title: "Sex",
		Entries: []schema.Entry{
			{Label: "Male", FootTraffic: "ft_m", Sales: "s_m"},
			{Label: "Female", FootTraffic: "ft_f", Sales: "s_f"},
		},
	}}}
	a := services.NewAnalytics(nil, s, quietLogger())
	a.SetDataset(&models.Dataset{
		Stores: []models.StoreRecord{
			{Quarter: "20231", Code: "100", Name: "역삼1동", Category: "커피-음료", StoreCount: 10},
			{Quarter: "20231", Code: "200", Name: "신사동", Category: "커피-음료", StoreCount: 4},
			{Quarter: "20224", Code: "100", Name: "역삼1동", Category: "커피-음료", StoreCount: 8},
		},
		FootTraffic: []models.FootTrafficRecord{
			{Quarter: "20231", Code: "100", Name: "역삼1동", Total: 5000, Values: map[string]float64{"ft_m": 2000, "ft_f": 3000}},
			{Quarter: "20231", Code: "200", Name: "신사동", Total: 700},
			{Quarter: "20224", Code: "100", Name: "역삼1동", Total: 4000},
		},
		Sales: []models.SalesRecord{
			{Quarter: "20231", Code: "100", Name: "역삼1동", Category: "커피-음료", Total: 1000000, Values: map[string]float64{"s_m": 400000, "s_f": 600000}},
			{Quarter: "20231", Code: "200", Name: "신사동", Category: "커피-음료", Total: 300},
			{Quarter: "20224", Code: "100", Name: "역삼1동", Category: "커피-음료", Total: 800},
		},
		Coordinates: []models.CoordinateRecord{
			{Code: "100", Name: "역삼1동", Lat: 37.49, Lon: 127.03},
		},
	})
	return a
}

func newTestRouter(h *APIHandlers) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/quarters", h.HandleQuarters)
	r.Get("/api/overview", h.HandleOverview)
	r.Get("/api/subdivisions", h.HandleSubdivisions)
	r.Get("/api/subdivisions/{name}", h.HandleSubdivision)
	r.Get("/health", h.HandleHealth)
	r.Get("/admin/stats", h.HandleStats)
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func doRequest(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	return w, env
}

func TestNewAPIHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	handlers := NewAPIHandlers(analytics, quietLogger())

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewAPIHandlers() should set analytics field")
	}
}

func TestAPIHandlers_HandleQuarters(t *testing.T) {
	router := newTestRouter(NewAPIHandlers(createTestAnalytics(), quietLogger()))

	w, env := doRequest(t, router, "/api/quarters")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=300" {
		t.Errorf("expected cache-control 'public, max-age=300', got %q", cc)
	}

	var quarters []models.Quarter
	if err := json.Unmarshal(env.Data, &quarters); err != nil {
		t.Fatal(err)
	}
	if len(quarters) != 2 || quarters[0].Label != "2023 Q1" {
		t.Errorf("unexpected quarters: %+v", quarters)
	}
}

func TestAPIHandlers_HandleOverview(t *testing.T) {
	router := newTestRouter(NewAPIHandlers(createTestAnalytics(), quietLogger()))

	w, env := doRequest(t, router, "/api/overview?quarter=20231")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", ct)
	}
	if !env.Success {
		t.Error("expected success=true in response")
	}

	var ov models.Overview
	if err := json.Unmarshal(env.Data, &ov); err != nil {
		t.Fatal(err)
	}
	if len(ov.Rows) != 2 || len(ov.MapPoints) != 1 {
		t.Errorf("rows=%d map points=%d, want 2 and 1", len(ov.Rows), len(ov.MapPoints))
	}
	if ov.Rankings.ByPerStoreSales[0].Value != 100000 {
		t.Errorf("top per-store sales = %v, want 100000", ov.Rankings.ByPerStoreSales[0].Value)
	}
}

func TestAPIHandlers_Errors(t *testing.T) {
	router := newTestRouter(NewAPIHandlers(createTestAnalytics(), quietLogger()))

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCode   string
	}{
		{"quarter without data", "/api/overview?quarter=20194", http.StatusNotFound, "EMPTY_RESULT_SET"},
		{"malformed quarter", "/api/overview?quarter=2023", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"subdivision not joined", "/api/subdivisions/" + url.PathEscape("없는동") + "?quarter=20231", http.StatusNotFound, "MISSING_SUBDIVISION_DATA"},
		{"sentinel with malformed quarter", "/api/subdivisions/ALL?quarter=x", http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doRequest(t, router, tt.target)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if env.Success || env.Error == nil {
				t.Fatal("expected error envelope")
			}
			if env.Error.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", env.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestAPIHandlers_HandleSubdivisions(t *testing.T) {
	router := newTestRouter(NewAPIHandlers(createTestAnalytics(), quietLogger()))

	_, env := doRequest(t, router, "/api/subdivisions?quarter=20231&q="+url.QueryEscape("역삼"))
	var names []string
	if err := json.Unmarshal(env.Data, &names); err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != services.AllSubdivisions || names[1] != "역삼1동" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestAPIHandlers_HandleSubdivision(t *testing.T) {
	router := newTestRouter(NewAPIHandlers(createTestAnalytics(), quietLogger()))

	w, env := doRequest(t, router, "/api/subdivisions/"+url.PathEscape("역삼1동")+"?quarter=20231")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var d models.Detail
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatal(err)
	}
	if d.Metrics.PerStoreSales != 100000 || len(d.Breakdowns) != 1 {
		t.Errorf("unexpected detail: %+v", d)
	}
	if d.Breakdowns[0].FootTraffic[1].Value != 3000 {
		t.Errorf("female foot traffic = %v, want 3000", d.Breakdowns[0].FootTraffic[1].Value)
	}

	// The sentinel selects the overview.
	_, env = doRequest(t, router, "/api/subdivisions/ALL")
	var ov models.Overview
	if err := json.Unmarshal(env.Data, &ov); err != nil {
		t.Fatal(err)
	}
	if ov.Quarter.Code != "20231" || len(ov.Rows) != 2 {
		t.Errorf("ALL should return the latest overview, got %+v", ov.Quarter)
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	router := newTestRouter(NewAPIHandlers(createTestAnalytics(), quietLogger()))

	w, env := doRequest(t, router, "/health")
	if w.Code != http.StatusOK || !env.Success {
		t.Errorf("health check failed: %d", w.Code)
	}
	var data map[string]string
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data["status"] != "healthy" {
		t.Errorf("status = %q", data["status"])
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	router := newTestRouter(NewAPIHandlers(createTestAnalytics(), quietLogger()))

	_, env := doRequest(t, router, "/admin/stats")
	var stats map[string]any
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatal(err)
	}
	if stats["loaded"] != true || stats["stores"] != float64(3) {
		t.Errorf("unexpected stats: %v", stats)
	}
}
