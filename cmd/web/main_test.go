package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"district-dashboard/internal/config"
	"district-dashboard/internal/middleware"
	"district-dashboard/internal/models"
	"district-dashboard/internal/services"
	"district-dashboard/internal/source"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAnalytics() *services.Analytics {
	a := services.NewAnalytics(nil, nil, quietLogger())
	a.SetDataset(&models.Dataset{
		Stores: []models.StoreRecord{
			{Quarter: "20231", Code: "1168064000", Name: "역삼1동", Category: "커피-음료", StoreCount: 120},
			{Quarter: "20231", Code: "1168051000", Name: "신사동", Category: "커피-음료", StoreCount: 0},
		},
		FootTraffic: []models.FootTrafficRecord{
			{Quarter: "20231", Code: "1168064000", Name: "역삼1동", Total: 900000, Values: map[string]float64{"남성_유동인구_수": 500000, "여성_유동인구_수": 400000}},
			{Quarter: "20231", Code: "1168051000", Name: "신사동", Total: 300000},
		},
		Sales: []models.SalesRecord{
			{Quarter: "20231", Code: "1168064000", Name: "역삼1동", Category: "커피-음료", Total: 2400000000},
			{Quarter: "20231", Code: "1168051000", Name: "신사동", Category: "커피-음료", Total: 1000},
		},
		Coordinates: []models.CoordinateRecord{
			{Name: "역삼1동", Lat: 37.495, Lon: 127.033},
		},
	})
	return a
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{Security: config.SecurityConfig{
		AllowedOrigins: []string{"http://localhost:8084"},
	}}
	return newHandler(cfg, newTestAnalytics(), middleware.NewRateLimiter(cfg.Security), quietLogger())
}

func TestServer_Routes(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		path       string
		wantStatus int
		wantType   string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/health", http.StatusOK, "application/json"},
		{"/admin/stats", http.StatusOK, "application/json"},
		{"/api/quarters", http.StatusOK, "application/json"},
		{"/api/overview", http.StatusOK, "application/json"},
		{"/api/subdivisions?q=%EB%8F%99", http.StatusOK, "application/json"},
		{"/api/subdivisions/ALL", http.StatusOK, "application/json"},
		{"/sse/overview", http.StatusOK, "text/event-stream"},
		{"/sse/search", http.StatusOK, "text/event-stream"},
		{"/sse/detail", http.StatusOK, "text/event-stream"},
		{"/nope", http.StatusNotFound, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.RemoteAddr = "192.0.2.1:1234"
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, tt.wantType) {
				t.Errorf("content type = %q, want %q", ct, tt.wantType)
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
		})
	}
}

func TestServer_DetailUsesDefaultSchema(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/subdivisions/%EC%97%AD%EC%82%BC1%EB%8F%99", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data models.Detail `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Name != "역삼1동" || resp.Data.Metrics.PerStoreSales != 20000000 {
		t.Errorf("unexpected detail: %+v", resp.Data.Metrics)
	}
	if len(resp.Data.Breakdowns) != 4 {
		t.Fatalf("expected age, sex, time and weekday breakdowns, got %d", len(resp.Data.Breakdowns))
	}
	for _, b := range resp.Data.Breakdowns {
		if b.Dimension == "sex" && b.FootTraffic[0].Value != 500000 {
			t.Errorf("male foot traffic = %v", b.FootTraffic[0].Value)
		}
	}
}

func TestServer_Dashboard(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	body := w.Body.String()
	for _, want := range []string{"<!DOCTYPE html>", dashboardTitle, `<option value="20231">2023 Q1</option>`} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard should contain %q", want)
		}
	}
	if w.Header().Get("Cache-Control") != cacheMaxAge {
		t.Errorf("cache control = %q", w.Header().Get("Cache-Control"))
	}
	if w.Header().Get("Content-Security-Policy") == "" {
		t.Error("security headers missing")
	}
}

func TestRun_DataSourceUnavailable(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 0},
		Data: config.DataConfig{
			StoreFile:       filepath.Join(dir, "missing-stores.csv"),
			FootTrafficFile: filepath.Join(dir, "missing-traffic.csv"),
			SalesFile:       filepath.Join(dir, "missing-sales.csv"),
			CoordinateFile:  filepath.Join(dir, "missing-coords.csv"),
			SourceEncoding:  "utf-8",
			TargetCategory:  "커피-음료",
			LoadTimeout:     5 * time.Second,
		},
		Tracing: config.TracingConfig{ServiceName: "test"},
	}

	err := run(context.Background(), cfg, quietLogger())
	if !errors.Is(err, source.ErrDataSourceUnavailable) {
		t.Fatalf("expected ErrDataSourceUnavailable, got %v", err)
	}
	var ue *source.UnavailableError
	if !errors.As(err, &ue) || !errors.Is(ue.Err, os.ErrNotExist) {
		t.Errorf("error should name a missing file: %v", err)
	}
}
