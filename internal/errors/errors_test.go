package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"district-dashboard/internal/services"
	"district-dashboard/internal/source"
)

func TestFromDomain(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   ErrorCode
		wantStatus int
	}{
		{"empty quarter", services.ErrEmptyResultSet, CodeEmptyResult, http.StatusNotFound},
		{"missing subdivision", fmt.Errorf("%w: 역삼1동", services.ErrMissingSubdivisionData), CodeMissingSubdivision, http.StatusNotFound},
		{"invalid quarter", fmt.Errorf("%w: %q", services.ErrInvalidQuarter, "x"), CodeValidation, http.StatusBadRequest},
		{"unavailable", &source.UnavailableError{Source: source.SourceSales, Path: "s.csv", Err: stderrors.New("boom")}, CodeDataSourceUnavailable, http.StatusServiceUnavailable},
		{"unknown", stderrors.New("boom"), CodeInternal, http.StatusInternalServerError},
		{"app error", RateLimit("slow down"), CodeRateLimit, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromDomain(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", got.Code, tt.wantCode)
			}
			if got.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestFromDomain_UnavailableNamesSource(t *testing.T) {
	err := fmt.Errorf("load: %w", &source.UnavailableError{Source: source.SourceCoordinates, Err: stderrors.New("gone")})
	got := FromDomain(err)
	if got.Details != source.SourceCoordinates {
		t.Errorf("Details = %q, want %q", got.Details, source.SourceCoordinates)
	}
	if !stderrors.Is(got, source.ErrDataSourceUnavailable) {
		t.Error("AppError should unwrap to the domain error")
	}
}

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := httptest.NewRecorder()

	WriteError(context.Background(), w, logger, services.ErrEmptyResultSet, "req-1")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success {
		t.Error("success should be false")
	}
	if resp.Error.Code != CodeEmptyResult || resp.Error.RequestID != "req-1" {
		t.Errorf("unexpected envelope: %+v", resp.Error)
	}
}

func TestWriteSuccessWithHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessWithHeaders(w, []string{"a"}, map[string]string{"Cache-Control": "max-age=60"})

	if w.Header().Get("Cache-Control") != "max-age=60" {
		t.Error("header not set")
	}
	var resp SuccessResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Error("success should be true")
	}
}
