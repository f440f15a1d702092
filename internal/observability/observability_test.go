package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"district-dashboard/internal/config"
)

func TestNewLogger_Formats(t *testing.T) {
	tests := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{"json", func(t *testing.T, out string) {
			var entry map[string]any
			if err := json.Unmarshal([]byte(out), &entry); err != nil {
				t.Fatalf("json output expected, got %q", out)
			}
			if entry["msg"] != "hello" {
				t.Errorf("msg = %v", entry["msg"])
			}
		}},
		{"text", func(t *testing.T, out string) {
			if !strings.Contains(out, "msg=hello") {
				t.Errorf("text output expected, got %q", out)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, config.LoggerConfig{Level: "info", Format: tt.format})
			logger.Info("hello")
			tt.check(t, buf.String())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" {
		t.Error("empty context should have no request id")
	}

	ctx = WithRequestID(ctx, "abc")
	if got := GetRequestID(ctx); got != "abc" {
		t.Errorf("GetRequestID() = %q, want abc", got)
	}

	var buf bytes.Buffer
	logger := newLogger(&buf, config.LoggerConfig{Level: "info", Format: "text"})
	LoggerFromContext(ctx, logger).Info("tagged")
	if !strings.Contains(buf.String(), "request_id=abc") {
		t.Errorf("expected request id in log, got %q", buf.String())
	}
}

func TestTracerProvider(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), config.TracingConfig{ServiceName: "test"})
	if err != nil {
		t.Fatalf("NewTracerProvider() error: %v", err)
	}
	defer tp.Shutdown(context.Background())

	ctx, span := StartSpan(context.Background(), "op")
	if !span.SpanContext().IsValid() {
		t.Error("span should have a valid context once a provider is installed")
	}
	_, child := StartSpan(ctx, "child")
	if child.SpanContext().TraceID() != span.SpanContext().TraceID() {
		t.Error("child span should share the parent trace id")
	}
	EndSpan(child, errors.New("boom"))
	EndSpan(span, nil)
}
