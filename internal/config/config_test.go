package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8084 {
		t.Errorf("Port = %d, want 8084", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", cfg.Server.ReadTimeout)
	}
	if cfg.Data.TargetCategory != "커피-음료" {
		t.Errorf("TargetCategory = %q", cfg.Data.TargetCategory)
	}
	if cfg.Data.SourceEncoding != "euc-kr" {
		t.Errorf("SourceEncoding = %q, want euc-kr", cfg.Data.SourceEncoding)
	}
	if len(cfg.Security.AllowedOrigins) != 1 || cfg.Security.AllowedOrigins[0] != "http://localhost:8084" {
		t.Errorf("AllowedOrigins = %v", cfg.Security.AllowedOrigins)
	}
	if cfg.Address() != "localhost:8084" {
		t.Errorf("Address() = %q", cfg.Address())
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_FILE", "/tmp/stores.csv")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Data.StoreFile != "/tmp/stores.csv" {
		t.Errorf("StoreFile = %q", cfg.Data.StoreFile)
	}
	if len(cfg.Security.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.Security.AllowedOrigins)
	}
}

func TestLoad_Encodings(t *testing.T) {
	for _, enc := range []string{"utf-8", "euc-kr", "cp949", "EUC-KR"} {
		t.Run(enc, func(t *testing.T) {
			t.Setenv("SOURCE_ENCODING", enc)
			t.Setenv("COORDINATE_ENCODING", enc)

			if _, err := Load(); err != nil {
				t.Errorf("Load() with encoding %q: %v", enc, err)
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"port out of range", "SERVER_PORT", "70000", "server port"},
		{"bad log level", "LOG_LEVEL", "verbose", "invalid log level"},
		{"bad log format", "LOG_FORMAT", "xml", "invalid log format"},
		{"bad encoding", "SOURCE_ENCODING", "latin1", "invalid encoding"},
		{"zero rps", "SECURITY_RATE_LIMIT_RPS", "0", "rate limit RPS"},
		{"unparsable port", "SERVER_PORT", "abc", "parse env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err, tt.wantErr)
			}
		})
	}
}
