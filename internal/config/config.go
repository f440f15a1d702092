package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Logger   LoggerConfig
	Security SecurityConfig
	Tracing  TracingConfig
}

type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" envDefault:"localhost"`
	Port            int           `env:"SERVER_PORT" envDefault:"8084"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DataConfig points at the raw district exports. The city publishes the
// store, foot-traffic and sales files in EUC-KR.
type DataConfig struct {
	StoreFile          string        `env:"STORE_FILE" envDefault:"data/서울시 상권분석서비스(점포-행정동).csv"`
	FootTrafficFile    string        `env:"FOOT_TRAFFIC_FILE" envDefault:"data/서울시 상권분석서비스(길단위인구-행정동).csv"`
	SalesFile          string        `env:"SALES_FILE" envDefault:"data/서울시 상권분석서비스(추정매출-행정동).csv"`
	CoordinateFile     string        `env:"COORDINATE_FILE" envDefault:"data/행정구역별_위경도_좌표.csv"`
	SourceEncoding     string        `env:"SOURCE_ENCODING" envDefault:"euc-kr"`
	CoordinateEncoding string        `env:"COORDINATE_ENCODING" envDefault:"utf-8"`
	TargetCategory     string        `env:"TARGET_CATEGORY" envDefault:"커피-음료"`
	SchemaFile         string        `env:"SCHEMA_FILE"`
	CacheDir           string        `env:"CACHE_DIR" envDefault:".cache"`
	LoadTimeout        time.Duration `env:"DATA_LOAD_TIMEOUT" envDefault:"30s"`
}

type LoggerConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `env:"SECURITY_RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS    int      `env:"SECURITY_RATE_LIMIT_RPS" envDefault:"100"`
	RateLimitBurst  int      `env:"SECURITY_RATE_LIMIT_BURST" envDefault:"10"`
	AllowedOrigins  []string `env:"SECURITY_ALLOWED_ORIGINS" envDefault:"http://localhost:8084" envSeparator:","`
	TrustedProxies  []string `env:"SECURITY_TRUSTED_PROXIES" envDefault:"127.0.0.1" envSeparator:","`
}

// TracingConfig controls OpenTelemetry export. Spans are only exported when
// an OTLP endpoint is configured.
type TracingConfig struct {
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"district-dashboard"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	sources := map[string]string{
		"store":        c.Data.StoreFile,
		"foot traffic": c.Data.FootTrafficFile,
		"sales":        c.Data.SalesFile,
		"coordinate":   c.Data.CoordinateFile,
	}
	for name, path := range sources {
		if path == "" {
			return fmt.Errorf("%s file path cannot be empty", name)
		}
	}

	validEncodings := []string{"utf-8", "euc-kr", "cp949"}
	for _, enc := range []string{c.Data.SourceEncoding, c.Data.CoordinateEncoding} {
		if !slices.Contains(validEncodings, strings.ToLower(enc)) {
			return fmt.Errorf("invalid encoding %q, must be one of: %s", enc, strings.Join(validEncodings, ", "))
		}
	}

	if c.Data.TargetCategory == "" {
		return fmt.Errorf("target category cannot be empty")
	}

	if c.Data.LoadTimeout <= 0 {
		return fmt.Errorf("data load timeout must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
