package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Global singleton for packages that cannot take injected config.
var globalConfig *Config

// Config holds all environment backed configuration for the console API.
type Config struct {
	// HTTP Server
	HTTPPort    int `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort int `env:"METRICS_PORT" envDefault:"9091"`

	// PostgreSQL
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	// Session guard
	ConsoleUsername string        `env:"CONSOLE_USERNAME,notEmpty"`
	ConsolePassword string        `env:"CONSOLE_PASSWORD,notEmpty"`
	TokenSecret     string        `env:"TOKEN_SECRET,notEmpty"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	LoginMaxFails   int           `env:"LOGIN_MAX_FAILS" envDefault:"5"`
	LoginFailWindow time.Duration `env:"LOGIN_FAIL_WINDOW" envDefault:"10m"`

	// Upstream generation provider
	UpstreamBaseURL string        `env:"UPSTREAM_BASE_URL,notEmpty"`
	UpstreamAPIKey  string        `env:"UPSTREAM_API_KEY"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5m"`

	// Conversation store
	StoreBudgetBytes int64 `env:"STORE_BUDGET_BYTES" envDefault:"104857600"`

	// Model catalog
	ModelCatalogFile string `env:"MODEL_CATALOG_FILE"`

	// Observability / Logging
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders      string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	ServiceName      string `env:"SERVICE_NAME" envDefault:"console-api"`
	ServiceNamespace string `env:"SERVICE_NAMESPACE" envDefault:"genai"`
	Environment      string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load parses environment variables into Config and performs minimal validation.
// A local .env file is honoured when present so development setups need no
// exported shell state.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if _, err := url.ParseRequestURI(cfg.UpstreamBaseURL); err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_BASE_URL: %w", err)
	}

	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}

	if cfg.StoreBudgetBytes <= 0 {
		return nil, fmt.Errorf("STORE_BUDGET_BYTES must be positive, got %d", cfg.StoreBudgetBytes)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	globalConfig = cfg

	return cfg, nil
}

// GetGlobal returns the global config instance.
// Deprecated: Use dependency injection with Load() instead.
func GetGlobal() *Config {
	return globalConfig
}

var Version = "dev"

func IsDev() bool {
	return strings.HasPrefix(Version, "dev")
}
