// Package config loads dashboard settings from flags, the environment and
// an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wkalidev/b2s-analytics-dashboard/internal/dashboard"
	"github.com/wkalidev/b2s-analytics-dashboard/internal/domain"
)

// Environment variables read as flag defaults.
const (
	EnvContractAddress = "B2S_CONTRACT_ADDRESS"
	EnvAPIEndpoint     = "B2S_API_ENDPOINT"
	EnvRefreshInterval = "B2S_REFRESH_INTERVAL"
	EnvTheme           = "B2S_THEME"
	EnvPostgresDSN     = "POSTGRES_DSN"
	EnvClickhouseDSN   = "CLICKHOUSE_DSN"
	EnvHTTPAddr        = "HTTP_ADDR"
	EnvLogLevel        = "LOG_LEVEL"
)

// SourceKind selects the data source implementation.
type SourceKind string

const (
	SourceStatic SourceKind = "static"
	SourceAPI    SourceKind = "api"
)

// ErrInvalid is returned for unusable settings.
var ErrInvalid = errors.New("invalid config")

// Config is the process configuration.
type Config struct {
	Dashboard domain.DashboardConfig
	Source    SourceKind

	// FetchTimeout bounds one fetch; 0 means the refresh interval.
	FetchTimeout time.Duration

	// SourceRetries is the API source's retry budget per fetch; 0 fails on the first error.
	SourceRetries int

	UseMemory     bool
	PostgresDSN   string
	ClickhouseDSN string // optional; history is served from Postgres without it

	HTTPAddr string
	LogLevel logrus.Level
}

// Parse reads flags from args with defaults taken from getenv.
func Parse(args []string, getenv func(string) string) (*Config, error) {
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	defaultInterval := domain.DefaultRefreshInterval
	if v := getenv(EnvRefreshInterval); v != "" {
		d, err := ParseInterval(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, EnvRefreshInterval, err)
		}
		defaultInterval = d
	}

	contract := fs.String("contract", getenv(EnvContractAddress), "Token contract address")
	endpoint := fs.String("api-endpoint", envOr(getenv, EnvAPIEndpoint, domain.DefaultAPIEndpoint), "Analytics API base URL")
	interval := fs.Duration("refresh-interval", defaultInterval, "Metrics refresh interval")
	theme := fs.String("theme", envOr(getenv, EnvTheme, string(domain.DefaultTheme)), "Color theme (light, dark)")
	sourceKind := fs.String("source", string(SourceStatic), "Data source (static, api)")
	fetchTimeout := fs.Duration("fetch-timeout", 0, "Timeout of a single fetch (0 = refresh interval)")
	sourceRetries := fs.Int("source-retries", 0, "Retries per fetch for the api source")
	useMemory := fs.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	postgresDSN := fs.String("postgres-dsn", getenv(EnvPostgresDSN), "PostgreSQL connection string")
	clickhouseDSN := fs.String("clickhouse-dsn", getenv(EnvClickhouseDSN), "ClickHouse connection string")
	httpAddr := fs.String("http-addr", envOr(getenv, EnvHTTPAddr, ":8080"), "HTTP listen address")
	logLevel := fs.String("log-level", envOr(getenv, EnvLogLevel, "info"), "Log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	cfg := &Config{
		Dashboard: domain.DashboardConfig{
			ContractAddress: strings.TrimSpace(*contract),
			APIEndpoint:     strings.TrimSpace(*endpoint),
			RefreshInterval: *interval,
			Theme:           domain.Theme(strings.ToLower(*theme)),
		}.WithDefaults(),
		Source:        SourceKind(strings.ToLower(*sourceKind)),
		FetchTimeout:  *fetchTimeout,
		SourceRetries: *sourceRetries,
		UseMemory:     *useMemory,
		PostgresDSN:   *postgresDSN,
		ClickhouseDSN: *clickhouseDSN,
		HTTPAddr:      *httpAddr,
		LogLevel:      level,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := dashboard.Validate(c.Dashboard); err != nil {
		return err
	}
	switch c.Source {
	case SourceStatic, SourceAPI:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalid, c.Source)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("%w: fetch timeout must not be negative", ErrInvalid)
	}
	if c.SourceRetries < 0 {
		return fmt.Errorf("%w: source retries must not be negative", ErrInvalid)
	}
	if !c.UseMemory && c.PostgresDSN == "" {
		return fmt.Errorf("%w: --postgres-dsn is required (use --use-memory for in-memory storage)", ErrInvalid)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("%w: --http-addr is required", ErrInvalid)
	}
	return nil
}

// ParseInterval accepts a Go duration ("30s") or plain milliseconds ("30000").
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// LoadEnvFile loads KEY=VALUE lines from path into the process environment.
// Existing variables are never overridden; a missing file is not an error.
func LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read env file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}
