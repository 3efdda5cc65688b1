// Package config assembles the process configuration from the environment,
// an optional .env file and the YAML symbol list.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"stock_etl/internal/platform/db"
	"stock_etl/internal/platform/externalapi/alphavantage"
	"stock_etl/internal/platform/redis"
)

var (
	// ErrMissingAPIKey is returned when no Alpha Vantage key is configured.
	ErrMissingAPIKey = errors.New("ALPHAVANTAGE_API_KEY is not set")
	// ErrMissingDatabase is returned when DB_NAME or DB_USER is empty.
	ErrMissingDatabase = errors.New("DB_NAME and DB_USER must be set")
	// ErrUnknownBackend is returned for a WATERMARK_BACKEND other than file or redis.
	ErrUnknownBackend = errors.New("unknown watermark backend")
)

// Watermark backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

const (
	DefaultCDCPath           = "cdc_/last_cdc.json"
	DefaultBackfillCallDelay = 13 * time.Second
	DefaultCallsPerMinute    = 5
	DefaultSymbolsFile       = "configs/symbols.yaml"
	DefaultPort              = "8080"
)

// Config is built once in main and passed down.
type Config struct {
	AlphaVantage alphavantage.Config
	DB           db.Config
	Redis        redis.Config

	CDCPath           string
	WatermarkBackend  string
	BackfillCallDelay time.Duration
	CallsPerMinute    int
	SymbolsFile       string

	LogLevel  string
	LogFormat string
	Port      string
}

// Load reads envFile if it exists, then the environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	delay, err := durationEnv("BACKFILL_CALL_DELAY", DefaultBackfillCallDelay)
	if err != nil {
		return Config{}, err
	}
	perMinute, err := intEnv("ALPHAVANTAGE_CALLS_PER_MINUTE", DefaultCallsPerMinute)
	if err != nil {
		return Config{}, err
	}

	return Config{
		AlphaVantage:      alphavantage.LoadConfig(),
		DB:                db.LoadConfigFromEnv(),
		Redis:             redis.LoadConfig(),
		CDCPath:           getEnv("CDC_PATH", DefaultCDCPath),
		WatermarkBackend:  strings.ToLower(getEnv("WATERMARK_BACKEND", BackendFile)),
		BackfillCallDelay: delay,
		CallsPerMinute:    perMinute,
		SymbolsFile:       getEnv("SYMBOLS_FILE", DefaultSymbolsFile),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		Port:              getEnv("PORT", DefaultPort),
	}, nil
}

// RequireAPIKey fails when the provider key is missing.
func (c Config) RequireAPIKey() error {
	if c.AlphaVantage.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// RequireDatabase fails when the database is not configured.
func (c Config) RequireDatabase() error {
	if c.DB.Name == "" || c.DB.User == "" {
		return ErrMissingDatabase
	}
	return nil
}

// ValidateWatermark checks the backend choice and that Redis is configured when selected.
func (c Config) ValidateWatermark() error {
	switch c.WatermarkBackend {
	case BackendFile:
		return nil
	case BackendRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("%w: redis selected but REDIS_HOST is empty", ErrUnknownBackend)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.WatermarkBackend)
	}
}

// Validate checks everything an ingestion run needs before any I/O happens.
func (c Config) Validate() error {
	return errors.Join(c.RequireAPIKey(), c.RequireDatabase(), c.ValidateWatermark())
}

// symbolsFile is the layout of the symbol universe YAML.
type symbolsFile struct {
	Symbols []string `yaml:"symbols"`
}

// LoadSymbols reads the symbol list. Blank and duplicate entries are dropped
// and symbols are upper-cased.
func LoadSymbols(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read symbols: %w", err)
	}
	var f symbolsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse symbols %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(f.Symbols))
	out := make([]string, 0, len(f.Symbols))
	for _, s := range f.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			slog.Warn("duplicate symbol ignored", "symbol", s, "file", path)
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no symbols in %s", path)
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// durationEnv accepts Go durations ("13s") or plain seconds ("13").
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	return time.Duration(secs) * time.Second, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	return n, nil
}
