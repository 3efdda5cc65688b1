// Package db opens the PostgreSQL connection used for bar storage.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// retryInterval is the wait between two connection attempts.
	retryInterval = 3 * time.Second
	// DefaultConnectTimeout bounds how long OpenDB keeps retrying.
	DefaultConnectTimeout = 60 * time.Second
)

// Config holds the PostgreSQL connection settings.
type Config struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     string
	SSLMode  string
}

// LoadConfigFromEnv reads DB_* variables. DB_PASS is accepted for DB_PASSWORD.
func LoadConfigFromEnv() Config {
	pass := os.Getenv("DB_PASSWORD")
	if pass == "" {
		pass = os.Getenv("DB_PASS")
	}
	return Config{
		User:     os.Getenv("DB_USER"),
		Password: pass,
		Name:     os.Getenv("DB_NAME"),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		SSLMode:  getEnv("DB_SSLMODE", "prefer"),
	}
}

// BuildDSN returns a postgres:// connection URL. The password is escaped so
// special characters survive.
func BuildDSN(cfg Config) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + cfg.Port,
		Path:     "/" + cfg.Name,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

// OpenPostgres opens a gorm connection without retrying.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

// ConnectWithRetry calls opener until it succeeds, timeout has elapsed or
// ctx is done.
func ConnectWithRetry(ctx context.Context, dsn string, timeout time.Duration, opener func(string) (*gorm.DB, error)) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		wait := min(retryInterval, remaining)
		slog.Warn("DB connect failed, retrying", "error", err, "retry_in", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("db connect aborted: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// OpenDB connects to PostgreSQL, retrying for DefaultConnectTimeout.
func OpenDB(ctx context.Context, cfg Config) (*gorm.DB, error) {
	db, err := ConnectWithRetry(ctx, BuildDSN(cfg), DefaultConnectTimeout, OpenPostgres)
	if err != nil {
		return nil, err
	}
	slog.Info("DB connection successful", "host", cfg.Host, "database", cfg.Name)
	return db, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
