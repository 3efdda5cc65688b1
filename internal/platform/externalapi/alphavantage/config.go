// Package alphavantage provides a client for the Alpha Vantage intraday time series API.
package alphavantage

import (
	"os"
	"time"
)

const (
	// DefaultBaseURL is the public Alpha Vantage endpoint.
	DefaultBaseURL = "https://www.alphavantage.co"
	// DefaultMaxAttempts is the number of tries per request on transport failures.
	DefaultMaxAttempts = 3
	// DefaultRetryWait is the fixed wait between two tries.
	DefaultRetryWait = 2 * time.Second
)

// Config holds configuration for the Alpha Vantage API client.
type Config struct {
	APIKey      string        // API key for authentication
	BaseURL     string        // Base URL for the API (e.g., "https://www.alphavantage.co")
	Timeout     time.Duration // HTTP request timeout
	MaxAttempts int           // tries per request, including the first
	RetryWait   time.Duration // fixed backoff between tries
}

// LoadConfig loads Alpha Vantage configuration from environment variables.
func LoadConfig() Config {
	key := os.Getenv("ALPHAVANTAGE_API_KEY")
	if key == "" {
		key = os.Getenv("alphavantage_API_KEY")
	}
	base := os.Getenv("ALPHAVANTAGE_BASE_URL")
	if base == "" {
		base = DefaultBaseURL
	}
	return Config{
		APIKey:      key,
		BaseURL:     base,
		Timeout:     30 * time.Second,
		MaxAttempts: DefaultMaxAttempts,
		RetryWait:   DefaultRetryWait,
	}
}
