package workspace

import (
	"fmt"
	"net/mail"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/teemow/workspacekit/internal/batch"
	"github.com/teemow/workspacekit/internal/provider"
)

// Config holds the settings shared by all four services.
type Config struct {
	// Account selects the stored OAuth token (default: default)
	Account string

	// TimeZone is the IANA name relative dates and timestamps use.
	// Empty or "Local" means the process location.
	TimeZone string

	// Concurrency is the fan-out window of the async façades (default: 10, max: 20)
	Concurrency int

	// RateLimit is the sustained request rate per second (default: 10)
	RateLimit float64

	// RateBurst is the number of requests allowed above the rate (default: 5)
	RateBurst int

	// MaxInFlight caps concurrently executing HTTP requests (default: 20)
	MaxInFlight int

	// SelfEmail is the authenticated user's address. When empty Gmail looks
	// it up on the first reply.
	SelfEmail string
}

var accountPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// DefaultConfig returns a Config with defaults overridden by environment variables.
func DefaultConfig() Config {
	return Config{
		Account:     getEnvOrDefault("WORKSPACE_ACCOUNT", "default"),
		TimeZone:    getEnvOrDefault("WORKSPACE_TIMEZONE", "Local"),
		Concurrency: getEnvIntOrDefault("WORKSPACE_CONCURRENCY", batch.DefaultConcurrency),
		RateLimit:   getEnvFloatOrDefault("WORKSPACE_RATE_LIMIT", provider.DefaultRateLimit),
		RateBurst:   getEnvIntOrDefault("WORKSPACE_RATE_BURST", provider.DefaultRateBurst),
		MaxInFlight: getEnvIntOrDefault("WORKSPACE_MAX_INFLIGHT", provider.DefaultMaxInFlight),
		SelfEmail:   getEnvOrDefault("WORKSPACE_SELF_EMAIL", ""),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !accountPattern.MatchString(c.Account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, hyphen and underscore are allowed", c.Account)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Concurrency < 1 || c.Concurrency > batch.MaxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d, got %d", batch.MaxConcurrency, c.Concurrency)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %g", c.RateLimit)
	}
	if c.RateBurst < 1 {
		return fmt.Errorf("rate burst must be at least 1, got %d", c.RateBurst)
	}
	if c.MaxInFlight < 1 {
		return fmt.Errorf("max in-flight requests must be at least 1, got %d", c.MaxInFlight)
	}
	if c.SelfEmail != "" {
		if _, err := mail.ParseAddress(c.SelfEmail); err != nil {
			return fmt.Errorf("invalid self email %q: %w", c.SelfEmail, err)
		}
	}
	return nil
}

// Location resolves TimeZone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
