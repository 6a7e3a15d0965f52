// Package config provides configuration loading for the Immoshift delivery tier.
// It handles environment variable parsing and provides default values for all settings.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// init loads environment variables from .env files during package initialization.
// godotenv.Load does not override variables already set, which keeps the
// precedence OS env > .env.local > .env.
func init() {
	// Load .env.local first so its values win over the shared .env
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env.local file: %v\n", err)
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}
}

// Config captures environment-driven settings for the site server and CLI.
type Config struct {
	Env  string // Deployment environment (dev, staging, prod)
	Port string // HTTP server port

	APIBaseURL   string        // Content API base URL, all fetch paths are relative to it
	MediaBaseURL string        // Origin prefixed to relative media paths (defaults to APIBaseURL)
	SiteURL      string        // Public site origin used for absolute sitemap locations
	HTTPTimeout  time.Duration // Per-request timeout for content API calls

	DatabaseDSN string // PostgreSQL DSN for the navigation-state store (memory when empty)
	NATSURL     string // NATS server URL for lead events (noop when empty)

	S3Endpoint  string // S3-compatible endpoint for the placeholder cache
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	FormSecret         string        // HMAC key for lead form tokens
	NavStateTTL        time.Duration // Lifetime of a thank-you navigation state
	InlinePlaceholders bool          // Embed placeholders as data URIs instead of linking /placeholder.png
	Tracing            bool          // Export otel spans to stdout
}

// Default configuration values used when environment variables are not set
const (
	defaultPort        = "8080"
	defaultEnv         = "dev"
	defaultS3Region    = "eu-west-3"
	defaultHTTPTimeout = 10 * time.Second
	defaultNavStateTTL = 30 * time.Minute
	devFormSecret      = "immoshift-dev-form-secret"
)

// Load reads environment variables and produces a Config suitable for wiring the service.
// Returns an error if required parameters are missing or invalid.
func Load() (Config, error) {
	cfg := Config{
		Env:         getEnv("IMMO_ENV", defaultEnv),
		Port:        getEnv("IMMO_PORT", defaultPort),
		APIBaseURL:  strings.TrimRight(os.Getenv("IMMO_API_BASE_URL"), "/"),
		DatabaseDSN: os.Getenv("IMMO_DB_DSN"),
		NATSURL:     os.Getenv("IMMO_NATS_URL"),
		S3Endpoint:  os.Getenv("IMMO_S3_ENDPOINT"),
		S3Region:    getEnv("IMMO_S3_REGION", defaultS3Region),
		S3Bucket:    os.Getenv("IMMO_S3_BUCKET"),
		S3AccessKey: os.Getenv("IMMO_S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("IMMO_S3_SECRET_KEY"),
		FormSecret:  os.Getenv("IMMO_FORM_SECRET"),
		HTTPTimeout: defaultHTTPTimeout,
		NavStateTTL: defaultNavStateTTL,
	}

	cfg.MediaBaseURL = strings.TrimRight(getEnv("IMMO_MEDIA_BASE_URL", cfg.APIBaseURL), "/")
	cfg.SiteURL = strings.TrimRight(getEnv("IMMO_SITE_URL", "http://localhost:"+cfg.Port), "/")

	if v, exists := lookupEnv("IMMO_HTTP_TIMEOUT"); exists {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("IMMO_HTTP_TIMEOUT: invalid duration %q", v)
		}
		cfg.HTTPTimeout = d
	}

	if v, exists := lookupEnv("IMMO_NAV_STATE_TTL"); exists {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("IMMO_NAV_STATE_TTL: invalid duration %q", v)
		}
		cfg.NavStateTTL = d
	}

	if v, exists := lookupEnv("IMMO_INLINE_PLACEHOLDERS"); exists {
		cfg.InlinePlaceholders = parseBool(v)
	}
	if v, exists := lookupEnv("IMMO_TRACING"); exists {
		cfg.Tracing = parseBool(v)
	}

	// Validate required parameters
	if cfg.APIBaseURL == "" {
		return cfg, fmt.Errorf("IMMO_API_BASE_URL is required")
	}
	if err := requireAbsolute("IMMO_API_BASE_URL", cfg.APIBaseURL); err != nil {
		return cfg, err
	}
	if err := requireAbsolute("IMMO_MEDIA_BASE_URL", cfg.MediaBaseURL); err != nil {
		return cfg, err
	}

	if cfg.FormSecret == "" {
		if cfg.Env != "dev" {
			return cfg, fmt.Errorf("IMMO_FORM_SECRET is required when IMMO_ENV=%s", cfg.Env)
		}
		cfg.FormSecret = devFormSecret
	}

	return cfg, nil
}

// S3Enabled reports whether the placeholder cache should be backed by S3.
func (c Config) S3Enabled() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}

// requireAbsolute rejects values that are not absolute http(s) URLs.
func requireAbsolute(key, v string) error {
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", key, v)
	}
	return nil
}

// lookupEnv is os.LookupEnv that treats an empty value as unset
func lookupEnv(key string) (string, bool) {
	v, exists := os.LookupEnv(key)
	return v, exists && v != ""
}

// getEnv retrieves an environment variable value, returning a fallback if not set or empty
func getEnv(key, fallback string) string {
	if v, exists := lookupEnv(key); exists {
		return v
	}
	return fallback
}

// parseBool converts a string to a boolean value, returning false if parsing fails
func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}
