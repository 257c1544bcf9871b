package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config is the process configuration read from the environment
type Config struct {
	Port     string
	AppURL   string
	LogLevel zerolog.Level

	MongoURI      string
	MongoDatabase string
	RedisURL      string

	EncryptionKey string

	ProviderSecret        string
	MarketplaceAPIURL     string
	MarketplaceTimeout    time.Duration
	MarketplaceRatePerSec float64

	SnapshotServiceURL  string
	BillingServiceURL   string
	CollaboratorTimeout time.Duration

	SignatureMaxSkew time.Duration
	ReplayTTL        time.Duration

	ActivationScripts  []string
	CORSAllowedOrigins []string
}

// Load reads the configuration and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		AppURL:                strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
		MongoURI:              os.Getenv("MONGODB_URI"),
		MongoDatabase:         getEnv("MONGODB_DATABASE", "marketplace_integration"),
		RedisURL:              os.Getenv("REDIS_URL"),
		EncryptionKey:         os.Getenv("ENCRYPTION_KEY"),
		ProviderSecret:        os.Getenv("MARKETPLACE_PROVIDER_SECRET"),
		MarketplaceAPIURL:     os.Getenv("MARKETPLACE_API_URL"),
		MarketplaceRatePerSec: getEnvFloat("MARKETPLACE_RATE_LIMIT_PER_SEC", 0),
		SnapshotServiceURL:    os.Getenv("SNAPSHOT_SERVICE_URL"),
		BillingServiceURL:     os.Getenv("BILLING_SERVICE_URL"),
		ActivationScripts:     splitCSV(os.Getenv("ACTIVATION_SCRIPTS")),
		CORSAllowedOrigins:    splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	level, err := zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	durations := []struct {
		key    string
		def    string
		target *time.Duration
	}{
		{"MARKETPLACE_TIMEOUT", "10s", &cfg.MarketplaceTimeout},
		{"COLLABORATOR_TIMEOUT", "10s", &cfg.CollaboratorTimeout},
		{"SIGNATURE_MAX_SKEW", "10m", &cfg.SignatureMaxSkew},
		{"REPLAY_TTL", "24h", &cfg.ReplayTTL},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.target = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []string
	if c.EncryptionKey == "" {
		errs = append(errs, "ENCRYPTION_KEY is required")
	}
	if c.ProviderSecret == "" {
		errs = append(errs, "MARKETPLACE_PROVIDER_SECRET is required")
	}
	for key, value := range map[string]string{
		"APP_URL":              c.AppURL,
		"MARKETPLACE_API_URL":  c.MarketplaceAPIURL,
		"SNAPSHOT_SERVICE_URL": c.SnapshotServiceURL,
		"BILLING_SERVICE_URL":  c.BillingServiceURL,
	} {
		if !isAbsoluteURL(value) {
			errs = append(errs, key+" must be an absolute http(s) URL")
		}
	}
	if c.MarketplaceTimeout <= 0 {
		errs = append(errs, "MARKETPLACE_TIMEOUT must be > 0")
	}
	if c.CollaboratorTimeout <= 0 {
		errs = append(errs, "COLLABORATOR_TIMEOUT must be > 0")
	}
	if c.SignatureMaxSkew < 0 {
		errs = append(errs, "SIGNATURE_MAX_SKEW must be >= 0")
	}
	if c.ReplayTTL <= 0 {
		errs = append(errs, "REPLAY_TTL must be > 0")
	}
	if c.MarketplaceRatePerSec < 0 {
		errs = append(errs, "MARKETPLACE_RATE_LIMIT_PER_SEC must be >= 0")
	}
	if len(errs) > 0 {
		slices.Sort(errs)
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
