package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alohawaii-travel/api/pkg/auth"
	"github.com/alohawaii-travel/api/pkg/observability"
	"github.com/alohawaii-travel/api/pkg/storage/postgres"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Database      postgres.Config
	Auth          AuthConfig
	SSO           SSOConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// AuthConfig holds the credential registry, session, and whitelist settings.
type AuthConfig struct {
	// APIKeys is parsed from ALOHAWAII_API_KEYS, a JSON array of
	// credentials with key, name, route_classes, and origins fields.
	APIKeys []auth.ServiceCredential
	// StrictOrigin turns origin mismatches into hard denials instead of
	// warnings.
	StrictOrigin bool
	// SessionSecret signs session tokens. Required.
	SessionSecret string
	// SessionTTL is clamped to the 30-day maximum at issuer construction.
	SessionTTL time.Duration
	// SessionIssuer is the iss claim on minted tokens.
	SessionIssuer string
	// AllowedDomains is the static part of the domain whitelist,
	// comma-separated. The domain_whitelist table extends it at runtime.
	AllowedDomains []string
	// SecureCookies marks session cookies Secure. Disable only for local
	// development over plain HTTP.
	SecureCookies bool
}

// SSOConfig holds the Google OIDC client registration.
type SSOConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// RateLimitConfig holds per-caller rate limit settings.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	apiKeys, err := parseAPIKeys(getEnv("ALOHAWAII_API_KEYS", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("ALOHAWAII_HOST", "0.0.0.0"),
			Port:            getEnv("ALOHAWAII_PORT", "8080"),
			ReadTimeout:     getEnvDuration("ALOHAWAII_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("ALOHAWAII_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("ALOHAWAII_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("ALOHAWAII_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("ALOHAWAII_HEALTH_PORT", "9090"),
		},
		Database: loadDatabaseConfig(),
		Auth: AuthConfig{
			APIKeys:        apiKeys,
			StrictOrigin:   getEnvBool("ALOHAWAII_STRICT_ORIGIN", false),
			SessionSecret:  getEnv("ALOHAWAII_SESSION_SECRET", ""),
			SessionTTL:     getEnvDuration("ALOHAWAII_SESSION_TTL", auth.DefaultSessionLifetime),
			SessionIssuer:  getEnv("ALOHAWAII_SESSION_ISSUER", "alohawaii-api"),
			AllowedDomains: splitCSV(getEnv("ALOHAWAII_ALLOWED_DOMAINS", "")),
			SecureCookies:  getEnvBool("ALOHAWAII_SECURE_COOKIES", true),
		},
		SSO: SSOConfig{
			GoogleClientID:     getEnv("ALOHAWAII_GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("ALOHAWAII_GOOGLE_CLIENT_SECRET", ""),
			GoogleRedirectURL:  getEnv("ALOHAWAII_GOOGLE_REDIRECT_URL", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvBool("ALOHAWAII_RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getEnvFloat("ALOHAWAII_RATE_LIMIT_RPS", 10),
			Burst:             getEnvInt("ALOHAWAII_RATE_LIMIT_BURST", 20),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(getEnv("ALOHAWAII_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("ALOHAWAII_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadDatabaseConfig() postgres.Config {
	cfg := postgres.DefaultConfig(getEnv("ALOHAWAII_POSTGRES_URL", ""))
	if maxConns := getEnvInt("ALOHAWAII_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns := getEnvInt("ALOHAWAII_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.MinConns = minConns
	}
	if timeout := getEnvDuration("ALOHAWAII_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.Timeout = timeout
	}
	return cfg
}

func parseAPIKeys(raw string) ([]auth.ServiceCredential, error) {
	if raw == "" {
		return nil, nil
	}
	var keys []auth.ServiceCredential
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, fmt.Errorf("ALOHAWAII_API_KEYS is not valid JSON: %w", err)
	}
	return keys, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("at least one API key is required")
	}
	for i, key := range c.Auth.APIKeys {
		if key.Key == "" {
			return fmt.Errorf("API key %d has an empty key", i)
		}
		if key.Name == "" {
			return fmt.Errorf("API key %d has an empty name", i)
		}
		if len(key.RouteClasses) == 0 {
			return fmt.Errorf("API key %q admits no route classes", key.Name)
		}
		for _, rc := range key.RouteClasses {
			if rc != auth.RouteClassInternal && rc != auth.RouteClassExternal {
				return fmt.Errorf("API key %q has unknown route class %q", key.Name, rc)
			}
		}
	}
	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("session secret is required")
	}
	if len(c.Auth.SessionSecret) < 32 {
		return fmt.Errorf("session secret must be at least 32 bytes")
	}
	if c.SSO.GoogleClientID == "" || c.SSO.GoogleClientSecret == "" {
		return fmt.Errorf("google OAuth client id and secret are required")
	}
	if c.SSO.GoogleRedirectURL == "" {
		return fmt.Errorf("google OAuth redirect URL is required")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit rps must be positive")
	}
	return nil
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
