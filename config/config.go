package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MinSigningSecretLength is the minimum accepted length of SERVICE_JWT_SECRET.
const MinSigningSecretLength = 32

// Config holds the application configuration
type Config struct {
	Port     string // Service port
	AppEnv   string // Deployment environment ("production" enables secure cookies)
	LogLevel string

	DatabaseURL         string        // Postgres DSN (system of record)
	DBMaxConnections    int32         // Pool size
	DBIdleTimeout       time.Duration // Idle connection lifetime
	DBConnectionTimeout time.Duration // Dial timeout

	RedisURL     string        // Empty selects the in-process cache
	RedisTimeout time.Duration // Per-command timeout

	SessionCookieName      string // Inbound session credential cookie
	ServiceTokenCookieName string // Outbound downstream credential cookie
	CookieDomain           string

	SessionCachePrefix string        // Key prefix for token-keyed entries
	SessionDBPrefix    string        // Key prefix for id-keyed entries
	CacheTTL           time.Duration // Session cache TTL

	ServiceTokenSecret string        // Secret for signing service JWTs
	ServiceTokenIssuer string        // JWT issuer claim
	ServiceTokenTTL    time.Duration // JWT token TTL
	SessionTTL         time.Duration // Lifetime of newly created sessions

	AuthSharedSecret string   // Shared secret for internal endpoints
	AllowedOrigins   []string // CORS origins allowed with credentials
}

// Production reports whether the service runs in the production environment.
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	env := &envReader{}
	config := &Config{
		Port:                   env.get("PORT", "4000"),
		AppEnv:                 env.get("APP_ENV", "development"),
		LogLevel:               env.get("LOG_LEVEL", "info"),
		DatabaseURL:            env.get("DATABASE_URL", ""),
		DBMaxConnections:       20,
		DBIdleTimeout:          30 * time.Second,
		DBConnectionTimeout:    5 * time.Second,
		RedisURL:               env.get("REDIS_URL", ""),
		RedisTimeout:           500 * time.Millisecond,
		SessionCookieName:      env.get("SESSION_COOKIE_NAME", "session_token"),
		ServiceTokenCookieName: env.get("SERVICE_TOKEN_COOKIE_NAME", "service_token"),
		CookieDomain:           env.get("COOKIE_DOMAIN", ""),
		SessionCachePrefix:     env.get("SESSION_CACHE_PREFIX", "session_cache:"),
		SessionDBPrefix:        env.get("SESSION_DB_PREFIX", "session:"),
		CacheTTL:               time.Hour, // Default 1 hour
		ServiceTokenSecret:     env.get("SERVICE_JWT_SECRET", ""),
		ServiceTokenIssuer:     env.get("SERVICE_JWT_ISSUER", "auth-bridge"),
		ServiceTokenTTL:        7 * 24 * time.Hour,
		SessionTTL:             7 * 24 * time.Hour,
		AuthSharedSecret:       env.get("AUTH_SHARED_SECRET", ""),
		AllowedOrigins:         splitList(env.get("ALLOWED_ORIGINS", "http://localhost:3000")),
	}
	if env.err != nil {
		return nil, env.err
	}

	if v := os.Getenv("DB_MAX_CONNECTIONS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_MAX_CONNECTIONS format: %w", err)
		}
		config.DBMaxConnections = int32(n)
	}

	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_TTL_SECONDS format: %w", err)
		}
		config.CacheTTL = time.Duration(seconds) * time.Second
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"DB_IDLE_TIMEOUT", &config.DBIdleTimeout},
		{"DB_CONNECTION_TIMEOUT", &config.DBConnectionTimeout},
		{"REDIS_TIMEOUT", &config.RedisTimeout},
		{"SERVICE_TOKEN_TTL", &config.ServiceTokenTTL},
		{"SESSION_TTL", &config.SessionTTL},
	}
	for _, d := range durations {
		raw := os.Getenv(d.key)
		if raw == "" {
			continue
		}
		duration, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s format: %w", d.key, err)
		}
		*d.dst = duration
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL cannot be empty")
	}

	if c.DBMaxConnections <= 0 {
		return fmt.Errorf("DB_MAX_CONNECTIONS must be positive")
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be positive")
	}

	if c.SessionCachePrefix == "" || c.SessionDBPrefix == "" {
		return fmt.Errorf("SESSION_CACHE_PREFIX and SESSION_DB_PREFIX cannot be empty")
	}

	if c.SessionCachePrefix == c.SessionDBPrefix {
		return fmt.Errorf("SESSION_CACHE_PREFIX and SESSION_DB_PREFIX must differ")
	}

	if c.ServiceTokenSecret == "" {
		return fmt.Errorf("SERVICE_JWT_SECRET cannot be empty")
	}

	if len(c.ServiceTokenSecret) < MinSigningSecretLength {
		return fmt.Errorf("SERVICE_JWT_SECRET must be at least %d bytes", MinSigningSecretLength)
	}

	if c.ServiceTokenTTL <= 0 || c.SessionTTL <= 0 {
		return fmt.Errorf("SERVICE_TOKEN_TTL and SESSION_TTL must be positive")
	}

	return nil
}

// envReader looks up variables for Load and keeps the first read failure.
type envReader struct {
	err error
}

func (r *envReader) get(key, fallback string) string {
	value, err := getEnv(key, fallback)
	if err != nil && r.err == nil {
		r.err = err
	}
	return value
}

// getEnv retrieves an environment variable or returns a fallback value.
// KEY_FILE takes precedence over KEY; a KEY_FILE that cannot be read is an error.
func getEnv(key, fallback string) (string, error) {
	if path := os.Getenv(key + "_FILE"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s_FILE: %w", key, err)
		}
		return strings.TrimSpace(string(content)), nil
	}

	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return fallback, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
