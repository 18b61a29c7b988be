// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq queue and redis run lock.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetRunLockTTL() time.Duration
}

// ProviderConfig provides settings for the LinkedIn automation provider API.
type ProviderConfig interface {
	GetProviderAPIURL() string
	GetProviderAPIKey() string
	GetProviderTimeout() time.Duration
	GetProviderThrottle() time.Duration
}

// ReconcileConfig provides tuning for the lead upsert engine and acquisition paths.
type ReconcileConfig interface {
	GetIdentityBatchSize() int
	GetUpsertConcurrency() int
	GetUpsertBatchTimeout() time.Duration
	GetSearchPageSize() int
	GetMaxSearchPages() int
	GetReactionPostLimit() int
}

// MinIOConfig provides settings for the raw payload archive.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetArchiveBucket() string
	IsMinIOEnabled() bool
}

// SMTPConfig provides settings for failed-run alert emails.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetSMTPFrom() string
	GetAlertEmailTo() string
	IsAlertingEnabled() bool
}

// PhoneConfig provides the default region for phone normalisation.
type PhoneConfig interface {
	GetPhoneDefaultRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env               string
	HTTPAddr          string
	DatabaseURL       string
	MigrationsEnabled bool
	JWTAccessSecret   string
	CORSAllowAll      bool
	CORSOrigins       []string
	CORSAllowCreds    bool

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	RunLockTTL       time.Duration

	ProviderAPIURL   string
	ProviderAPIKey   string
	ProviderTimeout  time.Duration
	ProviderThrottle time.Duration

	IdentityBatchSize  int
	UpsertConcurrency  int
	UpsertBatchTimeout time.Duration
	SearchPageSize     int
	MaxSearchPages     int
	ReactionPostLimit  int

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool
	ArchiveBucket  string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	AlertEmailTo string

	PhoneDefaultRegion string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string           { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool     { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string     { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int      { return c.AsynqConcurrency }
func (c *Config) GetRunLockTTL() time.Duration  { return c.RunLockTTL }

// ProviderConfig implementation
func (c *Config) GetProviderAPIURL() string          { return c.ProviderAPIURL }
func (c *Config) GetProviderAPIKey() string          { return c.ProviderAPIKey }
func (c *Config) GetProviderTimeout() time.Duration  { return c.ProviderTimeout }
func (c *Config) GetProviderThrottle() time.Duration { return c.ProviderThrottle }

// ReconcileConfig implementation
func (c *Config) GetIdentityBatchSize() int             { return c.IdentityBatchSize }
func (c *Config) GetUpsertConcurrency() int             { return c.UpsertConcurrency }
func (c *Config) GetUpsertBatchTimeout() time.Duration  { return c.UpsertBatchTimeout }
func (c *Config) GetSearchPageSize() int                { return c.SearchPageSize }
func (c *Config) GetMaxSearchPages() int                { return c.MaxSearchPages }
func (c *Config) GetReactionPostLimit() int             { return c.ReactionPostLimit }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string  { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool      { return c.MinIOUseSSL }
func (c *Config) GetArchiveBucket() string  { return c.ArchiveBucket }
func (c *Config) IsMinIOEnabled() bool      { return c.MinIOEndpoint != "" }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string     { return c.SMTPHost }
func (c *Config) GetSMTPPort() int        { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string { return c.SMTPPassword }
func (c *Config) GetSMTPFrom() string     { return c.SMTPFrom }
func (c *Config) GetAlertEmailTo() string { return c.AlertEmailTo }
func (c *Config) IsAlertingEnabled() bool {
	return c.SMTPHost != "" && c.AlertEmailTo != ""
}

// PhoneConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:               getEnv("APP_ENV", "development"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		MigrationsEnabled: strings.EqualFold(getEnv("DB_MIGRATE", "true"), "true"),
		JWTAccessSecret:   getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:      corsAllowAll,
		CORSOrigins:       corsOrigins,
		CORSAllowCreds:    strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "workflows"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "4"), 4),
		RunLockTTL:       mustDuration(getEnv("RUN_LOCK_TTL", "30m"), 30*time.Minute),

		ProviderAPIURL:   strings.TrimRight(getEnv("PROVIDER_API_URL", ""), "/"),
		ProviderAPIKey:   getEnv("PROVIDER_API_KEY", ""),
		ProviderTimeout:  mustDuration(getEnv("PROVIDER_TIMEOUT", "30s"), 30*time.Second),
		ProviderThrottle: mustDuration(getEnv("PROVIDER_THROTTLE", "5s"), 5*time.Second),

		IdentityBatchSize:  mustInt(getEnv("IDENTITY_BATCH_SIZE", "20"), 20),
		UpsertConcurrency:  mustInt(getEnv("UPSERT_CONCURRENCY", "10"), 10),
		UpsertBatchTimeout: mustDuration(getEnv("UPSERT_BATCH_TIMEOUT", "10m"), 10*time.Minute),
		SearchPageSize:     mustInt(getEnv("SEARCH_PAGE_SIZE", "50"), 50),
		MaxSearchPages:     mustInt(getEnv("MAX_SEARCH_PAGES", "20"), 20),
		ReactionPostLimit:  mustInt(getEnv("REACTION_POST_LIMIT", "10"), 10),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:    strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		ArchiveBucket:  getEnv("PROVIDER_ARCHIVE_BUCKET", "provider-payloads"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     mustInt(getEnv("SMTP_PORT", "587"), 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		AlertEmailTo: getEnv("ALERT_EMAIL_TO", ""),

		PhoneDefaultRegion: strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "US")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.ProviderAPIURL == "" || cfg.ProviderAPIKey == "" {
		return nil, fmt.Errorf("PROVIDER_API_URL and PROVIDER_API_KEY are required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.IsAlertingEnabled() && cfg.SMTPFrom == "" {
		return nil, fmt.Errorf("SMTP_FROM is required when alerting is enabled")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func mustInt(value string, fallback int) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || result <= 0 {
		return fallback
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
