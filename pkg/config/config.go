// Package config loads service configuration from environment variables,
// with an optional YAML file overlay for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	// HTTP server
	ListenAddr      string        `yaml:"listen_addr"`
	HealthAddr      string        `yaml:"health_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Database
	DatabaseURL string `yaml:"database_url"`

	// Cache
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	CacheMaxItems int           `yaml:"cache_max_items"`

	// Hierarchy catalog sources
	CatalogURL             string        `yaml:"catalog_url"`
	AliasesURL             string        `yaml:"aliases_url"`
	CatalogFile            string        `yaml:"catalog_file"`
	AliasesFile            string        `yaml:"aliases_file"`
	CatalogRefreshInterval time.Duration `yaml:"catalog_refresh_interval"`
	CatalogRefreshCron     string        `yaml:"catalog_refresh_cron"`

	// Identity
	OIDCIssuerURL  string `yaml:"oidc_issuer_url"`
	OIDCClientID   string `yaml:"oidc_client_id"`
	AdminGroup     string `yaml:"admin_group"`
	DevAuthHeaders bool   `yaml:"dev_auth_headers"`

	// Access resolution
	ResolverScanLimit int           `yaml:"resolver_scan_limit"`
	ResolverCacheTTL  time.Duration `yaml:"resolver_cache_ttl"`

	// Attachments
	S3Bucket       string `yaml:"s3_bucket"`
	S3Region       string `yaml:"s3_region"`
	S3Endpoint     string `yaml:"s3_endpoint"`
	S3AccessKey    string `yaml:"s3_access_key"`
	S3SecretKey    string `yaml:"s3_secret_key"`
	S3UsePathStyle bool   `yaml:"s3_use_path_style"`

	// Observability
	LogLevel           string `yaml:"log_level"`
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
}

// Load reads configuration from the environment. When SAFETYPULSE_CONFIG_FILE
// points at a YAML file, its values are loaded first and environment
// variables override them.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("SAFETYPULSE_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ListenAddr = getEnv("SAFETYPULSE_LISTEN_ADDR", cfg.ListenAddr)
	cfg.HealthAddr = getEnv("SAFETYPULSE_HEALTH_ADDR", cfg.HealthAddr)
	cfg.ShutdownTimeout = getEnvDuration("SAFETYPULSE_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	cfg.DatabaseURL = getEnv("SAFETYPULSE_DATABASE_URL", cfg.DatabaseURL)

	cfg.RedisAddr = getEnv("SAFETYPULSE_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("SAFETYPULSE_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("SAFETYPULSE_REDIS_DB", cfg.RedisDB)
	cfg.CacheTTL = getEnvDuration("SAFETYPULSE_CACHE_TTL", cfg.CacheTTL)
	cfg.CacheMaxItems = getEnvInt("SAFETYPULSE_CACHE_MAX_ITEMS", cfg.CacheMaxItems)

	cfg.CatalogURL = getEnv("SAFETYPULSE_CATALOG_URL", cfg.CatalogURL)
	cfg.AliasesURL = getEnv("SAFETYPULSE_ALIASES_URL", cfg.AliasesURL)
	cfg.CatalogFile = getEnv("SAFETYPULSE_CATALOG_FILE", cfg.CatalogFile)
	cfg.AliasesFile = getEnv("SAFETYPULSE_ALIASES_FILE", cfg.AliasesFile)
	cfg.CatalogRefreshInterval = getEnvDuration("SAFETYPULSE_CATALOG_REFRESH_INTERVAL", cfg.CatalogRefreshInterval)
	cfg.CatalogRefreshCron = getEnv("SAFETYPULSE_CATALOG_REFRESH_CRON", cfg.CatalogRefreshCron)

	cfg.OIDCIssuerURL = getEnv("SAFETYPULSE_OIDC_ISSUER_URL", cfg.OIDCIssuerURL)
	cfg.OIDCClientID = getEnv("SAFETYPULSE_OIDC_CLIENT_ID", cfg.OIDCClientID)
	cfg.AdminGroup = getEnv("SAFETYPULSE_ADMIN_GROUP", cfg.AdminGroup)
	cfg.DevAuthHeaders = getEnvBool("SAFETYPULSE_DEV_AUTH_HEADERS", cfg.DevAuthHeaders)

	cfg.ResolverScanLimit = getEnvInt("SAFETYPULSE_RESOLVER_SCAN_LIMIT", cfg.ResolverScanLimit)
	cfg.ResolverCacheTTL = getEnvDuration("SAFETYPULSE_RESOLVER_CACHE_TTL", cfg.ResolverCacheTTL)

	cfg.S3Bucket = getEnv("SAFETYPULSE_S3_BUCKET", cfg.S3Bucket)
	cfg.S3Region = getEnv("SAFETYPULSE_S3_REGION", cfg.S3Region)
	cfg.S3Endpoint = getEnv("SAFETYPULSE_S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3AccessKey = getEnv("SAFETYPULSE_S3_ACCESS_KEY", cfg.S3AccessKey)
	cfg.S3SecretKey = getEnv("SAFETYPULSE_S3_SECRET_KEY", cfg.S3SecretKey)
	cfg.S3UsePathStyle = getEnvBool("SAFETYPULSE_S3_USE_PATH_STYLE", cfg.S3UsePathStyle)

	cfg.LogLevel = getEnv("SAFETYPULSE_LOG_LEVEL", cfg.LogLevel)
	cfg.OTelEnabled = getEnvBool("SAFETYPULSE_OTEL_ENABLED", cfg.OTelEnabled)
	cfg.OTelEndpoint = getEnv("SAFETYPULSE_OTEL_ENDPOINT", cfg.OTelEndpoint)
	cfg.OTelServiceName = getEnv("SAFETYPULSE_OTEL_SERVICE_NAME", cfg.OTelServiceName)
	cfg.OTelServiceVersion = getEnv("SAFETYPULSE_OTEL_SERVICE_VERSION", cfg.OTelServiceVersion)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ListenAddr:             ":8080",
		HealthAddr:             ":8081",
		ShutdownTimeout:        15 * time.Second,
		CacheTTL:               15 * time.Minute,
		CacheMaxItems:          10000,
		CatalogRefreshInterval: 0,
		CatalogRefreshCron:     "0 * * * *",
		ResolverScanLimit:      1000,
		ResolverCacheTTL:       15 * time.Minute,
		S3Region:               "us-east-1",
		LogLevel:               "info",
		OTelEndpoint:           "localhost:4317",
		OTelServiceName:        "safetypulse",
		OTelServiceVersion:     "dev",
	}
}

// Validate checks that required configuration is present and coherent.
func (c *Config) Validate() error {
	var errs []string

	if c.DatabaseURL == "" {
		errs = append(errs, "SAFETYPULSE_DATABASE_URL is required")
	}
	if c.CatalogURL == "" && c.CatalogFile == "" {
		errs = append(errs, "one of SAFETYPULSE_CATALOG_URL or SAFETYPULSE_CATALOG_FILE is required")
	}
	if !c.DevAuthHeaders {
		if c.OIDCIssuerURL == "" {
			errs = append(errs, "SAFETYPULSE_OIDC_ISSUER_URL is required unless SAFETYPULSE_DEV_AUTH_HEADERS is set")
		}
		if c.OIDCClientID == "" {
			errs = append(errs, "SAFETYPULSE_OIDC_CLIENT_ID is required unless SAFETYPULSE_DEV_AUTH_HEADERS is set")
		}
	}
	if c.ResolverScanLimit <= 0 {
		errs = append(errs, "SAFETYPULSE_RESOLVER_SCAN_LIMIT must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
