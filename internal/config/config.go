// SPDX-License-Identifier: MIT

// Package config loads and validates the brendacyc configuration with
// precedence ENV > config file > defaults.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Cache backends accepted by AppConfig.CacheBackend.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

// AppConfig is the full daemon configuration.
type AppConfig struct {
	// Data
	DataDir    string `yaml:"dataDir"`
	BrendaFile string `yaml:"brendaFile"`
	StorePath  string `yaml:"storePath"`
	CleanEC    bool   `yaml:"cleanEC"`

	// Import behaviour
	ImportOnStartup bool          `yaml:"importOnStartup"`
	WatchFile       bool          `yaml:"watchFile"`
	ImportLeaseTTL  time.Duration `yaml:"importLeaseTTL"`

	// Exports
	ExportJSON   bool `yaml:"exportJSON"`
	ExportTSV    bool `yaml:"exportTSV"`
	ExportSQLite bool `yaml:"exportSQLite"`

	// API server
	ListenAddr     string `yaml:"listenAddr"`
	APIToken       string `yaml:"apiToken"`
	AllowedOrigins string `yaml:"allowedOrigins"`

	// Rate limiting
	RateLimitEnabled bool `yaml:"rateLimitEnabled"`
	RateLimitRPM     int  `yaml:"rateLimitRPM"`

	// Cache
	CacheBackend  string        `yaml:"cacheBackend"`
	CacheTTL      time.Duration `yaml:"cacheTTL"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDB"`

	// Metrics
	MetricsEnabled bool   `yaml:"metricsEnabled"`
	MetricsAddr    string `yaml:"metricsAddr"`

	// Telemetry
	TracingEnabled  bool    `yaml:"tracingEnabled"`
	TracingExporter string  `yaml:"tracingExporter"`
	TracingEndpoint string  `yaml:"tracingEndpoint"`
	TracingSampling float64 `yaml:"tracingSampling"`
	Environment     string  `yaml:"environment"`

	// Logging
	LogLevel   string `yaml:"logLevel"`
	LogService string `yaml:"logService"`

	// Version is injected by the loader, not configurable.
	Version string `yaml:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:          "/var/lib/brendacyc",
		CleanEC:          true,
		ImportOnStartup:  true,
		ImportLeaseTTL:   15 * time.Minute,
		ExportJSON:       true,
		ExportTSV:        true,
		ListenAddr:       ":8080",
		RateLimitEnabled: true,
		RateLimitRPM:     600,
		CacheBackend:     CacheBackendMemory,
		CacheTTL:         10 * time.Minute,
		RedisAddr:        "localhost:6379",
		MetricsEnabled:   true,
		MetricsAddr:      ":9090",
		TracingExporter:  "http",
		TracingSampling:  0.1,
		Environment:      "production",
		LogLevel:         "info",
		LogService:       "brendacyc",
	}
}

// EffectiveStorePath resolves the badger directory, defaulting under DataDir.
func (c *AppConfig) EffectiveStorePath() string {
	if c.StorePath != "" {
		return c.StorePath
	}
	return filepath.Join(c.DataDir, "store")
}

// Validate checks the configuration for inconsistencies.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: dataDir must not be empty")
	}
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendNone:
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.CacheBackend)
	}
	if c.CacheBackend == CacheBackendRedis && strings.TrimSpace(c.RedisAddr) == "" {
		return fmt.Errorf("config: redis cache selected but redisAddr is empty")
	}
	if c.RateLimitEnabled && c.RateLimitRPM <= 0 {
		return fmt.Errorf("config: rateLimitRPM must be positive, got %d", c.RateLimitRPM)
	}
	if c.TracingEnabled {
		switch c.TracingExporter {
		case "grpc", "http":
		default:
			return fmt.Errorf("config: unknown tracing exporter %q", c.TracingExporter)
		}
		if strings.TrimSpace(c.TracingEndpoint) == "" {
			return fmt.Errorf("config: tracing enabled but tracingEndpoint is empty")
		}
	}
	if c.WatchFile && strings.TrimSpace(c.BrendaFile) == "" {
		return fmt.Errorf("config: watchFile enabled but brendaFile is empty")
	}
	return nil
}

// applyEnv overrides cfg fields from BRENDACYC_* environment variables.
func applyEnv(cfg *AppConfig) {
	cfg.DataDir = ParseString("BRENDACYC_DATA", cfg.DataDir)
	cfg.BrendaFile = ParseString("BRENDACYC_BRENDA_FILE", cfg.BrendaFile)
	cfg.StorePath = ParseString("BRENDACYC_STORE_PATH", cfg.StorePath)
	cfg.CleanEC = ParseBool("BRENDACYC_CLEAN_EC", cfg.CleanEC)

	cfg.ImportOnStartup = ParseBool("BRENDACYC_IMPORT_ON_STARTUP", cfg.ImportOnStartup)
	cfg.WatchFile = ParseBool("BRENDACYC_WATCH", cfg.WatchFile)
	cfg.ImportLeaseTTL = ParseDuration("BRENDACYC_IMPORT_LEASE_TTL", cfg.ImportLeaseTTL)

	cfg.ExportJSON = ParseBool("BRENDACYC_EXPORT_JSON", cfg.ExportJSON)
	cfg.ExportTSV = ParseBool("BRENDACYC_EXPORT_TSV", cfg.ExportTSV)
	cfg.ExportSQLite = ParseBool("BRENDACYC_EXPORT_SQLITE", cfg.ExportSQLite)

	cfg.ListenAddr = ParseString("BRENDACYC_LISTEN", cfg.ListenAddr)
	cfg.APIToken = ParseString("BRENDACYC_API_TOKEN", cfg.APIToken)
	cfg.AllowedOrigins = ParseString("BRENDACYC_ALLOWED_ORIGINS", cfg.AllowedOrigins)

	cfg.RateLimitEnabled = ParseBool("BRENDACYC_RATE_LIMIT", cfg.RateLimitEnabled)
	cfg.RateLimitRPM = ParseInt("BRENDACYC_RATE_LIMIT_RPM", cfg.RateLimitRPM)

	cfg.CacheBackend = ParseString("BRENDACYC_CACHE", cfg.CacheBackend)
	cfg.CacheTTL = ParseDuration("BRENDACYC_CACHE_TTL", cfg.CacheTTL)
	cfg.RedisAddr = ParseString("BRENDACYC_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = ParseString("BRENDACYC_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = ParseInt("BRENDACYC_REDIS_DB", cfg.RedisDB)

	cfg.MetricsEnabled = ParseBool("BRENDACYC_METRICS", cfg.MetricsEnabled)
	cfg.MetricsAddr = ParseString("BRENDACYC_METRICS_ADDR", cfg.MetricsAddr)

	cfg.TracingEnabled = ParseBool("BRENDACYC_TRACING", cfg.TracingEnabled)
	cfg.TracingExporter = ParseString("BRENDACYC_TRACING_EXPORTER", cfg.TracingExporter)
	cfg.TracingEndpoint = ParseString("BRENDACYC_TRACING_ENDPOINT", cfg.TracingEndpoint)
	cfg.TracingSampling = ParseFloat("BRENDACYC_TRACING_SAMPLING", cfg.TracingSampling)
	cfg.Environment = ParseString("BRENDACYC_ENVIRONMENT", cfg.Environment)

	cfg.LogLevel = ParseString("BRENDACYC_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = ParseString("BRENDACYC_LOG_SERVICE", cfg.LogService)
}
