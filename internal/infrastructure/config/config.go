// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	cacheDir := cfg.Cache.Directory
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	DoorDash      DoorDashConfig      `yaml:"doordash"`
	Cache         CacheConfig         `yaml:"cache"`
	Export        ExportConfig        `yaml:"export"`
	Storage       StorageConfig       `yaml:"storage"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// DoorDashConfig holds order history fetch settings
type DoorDashConfig struct {
	// SessionID is the sessionid cookie value, or a full cookie string.
	// Usually supplied on the command line instead.
	SessionID string `yaml:"session_id"`
	PageSize  int    `yaml:"page_size"`
	// Pause is a duration string like "1s" (yaml.v3 has no native
	// duration support)
	Pause string `yaml:"pause"`
	// BaseURL overrides the GraphQL endpoint, mainly for proxies
	BaseURL string `yaml:"base_url"`
}

// PauseDuration parses the rate-limit pause, falling back to one second
func (c DoorDashConfig) PauseDuration() time.Duration {
	if d, err := time.ParseDuration(c.Pause); err == nil && d > 0 {
		return d
	}
	return time.Second
}

// CacheConfig holds the response cache location
type CacheConfig struct {
	Directory string `yaml:"directory"`
}

// ExportConfig holds output file paths
type ExportConfig struct {
	ItemizedPath string `yaml:"itemized_path"`
	PivotPath    string `yaml:"pivot_path"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// APIConfig holds the ledger API server settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${DOORDASH_SESSION})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		DoorDash: DoorDashConfig{
			SessionID: os.Getenv("DOORDASH_SESSION"),
			PageSize:  getEnvInt("DOORDASH_PAGE_SIZE", 20),
		},
		Cache: CacheConfig{
			Directory: getEnv("DOORDASH_CACHE_DIR", "."),
		},
		Export: ExportConfig{
			ItemizedPath: getEnv("DOORDASH_CSV_PATH", "doordash.csv"),
			PivotPath:    getEnv("DOORDASH_PIVOT_CSV_PATH", "doordash-pivot.csv"),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("DOORDASH_DB_PATH", "doordash_export.db"),
		},
		API: APIConfig{
			Port: getEnvInt("API_PORT", 8080),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from the given path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills zero values every caller depends on
func (c *Config) applyDefaults() {
	if c.DoorDash.PageSize <= 0 {
		c.DoorDash.PageSize = 20
	}
	if c.DoorDash.Pause == "" {
		c.DoorDash.Pause = "1s"
	}
	if c.Cache.Directory == "" {
		c.Cache.Directory = "."
	}
	if c.Export.ItemizedPath == "" {
		c.Export.ItemizedPath = "doordash.csv"
	}
	if c.Export.PivotPath == "" {
		c.Export.PivotPath = "doordash-pivot.csv"
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "doordash_export.db"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// Validate ensures required fields are set for an export run
func (c *Config) Validate() error {
	if c.DoorDash.SessionID == "" {
		return fmt.Errorf("doordash session id is required")
	}
	return nil
}

// getEnv returns the environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
