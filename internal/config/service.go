package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// ServiceConfig holds the ambient settings for the long-running service
// (HTTP API + scheduler), as distinct from a simulation run's Configuration.
type ServiceConfig struct {
	DataDir    string // base directory for per-run SQLite databases
	Port       int
	LogLevel   string
	LogPretty  bool
	CronSpec   string // cron expression for the sweep scheduler, empty disables it
	S3Bucket   string // archive upload target, empty disables archival
	DevMode    bool
}

// LoadService reads ambient service configuration from environment
// variables (.env file first, if present), following the same
// load-then-validate shape as LoadFromFile.
func LoadService() (*ServiceConfig, error) {
	_ = godotenv.Load()

	dataDir := getEnvStr("LARGEWORLD_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve data directory: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("config: create data directory: %w", err)
	}

	cfg := &ServiceConfig{
		DataDir:   absDataDir,
		Port:      getEnvAsIntOS("LARGEWORLD_PORT", 8080),
		LogLevel:  getEnvStr("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBoolOS("LOG_PRETTY", false),
		CronSpec:  getEnvStr("LARGEWORLD_CRON", ""),
		S3Bucket:  getEnvStr("LARGEWORLD_S3_BUCKET", ""),
		DevMode:   getEnvAsBoolOS("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ambient service configuration for obviously invalid values.
func (c *ServiceConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	return nil
}

func getEnvStr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOS(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsBoolOS(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "1" || value == "true" || value == "TRUE" || value == "True"
	}
	return defaultValue
}
