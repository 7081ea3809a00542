// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for portfolio.db (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	Pricing PricingConfig
	Backup  BackupConfig
	Advisor AdvisorConfig

	PriceRefreshSchedule string // cron spec with seconds field
	MaintenanceSchedule  string
}

// PricingConfig configures the fund NAV lookup
type PricingConfig struct {
	EastmoneyBaseURL string
	RequestDelay     time.Duration // politeness delay between upstream requests
	LookupTimeout    time.Duration // per-request timeout
}

// BackupConfig configures S3 snapshot backups. Backups are disabled without a bucket.
type BackupConfig struct {
	Schedule        string
	Bucket          string
	Prefix          string
	Endpoint        string // optional, for S3-compatible stores (R2, MinIO)
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int // 0 keeps every backup
}

// Enabled reports whether backups are configured
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// AdvisorConfig configures the Gemini strategy report
type AdvisorConfig struct {
	APIKey string
	Model  string
}

// Enabled reports whether the advisor has credentials
func (a AdvisorConfig) Enabled() bool {
	return a.APIKey != ""
}

// DatabasePath returns the portfolio database location
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "portfolio.db")
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("ALPHASEEKER_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		Port:                 getEnvAsInt("PORT", 8080),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		PriceRefreshSchedule: getEnv("PRICE_REFRESH_SCHEDULE", "0 0 20 * * MON-FRI"),
		MaintenanceSchedule:  getEnv("MAINTENANCE_SCHEDULE", "0 0 3 * * *"),
		Pricing: PricingConfig{
			EastmoneyBaseURL: strings.TrimRight(getEnv("EASTMONEY_BASE_URL", "https://fund.eastmoney.com"), "/"),
			RequestDelay:     time.Duration(getEnvAsInt("PRICE_REQUEST_DELAY_MS", 100)) * time.Millisecond,
			LookupTimeout:    time.Duration(getEnvAsInt("PRICE_LOOKUP_TIMEOUT_SEC", 8)) * time.Second,
		},
		Backup: BackupConfig{
			Schedule:        getEnv("BACKUP_SCHEDULE", "@daily"),
			Bucket:          getEnv("BACKUP_S3_BUCKET", ""),
			Prefix:          strings.Trim(getEnv("BACKUP_S3_PREFIX", "alphaseeker"), "/"),
			Endpoint:        getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:          getEnv("BACKUP_S3_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
		Advisor: AdvisorConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d: must be between 1 and 65535", c.Port)
	}
	if c.Pricing.RequestDelay < 0 {
		return fmt.Errorf("PRICE_REQUEST_DELAY_MS must not be negative")
	}
	if c.Pricing.LookupTimeout <= 0 {
		return fmt.Errorf("PRICE_LOOKUP_TIMEOUT_SEC must be greater than zero")
	}

	parser := ScheduleParser()
	if _, err := parser.Parse(c.PriceRefreshSchedule); err != nil {
		return fmt.Errorf("invalid PRICE_REFRESH_SCHEDULE %q: %w", c.PriceRefreshSchedule, err)
	}
	if _, err := parser.Parse(c.MaintenanceSchedule); err != nil {
		return fmt.Errorf("invalid MAINTENANCE_SCHEDULE %q: %w", c.MaintenanceSchedule, err)
	}
	if c.Backup.Enabled() {
		if _, err := parser.Parse(c.Backup.Schedule); err != nil {
			return fmt.Errorf("invalid BACKUP_SCHEDULE %q: %w", c.Backup.Schedule, err)
		}
		if c.Backup.RetentionDays < 0 {
			return fmt.Errorf("BACKUP_RETENTION_DAYS must not be negative")
		}
	}

	return nil
}

// ScheduleParser accepts cron specs with an optional leading seconds field and descriptors
// such as @daily. The scheduler uses the same parser.
func ScheduleParser() cron.Parser {
	return cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
