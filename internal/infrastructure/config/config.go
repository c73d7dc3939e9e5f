// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// A .env file in the working directory is honored when present, so portal
// credentials never need to live in the YAML file.
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Ledger.DatabasePath
//	inbox := cfg.Dirs.Inbox
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Dirs          DirsConfig          `yaml:"dirs"`
	Ledger        LedgerConfig        `yaml:"ledger"`
	Intake        IntakeConfig        `yaml:"intake"`
	Retry         RetryConfig         `yaml:"retry"`
	Matching      MatchingConfig      `yaml:"matching"`
	Recognition   RecognitionConfig   `yaml:"recognition"`
	Portal        PortalConfig        `yaml:"portal"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// DirsConfig holds the three-directory queue layout
type DirsConfig struct {
	Inbox     string `yaml:"inbox"`
	Processed string `yaml:"processed"`
	Failed    string `yaml:"failed"`
}

// LedgerConfig holds the dedup ledger database settings
type LedgerConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// IntakeConfig holds intake scan settings
type IntakeConfig struct {
	ScanIntervalSeconds int `yaml:"scan_interval_seconds"`
	StabilityChecks     int `yaml:"stability_checks"`
	StabilityDelayMs    int `yaml:"stability_delay_ms"`
}

// ScanInterval returns the intake scan period
func (c IntakeConfig) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

// StabilityDelay returns the pause between stability checks
func (c IntakeConfig) StabilityDelay() time.Duration {
	return time.Duration(c.StabilityDelayMs) * time.Millisecond
}

// RetryConfig holds retry sweep settings
type RetryConfig struct {
	SweepIntervalSeconds int    `yaml:"sweep_interval_seconds"` // 0 = sweeping disabled
	StatePath            string `yaml:"state_path"`
	LockPath             string `yaml:"lock_path"`
	MaxAttempts          int    `yaml:"max_attempts"` // 0 = unlimited
}

// SweepInterval returns the retry sweep period
func (c RetryConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// MatchingConfig holds temporal matching settings
type MatchingConfig struct {
	TollMarginMinutes int   `yaml:"toll_margin_minutes"`
	SameDayFallback   *bool `yaml:"same_day_fallback"` // nil = enabled
}

// TollMargin returns the toll clock-skew tolerance
func (c MatchingConfig) TollMargin() time.Duration {
	return time.Duration(c.TollMarginMinutes) * time.Minute
}

// RecognitionConfig holds OCR engine settings
type RecognitionConfig struct {
	TesseractPath string `yaml:"tesseract_path"`
	Language      string `yaml:"language"`
}

// PortalConfig holds external portal driver settings
type PortalConfig struct {
	DriverCommand  string `yaml:"driver_command"`
	Headless       bool   `yaml:"headless"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UserEnv        string `yaml:"user_env"`
	PassEnv        string `yaml:"pass_env"`
}

// Timeout returns the per-call portal driver timeout
func (c PortalConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// APIConfig holds the local status API settings
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
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${FIELDMAP_DB_PATH})
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
	_ = godotenv.Load()

	cfg := &Config{
		Dirs: DirsConfig{
			Inbox:     getEnv("FIELDMAP_INBOX", "receipts"),
			Processed: getEnv("FIELDMAP_PROCESSED", "processed"),
			Failed:    getEnv("FIELDMAP_FAILED", "failed"),
		},
		Ledger: LedgerConfig{
			DatabasePath: getEnv("FIELDMAP_DB_PATH", "fieldmap_ledger.db"),
		},
		Retry: RetryConfig{
			SweepIntervalSeconds: getEnvInt("FIELDMAP_RETRY_INTERVAL", 0),
			StatePath:            getEnv("FIELDMAP_RETRY_STATE", "retry_state.json"),
			MaxAttempts:          getEnvInt("FIELDMAP_RETRY_MAX_ATTEMPTS", 0),
		},
		Recognition: RecognitionConfig{
			TesseractPath: getEnv("TESSERACT_PATH", "tesseract"),
			Language:      getEnv("TESSERACT_LANG", "por+eng"),
		},
		Portal: PortalConfig{
			DriverCommand: getEnv("PORTAL_DRIVER", "fieldmap-driver"),
			Headless:      getEnv("HEADLESS", "0") == "1",
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

// LoadOrEnvWithPath tries to load from the specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills zero values with operational defaults
func (c *Config) applyDefaults() {
	if c.Dirs.Inbox == "" {
		c.Dirs.Inbox = "receipts"
	}
	if c.Dirs.Processed == "" {
		c.Dirs.Processed = "processed"
	}
	if c.Dirs.Failed == "" {
		c.Dirs.Failed = "failed"
	}
	if c.Ledger.DatabasePath == "" {
		c.Ledger.DatabasePath = "fieldmap_ledger.db"
	}
	if c.Intake.ScanIntervalSeconds <= 0 {
		c.Intake.ScanIntervalSeconds = 2
	}
	if c.Intake.StabilityChecks <= 0 {
		c.Intake.StabilityChecks = 3
	}
	if c.Intake.StabilityDelayMs <= 0 {
		c.Intake.StabilityDelayMs = 300
	}
	if c.Retry.StatePath == "" {
		c.Retry.StatePath = "retry_state.json"
	}
	if c.Retry.LockPath == "" {
		c.Retry.LockPath = filepath.Join(os.TempDir(), "fieldmap_retry.lock")
	}
	if c.Matching.TollMarginMinutes <= 0 {
		c.Matching.TollMarginMinutes = 10
	}
	if c.Recognition.TesseractPath == "" {
		c.Recognition.TesseractPath = "tesseract"
	}
	if c.Recognition.Language == "" {
		c.Recognition.Language = "por+eng"
	}
	if c.Portal.DriverCommand == "" {
		c.Portal.DriverCommand = "fieldmap-driver"
	}
	if c.Portal.TimeoutSeconds <= 0 {
		c.Portal.TimeoutSeconds = 120
	}
	if c.Portal.UserEnv == "" {
		c.Portal.UserEnv = "PORTAL_USER"
	}
	if c.Portal.PassEnv == "" {
		c.Portal.PassEnv = "PORTAL_PASS"
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

// SameDayFallbackEnabled reports whether the same-day matching fallback is on.
// Defaults to enabled when unset.
func (c *Config) SameDayFallbackEnabled() bool {
	if c.Matching.SameDayFallback == nil {
		return true
	}
	return *c.Matching.SameDayFallback
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}
