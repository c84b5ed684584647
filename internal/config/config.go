// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/lutivix/financeiro/internal/domain"
	"github.com/lutivix/financeiro/internal/utils"
)

// Config holds application configuration
type Config struct {
	DataDir             string // Base directory for input files, database and reports (always absolute)
	DatabasePath        string // SQLite file, defaults to <DataDir>/financeiro.db
	MonthsBack          int    // How many billing months of input files to look for, >= 1
	EnableDeduplication bool
	EnableOpenFinance   bool
	DefaultCategory     domain.Category
	BankNames           []string // Spreadsheet profile names to discover, e.g. "Itau,Personnalite"
	LogLevel            string
	Port                int
	CronSpec            string // Schedule for unattended runs
	Backup              *BackupConfig
}

// BackupConfig holds database backup settings. A bucket name enables the
// remote upload path; without one backups stay local.
type BackupConfig struct {
	Bucket          string
	Endpoint        string // Custom S3-compatible endpoint, empty for AWS
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	LocalDir        string // Where archives land before and without upload
	Retention       int    // How many local archives to keep
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FINANCEIRO_DATA_DIR", "")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: cannot determine home directory: %v", domain.ErrConfig, err)
		}
		dataDir = filepath.Join(home, "financeiro")
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve data directory path: %v", domain.ErrConfig, err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create data directory: %v", domain.ErrConfig, err)
	}

	cfg := &Config{
		DataDir:             absDataDir,
		DatabasePath:        getEnv("FINANCEIRO_DB_PATH", filepath.Join(absDataDir, "financeiro.db")),
		MonthsBack:          getEnvAsInt("FINANCEIRO_MONTHS_BACK", 12),
		EnableDeduplication: getEnvAsBool("FINANCEIRO_DEDUP", true),
		EnableOpenFinance:   getEnvAsBool("FINANCEIRO_OPEN_FINANCE", false),
		DefaultCategory:     domain.ParseCategory(getEnv("FINANCEIRO_DEFAULT_CATEGORY", "Undefined")),
		BankNames:           utils.ParseCSV(getEnv("FINANCEIRO_BANKS", "Itau,Personnalite")),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		Port:                getEnvAsInt("FINANCEIRO_PORT", 8010),
		CronSpec:            getEnv("FINANCEIRO_CRON", "0 7 * * *"),
		Backup:              loadBackupConfig(absDataDir),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.MonthsBack < 1 {
		return fmt.Errorf("%w: months back must be at least 1, got %d", domain.ErrConfig, c.MonthsBack)
	}
	if len(c.BankNames) == 0 {
		return fmt.Errorf("%w: at least one bank name is required", domain.ErrConfig)
	}
	for _, name := range c.BankNames {
		if _, ok := domain.BankProfiles[name]; !ok {
			return fmt.Errorf("%w: unknown bank profile %q", domain.ErrConfig, name)
		}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", domain.ErrConfig, c.Port)
	}
	return nil
}

// Profiles resolves the configured bank names to their card profiles.
func (c *Config) Profiles() []*domain.BankProfile {
	profiles := make([]*domain.BankProfile, 0, len(c.BankNames))
	for _, name := range c.BankNames {
		if p, ok := domain.BankProfiles[name]; ok {
			profiles = append(profiles, p)
		}
	}
	return profiles
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

// loadBackupConfig reads backup settings. Remote upload stays off until a
// bucket is configured.
func loadBackupConfig(dataDir string) *BackupConfig {
	return &BackupConfig{
		Bucket:          getEnv("FINANCEIRO_BACKUP_BUCKET", ""),
		Endpoint:        getEnv("FINANCEIRO_BACKUP_ENDPOINT", ""),
		Region:          getEnv("FINANCEIRO_BACKUP_REGION", "auto"),
		AccessKeyID:     getEnv("FINANCEIRO_BACKUP_ACCESS_KEY", ""),
		SecretAccessKey: getEnv("FINANCEIRO_BACKUP_SECRET_KEY", ""),
		LocalDir:        getEnv("FINANCEIRO_BACKUP_DIR", filepath.Join(dataDir, "backups")),
		Retention:       getEnvAsInt("FINANCEIRO_BACKUP_RETENTION", 7),
	}
}
