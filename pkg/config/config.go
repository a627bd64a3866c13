package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for sigepol-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8084"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Upload/ETL pipeline configuration
	Uploads UploadConfig `yaml:"uploads"`

	// Outbound alert notifications (SMTP)
	SMTP SMTPConfig `yaml:"smtp"`

	// MigrationsPath is the directory containing golang-migrate SQL files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// RulesPath is the YAML file with the rule definitions seeded at startup.
	RulesPath string `yaml:"rules_path" env:"RULES_PATH" env-default:"rules.yaml"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"sigepol"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"sigepol_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// UploadConfig holds ETL pipeline settings.
type UploadConfig struct {
	// Dir is where uploaded workbooks are stored.
	Dir string `yaml:"dir" env:"UPLOADS_DIR" env-default:"data/uploads"`
	// ErrorDir is where per-upload error CSVs are written.
	ErrorDir string `yaml:"error_dir" env:"UPLOADS_ERROR_DIR" env-default:"data/upload_errors"`
	// DatasetDir is where the regenerated ML dataset extracts are written.
	DatasetDir string `yaml:"dataset_dir" env:"DATASET_DIR" env-default:"data/datasets"`
	// BatchSize is the number of rows committed per transaction.
	BatchSize int `yaml:"batch_size" env:"UPLOAD_BATCH_SIZE" env-default:"500"`
	// MaxFileSizeMB rejects workbooks above this size.
	MaxFileSizeMB int64 `yaml:"max_file_size_mb" env:"UPLOAD_MAX_FILE_SIZE_MB" env-default:"50"`
	// PreviewRows is how many rows are captured as the upload preview snapshot.
	PreviewRows int `yaml:"preview_rows" env:"UPLOAD_PREVIEW_ROWS" env-default:"10"`
}

// SMTPConfig holds outbound mail settings for alert notifications.
// Notifications are disabled when Host is empty.
type SMTPConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST" env-default:""`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER" env-default:""`
	Password string `yaml:"-" env:"SMTP_PASSWORD"` // Secret - not in YAML
	From     string `yaml:"from" env:"SMTP_FROM" env-default:"alertas@sigepol.cl"`
	To       string `yaml:"to" env:"SMTP_TO" env-default:""`
}

// Enabled reports whether outbound notifications are configured.
func (c *SMTPConfig) Enabled() bool {
	return c.Host != "" && c.To != ""
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.ensureDirs(); err != nil {
		return nil, fmt.Errorf("failed to prepare data directories: %w", err)
	}

	return cfg, nil
}

// ensureDirs creates the upload, error and dataset directories if missing.
func (c *Config) ensureDirs() error {
	for _, dir := range []string{c.Uploads.Dir, c.Uploads.ErrorDir, c.Uploads.DatasetDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
