package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the schema inference tool.
// Configuration can come from a YAML file (config.yaml) or environment
// variables; environment variables always override YAML values. CLI flags
// are applied on top by the entry point.
type Config struct {
	// Analysis configuration
	Analysis AnalysisConfig `yaml:"analysis"`

	// Output configuration
	Output OutputConfig `yaml:"output"`

	// Database configuration (PostgreSQL), used only when applying the
	// generated DDL directly.
	Database DatabaseConfig `yaml:"database"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// Version is set at load time, not from config.
	Version string `yaml:"-"`
}

// AnalysisConfig holds input sampling settings.
type AnalysisConfig struct {
	// InputDir is the directory holding raw JSON files.
	InputDir string `yaml:"input_dir" env:"INPUT_DIR" env-default:"./data"`

	// Dataset is an explicit dataset kind label. Empty triggers
	// auto-discovery from directory and file names.
	Dataset string `yaml:"dataset" env:"DATASET" env-default:""`

	// Pattern is a filename glob; empty means a dataset-scoped default.
	Pattern string `yaml:"pattern" env:"FILE_PATTERN" env-default:""`

	// MaxFiles caps how many matching files are sampled per dataset.
	MaxFiles int `yaml:"max_files" env:"MAX_FILES" env-default:"10"`

	// MaxRecordsPerFile caps how many records are read from each file.
	MaxRecordsPerFile int `yaml:"max_records_per_file" env:"MAX_RECORDS_PER_FILE" env-default:"100"`

	// Recursive enables searching subdirectories for input files.
	Recursive bool `yaml:"recursive" env:"RECURSIVE" env-default:"false"`
}

// OutputConfig holds artifact destination settings.
type OutputConfig struct {
	// Dir is where DDL, CSV, and graph artifacts are written.
	Dir string `yaml:"dir" env:"OUTPUT_DIR" env-default:"./output"`

	// Apply runs the generated DDL against the configured database after
	// emission.
	Apply bool `yaml:"apply" env:"APPLY_DDL" env-default:"false"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"fda"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"fda_schema"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. A missing config.yaml is not an error; the tool then runs on
// environment variables and flag defaults alone. The version parameter is
// injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string for pgx.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}
