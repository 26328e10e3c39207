// Package config loads and validates the chunk manager's configuration:
// logging, cache location, scheduler poll granularity, and the set of
// foreign tables it serves.
//
// Configuration is layered, in the teacher's style: config file, then
// environment variables prefixed CHUNKMGR_, then defaults filled in by
// ApplyDefaults. Loaded with github.com/spf13/viper and decoded into the
// typed Config below via mapstructure; validated with
// github.com/go-playground/validator/v10 struct tags plus the custom rules
// in validation.go.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete, decoded configuration for one chunk manager
// instance.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	S3        S3Config        `mapstructure:"s3"`
	Tables    []TableConfig   `mapstructure:"tables" validate:"dive"`
}

// LoggingConfig holds the logging settings. cmd/chunkmgrd applies only
// Level (through logger.SetLevel); Format and Output are defaulted and
// validated, but internal/logger always writes text lines to stdout.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR.
	Level string `mapstructure:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`
	// Format is "text" or "json".
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"`
	// Output is "stdout", "stderr", or a file path.
	Output string `mapstructure:"output"`
}

// ServerConfig controls the line-framed TCP front-end and its metrics
// endpoint.
type ServerConfig struct {
	// Port the TCP front-end listens on.
	Port string `mapstructure:"port"`
	// Terminator delimits requests on the wire; exactly one byte.
	Terminator string `mapstructure:"terminator"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// Metrics configures the Prometheus HTTP endpoint.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig controls the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port"`
}

// CacheConfig controls the on-disk chunk cache and its durable index.
type CacheConfig struct {
	// Enabled makes RootDir and IndexDBPath required when true; see
	// applyCacheDefaults for when it is switched on. BuildRuntime opens the
	// disk cache whatever its value: a false value does not turn the cache
	// off.
	Enabled bool `mapstructure:"enabled"`
	// RootDir is the directory chunk blob files are stored under.
	RootDir string `mapstructure:"root_dir" validate:"required_if=Enabled true"`
	// IndexDBPath is the directory the durable badger index lives under.
	IndexDBPath string `mapstructure:"index_db_path" validate:"required_if=Enabled true"`
}

// SchedulerConfig controls the background refresh scheduler's poll
// granularity.
type SchedulerConfig struct {
	// WaitDuration is how often the worker wakes to check the heap for due
	// entries. Production default is 1s; tests set it far lower.
	WaitDuration time.Duration `mapstructure:"wait_duration"`
}

// S3Config overrides the default AWS credential chain and region resolution
// for tables whose source_path is an "s3://" URI, so a non-AWS S3-compatible
// endpoint (MinIO, Localstack) can be pointed at without environment-level
// AWS configuration. Every field is optional; leaving all empty falls back
// to awsConfig.LoadDefaultConfig's normal chain.
type S3Config struct {
	// Region is passed to the AWS SDK's region resolution.
	Region string `mapstructure:"region"`
	// Endpoint overrides the service endpoint, e.g. "http://localhost:4566"
	// for a local Localstack/MinIO instance.
	Endpoint string `mapstructure:"endpoint"`
	// AccessKeyID/SecretAccessKey, if both set, are used as a static
	// credentials provider instead of the default chain.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// ColumnConfig describes one logical column of a foreign table.
type ColumnConfig struct {
	ColumnID int    `mapstructure:"column_id"`
	Name     string `mapstructure:"name" validate:"required"`
	Type     string `mapstructure:"type"`
	IsVarlen bool   `mapstructure:"is_varlen"`
}

// TableConfig is a foreign table definition expressed as config, mirroring
// a catalog.ForeignTable (§6 Catalog interface) — the DDL/catalog surface
// this module leaves out is replaced here by a static list read at
// startup.
type TableConfig struct {
	DBID         int            `mapstructure:"db_id"`
	TableID      int            `mapstructure:"table_id" validate:"required"`
	Name         string         `mapstructure:"name" validate:"required"`
	Wrapper      string         `mapstructure:"wrapper" validate:"required,oneof=csv parquet"`
	SourcePath   string         `mapstructure:"source_path" validate:"required"`
	FragmentSize int            `mapstructure:"fragment_size"`
	Columns      []ColumnConfig `mapstructure:"columns" validate:"required,min=1,dive"`
	// Options carries the refresh_* keys of §4.F (refresh_update_type,
	// refresh_timing_type, refresh_start_date_time, refresh_interval), the
	// option surface a CREATE FOREIGN TABLE ... WITH (...) clause would
	// carry, expressed as config instead of live DDL.
	Options map[string]any `mapstructure:"options"`
}

// Load reads configPath (if non-empty; otherwise the default search path),
// merges in CHUNKMGR_-prefixed environment variables, applies defaults, and
// validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("CHUNKMGR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		v.SetConfigName("config")
		v.AddConfigPath(getConfigDir())
		v.AddConfigPath(".")
	}
}

// readConfigFile loads the config file if one is found. A missing file at
// the default search path is not an error (the manager can run entirely off
// defaults and env vars); an explicitly named missing configPath is.
func readConfigFile(v *viper.Viper, configPath string) error {
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: reading %s: %w", configPath, err)
		}
		return nil
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("config: reading config file: %w", err)
	}
	return nil
}

// getConfigDir returns $XDG_CONFIG_HOME/chunkmgr, falling back to
// ~/.config/chunkmgr.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "chunkmgr")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "chunkmgr")
}

// GetDefaultConfigPath returns the path Load searches when configPath is
// empty.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists reports whether the default config file is present.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the directory Load searches for a config file when
// none is given explicitly.
func GetConfigDir() string {
	return getConfigDir()
}

// configTemplate is the sample config InitConfig writes: every section
// GetDefaultConfig fills in, plus one example table so the file is valid
// input to Load as-is.
const configTemplate = `# chunk manager configuration file

logging:
  level: "INFO"
  format: "text"
  output: "stdout"

cache:
  enabled: true
  root_dir: "/var/lib/chunkmgr/cache"
  index_db_path: "/var/lib/chunkmgr/index"

scheduler:
  wait_duration: "1s"

server:
  port: "6278"
  terminator: ";"
  shutdown_timeout: "30s"
  metrics:
    enabled: false
    port: "9090"

# s3 is only needed for tables whose source_path is an s3:// URI pointed at
# a non-AWS endpoint (Localstack, MinIO); leave it out to use the default
# AWS credential chain and region resolution.
# s3:
#   region: "us-east-1"
#   endpoint: "http://localhost:4566"
#   access_key_id: "test"
#   secret_access_key: "test"

tables:
  - db_id: 1
    table_id: 1
    name: "example"
    wrapper: "csv"
    source_path: "/data/example.csv"
    columns:
      - column_id: 0
        name: "col0"
        type: "text"
`

// InitConfig writes a sample config file to the default config path,
// creating the directory if necessary. Fails if a config already exists
// unless force is true.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()

	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config: %s already exists (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("config: creating config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return "", fmt.Errorf("config: writing %s: %w", path, err)
	}

	return path, nil
}
