// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"tlmscope/internal/logging"
	"tlmscope/internal/observability"
	"tlmscope/internal/query"
)

// WarehouseConfig selects and authenticates the orbit telemetry backend.
type WarehouseConfig struct {
	Backend         string `yaml:"backend"`
	CredentialsFile string `yaml:"credentials_file"`
	DSN             string `yaml:"dsn"`
	Dialect         string `yaml:"dialect"`
}

// Limits bound what a single fetch may cost.
type Limits struct {
	MaxDays      int           `yaml:"max_days"`
	MaxTlmLength int           `yaml:"max_tlm_length"`
	Timeout      time.Duration `yaml:"timeout"`
}

type QueryConfig struct {
	Epoch string `yaml:"epoch"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// GreptimeConfig points the optional mirror at a GreptimeDB instance.
type GreptimeConfig struct {
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
}

// Config is the root tool configuration.
type Config struct {
	Warehouse   WarehouseConfig             `yaml:"warehouse"`
	Limits      Limits                      `yaml:"limits"`
	Query       QueryConfig                 `yaml:"query"`
	SettingsDir string                      `yaml:"settings_dir"`
	GroundDir   string                      `yaml:"ground_dir"`
	Log         logging.Config              `yaml:"log"`
	Metrics     MetricsConfig               `yaml:"metrics"`
	Tracing     observability.TracingConfig `yaml:"tracing"`
	Cache       CacheConfig                 `yaml:"cache"`
	Greptime    GreptimeConfig              `yaml:"greptime"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load loads YAML config and validates it against a CUE schema. An empty
// configPath yields the defaults; an empty schemaPath uses the built-in
// schema. Environment overrides are applied last.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	var cfg Config
	if configPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}
	applyDefaults(&cfg)
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.Epoch(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Warehouse.Backend == "" {
		cfg.Warehouse.Backend = "bigquery"
	}
	if cfg.Warehouse.Dialect == "" {
		cfg.Warehouse.Dialect = cfg.Warehouse.Backend
	}
	if cfg.Limits.MaxDays == 0 {
		cfg.Limits.MaxDays = query.DefaultMaxDays
	}
	if cfg.Limits.MaxTlmLength == 0 {
		cfg.Limits.MaxTlmLength = 1_000_000
	}
	if cfg.Limits.Timeout == 0 {
		cfg.Limits.Timeout = 60 * time.Second
	}
	if cfg.Query.Epoch == "" {
		cfg.Query.Epoch = query.DefaultEpoch.Format(query.TimeLayout)
	}
	if cfg.SettingsDir == "" {
		cfg.SettingsDir = "settings"
	}
	if cfg.GroundDir == "" {
		cfg.GroundDir = "."
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "tlmscope"
	}
	if cfg.Greptime.Database == "" {
		cfg.Greptime.Database = "public"
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TLMSCOPE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TLMSCOPE_TIMEOUT: %w", err)
		}
		cfg.Limits.Timeout = d
	}
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		cfg.Greptime.Endpoint = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" && cfg.Warehouse.CredentialsFile == "" {
		cfg.Warehouse.CredentialsFile = v
	}
	return nil
}

// Epoch returns the calibration floor as a UTC time.
func (c *Config) Epoch() (time.Time, error) {
	t, err := time.ParseInLocation(query.TimeLayout, c.Query.Epoch, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("query.epoch: %w", err)
	}
	return t, nil
}
