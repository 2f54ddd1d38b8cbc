package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"districtpulse/internal/analytics"
)

// Config represents the complete application configuration. Environment
// variables (prefix DPULSE) take precedence over the optional YAML file.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Snapshot SnapshotConfig `yaml:"snapshot" envconfig:"SNAPSHOT"`
	Engine   EngineConfig   `yaml:"engine" envconfig:"ENGINE"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"50"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/districtpulse.log"`
}

// SnapshotConfig locates the raw row source for ingestion cycles.
type SnapshotConfig struct {
	Dir    string `yaml:"dir" envconfig:"DIR" default:"data/snapshots"`
	Format string `yaml:"format" envconfig:"FORMAT" default:"csv" validate:"oneof=csv xlsx"`
}

// EngineConfig carries the estimator toggles.
type EngineConfig struct {
	Analytics analytics.Flags `yaml:"analytics" envconfig:"ANALYTICS"`
}

// Load loads configuration from environment variables and, when present,
// the config file.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("DPULSE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		if err := mergeFile(configFile, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// configFilePath resolves the YAML config location, overridable by env.
func configFilePath() string {
	if path := os.Getenv("DPULSE_CONFIG"); path != "" {
		return path
	}
	return "config.yaml"
}

// mergeFile fills zero-valued fields of cfg from the YAML file, so the
// environment keeps precedence.
func mergeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = file.Server.Port
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = file.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = file.Server.WriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = file.Server.IdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = file.Server.ShutdownTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = file.Logging.Level
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = file.Logging.Output
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = file.Logging.FilePath
	}
	if cfg.Snapshot.Dir == "" {
		cfg.Snapshot.Dir = file.Snapshot.Dir
	}
	if cfg.Snapshot.Format == "" {
		cfg.Snapshot.Format = file.Snapshot.Format
	}
	return nil
}
