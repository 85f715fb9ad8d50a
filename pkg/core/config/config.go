// Package config loads the airlock configuration from a TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the complete application configuration
type Config struct {
	General GeneralConfig `toml:"general"`
	Server  ServerConfig  `toml:"server"`
	Audit   AuditConfig   `toml:"audit"`
	Policy  PolicyConfig  `toml:"policy"`
	Engine  EngineConfig  `toml:"engine"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Name        string `toml:"name"`
	Environment string `toml:"environment"`
	DataDir     string `toml:"data_dir"`
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"`
}

// ServerConfig holds HTTP gateway configuration
type ServerConfig struct {
	Port         int      `toml:"port"`
	Host         string   `toml:"host"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// AuditConfig holds audit trail configuration
type AuditConfig struct {
	// StorePath is the sqlite file backing the trail.
	StorePath string `toml:"store_path"`
}

// PolicyConfig holds risk-policy settings
type PolicyConfig struct {
	// PackPath points at a YAML policy pack; empty uses the built-in pack.
	PackPath string `toml:"pack_path"`
}

// EngineConfig holds execution engine settings
type EngineConfig struct {
	// StepTimeout bounds a single step application.
	StepTimeout Duration `toml:"step_timeout"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a TOML file
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()

	return &cfg, nil
}

// LoadFromEnv loads configuration from the AIRLOCK_CONFIG environment
// variable, falling back to default locations and finally to defaults.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("AIRLOCK_CONFIG")
	if path == "" {
		defaultPaths := []string{
			"./configs/config.toml",
			"./config.toml",
			filepath.Join(os.Getenv("HOME"), ".config/airlock/config.toml"),
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return Default(), nil
	}

	return Load(path)
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.General.Name == "" {
		c.General.Name = "airlock"
	}
	if c.General.Environment == "" {
		c.General.Environment = "development"
	}
	if c.General.DataDir == "" {
		c.General.DataDir = "./data"
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "json"
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8980
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout.Duration = 30 * time.Second
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout.Duration = 120 * time.Second
	}

	if c.Audit.StorePath == "" {
		c.Audit.StorePath = filepath.Join(c.General.DataDir, "audit.db")
	}

	if c.Engine.StepTimeout.Duration == 0 {
		c.Engine.StepTimeout.Duration = 30 * time.Second
	}
}

// expandEnvVars expands environment variables in path-valued fields
func (c *Config) expandEnvVars() {
	c.General.DataDir = os.ExpandEnv(c.General.DataDir)
	c.Audit.StorePath = os.ExpandEnv(c.Audit.StorePath)
	c.Policy.PackPath = os.ExpandEnv(c.Policy.PackPath)
}

// ListenAddress returns the gateway listen address
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
