// Package config loads zimport settings from a YAML file, a .env file and
// the environment.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the CLI settings.
type Config struct {
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Import struct {
		Workers int `yaml:"workers"`
		// Catalog optionally replaces the built-in target op catalog.
		Catalog string `yaml:"catalog"`
	} `yaml:"import"`
	Producer struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"producer"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.Log.File = "zimport.log"
	cfg.Import.Workers = 4
	cfg.Producer.Name = "zimport"
	cfg.Producer.Version = "0.1.0"
	return cfg
}

// Load reads path over the defaults and applies environment overrides. An
// empty or missing path keeps the defaults.
func Load(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // user supplied config path
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "failed to parse config %s", path)
			}
		case !os.IsNotExist(err):
			return nil, errors.Wrap(err, "failed to read config")
		}
	}

	// 3. Override with environment variables if present
	if v := os.Getenv("ZIMPORT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ZIMPORT_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("ZIMPORT_CATALOG"); v != "" {
		cfg.Import.Catalog = v
	}
	if v := os.Getenv("ZIMPORT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrap(err, "ZIMPORT_WORKERS")
		}
		cfg.Import.Workers = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log level")
	}
	if c.Import.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", c.Import.Workers)
	}
	return nil
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
