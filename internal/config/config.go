// Package config loads the service configuration from a TOML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/piwi3910/cutplan/internal/model"
)

// Config is the top-level configuration.
type Config struct {
	Server ServerConfig             `toml:"server"`
	Store  StoreConfig              `toml:"store"`
	Share  ShareConfig              `toml:"share"`
	Params model.OptimizationParams `toml:"params"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr    string `toml:"addr"`
	DevMode bool   `toml:"dev_mode"`
}

// StoreConfig selects where the offcut stock lives. An empty DBPath keeps it in memory.
type StoreConfig struct {
	DBPath string `toml:"db_path"`
}

// ShareConfig holds the lifetime of shared plans.
type ShareConfig struct {
	TTL           string `toml:"ttl"`
	SweepInterval string `toml:"sweep_interval"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Store:  StoreConfig{DBPath: "cutplan.db"},
		Share:  ShareConfig{TTL: "24h", SweepInterval: "10m"},
		Params: model.DefaultParams(),
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// CUTPLAN_ADDR and CUTPLAN_DB override the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if v := os.Getenv("CUTPLAN_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v, ok := os.LookupEnv("CUTPLAN_DB"); ok {
		cfg.Store.DBPath = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks durations and optimization parameters.
func (c *Config) Validate() error {
	if _, err := c.ShareTTL(); err != nil {
		return err
	}
	if _, err := c.SweepInterval(); err != nil {
		return err
	}
	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("params: %w", err)
	}
	return nil
}

// ShareTTL returns how long a shared plan stays retrievable.
func (c *Config) ShareTTL() (time.Duration, error) {
	return positiveDuration("share.ttl", c.Share.TTL)
}

// SweepInterval returns how often expired shares are purged.
func (c *Config) SweepInterval() (time.Duration, error) {
	return positiveDuration("share.sweep_interval", c.Share.SweepInterval)
}

func positiveDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, s)
	}
	return d, nil
}

// Encode returns the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
