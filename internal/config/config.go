// Package config loads the server configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/mkoline/schemascope/internal/snapshot"
)

// Config is the top-level server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Cache    CacheConfig    `yaml:"cache"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"` // host:port
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

type CacheConfig struct {
	TTL Duration `yaml:"ttl"`
}

// Duration is a time.Duration that unmarshals from YAML either as a Go
// duration string ("60s", "5m") or as a bare number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var secs int64
	if err := node.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the standard-library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type SnapshotConfig struct {
	Enabled         bool `yaml:"enabled"`
	snapshot.Config `yaml:",inline"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Listen: ":8080"},
		Log:    LogConfig{Level: "info", Format: "json"},
		Cache:  CacheConfig{TTL: Duration(300 * time.Second)},
	}
}

// Load reads and validates the YAML file at path. Fields left unset fall
// back to the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.Snapshot.Enabled {
		if c.Snapshot.Endpoint == "" {
			return errors.New("snapshot.endpoint is required when snapshots are enabled")
		}
		if c.Snapshot.Bucket == "" {
			return errors.New("snapshot.bucket is required when snapshots are enabled")
		}
	}
	return nil
}
