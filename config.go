package poweredup

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"
)

// Config tunes the connection-management layer. Zero values are filled from
// the default tags.
type Config struct {
	// ConnectRetries bounds how many times CreateHub attempts a
	// connection before giving up.
	ConnectRetries int `yaml:"connect_retries" default:"10"`

	// RetryDelay is the pause between connection attempts.
	RetryDelay time.Duration `yaml:"retry_delay" default:"3s"`

	// ConnectTimeout bounds each individual in-flight connection attempt.
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"30s"`

	// DiscoveryBuffer is the capacity of the channel carrying identified
	// discoveries from the listener to the discovery manager.
	DiscoveryBuffer int `yaml:"discovery_buffer" default:"16"`
}

// DefaultConfig returns the configuration with all defaults applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// UnmarshalYAML accepts durations in time.ParseDuration form ("3s",
// "250ms") and leaves absent fields untouched.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type raw struct {
		ConnectRetries  *int    `yaml:"connect_retries"`
		RetryDelay      *string `yaml:"retry_delay"`
		ConnectTimeout  *string `yaml:"connect_timeout"`
		DiscoveryBuffer *int    `yaml:"discovery_buffer"`
	}

	var r raw
	if err := value.Decode(&r); err != nil {
		return err
	}

	if r.ConnectRetries != nil {
		c.ConnectRetries = *r.ConnectRetries
	}
	if r.DiscoveryBuffer != nil {
		c.DiscoveryBuffer = *r.DiscoveryBuffer
	}
	if r.RetryDelay != nil {
		d, err := time.ParseDuration(*r.RetryDelay)
		if err != nil {
			return fmt.Errorf("retry_delay: %w", err)
		}
		c.RetryDelay = d
	}
	if r.ConnectTimeout != nil {
		d, err := time.ParseDuration(*r.ConnectTimeout)
		if err != nil {
			return fmt.Errorf("connect_timeout: %w", err)
		}
		c.ConnectTimeout = d
	}
	return nil
}
