// Package config holds the spectral CLI configuration and build metadata.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Build metadata, injected with -ldflags by the dev tool.
var (
	Version = "latest"
	Commit  = "none"
	Date    = "unknown"
)

const (
	AdapterMCP2221 = "mcp2221"
	AdapterGeneric = "generic"
	AdapterNanoPi  = "nanopi"
	AdapterSim     = "sim"
)

var ErrUnknownAdapter = errors.New("unknown adapter")

type Config struct {
	Adapter string `yaml:"adapter"`
	// Device is the periph bus name for the generic adapter ("" selects the first bus).
	Device string `yaml:"device"`
	// Bus is the gobot bus number for the nanopi adapter; negative selects the default.
	Bus          int           `yaml:"bus"`
	Address      uint8         `yaml:"address"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls"`
	Strict       bool          `yaml:"strict"`
	// ResponseWait is the MCP2221 report round trip pause.
	ResponseWait time.Duration `yaml:"response_wait"`
}

func Default() Config {
	return Config{
		Adapter:      AdapterMCP2221,
		Bus:          -1,
		Address:      0x49,
		PollInterval: 5 * time.Millisecond,
		MaxPolls:     400,
		ResponseWait: 50 * time.Millisecond,
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("could not open config file: %w", err)
	}
	defer f.Close()
	err = yaml.NewDecoder(f).Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("could not decode config file %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Adapter {
	case AdapterMCP2221, AdapterGeneric, AdapterNanoPi, AdapterSim:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAdapter, c.Adapter)
	}
	if c.Address > 0x7F {
		return fmt.Errorf("address %#x is not a 7-bit I2C address", c.Address)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("negative poll interval %s", c.PollInterval)
	}
	return nil
}

// BuildInfo is the version string printed by the CLI.
func BuildInfo() string {
	return fmt.Sprintf("%s-%s-%s", Version, Date, Commit)
}
