package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for a Halo node
type Config struct {
	// Node identification
	Host string
	Port int

	// ID is the node's ring identifier. Set to -1 to derive it from the
	// node's host:port.
	ID int

	// HTTP admin API
	HTTPPort int

	// Bootstrap peer to join through ("host:port", empty for a standalone
	// node). BootstrapID is its ring identifier; -1 derives it from the
	// address the same way a node derives its own.
	Bootstrap   string
	BootstrapID int

	// Lookup cache parameters
	CacheSlots    int           // Fixed number of cache entries
	CacheValidity time.Duration // How long a cached reply stays authoritative

	// Logging
	LogLevel  string // trace, debug, info, warn, error
	LogFormat string // json, console
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:          "127.0.0.1",
		Port:          1400,
		ID:            -1,
		HTTPPort:      8080,
		Bootstrap:     "",
		BootstrapID:   -1,
		CacheSlots:    30,
		CacheValidity: 2 * time.Second,
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.ID < -1 || c.ID > 65535 {
		return fmt.Errorf("node ID must be between 0 and 65535 (or -1 to derive), got %d", c.ID)
	}
	if c.BootstrapID < -1 || c.BootstrapID > 65535 {
		return fmt.Errorf("bootstrap ID must be between 0 and 65535 (or -1 to derive), got %d", c.BootstrapID)
	}
	if c.CacheSlots <= 0 {
		return fmt.Errorf("cache slots must be positive, got %d", c.CacheSlots)
	}
	if c.CacheValidity <= 0 {
		return fmt.Errorf("cache validity must be positive, got %s", c.CacheValidity)
	}
	return nil
}
