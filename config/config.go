// Package config holds SDK connection defaults and the small file-backed
// key-value store the example scripts use to hand values to each other.
package config

import "time"

// Default values
const (
	DefaultEndpoint    = "wss://testnet.ledgerline.io:51233"
	DefaultTimeout     = 30 * time.Second
	DefaultDialRetries = 3
)

// Config holds the connection settings for a ledger node.
type Config struct {
	Endpoint    string
	Timeout     time.Duration
	DialRetries uint64
}

// New creates a new Config instance with the provided values.
// If a value is empty/zero, it will use the default value.
// Pass an empty Config{} to use all defaults.
func New(cfg Config) *Config {
	result := &Config{
		Endpoint:    DefaultEndpoint,
		Timeout:     DefaultTimeout,
		DialRetries: DefaultDialRetries,
	}

	if cfg.Endpoint != "" {
		result.Endpoint = cfg.Endpoint
	}
	if cfg.Timeout != 0 {
		result.Timeout = cfg.Timeout
	}
	if cfg.DialRetries != 0 {
		result.DialRetries = cfg.DialRetries
	}

	return result
}
