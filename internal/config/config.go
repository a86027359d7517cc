// Copyright 2025 Joseph Cumines
//
// Configuration for the axpilot MCP server

// Package config loads axpilot configuration from an optional YAML file and
// AXPILOT_* environment variables, with environment values overriding file
// values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TransportType represents the MCP transport type
type TransportType string

const (
	// TransportStdio uses stdin/stdout for communication
	TransportStdio TransportType = "stdio"
	// TransportHTTP uses HTTP/SSE for communication
	TransportHTTP TransportType = "sse"
)

// Config holds the configuration for the axpilot MCP server.
type Config struct {
	// Accessibility bridge connection
	BridgeSocket      string
	BridgeDialTimeout time.Duration
	RequestTimeout    time.Duration

	// SettleInterval is the menu-open settle wait. Test environments set
	// this low; there is no host event to wait on instead.
	SettleInterval time.Duration

	// MCP transport
	Transport         TransportType
	HTTPAddress       string
	HTTPSocketPath    string
	HeartbeatInterval time.Duration
	CORSOrigin        string
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	RateLimit         float64

	// AuditLogPath enables JSON audit logging of tool invocations.
	AuditLogPath string

	Debug bool
}

// defaults returns the baseline configuration before file and env overrides.
func defaults() *Config {
	return &Config{
		BridgeSocket:      "/tmp/axpilot-bridge.sock",
		BridgeDialTimeout: 5 * time.Second,
		RequestTimeout:    30 * time.Second,
		SettleInterval:    150 * time.Millisecond,
		Transport:         TransportStdio,
		HTTPAddress:       ":8080",
		HeartbeatInterval: 30 * time.Second,
		CORSOrigin:        "*",
		HTTPReadTimeout:   30 * time.Second,
		HTTPWriteTimeout:  30 * time.Second,
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// AXPILOT_CONFIG (if set), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("AXPILOT_CONFIG"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fileConfig is the YAML schema. Durations are strings ("30s", "150ms")
// because yaml.v3 has no native time.Duration decoding.
type fileConfig struct {
	BridgeSocket      *string  `yaml:"bridge_socket"`
	BridgeDialTimeout *string  `yaml:"bridge_dial_timeout"`
	RequestTimeout    *string  `yaml:"request_timeout"`
	SettleInterval    *string  `yaml:"settle_interval"`
	Transport         *string  `yaml:"transport"`
	HTTPAddress       *string  `yaml:"http_address"`
	HTTPSocketPath    *string  `yaml:"http_socket"`
	HeartbeatInterval *string  `yaml:"heartbeat_interval"`
	CORSOrigin        *string  `yaml:"cors_origin"`
	HTTPReadTimeout   *string  `yaml:"http_read_timeout"`
	HTTPWriteTimeout  *string  `yaml:"http_write_timeout"`
	RateLimit         *float64 `yaml:"rate_limit"`
	AuditLogPath      *string  `yaml:"audit_log"`
	Debug             *bool    `yaml:"debug"`
}

// loadFile overlays YAML file values onto cfg. Absent keys keep their
// current values.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setDuration := func(dst *time.Duration, src *string, key string) error {
		if src == nil {
			return nil
		}
		d, err := time.ParseDuration(*src)
		if err != nil {
			return fmt.Errorf("invalid %s in config file: %q", key, *src)
		}
		*dst = d
		return nil
	}

	setString(&cfg.BridgeSocket, fc.BridgeSocket)
	setString(&cfg.HTTPAddress, fc.HTTPAddress)
	setString(&cfg.HTTPSocketPath, fc.HTTPSocketPath)
	setString(&cfg.CORSOrigin, fc.CORSOrigin)
	setString(&cfg.AuditLogPath, fc.AuditLogPath)
	if fc.Transport != nil {
		cfg.Transport = TransportType(*fc.Transport)
	}
	if fc.RateLimit != nil {
		cfg.RateLimit = *fc.RateLimit
	}
	if fc.Debug != nil {
		cfg.Debug = *fc.Debug
	}
	for _, item := range []struct {
		dst *time.Duration
		src *string
		key string
	}{
		{&cfg.BridgeDialTimeout, fc.BridgeDialTimeout, "bridge_dial_timeout"},
		{&cfg.RequestTimeout, fc.RequestTimeout, "request_timeout"},
		{&cfg.SettleInterval, fc.SettleInterval, "settle_interval"},
		{&cfg.HeartbeatInterval, fc.HeartbeatInterval, "heartbeat_interval"},
		{&cfg.HTTPReadTimeout, fc.HTTPReadTimeout, "http_read_timeout"},
		{&cfg.HTTPWriteTimeout, fc.HTTPWriteTimeout, "http_write_timeout"},
	} {
		if err := setDuration(item.dst, item.src, item.key); err != nil {
			return err
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.BridgeSocket = getEnv("AXPILOT_BRIDGE_SOCKET", cfg.BridgeSocket)
	cfg.HTTPAddress = getEnv("AXPILOT_HTTP_ADDRESS", cfg.HTTPAddress)
	cfg.HTTPSocketPath = getEnv("AXPILOT_HTTP_SOCKET", cfg.HTTPSocketPath)
	cfg.CORSOrigin = getEnv("AXPILOT_CORS_ORIGIN", cfg.CORSOrigin)
	cfg.AuditLogPath = getEnv("AXPILOT_AUDIT_LOG", cfg.AuditLogPath)
	cfg.Debug = getEnvAsBool("AXPILOT_DEBUG", cfg.Debug)

	if v := os.Getenv("AXPILOT_TRANSPORT"); v != "" {
		cfg.Transport = TransportType(v)
	}

	var err error
	if cfg.BridgeDialTimeout, err = getEnvAsDuration("AXPILOT_BRIDGE_DIAL_TIMEOUT", cfg.BridgeDialTimeout); err != nil {
		return err
	}
	if cfg.RequestTimeout, err = getEnvAsDuration("AXPILOT_REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return err
	}
	if cfg.SettleInterval, err = getEnvAsDuration("AXPILOT_SETTLE_INTERVAL", cfg.SettleInterval); err != nil {
		return err
	}
	if cfg.HeartbeatInterval, err = getEnvAsDuration("AXPILOT_HEARTBEAT_INTERVAL", cfg.HeartbeatInterval); err != nil {
		return err
	}
	if cfg.HTTPReadTimeout, err = getEnvAsDuration("AXPILOT_HTTP_READ_TIMEOUT", cfg.HTTPReadTimeout); err != nil {
		return err
	}
	if cfg.HTTPWriteTimeout, err = getEnvAsDuration("AXPILOT_HTTP_WRITE_TIMEOUT", cfg.HTTPWriteTimeout); err != nil {
		return err
	}
	if cfg.RateLimit, err = getEnvAsFloat("AXPILOT_RATE_LIMIT", cfg.RateLimit); err != nil {
		return err
	}
	return nil
}

func (cfg *Config) validate() error {
	if cfg.BridgeSocket == "" {
		return fmt.Errorf("bridge socket path cannot be empty")
	}
	if cfg.Transport != TransportStdio && cfg.Transport != TransportHTTP {
		return fmt.Errorf("invalid transport type: %s (must be 'stdio' or 'sse')", cfg.Transport)
	}
	if cfg.SettleInterval <= 0 {
		return fmt.Errorf("settle interval must be positive, got %s", cfg.SettleInterval)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", cfg.RequestTimeout)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var result float64
	if _, err := fmt.Sscanf(value, "%g", &result); err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected number)", key, value)
	}
	return result, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected duration, e.g., '30s', '5m')", key, value)
	}
	return d, nil
}
