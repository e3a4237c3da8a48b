// Package config handles biomectl configuration using Viper.
//
// Configuration sources (in priority order):
//  1. Environment variables (BIOME_*)
//  2. Config file (~/.config/biomectl/config.yaml)
//  3. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/biomelabs/biomectl/internal/paths"
)

const (
	// DefaultEnginePort is the port the self-managed engine server listens on.
	DefaultEnginePort = 7987
	// DefaultHostedPort is the port a hosted GPU server listens on.
	DefaultHostedPort = 8082
	// DefaultHostedHost is the default hosted GPU server host.
	DefaultHostedHost = "localhost"
	// DefaultModel is the model the engine loads when none is configured.
	DefaultModel = "Overworld/Waypoint-1-Small"

	// ModeStandalone runs and supervises a local engine server.
	ModeStandalone = "standalone"
	// ModeHosted connects to an externally-managed GPU server.
	ModeHosted = "hosted"
)

// Config holds the biomectl configuration.
type Config struct {
	v *viper.Viper
}

// Load reads configuration from all sources.
func Load() *Config {
	v := viper.New()

	v.SetDefault("gpu_server.host", DefaultHostedHost)
	v.SetDefault("gpu_server.port", DefaultHostedPort)
	v.SetDefault("gpu_server.use_ssl", false)
	v.SetDefault("features.engine_mode", ModeStandalone)
	v.SetDefault("features.prompt_sanitizer", true)
	v.SetDefault("features.seed_generation", true)
	v.SetDefault("engine.port", DefaultEnginePort)
	v.SetDefault("engine.model", DefaultModel)
	v.SetDefault("engine.models", []string{DefaultModel})

	if dir, err := paths.ConfigRoot(); err == nil {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("BIOME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found, but warn on other errors)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}

	return &Config{v: v}
}

// Get returns a configuration value.
func (c *Config) Get(key string) interface{} {
	return c.v.Get(key)
}

// GetString returns a configuration value as string.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt returns a configuration value as int.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetBool returns a configuration value as bool.
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// Set sets a configuration value and persists it.
func (c *Config) Set(key string, value interface{}) error {
	c.v.Set(key, value)

	dir, err := paths.ConfigRoot()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	return c.v.WriteConfigAs(filepath.Join(dir, "config.yaml"))
}

// All returns all configuration as a map.
func (c *Config) All() map[string]interface{} {
	return c.v.AllSettings()
}

// Path returns the config file path (whether or not it exists yet).
func (c *Config) Path() string {
	if used := c.v.ConfigFileUsed(); used != "" {
		return used
	}

	dir, err := paths.ConfigRoot()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "config.yaml")
}

// EngineMode returns the configured engine mode (standalone or hosted).
func (c *Config) EngineMode() string {
	return c.GetString("features.engine_mode")
}

// EnginePort returns the local engine server port.
func (c *Config) EnginePort() int {
	return c.GetInt("engine.port")
}

// Model returns the configured model identifier.
func (c *Config) Model() string {
	return c.GetString("engine.model")
}

// AvailableModels returns the models offered by the session picker. The
// configured model is always part of the list.
func (c *Config) AvailableModels() []string {
	models := c.v.GetStringSlice("engine.models")

	current := c.Model()
	for _, name := range models {
		if name == current {
			return models
		}
	}

	return append([]string{current}, models...)
}

// HostedHost returns the hosted GPU server host.
func (c *Config) HostedHost() string {
	return c.GetString("gpu_server.host")
}

// HostedPort returns the hosted GPU server port.
func (c *Config) HostedPort() int {
	return c.GetInt("gpu_server.port")
}

// HostedUseSSL reports whether the hosted GPU server uses TLS.
func (c *Config) HostedUseSSL() bool {
	return c.GetBool("gpu_server.use_ssl")
}

// CredentialToken returns the token stored in the config file, if any.
// Most callers should go through the auth package, which also consults
// the environment and the OS keyring.
func (c *Config) CredentialToken() string {
	return c.GetString("api_keys.credential_token")
}

// RealtimeURL returns the websocket URL for the given mode and port.
func (c *Config) RealtimeURL(mode string, port int) string {
	if mode == ModeHosted {
		scheme := "ws"
		if c.HostedUseSSL() {
			scheme = "wss"
		}

		return fmt.Sprintf("%s://%s:%d/ws", scheme, c.HostedHost(), c.HostedPort())
	}

	return fmt.Sprintf("ws://localhost:%d/ws", port)
}

// AdminURL returns the hosted server's administrative HTTP base URL.
func (c *Config) AdminURL() string {
	scheme := "http"
	if c.HostedUseSSL() {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s:%d", scheme, c.HostedHost(), c.HostedPort())
}
