// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authenticator.
//
// go-authenticator is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AUTHENTICATOR_"

// DefaultPasswordEnv names the variable holding the key store passphrase.
const DefaultPasswordEnv = EnvPrefix + "KEYSTORE_PASSWORD"

// Config represents the complete authenticator configuration
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
	KeyStore KeyStoreConfig `yaml:"keystore"`
	Signing  SigningConfig  `yaml:"signing"`
	HTTP     HTTPConfig     `yaml:"http"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig selects where keys and connections are persisted
type StorageConfig struct {
	// Backend is memory, file or badger.
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`

	// EncryptConnections keeps connection records in a separate badger
	// database encrypted with a key held in the key store.
	EncryptConnections bool `yaml:"encrypt_connections"`

	SyncWrites bool `yaml:"sync_writes"`
}

// KeyStoreConfig controls key generation and protection at rest
type KeyStoreConfig struct {
	KeySize int `yaml:"key_size"`

	// PasswordEnv names the environment variable holding the passphrase
	// that encrypts private keys. Keys are stored unencrypted when the
	// variable is unset.
	PasswordEnv string `yaml:"password_env"`
}

// SigningConfig sets the static request headers
type SigningConfig struct {
	Language          string `yaml:"language"`
	GeoLocation       string `yaml:"geo_location"`
	AuthorizationType string `yaml:"authorization_type"`
}

// HTTPConfig controls the provider HTTP client
type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	TLS     TLSConfig     `yaml:"tls"`
}

// MetricsConfig toggles Prometheus instrumentation
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Storage:  StorageConfig{Backend: "file", Path: defaultDataDir()},
		KeyStore: KeyStoreConfig{KeySize: 2048, PasswordEnv: DefaultPasswordEnv},
		Signing:  SigningConfig{Language: "en"},
		HTTP:     HTTPConfig{Timeout: 30 * time.Second},
		Metrics:  MetricsConfig{Enabled: true},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "authenticator")
	}
	return ".authenticator"
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 - Config file path is provided by the user
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies AUTHENTICATOR_* environment variables
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv(EnvPrefix + "STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv(EnvPrefix + "STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv(EnvPrefix + "ENCRYPT_CONNECTIONS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("Warning: invalid %sENCRYPT_CONNECTIONS value %q, using %t: %v",
				EnvPrefix, v, cfg.Storage.EncryptConnections, err)
		} else {
			cfg.Storage.EncryptConnections = b
		}
	}
	if v := os.Getenv(EnvPrefix + "KEY_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Warning: invalid %sKEY_SIZE value %q, using default %d: %v",
				EnvPrefix, v, cfg.KeyStore.KeySize, err)
		} else {
			cfg.KeyStore.KeySize = size
		}
	}
	if v := os.Getenv(EnvPrefix + "LANGUAGE"); v != "" {
		cfg.Signing.Language = v
	}
	if v := os.Getenv(EnvPrefix + "GEO_LOCATION"); v != "" {
		cfg.Signing.GeoLocation = v
	}
	if v := os.Getenv(EnvPrefix + "HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("Warning: invalid %sHTTP_TIMEOUT value %q, using default %s: %v",
				EnvPrefix, v, cfg.HTTP.Timeout, err)
		} else {
			cfg.HTTP.Timeout = d
		}
	}
	if v := os.Getenv(EnvPrefix + "METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("Warning: invalid %sMETRICS_ENABLED value %q, using %t: %v",
				EnvPrefix, v, cfg.Metrics.Enabled, err)
		} else {
			cfg.Metrics.Enabled = b
		}
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	switch c.Storage.Backend {
	case "memory":
		if c.Storage.EncryptConnections {
			return fmt.Errorf("encrypt_connections requires a persistent storage backend")
		}
	case "file", "badger":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the %s backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be memory, file or badger)", c.Storage.Backend)
	}

	if c.KeyStore.KeySize != 0 && c.KeyStore.KeySize < 2048 {
		return fmt.Errorf("key size %d is below the 2048-bit minimum", c.KeyStore.KeySize)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if err := c.HTTP.TLS.validate(); err != nil {
		return err
	}
	return nil
}

// Password returns the key store passphrase from the environment, or nil.
func (c *KeyStoreConfig) Password() []byte {
	name := c.PasswordEnv
	if name == "" {
		name = DefaultPasswordEnv
	}
	if v := os.Getenv(name); v != "" {
		return []byte(v)
	}
	return nil
}

// ConnectionsPath is the directory of the encrypted connection database.
func (c *StorageConfig) ConnectionsPath() string {
	return filepath.Join(c.Path, "connections")
}

// KeysPath is the directory of the key store.
func (c *StorageConfig) KeysPath() string {
	return filepath.Join(c.Path, "keys")
}
