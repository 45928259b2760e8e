/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the brokerdb configuration
type Config struct {
	Persistence Persistence `yaml:"persistence"`
	Server      Server      `yaml:"server"`
	Logging     Logging     `yaml:"logging"`
}

// Persistence describes where and how checkpoints are written
type Persistence struct {
	DataDir    string `yaml:"data_dir"`
	FileName   string `yaml:"file_name"`
	BufferSize int    `yaml:"buffer_size"`
	Fsync      bool   `yaml:"fsync"`
	ArchiveDir string `yaml:"archive_dir"`
}

// Server contains the inspection API configuration
type Server struct {
	Bind   string `yaml:"bind"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Persistence: Persistence{
			DataDir:    "./data",
			FileName:   "mosquitto.db",
			BufferSize: 64 * 1024,
			Fsync:      true,
		},
		Server: Server{
			Bind: "127.0.0.1",
			Port: 9200,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Validate checks the configuration for values the rest of brokerdb cannot
// work with
func (c *Config) Validate() error {
	if c.Persistence.FileName == "" {
		return fmt.Errorf("persistence.file_name is required")
	}
	if filepath.Base(c.Persistence.FileName) != c.Persistence.FileName {
		return fmt.Errorf("persistence.file_name must not contain a directory: %s", c.Persistence.FileName)
	}
	if c.Persistence.BufferSize < 0 {
		return fmt.Errorf("persistence.buffer_size must not be negative: %d", c.Persistence.BufferSize)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// CheckpointPath returns the full path of the persistence file
func (c *Config) CheckpointPath() string {
	return filepath.Join(c.Persistence.DataDir, c.Persistence.FileName)
}

// LoadConfig loads configuration from the specified path. Keys missing from
// the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration with a freshly generated API
// key to configPath
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.Persistence.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./brokerdb.yaml"
	}

	// For Linux/macOS, use ~/.config/brokerdb/config.yaml
	configDir := filepath.Join(homeDir, ".config", "brokerdb")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
