// Package config provides configuration loading and structs for the kura server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Resources ResourcesConfig `yaml:"resources"`
	Search    SearchConfig    `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the resource storage root and the analytics database path.
type StorageConfig struct {
	ResourcesPath   string `yaml:"resources_path"`
	AnalyticsDBPath string `yaml:"analytics_db_path"`
}

// ResourcesConfig holds resource lifecycle settings.
type ResourcesConfig struct {
	ExpiryHours int `yaml:"expiry_hours"`
}

// TTL returns the configured resource time-to-live as a duration.
func (r *ResourcesConfig) TTL() time.Duration {
	return time.Duration(r.ExpiryHours) * time.Hour
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultLimit   int     `yaml:"default_limit"`
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.ResourcesPath = expandPath(cfg.Storage.ResourcesPath, configDir)
	cfg.Storage.AnalyticsDBPath = expandPath(cfg.Storage.AnalyticsDBPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
