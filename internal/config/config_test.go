package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  resources_path: "resources"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.ResourcesPath == "" {
		t.Error("resources_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "localhost"
  port: 8080
storage:
  resources_path: "./data/resources"
  analytics_db_path: "./data/analytics.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantResources := filepath.Join(dir, "data", "resources")
	if cfg.Storage.ResourcesPath != wantResources {
		t.Errorf("resources_path = %s, want %s", cfg.Storage.ResourcesPath, wantResources)
	}
	wantDB := filepath.Join(dir, "data", "analytics.db")
	if cfg.Storage.AnalyticsDBPath != wantDB {
		t.Errorf("analytics_db_path = %s, want %s", cfg.Storage.AnalyticsDBPath, wantDB)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Resources.ExpiryHours != 24 {
		t.Errorf("default expiry_hours: got %d, want 24", cfg.Resources.ExpiryHours)
	}
	if cfg.Search.DefaultLimit != 10 {
		t.Errorf("default limit: got %d", cfg.Search.DefaultLimit)
	}
	if cfg.Search.FuzzyThreshold != 0.6 {
		t.Errorf("default fuzzy_threshold: got %f, want 0.6", cfg.Search.FuzzyThreshold)
	}
	if cfg.Storage.ResourcesPath == "" {
		t.Error("resources_path should be set by default")
	}
}

func TestResourcesConfig_TTL(t *testing.T) {
	r := &ResourcesConfig{ExpiryHours: 24}
	if got := r.TTL(); got != 24*time.Hour {
		t.Errorf("TTL() = %v, want 24h", got)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{ResourcesPath: "/tmp/resources"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
