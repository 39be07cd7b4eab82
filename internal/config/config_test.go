package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
search:
  default_limit: 20
  timezone: "Europe/Berlin"
log:
  level: warn
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("unexpected server addr: %s", cfg.Server.Addr())
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Search.DefaultLimit != 20 {
		t.Errorf("default_limit = %d", cfg.Search.DefaultLimit)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if !cfg.Metrics.EnabledOrDefault() || cfg.Metrics.Path != "/metrics" {
		t.Errorf("metrics defaults: %+v", cfg.Metrics)
	}
}

func TestLoad_debugTrue(t *testing.T) {
	path := writeConfig(t, `
debug: true
storage:
  database_path: "test.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/gatherings.db"
import:
  directories: ["./seed"]
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "gatherings.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if len(cfg.Import.Directories) != 1 {
		t.Fatalf("import directories: got %d", len(cfg.Import.Directories))
	}
	if want := filepath.Join(dir, "seed"); cfg.Import.Directories[0] != want {
		t.Errorf("import directory = %s, want %s", cfg.Import.Directories[0], want)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "server: [unclosed"},
		{"bad port", "server:\n  port: 70000\n"},
		{"bad timezone", "search:\n  timezone: Mars/Olympus\n"},
		{"bad metrics path", "metrics:\n  path: metrics\n"},
		{"bad extension", "import:\n  extensions: [yaml]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
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
	if cfg.Search.DefaultLimit != 50 {
		t.Errorf("default limit: got %d", cfg.Search.DefaultLimit)
	}
	if cfg.Search.Timezone != "Local" {
		t.Errorf("default timezone: got %q", cfg.Search.Timezone)
	}
	if len(cfg.Import.Extensions) != 3 || cfg.Import.Extensions[2] != ".xlsx" {
		t.Errorf("import extensions: got %v", cfg.Import.Extensions)
	}
	if cfg.Import.Recursive != nil {
		t.Error("recursive should stay unset without directories")
	}
}

func TestApplyDefaults_ImportRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Import: ImportConfig{Directories: []string{"/tmp/seed"}}}
	ApplyDefaults(cfg)
	if cfg.Import.Recursive == nil || !*cfg.Import.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestImportConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		i := &ImportConfig{}
		if got := i.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		i := &ImportConfig{Recursive: &f}
		if got := i.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestSearchConfig_Location(t *testing.T) {
	loc, err := SearchConfig{Timezone: "Local"}.Location()
	if err != nil || loc != time.Local {
		t.Errorf("Local: got %v, %v", loc, err)
	}
	loc, err = SearchConfig{Timezone: "UTC"}.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("UTC: got %v, %v", loc, err)
	}
}
