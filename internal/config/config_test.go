package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultMaxAgeDays != 7 {
		t.Errorf("DefaultMaxAgeDays = %d, want 7", cfg.DefaultMaxAgeDays)
	}
	if cfg.FetchTimeout() != 30*time.Second {
		t.Errorf("FetchTimeout() = %v, want 30s", cfg.FetchTimeout())
	}
	if cfg.HostInterval() != 500*time.Millisecond {
		t.Errorf("HostInterval() = %v, want 500ms", cfg.HostInterval())
	}
	if cfg.UserAgent == "" {
		t.Error("UserAgent should have a default")
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"default_max_age_days": 14, "user_agent": "test-agent"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultMaxAgeDays != 14 {
		t.Errorf("DefaultMaxAgeDays = %d, want 14", cfg.DefaultMaxAgeDays)
	}
	if cfg.UserAgent != "test-agent" {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, "test-agent")
	}
	if cfg.FetchTimeoutSeconds != 30 {
		t.Errorf("FetchTimeoutSeconds = %d, want 30 (default kept)", cfg.FetchTimeoutSeconds)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"disabled_tools": ["data_clear", " feed_delete ", ""]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools = %v, want 2 entries", cfg.DisabledTools)
	}
	if cfg.DisabledTools[0] != "data_clear" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "data_clear")
	}
	if cfg.DisabledTools[1] != "feed_delete" {
		t.Errorf("DisabledTools[1] = %q, want %q", cfg.DisabledTools[1], "feed_delete")
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{DefaultMaxAgeDays: 7, DBMaxOpenConns: 5}
	overlay := &Config{DefaultMaxAgeDays: 3}

	result := Merge(base, overlay)

	if result.DefaultMaxAgeDays != 3 {
		t.Errorf("DefaultMaxAgeDays = %d, want 3 (overlay)", result.DefaultMaxAgeDays)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
}

func TestMerge_NegativeIgnored(t *testing.T) {
	result := Merge(DefaultConfig(), &Config{HostIntervalMS: -1})
	if result.HostIntervalMS != 500 {
		t.Errorf("HostIntervalMS = %d, want 500", result.HostIntervalMS)
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTypes: []string{"note", "data"}}
	overlay := &Config{DisabledTypes: []string{"data", "tag"}}

	result := Merge(base, overlay)

	want := []string{"note", "data", "tag"}
	if len(result.DisabledTypes) != len(want) {
		t.Fatalf("DisabledTypes = %v, want %v", result.DisabledTypes, want)
	}
	for i := range want {
		if result.DisabledTypes[i] != want[i] {
			t.Errorf("DisabledTypes[%d] = %q, want %q", i, result.DisabledTypes[i], want[i])
		}
	}
}

func TestMerge_AllowedPaths(t *testing.T) {
	base := &Config{AllowedPaths: []string{"/srv/exports"}}
	overlay := &Config{AllowedPaths: []string{"/srv/exports", "/backup"}, AllowUnsafePaths: true}

	result := Merge(base, overlay)

	if len(result.AllowedPaths) != 2 || result.AllowedPaths[1] != "/backup" {
		t.Errorf("AllowedPaths = %v, want [/srv/exports /backup]", result.AllowedPaths)
	}
	if !result.AllowUnsafePaths {
		t.Error("AllowUnsafePaths should carry over from overlay")
	}
}

func TestLegacyPath(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.LegacyPath("/data"); got != filepath.Join("/data", LegacyDataFile) {
		t.Errorf("LegacyPath() = %q, want default file in data dir", got)
	}

	cfg.LegacyDataPath = "/elsewhere/export.json"
	if got := cfg.LegacyPath("/data"); got != "/elsewhere/export.json" {
		t.Errorf("LegacyPath() = %q, want configured path", got)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
