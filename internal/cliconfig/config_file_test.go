package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadFileConfig(t *testing.T) {
	path := writeConfigFile(t, `
grace_period = "5s"
stop_timeout = "30s"
heartbeat = false
heartbeat_interval = "1m"
watch_dirs = ["/etc/sensord", "/opt/sensord"]
log_level = "debug"
`)

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.GracePeriod != "5s" {
		t.Errorf("GracePeriod = %q, want 5s", fc.GracePeriod)
	}
	if fc.Heartbeat == nil || *fc.Heartbeat {
		t.Errorf("Heartbeat = %v, want false", fc.Heartbeat)
	}
	if len(fc.WatchDirs) != 2 {
		t.Errorf("WatchDirs = %v, want two entries", fc.WatchDirs)
	}
	if fc.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", fc.LogLevel)
	}
}

func TestLoadFileConfig_Missing(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("LoadFileConfig() error = nil for missing file, want error")
	}
}

func TestLoadFileConfig_Malformed(t *testing.T) {
	path := writeConfigFile(t, `grace_period = [broken`)
	if _, err := LoadFileConfig(path); err == nil {
		t.Error("LoadFileConfig() error = nil for malformed TOML, want error")
	}
}

func TestApplyFileConfig(t *testing.T) {
	cfg := DefaultConfig()
	hb := false
	fc := FileConfig{
		GracePeriod:       "5s",
		StopTimeout:       "30s",
		Heartbeat:         &hb,
		HeartbeatInterval: "1m",
		WatchDirs:         []string{"/etc/sensord"},
		LogLevel:          "debug",
	}

	if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err != nil {
		t.Fatalf("ApplyFileConfig() error = %v", err)
	}

	if cfg.GracePeriod != 5*time.Second {
		t.Errorf("GracePeriod = %v, want 5s", cfg.GracePeriod)
	}
	if cfg.StopTimeout != 30*time.Second {
		t.Errorf("StopTimeout = %v, want 30s", cfg.StopTimeout)
	}
	if cfg.Heartbeat {
		t.Error("Heartbeat = true, want false")
	}
	if cfg.HeartbeatInterval != time.Minute {
		t.Errorf("HeartbeatInterval = %v, want 1m", cfg.HeartbeatInterval)
	}
	if len(cfg.WatchDirs) != 1 || cfg.WatchDirs[0] != "/etc/sensord" {
		t.Errorf("WatchDirs = %v, want [/etc/sensord]", cfg.WatchDirs)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestApplyFileConfig_FlagWins(t *testing.T) {
	cfg := DefaultConfig()
	fc := FileConfig{GracePeriod: "5s", LogLevel: "debug"}
	changed := map[string]bool{"grace-period": true}

	if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
		t.Fatalf("ApplyFileConfig() error = %v", err)
	}

	if cfg.GracePeriod != 2*time.Second {
		t.Errorf("GracePeriod = %v, want flag value 2s kept", cfg.GracePeriod)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug from file", cfg.LogLevel)
	}
}

func TestApplyFileConfig_InvalidDuration(t *testing.T) {
	cfg := DefaultConfig()
	fc := FileConfig{StopTimeout: "soon"}
	if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err == nil {
		t.Error("ApplyFileConfig() error = nil for invalid duration, want error")
	}
}

func TestFileExists(t *testing.T) {
	path := writeConfigFile(t, "")
	if !FileExists(path) {
		t.Errorf("FileExists(%q) = false, want true", path)
	}
	if FileExists(filepath.Join(t.TempDir(), "missing.toml")) {
		t.Error("FileExists() = true for missing file, want false")
	}
	if FileExists(t.TempDir()) {
		t.Error("FileExists() = true for directory, want false")
	}
}
