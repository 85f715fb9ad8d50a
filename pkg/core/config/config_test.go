package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[general]
name = "airlock"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8980 {
		t.Errorf("default port = %d, want 8980", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout.Duration != 30*time.Second {
		t.Errorf("default read timeout = %v, want 30s", cfg.Server.ReadTimeout.Duration)
	}
	if cfg.Audit.StorePath != filepath.Join("./data", "audit.db") {
		t.Errorf("default store path = %q", cfg.Audit.StorePath)
	}
	if cfg.General.LogLevel != "info" {
		t.Errorf("default log level = %q, want info", cfg.General.LogLevel)
	}
}

func TestLoadParsesValues(t *testing.T) {
	path := writeConfig(t, `
[general]
log_level = "debug"
data_dir = "/var/lib/airlock"

[server]
port = 9000
host = "0.0.0.0"
read_timeout = "5s"

[audit]
store_path = "/var/lib/airlock/audit.db"

[engine]
step_timeout = "10s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddress() != "0.0.0.0:9000" {
		t.Errorf("ListenAddress = %q", cfg.ListenAddress())
	}
	if cfg.Server.ReadTimeout.Duration != 5*time.Second {
		t.Errorf("read timeout = %v, want 5s", cfg.Server.ReadTimeout.Duration)
	}
	if cfg.Engine.StepTimeout.Duration != 10*time.Second {
		t.Errorf("step timeout = %v, want 10s", cfg.Engine.StepTimeout.Duration)
	}
	if cfg.Audit.StorePath != "/var/lib/airlock/audit.db" {
		t.Errorf("store path = %q", cfg.Audit.StorePath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeConfig(t, `[general`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFromEnvFallsBackToDefaults(t *testing.T) {
	t.Setenv("AIRLOCK_CONFIG", "")
	dir := t.TempDir()
	old, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(old)
	t.Setenv("HOME", dir)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.General.Name != "airlock" {
		t.Errorf("name = %q, want airlock", cfg.General.Name)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("AIRLOCK_DATA", "/srv/airlock")
	path := writeConfig(t, `
[general]
data_dir = "$AIRLOCK_DATA"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.DataDir != "/srv/airlock" {
		t.Errorf("data dir = %q, want /srv/airlock", cfg.General.DataDir)
	}
}
