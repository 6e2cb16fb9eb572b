package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, info, err := LoadConfigWithInfo(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if info.Found || info.PortSpecified {
		t.Fatalf("unexpected info: %+v", info)
	}
	if !cfg.Updater.Recursive || cfg.Updater.ESPolicy != "keyword" || cfg.Updater.BlankPolicy != "clear" {
		t.Fatalf("unexpected updater defaults: %+v", cfg.Updater)
	}
	if cfg.Server.Port != 20262 {
		t.Fatalf("port=%d", cfg.Server.Port)
	}
}

func TestLoadConfig_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
port = 8088

[updater]
recursive = false
es_policy = "fixed"
blank_policy = "keep"
log_dir = "/var/log/projinfo"
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PROJINFO_LOG_DIR", "/tmp/override")

	cfg, info, err := LoadConfigWithInfo(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !info.Found || !info.PortSpecified {
		t.Fatalf("unexpected info: %+v", info)
	}
	if cfg.Server.Port != 8088 || cfg.Updater.Recursive || cfg.Updater.ESPolicy != "fixed" || cfg.Updater.BlankPolicy != "keep" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Updater.LogDir != "/tmp/override" {
		t.Fatalf("log dir=%s", cfg.Updater.LogDir)
	}
	if cfg.Data.DataDir != "data" {
		t.Fatalf("data dir default lost: %s", cfg.Data.DataDir)
	}
}

func TestLoadConfig_RejectsUnknownPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[updater]\nes_policy = \"guess\"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for unknown es_policy")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Updater.ESPolicy = "fixed"
	cfg.Notify.Enabled = true
	cfg.Notify.SMTPServer = "smtp.example.com"
	cfg.Notify.To = "pm@example.com"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Updater.ESPolicy != "fixed" || !loaded.Notify.Enabled || loaded.Notify.To != "pm@example.com" {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestResolveDirs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Updater.LogDir = filepath.Join(t.TempDir(), "logs")
	if got := LogDir(cfg); got != cfg.Updater.LogDir {
		t.Fatalf("absolute log dir changed: %s", got)
	}
	cfg.Data.DataDir = t.TempDir()
	dir, err := EnsureDataDir(cfg)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if dir != cfg.Data.DataDir || DBPath(cfg) != filepath.Join(dir, "projinfo.db") {
		t.Fatalf("dir=%s db=%s", dir, DBPath(cfg))
	}
}
