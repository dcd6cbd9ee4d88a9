package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestNotifySocketPath(t *testing.T) {
	cfg := DefaultConfig
	cfg.Runtime.Dir = "/run/systemd/sysupdate"
	cfg.Runtime.NotifySocketName = "notify"
	if got, want := cfg.NotifySocketPath(), "/run/systemd/sysupdate/notify"; got != want {
		t.Errorf("NotifySocketPath() = %q, want %q", got, want)
	}
}

func TestValidateRejectsEmptyFields(t *testing.T) {
	cfg := DefaultConfig
	cfg.Worker.BinaryPath = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty worker binary path")
	}
}

func TestLoadConfigAppliesEnvOverrides(t *testing.T) {
	t.Setenv("SYSTEMD_SYSUPDATE_PATH", "/opt/testing/sysupdate")
	t.Setenv("SYSTEMD_SYSUPDATE_SKIP_VERIFY", "1")
	t.Setenv("UPDATED_CONFIG", "")

	cfg, _, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Worker.BinaryPath != "/opt/testing/sysupdate" {
		t.Errorf("BinaryPath = %q, want override", cfg.Worker.BinaryPath)
	}
	if !cfg.Worker.SkipVerify {
		t.Error("expected SkipVerify to be set from environment")
	}
}

func TestLoadConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "updated.yaml")
	const body = "runtime:\n  quiescence_timeout: 30s\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	t.Setenv("UPDATED_CONFIG", path)

	cfg, loadedPath, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loadedPath != path {
		t.Errorf("loaded path = %q, want %q", loadedPath, path)
	}
	if cfg.Runtime.QuiescenceTimeout.String() != "30s" {
		t.Errorf("QuiescenceTimeout = %v, want 30s", cfg.Runtime.QuiescenceTimeout)
	}
}
