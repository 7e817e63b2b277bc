package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 || cfg.Mode != "release" {
		t.Errorf("port %d mode %q", cfg.Port, cfg.Mode)
	}
	if cfg.MaxPlayers != 8 {
		t.Errorf("max players = %d", cfg.MaxPlayers)
	}
	if cfg.PhaseTimeout != 0 || cfg.IdleRoomTTL != 10*time.Minute || cfg.PingPeriod != 54*time.Second {
		t.Errorf("durations = %v %v %v", cfg.PhaseTimeout, cfg.IdleRoomTTL, cfg.PingPeriod)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_ENV", "missing")
	t.Setenv("HEIST_PORT", "9090")
	t.Setenv("HEIST_PHASE_TIMEOUT", "90s")
	t.Setenv("HEIST_MAX_PLAYERS", "6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.PhaseTimeout != 90*time.Second {
		t.Errorf("phase timeout = %v", cfg.PhaseTimeout)
	}
	if cfg.MaxPlayers != 6 {
		t.Errorf("max players = %d", cfg.MaxPlayers)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	body := "mode: debug\nport: 7000\nphase_timeout: 2m\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("CONFIG_ENV", "test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "debug" || cfg.Port != 7000 || cfg.PhaseTimeout != 2*time.Minute {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.SendBuffer != 64 {
		t.Errorf("send buffer default lost: %d", cfg.SendBuffer)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"HEIST_MAX_PLAYERS", "9"},
		{"HEIST_MAX_PLAYERS", "3"},
		{"HEIST_PORT", "70000"},
		{"HEIST_PHASE_TIMEOUT", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("CONFIG_ENV", "missing")
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%s accepted", tt.key, tt.value)
			}
		})
	}
}
