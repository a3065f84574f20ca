package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigPassesValidate(t *testing.T) {
	cfg := defaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{Session: SessionConfig{Name: "heist-level", MaxUsers: 4}}
	applyDefaults(cfg)
	if cfg.Session.Name != "heist-level" || cfg.Session.MaxUsers != 4 {
		t.Fatalf("explicit values were overwritten: %+v", cfg.Session)
	}
	if cfg.Session.HeartbeatInterval == 0 {
		t.Fatal("unset HeartbeatInterval should still receive a default")
	}
}

func TestValidateRejectsOversizedMaxUsers(t *testing.T) {
	cfg := defaultConfig()
	cfg.Session.MaxUsers = 999
	if err := Validate(cfg); err == nil {
		t.Fatal("expected Validate to reject max_users above opmodel.MaxUsers")
	}
}

func TestValidateRejectsUnknownNetworkMode(t *testing.T) {
	cfg := defaultConfig()
	cfg.Network.Mode = "carrier-pigeon"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected Validate to reject an unrecognized network mode")
	}
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.Name != defaultSessionName {
		t.Fatalf("expected default session name, got %q", cfg.Session.Name)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := "session:\n  name: lobby\n  max_users: 8\nnetwork:\n  mode: p2p\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.Name != "lobby" || cfg.Session.MaxUsers != 8 {
		t.Fatalf("unexpected session config: %+v", cfg.Session)
	}
	if cfg.Network.Mode != "p2p" {
		t.Fatalf("expected network.mode=p2p, got %q", cfg.Network.Mode)
	}
	// fields absent from the file still receive defaults.
	if cfg.Session.HeartbeatInterval != defaultHeartbeatInterval {
		t.Fatalf("expected default heartbeat interval, got %v", cfg.Session.HeartbeatInterval)
	}
}

func TestSaveConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Session.Name = "roundtrip"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Session.Name != "roundtrip" {
		t.Fatalf("expected roundtripped session name, got %q", loaded.Session.Name)
	}
}
