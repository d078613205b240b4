package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesFileEnvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
database:
  dsn: "file:prio.db"
jwt:
  secret: "file-secret"
  expiry: "2h"
ai:
  base-url: "https://ai.example.com/v1beta/"
`)
	if errWrite := os.WriteFile(path, content, 0o644); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	t.Setenv("PRIO_JWT_SECRET", "env-secret")

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Database.DSN != "file:prio.db" {
		t.Fatalf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Server.Addr != defaultServerAddr {
		t.Fatalf("server addr = %q, want default", cfg.Server.Addr)
	}
	if cfg.AI.BaseURL != "https://ai.example.com/v1beta" {
		t.Fatalf("ai base url = %q", cfg.AI.BaseURL)
	}
	if cfg.AI.Model != defaultAIModel {
		t.Fatalf("ai model = %q", cfg.AI.Model)
	}

	jwtCfg, errJWT := cfg.JWTConfig()
	if errJWT != nil {
		t.Fatalf("jwt config: %v", errJWT)
	}
	if jwtCfg.Secret != "env-secret" {
		t.Fatalf("jwt secret = %q, want env override", jwtCfg.Secret)
	}
	if jwtCfg.Expiry != 2*time.Hour {
		t.Fatalf("jwt expiry = %s", jwtCfg.Expiry)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, errLoad := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if _, errJWT := cfg.JWTConfig(); errJWT == nil {
		t.Fatalf("expected error for empty jwt secret")
	}
	if cfg.AITimeout() != defaultAITimeout {
		t.Fatalf("ai timeout = %s", cfg.AITimeout())
	}
}

func TestLoadDatabaseDSNRequiresValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte("server:\n  addr: \":9000\"\n"), 0o644); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	if _, err := LoadDatabaseDSN(path); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
