package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 3000 {
		t.Errorf("default port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("default driver = %q, want sqlite", cfg.Store.Driver)
	}
	if cfg.Auth.SessionTTL != "24h" {
		t.Errorf("default session TTL = %q, want 24h", cfg.Auth.SessionTTL)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default log level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keysmith.yaml")

	content := `
server:
  port: 8080
  rate_limit_per_minute: 60
store:
  driver: postgres
  dsn: postgres://localhost/keysmith
auth:
  jwt_secret: file-secret
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("driver = %q, want postgres", cfg.Store.Driver)
	}
	if cfg.Auth.JWTSecret != "file-secret" {
		t.Errorf("jwt secret = %q, want file-secret", cfg.Auth.JWTSecret)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q, want default 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q, want default info", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("2h", time.Minute); got != 2*time.Hour {
		t.Errorf("Duration(2h) = %v, want 2h", got)
	}
	if got := Duration("", time.Minute); got != time.Minute {
		t.Errorf("Duration(empty) = %v, want fallback", got)
	}
	if got := Duration("junk", time.Minute); got != time.Minute {
		t.Errorf("Duration(junk) = %v, want fallback", got)
	}
}
