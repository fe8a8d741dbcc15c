package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chantierpro/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.BasePath != "/v1" {
		t.Fatalf("unexpected defaults: %+v", cfg.Server)
	}
}

func TestTokenTTLFallsBack(t *testing.T) {
	var cfg config.Config
	if got := cfg.TokenTTL(); got != 24*time.Hour {
		t.Fatalf("empty ttl should default to 24h, got %s", got)
	}
	cfg.Auth.TokenTTL = "90m"
	if got := cfg.TokenTTL(); got != 90*time.Minute {
		t.Fatalf("expected 90m, got %s", got)
	}
	cfg.Auth.TokenTTL = "-1h"
	if got := cfg.TokenTTL(); got != 24*time.Hour {
		t.Fatalf("non-positive ttl should default, got %s", got)
	}
}

func TestFromYAMLRejectsBadValues(t *testing.T) {
	if _, err := config.FromYAML([]byte("server:\n  addr: \"\"\n")); err == nil {
		t.Fatalf("missing addr should fail")
	}
	bad := "server:\n  addr: \":8080\"\nlogging:\n  level: loud\n"
	if _, err := config.FromYAML([]byte(bad)); err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("bad level should fail, got %v", err)
	}
	badTTL := "server:\n  addr: \":8080\"\nauth:\n  token_ttl: soon\n"
	if _, err := config.FromYAML([]byte(badTTL)); err == nil {
		t.Fatalf("unparseable ttl should fail")
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := config.LoadOptional(t.TempDir())
	if err != nil || cfg != nil {
		t.Fatalf("missing file should yield nil, nil; got %v, %v", cfg, err)
	}
}

func TestGeneratedTemplateRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chantierpro.yml")
	if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("load generated template: %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected info level, got %q", cfg.Logging.Level)
	}
}
