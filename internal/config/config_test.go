package config

import (
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(write(t, "app:\n  env: dev\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Addr != ":8080" {
		t.Fatalf("addr = %q", c.Server.Addr)
	}
	if c.Storage.Driver != "memory" || c.Cache.Kind != "memory" {
		t.Fatalf("defaults: driver=%q cache=%q", c.Storage.Driver, c.Cache.Kind)
	}
	if c.Dispatch.MaxAttempts != 3 || c.Dispatch.BaseDelay != "500ms" {
		t.Fatalf("dispatch defaults: %+v", c.Dispatch)
	}
	if c.Limits.MaxActiveTemplates != 50 {
		t.Fatalf("max_active_templates = %d", c.Limits.MaxActiveTemplates)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "no-such.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Addr != ":8080" || c.Storage.Driver != "memory" {
		t.Fatalf("defaults not applied: %+v", c.Server)
	}
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	_, err := Load(write(t, "storage:\n  driver: postgres\n"))
	if err == nil {
		t.Fatalf("expected error for postgres without dsn")
	}
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := Load(write(t, "dispatch:\n  base_delay: nope\n"))
	if err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MAILROOM_ADDR", ":9090")
	t.Setenv("ADMIN_API_KEY", "sekret")

	c, err := Load(write(t, "server:\n  addr: \":8080\"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Addr != ":9090" {
		t.Fatalf("env override lost: %q", c.Server.Addr)
	}
	if c.Admin.APIKey != "sekret" {
		t.Fatalf("admin key = %q", c.Admin.APIKey)
	}
}
