package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_DefaultsAndRequired(t *testing.T) {
	p := writeYAML(t, `
jwt:
  secret: s3cret
storage:
  dsn: postgres://localhost/soul
`)
	c, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if c.JWT.AccessTTL.Std() != 15*time.Minute {
		t.Fatalf("access ttl default: %v", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL.Std() != 30*24*time.Hour {
		t.Fatalf("refresh ttl default: %v", c.JWT.RefreshTTL)
	}
	if c.Auth.SweepInterval.Std() != time.Hour {
		t.Fatalf("sweep interval default: %v", c.Auth.SweepInterval)
	}
	if c.Auth.RotateRefreshTokens {
		t.Fatal("rotation must default to off")
	}
	if c.Cache.Driver != "memory" {
		t.Fatalf("cache driver default: %v", c.Cache.Driver)
	}
}

func TestLoad_ParsesDurations(t *testing.T) {
	p := writeYAML(t, `
jwt:
  secret: s3cret
  access_ttl: 10m
  refresh_ttl: 48h
storage:
  dsn: postgres://localhost/soul
auth:
  pkce_ttl: 90s
`)
	c, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if c.JWT.AccessTTL.Std() != 10*time.Minute {
		t.Fatalf("access ttl: %v", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL.Std() != 48*time.Hour {
		t.Fatalf("refresh ttl: %v", c.JWT.RefreshTTL)
	}
	if c.Auth.PKCETTL.Std() != 90*time.Second {
		t.Fatalf("pkce ttl: %v", c.Auth.PKCETTL)
	}
}

func TestLoad_MissingSecretFails(t *testing.T) {
	p := writeYAML(t, `
storage:
  dsn: postgres://localhost/soul
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for missing jwt secret")
	}
}

func TestLoad_MissingDSNFails(t *testing.T) {
	p := writeYAML(t, `
jwt:
  secret: s3cret
`)
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for missing storage dsn")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("STORAGE_DSN", "postgres://env/soul")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("AUTH_ROTATE_REFRESH_TOKENS", "true")
	t.Setenv("AUTH_HUB_PLATFORM_ID", "42")

	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.JWT.Secret != "env-secret" {
		t.Fatalf("secret override: %q", c.JWT.Secret)
	}
	if c.JWT.AccessTTL.Std() != 5*time.Minute {
		t.Fatalf("access ttl override: %v", c.JWT.AccessTTL)
	}
	if !c.Auth.RotateRefreshTokens {
		t.Fatal("rotation override not applied")
	}
	if c.Auth.HubPlatformID != 42 {
		t.Fatalf("hub platform override: %d", c.Auth.HubPlatformID)
	}
}

func TestLoad_RedisRequiresHost(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STORAGE_DSN", "postgres://localhost/soul")
	t.Setenv("CACHE_DRIVER", "redis")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for redis without host")
	}
}
