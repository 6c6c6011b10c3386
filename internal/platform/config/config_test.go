package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseEnvDefaults(t *testing.T) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("DBDriver: want=sqlite got=%q", cfg.DBDriver)
	}
	if cfg.SaveBucket != "eusavestats-bucket" {
		t.Fatalf("SaveBucket: want=eusavestats-bucket got=%q", cfg.SaveBucket)
	}
	if cfg.TokenTTL != 720*time.Hour {
		t.Fatalf("TokenTTL: want=720h got=%v", cfg.TokenTTL)
	}
	if cfg.AnnualIncomePolicy != "last" {
		t.Fatalf("AnnualIncomePolicy: want=last got=%q", cfg.AnnualIncomePolicy)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate defaults: %v", err)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("OTEL_SAMPLER_RATIO", "not-a-float")

	var cfg Config
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		DBDriver:           "sqlite",
		ObjectStorageMode:  "local",
		AuthMode:           "opaque",
		TokenTTL:           time.Hour,
		AnnualIncomePolicy: "last",
		OtelSampleRatio:    0.1,
	}

	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "postgres", mutate: func(c *Config) { c.DBDriver = "postgres" }},
		{name: "bad driver", mutate: func(c *Config) { c.DBDriver = "mysql" }, wantErr: true},
		{name: "jwt without secret", mutate: func(c *Config) { c.AuthMode = "jwt" }, wantErr: true},
		{name: "jwt with secret", mutate: func(c *Config) { c.AuthMode = "jwt"; c.JWTSecretKey = "k" }},
		{name: "sum policy", mutate: func(c *Config) { c.AnnualIncomePolicy = "sum" }},
		{name: "bad policy", mutate: func(c *Config) { c.AnnualIncomePolicy = "avg" }, wantErr: true},
		{name: "gcs storage", mutate: func(c *Config) { c.ObjectStorageMode = "gcs" }},
		{name: "bad storage", mutate: func(c *Config) { c.ObjectStorageMode = "s3" }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.TokenTTL = 0 }, wantErr: true},
		{name: "bad ratio", mutate: func(c *Config) { c.OtelSampleRatio = 2 }, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SAVE_BUCKET=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	// godotenv never overrides existing vars; make sure the key starts unset.
	t.Setenv("SAVE_BUCKET", "")
	os.Unsetenv("SAVE_BUCKET")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SaveBucket != "from-dotenv" {
		t.Fatalf("SaveBucket: want=from-dotenv got=%q", cfg.SaveBucket)
	}
}

func TestLoadMissingDotEnvIsFine(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := Config{PostgresUser: "u", PostgresPassword: "p", PostgresHost: "h", PostgresPort: "5432", PostgresName: "db"}
	if got := cfg.PostgresDSN(); got != "postgres://u:p@h:5432/db?sslmode=disable" {
		t.Fatalf("PostgresDSN: got %q", got)
	}
	cfg.DatabaseURL = "postgres://override"
	if got := cfg.PostgresDSN(); got != "postgres://override" {
		t.Fatalf("PostgresDSN override: got %q", got)
	}
}
