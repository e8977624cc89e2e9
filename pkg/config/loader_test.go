package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigMergesEnvironmentOverBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
db:
  host: localhost
  port: 5432
  name: carecircle
server:
  port: ":8080"
`)
	writeFile(t, dir, "production.yaml", `
db:
  host: db.internal
`)

	cfgMap, err := LoadConfig("production", dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	var cfg struct {
		DB     DBConfig     `yaml:"db"`
		Server ServerConfig `yaml:"server"`
	}
	if err := Decode(cfgMap, &cfg); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if cfg.DB.Host != "db.internal" {
		t.Errorf("expected env override host, got %q", cfg.DB.Host)
	}
	if cfg.DB.Port != 5432 || cfg.DB.Name != "carecircle" {
		t.Errorf("expected base values kept, got port=%d name=%q", cfg.DB.Port, cfg.DB.Name)
	}
	if cfg.Server.Port != ":8080" {
		t.Errorf("expected server port from base, got %q", cfg.Server.Port)
	}
}

func TestLoadConfigSubstitutesSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
jwt:
  secret: "${JWT_SECRET}"
`)
	writeFile(t, dir, "secrets.env", `
# comment
JWT_SECRET="s3cret"
`)

	cfgMap, err := LoadConfig("", dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	var cfg struct {
		JWT JWTConfig `yaml:"jwt"`
	}
	if err := Decode(cfgMap, &cfg); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.JWT.Secret != "s3cret" {
		t.Fatalf("expected substituted secret, got %q", cfg.JWT.Secret)
	}
	if cfg.JWT.TTL().Hours() != 24 {
		t.Fatalf("expected default ttl 24h, got %v", cfg.JWT.TTL())
	}
}

func TestSubstituteString(t *testing.T) {
	lookup := lookupIn(map[string]string{"A": "1", "EMPTY": ""})
	t.Setenv("FROM_PROCESS", "proc")

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"${A}", "1"},
		{"x-${A}-${A}", "x-1-1"},
		{"${EMPTY}", ""},
		{"${FROM_PROCESS}", "proc"},
		{"${MISSING_CARECIRCLE_VAR}", "${MISSING_CARECIRCLE_VAR}"},
		{"${unterminated", "${unterminated"},
	}
	for _, tt := range tests {
		if got := substituteString(tt.in, lookup); got != tt.want {
			t.Errorf("substituteString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadConfigMissingBase(t *testing.T) {
	if _, err := LoadConfig("local", t.TempDir()); err == nil {
		t.Fatal("expected error when base.yaml is missing")
	}
}

func TestOverrideDBFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "pg")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_PORT_IGNORED", "x")

	cfg := DBConfig{Host: "localhost", Port: 5432}
	OverrideDBFromEnv(&cfg)
	if cfg.Host != "pg" || cfg.Port != 6543 {
		t.Fatalf("unexpected cfg after override: %+v", cfg)
	}
}
