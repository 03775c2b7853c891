package config

import (
	"testing"
	"time"
)

func TestLoad_EnvVars(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("EXPIRY_SWEEP_INTERVAL", "30s")

	cfg, err := Load([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != DatabasePostgres {
		t.Errorf("expected postgres by default, got %s", cfg.DatabaseType)
	}
	if cfg.ExpirySweepInterval != 30*time.Second {
		t.Errorf("expected 30s sweep, got %s", cfg.ExpirySweepInterval)
	}
	if cfg.VoterHashSalt != "s3cret" {
		t.Errorf("voter hash salt should default to the session secret, got %q", cfg.VoterHashSalt)
	}
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_TYPE", "postgres")

	cfg, err := Load([]string{"-p", "8081", "-t", "sqlite", "-d", "file:test.db"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 8081 {
		t.Errorf("flag should override env: expected 8081, got %d", cfg.Port)
	}
	if cfg.DatabaseType != DatabaseSQLite {
		t.Errorf("expected sqlite, got %s", cfg.DatabaseType)
	}
	if cfg.DatabaseURL != "file:test.db" {
		t.Errorf("unexpected database url %q", cfg.DatabaseURL)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{name: "missing postgres url", env: map[string]string{"DATABASE_URL": ""}},
		{name: "bad port", env: map[string]string{"PORT": "eighty", "DATABASE_URL": "x"}},
		{name: "bad database type", args: []string{"-t", "mysql", "-d", "x"}},
		{name: "bad sweep", args: []string{"-d", "x", "-sweep", "soon"}},
		{name: "release without secret", env: map[string]string{"GIN_MODE": "release", "DATABASE_URL": "x", "SESSION_SECRET": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			t.Setenv("PORT", "")
			t.Setenv("SESSION_SECRET", "")
			t.Setenv("GIN_MODE", "")
			t.Setenv("DATABASE_TYPE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(tt.args); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoad_SQLiteDefaultsDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_TYPE", "sqlite")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DatabaseURL == "" {
		t.Error("expected a default sqlite DSN")
	}
	if cfg.GoogleEnabled() {
		t.Error("google sign-in should be disabled without credentials")
	}
}
