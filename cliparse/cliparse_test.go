// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestParseFlags_EnvVars(t *testing.T) {
	// Set env vars
	os.Setenv("PORT", "9000")
	os.Setenv("DATABASE_URL", "postgres://test")
	os.Setenv("DATABASE_TYPE", "postgres")
	os.Setenv("SECRET_KEY", "test-secret")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("expected postgres, got %s", cfg.DatabaseType)
	}
	if cfg.SessionBackend != SessionBackendSQL {
		t.Errorf("expected default sql session backend, got %s", cfg.SessionBackend)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	os.Setenv("PORT", "9000")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-secret", "s1"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected sqlite default, got %s", cfg.DatabaseType)
	}
}

func TestParseFlags_MissingSecret(t *testing.T) {
	os.Clearenv()
	defer os.Clearenv()

	if _, err := ParseFlags([]string{"-d", "file:test.db"}); err == nil {
		t.Fatal("expected error without SECRET_KEY")
	}
}

func TestParseFlags_RedisRequiresURL(t *testing.T) {
	os.Clearenv()
	defer os.Clearenv()

	_, err := ParseFlags([]string{"-d", "file:test.db", "-secret", "s", "-sessions", "redis"})
	if err == nil {
		t.Fatal("expected error for redis backend without REDIS_URL")
	}

	cfg, err := ParseFlags([]string{"-d", "file:test.db", "-secret", "s", "-sessions", "redis", "-redis", "redis://localhost:6379/0"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("unexpected redis url %q", cfg.RedisURL)
	}
}

func TestParseFlags_CORSOrigins(t *testing.T) {
	os.Clearenv()
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{"-d", "file:test.db", "-secret", "s"})
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("unexpected default cors origins %v", cfg.CORSAllowedOrigins)
	}

	os.Setenv("CORS_ALLOWED_ORIGINS", "https://vote.example.com, http://localhost:5173,,")
	cfg, err = ParseFlags([]string{"-d", "file:test.db", "-secret", "s"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"https://vote.example.com", "http://localhost:5173"}
	if !slices.Equal(cfg.CORSAllowedOrigins, want) {
		t.Errorf("expected %v, got %v", want, cfg.CORSAllowedOrigins)
	}

	cfg, err = ParseFlags([]string{"-d", "file:test.db", "-secret", "s", "-cors", "https://a.example"})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(cfg.CORSAllowedOrigins, []string{"https://a.example"}) {
		t.Errorf("CLI should override env, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestParseFlags_Mail(t *testing.T) {
	os.Setenv("MAIL_USERNAME", "bot@example.com")
	os.Setenv("MAIL_PASSWORD", "pw")
	os.Setenv("MAIL_PORT", "2525")
	os.Setenv("MAIL_TIMEOUT", "3s")
	defer os.Clearenv()

	cfg, err := ParseFlags([]string{"-d", "file:test.db", "-secret", "s"})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Mail.Enabled() {
		t.Error("expected mail to be enabled")
	}
	if cfg.Mail.Port != 2525 || cfg.Mail.Timeout != 3*time.Second {
		t.Errorf("unexpected mail config %+v", cfg.Mail)
	}
	if cfg.Mail.Sender != "bot@example.com" {
		t.Errorf("sender should default to username, got %q", cfg.Mail.Sender)
	}
}

func TestLoadDotEnv(t *testing.T) {
	os.Clearenv()
	defer os.Clearenv()

	// missing file is fine
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SECRET_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := LoadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("SECRET_KEY"); got != "from-dotenv" {
		t.Errorf("expected SECRET_KEY from .env, got %q", got)
	}
}
