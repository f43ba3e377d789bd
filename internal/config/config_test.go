package config

import (
	"testing"

	"github.com/spf13/viper"
)

const testEncryptionKey = "000102030405060708090a0b0c0d0e0f" // 16 bytes

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("HMAC_SECRET", "hmac-secret")
	t.Setenv("ENCRYPTION_KEY", testEncryptionKey)
}

func load(t *testing.T) (*Config, error) {
	t.Helper()
	viper.Reset()
	return LoadConfig(t.TempDir())
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := load(t)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.SessionTTLHrs != 24 {
		t.Fatalf("expected default session TTL 24, got %d", cfg.SessionTTLHrs)
	}
	if cfg.APITimeoutSecs != 30 {
		t.Fatalf("expected default API timeout 30, got %d", cfg.APITimeoutSecs)
	}
	if cfg.ReportSchedule != "0 7 * * *" {
		t.Fatalf("unexpected default report schedule %q", cfg.ReportSchedule)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("API_TIMEOUT_SECONDS", "5")
	t.Setenv("MTN_API_URL", "http://localhost:4010")

	cfg, err := load(t)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Fatalf("expected port override, got %q", cfg.Port)
	}
	if cfg.APITimeoutSecs != 5 {
		t.Fatalf("expected timeout override, got %d", cfg.APITimeoutSecs)
	}
	if cfg.MTNAPIURL != "http://localhost:4010" {
		t.Fatalf("expected MTN URL override, got %q", cfg.MTNAPIURL)
	}
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("HMAC_SECRET", "hmac-secret")
	t.Setenv("ENCRYPTION_KEY", testEncryptionKey)
	t.Setenv("JWT_SECRET", "")

	if _, err := load(t); err == nil {
		t.Fatal("expected missing JWT_SECRET to fail")
	}
}

func TestLoadConfigRejectsBadEncryptionKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENCRYPTION_KEY", "not-hex")

	if _, err := load(t); err == nil {
		t.Fatal("expected non-hex key to fail")
	}

	// Valid hex, wrong length.
	t.Setenv("ENCRYPTION_KEY", "abcdef")
	if _, err := load(t); err == nil {
		t.Fatal("expected short key to fail")
	}
}

func TestEncryptionKeyBytes(t *testing.T) {
	cfg := &Config{EncryptionKey: testEncryptionKey}
	key, err := cfg.EncryptionKeyBytes()
	if err != nil {
		t.Fatalf("EncryptionKeyBytes returned error: %v", err)
	}
	if len(key) != 16 {
		t.Fatalf("expected 16-byte key, got %d", len(key))
	}
}
