package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing AUTH_SECRET to be rejected")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("AUTH_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("REPORT_CACHE_TTL_SECONDS", "-4")
	t.Setenv("STRICT_STOCK_GUARD", "true")
	t.Setenv("REPORT_ICMS_RATE", "0.18")
	t.Setenv("REPORT_PIS_COFINS_RATE", "not-a-number")

	cfg := Load()
	if cfg.ReportCacheTTLSeconds != 30 {
		t.Fatalf("expected TTL fallback 30, got %d", cfg.ReportCacheTTLSeconds)
	}
	if !cfg.StrictStockGuard {
		t.Fatalf("expected strict stock guard to be enabled")
	}
	if !cfg.Rates.ICMS.Equal(decimal.RequireFromString("0.18")) {
		t.Fatalf("expected ICMS override, got %s", cfg.Rates.ICMS)
	}
	if !cfg.Rates.PISCOFINS.Equal(decimal.RequireFromString("0.0925")) {
		t.Fatalf("expected PIS/COFINS default on parse failure, got %s", cfg.Rates.PISCOFINS)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsTwoDatabases(t *testing.T) {
	t.Setenv("AUTH_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DATABASE_URL", "postgres://localhost/db")
	t.Setenv("SQLITE_PATH", "backoffice.db")

	if err := Load().Validate(); err == nil {
		t.Fatalf("expected both stores to be rejected")
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("BACKOFFICE_CONFIG_TEST=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("BACKOFFICE_CONFIG_TEST", "")
	os.Unsetenv("BACKOFFICE_CONFIG_TEST")
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if got := os.Getenv("BACKOFFICE_CONFIG_TEST"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
}
