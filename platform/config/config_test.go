package config

import (
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/leadflow")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ALLOW_ALL", "false")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GetHTTPAddr() != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.GetHTTPAddr())
	}
	if cfg.IsSchedulerEnabled() || cfg.IsSMTPEnabled() || cfg.IsMinIOEnabled() {
		t.Error("optional integrations should be disabled without settings")
	}
	if cfg.GetImportMaxRows() != 5000 {
		t.Errorf("ImportMaxRows = %d", cfg.GetImportMaxRows())
	}
	if got := cfg.GetResetTokenTTL().String(); got != "10m0s" {
		t.Errorf("ResetTokenTTL = %s", got)
	}
}

func TestLoadTrimsAppBaseURL(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_BASE_URL", "https://crm.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GetAppBaseURL() != "https://crm.example.com" {
		t.Errorf("AppBaseURL = %q", cfg.GetAppBaseURL())
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestLoadRejectsWildcardWithCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for wildcard origin with credentials")
	}
}

func TestSMTPRequiresFromAddress(t *testing.T) {
	setRequired(t)
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("EMAIL_FROM_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when SMTP is set without a from address")
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" a, ,b ,c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitCSV = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitCSV[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
