package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/prospecting")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("PROVIDER_API_URL", "https://api.provider.test/")
	t.Setenv("PROVIDER_API_KEY", "key")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")
}

func TestLoadAppliesReconcileDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GetIdentityBatchSize() != 20 {
		t.Fatalf("expected identity batch size 20, got %d", cfg.GetIdentityBatchSize())
	}
	if cfg.GetUpsertConcurrency() != 10 {
		t.Fatalf("expected upsert concurrency 10, got %d", cfg.GetUpsertConcurrency())
	}
	if cfg.GetUpsertBatchTimeout() != 10*time.Minute {
		t.Fatalf("expected 10m batch timeout, got %s", cfg.GetUpsertBatchTimeout())
	}
	if cfg.GetProviderThrottle() != 5*time.Second {
		t.Fatalf("expected 5s throttle, got %s", cfg.GetProviderThrottle())
	}
	if cfg.GetSearchPageSize() != 50 {
		t.Fatalf("expected search page size 50, got %d", cfg.GetSearchPageSize())
	}
	if cfg.GetProviderAPIURL() != "https://api.provider.test" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.GetProviderAPIURL())
	}
}

func TestLoadFallsBackOnInvalidNumbers(t *testing.T) {
	setRequired(t)
	t.Setenv("IDENTITY_BATCH_SIZE", "-3")
	t.Setenv("UPSERT_BATCH_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GetIdentityBatchSize() != 20 {
		t.Fatalf("expected fallback batch size, got %d", cfg.GetIdentityBatchSize())
	}
	if cfg.GetUpsertBatchTimeout() != 10*time.Minute {
		t.Fatalf("expected fallback timeout, got %s", cfg.GetUpsertBatchTimeout())
	}
}

func TestLoadRequiresProviderCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("PROVIDER_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when provider key is missing")
	}
}

func TestLoadRejectsWildcardCORSWithCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for wildcard origins with credentials")
	}
}
