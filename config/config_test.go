package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	unsetEnv(t, "MYSQL_DSN")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing MYSQL_DSN")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/paylinks?parseTime=true")
	setEnv(t, "APP_SERVICE_NAME", "paylinks-test")
	setEnv(t, "HTTP_PORT", "8181")
	setEnv(t, "BOLD_API_KEY", "bold-key")
	setEnv(t, "BOLD_HTTP_TIMEOUT_SECONDS", "7")
	setEnv(t, "WOMPI_PUBLIC_KEY", "pub_test_123")
	setEnv(t, "LINKS_MIN_AMOUNT_COP", "2000")
	setEnv(t, "LINKS_RECONCILE_STALE_AFTER_MINUTES", "13")
	setEnv(t, "REDIS_CACHE_TTL_MINUTES", "3")
	unsetEnv(t, "BOLD_API_URL")
	unsetEnv(t, "WOMPI_API_URL")
	unsetEnv(t, "BOLD_ALLOW_UNSIGNED_WEBHOOKS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "paylinks-test" {
		t.Fatalf("unexpected service name: %s", cfg.App.ServiceName)
	}
	if cfg.HTTP.Port != "8181" {
		t.Fatalf("unexpected http port: %s", cfg.HTTP.Port)
	}
	if cfg.Bold.APIURL != "https://integrations.api.bold.co" {
		t.Fatalf("unexpected bold api url: %s", cfg.Bold.APIURL)
	}
	if cfg.Bold.APIKey != "bold-key" {
		t.Fatalf("unexpected bold api key: %s", cfg.Bold.APIKey)
	}
	if cfg.Bold.HTTPTimeout != 7*time.Second {
		t.Fatalf("unexpected bold timeout: %v", cfg.Bold.HTTPTimeout)
	}
	if cfg.Bold.AllowUnsignedWebhooks {
		t.Fatal("unsigned webhooks must be off by default")
	}
	if cfg.Wompi.APIURL != "https://production.wompi.co/v1" {
		t.Fatalf("unexpected wompi api url: %s", cfg.Wompi.APIURL)
	}
	if cfg.Wompi.PublicKey != "pub_test_123" {
		t.Fatalf("unexpected wompi public key: %s", cfg.Wompi.PublicKey)
	}
	if cfg.Links.MinAmountCOP != 2000 {
		t.Fatalf("unexpected min amount: %d", cfg.Links.MinAmountCOP)
	}
	if cfg.Links.ReconcileStaleAfter != 13*time.Minute {
		t.Fatalf("unexpected stale-after: %v", cfg.Links.ReconcileStaleAfter)
	}
	if cfg.Redis.CacheTTL != 3*time.Minute {
		t.Fatalf("unexpected cache ttl: %v", cfg.Redis.CacheTTL)
	}
}
