package config

import (
	"testing"
	"time"
)

func TestParseIDs(t *testing.T) {
	t.Run("mixed_separators", func(t *testing.T) {
		ids, err := parseIDs(" 1, 2;3\n4 ")
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 4 || ids[0] != 1 || ids[3] != 4 {
			t.Fatalf("неожиданный результат: %v", ids)
		}
	})

	t.Run("empty", func(t *testing.T) {
		ids, err := parseIDs("   ")
		if err != nil || ids != nil {
			t.Fatalf("ожидали nil, nil; получили %v, %v", ids, err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := parseIDs("12,abc"); err == nil {
			t.Fatal("ожидали ошибку для нечислового id")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/club")
	t.Setenv("ADMIN_IDS", "")
	t.Setenv("ADMIN_ID", "42")
	t.Setenv("ENV", "dev")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("OUTBOX_INTERVAL", "")
	t.Setenv("OUTBOX_MAX_ATTEMPTS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.IsAdmin(42) || cfg.IsAdmin(7) {
		t.Fatalf("ADMIN_ID fallback не сработал: %v", cfg.AdminIDs)
	}
	if cfg.SessionSecret != devSessionSecret {
		t.Fatalf("в dev ожидали секрет по умолчанию, получили %q", cfg.SessionSecret)
	}
	if cfg.OutboxInterval != 5*time.Second || cfg.OutboxMaxAttempts != 5 {
		t.Fatalf("неожиданные значения outbox: %v %d", cfg.OutboxInterval, cfg.OutboxMaxAttempts)
	}
}

func TestLoad_ProdRequiresSecret(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/club")
	t.Setenv("ENV", "prod")
	t.Setenv("SESSION_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("в prod без SESSION_SECRET ожидали ошибку")
	}
}
