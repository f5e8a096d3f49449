package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BotToken    string
	DatabaseURL string
	AdminIDs    []int64
	Location    *time.Location
	HTTPAddr    string
	LogLevel    string
	Env         string // dev|prod
	SentryDSN   string

	SessionSecret string
	WebAppURL     string

	Contact Contact

	OutboxInterval    time.Duration
	OutboxMaxAttempts int
	LowBalanceCron    string
}

// Contact — то, что показываем родителям в «Связаться с администрацией».
type Contact struct {
	Phone    string `json:"phone"`
	Telegram string `json:"telegram"`
	Name     string `json:"name"`
}

const devSessionSecret = "dev-session-secret-change-me"

func Load() (*Config, error) {
	tz := getenv("TZ", "Europe/Moscow")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	raw := os.Getenv("ADMIN_IDS")
	if strings.TrimSpace(raw) == "" {
		raw = os.Getenv("ADMIN_ID")
	}
	adminIDs, err := parseIDs(raw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS: %w", err)
	}

	interval, err := time.ParseDuration(getenv("OUTBOX_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("OUTBOX_INTERVAL: %w", err)
	}
	attempts, err := strconv.Atoi(getenv("OUTBOX_MAX_ATTEMPTS", "5"))
	if err != nil || attempts <= 0 {
		return nil, fmt.Errorf("OUTBOX_MAX_ATTEMPTS: bad value %q", os.Getenv("OUTBOX_MAX_ATTEMPTS"))
	}

	botToken, err := requireEnv("BOT_TOKEN")
	if err != nil {
		return nil, err
	}
	dbURL, err := requireEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}

	env := getenv("ENV", "dev")
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		if strings.ToLower(env) == "prod" {
			return nil, fmt.Errorf("required env SESSION_SECRET is empty")
		}
		secret = devSessionSecret
	}

	cfg := &Config{
		BotToken:      botToken,
		DatabaseURL:   dbURL,
		AdminIDs:      adminIDs,
		Location:      loc,
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		Env:           env,
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		SessionSecret: secret,
		WebAppURL:     os.Getenv("WEBAPP_URL"),
		Contact: Contact{
			Phone:    getenv("CONTACT_PHONE", "+7 902 923 7193"),
			Telegram: getenv("CONTACT_TELEGRAM", "@Taiky_admin"),
			Name:     getenv("CONTACT_NAME", "Директор клуба"),
		},
		OutboxInterval:    interval,
		OutboxMaxAttempts: attempts,
		LowBalanceCron:    getenv("LOW_BALANCE_CRON", "0 10 * * *"),
	}
	return cfg, nil
}

// IsAdmin — входит ли telegram id в список администраторов.
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func requireEnv(k string) (string, error) {
	v := os.Getenv(k)
	if v == "" {
		return "", fmt.Errorf("required env %s is empty", k)
	}
	return v, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// parseIDs понимает запятые, пробелы, переводы строк и точки с запятой.
func parseIDs(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';' || r == '\n' || r == '\t'
	})
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}
