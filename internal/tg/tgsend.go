package tg

import (
	"errors"
	"strings"

	"github.com/Spok95/sportclub-bot/internal/observability"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender — то, что нам нужно от *tgbotapi.BotAPI. В тестах подменяется фейком.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Считаем системными: 5xx, 429, timeout. 400-ки и типичные телеграм-валидации в Sentry не шлём.
func isSystemErr(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	s := err.Error()
	if strings.Contains(s, "Bad Request") ||
		strings.Contains(s, "chat not found") ||
		strings.Contains(s, "bot was blocked") ||
		strings.Contains(s, "can't parse entities") {
		return false
	}
	return strings.Contains(s, "429") || strings.Contains(s, "502") || strings.Contains(s, "503") || strings.Contains(s, "timeout")
}

// IsPermanent — ретраить бессмысленно: чат не найден, бот заблокирован, кривой запрос.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 400 || apiErr.Code == 403
	}
	s := err.Error()
	return strings.Contains(s, "chat not found") || strings.Contains(s, "bot was blocked") || strings.Contains(s, "Forbidden")
}

func Send(bot Sender, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	m, err := bot.Send(msg)
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
	return m, err
}

func Request(bot *tgbotapi.BotAPI, req tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r, err := bot.Request(req)
	if isSystemErr(err) {
		observability.CaptureErr(err)
	}
	return r, err
}
