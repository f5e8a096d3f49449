package tg

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		system    bool
		permanent bool
	}{
		{"nil", nil, false, false},
		{"rate limit", &tgbotapi.Error{Code: 429, Message: "Too Many Requests"}, true, false},
		{"server", &tgbotapi.Error{Code: 502, Message: "Bad Gateway"}, true, false},
		{"bad request", &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, false, true},
		{"blocked", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}, false, true},
		{"net timeout", errors.New("Post https://api.telegram.org: i/o timeout"), true, false},
		{"plain chat not found", errors.New("chat not found"), false, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := isSystemErr(c.err); got != c.system {
				t.Fatalf("isSystemErr=%v, want %v", got, c.system)
			}
			if got := IsPermanent(c.err); got != c.permanent {
				t.Fatalf("IsPermanent=%v, want %v", got, c.permanent)
			}
		})
	}
}
