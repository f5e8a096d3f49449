package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Spok95/sportclub-bot/internal/config"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func textMsg(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID, FirstName: "Тест"},
		Text: text,
	}
}

func TestHandleMessage_Commands(t *testing.T) {
	cfg := &config.Config{Contact: config.Contact{Phone: "+7 900 123 45 67", Name: "Директор"}}
	cases := []struct {
		text string
		want string
	}{
		{"/help", "/start"},
		{"/help@sportclub_bot", "/contact"},
		{"/contact", "+7 900 123 45 67"},
		{"привет", "Неизвестная команда"},
	}
	for _, tc := range cases {
		f := &fakeSender{}
		b := NewBot(f, nil, cfg, nil)
		b.HandleMessage(context.Background(), textMsg(42, tc.text))
		if len(f.sent) != 1 {
			t.Fatalf("%q: sent %d messages", tc.text, len(f.sent))
		}
		if f.sent[0].ChatID != 42 || !strings.Contains(f.sent[0].Text, tc.want) {
			t.Fatalf("%q: got %q, want %q", tc.text, f.sent[0].Text, tc.want)
		}
	}
}

func TestContactText_Empty(t *testing.T) {
	if got := contactText(config.Contact{}); !strings.Contains(got, "не указаны") {
		t.Fatalf("got %q", got)
	}
}

func TestChatLimiter_SerializesSameChat(t *testing.T) {
	l := NewChatLimiter()
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock(1)
			defer unlock()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("max concurrent=%d, want 1", maxSeen)
	}
	if n := l.active(); n != 0 {
		t.Fatalf("chat locks left: %d", n)
	}
}
