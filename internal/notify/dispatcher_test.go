//go:build testutil
// +build testutil

package notify_test

import (
	"context"
	"sync"
	"testing"

	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/Spok95/sportclub-bot/internal/notify"
	"github.com/Spok95/sportclub-bot/internal/testutil/fixtures"
	"github.com/Spok95/sportclub-bot/internal/testutil/testdb"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	fail map[int64]error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := c.(tgbotapi.MessageConfig)
	if err := f.fail[m.ChatID]; err != nil {
		return tgbotapi.Message{}, err
	}
	f.sent = append(f.sent, m)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func TestDispatcher_DeliversAndRetries(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	ctx := context.Background()

	bot := &fakeSender{fail: map[int64]error{
		200: &tgbotapi.Error{Code: 502, Message: "Bad Gateway"},
		300: &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"},
	}}
	d := notify.NewDispatcher(h.DB, bot, nil, 2)

	for _, chat := range []int64{100, 200, 300} {
		if _, err := db.Enqueue(ctx, h.DB, chat, string(notify.KindPresence), "hi"); err != nil {
			t.Fatal(err)
		}
	}

	if err := d.Drain(ctx); err != nil {
		t.Fatal(err)
	}
	if len(bot.sent) != 1 || bot.sent[0].ChatID != 100 {
		t.Fatalf("sent: %+v", bot.sent)
	}

	// 200 отложено, 300 помечено failed сразу
	var status200, status300 string
	var attempts200 int
	if err := h.DB.QueryRow(`SELECT status, attempts FROM notification_outbox WHERE chat_id = 200`).Scan(&status200, &attempts200); err != nil {
		t.Fatal(err)
	}
	if err := h.DB.QueryRow(`SELECT status FROM notification_outbox WHERE chat_id = 300`).Scan(&status300); err != nil {
		t.Fatal(err)
	}
	if status200 != "pending" || attempts200 != 1 || status300 != "failed" {
		t.Fatalf("200=%s/%d 300=%s", status200, attempts200, status300)
	}

	// вторая попытка после задержки исчерпывает maxAttempts
	if _, err := h.DB.Exec(`UPDATE notification_outbox SET next_attempt_at = now() - interval '1 second' WHERE chat_id = 200`); err != nil {
		t.Fatal(err)
	}
	if err := d.Drain(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.DB.QueryRow(`SELECT status FROM notification_outbox WHERE chat_id = 200`).Scan(&status200); err != nil {
		t.Fatal(err)
	}
	if status200 != "failed" {
		t.Fatalf("200 status = %s, want failed", status200)
	}
}

func TestNotifier_SkipsWithoutGuardian(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	ctx := context.Background()

	admin := fixtures.Account(t, h.DB, "Админ", models.Admin)
	parent := fixtures.Account(t, h.DB, "Мама", models.Guardian)
	orphan := fixtures.Participant(t, h.DB, admin.ID, "Без родителя")
	linked := fixtures.Participant(t, h.DB, admin.ID, "С родителем")
	fixtures.LinkGuardian(t, h.DB, linked, parent.ID)

	n := notify.NewNotifier(nil, []int64{555})

	ok, err := n.ToGuardian(ctx, h.DB, orphan, notify.KindPresence, "x")
	if err != nil || ok {
		t.Fatalf("orphan: ok=%v err=%v", ok, err)
	}
	ok, err = n.ToGuardian(ctx, h.DB, linked, notify.KindPresence, "y")
	if err != nil || !ok {
		t.Fatalf("linked: ok=%v err=%v", ok, err)
	}
	texts := fixtures.Outbox(t, h.DB, parent.TelegramID, string(notify.KindPresence))
	if len(texts) != 1 || texts[0] != "y" {
		t.Fatalf("outbox for guardian: %v", texts)
	}

	if err := n.ToAdmins(ctx, h.DB, notify.KindEnrollRequest, "z"); err != nil {
		t.Fatal(err)
	}
	for _, chat := range []int64{admin.TelegramID, 555} {
		texts := fixtures.Outbox(t, h.DB, chat, string(notify.KindEnrollRequest))
		if len(texts) != 1 {
			t.Fatalf("admin %d outbox: %v", chat, texts)
		}
	}
}
