//go:build testutil
// +build testutil

package billing_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Spok95/sportclub-bot/internal/billing"
	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/Spok95/sportclub-bot/internal/notify"
	"github.com/Spok95/sportclub-bot/internal/testutil/fixtures"
	"github.com/Spok95/sportclub-bot/internal/testutil/testdb"
)

func TestRejectScenario(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	ctx := context.Background()

	admin := fixtures.Account(t, h.DB, "Админ", models.Admin)
	parent := fixtures.Account(t, h.DB, "Мама", models.Guardian)
	gid := fixtures.Group(t, h.DB, "Дзюдо")
	pid := fixtures.Participant(t, h.DB, parent.ID, "Петя")

	svc := billing.NewService(h.DB, notify.NewNotifier(nil, nil), nil, time.UTC)

	res, err := svc.CreatePayment(ctx, *parent, billing.Purchase{
		ParticipantID:    pid,
		GroupID:          gid,
		SubscriptionType: models.SubscriptionTwelve,
		TotalLessons:     12,
		Amount:           5000,
	})
	if err != nil {
		t.Fatal(err)
	}

	p, err := db.GetPayment(ctx, h.DB, res.PaymentID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != models.PaymentPending || p.IsPaid || p.Amount != 5000 {
		t.Fatalf("new payment: %+v", p)
	}
	sub, err := db.GetSubscription(ctx, h.DB, res.SubscriptionID)
	if err != nil {
		t.Fatal(err)
	}
	if sub.RemainingLessons != 12 || !sub.IsActive || sub.EndDate.Sub(sub.StartDate) != models.SubscriptionDays*24*time.Hour {
		t.Fatalf("new subscription: %+v", sub)
	}
	adminNotes := fixtures.Outbox(t, h.DB, admin.TelegramID, string(notify.KindPaymentCreated))
	if len(adminNotes) != 1 {
		t.Fatalf("admin notices: %v", adminNotes)
	}

	rejected, err := svc.Reject(ctx, res.PaymentID, "duplicate")
	if err != nil {
		t.Fatal(err)
	}
	if rejected.Status != models.PaymentRejected || rejected.IsPaid || rejected.AdminNotes == nil || *rejected.AdminNotes != "duplicate" {
		t.Fatalf("rejected payment: %+v", rejected)
	}
	notes := fixtures.Outbox(t, h.DB, parent.TelegramID, string(notify.KindPaymentRejected))
	if len(notes) != 1 || !strings.Contains(notes[0], "duplicate") {
		t.Fatalf("guardian notices: %v", notes)
	}

	if _, err := svc.Reject(ctx, res.PaymentID, "again"); !errors.Is(err, billing.ErrAlreadyProcessed) {
		t.Fatalf("second reject: want ErrAlreadyProcessed, got %v", err)
	}
	if _, err := svc.Approve(ctx, res.PaymentID, ""); !errors.Is(err, billing.ErrAlreadyProcessed) {
		t.Fatalf("approve after reject: want ErrAlreadyProcessed, got %v", err)
	}
}

func TestApprove(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	ctx := context.Background()

	parent := fixtures.Account(t, h.DB, "Папа", models.Guardian)
	gid := fixtures.Group(t, h.DB, "ММА")
	pid := fixtures.Participant(t, h.DB, parent.ID, "Коля")
	svc := billing.NewService(h.DB, nil, nil, time.UTC)

	res, err := svc.CreatePayment(ctx, *parent, billing.Purchase{ParticipantID: pid, GroupID: gid, TotalLessons: 8, Amount: 4000})
	if err != nil {
		t.Fatal(err)
	}
	p, err := svc.Approve(ctx, res.PaymentID, "")
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != models.PaymentApproved || !p.IsPaid || p.PaymentDate == nil || p.AdminNotes != nil {
		t.Fatalf("approved: %+v", p)
	}
}

func TestCreatePayment_Rejections(t *testing.T) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	ctx := context.Background()

	owner := fixtures.Account(t, h.DB, "Мама", models.Guardian)
	stranger := fixtures.Account(t, h.DB, "Чужой", models.Guardian)
	gid := fixtures.Group(t, h.DB, "Гимнастика")
	pid := fixtures.Participant(t, h.DB, owner.ID, "Маша")
	svc := billing.NewService(h.DB, nil, nil, time.UTC)

	if _, err := svc.CreatePayment(ctx, *stranger, billing.Purchase{ParticipantID: pid, GroupID: gid, TotalLessons: 8, Amount: 4000}); !errors.Is(err, billing.ErrNotLinked) {
		t.Fatalf("stranger: want ErrNotLinked, got %v", err)
	}
	if _, err := svc.CreatePayment(ctx, *owner, billing.Purchase{ParticipantID: pid, GroupID: gid, TotalLessons: 8}); !errors.Is(err, billing.ErrInvalidPurchase) {
		t.Fatalf("zero amount: want ErrInvalidPurchase, got %v", err)
	}

	// ссылки на несуществующие записи — ошибка данных покупки, а не 404
	if _, err := svc.CreatePayment(ctx, *owner, billing.Purchase{ParticipantID: pid, GroupID: 99999, TotalLessons: 8, Amount: 4000}); !errors.Is(err, billing.ErrInvalidPurchase) || errors.Is(err, db.ErrNotFound) {
		t.Fatalf("unknown group: want ErrInvalidPurchase, got %v", err)
	}
	admin := fixtures.Account(t, h.DB, "Админ", models.Admin)
	if _, err := svc.CreatePayment(ctx, *admin, billing.Purchase{ParticipantID: 99999, GroupID: gid, TotalLessons: 8, Amount: 4000}); !errors.Is(err, billing.ErrInvalidPurchase) || errors.Is(err, db.ErrNotFound) {
		t.Fatalf("unknown participant: want ErrInvalidPurchase, got %v", err)
	}
}
