//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/Spok95/sportclub-bot/internal/testutil/fixtures"
	"github.com/Spok95/sportclub-bot/internal/testutil/testdb"
)

func startDB(t *testing.T) *sql.DB {
	t.Helper()
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(h.Close)
	return h.DB
}

func TestRedeemCode_Once(t *testing.T) {
	dbx := startDB(t)
	ctx := context.Background()

	admin := fixtures.Account(t, dbx, "Админ", models.Admin)
	parent := fixtures.Account(t, dbx, "Мама", models.Guardian)
	other := fixtures.Account(t, dbx, "Папа", models.Guardian)
	pid := fixtures.Participant(t, dbx, admin.ID, "Иванов Петя")

	code, err := db.IssueCode(ctx, dbx, pid)
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != models.AuthCodeLength {
		t.Fatalf("code %q has wrong length", code)
	}

	c, err := db.RedeemCode(ctx, dbx, code, parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.ParticipantID != pid || c.UsedByID == nil || *c.UsedByID != parent.ID {
		t.Fatalf("unexpected redeemed code: %+v", c)
	}

	if _, err := db.RedeemCode(ctx, dbx, code, other.ID); !errors.Is(err, db.ErrCodeUsed) {
		t.Fatalf("second redeem: want ErrCodeUsed, got %v", err)
	}
	if _, err := db.RedeemCode(ctx, dbx, "000000x", other.ID); !errors.Is(err, db.ErrCodeNotFound) {
		t.Fatalf("unknown code: want ErrCodeNotFound, got %v", err)
	}

	g, err := db.GuardianFor(ctx, dbx, pid)
	if err != nil {
		t.Fatal(err)
	}
	if g == nil || g.AccountID != parent.ID {
		t.Fatalf("guardian = %+v, want account %d", g, parent.ID)
	}
	ok, err := db.IsGuardianOf(ctx, dbx, other.ID, pid)
	if err != nil || ok {
		t.Fatalf("other account must not be linked: ok=%v err=%v", ok, err)
	}
}

func TestRedeemCode_ConcurrentSingleWinner(t *testing.T) {
	dbx := startDB(t)
	ctx := context.Background()

	admin := fixtures.Account(t, dbx, "Админ", models.Admin)
	pid := fixtures.Participant(t, dbx, admin.ID, "Сидоров Ваня")
	code, err := db.IssueCode(ctx, dbx, pid)
	if err != nil {
		t.Fatal(err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		acc := fixtures.Account(t, dbx, "Родитель", models.Guardian)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := db.RedeemCode(ctx, dbx, code, acc.ID); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("code redeemed %d times, want 1", wins)
	}
}

func TestTransitionPayment_OneWay(t *testing.T) {
	dbx := startDB(t)
	ctx := context.Background()

	parent := fixtures.Account(t, dbx, "Мама", models.Guardian)
	gid := fixtures.Group(t, dbx, "Дзюдо")
	pid := fixtures.Participant(t, dbx, parent.ID, "Петров Коля")
	today := models.Today(time.UTC)
	sid := fixtures.Subscription(t, dbx, pid, gid, 8, today, today.AddDate(0, 0, 30))

	payID, err := db.CreatePendingPayment(ctx, dbx, parent.ID, sid, 4000, "")
	if err != nil {
		t.Fatal(err)
	}
	note := "ок"
	p, err := db.TransitionPayment(ctx, dbx, payID, models.PaymentApproved, &note)
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != models.PaymentApproved || !p.IsPaid || p.PaymentDate == nil || p.ProcessedAt == nil {
		t.Fatalf("approved payment: %+v", p)
	}

	if _, err := db.TransitionPayment(ctx, dbx, payID, models.PaymentRejected, nil); !errors.Is(err, db.ErrNotPending) {
		t.Fatalf("second transition: want ErrNotPending, got %v", err)
	}
	if _, err := db.TransitionPayment(ctx, dbx, 99999, models.PaymentRejected, nil); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("unknown payment: want ErrNotFound, got %v", err)
	}

	views, err := db.ListPayments(ctx, dbx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].ParticipantName != "Петров Коля" || views[0].GroupName != "Дзюдо" {
		t.Fatalf("payment views: %+v", views)
	}
}

func TestDecrementLesson_ClampsAtZero(t *testing.T) {
	dbx := startDB(t)
	ctx := context.Background()

	parent := fixtures.Account(t, dbx, "Мама", models.Guardian)
	gid := fixtures.Group(t, dbx, "Гимнастика")
	pid := fixtures.Participant(t, dbx, parent.ID, "Орлова Аня")
	today := models.Today(time.UTC)
	sid := fixtures.Subscription(t, dbx, pid, gid, 3, today, today.AddDate(0, 0, 30))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = db.DecrementLesson(ctx, dbx, sid)
		}()
	}
	wg.Wait()

	if got := fixtures.Remaining(t, dbx, sid); got != 0 {
		t.Fatalf("remaining = %d, want 0", got)
	}
	_, ok, err := db.DecrementLesson(ctx, dbx, sid)
	if err != nil || ok {
		t.Fatalf("decrement at zero: ok=%v err=%v", ok, err)
	}
}

func TestInsertSession_Idempotent(t *testing.T) {
	dbx := startDB(t)
	ctx := context.Background()

	gid := fixtures.Group(t, dbx, "ММА")
	day := fixtures.NextWeekday(time.Now(), 0)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[int64]bool{}
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := db.InsertSession(ctx, dbx, gid, day, "18:00", "19:00")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			ids[s.ID] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(ids) != 1 {
		t.Fatalf("got %d distinct sessions, want 1", len(ids))
	}

	var n int
	if err := dbx.QueryRow(`SELECT COUNT(*) FROM attendance_sessions WHERE group_id = $1`, gid).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestListRoster_OnePerSubscription(t *testing.T) {
	dbx := startDB(t)
	ctx := context.Background()

	parent := fixtures.Account(t, dbx, "Мама", models.Guardian)
	gid := fixtures.Group(t, dbx, "Дзюдо")
	day := fixtures.NextWeekday(time.Now(), 0)

	both := fixtures.Participant(t, dbx, parent.ID, "Аверин Саша")
	one := fixtures.Participant(t, dbx, parent.ID, "Борисов Дима")
	expired := fixtures.Participant(t, dbx, parent.ID, "Власов Илья")

	fixtures.Subscription(t, dbx, both, gid, 5, day.AddDate(0, 0, -10), day)
	fixtures.Subscription(t, dbx, both, gid, 8, day, day.AddDate(0, 0, 30))
	fixtures.Subscription(t, dbx, one, gid, 2, day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
	fixtures.Subscription(t, dbx, expired, gid, 4, day.AddDate(0, 0, -40), day.AddDate(0, 0, -10))

	roster, err := db.ListRoster(ctx, dbx, gid, day)
	if err != nil {
		t.Fatal(err)
	}
	counts := map[int64]int{}
	for _, e := range roster {
		counts[e.ParticipantID]++
	}
	if counts[both] != 2 || counts[one] != 1 || counts[expired] != 0 {
		t.Fatalf("roster counts: %v", counts)
	}
}

func TestOutbox_Lifecycle(t *testing.T) {
	dbx := startDB(t)
	ctx := context.Background()

	a, err := db.Enqueue(ctx, dbx, 100, "presence", "hello")
	if err != nil {
		t.Fatal(err)
	}
	b, err := db.Enqueue(ctx, dbx, 200, "low_balance", "bye")
	if err != nil {
		t.Fatal(err)
	}

	due, err := db.ClaimDue(ctx, dbx, time.Now().Add(time.Second), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 2 {
		t.Fatalf("due = %d, want 2", len(due))
	}
	if err := db.MarkSent(ctx, dbx, []int64{a}); err != nil {
		t.Fatal(err)
	}
	if err := db.Reschedule(ctx, dbx, b, time.Now().Add(time.Hour), "timeout"); err != nil {
		t.Fatal(err)
	}

	due, err = db.ClaimDue(ctx, dbx, time.Now().Add(time.Second), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 0 {
		t.Fatalf("rescheduled message must not be due yet: %+v", due)
	}
	n, err := db.OutboxPending(ctx, dbx)
	if err != nil || n != 1 {
		t.Fatalf("pending = %d, err = %v", n, err)
	}
}

func TestEnsureAccount_RoleFollowsLogin(t *testing.T) {
	dbx := startDB(t)
	ctx := context.Background()

	a, created, err := db.EnsureAccount(ctx, dbx, models.Account{TelegramID: 4242, FirstName: "Оля", Role: models.Guardian})
	if err != nil {
		t.Fatal(err)
	}
	if !created || a.Role != models.Guardian {
		t.Fatalf("first login: created=%v account=%+v", created, a)
	}

	// id добавили в список администраторов
	b, created, err := db.EnsureAccount(ctx, dbx, models.Account{TelegramID: 4242, FirstName: "Ольга", Role: models.Admin})
	if err != nil {
		t.Fatal(err)
	}
	if created || b.ID != a.ID || b.Role != models.Admin || b.FirstName != "Ольга" {
		t.Fatalf("promoted: created=%v account=%+v", created, b)
	}

	// и убрали обратно
	c, _, err := db.EnsureAccount(ctx, dbx, models.Account{TelegramID: 4242, FirstName: "Ольга", Role: models.Guardian})
	if err != nil {
		t.Fatal(err)
	}
	if c.Role != models.Guardian {
		t.Fatalf("demoted: account=%+v", c)
	}
}
