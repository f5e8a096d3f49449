//go:build testutil
// +build testutil

package attendance_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Spok95/sportclub-bot/internal/attendance"
	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/Spok95/sportclub-bot/internal/notify"
	"github.com/Spok95/sportclub-bot/internal/testutil/fixtures"
	"github.com/Spok95/sportclub-bot/internal/testutil/testdb"
)

type env struct {
	db     *sql.DB
	svc    *attendance.Service
	admin  *models.Account
	parent *models.Account
	group  int64
	monday time.Time
}

func setup(t *testing.T) *env {
	t.Helper()
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(h.Close)

	e := &env{db: h.DB}
	e.admin = fixtures.Account(t, h.DB, "Админ", models.Admin)
	e.parent = fixtures.Account(t, h.DB, "Мама", models.Guardian)
	e.group = fixtures.Group(t, h.DB, "Дзюдо младшая группа")
	fixtures.Slot(t, h.DB, e.group, 0, "18:00", "19:00")
	e.monday = fixtures.NextWeekday(time.Now(), 0)
	e.svc = attendance.NewService(h.DB, notify.NewNotifier(nil, nil), nil)
	return e
}

func (e *env) child(t *testing.T, name string, remaining int) (pid, sid int64) {
	t.Helper()
	pid = fixtures.Participant(t, e.db, e.admin.ID, name)
	fixtures.LinkGuardian(t, e.db, pid, e.parent.ID)
	sid = fixtures.Subscription(t, e.db, pid, e.group, remaining, e.monday.AddDate(0, 0, -7), e.monday)
	return pid, sid
}

func (e *env) outbox(t *testing.T, kind notify.Kind) []string {
	t.Helper()
	return fixtures.Outbox(t, e.db, e.parent.TelegramID, string(kind))
}

func TestMondayPresence_LowBalance(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	pid, sid := e.child(t, "Петя Иванов", 2)

	roster, err := e.svc.Roster(ctx, e.group, e.monday)
	if err != nil {
		t.Fatal(err)
	}
	if len(roster) != 1 || roster[0].ParticipantID != pid {
		t.Fatalf("roster: %+v", roster)
	}

	sess, err := e.svc.GetOrCreateSession(ctx, e.group, e.monday)
	if err != nil {
		t.Fatal(err)
	}
	if sess.StartTime != "18:00" || sess.EndTime != "19:00" || sess.IsCompleted {
		t.Fatalf("session: %+v", sess)
	}

	res, err := e.svc.RecordAttendance(ctx, sess.ID, []models.MarkInput{{ParticipantID: pid, Present: true}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Charged != 1 || !res.Outcomes[0].LowBalance {
		t.Fatalf("result: %+v", res)
	}
	if got := fixtures.Remaining(t, e.db, sid); got != 1 {
		t.Fatalf("remaining = %d, want 1", got)
	}

	done, err := db.GetSession(ctx, e.db, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !done.IsCompleted {
		t.Fatal("session must be completed")
	}

	if n := len(e.outbox(t, notify.KindPresence)); n != 1 {
		t.Fatalf("presence notices = %d, want 1", n)
	}
	low := e.outbox(t, notify.KindLowBalance)
	if len(low) != 1 || !strings.Contains(low[0], "Петя Иванов") {
		t.Fatalf("low balance notices: %v", low)
	}
}

func TestGetOrCreateSession_IdempotentAndNoSchedule(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	a, err := e.svc.GetOrCreateSession(ctx, e.group, e.monday)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.svc.GetOrCreateSession(ctx, e.group, e.monday)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID {
		t.Fatalf("session ids differ: %d vs %d", a.ID, b.ID)
	}

	tuesday := e.monday.AddDate(0, 0, 1)
	if _, err := e.svc.GetOrCreateSession(ctx, e.group, tuesday); !errors.Is(err, attendance.ErrNoSchedule) {
		t.Fatalf("want ErrNoSchedule, got %v", err)
	}
}

func TestAbsencePolicy(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	excusedID, excusedSub := e.child(t, "Аня", 5)
	unexcusedID, unexcusedSub := e.child(t, "Боря", 5)

	sess, err := e.svc.GetOrCreateSession(ctx, e.group, e.monday)
	if err != nil {
		t.Fatal(err)
	}
	_, err = e.svc.RecordAttendance(ctx, sess.ID, []models.MarkInput{
		{ParticipantID: excusedID, Reason: models.Excused},
		{ParticipantID: unexcusedID, Reason: models.Unexcused},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := fixtures.Remaining(t, e.db, excusedSub); got != 5 {
		t.Fatalf("excused remaining = %d, want 5", got)
	}
	if got := fixtures.Remaining(t, e.db, unexcusedSub); got != 4 {
		t.Fatalf("unexcused remaining = %d, want 4", got)
	}
	if n := len(e.outbox(t, notify.KindAbsenceExcused)); n != 1 {
		t.Fatalf("excused notices = %d", n)
	}
	if n := len(e.outbox(t, notify.KindAbsenceUnexcused)); n != 1 {
		t.Fatalf("unexcused notices = %d", n)
	}
}

func TestResaveDoesNotChargeTwice(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	pid, sid := e.child(t, "Вика", 4)

	sess, err := e.svc.GetOrCreateSession(ctx, e.group, e.monday)
	if err != nil {
		t.Fatal(err)
	}
	marks := []models.MarkInput{{ParticipantID: pid, Present: true}}
	for i := 0; i < 3; i++ {
		if _, err := e.svc.RecordAttendance(ctx, sess.ID, marks); err != nil {
			t.Fatal(err)
		}
	}
	if got := fixtures.Remaining(t, e.db, sid); got != 3 {
		t.Fatalf("remaining = %d, want 3", got)
	}

	// present -> unexcused: занятие уже списано
	res, err := e.svc.RecordAttendance(ctx, sess.ID, []models.MarkInput{{ParticipantID: pid, Reason: models.Unexcused}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Charged != 0 || fixtures.Remaining(t, e.db, sid) != 3 {
		t.Fatalf("switching charged marks must not charge again: %+v", res)
	}
}

func TestZeroBalanceIsSkipped(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	pid, sid := e.child(t, "Гоша", 0)

	sess, err := e.svc.GetOrCreateSession(ctx, e.group, e.monday)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.svc.RecordAttendance(ctx, sess.ID, []models.MarkInput{{ParticipantID: pid, Present: true}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Charged != 0 || res.Outcomes[0].Skipped == "" {
		t.Fatalf("result: %+v", res)
	}
	if got := fixtures.Remaining(t, e.db, sid); got != 0 {
		t.Fatalf("remaining = %d, want 0", got)
	}
	if n := len(e.outbox(t, notify.KindPresence)); n != 0 {
		t.Fatalf("no notice expected when nothing was charged, got %d", n)
	}
}

func TestOutOfWindowSubscriptionIsNotCharged(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	pid := fixtures.Participant(t, e.db, e.admin.ID, "Дима")
	fixtures.LinkGuardian(t, e.db, pid, e.parent.ID)
	expired := fixtures.Subscription(t, e.db, pid, e.group, 5, e.monday.AddDate(0, 0, -40), e.monday.AddDate(0, 0, -1))
	future := fixtures.Subscription(t, e.db, pid, e.group, 5, e.monday.AddDate(0, 0, 1), e.monday.AddDate(0, 0, 31))

	sess, err := e.svc.GetOrCreateSession(ctx, e.group, e.monday)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.svc.RecordAttendance(ctx, sess.ID, []models.MarkInput{{ParticipantID: pid, Present: true}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Charged != 0 || res.Outcomes[0].Skipped != "no_active_subscription" {
		t.Fatalf("result: %+v", res)
	}
	for _, sid := range []int64{expired, future} {
		if got := fixtures.Remaining(t, e.db, sid); got != 5 {
			t.Fatalf("subscription %d remaining = %d, want 5", sid, got)
		}
	}
}
