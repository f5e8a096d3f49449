//go:build testutil
// +build testutil

// Package fixtures — заготовки данных для интеграционных тестов.
package fixtures

import (
	"context"
	"database/sql"
	"math/rand"
	"testing"
	"time"

	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/models"
)

func Account(t *testing.T, dbx *sql.DB, name string, role models.Role) *models.Account {
	t.Helper()
	a, _, err := db.EnsureAccount(context.Background(), dbx, models.Account{
		TelegramID: rand.Int63n(1e9) + 1,
		FirstName:  name,
		Role:       role,
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func Group(t *testing.T, dbx *sql.DB, name string) int64 {
	t.Helper()
	id, err := db.CreateGroup(context.Background(), dbx, models.Group{
		Name: name, Price8: 4000, Price12: 5000, PriceSingle: 700,
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func Slot(t *testing.T, dbx *sql.DB, groupID int64, weekday int, start, end string) int64 {
	t.Helper()
	id, err := db.CreateSlot(context.Background(), dbx, models.WeeklySlot{
		GroupID: groupID, Weekday: weekday, StartTime: start, EndTime: end,
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func Participant(t *testing.T, dbx *sql.DB, ownerID int64, name string) int64 {
	t.Helper()
	id, err := db.CreateParticipant(context.Background(), dbx, models.Participant{
		AccountID:   ownerID,
		FullName:    name,
		ParentPhone: "+79990000000",
		BirthDate:   time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

// Subscription — активный абонемент с окном [from, to].
func Subscription(t *testing.T, dbx *sql.DB, participantID, groupID int64, remaining int, from, to time.Time) int64 {
	t.Helper()
	total := remaining
	if total < 8 {
		total = 8
	}
	id, err := db.CreateSubscription(context.Background(), dbx, models.Subscription{
		ParticipantID:    participantID,
		GroupID:          groupID,
		Type:             models.SubscriptionEight,
		TotalLessons:     total,
		RemainingLessons: remaining,
		StartDate:        from,
		EndDate:          to,
		IsActive:         true,
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

// LinkGuardian — выдаёт код участнику и гасит его аккаунтом родителя.
func LinkGuardian(t *testing.T, dbx *sql.DB, participantID, accountID int64) string {
	t.Helper()
	ctx := context.Background()
	code, err := db.IssueCode(ctx, dbx, participantID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.RedeemCode(ctx, dbx, code, accountID); err != nil {
		t.Fatal(err)
	}
	return code
}

func Remaining(t *testing.T, dbx *sql.DB, subscriptionID int64) int {
	t.Helper()
	s, err := db.GetSubscription(context.Background(), dbx, subscriptionID)
	if err != nil {
		t.Fatal(err)
	}
	return s.RemainingLessons
}

// Outbox — тексты сообщений заданного вида, поставленных в очередь для чата.
func Outbox(t *testing.T, dbx *sql.DB, chatID int64, kind string) []string {
	t.Helper()
	rows, err := dbx.QueryContext(context.Background(), `
		SELECT text FROM notification_outbox
		WHERE chat_id = $1 AND kind = $2
		ORDER BY id
	`, chatID, kind)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			t.Fatal(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	return out
}

// NextWeekday — ближайшая дата (не раньше from) с заданным днём недели, 0 = понедельник.
func NextWeekday(from time.Time, weekday int) time.Time {
	d := models.DateOf(from)
	for models.WeekdayIndex(d) != weekday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
