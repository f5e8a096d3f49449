package models

import (
	"testing"
	"time"
)

func TestPaymentStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentPending, PaymentApproved, true},
		{PaymentPending, PaymentRejected, true},
		{PaymentPending, PaymentPending, false},
		{PaymentApproved, PaymentRejected, false},
		{PaymentApproved, PaymentApproved, false},
		{PaymentRejected, PaymentApproved, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Fatalf("%s -> %s: ожидали %v", c.from, c.to, c.want)
		}
	}
}

func TestWeekdayIndex(t *testing.T) {
	// 2025-05-12 — понедельник
	mon := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		if got := WeekdayIndex(mon.AddDate(0, 0, i)); got != i {
			t.Fatalf("день %d: получили %d", i, got)
		}
	}
	if DayName(0) != "Понедельник" || DayName(6) != "Воскресенье" {
		t.Fatal("названия дней перепутаны")
	}
}

func TestSubscription_Covers(t *testing.T) {
	s := Subscription{
		StartDate: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
	}
	t.Run("inside", func(t *testing.T) {
		if !s.Covers(time.Date(2025, 5, 12, 18, 0, 0, 0, time.UTC)) {
			t.Fatal("дата внутри окна")
		}
	})
	t.Run("bounds_inclusive", func(t *testing.T) {
		if !s.Covers(s.StartDate) || !s.Covers(s.EndDate.Add(23*time.Hour)) {
			t.Fatal("границы включительно")
		}
	})
	t.Run("outside", func(t *testing.T) {
		if s.Covers(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
			t.Fatal("1 июня вне окна")
		}
	})
}

func TestMarkInput_Normalize(t *testing.T) {
	if m := (MarkInput{Present: true, Reason: Excused}).Normalize(); m.Reason != "" {
		t.Fatalf("у присутствующего причина должна быть пустой: %q", m.Reason)
	}
	if m := (MarkInput{Present: false}).Normalize(); m.Reason != Unexcused {
		t.Fatalf("по умолчанию неуважительная: %q", m.Reason)
	}
	if ParseAbsenceReason("excused") != Excused || ParseAbsenceReason("whatever") != Unexcused {
		t.Fatal("ParseAbsenceReason")
	}
}

func TestParseClock(t *testing.T) {
	if v, err := ParseClock(" 18:00 "); err != nil || v != "18:00" {
		t.Fatalf("получили %q, %v", v, err)
	}
	if _, err := ParseClock("25:99"); err == nil {
		t.Fatal("ожидали ошибку")
	}
	if _, err := ParseDate("12.05.2025"); err == nil {
		t.Fatal("ожидали ошибку формата даты")
	}
}

func TestPercent(t *testing.T) {
	if Percent(2, 3) != 67 || Percent(0, 0) != 0 || Percent(5, 5) != 100 {
		t.Fatal("Percent")
	}
}
