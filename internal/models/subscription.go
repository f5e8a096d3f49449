package models

import (
	"errors"
	"time"
)

// Типы абонементов — как их видит клиент.
const (
	SubscriptionEight  = "8 занятий"
	SubscriptionTwelve = "12 занятий"
	SubscriptionSingle = "Разовые занятия"
)

// SubscriptionDays — срок действия абонемента, купленного родителем.
const SubscriptionDays = 30

// LowBalanceThreshold — при остатке не выше этого значения шлём предупреждение.
const LowBalanceThreshold = 1

type Subscription struct {
	ID               int64     `db:"id" json:"id"`
	ParticipantID    int64     `db:"participant_id" json:"participant_id"`
	GroupID          int64     `db:"group_id" json:"sport_group_id"`
	Type             string    `db:"subscription_type" json:"subscription_type"`
	TotalLessons     int       `db:"total_lessons" json:"total_lessons"`
	RemainingLessons int       `db:"remaining_lessons" json:"remaining_lessons"`
	StartDate        time.Time `db:"start_date" json:"start_date"`
	EndDate          time.Time `db:"end_date" json:"end_date"`
	IsActive         bool      `db:"is_active" json:"is_active"`
	CreatedAt        time.Time `db:"created_at" json:"-"`
}

// Covers — попадает ли дата занятия в окно действия (границы включительно).
func (s Subscription) Covers(day time.Time) bool {
	d := DateOf(day)
	return !d.Before(DateOf(s.StartDate)) && !d.After(DateOf(s.EndDate))
}

// Validate — базовые проверки перед вставкой.
func (s Subscription) Validate() error {
	if s.ParticipantID == 0 || s.GroupID == 0 {
		return errors.New("participant and group are required")
	}
	if s.TotalLessons <= 0 {
		return errors.New("total_lessons must be positive")
	}
	if s.RemainingLessons < 0 || s.RemainingLessons > s.TotalLessons {
		return errors.New("remaining_lessons out of range")
	}
	if s.EndDate.Before(s.StartDate) {
		return errors.New("end_date before start_date")
	}
	return nil
}

// LessonsFor — сколько занятий в абонементе данного типа (0 — тип не известен).
func LessonsFor(subscriptionType string) int {
	switch subscriptionType {
	case SubscriptionEight:
		return 8
	case SubscriptionTwelve:
		return 12
	case SubscriptionSingle:
		return 1
	}
	return 0
}
