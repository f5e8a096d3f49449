package models

import (
	"errors"
	"time"
)

type Group struct {
	ID                  int64     `db:"id" json:"id"`
	Name                string    `db:"name" json:"name"`
	Description         string    `db:"description" json:"description"`
	DetailedDescription string    `db:"detailed_description" json:"detailed_description"`
	TrainerName         string    `db:"trainer_name" json:"trainer_name"`
	TrainerInfo         string    `db:"trainer_info" json:"trainer_info"`
	Category            string    `db:"category" json:"category"`
	Price8              int       `db:"price_8" json:"price_8"`
	Price12             int       `db:"price_12" json:"price_12"`
	PriceSingle         int       `db:"price_single" json:"price_single"`
	CreatedAt           time.Time `db:"created_at" json:"-"`
}

// WeeklySlot — шаблон еженедельного занятия. Weekday: 0 = понедельник ... 6 = воскресенье.
// Время хранится строкой "HH:MM".
type WeeklySlot struct {
	ID        int64  `db:"id" json:"id"`
	GroupID   int64  `db:"group_id" json:"sport_group_id"`
	GroupName string `db:"group_name" json:"sport_group_name,omitempty"`
	Weekday   int    `db:"weekday" json:"day_of_week"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}

// Normalize проверяет день недели и время и приводит время к "HH:MM".
func (s WeeklySlot) Normalize() (WeeklySlot, error) {
	if s.Weekday < 0 || s.Weekday > 6 {
		return s, errors.New("день недели должен быть от 0 (понедельник) до 6 (воскресенье)")
	}
	start, err := ParseClock(s.StartTime)
	if err != nil {
		return s, err
	}
	end, err := ParseClock(s.EndTime)
	if err != nil {
		return s, err
	}
	if end <= start {
		return s, errors.New("время окончания должно быть позже начала")
	}
	s.StartTime, s.EndTime = start, end
	return s, nil
}

// LessonTransfer — заявка на перенос занятия. Хранится, но расписание не меняет.
type LessonTransfer struct {
	ID             int64     `db:"id" json:"id"`
	SubscriptionID int64     `db:"subscription_id" json:"subscription_id"`
	OriginalDate   time.Time `db:"original_date" json:"original_date"`
	NewDate        time.Time `db:"new_date" json:"new_date"`
	Reason         string    `db:"reason" json:"reason"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type Discount struct {
	ID           int64      `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Description  *string    `db:"description" json:"description"`
	DiscountType string     `db:"discount_type" json:"discount_type"`
	Percent      int        `db:"discount_percent" json:"discount_percent"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	StartDate    *time.Time `db:"start_date" json:"start_date"`
	EndDate      *time.Time `db:"end_date" json:"end_date"`
	CreatedAt    time.Time  `db:"created_at" json:"-"`
}
