package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var dayNames = [7]string{"Понедельник", "Вторник", "Среда", "Четверг", "Пятница", "Суббота", "Воскресенье"}

var monthNames = [12]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// WeekdayIndex переводит time.Weekday в нумерацию расписания (0 = понедельник).
func WeekdayIndex(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

func DayName(idx int) string {
	if idx < 0 || idx > 6 {
		return fmt.Sprintf("День %d", idx)
	}
	return dayNames[idx]
}

func MonthGenitive(m time.Month) string { return monthNames[m-1] }

// DateOf отбрасывает время суток, оставляя календарную дату в UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today — текущая дата в часовом поясе клуба.
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return DateOf(time.Now().In(loc))
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("дата должна быть в формате ГГГГ-ММ-ДД: %q", s)
	}
	return t, nil
}

// ParseClock проверяет "HH:MM" и возвращает нормализованную строку.
func ParseClock(s string) (string, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("время должно быть в формате ЧЧ:ММ: %q", s)
	}
	return t.Format(TimeLayout), nil
}

// FormatDay — «12 мая 2025».
func FormatDay(d time.Time) string {
	return fmt.Sprintf("%d %s %d", d.Day(), MonthGenitive(d.Month()), d.Year())
}
