package models

import "time"

type AbsenceReason string

const (
	Excused   AbsenceReason = "excused"
	Unexcused AbsenceReason = "unexcused"
)

// ParseAbsenceReason — пустое или неизвестное значение считаем неуважительной причиной.
func ParseAbsenceReason(s string) AbsenceReason {
	if AbsenceReason(s) == Excused {
		return Excused
	}
	return Unexcused
}

// AttendanceSession — одно занятие группы в конкретный день. Уникально по (group_id, lesson_date).
type AttendanceSession struct {
	ID          int64     `db:"id" json:"id"`
	GroupID     int64     `db:"group_id" json:"group_id"`
	LessonDate  time.Time `db:"lesson_date" json:"date"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	IsCompleted bool      `db:"is_completed" json:"is_completed"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
}

// AttendanceMark — отметка участника на занятии. Уникальна по (session_id, participant_id).
type AttendanceMark struct {
	ID            int64          `db:"id"`
	SessionID     int64          `db:"session_id"`
	ParticipantID int64          `db:"participant_id"`
	IsPresent     bool           `db:"is_present"`
	AbsenceReason *AbsenceReason `db:"absence_reason"`
}

// MarkInput — то, что присылает администратор при сохранении посещаемости.
type MarkInput struct {
	ParticipantID int64
	Present       bool
	Reason        AbsenceReason
}

// Normalize: у присутствующего причины нет, у отсутствующего она всегда есть.
func (m MarkInput) Normalize() MarkInput {
	if m.Present {
		m.Reason = ""
	} else if m.Reason != Excused {
		m.Reason = Unexcused
	}
	return m
}

// SessionStats — агрегат по одному занятию.
type SessionStats struct {
	SessionID  int64     `json:"session_id"`
	Date       time.Time `json:"date"`
	DayName    string    `json:"day_name"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Total      int       `json:"total"`
	Present    int       `json:"present"`
	Absent     int       `json:"absent"`
	Percentage int       `json:"percentage"`
}

// Percent — доля присутствующих, округлённая до целого.
func Percent(present, total int) int {
	if total <= 0 {
		return 0
	}
	return (present*100 + total/2) / total
}
