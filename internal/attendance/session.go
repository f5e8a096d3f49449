package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/models"
	"go.uber.org/zap"
)

var ErrNoSchedule = errors.New("no schedule for this day")

// GetOrCreateSession возвращает занятие группы на дату, при первом обращении
// создаёт его по слоту еженедельного расписания.
func (s *Service) GetOrCreateSession(ctx context.Context, groupID int64, day time.Time) (*models.AttendanceSession, error) {
	day = models.DateOf(day)
	existing, err := db.FindSession(ctx, s.db, groupID, day)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	slot, err := db.FindSlot(ctx, s.db, groupID, models.WeekdayIndex(day))
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, fmt.Errorf("group %d on %s (%s): %w",
			groupID, day.Format(models.DateLayout), models.DayName(models.WeekdayIndex(day)), ErrNoSchedule)
	}

	sess, err := db.InsertSession(ctx, s.db, groupID, day, slot.StartTime, slot.EndTime)
	if err != nil {
		return nil, err
	}
	s.log.Info("attendance session ready",
		zap.Int64("session_id", sess.ID), zap.Int64("group_id", groupID), zap.String("date", day.Format(models.DateLayout)))
	return sess, nil
}

// LessonDate — дата занятия в расписании группы, в окне [from, to].
type LessonDate struct {
	Date          time.Time `json:"date"`
	DayName       string    `json:"day_name"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	HasAttendance bool      `json:"has_attendance"`
	IsCompleted   bool      `json:"is_completed"`
	AttendanceID  *int64    `json:"attendance_id,omitempty"`
}

// LessonDates — все даты по расписанию группы в интервале, с признаком уже созданной сессии.
func (s *Service) LessonDates(ctx context.Context, groupID int64, from, to time.Time) ([]LessonDate, error) {
	slots, err := db.ListSlots(ctx, s.db, &groupID)
	if err != nil {
		return nil, err
	}
	sessions, err := db.ListSessionsInRange(ctx, s.db, groupID, from, to)
	if err != nil {
		return nil, err
	}
	return expandSchedule(slots, sessions, from, to), nil
}

func expandSchedule(slots []models.WeeklySlot, sessions map[string]models.AttendanceSession, from, to time.Time) []LessonDate {
	byDay := make(map[int]models.WeeklySlot, len(slots))
	for _, sl := range slots {
		if cur, ok := byDay[sl.Weekday]; !ok || sl.StartTime < cur.StartTime {
			byDay[sl.Weekday] = sl
		}
	}

	var out []LessonDate
	for d := models.DateOf(from); !d.After(models.DateOf(to)); d = d.AddDate(0, 0, 1) {
		wd := models.WeekdayIndex(d)
		sl, ok := byDay[wd]
		if !ok {
			continue
		}
		ld := LessonDate{Date: d, DayName: models.DayName(wd), StartTime: sl.StartTime, EndTime: sl.EndTime}
		if sess, ok := sessions[d.Format(models.DateLayout)]; ok {
			id := sess.ID
			ld.HasAttendance = true
			ld.IsCompleted = sess.IsCompleted
			ld.AttendanceID = &id
			ld.StartTime, ld.EndTime = sess.StartTime, sess.EndTime
		}
		out = append(out, ld)
	}
	return out
}
