package httpapi

import (
	"time"

	"github.com/Spok95/sportclub-bot/internal/attendance"
	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/export"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// scheduleWindow — сколько дней назад и вперёд показываем даты занятий.
const scheduleWindow = 14

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *server) attendanceGroups(c *fiber.Ctx) error {
	groups, err := db.ListGroups(c.UserContext(), s.DB)
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(groups))
	for _, g := range groups {
		out = append(out, fiber.Map{"id": g.ID, "name": g.Name, "description": g.Description})
	}
	return ok(c, fiber.Map{"groups": out})
}

func (s *server) attendanceSchedule(c *fiber.Ctx) error {
	gid, err := paramID(c, "group_id")
	if err != nil {
		return err
	}
	today := models.Today(s.Config.Location)
	dates, err := s.Attendance.LessonDates(c.UserContext(), gid,
		today.AddDate(0, 0, -scheduleWindow), today.AddDate(0, 0, scheduleWindow))
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(dates))
	for _, d := range dates {
		out = append(out, fiber.Map{
			"date":           dateStr(d.Date),
			"day_name":       d.DayName,
			"day_number":     d.Date.Day(),
			"month":          models.MonthGenitive(d.Date.Month()),
			"year":           d.Date.Year(),
			"start_time":     d.StartTime,
			"end_time":       d.EndTime,
			"has_attendance": d.HasAttendance,
			"is_completed":   d.IsCompleted,
			"attendance_id":  d.AttendanceID,
			"is_today":       d.Date.Equal(today),
		})
	}
	return ok(c, fiber.Map{"dates": out})
}

// attendanceRoster открывает (или создаёт) занятие и отдаёт список для отметки
// вместе с уже сохранёнными отметками.
func (s *server) attendanceRoster(c *fiber.Ctx) error {
	gid, err := paramID(c, "group_id")
	if err != nil {
		return err
	}
	day, err := models.ParseDate(c.Params("date"))
	if err != nil {
		return badRequest("%s", err.Error())
	}

	ctx := c.UserContext()
	sess, err := s.Attendance.GetOrCreateSession(ctx, gid, day)
	if err != nil {
		return err
	}
	entries, err := s.Attendance.Roster(ctx, gid, day)
	if err != nil {
		return err
	}
	marks, err := db.MarksForSession(ctx, s.DB, sess.ID)
	if err != nil {
		return err
	}

	rows := attendance.Collapse(entries)
	out := make([]fiber.Map, 0, len(rows))
	for _, r := range rows {
		item := fiber.Map{
			"id":                r.ParticipantID,
			"full_name":         r.FullName,
			"parent_phone":      r.ParentPhone,
			"remaining_lessons": r.RemainingLessons,
			"subscriptions":     r.Subscriptions,
			"is_present":        false,
			"absence_reason":    nil,
		}
		if m, found := marks[r.ParticipantID]; found {
			item["is_present"] = m.IsPresent
			item["absence_reason"] = m.AbsenceReason
		}
		out = append(out, item)
	}
	return ok(c, fiber.Map{
		"attendance_id": sess.ID,
		"date":          dateStr(sess.LessonDate),
		"start_time":    sess.StartTime,
		"end_time":      sess.EndTime,
		"is_completed":  sess.IsCompleted,
		"participants":  out,
	})
}

type markRequest struct {
	ID            int64   `json:"id" validate:"required,gt=0"`
	IsPresent     bool    `json:"is_present"`
	AbsenceReason *string `json:"absence_reason" validate:"omitempty,oneof=excused unexcused"`
}

type saveRequest struct {
	AttendanceID int64         `json:"attendance_id" validate:"required,gt=0"`
	Participants []markRequest `json:"participants" validate:"dive"`
}

func (s *server) attendanceSave(c *fiber.Ctx) error {
	var req saveRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	marks := make([]models.MarkInput, 0, len(req.Participants))
	for _, p := range req.Participants {
		m := models.MarkInput{ParticipantID: p.ID, Present: p.IsPresent}
		if p.AbsenceReason != nil {
			m.Reason = models.ParseAbsenceReason(*p.AbsenceReason)
		}
		marks = append(marks, m.Normalize())
	}

	res, err := s.Attendance.RecordAttendance(c.UserContext(), req.AttendanceID, marks)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{
		"message":       "Посещаемость сохранена",
		"attendance_id": res.SessionID,
		"saved":         res.Saved,
		"charged":       res.Charged,
		"outcomes":      res.Outcomes,
	})
}

func statsView(st models.SessionStats) fiber.Map {
	return fiber.Map{
		"attendance_id": st.SessionID,
		"date":          dateStr(st.Date),
		"day_name":      st.DayName,
		"start_time":    st.StartTime,
		"end_time":      st.EndTime,
		"total":         st.Total,
		"present":       st.Present,
		"absent":        st.Absent,
		"percentage":    st.Percentage,
	}
}

func (s *server) attendanceStats(c *fiber.Ctx) error {
	gid, err := paramID(c, "group_id")
	if err != nil {
		return err
	}
	stats, err := db.GroupSessionStats(c.UserContext(), s.DB, gid)
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(stats))
	for _, st := range stats {
		out = append(out, statsView(st))
	}
	return ok(c, fiber.Map{"stats": out})
}

func (s *server) attendanceExport(c *fiber.Ctx) error {
	gid, err := paramID(c, "group_id")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	g, err := db.GetGroup(ctx, s.DB, gid)
	if err != nil {
		return err
	}
	stats, err := db.GroupSessionStats(ctx, s.DB, gid)
	if err != nil {
		return err
	}
	totals, err := db.GroupParticipantTotals(ctx, s.DB, gid)
	if err != nil {
		return err
	}
	people := make([]export.ParticipantTotals, 0, len(totals))
	for _, t := range totals {
		people = append(people, export.ParticipantTotals{
			FullName:  t.FullName,
			Marked:    t.Marked,
			Present:   t.Present,
			Excused:   t.Excused,
			Unexcused: t.Unexcused,
		})
	}

	f, err := export.AttendanceWorkbook(g.Name, stats, people)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	data, err := export.Bytes(f)
	if err != nil {
		return err
	}
	name := export.AttendanceReportFilename(g.Name, time.Now().In(s.Config.Location))
	s.Log.Info("attendance exported", zap.Int64("group_id", gid), zap.Int("sessions", len(stats)), zap.Int("bytes", len(data)))

	c.Attachment(name)
	c.Set(fiber.HeaderContentType, xlsxMIME)
	return c.Send(data)
}
