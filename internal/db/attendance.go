package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Spok95/sportclub-bot/internal/ctxutil"
	"github.com/Spok95/sportclub-bot/internal/models"
)

const sessionCols = `id, group_id, lesson_date, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), is_completed, created_at`

func scanSession(row interface{ Scan(...any) error }) (*models.AttendanceSession, error) {
	var s models.AttendanceSession
	if err := row.Scan(&s.ID, &s.GroupID, &s.LessonDate, &s.StartTime, &s.EndTime, &s.IsCompleted, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func GetSession(ctx context.Context, q Querier, id int64) (*models.AttendanceSession, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	s, err := scanSession(q.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM attendance_sessions WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "attendance session", id)
	}
	return s, nil
}

// FindSession — сессия группы на дату; nil, nil — ещё не создана.
func FindSession(ctx context.Context, q Querier, groupID int64, day time.Time) (*models.AttendanceSession, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	s, err := scanSession(q.QueryRowContext(ctx, `
		SELECT `+sessionCols+` FROM attendance_sessions
		WHERE group_id = $1 AND lesson_date = $2
	`, groupID, models.DateOf(day)))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// InsertSession создаёт сессию или возвращает уже существующую.
// Гонка двух вставок разрешается уникальным ключом (group_id, lesson_date).
func InsertSession(ctx context.Context, q Querier, groupID int64, day time.Time, start, end string) (*models.AttendanceSession, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	d := models.DateOf(day)
	if _, err := q.ExecContext(ctx, `
		INSERT INTO attendance_sessions (group_id, lesson_date, start_time, end_time, is_completed)
		VALUES ($1, $2, $3::time, $4::time, FALSE)
		ON CONFLICT (group_id, lesson_date) DO NOTHING
	`, groupID, d, start, end); err != nil {
		return nil, fmt.Errorf("insert attendance session: %w", err)
	}

	s, err := scanSession(q.QueryRowContext(ctx, `
		SELECT `+sessionCols+` FROM attendance_sessions
		WHERE group_id = $1 AND lesson_date = $2
	`, groupID, d))
	if err != nil {
		return nil, fmt.Errorf("select attendance session: %w", err)
	}
	return s, nil
}

// LockSession берёт сессию FOR UPDATE: сохранения посещаемости одной сессии идут по очереди.
func LockSession(ctx context.Context, tx *sql.Tx, id int64) (*models.AttendanceSession, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	s, err := scanSession(tx.QueryRowContext(ctx, `SELECT `+sessionCols+` FROM attendance_sessions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "attendance session", id)
	}
	return s, nil
}

func MarkSessionCompleted(ctx context.Context, q Querier, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := q.ExecContext(ctx, `UPDATE attendance_sessions SET is_completed = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "attendance session", id)
}

// UpsertMark — одна отметка на участника в сессии; повторное сохранение перезаписывает.
// Возвращает прежнюю отметку (nil — её не было).
func UpsertMark(ctx context.Context, q Querier, sessionID int64, m models.MarkInput) (*models.AttendanceMark, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	m = m.Normalize()
	var reason *string
	if !m.Present {
		r := string(m.Reason)
		reason = &r
	}

	prev, err := scanMark(q.QueryRowContext(ctx, `
		SELECT id, session_id, participant_id, is_present, absence_reason
		FROM attendance_marks WHERE session_id = $1 AND participant_id = $2
	`, sessionID, m.ParticipantID))
	if err != nil && !isNoRows(err) {
		return nil, err
	}
	if isNoRows(err) {
		prev = nil
	}

	if _, err := q.ExecContext(ctx, `
		INSERT INTO attendance_marks (session_id, participant_id, is_present, absence_reason)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, participant_id)
		DO UPDATE SET is_present = EXCLUDED.is_present, absence_reason = EXCLUDED.absence_reason, updated_at = now()
	`, sessionID, m.ParticipantID, m.Present, reason); err != nil {
		return nil, fmt.Errorf("upsert mark participant=%d: %w", m.ParticipantID, err)
	}
	return prev, nil
}

func scanMark(row interface{ Scan(...any) error }) (*models.AttendanceMark, error) {
	var mk models.AttendanceMark
	var reason sql.NullString
	if err := row.Scan(&mk.ID, &mk.SessionID, &mk.ParticipantID, &mk.IsPresent, &reason); err != nil {
		return nil, err
	}
	if reason.Valid {
		r := models.AbsenceReason(reason.String)
		mk.AbsenceReason = &r
	}
	return &mk, nil
}

// MarksForSession — отметки сессии по participant_id.
func MarksForSession(ctx context.Context, q Querier, sessionID int64) (map[int64]models.AttendanceMark, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT id, session_id, participant_id, is_present, absence_reason
		FROM attendance_marks WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int64]models.AttendanceMark)
	for rows.Next() {
		mk, err := scanMark(rows)
		if err != nil {
			return nil, err
		}
		out[mk.ParticipantID] = *mk
	}
	return out, rows.Err()
}

// ListSessionsInRange — созданные сессии группы в интервале дат (включительно), по дате.
func ListSessionsInRange(ctx context.Context, q Querier, groupID int64, from, to time.Time) (map[string]models.AttendanceSession, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT `+sessionCols+` FROM attendance_sessions
		WHERE group_id = $1 AND lesson_date BETWEEN $2 AND $3
	`, groupID, models.DateOf(from), models.DateOf(to))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]models.AttendanceSession)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out[s.LessonDate.Format(models.DateLayout)] = *s
	}
	return out, rows.Err()
}

// GroupSessionStats — агрегаты по всем сессиям группы, новые сверху.
func GroupSessionStats(ctx context.Context, q Querier, groupID int64) ([]models.SessionStats, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT s.id, s.lesson_date, to_char(s.start_time, 'HH24:MI'), to_char(s.end_time, 'HH24:MI'),
		       COUNT(m.id),
		       COUNT(m.id) FILTER (WHERE m.is_present)
		FROM attendance_sessions s
		LEFT JOIN attendance_marks m ON m.session_id = s.id
		WHERE s.group_id = $1
		GROUP BY s.id
		ORDER BY s.lesson_date DESC
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.SessionStats
	for rows.Next() {
		var st models.SessionStats
		if err := rows.Scan(&st.SessionID, &st.Date, &st.StartTime, &st.EndTime, &st.Total, &st.Present); err != nil {
			return nil, err
		}
		st.Absent = st.Total - st.Present
		st.Percentage = models.Percent(st.Present, st.Total)
		st.DayName = models.DayName(models.WeekdayIndex(st.Date))
		out = append(out, st)
	}
	return out, rows.Err()
}

// HistoryRow — одна отметка в истории посещений участника.
type HistoryRow struct {
	Date          time.Time             `json:"date"`
	GroupName     string                `json:"sport_group"`
	StartTime     string                `json:"start_time"`
	EndTime       string                `json:"end_time"`
	IsPresent     bool                  `json:"is_present"`
	AbsenceReason *models.AbsenceReason `json:"absence_reason"`
}

func ParticipantHistory(ctx context.Context, q Querier, participantID int64, limit int) ([]HistoryRow, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	rows, err := q.QueryContext(ctx, `
		SELECT s.lesson_date, g.name, to_char(s.start_time, 'HH24:MI'), to_char(s.end_time, 'HH24:MI'),
		       m.is_present, m.absence_reason
		FROM attendance_marks m
		JOIN attendance_sessions s ON s.id = m.session_id
		JOIN sport_groups g ON g.id = s.group_id
		WHERE m.participant_id = $1
		ORDER BY s.lesson_date DESC
		LIMIT $2
	`, participantID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		var reason sql.NullString
		if err := rows.Scan(&h.Date, &h.GroupName, &h.StartTime, &h.EndTime, &h.IsPresent, &reason); err != nil {
			return nil, err
		}
		if reason.Valid {
			r := models.AbsenceReason(reason.String)
			h.AbsenceReason = &r
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ParticipantTotalsRow — итоги участника по занятиям группы.
type ParticipantTotalsRow struct {
	ParticipantID int64
	FullName      string
	Marked        int
	Present       int
	Excused       int
	Unexcused     int
}

func GroupParticipantTotals(ctx context.Context, q Querier, groupID int64) ([]ParticipantTotalsRow, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT p.id, p.full_name,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE m.is_present),
		       COUNT(*) FILTER (WHERE NOT m.is_present AND m.absence_reason = 'excused'),
		       COUNT(*) FILTER (WHERE NOT m.is_present AND m.absence_reason IS DISTINCT FROM 'excused')
		FROM attendance_marks m
		JOIN attendance_sessions s ON s.id = m.session_id
		JOIN participants p ON p.id = m.participant_id
		WHERE s.group_id = $1
		GROUP BY p.id, p.full_name
		ORDER BY LOWER(p.full_name)
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []ParticipantTotalsRow
	for rows.Next() {
		var r ParticipantTotalsRow
		if err := rows.Scan(&r.ParticipantID, &r.FullName, &r.Marked, &r.Present, &r.Excused, &r.Unexcused); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
