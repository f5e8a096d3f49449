package export

import (
	"fmt"

	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/xuri/excelize/v2"
)

// ParticipantTotals — итоги участника по всем занятиям группы.
type ParticipantTotals struct {
	FullName  string
	Marked    int
	Present   int
	Excused   int
	Unexcused int
}

// AttendanceWorkbook — два листа: по занятиям и по участникам.
func AttendanceWorkbook(groupName string, sessions []models.SessionStats, people []ParticipantTotals) (*excelize.File, error) {
	byLesson := SheetSpec{
		Title:  "Занятия",
		Header: []string{"Дата", "День", "Время", "Всего", "Присутствовали", "Отсутствовали", "Посещаемость, %"},
	}
	for _, s := range sessions {
		byLesson.Rows = append(byLesson.Rows, []any{
			s.Date.Format("02.01.2006"),
			s.DayName,
			fmt.Sprintf("%s–%s", s.StartTime, s.EndTime),
			s.Total,
			s.Present,
			s.Absent,
			s.Percentage,
		})
	}

	byPerson := SheetSpec{
		Title:  "Участники",
		Header: []string{"Участник", "Отмечен", "Был", "Уважительно", "Неуважительно", "Посещаемость, %"},
	}
	for _, p := range people {
		byPerson.Rows = append(byPerson.Rows, []any{
			p.FullName, p.Marked, p.Present, p.Excused, p.Unexcused, models.Percent(p.Present, p.Marked),
		})
	}

	f, err := NewWorkbook([]SheetSpec{byLesson, byPerson})
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)
	if err := f.SetDocProps(&excelize.DocProperties{Title: "Посещаемость: " + groupName, Creator: "sportclub-bot"}); err != nil {
		return nil, err
	}
	return f, nil
}
