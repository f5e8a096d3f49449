package attendance

import "github.com/Spok95/sportclub-bot/internal/models"

// Charges — списывается ли занятие за отметку:
// присутствие и неуважительный пропуск списывают одно занятие, уважительный пропуск — нет.
func Charges(m models.MarkInput) bool {
	m = m.Normalize()
	return m.Present || m.Reason == models.Unexcused
}

// chargedBefore — списывала ли занятие уже сохранённая отметка.
func chargedBefore(prev *models.AttendanceMark) bool {
	if prev == nil {
		return false
	}
	in := models.MarkInput{ParticipantID: prev.ParticipantID, Present: prev.IsPresent}
	if prev.AbsenceReason != nil {
		in.Reason = *prev.AbsenceReason
	}
	return Charges(in)
}

// sameMark — повторное сохранение той же отметки.
func sameMark(prev *models.AttendanceMark, m models.MarkInput) bool {
	if prev == nil {
		return false
	}
	m = m.Normalize()
	if prev.IsPresent != m.Present {
		return false
	}
	if m.Present {
		return true
	}
	return prev.AbsenceReason != nil && *prev.AbsenceReason == m.Reason
}

func deductReason(m models.MarkInput) string {
	if m.Normalize().Present {
		return "present"
	}
	return string(models.Unexcused)
}
