package attendance

import (
	"context"
	"time"

	"github.com/Spok95/sportclub-bot/internal/db"
)

// Roster — ожидаемые на занятии участники: одна запись на каждый подходящий абонемент.
func (s *Service) Roster(ctx context.Context, groupID int64, day time.Time) ([]db.RosterEntry, error) {
	return db.ListRoster(ctx, s.db, groupID, day)
}

// RosterRow — участник в списке для отметки: по одной строке на человека.
type RosterRow struct {
	ParticipantID    int64  `json:"id"`
	FullName         string `json:"full_name"`
	ParentPhone      string `json:"parent_phone"`
	RemainingLessons int    `json:"remaining_lessons"`
	Subscriptions    int    `json:"subscriptions"`
}

// Collapse сворачивает записи по участнику, остатки по абонементам суммируются.
// Порядок — как во входном списке.
func Collapse(entries []db.RosterEntry) []RosterRow {
	idx := make(map[int64]int, len(entries))
	out := make([]RosterRow, 0, len(entries))
	for _, e := range entries {
		if i, ok := idx[e.ParticipantID]; ok {
			out[i].RemainingLessons += e.RemainingLessons
			out[i].Subscriptions++
			continue
		}
		idx[e.ParticipantID] = len(out)
		out = append(out, RosterRow{
			ParticipantID:    e.ParticipantID,
			FullName:         e.FullName,
			ParentPhone:      e.ParentPhone,
			RemainingLessons: e.RemainingLessons,
			Subscriptions:    1,
		})
	}
	return out
}
