package db

import (
	"context"
	"time"

	"github.com/Spok95/sportclub-bot/internal/ctxutil"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/lib/pq"
)

const subscriptionCols = `s.id, s.participant_id, s.group_id, s.subscription_type, s.total_lessons,
	s.remaining_lessons, s.start_date, s.end_date, s.is_active, s.created_at`

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	var s models.Subscription
	if err := row.Scan(&s.ID, &s.ParticipantID, &s.GroupID, &s.Type, &s.TotalLessons,
		&s.RemainingLessons, &s.StartDate, &s.EndDate, &s.IsActive, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func CreateSubscription(ctx context.Context, q Querier, s models.Subscription) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO subscriptions (participant_id, group_id, subscription_type, total_lessons, remaining_lessons, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, s.ParticipantID, s.GroupID, s.Type, s.TotalLessons, s.RemainingLessons,
		models.DateOf(s.StartDate), models.DateOf(s.EndDate), s.IsActive).Scan(&id)
	return id, err
}

func GetSubscription(ctx context.Context, q Querier, id int64) (*models.Subscription, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	s, err := scanSubscription(q.QueryRowContext(ctx, `SELECT `+subscriptionCols+` FROM subscriptions s WHERE s.id = $1`, id))
	if err != nil {
		return nil, notFound(err, "subscription", id)
	}
	return s, nil
}

func DeleteSubscription(ctx context.Context, q Querier, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := q.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "subscription", id)
}

// SubscriptionView — абонемент вместе с названием группы (для списков).
type SubscriptionView struct {
	models.Subscription
	GroupName string `json:"sport_group"`
}

func ListSubscriptionsByParticipants(ctx context.Context, q Querier, participantIDs []int64) (map[int64][]SubscriptionView, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT `+subscriptionCols+`, g.name
		FROM subscriptions s
		JOIN sport_groups g ON g.id = s.group_id
		WHERE s.participant_id = ANY($1::bigint[])
		ORDER BY s.is_active DESC, s.end_date DESC, s.id
	`, pq.Array(participantIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int64][]SubscriptionView)
	for rows.Next() {
		var v SubscriptionView
		s := &v.Subscription
		if err := rows.Scan(&s.ID, &s.ParticipantID, &s.GroupID, &s.Type, &s.TotalLessons,
			&s.RemainingLessons, &s.StartDate, &s.EndDate, &s.IsActive, &s.CreatedAt, &v.GroupName); err != nil {
			return nil, err
		}
		out[s.ParticipantID] = append(out[s.ParticipantID], v)
	}
	return out, rows.Err()
}

// RosterEntry — участник, ожидаемый на занятии, вместе с абонементом, по которому он ожидается.
type RosterEntry struct {
	ParticipantID    int64
	FullName         string
	ParentPhone      string
	SubscriptionID   int64
	RemainingLessons int
}

// ListRoster — одна строка на каждый активный абонемент группы, окно которого содержит дату.
// Участник с двумя такими абонементами попадает в выборку дважды.
func ListRoster(ctx context.Context, q Querier, groupID int64, day time.Time) ([]RosterEntry, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT p.id, p.full_name, p.parent_phone, s.id, s.remaining_lessons
		FROM subscriptions s
		JOIN participants p ON p.id = s.participant_id
		WHERE s.group_id = $1
		  AND s.is_active
		  AND s.start_date <= $2 AND s.end_date >= $2
		ORDER BY LOWER(p.full_name), p.id, s.id
	`, groupID, models.DateOf(day))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []RosterEntry
	for rows.Next() {
		var e RosterEntry
		if err := rows.Scan(&e.ParticipantID, &e.FullName, &e.ParentPhone, &e.SubscriptionID, &e.RemainingLessons); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindChargeableSubscription — активный абонемент участника в группе с ненулевым остатком,
// действующий на дату занятия; из нескольких берём заканчивающийся раньше. Строка блокируется.
// nil, nil — списывать не с чего.
func FindChargeableSubscription(ctx context.Context, q Querier, participantID, groupID int64, day time.Time) (*models.Subscription, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	s, err := scanSubscription(q.QueryRowContext(ctx, `
		SELECT `+subscriptionCols+`
		FROM subscriptions s
		WHERE s.participant_id = $1 AND s.group_id = $2
		  AND s.is_active AND s.remaining_lessons > 0
		  AND s.start_date <= $3 AND s.end_date >= $3
		ORDER BY s.end_date, s.id
		LIMIT 1
		FOR UPDATE
	`, participantID, groupID, models.DateOf(day)))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// DecrementLesson — атомарное списание одного занятия. Остаток не уходит ниже нуля:
// если его уже нет, ok == false.
func DecrementLesson(ctx context.Context, q Querier, subscriptionID int64) (remaining int, ok bool, err error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	err = q.QueryRowContext(ctx, `
		UPDATE subscriptions
		SET remaining_lessons = remaining_lessons - 1
		WHERE id = $1 AND remaining_lessons > 0
		RETURNING remaining_lessons
	`, subscriptionID).Scan(&remaining)
	if err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return remaining, true, nil
}

// LowBalanceRow — активный абонемент с малым остатком и контакт родителя.
type LowBalanceRow struct {
	SubscriptionID   int64
	ParticipantID    int64
	ParticipantName  string
	GroupName        string
	RemainingLessons int
	EndDate          time.Time
}

func ListLowBalance(ctx context.Context, q Querier, threshold int) ([]LowBalanceRow, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT s.id, p.id, p.full_name, g.name, s.remaining_lessons, s.end_date
		FROM subscriptions s
		JOIN participants p ON p.id = s.participant_id
		JOIN sport_groups g ON g.id = s.group_id
		WHERE s.is_active AND s.remaining_lessons <= $1
		ORDER BY g.name, LOWER(p.full_name)
	`, threshold)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []LowBalanceRow
	for rows.Next() {
		var r LowBalanceRow
		if err := rows.Scan(&r.SubscriptionID, &r.ParticipantID, &r.ParticipantName, &r.GroupName, &r.RemainingLessons, &r.EndDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
