package db

import (
	"context"

	"github.com/Spok95/sportclub-bot/internal/ctxutil"
	"github.com/Spok95/sportclub-bot/internal/models"
)

// CreateTransfer сохраняет заявку на перенос. Расписание и сессии она не трогает.
func CreateTransfer(ctx context.Context, q Querier, t models.LessonTransfer) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO lesson_transfers (subscription_id, original_date, new_date, reason, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id
	`, t.SubscriptionID, models.DateOf(t.OriginalDate), models.DateOf(t.NewDate), t.Reason).Scan(&id)
	return id, err
}

// SubscriptionOwnedBy — принадлежит ли абонемент участнику, к которому привязан аккаунт.
func SubscriptionOwnedBy(ctx context.Context, q Querier, subscriptionID, accountID int64) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var ok bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions s
			JOIN participants p ON p.id = s.participant_id
			WHERE s.id = $1 AND (p.account_id = $2 OR EXISTS (
				SELECT 1 FROM authorization_codes ac
				WHERE ac.participant_id = p.id AND ac.is_used AND ac.used_by_account_id = $2))
		)
	`, subscriptionID, accountID).Scan(&ok)
	return ok, err
}
