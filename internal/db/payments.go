package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/Spok95/sportclub-bot/internal/ctxutil"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/lib/pq"
)

// ErrNotPending — платёж уже обработан (подтверждён или отклонён).
var ErrNotPending = errors.New("payment is not pending")

const paymentCols = `pm.id, pm.account_id, pm.subscription_id, pm.amount, pm.payment_method, pm.status,
	pm.is_paid, pm.payment_date, pm.admin_notes, pm.processed_at, pm.created_at`

func scanPaymentInto(p *models.Payment, extra ...any) []any {
	return append([]any{&p.ID, &p.AccountID, &p.SubscriptionID, &p.Amount, &p.Method, &p.Status,
		&p.IsPaid, &p.PaymentDate, &p.AdminNotes, &p.ProcessedAt, &p.CreatedAt}, extra...)
}

// CreatePendingPayment — платёж всегда рождается в статусе pending.
func CreatePendingPayment(ctx context.Context, q Querier, accountID, subscriptionID int64, amount int, method string) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	if method == "" {
		method = "cash"
	}
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO payments (account_id, subscription_id, amount, payment_method, status, is_paid)
		VALUES ($1, $2, $3, $4, 'pending', FALSE)
		RETURNING id
	`, accountID, subscriptionID, amount, method).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return id, nil
}

func GetPayment(ctx context.Context, q Querier, id int64) (*models.Payment, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var p models.Payment
	err := q.QueryRowContext(ctx, `SELECT `+paymentCols+` FROM payments pm WHERE pm.id = $1`, id).Scan(scanPaymentInto(&p)...)
	if err != nil {
		return nil, notFound(err, "payment", id)
	}
	return &p, nil
}

const paymentViewQuery = `
	SELECT ` + paymentCols + `, p.full_name, g.name, s.subscription_type,
	       TRIM(a.first_name || ' ' || a.last_name)
	FROM payments pm
	JOIN subscriptions s ON s.id = pm.subscription_id
	JOIN participants p ON p.id = s.participant_id
	JOIN sport_groups g ON g.id = s.group_id
	JOIN accounts a ON a.id = pm.account_id`

// ListPayments — платежи для администратора; status == "" — все.
func ListPayments(ctx context.Context, q Querier, status models.PaymentStatus) ([]models.PaymentView, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, paymentViewQuery+`
		WHERE $1 = '' OR pm.status = $1
		ORDER BY pm.created_at DESC, pm.id DESC
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.PaymentView
	for rows.Next() {
		var v models.PaymentView
		if err := rows.Scan(scanPaymentInto(&v.Payment, &v.ParticipantName, &v.GroupName, &v.SubscriptionType, &v.PayerName)...); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func GetPaymentView(ctx context.Context, q Querier, id int64) (*models.PaymentView, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var v models.PaymentView
	err := q.QueryRowContext(ctx, paymentViewQuery+` WHERE pm.id = $1`, id).
		Scan(scanPaymentInto(&v.Payment, &v.ParticipantName, &v.GroupName, &v.SubscriptionType, &v.PayerName)...)
	if err != nil {
		return nil, notFound(err, "payment", id)
	}
	return &v, nil
}

// TransitionPayment переводит платёж из pending в to одним условным UPDATE.
// Если платёж уже обработан — ErrNotPending, если его нет — ErrNotFound.
func TransitionPayment(ctx context.Context, q Querier, id int64, to models.PaymentStatus, note *string) (*models.Payment, error) {
	if !models.PaymentPending.CanTransition(to) {
		return nil, fmt.Errorf("transition to %q: %w", to, ErrNotPending)
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	approved := to == models.PaymentApproved
	var p models.Payment
	err := q.QueryRowContext(ctx, `
		UPDATE payments pm SET
			status       = $2,
			is_paid      = $3,
			payment_date = CASE WHEN $3 THEN now() ELSE NULL END,
			admin_notes  = $4,
			processed_at = now()
		WHERE pm.id = $1 AND pm.status = 'pending'
		RETURNING `+paymentCols,
		id, string(to), approved, note).Scan(scanPaymentInto(&p)...)
	if err == nil {
		return &p, nil
	}
	if !isNoRows(err) {
		return nil, err
	}

	// различаем «нет такого» и «уже обработан»
	var status string
	err = q.QueryRowContext(ctx, `SELECT status FROM payments WHERE id = $1`, id).Scan(&status)
	if err != nil {
		return nil, notFound(err, "payment", id)
	}
	return nil, fmt.Errorf("payment %d is %s: %w", id, status, ErrNotPending)
}

// PaymentTotal — сколько платежей у участника и сколько по ним подтверждено.
type PaymentTotal struct {
	Count int
	Paid  int
}

// PaymentTotals — итоги по платежам участников; groupID != nil ограничивает одной группой.
func PaymentTotals(ctx context.Context, q Querier, participantIDs []int64, groupID *int64) (map[int64]PaymentTotal, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT s.participant_id,
		       COUNT(pm.id),
		       COALESCE(SUM(pm.amount) FILTER (WHERE pm.is_paid), 0)
		FROM payments pm
		JOIN subscriptions s ON s.id = pm.subscription_id
		WHERE s.participant_id = ANY($1::bigint[])
		  AND ($2::bigint IS NULL OR s.group_id = $2)
		GROUP BY s.participant_id
	`, pq.Array(participantIDs), groupID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int64]PaymentTotal)
	for rows.Next() {
		var id int64
		var t PaymentTotal
		if err := rows.Scan(&id, &t.Count, &t.Paid); err != nil {
			return nil, err
		}
		out[id] = t
	}
	return out, rows.Err()
}
