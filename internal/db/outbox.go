package db

import (
	"context"
	"time"

	"github.com/Spok95/sportclub-bot/internal/ctxutil"
	"github.com/lib/pq"
)

// OutboxMessage — уведомление, ждущее отправки в Telegram.
type OutboxMessage struct {
	ID       int64
	ChatID   int64
	Kind     string
	Text     string
	Attempts int
}

// Enqueue кладёт сообщение в outbox. Вызывается в той же транзакции, что и изменение, о котором оно сообщает.
func Enqueue(ctx context.Context, q Querier, chatID int64, kind, text string) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO notification_outbox (chat_id, kind, text)
		VALUES ($1, $2, $3)
		RETURNING id
	`, chatID, kind, text).Scan(&id)
	return id, err
}

// ClaimDue — пачка созревших сообщений. SKIP LOCKED позволяет нескольким
// диспетчерам не брать одно и то же.
func ClaimDue(ctx context.Context, q Querier, now time.Time, limit int) ([]OutboxMessage, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT id, chat_id, kind, text, attempts
		FROM notification_outbox
		WHERE status = 'pending' AND next_attempt_at <= $1
		ORDER BY id
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Kind, &m.Text, &m.Attempts); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func MarkSent(ctx context.Context, q Querier, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	_, err := q.ExecContext(ctx, `
		UPDATE notification_outbox
		SET status = 'sent', sent_at = now(), attempts = attempts + 1
		WHERE id = ANY($1::bigint[])
	`, pq.Array(ids))
	return err
}

// Reschedule — неудачная попытка: увеличиваем счётчик и откладываем до next.
func Reschedule(ctx context.Context, q Querier, id int64, next time.Time, lastErr string) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	_, err := q.ExecContext(ctx, `
		UPDATE notification_outbox
		SET attempts = attempts + 1, next_attempt_at = $2, last_error = $3
		WHERE id = $1
	`, id, next, lastErr)
	return err
}

// MarkFailed — попытки исчерпаны или ошибка неисправима.
func MarkFailed(ctx context.Context, q Querier, id int64, lastErr string) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	_, err := q.ExecContext(ctx, `
		UPDATE notification_outbox
		SET status = 'failed', attempts = attempts + 1, last_error = $2
		WHERE id = $1
	`, id, lastErr)
	return err
}

// OutboxPending — сколько сообщений ждут отправки.
func OutboxPending(ctx context.Context, q Querier) (int, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM notification_outbox WHERE status = 'pending'`).Scan(&n)
	return n, err
}
