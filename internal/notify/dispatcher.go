package notify

import (
	"context"
	"database/sql"
	"time"

	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/metrics"
	"github.com/Spok95/sportclub-bot/internal/tg"
	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	defaultBatch       = 50
	defaultMaxAttempts = 5
)

// Dispatcher вычитывает outbox и отправляет сообщения в Telegram.
// Неудачная отправка откладывается с экспоненциальной задержкой,
// после maxAttempts попыток сообщение помечается failed.
type Dispatcher struct {
	db          *sql.DB
	bot         tg.Sender
	log         *zap.Logger
	maxAttempts int
	batch       int
	now         func() time.Time
}

func NewDispatcher(database *sql.DB, bot tg.Sender, log *zap.Logger, maxAttempts int) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Dispatcher{db: database, bot: bot, log: log, maxAttempts: maxAttempts, batch: defaultBatch, now: time.Now}
}

// RetryDelay — задержка перед попыткой номер attempt+1 (attempt >= 1): 5s, 10s, 20s ... до 30 минут.
func RetryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 30 * time.Minute
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// Drain отправляет одну пачку созревших сообщений. Подходит как jobs.Job.
func (d *Dispatcher) Drain(ctx context.Context) error {
	return db.WithTx(ctx, d.db, func(tx *sql.Tx) error {
		due, err := db.ClaimDue(ctx, tx, d.now(), d.batch)
		if err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}

		sent := make([]int64, 0, len(due))
		for _, m := range due {
			if ctx.Err() != nil {
				break
			}
			_, sendErr := tg.Send(d.bot, tgbotapi.NewMessage(m.ChatID, m.Text))
			if sendErr == nil {
				sent = append(sent, m.ID)
				metrics.NotificationsSent.WithLabelValues(m.Kind).Inc()
				continue
			}

			metrics.NotificationsFailed.WithLabelValues(m.Kind).Inc()
			attempt := m.Attempts + 1
			log := d.log.With(zap.Int64("outbox_id", m.ID), zap.Int64("chat_id", m.ChatID),
				zap.String("kind", m.Kind), zap.Int("attempt", attempt), zap.Error(sendErr))

			if tg.IsPermanent(sendErr) || attempt >= d.maxAttempts {
				log.Warn("notification failed permanently")
				if err := db.MarkFailed(ctx, tx, m.ID, sendErr.Error()); err != nil {
					return err
				}
				continue
			}
			next := d.now().Add(RetryDelay(attempt))
			log.Info("notification rescheduled", zap.Time("next_attempt_at", next))
			if err := db.Reschedule(ctx, tx, m.ID, next, sendErr.Error()); err != nil {
				return err
			}
		}
		return db.MarkSent(ctx, tx, sent)
	})
}
