package app

import (
	"context"
	"database/sql"

	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/Spok95/sportclub-bot/internal/notify"
	"go.uber.org/zap"
)

// LowBalanceSweeper — раз в день (и по кнопке администратора) предупреждает родителей,
// у которых заканчиваются абонементы, и шлёт сводку администраторам.
type LowBalanceSweeper struct {
	db       *sql.DB
	notifier *notify.Notifier
	log      *zap.Logger
}

func NewLowBalanceSweeper(database *sql.DB, notifier *notify.Notifier, log *zap.Logger) *LowBalanceSweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &LowBalanceSweeper{db: database, notifier: notifier, log: log}
}

// SweepResult — сколько абонементов нашли и скольким родителям написали.
type SweepResult struct {
	Found    int `json:"found"`
	Notified int `json:"notified"`
}

func (s *LowBalanceSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		rows, err := db.ListLowBalance(ctx, tx, models.LowBalanceThreshold)
		if err != nil {
			return err
		}
		res.Found = len(rows)
		if len(rows) == 0 {
			return nil
		}

		summary := make([]notify.LowBalanceRow, 0, len(rows))
		for _, r := range rows {
			text := notify.LowBalanceText(r.ParticipantName, r.GroupName, r.RemainingLessons)
			sent, err := s.notifier.ToGuardian(ctx, tx, r.ParticipantID, notify.KindLowBalance, text)
			if err != nil {
				return err
			}
			if sent {
				res.Notified++
			}
			summary = append(summary, notify.LowBalanceRow{
				Participant: r.ParticipantName, Group: r.GroupName, Remaining: r.RemainingLessons,
			})
		}
		return s.notifier.ToAdmins(ctx, tx, notify.KindLowBalanceSummary, notify.LowBalanceSummaryText(summary))
	})
	if err != nil {
		return SweepResult{}, err
	}
	s.log.Info("low balance sweep", zap.Int("found", res.Found), zap.Int("notified", res.Notified))
	return res, nil
}

// Job — обёртка для jobs.Runner.
func (s *LowBalanceSweeper) Job(ctx context.Context) error {
	_, err := s.Sweep(ctx)
	return err
}
