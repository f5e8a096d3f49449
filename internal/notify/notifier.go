package notify

import (
	"context"
	"fmt"

	"github.com/Spok95/sportclub-bot/internal/db"
	"go.uber.org/zap"
)

// Notifier ставит уведомления в outbox. Сам ничего не отправляет:
// это делает Dispatcher, уже после коммита транзакции.
type Notifier struct {
	log      *zap.Logger
	adminIDs []int64
}

func NewNotifier(log *zap.Logger, adminIDs []int64) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{log: log, adminIDs: adminIDs}
}

// ToGuardian — уведомление родителю участника.
// Если родителя нет или у него нет telegram id — пишем в лог и молча пропускаем.
func (n *Notifier) ToGuardian(ctx context.Context, q db.Querier, participantID int64, kind Kind, text string) (bool, error) {
	g, err := db.GuardianFor(ctx, q, participantID)
	if err != nil {
		return false, fmt.Errorf("resolve guardian participant=%d: %w", participantID, err)
	}
	if g == nil || g.TelegramID == 0 {
		n.log.Info("no guardian to notify",
			zap.Int64("participant_id", participantID), zap.String("kind", string(kind)))
		return false, nil
	}
	return true, n.ToChat(ctx, q, g.TelegramID, kind, text)
}

// ToChat — уведомление в конкретный чат.
func (n *Notifier) ToChat(ctx context.Context, q db.Querier, chatID int64, kind Kind, text string) error {
	if chatID == 0 {
		n.log.Info("empty chat id, skip", zap.String("kind", string(kind)))
		return nil
	}
	if _, err := db.Enqueue(ctx, q, chatID, string(kind), text); err != nil {
		return fmt.Errorf("enqueue %s chat=%d: %w", kind, chatID, err)
	}
	return nil
}

// ToAdmins — всем администраторам: из таблицы аккаунтов и из ADMIN_IDS.
func (n *Notifier) ToAdmins(ctx context.Context, q db.Querier, kind Kind, text string) error {
	ids, err := db.AdminChatIDs(ctx, q, n.adminIDs)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		n.log.Warn("no admins to notify", zap.String("kind", string(kind)))
		return nil
	}
	for _, id := range ids {
		if err := n.ToChat(ctx, q, id, kind, text); err != nil {
			return err
		}
	}
	return nil
}
