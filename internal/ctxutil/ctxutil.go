package ctxutil

import (
	"context"
	"time"

	"github.com/Spok95/sportclub-bot/internal/models"
)

// приватные ключи, чтобы исключить коллизии
type key int

const (
	keyIdentity key = iota
	keyRequestID
)

// Identity — кто делает запрос. Кладётся в контекст middleware'ом сессии
// и явно передаётся дальше во все обработчики.
type Identity struct {
	AccountID  int64
	TelegramID int64
	Role       models.Role
}

func (i Identity) IsAdmin() bool { return i.Role == models.Admin }

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, keyIdentity, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(keyIdentity).(Identity)
	return v, ok
}

// WithRequestID /RequestID — id запроса для логов
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func RequestID(ctx context.Context) string {
	s, _ := ctx.Value(keyRequestID).(string)
	return s
}

var (
	DefaultDBTimeout   = 5 * time.Second
	DefaultSendTimeout = 10 * time.Second
)

// WithDBTimeout — стандартный таймаут для БД.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		// если у родителя осталось меньше DefaultDBTimeout — берем остаток
		if time.Until(dl) < DefaultDBTimeout {
			return context.WithCancel(parent)
		}
	}
	return context.WithTimeout(parent, DefaultDBTimeout)
}
