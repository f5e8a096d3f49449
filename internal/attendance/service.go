// Package attendance — журнал посещаемости: кто ожидается на занятии,
// сессия занятия и списание занятий с абонементов.
package attendance

import (
	"database/sql"

	"github.com/Spok95/sportclub-bot/internal/notify"
	"go.uber.org/zap"
)

type Service struct {
	db       *sql.DB
	notifier *notify.Notifier
	log      *zap.Logger
}

func NewService(database *sql.DB, notifier *notify.Notifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.NewNotifier(log, nil)
	}
	return &Service{db: database, notifier: notifier, log: log}
}
