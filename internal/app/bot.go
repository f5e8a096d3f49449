package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/Spok95/sportclub-bot/internal/config"
	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/logging"
	"github.com/Spok95/sportclub-bot/internal/metrics"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/Spok95/sportclub-bot/internal/observability"
	"github.com/Spok95/sportclub-bot/internal/tg"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot — тонкий чат-бот: всё управление клубом идёт через веб-приложение,
// бот лишь даёт на него ссылку и отвечает на пару команд.
type Bot struct {
	sender  tg.Sender
	db      *sql.DB
	cfg     *config.Config
	log     *zap.Logger
	limiter *ChatLimiter
}

func NewBot(sender tg.Sender, database *sql.DB, cfg *config.Config, log *zap.Logger) *Bot {
	return &Bot{sender: sender, db: database, cfg: cfg, log: logging.OrNop(log), limiter: NewChatLimiter()}
}

// Run читает апдейты до отмены контекста. Сообщения одного чата обрабатываются по очереди.
func (b *Bot) Run(ctx context.Context, api *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if upd.Message == nil || upd.Message.From == nil {
				continue
			}
			metrics.BotUpdates.Inc()
			msg := upd.Message
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						metrics.HandlerErrors.Inc()
						observability.CaptureErr(fmt.Errorf("panic in bot handler: %v", r))
					}
				}()
				unlock := b.limiter.lock(msg.Chat.ID)
				defer unlock()
				b.HandleMessage(ctx, msg)
			}()
		}
	}
}

func (b *Bot) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	cmd := strings.TrimSpace(msg.Text)
	if i := strings.IndexByte(cmd, '@'); i > 0 && strings.HasPrefix(cmd, "/") {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start":
		b.handleStart(ctx, msg)
	case "/contact":
		b.reply(chatID, contactText(b.cfg.Contact))
	case "/help":
		b.reply(chatID, helpText)
	default:
		b.reply(chatID, "⚠️ Неизвестная команда. Используйте /start")
	}
}

const helpText = "Запись в группы, расписание, абонементы и посещаемость — в приложении клуба.\n" +
	"/start — открыть приложение\n/contact — связаться с администратором"

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	role := models.Guardian
	if b.cfg.IsAdmin(msg.From.ID) {
		role = models.Admin
	}
	acc, created, err := db.EnsureAccount(ctx, b.db, models.Account{
		TelegramID: msg.From.ID,
		Username:   msg.From.UserName,
		FirstName:  msg.From.FirstName,
		LastName:   msg.From.LastName,
		Role:       role,
	})
	if err != nil {
		metrics.HandlerErrors.Inc()
		b.log.Error("ensure account", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		b.reply(msg.Chat.ID, "Не удалось открыть профиль. Попробуйте позже.")
		return
	}
	if created {
		b.log.Info("account created", zap.Int64("account_id", acc.ID), zap.String("role", string(acc.Role)))
	}

	text := fmt.Sprintf("Здравствуйте, %s! 👋\nЗдесь можно записаться в группу, оплатить абонемент и следить за посещаемостью.",
		acc.DisplayName())
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	if b.cfg.WebAppURL != "" {
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("🏅 Открыть приложение", b.cfg.WebAppURL)),
		)
	}
	b.send(out)
}

func contactText(c config.Contact) string {
	var parts []string
	if c.Name != "" {
		parts = append(parts, c.Name)
	}
	if c.Phone != "" {
		parts = append(parts, "📞 "+c.Phone)
	}
	if c.Telegram != "" {
		parts = append(parts, "✈️ "+c.Telegram)
	}
	if len(parts) == 0 {
		return "Контакты администратора пока не указаны."
	}
	return "Связаться с клубом:\n" + strings.Join(parts, "\n")
}

func (b *Bot) reply(chatID int64, text string) { b.send(tgbotapi.NewMessage(chatID, text)) }

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := tg.Send(b.sender, c); err != nil {
		metrics.HandlerErrors.Inc()
		b.log.Warn("telegram send", zap.Error(err))
	}
}
