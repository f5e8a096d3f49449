package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Spok95/sportclub-bot/internal/app"
	"github.com/Spok95/sportclub-bot/internal/attendance"
	"github.com/Spok95/sportclub-bot/internal/billing"
	"github.com/Spok95/sportclub-bot/internal/config"
	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/httpapi"
	"github.com/Spok95/sportclub-bot/internal/jobs"
	"github.com/Spok95/sportclub-bot/internal/logging"
	"github.com/Spok95/sportclub-bot/internal/notify"
	"github.com/Spok95/sportclub-bot/internal/observability"
	"github.com/Spok95/sportclub-bot/internal/session"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	// .env необязателен: в контейнере переменные приходят из окружения
	if err := godotenv.Load(); err != nil {
		log.Println("Не удалось загрузить .env файл, используем переменные окружения")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()
	logger := lg.Base

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		observability.CaptureErr(err)
		logger.Error("fatal", zap.Error(err))
		lg.Closer()
		os.Exit(1)
	}
	logger.Info("stopped")
}

func run(ctx context.Context, cfg *config.Config, lg *logging.Log) error {
	logger := lg.Base

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(database); err != nil {
		return err
	}
	if n, err := db.SeedGroups(ctx, database); err != nil {
		return err
	} else if n > 0 {
		logger.Info("sport groups seeded", zap.Int("count", n))
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return err
	}
	logger.Info("bot authorized", zap.String("username", bot.Self.UserName))

	notifier := notify.NewNotifier(lg.Component("notify"), cfg.AdminIDs)
	dispatcher := notify.NewDispatcher(database, bot, lg.Component("outbox"), cfg.OutboxMaxAttempts)
	sweeper := app.NewLowBalanceSweeper(database, notifier, lg.Component("low_balance"))

	runner := jobs.New(ctx, lg.Component("jobs"), cfg.Location)
	runner.Every(cfg.OutboxInterval, "outbox", dispatcher.Drain)
	if err := runner.Cron(cfg.LowBalanceCron, "low_balance", sweeper.Job); err != nil {
		return err
	}
	runner.Start()

	api := httpapi.New(httpapi.Deps{
		DB:         database,
		Config:     cfg,
		Log:        lg.Component("http"),
		Sessions:   session.NewManager(cfg.SessionSecret),
		Attendance: attendance.NewService(database, notifier, lg.Component("attendance")),
		Billing:    billing.NewService(database, notifier, lg.Component("billing"), cfg.Location),
		Notifier:   notifier,
		Sweeper:    sweeper,
	})
	srv, err := app.StartHTTP(ctx, cfg.HTTPAddr, api, lg.Component("http"))
	if err != nil {
		return err
	}

	app.NewBot(bot, database, cfg, lg.Component("bot")).Run(ctx, bot)
	srv.Wait()
	return nil
}
