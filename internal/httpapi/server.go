// Package httpapi — JSON API веб-приложения клуба.
//
// Все ответы — конверт {success: bool, ...}. Бизнес-ошибки возвращаются с кодом 200
// и success=false; 401/403/404/500 — только для авторизации, отсутствующих записей
// и непредвиденных сбоев.
package httpapi

import (
	"context"
	"database/sql"
	"time"

	"github.com/Spok95/sportclub-bot/internal/app"
	"github.com/Spok95/sportclub-bot/internal/attendance"
	"github.com/Spok95/sportclub-bot/internal/billing"
	"github.com/Spok95/sportclub-bot/internal/config"
	"github.com/Spok95/sportclub-bot/internal/metrics"
	"github.com/Spok95/sportclub-bot/internal/notify"
	"github.com/Spok95/sportclub-bot/internal/observability"
	"github.com/Spok95/sportclub-bot/internal/session"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// Sweeper — ручной запуск проверки низких остатков.
type Sweeper interface {
	Sweep(ctx context.Context) (app.SweepResult, error)
}

type Deps struct {
	DB         *sql.DB
	Config     *config.Config
	Log        *zap.Logger
	Sessions   *session.Manager
	Attendance *attendance.Service
	Billing    *billing.Service
	Notifier   *notify.Notifier
	Sweeper    Sweeper
}

type server struct {
	Deps
	validate *validator.Validate
}

// New собирает fiber-приложение со всеми маршрутами.
func New(d Deps) *fiber.App {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	cfg := config.Config{}
	if d.Config != nil {
		cfg = *d.Config
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	d.Config = &cfg
	s := &server{Deps: d, validate: validator.New()}

	a := fiber.New(fiber.Config{
		AppName:               "sportclub",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	origins := "*"
	if d.Config.WebAppURL != "" {
		origins = d.Config.WebAppURL
	}
	a.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, X-Request-ID",
		AllowCredentials: origins != "*",
	}))
	a.Use(s.requestID)
	a.Use(s.observe)
	a.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			metrics.HandlerErrors.Inc()
			observability.CapturePanic(e)
			s.Log.Error("panic in http handler", zap.Any("panic", e), zap.String("path", c.Path()))
		},
	}))
	a.Use(s.identity)

	a.Get("/healthz", s.healthz)
	a.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := a.Group("/api")
	api.Post("/init", s.initSession)

	api.Get("/sport-groups", s.listGroups)
	api.Get("/sport-group/:id", s.getGroup)
	api.Get("/schedule/:group_id", s.groupSchedule)
	api.Get("/discounts", s.activeDiscounts)
	api.Get("/parent/contact", s.contact)

	auth := s.requireAuth
	api.Post("/auth/verify", auth, limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Слишком много попыток. Попробуйте через минуту",
			})
		},
	}), s.verifyCode)
	api.Get("/auth/participants", auth, s.authorizedParticipants)
	api.Get("/participants", auth, s.myParticipants)
	api.Post("/parent/payment", auth, s.createPayment)
	api.Post("/parent/transfer", auth, s.createTransfer)
	api.Get("/parent/attendance/:participant_id", auth, s.attendanceHistory)
	api.Post("/enroll-request", auth, s.enrollRequest)

	admin := api.Group("/admin", s.requireAdmin)
	admin.Get("/participants", s.adminListParticipants)
	admin.Post("/participants", s.adminCreateParticipant)
	admin.Get("/participants/:id", s.adminGetParticipant)
	admin.Put("/participants/:id", s.adminUpdateParticipant)
	admin.Delete("/participants/:id", s.adminDeleteParticipant)
	admin.Get("/students", s.adminStudents)
	admin.Get("/group/:id/students", s.adminGroupStudents)

	admin.Get("/schedule", s.adminListSchedule)
	admin.Post("/schedule", s.adminCreateSlot)
	admin.Put("/schedule/:id", s.adminUpdateSlot)
	admin.Delete("/schedule/:id", s.adminDeleteSlot)

	admin.Post("/subscriptions", s.adminCreateSubscription)
	admin.Delete("/subscriptions/:id", s.adminDeleteSubscription)

	admin.Get("/payments", s.adminListPayments)
	admin.Post("/payments/:id/approve", s.adminApprovePayment)
	admin.Post("/payments/:id/reject", s.adminRejectPayment)

	admin.Get("/discounts", s.adminListDiscounts)
	admin.Post("/discounts", s.adminCreateDiscount)
	admin.Put("/discounts/:id", s.adminUpdateDiscount)
	admin.Delete("/discounts/:id", s.adminDeleteDiscount)

	admin.Get("/attendance/groups", s.attendanceGroups)
	admin.Get("/attendance/schedule/:group_id", s.attendanceSchedule)
	admin.Get("/attendance/participants/:group_id/:date", s.attendanceRoster)
	admin.Post("/attendance/save", s.attendanceSave)
	admin.Get("/attendance/stats/:group_id", s.attendanceStats)
	admin.Get("/attendance/stats/:group_id/export", s.attendanceExport)

	admin.Post("/low-balance/notify", s.lowBalanceNotify)

	return a
}

func (s *server) healthz(c *fiber.Ctx) error {
	if s.DB == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("db not configured")
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), 800*time.Millisecond)
	defer cancel()
	t0 := time.Now()
	if err := s.DB.PingContext(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("db not ok: " + err.Error())
	}
	metrics.ObserveDBPing(time.Since(t0))
	return c.SendString("ok")
}
