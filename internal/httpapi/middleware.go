package httpapi

import (
	"strconv"
	"time"

	"github.com/Spok95/sportclub-bot/internal/ctxutil"
	"github.com/Spok95/sportclub-bot/internal/metrics"
	"github.com/Spok95/sportclub-bot/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

func (s *server) requestID(c *fiber.Ctx) error {
	rid := c.Get(requestIDHeader)
	if rid == "" || len(rid) > 64 {
		rid = uuid.NewString()
	}
	c.Set(requestIDHeader, rid)
	c.SetUserContext(ctxutil.WithRequestID(c.UserContext(), rid))
	return c.Next()
}

// observe — метрики и лог запроса. Ошибку цепочки обрабатываем здесь же,
// чтобы статус в метриках совпадал с отданным клиенту.
func (s *server) observe(c *fiber.Ctx) error {
	start := time.Now()
	if err := c.Next(); err != nil {
		if herr := s.errorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	route := c.Route().Path
	status := c.Response().StatusCode()
	metrics.HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
	metrics.HTTPDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())

	if status >= fiber.StatusInternalServerError {
		s.Log.Warn("http request failed",
			zap.String("request_id", ctxutil.RequestID(c.UserContext())),
			zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Int("status", status))
	}
	return nil
}

// identity достаёт личность из cookie. Невалидная cookie — то же, что её отсутствие.
func (s *server) identity(c *fiber.Ctx) error {
	raw := c.Cookies(session.CookieName)
	if raw == "" || s.Sessions == nil {
		return c.Next()
	}
	id, err := s.Sessions.Parse(raw)
	if err != nil {
		s.Log.Debug("bad session cookie", zap.Error(err))
		return c.Next()
	}
	c.SetUserContext(ctxutil.WithIdentity(c.UserContext(), id))
	return c.Next()
}

func (s *server) requireAuth(c *fiber.Ctx) error {
	if _, ok := ctxutil.IdentityFrom(c.UserContext()); !ok {
		return errUnauthorized
	}
	return c.Next()
}

// requireAdmin сверяет роль из cookie с текущим списком администраторов:
// убранный из ADMIN_IDS теряет доступ сразу, не дожидаясь истечения сессии.
func (s *server) requireAdmin(c *fiber.Ctx) error {
	id, ok := ctxutil.IdentityFrom(c.UserContext())
	if !ok || !id.IsAdmin() || !s.Config.IsAdmin(id.TelegramID) {
		return errAccessDenied
	}
	return c.Next()
}

// who — личность текущего запроса; вызывается только за requireAuth/requireAdmin.
func who(c *fiber.Ctx) ctxutil.Identity {
	id, _ := ctxutil.IdentityFrom(c.UserContext())
	return id
}
