package httpapi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Spok95/sportclub-bot/internal/attendance"
	"github.com/Spok95/sportclub-bot/internal/billing"
	"github.com/Spok95/sportclub-bot/internal/ctxutil"
	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/metrics"
	"github.com/Spok95/sportclub-bot/internal/observability"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	errUnauthorized = errors.New("unauthorized")
	errAccessDenied = errors.New("access denied")
)

// bizError — ошибка, которую показываем пользователю как есть.
type bizError struct{ msg string }

func (e *bizError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &bizError{msg: fmt.Sprintf(format, args...)}
}

// businessMessages — доменные ошибки, которые не считаются сбоем.
var businessMessages = []struct {
	err error
	msg string
}{
	{attendance.ErrNoSchedule, "В этот день у группы нет занятий по расписанию"},
	{billing.ErrAlreadyProcessed, "Платёж уже обработан"},
	{billing.ErrNotLinked, "Участник не привязан к вашему аккаунту"},
	{db.ErrCodeNotFound, "Код не найден"},
	{db.ErrCodeUsed, "Код уже использован"},
}

func (s *server) errorHandler(c *fiber.Ctx, err error) error {
	var be *bizError
	var ve validator.ValidationErrors
	var fe *fiber.Error

	switch {
	case errors.Is(err, errUnauthorized):
		return fail(c, fiber.StatusUnauthorized, "Требуется вход через приложение")
	case errors.Is(err, errAccessDenied):
		return fail(c, fiber.StatusForbidden, "Access denied")
	case errors.As(err, &be):
		return fail(c, fiber.StatusOK, be.msg)
	case errors.As(err, &ve):
		return fail(c, fiber.StatusOK, validationMessage(ve))
	case errors.Is(err, billing.ErrInvalidPurchase):
		return fail(c, fiber.StatusOK, "Некорректные данные платежа: "+err.Error())
	case errors.Is(err, db.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "Не найдено")
	case errors.As(err, &fe):
		return fail(c, fe.Code, fe.Message)
	}
	for _, bm := range businessMessages {
		if errors.Is(err, bm.err) {
			return fail(c, fiber.StatusOK, bm.msg)
		}
	}

	metrics.HandlerErrors.Inc()
	rid := ctxutil.RequestID(c.UserContext())
	s.Log.Error("http handler error",
		zap.String("request_id", rid), zap.String("method", c.Method()), zap.String("path", c.Path()), zap.Error(err))
	observability.CaptureWith(err, map[string]string{"route": c.Route().Path, "request_id": rid})
	return fail(c, fiber.StatusInternalServerError, "Внутренняя ошибка сервера: "+err.Error())
}

func validationMessage(ve validator.ValidationErrors) string {
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, strings.ToLower(fe.Field()))
	}
	return "Некорректные поля: " + strings.Join(fields, ", ")
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "error": msg})
}

// ok — успешный ответ; поля payload добавляются к success=true.
func ok(c *fiber.Ctx, payload fiber.Map) error {
	if payload == nil {
		payload = fiber.Map{}
	}
	payload["success"] = true
	return c.JSON(payload)
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("Некорректный идентификатор: %s", name)
	}
	return id, nil
}

// bind разбирает JSON-тело и проверяет его теги validate.
func (s *server) bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return badRequest("Некорректный JSON")
	}
	return s.validate.Struct(dst)
}
