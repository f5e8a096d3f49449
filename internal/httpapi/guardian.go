package httpapi

import (
	"strings"

	"github.com/Spok95/sportclub-bot/internal/billing"
	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/Spok95/sportclub-bot/internal/notify"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type verifyRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

func (s *server) verifyCode(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("Некорректный JSON")
	}
	req.Code = strings.TrimSpace(req.Code)
	if err := s.validate.Struct(req); err != nil {
		return badRequest("Код должен содержать %d цифр", models.AuthCodeLength)
	}
	me := who(c)
	ac, err := db.RedeemCode(c.UserContext(), s.DB, req.Code, me.AccountID)
	if err != nil {
		s.Log.Info("auth code rejected", zap.Int64("account_id", me.AccountID), zap.Error(err))
		return err
	}
	p, err := db.GetParticipant(c.UserContext(), s.DB, ac.ParticipantID)
	if err != nil {
		return err
	}
	s.Log.Info("guardian linked", zap.Int64("account_id", me.AccountID), zap.Int64("participant_id", p.ID))
	return ok(c, fiber.Map{
		"message":     "Участник " + p.FullName + " привязан к вашему аккаунту",
		"participant": fiber.Map{"id": p.ID, "full_name": p.FullName},
	})
}

func (s *server) authorizedParticipants(c *fiber.Ctx) error {
	ctx := c.UserContext()
	linked, err := db.ListLinkedParticipants(ctx, s.DB, who(c).AccountID)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(linked))
	for _, lp := range linked {
		ids = append(ids, lp.ID)
	}
	subs, err := db.ListSubscriptionsByParticipants(ctx, s.DB, ids)
	if err != nil {
		return err
	}

	out := make([]fiber.Map, 0, len(linked))
	for _, lp := range linked {
		v := participantView(lp.Participant)
		v["authorized_at"] = lp.AuthorizedAt.Format(paymentDateLayout)
		v["subscriptions"] = subscriptionViews(subs[lp.ID])
		out = append(out, v)
	}
	return ok(c, fiber.Map{"participants": out})
}

func (s *server) myParticipants(c *fiber.Ctx) error {
	list, err := db.ListParticipantsForAccount(c.UserContext(), s.DB, who(c).AccountID)
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(list))
	for _, p := range list {
		out = append(out, participantView(p))
	}
	return ok(c, fiber.Map{"participants": out})
}

type paymentRequest struct {
	ParticipantID    int64  `json:"participant_id" validate:"required,gt=0"`
	GroupID          int64  `json:"sport_group_id" validate:"required,gt=0"`
	SubscriptionType string `json:"subscription_type" validate:"max=64"`
	TotalLessons     int    `json:"total_lessons" validate:"required,gt=0,lte=100"`
	Amount           int    `json:"amount" validate:"required,gt=0"`
	Method           string `json:"payment_method" validate:"omitempty,oneof=cash card transfer"`
}

func (s *server) createPayment(c *fiber.Ctx) error {
	var req paymentRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	payer, err := db.GetAccountByID(c.UserContext(), s.DB, who(c).AccountID)
	if err != nil {
		return err
	}
	res, err := s.Billing.CreatePayment(c.UserContext(), *payer, billing.Purchase{
		ParticipantID:    req.ParticipantID,
		GroupID:          req.GroupID,
		SubscriptionType: req.SubscriptionType,
		TotalLessons:     req.TotalLessons,
		Amount:           req.Amount,
		Method:           req.Method,
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"payment_id": res.PaymentID, "subscription_id": res.SubscriptionID})
}

type transferRequest struct {
	SubscriptionID int64  `json:"subscription_id" validate:"required,gt=0"`
	OriginalDate   string `json:"original_date" validate:"required"`
	NewDate        string `json:"new_date" validate:"required"`
	Reason         string `json:"reason" validate:"required,max=500"`
}

func (s *server) createTransfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	from, err := models.ParseDate(req.OriginalDate)
	if err != nil {
		return badRequest("%s", err.Error())
	}
	to, err := models.ParseDate(req.NewDate)
	if err != nil {
		return badRequest("%s", err.Error())
	}

	ctx := c.UserContext()
	me := who(c)
	if !me.IsAdmin() {
		owned, err := db.SubscriptionOwnedBy(ctx, s.DB, req.SubscriptionID, me.AccountID)
		if err != nil {
			return err
		}
		if !owned {
			return badRequest("Абонемент не относится к вашим участникам")
		}
	}

	id, err := db.CreateTransfer(ctx, s.DB, models.LessonTransfer{
		SubscriptionID: req.SubscriptionID,
		OriginalDate:   from,
		NewDate:        to,
		Reason:         strings.TrimSpace(req.Reason),
	})
	if err != nil {
		return err
	}
	s.Log.Info("lesson transfer requested", zap.Int64("transfer_id", id), zap.Int64("subscription_id", req.SubscriptionID))
	return ok(c, fiber.Map{"transfer_id": id})
}

func (s *server) attendanceHistory(c *fiber.Ctx) error {
	pid, err := paramID(c, "participant_id")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	me := who(c)
	if !me.IsAdmin() {
		linked, err := db.IsGuardianOf(ctx, s.DB, me.AccountID, pid)
		if err != nil {
			return err
		}
		if !linked {
			return errAccessDenied
		}
	}

	rows, err := db.ParticipantHistory(ctx, s.DB, pid, 100)
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(rows))
	for _, h := range rows {
		out = append(out, fiber.Map{
			"date":           dateStr(h.Date),
			"day_name":       models.DayName(models.WeekdayIndex(h.Date)),
			"sport_group":    h.GroupName,
			"start_time":     h.StartTime,
			"end_time":       h.EndTime,
			"is_present":     h.IsPresent,
			"absence_reason": h.AbsenceReason,
		})
	}
	return ok(c, fiber.Map{"stats": out})
}

type enrollBody struct {
	GroupID int64 `json:"group_id" validate:"required,gt=0"`
}

func (s *server) enrollRequest(c *fiber.Ctx) error {
	var req enrollBody
	if err := s.bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	g, err := db.GetGroup(ctx, s.DB, req.GroupID)
	if err != nil {
		return err
	}
	acc, err := db.GetAccountByID(ctx, s.DB, who(c).AccountID)
	if err != nil {
		return err
	}
	text := notify.EnrollRequestText(acc.DisplayName(), acc.Username, g.Name)
	if err := s.Notifier.ToAdmins(ctx, s.DB, notify.KindEnrollRequest, text); err != nil {
		return err
	}
	return ok(c, nil)
}
