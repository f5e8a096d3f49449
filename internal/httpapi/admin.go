package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ---------- участники ----------

type participantRequest struct {
	FullName           string  `json:"full_name" validate:"required,max=200"`
	ParentPhone        string  `json:"parent_phone" validate:"required,max=32"`
	BirthDate          string  `json:"birth_date" validate:"required"`
	MedicalCertificate bool    `json:"medical_certificate"`
	DiscountType       *string `json:"discount_type" validate:"omitempty,max=64"`
	DiscountPercent    int     `json:"discount_percent" validate:"min=0,max=100"`

	// Необязательно: сразу записать в группу.
	GroupID          int64  `json:"sport_group_id" validate:"omitempty,gt=0"`
	SubscriptionType string `json:"subscription_type" validate:"max=64"`
	TotalLessons     int    `json:"total_lessons" validate:"omitempty,gt=0,lte=100"`
}

func (s *server) adminListParticipants(c *fiber.Ctx) error {
	list, err := db.ListParticipants(c.UserContext(), s.DB)
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(list))
	for _, p := range list {
		out = append(out, participantView(p))
	}
	return ok(c, fiber.Map{"participants": out})
}

func (s *server) adminGetParticipant(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	p, err := db.GetParticipant(ctx, s.DB, id)
	if err != nil {
		return err
	}
	subs, err := db.ListSubscriptionsByParticipants(ctx, s.DB, []int64{id})
	if err != nil {
		return err
	}
	code, used, err := db.LatestCode(ctx, s.DB, id)
	if err != nil {
		return err
	}
	v := participantView(*p)
	v["subscriptions"] = subscriptionViews(subs[id])
	v["authorization_code"] = code
	v["authorization_code_used"] = used
	return ok(c, fiber.Map{"participant": v})
}

// adminCreateParticipant регистрирует участника и выдаёт ему код привязки для родителя.
func (s *server) adminCreateParticipant(c *fiber.Ctx) error {
	var req participantRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	birth, err := models.ParseDate(req.BirthDate)
	if err != nil {
		return badRequest("%s", err.Error())
	}
	if req.GroupID > 0 && req.TotalLessons == 0 {
		req.TotalLessons = models.LessonsFor(req.SubscriptionType)
		if req.TotalLessons == 0 {
			return badRequest("Укажите тип абонемента или количество занятий")
		}
	}

	ctx := c.UserContext()
	var (
		participantID  int64
		subscriptionID int64
		code           string
	)
	err = db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		participantID, err = db.CreateParticipant(ctx, tx, models.Participant{
			AccountID:          who(c).AccountID,
			FullName:           strings.TrimSpace(req.FullName),
			ParentPhone:        strings.TrimSpace(req.ParentPhone),
			BirthDate:          birth,
			MedicalCertificate: req.MedicalCertificate,
			DiscountType:       emptyToNil(req.DiscountType),
			DiscountPercent:    req.DiscountPercent,
		})
		if err != nil {
			return err
		}
		if code, err = db.IssueCode(ctx, tx, participantID); err != nil {
			return err
		}
		if req.GroupID == 0 {
			return nil
		}
		subscriptionID, err = s.createSubscription(ctx, tx, models.Subscription{
			ParticipantID: participantID,
			GroupID:       req.GroupID,
			Type:          req.SubscriptionType,
			TotalLessons:  req.TotalLessons,
		})
		return err
	})
	if err != nil {
		return err
	}

	s.Log.Info("participant created", zap.Int64("participant_id", participantID), zap.Int64("subscription_id", subscriptionID))
	resp := fiber.Map{"participant_id": participantID, "authorization_code": code}
	if subscriptionID != 0 {
		resp["subscription_id"] = subscriptionID
	}
	return ok(c, resp)
}

type participantPatchRequest struct {
	FullName           *string `json:"full_name" validate:"omitempty,min=1,max=200"`
	ParentPhone        *string `json:"parent_phone" validate:"omitempty,min=1,max=32"`
	BirthDate          *string `json:"birth_date"`
	MedicalCertificate *bool   `json:"medical_certificate"`
	DiscountType       *string `json:"discount_type" validate:"omitempty,max=64"`
	DiscountPercent    *int    `json:"discount_percent" validate:"omitempty,min=0,max=100"`
}

func (s *server) adminUpdateParticipant(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req participantPatchRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	patch := db.ParticipantPatch{
		FullName:           req.FullName,
		ParentPhone:        req.ParentPhone,
		MedicalCertificate: req.MedicalCertificate,
		DiscountType:       req.DiscountType,
		DiscountPercent:    req.DiscountPercent,
	}
	if req.BirthDate != nil {
		d, err := models.ParseDate(*req.BirthDate)
		if err != nil {
			return badRequest("%s", err.Error())
		}
		patch.BirthDate = &d
	}
	if err := db.UpdateParticipant(c.UserContext(), s.DB, id, patch); err != nil {
		return err
	}
	return ok(c, nil)
}

func (s *server) adminDeleteParticipant(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := db.DeleteParticipant(c.UserContext(), s.DB, id); err != nil {
		return err
	}
	s.Log.Info("participant deleted", zap.Int64("participant_id", id))
	return ok(c, nil)
}

// studentRows — участники с абонементами, кодом и суммой оплат для таблиц администратора.
func (s *server) studentRows(ctx context.Context, list []models.Participant, groupID *int64) ([]fiber.Map, error) {
	ids := make([]int64, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	subs, err := db.ListSubscriptionsByParticipants(ctx, s.DB, ids)
	if err != nil {
		return nil, err
	}
	codes, err := db.LatestCodes(ctx, s.DB, ids)
	if err != nil {
		return nil, err
	}
	totals, err := db.PaymentTotals(ctx, s.DB, ids, groupID)
	if err != nil {
		return nil, err
	}

	today := models.Today(s.Config.Location)
	out := make([]fiber.Map, 0, len(list))
	for _, p := range list {
		own := subs[p.ID]
		if groupID != nil {
			own = filterGroup(own, *groupID)
		}
		remaining, subType := 0, ""
		for _, sv := range own {
			if !sv.IsActive {
				continue
			}
			remaining += sv.RemainingLessons
			if subType == "" {
				subType = sv.Type
			}
		}
		t := totals[p.ID]
		out = append(out, fiber.Map{
			"participant_id":      p.ID,
			"participant_name":    p.FullName,
			"parent_phone":        p.ParentPhone,
			"birth_date":          dateStr(p.BirthDate),
			"age":                 models.Age(p.BirthDate, today),
			"medical_certificate": p.MedicalCertificate,
			"discount_type":       p.DiscountType,
			"discount_percent":    p.DiscountPercent,
			"authorization_code":  codes[p.ID],
			"subscriptions":       subscriptionViews(own),
			"subscription_type":   subType,
			"remaining_lessons":   remaining,
			"has_payments":        t.Count > 0,
			"total_paid":          t.Paid,
		})
	}
	return out, nil
}

func filterGroup(list []db.SubscriptionView, groupID int64) []db.SubscriptionView {
	out := list[:0:0]
	for _, v := range list {
		if v.GroupID == groupID {
			out = append(out, v)
		}
	}
	return out
}

func (s *server) adminStudents(c *fiber.Ctx) error {
	list, err := db.ListParticipants(c.UserContext(), s.DB)
	if err != nil {
		return err
	}
	rows, err := s.studentRows(c.UserContext(), list, nil)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"students": rows})
}

func (s *server) adminGroupStudents(c *fiber.Ctx) error {
	gid, err := paramID(c, "id")
	if err != nil {
		return err
	}
	list, err := db.ListGroupParticipants(c.UserContext(), s.DB, gid)
	if err != nil {
		return err
	}
	rows, err := s.studentRows(c.UserContext(), list, &gid)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"students": rows})
}

// ---------- расписание ----------

type slotRequest struct {
	GroupID   int64  `json:"sport_group_id" validate:"required,gt=0"`
	Weekday   *int   `json:"day_of_week" validate:"required,min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

func (s *server) slotFromRequest(c *fiber.Ctx) (models.WeeklySlot, error) {
	var req slotRequest
	if err := s.bind(c, &req); err != nil {
		return models.WeeklySlot{}, err
	}
	slot, err := models.WeeklySlot{
		GroupID:   req.GroupID,
		Weekday:   *req.Weekday,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}.Normalize()
	if err != nil {
		return models.WeeklySlot{}, badRequest("%s", err.Error())
	}
	if _, err := db.GetGroup(c.UserContext(), s.DB, slot.GroupID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.WeeklySlot{}, badRequest("Группа не найдена")
		}
		return models.WeeklySlot{}, err
	}
	return slot, nil
}

func (s *server) adminListSchedule(c *fiber.Ctx) error {
	slots, err := db.ListSlots(c.UserContext(), s.DB, nil)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"schedules": slotViews(slots)})
}

func (s *server) adminCreateSlot(c *fiber.Ctx) error {
	slot, err := s.slotFromRequest(c)
	if err != nil {
		return err
	}
	id, err := db.CreateSlot(c.UserContext(), s.DB, slot)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"schedule_id": id})
}

func (s *server) adminUpdateSlot(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	slot, err := s.slotFromRequest(c)
	if err != nil {
		return err
	}
	slot.ID = id
	if err := db.UpdateSlot(c.UserContext(), s.DB, slot); err != nil {
		return err
	}
	return ok(c, nil)
}

func (s *server) adminDeleteSlot(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := db.DeleteSlot(c.UserContext(), s.DB, id); err != nil {
		return err
	}
	return ok(c, nil)
}

// ---------- абонементы ----------

type subscriptionRequest struct {
	ParticipantID    int64  `json:"participant_id" validate:"required,gt=0"`
	GroupID          int64  `json:"sport_group_id" validate:"required,gt=0"`
	SubscriptionType string `json:"subscription_type" validate:"max=64"`
	TotalLessons     int    `json:"total_lessons" validate:"omitempty,gt=0,lte=100"`
	RemainingLessons *int   `json:"remaining_lessons" validate:"omitempty,min=1"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
}

func (s *server) adminCreateSubscription(c *fiber.Ctx) error {
	var req subscriptionRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	sub := models.Subscription{
		ParticipantID: req.ParticipantID,
		GroupID:       req.GroupID,
		Type:          req.SubscriptionType,
		TotalLessons:  req.TotalLessons,
	}
	if sub.TotalLessons == 0 {
		sub.TotalLessons = models.LessonsFor(sub.Type)
	}
	if req.RemainingLessons != nil {
		sub.RemainingLessons = *req.RemainingLessons
	}
	var err error
	if req.StartDate != "" {
		if sub.StartDate, err = models.ParseDate(req.StartDate); err != nil {
			return badRequest("%s", err.Error())
		}
	}
	if req.EndDate != "" {
		if sub.EndDate, err = models.ParseDate(req.EndDate); err != nil {
			return badRequest("%s", err.Error())
		}
	}

	ctx := c.UserContext()
	var id int64
	err = db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		id, err = s.createSubscription(ctx, tx, sub)
		return err
	})
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"subscription_id": id})
}

// createSubscription дополняет абонемент значениями по умолчанию
// (сегодня + SubscriptionDays, остаток = всего) и сохраняет.
func (s *server) createSubscription(ctx context.Context, tx *sql.Tx, sub models.Subscription) (int64, error) {
	if sub.Type == "" {
		sub.Type = models.SubscriptionEight
	}
	if sub.TotalLessons == 0 {
		sub.TotalLessons = models.LessonsFor(sub.Type)
	}
	if sub.RemainingLessons == 0 {
		sub.RemainingLessons = sub.TotalLessons
	}
	if sub.StartDate.IsZero() {
		sub.StartDate = models.Today(s.Config.Location)
	}
	if sub.EndDate.IsZero() {
		sub.EndDate = sub.StartDate.AddDate(0, 0, models.SubscriptionDays)
	}
	sub.IsActive = true
	if err := sub.Validate(); err != nil {
		return 0, badRequest("Некорректный абонемент: %s", err.Error())
	}
	if _, err := db.GetParticipant(ctx, tx, sub.ParticipantID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return 0, badRequest("Участник не найден")
		}
		return 0, err
	}
	if _, err := db.GetGroup(ctx, tx, sub.GroupID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return 0, badRequest("Группа не найдена")
		}
		return 0, err
	}
	return db.CreateSubscription(ctx, tx, sub)
}

func (s *server) adminDeleteSubscription(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := db.DeleteSubscription(c.UserContext(), s.DB, id); err != nil {
		return err
	}
	return ok(c, nil)
}

// ---------- платежи ----------

func (s *server) adminListPayments(c *fiber.Ctx) error {
	status := models.PaymentStatus(c.Query("status"))
	switch status {
	case "", models.PaymentPending, models.PaymentApproved, models.PaymentRejected:
	default:
		return badRequest("Неизвестный статус платежа: %s", status)
	}
	list, err := db.ListPayments(c.UserContext(), s.DB, status)
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(list))
	for _, p := range list {
		out = append(out, paymentView(p))
	}
	return ok(c, fiber.Map{"payments": out})
}

type decisionBody struct {
	AdminNotes string `json:"admin_notes" validate:"max=1000"`
}

func (s *server) paymentDecision(c *fiber.Ctx) (int64, string, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return 0, "", err
	}
	var req decisionBody
	if len(c.Body()) > 0 {
		if err := s.bind(c, &req); err != nil {
			return 0, "", err
		}
	}
	return id, req.AdminNotes, nil
}

func (s *server) adminApprovePayment(c *fiber.Ctx) error {
	id, note, err := s.paymentDecision(c)
	if err != nil {
		return err
	}
	p, err := s.Billing.Approve(c.UserContext(), id, note)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"payment_id": p.ID, "status": p.Status, "message": "Платёж подтверждён"})
}

func (s *server) adminRejectPayment(c *fiber.Ctx) error {
	id, note, err := s.paymentDecision(c)
	if err != nil {
		return err
	}
	p, err := s.Billing.Reject(c.UserContext(), id, note)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"payment_id": p.ID, "status": p.Status, "message": "Платёж отклонён"})
}

// ---------- скидки ----------

type discountRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=1000"`
	DiscountType *string `json:"discount_type" validate:"omitempty,min=1,max=64"`
	Percent      *int    `json:"discount_percent" validate:"omitempty,min=0,max=100"`
	IsActive     *bool   `json:"is_active"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
}

// apply переносит заданные поля в скидку; пустая строка в датах очищает дату.
func (r discountRequest) apply(d *models.Discount) error {
	if r.Name != nil {
		d.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		d.Description = emptyToNil(r.Description)
	}
	if r.DiscountType != nil {
		d.DiscountType = *r.DiscountType
	}
	if r.Percent != nil {
		d.Percent = *r.Percent
	}
	if r.IsActive != nil {
		d.IsActive = *r.IsActive
	}
	var err error
	if r.StartDate != nil {
		if d.StartDate, err = optionalDate(*r.StartDate); err != nil {
			return err
		}
	}
	if r.EndDate != nil {
		if d.EndDate, err = optionalDate(*r.EndDate); err != nil {
			return err
		}
	}
	if d.StartDate != nil && d.EndDate != nil && d.EndDate.Before(*d.StartDate) {
		return badRequest("Дата окончания скидки раньше даты начала")
	}
	return nil
}

func optionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := models.ParseDate(s)
	if err != nil {
		return nil, badRequest("%s", err.Error())
	}
	return &t, nil
}

func (s *server) adminListDiscounts(c *fiber.Ctx) error {
	list, err := db.ListDiscounts(c.UserContext(), s.DB, false, time.Time{})
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(list))
	for _, d := range list {
		out = append(out, discountView(d))
	}
	return ok(c, fiber.Map{"discounts": out})
}

func (s *server) adminCreateDiscount(c *fiber.Ctx) error {
	var req discountRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if req.Name == nil || req.DiscountType == nil || req.Percent == nil {
		return badRequest("Обязательные поля: name, discount_type, discount_percent")
	}
	d := models.Discount{IsActive: true}
	if err := req.apply(&d); err != nil {
		return err
	}
	id, err := db.CreateDiscount(c.UserContext(), s.DB, d)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"discount_id": id})
}

func (s *server) adminUpdateDiscount(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req discountRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	d, err := db.GetDiscount(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if err := req.apply(d); err != nil {
		return err
	}
	if err := db.UpdateDiscount(ctx, s.DB, *d); err != nil {
		return err
	}
	return ok(c, nil)
}

func (s *server) adminDeleteDiscount(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := db.DeleteDiscount(c.UserContext(), s.DB, id); err != nil {
		return err
	}
	return ok(c, nil)
}

// ---------- остатки ----------

func (s *server) lowBalanceNotify(c *fiber.Ctx) error {
	res, err := s.Sweeper.Sweep(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"found": res.Found, "notified": res.Notified})
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
