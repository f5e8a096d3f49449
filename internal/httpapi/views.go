package httpapi

import (
	"time"

	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/gofiber/fiber/v2"
)

const paymentDateLayout = "2006-01-02 15:04"

func dateStr(t time.Time) string { return t.Format(models.DateLayout) }

func optDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := dateStr(*t)
	return &s
}

func participantView(p models.Participant) fiber.Map {
	return fiber.Map{
		"id":                  p.ID,
		"full_name":           p.FullName,
		"parent_phone":        p.ParentPhone,
		"birth_date":          dateStr(p.BirthDate),
		"medical_certificate": p.MedicalCertificate,
		"discount_type":       p.DiscountType,
		"discount_percent":    p.DiscountPercent,
	}
}

func subscriptionView(v db.SubscriptionView) fiber.Map {
	return fiber.Map{
		"id":                v.ID,
		"sport_group_id":    v.GroupID,
		"sport_group":       v.GroupName,
		"sport_group_name":  v.GroupName,
		"subscription_type": v.Type,
		"total_lessons":     v.TotalLessons,
		"remaining_lessons": v.RemainingLessons,
		"start_date":        dateStr(v.StartDate),
		"end_date":          dateStr(v.EndDate),
		"is_active":         v.IsActive,
	}
}

func subscriptionViews(list []db.SubscriptionView) []fiber.Map {
	out := make([]fiber.Map, 0, len(list))
	for _, v := range list {
		out = append(out, subscriptionView(v))
	}
	return out
}

func slotView(sl models.WeeklySlot) fiber.Map {
	return fiber.Map{
		"id":               sl.ID,
		"sport_group_id":   sl.GroupID,
		"sport_group_name": sl.GroupName,
		"day_of_week":      sl.Weekday,
		"day":              models.DayName(sl.Weekday),
		"start_time":       sl.StartTime,
		"end_time":         sl.EndTime,
	}
}

func slotViews(slots []models.WeeklySlot) []fiber.Map {
	out := make([]fiber.Map, 0, len(slots))
	for _, sl := range slots {
		out = append(out, slotView(sl))
	}
	return out
}

func groupView(g models.Group) fiber.Map {
	return fiber.Map{
		"id":           g.ID,
		"name":         g.Name,
		"description":  g.Description,
		"price_8":      g.Price8,
		"price_12":     g.Price12,
		"price_single": g.PriceSingle,
	}
}

func discountView(d models.Discount) fiber.Map {
	return fiber.Map{
		"id":               d.ID,
		"name":             d.Name,
		"description":      d.Description,
		"discount_type":    d.DiscountType,
		"discount_percent": d.Percent,
		"start_date":       optDate(d.StartDate),
		"end_date":         optDate(d.EndDate),
		"is_active":        d.IsActive,
	}
}

func paymentView(p models.PaymentView) fiber.Map {
	var paid *string
	if p.PaymentDate != nil {
		s := p.PaymentDate.Format(paymentDateLayout)
		paid = &s
	}
	return fiber.Map{
		"id":                p.ID,
		"participant_name":  p.ParticipantName,
		"sport_group":       p.GroupName,
		"subscription_type": p.SubscriptionType,
		"payer_name":        p.PayerName,
		"amount":            p.Amount,
		"payment_method":    p.Method,
		"status":            p.Status,
		"status_label":      p.Status.Label(),
		"is_paid":           p.IsPaid,
		"payment_date":      paid,
		"admin_notes":       p.AdminNotes,
		"created_at":        p.CreatedAt.Format(paymentDateLayout),
	}
}
