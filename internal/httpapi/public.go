package httpapi

import (
	"strings"

	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/Spok95/sportclub-bot/internal/session"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// initRequest — пользователь из Telegram Web App initDataUnsafe.user.
type initRequest struct {
	ID        int64  `json:"id" validate:"required,gt=0"`
	Username  string `json:"username" validate:"max=64"`
	FirstName string `json:"first_name" validate:"max=128"`
	LastName  string `json:"last_name" validate:"max=128"`
}

func (s *server) initSession(c *fiber.Ctx) error {
	var req initRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	role := models.Guardian
	if s.Config.IsAdmin(req.ID) {
		role = models.Admin
	}
	acc, created, err := db.EnsureAccount(c.UserContext(), s.DB, models.Account{
		TelegramID: req.ID,
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       role,
	})
	if err != nil {
		return err
	}
	if created {
		s.Log.Info("account created", zap.Int64("account_id", acc.ID), zap.String("role", string(acc.Role)))
	}

	token, exp, err := s.Sessions.Issue(*acc)
	if err != nil {
		return err
	}
	prod := strings.EqualFold(s.Config.Env, "prod")
	sameSite := fiber.CookieSameSiteLaxMode
	if prod {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HTTPOnly: true,
		Secure:   prod,
		SameSite: sameSite,
	})

	return ok(c, fiber.Map{"user": fiber.Map{
		"id":          acc.ID,
		"telegram_id": acc.TelegramID,
		"role":        acc.Role,
		"first_name":  acc.FirstName,
	}})
}

func (s *server) listGroups(c *fiber.Ctx) error {
	groups, err := db.ListGroups(c.UserContext(), s.DB)
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupView(g))
	}
	return ok(c, fiber.Map{"groups": out})
}

func (s *server) getGroup(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	g, err := db.GetGroup(c.UserContext(), s.DB, id)
	if err != nil {
		return err
	}
	slots, err := db.ListSlots(c.UserContext(), s.DB, &id)
	if err != nil {
		return err
	}
	view := groupView(*g)
	view["detailed_description"] = g.DetailedDescription
	view["trainer_name"] = g.TrainerName
	view["trainer_info"] = g.TrainerInfo
	view["category"] = g.Category
	view["schedule"] = slotViews(slots)
	return ok(c, fiber.Map{"group": view})
}

func (s *server) groupSchedule(c *fiber.Ctx) error {
	id, err := paramID(c, "group_id")
	if err != nil {
		return err
	}
	slots, err := db.ListSlots(c.UserContext(), s.DB, &id)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"schedule": slotViews(slots)})
}

func (s *server) activeDiscounts(c *fiber.Ctx) error {
	list, err := db.ListDiscounts(c.UserContext(), s.DB, true, models.Today(s.Config.Location))
	if err != nil {
		return err
	}
	out := make([]fiber.Map, 0, len(list))
	for _, d := range list {
		out = append(out, discountView(d))
	}
	return ok(c, fiber.Map{"discounts": out})
}

func (s *server) contact(c *fiber.Ctx) error {
	return ok(c, fiber.Map{"contact_info": s.Config.Contact})
}
