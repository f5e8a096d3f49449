// Package session — подписанная cookie с личностью пользователя (HS256 JWT).
package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Spok95/sportclub-bot/internal/ctxutil"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/golang-jwt/jwt/v4"
)

const (
	CookieName = "session"
	TTL        = 30 * 24 * time.Hour
)

var ErrInvalid = errors.New("invalid session")

type Claims struct {
	AccountID  int64       `json:"account_id"`
	TelegramID int64       `json:"telegram_id"`
	Role       models.Role `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	now    func() time.Time
}

func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret), now: time.Now}
}

// Issue подписывает токен для аккаунта.
func (m *Manager) Issue(a models.Account) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(TTL)
	claims := Claims{
		AccountID:  a.ID,
		TelegramID: a.TelegramID,
		Role:       a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(a.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return tok, exp, nil
}

// Parse проверяет подпись и срок и возвращает личность.
func (m *Manager) Parse(raw string) (ctxutil.Identity, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	tok, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !tok.Valid {
		return ctxutil.Identity{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.AccountID == 0 {
		return ctxutil.Identity{}, fmt.Errorf("%w: no account", ErrInvalid)
	}
	switch claims.Role {
	case models.Admin, models.Guardian:
	default:
		return ctxutil.Identity{}, fmt.Errorf("%w: unknown role %q", ErrInvalid, claims.Role)
	}
	return ctxutil.Identity{AccountID: claims.AccountID, TelegramID: claims.TelegramID, Role: claims.Role}, nil
}
