package db

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Spok95/sportclub-bot/internal/ctxutil"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/lib/pq"
)

var (
	ErrCodeNotFound = errors.New("authorization code not found")
	ErrCodeUsed     = errors.New("authorization code already used")
)

const codeAttempts = 10

// NewCode — случайный код из AuthCodeLength цифр.
func NewCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < models.AuthCodeLength; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", models.AuthCodeLength, n.Int64()), nil
}

// IssueCode выдаёт участнику новый код. При совпадении с существующим пробуем ещё раз.
func IssueCode(ctx context.Context, q Querier, participantID int64) (string, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	for i := 0; i < codeAttempts; i++ {
		code, err := NewCode()
		if err != nil {
			return "", err
		}
		var id int64
		err = q.QueryRowContext(ctx, `
			INSERT INTO authorization_codes (code, participant_id)
			VALUES ($1, $2)
			ON CONFLICT (code) DO NOTHING
			RETURNING id
		`, code, participantID).Scan(&id)
		if err == nil {
			return code, nil
		}
		if !isNoRows(err) {
			return "", fmt.Errorf("insert authorization code: %w", err)
		}
	}
	return "", fmt.Errorf("authorization code: no free code after %d attempts", codeAttempts)
}

// RedeemCode гасит код за аккаунтом. Гасится ровно один раз:
// вторая попытка (в том числе тем же аккаунтом) — ErrCodeUsed.
func RedeemCode(ctx context.Context, q Querier, code string, accountID int64) (*models.AuthorizationCode, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var c models.AuthorizationCode
	err := q.QueryRowContext(ctx, `
		UPDATE authorization_codes
		SET is_used = TRUE, used_by_account_id = $2, used_at = now()
		WHERE code = $1 AND NOT is_used
		RETURNING id, code, participant_id, is_used, used_by_account_id, used_at, created_at
	`, code, accountID).Scan(&c.ID, &c.Code, &c.ParticipantID, &c.IsUsed, &c.UsedByID, &c.UsedAt, &c.CreatedAt)
	if err == nil {
		return &c, nil
	}
	if !isNoRows(err) {
		return nil, err
	}

	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM authorization_codes WHERE code = $1)`, code).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrCodeUsed
	}
	return nil, ErrCodeNotFound
}

// LatestCode — последний выданный код участника ("" — кодов нет).
func LatestCode(ctx context.Context, q Querier, participantID int64) (code string, used bool, err error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	err = q.QueryRowContext(ctx, `
		SELECT code, is_used FROM authorization_codes
		WHERE participant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, participantID).Scan(&code, &used)
	if isNoRows(err) {
		return "", false, nil
	}
	return code, used, err
}

// Guardian — аккаунт родителя, к которому уходят уведомления по участнику.
type Guardian struct {
	AccountID  int64
	TelegramID int64
	Name       string
}

// GuardianFor — родитель участника: первый погасивший код аккаунт.
// Если кодов не гасили — аккаунт, зарегистрировавший участника. nil, nil — некому писать.
func GuardianFor(ctx context.Context, q Querier, participantID int64) (*Guardian, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var g Guardian
	err := q.QueryRowContext(ctx, `
		SELECT a.id, a.telegram_id, TRIM(a.first_name || ' ' || a.last_name)
		FROM authorization_codes ac
		JOIN accounts a ON a.id = ac.used_by_account_id
		WHERE ac.participant_id = $1 AND ac.is_used
		ORDER BY ac.used_at, ac.id
		LIMIT 1
	`, participantID).Scan(&g.AccountID, &g.TelegramID, &g.Name)
	if err == nil {
		return &g, nil
	}
	if !isNoRows(err) {
		return nil, err
	}

	err = q.QueryRowContext(ctx, `
		SELECT a.id, a.telegram_id, TRIM(a.first_name || ' ' || a.last_name)
		FROM participants p
		JOIN accounts a ON a.id = p.account_id
		WHERE p.id = $1 AND a.role = 'parent'
	`, participantID).Scan(&g.AccountID, &g.TelegramID, &g.Name)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// LinkedParticipant — участник, привязанный к родителю кодом.
type LinkedParticipant struct {
	models.Participant
	AuthorizedAt time.Time `json:"authorized_at"`
}

func ListLinkedParticipants(ctx context.Context, q Querier, accountID int64) ([]LinkedParticipant, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT `+participantCols+`, MIN(ac.used_at)
		FROM authorization_codes ac
		JOIN participants p ON p.id = ac.participant_id
		WHERE ac.used_by_account_id = $1 AND ac.is_used
		GROUP BY p.id
		ORDER BY MIN(ac.used_at)
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []LinkedParticipant
	for rows.Next() {
		var lp LinkedParticipant
		var discount *string
		p := &lp.Participant
		if err := rows.Scan(&p.ID, &p.AccountID, &p.FullName, &p.ParentPhone, &p.BirthDate,
			&p.MedicalCertificate, &discount, &p.DiscountPercent, &p.CreatedAt, &lp.AuthorizedAt); err != nil {
			return nil, err
		}
		p.DiscountType = discount
		out = append(out, lp)
	}
	return out, rows.Err()
}

// LatestCodes — последний выданный код каждого из участников.
func LatestCodes(ctx context.Context, q Querier, participantIDs []int64) (map[int64]string, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT DISTINCT ON (participant_id) participant_id, code
		FROM authorization_codes
		WHERE participant_id = ANY($1::bigint[])
		ORDER BY participant_id, created_at DESC, id DESC
	`, pq.Array(participantIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int64]string)
	for rows.Next() {
		var id int64
		var code string
		if err := rows.Scan(&id, &code); err != nil {
			return nil, err
		}
		out[id] = code
	}
	return out, rows.Err()
}
