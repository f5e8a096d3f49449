package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/Spok95/sportclub-bot/internal/ctxutil"
	"github.com/Spok95/sportclub-bot/internal/models"
)

const participantCols = `p.id, p.account_id, p.full_name, p.parent_phone, p.birth_date,
	p.medical_certificate, p.discount_type, p.discount_percent, p.created_at`

func scanParticipant(row interface{ Scan(...any) error }) (*models.Participant, error) {
	var p models.Participant
	var discount sql.NullString
	if err := row.Scan(&p.ID, &p.AccountID, &p.FullName, &p.ParentPhone, &p.BirthDate,
		&p.MedicalCertificate, &discount, &p.DiscountPercent, &p.CreatedAt); err != nil {
		return nil, err
	}
	if discount.Valid {
		p.DiscountType = &discount.String
	}
	return &p, nil
}

func collectParticipants(rows *sql.Rows) ([]models.Participant, error) {
	defer func() { _ = rows.Close() }()
	var out []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func CreateParticipant(ctx context.Context, q Querier, p models.Participant) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO participants (account_id, full_name, parent_phone, birth_date, medical_certificate, discount_type, discount_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, p.AccountID, p.FullName, p.ParentPhone, p.BirthDate, p.MedicalCertificate, p.DiscountType, p.DiscountPercent).Scan(&id)
	return id, err
}

func GetParticipant(ctx context.Context, q Querier, id int64) (*models.Participant, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	p, err := scanParticipant(q.QueryRowContext(ctx, `SELECT `+participantCols+` FROM participants p WHERE p.id = $1`, id))
	if err != nil {
		return nil, notFound(err, "participant", id)
	}
	return p, nil
}

func ListParticipants(ctx context.Context, q Querier) ([]models.Participant, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `SELECT `+participantCols+` FROM participants p ORDER BY LOWER(p.full_name)`)
	if err != nil {
		return nil, err
	}
	return collectParticipants(rows)
}

// ListParticipantsForAccount — участники, которых аккаунт зарегистрировал сам или привязал кодом.
func ListParticipantsForAccount(ctx context.Context, q Querier, accountID int64) ([]models.Participant, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT `+participantCols+`
		FROM participants p
		WHERE p.account_id = $1
		   OR EXISTS (SELECT 1 FROM authorization_codes ac
		              WHERE ac.participant_id = p.id AND ac.is_used AND ac.used_by_account_id = $1)
		ORDER BY LOWER(p.full_name)
	`, accountID)
	if err != nil {
		return nil, err
	}
	return collectParticipants(rows)
}

// ParticipantPatch — частичное обновление; nil означает «не менять».
type ParticipantPatch struct {
	FullName           *string
	ParentPhone        *string
	BirthDate          *time.Time
	MedicalCertificate *bool
	DiscountType       *string
	DiscountPercent    *int
}

func UpdateParticipant(ctx context.Context, q Querier, id int64, p ParticipantPatch) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := q.ExecContext(ctx, `
		UPDATE participants SET
			full_name           = COALESCE($2, full_name),
			parent_phone        = COALESCE($3, parent_phone),
			birth_date          = COALESCE($4, birth_date),
			medical_certificate = COALESCE($5, medical_certificate),
			discount_type       = COALESCE($6, discount_type),
			discount_percent    = COALESCE($7, discount_percent)
		WHERE id = $1
	`, id, p.FullName, p.ParentPhone, p.BirthDate, p.MedicalCertificate, p.DiscountType, p.DiscountPercent)
	if err != nil {
		return err
	}
	return mustAffect(res, "participant", id)
}

func DeleteParticipant(ctx context.Context, q Querier, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := q.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "participant", id)
}

// IsGuardianOf — привязан ли аккаунт к участнику (сам зарегистрировал или погасил код).
func IsGuardianOf(ctx context.Context, q Querier, accountID, participantID int64) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var ok bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM participants p
			WHERE p.id = $2 AND (p.account_id = $1 OR EXISTS (
				SELECT 1 FROM authorization_codes ac
				WHERE ac.participant_id = p.id AND ac.is_used AND ac.used_by_account_id = $1))
		)
	`, accountID, participantID).Scan(&ok)
	return ok, err
}

// ListGroupParticipants — участники, у которых есть активный абонемент в группе.
func ListGroupParticipants(ctx context.Context, q Querier, groupID int64) ([]models.Participant, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT `+participantCols+`
		FROM participants p
		WHERE EXISTS (SELECT 1 FROM subscriptions s
		              WHERE s.participant_id = p.id AND s.group_id = $1 AND s.is_active)
		ORDER BY LOWER(p.full_name)
	`, groupID)
	if err != nil {
		return nil, err
	}
	return collectParticipants(rows)
}
