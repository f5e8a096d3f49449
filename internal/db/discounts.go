package db

import (
	"context"
	"time"

	"github.com/Spok95/sportclub-bot/internal/ctxutil"
	"github.com/Spok95/sportclub-bot/internal/models"
)

const discountCols = `id, name, description, discount_type, discount_percent, is_active, start_date, end_date, created_at`

func scanDiscount(row interface{ Scan(...any) error }) (*models.Discount, error) {
	var d models.Discount
	if err := row.Scan(&d.ID, &d.Name, &d.Description, &d.DiscountType, &d.Percent, &d.IsActive,
		&d.StartDate, &d.EndDate, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDiscounts; onlyActive — только включённые и действующие на сегодня.
func ListDiscounts(ctx context.Context, q Querier, onlyActive bool, today time.Time) ([]models.Discount, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT `+discountCols+`
		FROM discounts
		WHERE NOT $1::boolean OR (is_active
		      AND (start_date IS NULL OR start_date <= $2)
		      AND (end_date IS NULL OR end_date >= $2))
		ORDER BY id
	`, onlyActive, models.DateOf(today))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func GetDiscount(ctx context.Context, q Querier, id int64) (*models.Discount, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	d, err := scanDiscount(q.QueryRowContext(ctx, `SELECT `+discountCols+` FROM discounts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "discount", id)
	}
	return d, nil
}

func CreateDiscount(ctx context.Context, q Querier, d models.Discount) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO discounts (name, description, discount_type, discount_percent, is_active, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, d.Name, d.Description, d.DiscountType, d.Percent, d.IsActive, d.StartDate, d.EndDate).Scan(&id)
	return id, err
}

func UpdateDiscount(ctx context.Context, q Querier, d models.Discount) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := q.ExecContext(ctx, `
		UPDATE discounts
		SET name = $2, description = $3, discount_type = $4, discount_percent = $5,
		    is_active = $6, start_date = $7, end_date = $8
		WHERE id = $1
	`, d.ID, d.Name, d.Description, d.DiscountType, d.Percent, d.IsActive, d.StartDate, d.EndDate)
	if err != nil {
		return err
	}
	return mustAffect(res, "discount", d.ID)
}

func DeleteDiscount(ctx context.Context, q Querier, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := q.ExecContext(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "discount", id)
}
