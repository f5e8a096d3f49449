package db

import (
	"context"
	"fmt"

	"github.com/Spok95/sportclub-bot/internal/ctxutil"
	"github.com/Spok95/sportclub-bot/internal/models"
)

const groupCols = `id, name, description, detailed_description, trainer_name, trainer_info, category,
	price_8, price_12, price_single, created_at`

func scanGroup(row interface{ Scan(...any) error }) (*models.Group, error) {
	var g models.Group
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.DetailedDescription, &g.TrainerName, &g.TrainerInfo,
		&g.Category, &g.Price8, &g.Price12, &g.PriceSingle, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func ListGroups(ctx context.Context, q Querier) ([]models.Group, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `SELECT `+groupCols+` FROM sport_groups ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func GetGroup(ctx context.Context, q Querier, id int64) (*models.Group, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	g, err := scanGroup(q.QueryRowContext(ctx, `SELECT `+groupCols+` FROM sport_groups WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "group", id)
	}
	return g, nil
}

func CreateGroup(ctx context.Context, q Querier, g models.Group) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO sport_groups (name, description, detailed_description, trainer_name, trainer_info, category, price_8, price_12, price_single)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, g.Name, g.Description, g.DetailedDescription, g.TrainerName, g.TrainerInfo, g.Category,
		g.Price8, g.Price12, g.PriceSingle).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert group %q: %w", g.Name, err)
	}
	return id, nil
}

// ---------- расписание ----------

const slotCols = `s.id, s.group_id, g.name, s.weekday, to_char(s.start_time, 'HH24:MI'), to_char(s.end_time, 'HH24:MI')`

func scanSlot(row interface{ Scan(...any) error }) (*models.WeeklySlot, error) {
	var s models.WeeklySlot
	if err := row.Scan(&s.ID, &s.GroupID, &s.GroupName, &s.Weekday, &s.StartTime, &s.EndTime); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSlots — расписание; groupID == nil — по всем группам.
func ListSlots(ctx context.Context, q Querier, groupID *int64) ([]models.WeeklySlot, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT `+slotCols+`
		FROM weekly_slots s
		JOIN sport_groups g ON g.id = s.group_id
		WHERE $1::bigint IS NULL OR s.group_id = $1
		ORDER BY s.group_id, s.weekday, s.start_time
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.WeeklySlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// FindSlot — слот группы на день недели; если их несколько, берём самый ранний. nil, nil — слота нет.
func FindSlot(ctx context.Context, q Querier, groupID int64, weekday int) (*models.WeeklySlot, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	s, err := scanSlot(q.QueryRowContext(ctx, `
		SELECT `+slotCols+`
		FROM weekly_slots s
		JOIN sport_groups g ON g.id = s.group_id
		WHERE s.group_id = $1 AND s.weekday = $2
		ORDER BY s.start_time
		LIMIT 1
	`, groupID, weekday))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func CreateSlot(ctx context.Context, q Querier, s models.WeeklySlot) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO weekly_slots (group_id, weekday, start_time, end_time)
		VALUES ($1, $2, $3::time, $4::time)
		RETURNING id
	`, s.GroupID, s.Weekday, s.StartTime, s.EndTime).Scan(&id)
	return id, err
}

func UpdateSlot(ctx context.Context, q Querier, s models.WeeklySlot) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := q.ExecContext(ctx, `
		UPDATE weekly_slots
		SET group_id = $2, weekday = $3, start_time = $4::time, end_time = $5::time
		WHERE id = $1
	`, s.ID, s.GroupID, s.Weekday, s.StartTime, s.EndTime)
	if err != nil {
		return err
	}
	return mustAffect(res, "slot", s.ID)
}

func DeleteSlot(ctx context.Context, q Querier, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := q.ExecContext(ctx, `DELETE FROM weekly_slots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "slot", id)
}
