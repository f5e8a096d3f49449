package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Spok95/sportclub-bot/internal/ctxutil"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/lib/pq"
)

const accountCols = `id, telegram_id, username, first_name, last_name, role, created_at`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.TelegramID, &a.Username, &a.FirstName, &a.LastName, &a.Role, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// EnsureAccount — находит аккаунт по telegram_id или создаёт его. Имя и роль
// обновляются при каждом входе: роль определяется списком администраторов из конфига.
func EnsureAccount(ctx context.Context, q Querier, a models.Account) (*models.Account, bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	row := q.QueryRowContext(ctx, `
		INSERT INTO accounts (telegram_id, username, first_name, last_name, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (telegram_id) DO NOTHING
		RETURNING `+accountCols,
		a.TelegramID, a.Username, a.FirstName, a.LastName, string(a.Role))
	created, err := scanAccount(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	row = q.QueryRowContext(ctx, `
		UPDATE accounts SET username = $2, first_name = $3, last_name = $4, role = $5
		WHERE telegram_id = $1
		RETURNING `+accountCols,
		a.TelegramID, a.Username, a.FirstName, a.LastName, string(a.Role))
	existing, err := scanAccount(row)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func GetAccountByID(ctx context.Context, q Querier, id int64) (*models.Account, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	a, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "account", id)
	}
	return a, nil
}

// AdminChatIDs — telegram id всех администраторов: из таблицы плюс из конфигурации.
func AdminChatIDs(ctx context.Context, q Querier, fromEnv []int64) ([]int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := q.QueryContext(ctx, `
		SELECT telegram_id FROM accounts WHERE role = 'admin'
		UNION
		SELECT unnest($1::bigint[])
	`, pq.Array(fromEnv))
	if err != nil {
		return nil, fmt.Errorf("admin chat ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if id != 0 {
			out = append(out, id)
		}
	}
	return out, rows.Err()
}
