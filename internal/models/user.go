package models

import "time"

type Role string

const (
	Admin    Role = "admin"
	Guardian Role = "parent"
)

// Account — пользователь Web App, создаётся при первом входе.
type Account struct {
	ID         int64     `db:"id" json:"id"`
	TelegramID int64     `db:"telegram_id" json:"telegram_id"`
	Username   string    `db:"username" json:"username"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	Role       Role      `db:"role" json:"role"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

func (a Account) DisplayName() string {
	switch {
	case a.FirstName != "" && a.LastName != "":
		return a.FirstName + " " + a.LastName
	case a.FirstName != "":
		return a.FirstName
	case a.Username != "":
		return "@" + a.Username
	}
	return "пользователь"
}
