package models

import "time"

type Participant struct {
	ID                 int64     `db:"id" json:"id"`
	AccountID          int64     `db:"account_id" json:"-"`
	FullName           string    `db:"full_name" json:"full_name"`
	ParentPhone        string    `db:"parent_phone" json:"parent_phone"`
	BirthDate          time.Time `db:"birth_date" json:"birth_date"`
	MedicalCertificate bool      `db:"medical_certificate" json:"medical_certificate"`
	DiscountType       *string   `db:"discount_type" json:"discount_type"`
	DiscountPercent    int       `db:"discount_percent" json:"discount_percent"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// AuthorizationCode — одноразовый код привязки родителя к участнику.
type AuthorizationCode struct {
	ID            int64      `db:"id"`
	Code          string     `db:"code"`
	ParticipantID int64      `db:"participant_id"`
	IsUsed        bool       `db:"is_used"`
	UsedByID      *int64     `db:"used_by_account_id"`
	UsedAt        *time.Time `db:"used_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

const AuthCodeLength = 6

// Age — полных лет на дату today.
func Age(birth, today time.Time) int {
	if birth.IsZero() {
		return 0
	}
	years := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
