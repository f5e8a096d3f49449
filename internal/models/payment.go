package models

import "time"

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

// CanTransition — статус платежа меняется только из pending и только один раз.
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	return s == PaymentPending && (to == PaymentApproved || to == PaymentRejected)
}

func (s PaymentStatus) Label() string {
	switch s {
	case PaymentPending:
		return "Ожидает подтверждения"
	case PaymentApproved:
		return "Подтверждён"
	case PaymentRejected:
		return "Отклонён"
	}
	return string(s)
}

type Payment struct {
	ID             int64         `db:"id" json:"id"`
	AccountID      int64         `db:"account_id" json:"account_id"`
	SubscriptionID int64         `db:"subscription_id" json:"subscription_id"`
	Amount         int           `db:"amount" json:"amount"`
	Method         string        `db:"payment_method" json:"payment_method"`
	Status         PaymentStatus `db:"status" json:"status"`
	IsPaid         bool          `db:"is_paid" json:"is_paid"`
	PaymentDate    *time.Time    `db:"payment_date" json:"payment_date"`
	AdminNotes     *string       `db:"admin_notes" json:"admin_notes"`
	ProcessedAt    *time.Time    `db:"processed_at" json:"processed_at"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// PaymentView — строка списка платежей для администратора.
type PaymentView struct {
	Payment
	ParticipantName  string `json:"participant_name"`
	GroupName        string `json:"sport_group"`
	SubscriptionType string `json:"subscription_type"`
	PayerName        string `json:"payer_name"`
}
