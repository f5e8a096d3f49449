package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/sportclub-bot/internal/models"
)

// Kind — вид уведомления, пишется в outbox и в метки метрик.
type Kind string

const (
	KindPresence          Kind = "presence"
	KindAbsenceUnexcused  Kind = "absence_unexcused"
	KindAbsenceExcused    Kind = "absence_excused"
	KindLowBalance        Kind = "low_balance"
	KindLowBalanceSummary Kind = "low_balance_summary"
	KindPaymentCreated    Kind = "payment_created"
	KindPaymentApproved   Kind = "payment_approved"
	KindPaymentRejected   Kind = "payment_rejected"
	KindEnrollRequest     Kind = "enroll_request"
)

// Lesson — что нужно знать о занятии для текста уведомления.
type Lesson struct {
	Participant string
	Group       string
	Date        time.Time
	StartTime   string
}

func (l Lesson) when() string {
	if l.StartTime == "" {
		return models.FormatDay(l.Date)
	}
	return fmt.Sprintf("%s в %s", models.FormatDay(l.Date), l.StartTime)
}

func PresenceText(l Lesson, remaining int) string {
	return fmt.Sprintf("✅ %s посетил(а) занятие «%s» %s.\nОсталось занятий по абонементу: %d.",
		l.Participant, l.Group, l.when(), remaining)
}

func UnexcusedAbsenceText(l Lesson, remaining int) string {
	return fmt.Sprintf("❌ %s пропустил(а) занятие «%s» %s без уважительной причины.\n"+
		"Занятие списано с абонемента. Осталось занятий: %d.",
		l.Participant, l.Group, l.when(), remaining)
}

func ExcusedAbsenceText(l Lesson) string {
	return fmt.Sprintf("ℹ️ %s отсутствовал(а) на занятии «%s» %s по уважительной причине.\n"+
		"Занятие не списано.", l.Participant, l.Group, l.when())
}

func LowBalanceText(participant, group string, remaining int) string {
	if remaining <= 0 {
		return fmt.Sprintf("⚠️ У %s закончились занятия по абонементу в группе «%s».\n"+
			"Пожалуйста, продлите абонемент.", participant, group)
	}
	return fmt.Sprintf("⚠️ У %s осталось %d %s по абонементу в группе «%s».\n"+
		"Не забудьте продлить абонемент.", participant, remaining, lessonsWord(remaining), group)
}

// LowBalanceRow — строка сводки для администраторов.
type LowBalanceRow struct {
	Participant string
	Group       string
	Remaining   int
}

func LowBalanceSummaryText(rows []LowBalanceRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Заканчиваются абонементы (%d):\n", len(rows))
	for _, r := range rows {
		fmt.Fprintf(&b, "• %s — %s: %d\n", r.Participant, r.Group, r.Remaining)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Payment — что нужно знать о платеже для текста уведомления.
type Payment struct {
	ID               int64
	Payer            string
	Participant      string
	Group            string
	SubscriptionType string
	Amount           int
	Note             string
}

func PaymentCreatedText(p Payment) string {
	return fmt.Sprintf("💳 Новая оплата #%d на подтверждение.\n"+
		"Плательщик: %s\nУчастник: %s\nГруппа: %s\nАбонемент: %s\nСумма: %d ₽",
		p.ID, p.Payer, p.Participant, p.Group, p.SubscriptionType, p.Amount)
}

func PaymentApprovedText(p Payment) string {
	s := fmt.Sprintf("✅ Оплата %d ₽ за «%s» (%s) подтверждена.", p.Amount, p.Group, p.Participant)
	if p.Note != "" {
		s += "\nКомментарий: " + p.Note
	}
	return s
}

func PaymentRejectedText(p Payment) string {
	s := fmt.Sprintf("🚫 Оплата %d ₽ за «%s» (%s) отклонена.", p.Amount, p.Group, p.Participant)
	if p.Note != "" {
		s += "\nПричина: " + p.Note
	}
	return s
}

func EnrollRequestText(who, username, group string) string {
	if username != "" {
		who = fmt.Sprintf("%s (@%s)", who, username)
	}
	return fmt.Sprintf("📝 Заявка на запись в группу «%s» от %s.", group, who)
}

// lessonsWord — «занятие / занятия / занятий».
func lessonsWord(n int) string {
	n %= 100
	if n >= 11 && n <= 14 {
		return "занятий"
	}
	switch n % 10 {
	case 1:
		return "занятие"
	case 2, 3, 4:
		return "занятия"
	}
	return "занятий"
}
