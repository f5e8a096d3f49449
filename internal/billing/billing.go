// Package billing — покупка абонемента родителем и ручное подтверждение оплаты администратором.
package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/Spok95/sportclub-bot/internal/notify"
	"go.uber.org/zap"
)

var (
	ErrAlreadyProcessed = errors.New("payment already processed")
	ErrNotLinked        = errors.New("participant is not linked to this account")
	ErrInvalidPurchase  = errors.New("invalid purchase")
)

type Service struct {
	db       *sql.DB
	notifier *notify.Notifier
	log      *zap.Logger
	loc      *time.Location
}

func NewService(database *sql.DB, notifier *notify.Notifier, log *zap.Logger, loc *time.Location) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.NewNotifier(log, nil)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{db: database, notifier: notifier, log: log, loc: loc}
}

// Purchase — заявка родителя на абонемент.
type Purchase struct {
	ParticipantID    int64
	GroupID          int64
	SubscriptionType string
	TotalLessons     int
	Amount           int
	Method           string
}

func (p Purchase) validate() error {
	switch {
	case p.ParticipantID <= 0 || p.GroupID <= 0:
		return fmt.Errorf("%w: participant and group are required", ErrInvalidPurchase)
	case p.TotalLessons <= 0:
		return fmt.Errorf("%w: total_lessons must be positive", ErrInvalidPurchase)
	case p.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrInvalidPurchase)
	}
	return nil
}

type PurchaseResult struct {
	SubscriptionID int64 `json:"subscription_id"`
	PaymentID      int64 `json:"payment_id"`
}

// CreatePayment создаёт абонемент (действует SubscriptionDays дней с сегодняшнего дня)
// и платёж в статусе pending. Администраторы получают уведомление.
func (s *Service) CreatePayment(ctx context.Context, payer models.Account, p Purchase) (*PurchaseResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.SubscriptionType == "" {
		p.SubscriptionType = models.SubscriptionEight
	}

	var out PurchaseResult
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		linked, err := db.IsGuardianOf(ctx, tx, payer.ID, p.ParticipantID)
		if err != nil {
			return err
		}
		if !linked && payer.Role != models.Admin {
			return ErrNotLinked
		}
		participant, err := db.GetParticipant(ctx, tx, p.ParticipantID)
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: участник %d не найден", ErrInvalidPurchase, p.ParticipantID)
		}
		if err != nil {
			return err
		}
		group, err := db.GetGroup(ctx, tx, p.GroupID)
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: группа %d не найдена", ErrInvalidPurchase, p.GroupID)
		}
		if err != nil {
			return err
		}

		start := models.Today(s.loc)
		sub := models.Subscription{
			ParticipantID:    p.ParticipantID,
			GroupID:          p.GroupID,
			Type:             p.SubscriptionType,
			TotalLessons:     p.TotalLessons,
			RemainingLessons: p.TotalLessons,
			StartDate:        start,
			EndDate:          start.AddDate(0, 0, models.SubscriptionDays),
			IsActive:         true,
		}
		if err := sub.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPurchase, err)
		}
		if out.SubscriptionID, err = db.CreateSubscription(ctx, tx, sub); err != nil {
			return err
		}
		if out.PaymentID, err = db.CreatePendingPayment(ctx, tx, payer.ID, out.SubscriptionID, p.Amount, p.Method); err != nil {
			return err
		}

		text := notify.PaymentCreatedText(notify.Payment{
			ID:               out.PaymentID,
			Payer:            payer.DisplayName(),
			Participant:      participant.FullName,
			Group:            group.Name,
			SubscriptionType: p.SubscriptionType,
			Amount:           p.Amount,
		})
		return s.notifier.ToAdmins(ctx, tx, notify.KindPaymentCreated, text)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("payment created",
		zap.Int64("payment_id", out.PaymentID), zap.Int64("subscription_id", out.SubscriptionID),
		zap.Int64("participant_id", p.ParticipantID), zap.Int("amount", p.Amount))
	return &out, nil
}

// Approve — pending → approved: оплачено, дата оплаты, комментарий.
func (s *Service) Approve(ctx context.Context, paymentID int64, note string) (*models.Payment, error) {
	return s.transition(ctx, paymentID, models.PaymentApproved, note)
}

// Reject — pending → rejected: не оплачено, комментарий.
func (s *Service) Reject(ctx context.Context, paymentID int64, note string) (*models.Payment, error) {
	return s.transition(ctx, paymentID, models.PaymentRejected, note)
}

func (s *Service) transition(ctx context.Context, paymentID int64, to models.PaymentStatus, note string) (*models.Payment, error) {
	note = strings.TrimSpace(note)
	var notePtr *string
	if note != "" {
		notePtr = &note
	}

	var updated *models.Payment
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		p, err := db.TransitionPayment(ctx, tx, paymentID, to, notePtr)
		if err != nil {
			if errors.Is(err, db.ErrNotPending) {
				return fmt.Errorf("payment %d: %w", paymentID, ErrAlreadyProcessed)
			}
			return err
		}
		updated = p

		view, err := db.GetPaymentView(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		payer, err := db.GetAccountByID(ctx, tx, p.AccountID)
		if err != nil {
			return err
		}
		info := notify.Payment{
			ID:          p.ID,
			Participant: view.ParticipantName,
			Group:       view.GroupName,
			Amount:      p.Amount,
			Note:        note,
		}
		kind, text := notify.KindPaymentApproved, notify.PaymentApprovedText(info)
		if to == models.PaymentRejected {
			kind, text = notify.KindPaymentRejected, notify.PaymentRejectedText(info)
		}
		return s.notifier.ToChat(ctx, tx, payer.TelegramID, kind, text)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("payment processed", zap.Int64("payment_id", paymentID), zap.String("status", string(to)))
	return updated, nil
}
