package attendance

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Spok95/sportclub-bot/internal/db"
	"github.com/Spok95/sportclub-bot/internal/metrics"
	"github.com/Spok95/sportclub-bot/internal/models"
	"github.com/Spok95/sportclub-bot/internal/notify"
	"go.uber.org/zap"
)

// Outcome — что произошло с одной отметкой.
type Outcome struct {
	ParticipantID  int64  `json:"participant_id"`
	Charged        bool   `json:"charged"`
	SubscriptionID int64  `json:"subscription_id,omitempty"`
	Remaining      *int   `json:"remaining_lessons,omitempty"`
	LowBalance     bool   `json:"low_balance"`
	Skipped        string `json:"skipped,omitempty"`

	reason string
}

type Result struct {
	SessionID int64     `json:"attendance_id"`
	Saved     int       `json:"saved"`
	Charged   int       `json:"charged"`
	Outcomes  []Outcome `json:"outcomes"`
}

const (
	skipNoSubscription = "no_active_subscription"
	skipAlreadyCharged = "already_charged"
	skipUnchanged      = "unchanged"
)

// RecordAttendance сохраняет отметки по занятию, закрывает его и списывает занятия.
//
// Всё делается в одной транзакции под блокировкой сессии: повторное сохранение
// той же отметки занятие второй раз не списывает, а уведомления ставятся в outbox
// вместе с изменением остатка.
func (s *Service) RecordAttendance(ctx context.Context, sessionID int64, marks []models.MarkInput) (*Result, error) {
	res := &Result{SessionID: sessionID}

	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		sess, err := db.LockSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		group, err := db.GetGroup(ctx, tx, sess.GroupID)
		if err != nil {
			return err
		}

		res.Outcomes = res.Outcomes[:0]
		res.Saved, res.Charged = 0, 0
		for _, m := range marks {
			m = m.Normalize()
			out, err := s.applyMark(ctx, tx, sess, group, m)
			if err != nil {
				return fmt.Errorf("participant %d: %w", m.ParticipantID, err)
			}
			res.Saved++
			if out.Charged {
				res.Charged++
			}
			res.Outcomes = append(res.Outcomes, out)
		}
		return db.MarkSessionCompleted(ctx, tx, sess.ID)
	})
	if err != nil {
		return nil, err
	}

	for _, o := range res.Outcomes {
		if o.Charged {
			metrics.LessonsDeducted.WithLabelValues(o.reason).Inc()
		}
	}
	s.log.Info("attendance saved",
		zap.Int64("session_id", sessionID), zap.Int("saved", res.Saved), zap.Int("charged", res.Charged))
	return res, nil
}

func (s *Service) applyMark(ctx context.Context, tx *sql.Tx, sess *models.AttendanceSession, group *models.Group, m models.MarkInput) (Outcome, error) {
	out := Outcome{ParticipantID: m.ParticipantID}
	log := s.log.With(zap.Int64("session_id", sess.ID), zap.Int64("participant_id", m.ParticipantID))

	p, err := db.GetParticipant(ctx, tx, m.ParticipantID)
	if err != nil {
		return out, err
	}
	prev, err := db.UpsertMark(ctx, tx, sess.ID, m)
	if err != nil {
		return out, err
	}
	if sameMark(prev, m) {
		out.Skipped = skipUnchanged
		return out, nil
	}

	lesson := notify.Lesson{Participant: p.FullName, Group: group.Name, Date: sess.LessonDate, StartTime: sess.StartTime}

	if !Charges(m) {
		// уважительная причина: не списываем, только сообщаем
		_, err := s.notifier.ToGuardian(ctx, tx, p.ID, notify.KindAbsenceExcused, notify.ExcusedAbsenceText(lesson))
		return out, err
	}
	if chargedBefore(prev) {
		// отметку поменяли, но занятие по ней уже списано
		out.Skipped = skipAlreadyCharged
		return out, nil
	}

	sub, err := db.FindChargeableSubscription(ctx, tx, p.ID, sess.GroupID, sess.LessonDate)
	if err != nil {
		return out, err
	}
	if sub == nil {
		log.Warn("no subscription to charge")
		out.Skipped = skipNoSubscription
		return out, nil
	}
	remaining, ok, err := db.DecrementLesson(ctx, tx, sub.ID)
	if err != nil {
		return out, err
	}
	if !ok {
		log.Warn("subscription has no lessons left", zap.Int64("subscription_id", sub.ID))
		out.Skipped = skipNoSubscription
		return out, nil
	}

	out.Charged = true
	out.SubscriptionID = sub.ID
	out.Remaining = &remaining
	out.reason = deductReason(m)

	kind, text := notify.KindPresence, notify.PresenceText(lesson, remaining)
	if !m.Present {
		kind, text = notify.KindAbsenceUnexcused, notify.UnexcusedAbsenceText(lesson, remaining)
	}
	if _, err := s.notifier.ToGuardian(ctx, tx, p.ID, kind, text); err != nil {
		return out, err
	}

	if remaining <= models.LowBalanceThreshold {
		out.LowBalance = true
		low := notify.LowBalanceText(p.FullName, group.Name, remaining)
		if _, err := s.notifier.ToGuardian(ctx, tx, p.ID, notify.KindLowBalance, low); err != nil {
			return out, err
		}
		if err := s.notifier.ToAdmins(ctx, tx, notify.KindLowBalance, low); err != nil {
			return out, err
		}
	}
	return out, nil
}
