package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lease_notifier/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

var errNothingDelivered = errors.New("cannot record a notification that reached no channel")

// NotificationLedger guarantees at most one successful notification cycle per obligation.
// The unique key on the notifications table is the only deduplication mechanism.
type NotificationLedger struct {
	repo   notification.Repository
	logger *logrus.Entry
	now    func() time.Time
}

func NewNotificationLedger(repo notification.Repository, logger *logrus.Entry) *NotificationLedger {
	return &NotificationLedger{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *NotificationLedger) WasSent(ctx context.Context, key notification.Key) (bool, error) {
	sent, err := l.repo.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check notification %s: %w", key, err)
	}
	return sent, nil
}

// Record writes the ledger row for key with the per-channel outcomes. Losing the insert race
// to a concurrent run is not an error.
func (l *NotificationLedger) Record(ctx context.Context, key notification.Key, sentToSubject, sentToInternal bool) error {
	if !sentToSubject && !sentToInternal {
		return errNothingDelivered
	}
	n := &notification.Notification{
		ContractID:     key.ContractID,
		Kind:           key.Kind,
		Year:           key.Year,
		SentToSubject:  sentToSubject,
		SentToInternal: sentToInternal,
		SentAt:         l.now(),
	}
	err := l.repo.Create(ctx, n)
	if errors.Is(err, notification.ErrAlreadyRecorded) {
		l.logger.WithField("obligation", key.String()).Info("Notification already recorded by a concurrent run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to record notification %s: %w", key, err)
	}
	return nil
}
