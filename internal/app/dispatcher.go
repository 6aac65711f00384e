package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"lease_notifier/internal/domain/contract"
	"lease_notifier/internal/domain/delivery"
	"lease_notifier/internal/domain/notification"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultDeliveryTimeout bounds a single channel call.
const DefaultDeliveryTimeout = 15 * time.Second

// recordTimeout bounds the ledger write that follows a delivery. It runs detached from the
// run's cancellation: a reminder that went out must be recorded.
const recordTimeout = 5 * time.Second

// Obligation outcomes.
const (
	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Stats aggregates the outcome of one dispatch run. Counters only grow.
type Stats struct {
	RunID      string    `json:"run_id"`
	TargetDate time.Time `json:"target_date"`
	Processed  int       `json:"processed"`
	Sent       int       `json:"sent"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
}

// DispatchRecorder observes dispatch runs, typically for metrics.
type DispatchRecorder interface {
	ObligationDone(kind notification.Kind, outcome string)
	RunDone(stats Stats, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObligationDone(notification.Kind, string) {}
func (nopRecorder) RunDone(Stats, error)                     {}

// DispatchRunner is what triggers (cron, HTTP, bot, CLI) depend on.
type DispatchRunner interface {
	RunExpiryDispatch(ctx context.Context) (Stats, error)
}

// Dispatcher runs the expiry notification cycle: scan, dedup, deliver on both channels, record.
type Dispatcher struct {
	scanner         *ExpiryScanner
	ledger          *NotificationLedger
	contracts       contract.Repository
	internal        delivery.InternalChannel
	subject         delivery.SubjectChannel
	recorder        DispatchRecorder
	deliveryTimeout time.Duration
	logger          *logrus.Entry
}

type DispatcherOption func(*Dispatcher)

func WithRecorder(r DispatchRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

func WithDeliveryTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.deliveryTimeout = timeout
		}
	}
}

func NewDispatcher(
	scanner *ExpiryScanner,
	ledger *NotificationLedger,
	contracts contract.Repository,
	internal delivery.InternalChannel,
	subject delivery.SubjectChannel,
	logger *logrus.Entry,
	opts ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		scanner:         scanner,
		ledger:          ledger,
		contracts:       contracts,
		internal:        internal,
		subject:         subject,
		recorder:        nopRecorder{},
		deliveryTimeout: DefaultDeliveryTimeout,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RunExpiryDispatch processes every obligation due on the scanner's target date. Per-obligation
// delivery failures are counted, never returned. An error means the store failed or ctx was
// cancelled; the stats gathered up to that point are returned alongside it.
func (d *Dispatcher) RunExpiryDispatch(ctx context.Context) (stats Stats, err error) {
	stats = Stats{
		RunID:      uuid.NewString(),
		TargetDate: d.scanner.TargetDate(),
	}
	log := d.logger.WithFields(logrus.Fields{
		"run_id":      stats.RunID,
		"target_date": stats.TargetDate.Format("2006-01-02"),
	})
	log.Info("Starting expiry dispatch")

	defer func() {
		d.recorder.RunDone(stats, err)
		fields := logrus.Fields{
			"processed": stats.Processed,
			"sent":      stats.Sent,
			"skipped":   stats.Skipped,
			"failed":    stats.Failed,
		}
		if err != nil {
			log.WithFields(fields).WithError(err).Error("Expiry dispatch aborted")
			return
		}
		log.WithFields(fields).Info("Expiry dispatch finished")
	}()

	contracts, err := d.scanner.FindDueContracts(ctx, stats.TargetDate)
	if err != nil {
		return stats, err
	}
	for _, c := range contracts {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		r := delivery.Reminder{
			Contract:    *c,
			Kind:        notification.KindContractExpiry,
			DueDate:     c.EndDate,
			HorizonDays: d.scanner.HorizonDays(),
		}
		if err := d.process(ctx, log, &stats, r); err != nil {
			return stats, err
		}
	}

	annuities, err := d.scanner.FindDueAnnuities(ctx, stats.TargetDate)
	if err != nil {
		return stats, err
	}
	for _, a := range annuities {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		c, err := d.contracts.GetByID(ctx, a.ContractID)
		if errors.Is(err, contract.ErrNotFound) {
			// Deleted between the scan and now; its annuities are gone too.
			stats.Processed++
			stats.Skipped++
			d.recorder.ObligationDone(notification.KindAnnuityExpiry, OutcomeSkipped)
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("failed to load contract %d for annuity %d: %w", a.ContractID, a.Year, err)
		}
		r := delivery.Reminder{
			Contract:    *c,
			Kind:        notification.KindAnnuityExpiry,
			Year:        sql.NullInt32{Int32: int32(a.Year), Valid: true},
			DueDate:     a.DueDate,
			HorizonDays: d.scanner.HorizonDays(),
		}
		if err := d.process(ctx, log, &stats, r); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// process handles one obligation: ledger check, delivery, record. The order is fixed.
func (d *Dispatcher) process(ctx context.Context, log *logrus.Entry, stats *Stats, r delivery.Reminder) error {
	key := notification.Key{ContractID: r.Contract.ID, Kind: r.Kind, Year: r.Year}
	log = log.WithField("obligation", key.String())
	stats.Processed++

	sent, err := d.ledger.WasSent(ctx, key)
	if err != nil {
		return err
	}
	if sent {
		stats.Skipped++
		d.recorder.ObligationDone(r.Kind, OutcomeSkipped)
		log.Debug("Already notified, skipping")
		return nil
	}

	toSubject, toInternal := d.deliver(ctx, r)
	if !toSubject && !toInternal {
		stats.Failed++
		d.recorder.ObligationDone(r.Kind, OutcomeFailed)
		log.Warn("All channels failed, obligation left for the next run")
		return nil
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := d.ledger.Record(recordCtx, key, toSubject, toInternal); err != nil {
		return err
	}
	stats.Sent++
	d.recorder.ObligationDone(r.Kind, OutcomeSent)
	log.WithFields(logrus.Fields{
		"sent_to_subject":  toSubject,
		"sent_to_internal": toInternal,
	}).Info("Obligation notified")
	return nil
}

// deliver calls both channels concurrently, each under its own timeout.
func (d *Dispatcher) deliver(ctx context.Context, r delivery.Reminder) (toSubject, toInternal bool) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, d.deliveryTimeout)
		defer cancel()
		toSubject = d.subject.SendSubjectReminder(cctx, r)
	}()
	go func() {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, d.deliveryTimeout)
		defer cancel()
		toInternal = d.internal.SendInternalReminder(cctx, r)
	}()
	wg.Wait()
	return toSubject, toInternal
}
