package scheduler

import (
	"context"
	"fmt"
	"time"

	"lease_notifier/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DispatchScheduler triggers the expiry dispatch on a cron schedule. Overlapping runs are skipped.
type DispatchScheduler struct {
	cronEngine *cron.Cron
	runner     app.DispatchRunner
	logger     *logrus.Entry
	spec       string
	timeout    time.Duration
}

func NewDispatchScheduler(
	runner app.DispatchRunner,
	logger *logrus.Entry,
	spec string, // e.g. "0 8 * * *" (08:00 daily)
	loc *time.Location,
	timeout time.Duration,
) *DispatchScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &DispatchScheduler{
		cronEngine: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		runner:  runner,
		logger:  logger,
		spec:    spec,
		timeout: timeout,
	}
}

// Start registers the dispatch job and starts the cron engine.
func (s *DispatchScheduler) Start() error {
	if _, err := s.cronEngine.AddFunc(s.spec, s.runOnce); err != nil {
		return fmt.Errorf("could not add expiry dispatch cron job %q: %w", s.spec, err)
	}
	s.cronEngine.Start()
	s.logger.WithField("spec", s.spec).Info("Dispatch scheduler started")
	return nil
}

func (s *DispatchScheduler) runOnce() {
	s.logger.Info("Cron job triggered for expiry dispatch")
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	stats, err := s.runner.RunExpiryDispatch(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("run_id", stats.RunID).Error("Scheduled expiry dispatch failed")
	}
}

// Next returns the next activation time, zero before Start.
func (s *DispatchScheduler) Next() time.Time {
	entries := s.cronEngine.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *DispatchScheduler) Stop() {
	s.logger.Info("Stopping dispatch scheduler...")
	ctx := s.cronEngine.Stop() // waits for a running job
	<-ctx.Done()
	s.logger.Info("Dispatch scheduler gracefully stopped")
}
