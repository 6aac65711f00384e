package app

import (
	"context"
	"fmt"
	"time"

	"lease_notifier/internal/domain/annuity"
	"lease_notifier/internal/domain/contract"
	"lease_notifier/internal/domain/store"

	"github.com/sirupsen/logrus"
)

// AnnuityService owns the annuity timeline of contracts: generation, recalculation after a
// contract change, and payment tracking. Every write runs in a single store transaction.
type AnnuityService struct {
	store     store.Store
	contracts contract.Repository
	annuities annuity.Repository
	logger    *logrus.Entry
	now       func() time.Time
}

func NewAnnuityService(st store.Store, cr contract.Repository, ar annuity.Repository, logger *logrus.Entry) *AnnuityService {
	return &AnnuityService{
		store:     st,
		contracts: cr,
		annuities: ar,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GenerateAnnuities builds the annuity set of a contract. On a contract that already has
// annuities it reconciles instead, so calling it twice is harmless.
func (s *AnnuityService) GenerateAnnuities(ctx context.Context, contractID int64) ([]*annuity.Annuity, error) {
	rows, err := s.inTransaction(ctx, contractID)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"contract_id": contractID, "annuities": len(rows)}).Info("Annuities generated")
	return rows, nil
}

// RecalculateAnnuities reconciles persisted annuities with the contract's current dates and regime.
// Years still in range keep their paid status; years out of range are deleted; new years are
// inserted with the watermark-derived status. The result is ordered by year.
func (s *AnnuityService) RecalculateAnnuities(ctx context.Context, contractID int64) ([]*annuity.Annuity, error) {
	rows, err := s.inTransaction(ctx, contractID)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"contract_id": contractID, "annuities": len(rows)}).Info("Annuities recalculated")
	return rows, nil
}

func (s *AnnuityService) inTransaction(ctx context.Context, contractID int64) ([]*annuity.Annuity, error) {
	var rows []*annuity.Annuity
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		var err error
		rows, err = s.RecalculateInTx(ctx, tx, contractID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RecalculateInTx is RecalculateAnnuities for a caller that already holds a transaction.
func (s *AnnuityService) RecalculateInTx(ctx context.Context, tx store.Tx, contractID int64) ([]*annuity.Annuity, error) {
	c, err := tx.GetContract(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract %d: %w", contractID, err)
	}
	return s.reconcile(ctx, tx, c)
}

func (s *AnnuityService) reconcile(ctx context.Context, tx store.Tx, c *contract.Contract) ([]*annuity.Annuity, error) {
	target := annuity.Generate(c, s.now())

	persisted, err := tx.ListAnnuities(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list annuities of contract %d: %w", c.ID, err)
	}

	plan := annuity.Reconcile(persisted, target)
	if len(plan.Delete) > 0 {
		if err := tx.DeleteAnnuities(ctx, plan.DeleteIDs()); err != nil {
			return nil, fmt.Errorf("failed to delete stale annuities of contract %d: %w", c.ID, err)
		}
	}

	for _, row := range plan.Reschedule {
		if err := tx.UpdateAnnuityDueDate(ctx, row.ID, row.DueDate); err != nil {
			return nil, fmt.Errorf("failed to reschedule annuity %d of contract %d: %w", row.Year, c.ID, err)
		}
	}

	inserted := make([]*annuity.Annuity, 0, len(plan.Insert))
	for _, d := range plan.Insert {
		inserted = append(inserted, d.NewAnnuity(c.ID))
	}
	if len(inserted) > 0 {
		if err := tx.InsertAnnuities(ctx, inserted); err != nil {
			return nil, fmt.Errorf("failed to insert annuities of contract %d: %w", c.ID, err)
		}
	}

	result := make([]*annuity.Annuity, 0, len(plan.Keep)+len(inserted))
	result = append(result, plan.Keep...)
	result = append(result, inserted...)
	annuity.SortByYear(result)

	s.logger.WithFields(logrus.Fields{
		"contract_id": c.ID,
		"kept":        len(plan.Keep),
		"rescheduled": len(plan.Reschedule),
		"deleted":     len(plan.Delete),
		"inserted":    len(inserted),
	}).Debug("Annuity timeline reconciled")
	return result, nil
}

// MarkAnnuityPaid settles the annuity of the given year and advances the contract watermark
// when year is above it. Paying an already-paid annuity fails with annuity.ErrAlreadyPaid.
func (s *AnnuityService) MarkAnnuityPaid(ctx context.Context, contractID int64, year int) (*annuity.Annuity, error) {
	var paid *annuity.Annuity
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		c, err := tx.GetContract(ctx, contractID)
		if err != nil {
			return fmt.Errorf("failed to load contract %d: %w", contractID, err)
		}
		a, err := tx.GetAnnuity(ctx, contractID, year)
		if err != nil {
			return fmt.Errorf("failed to load annuity %d of contract %d: %w", year, contractID, err)
		}

		now := s.now()
		if err := a.MarkPaid(now); err != nil {
			return err
		}
		if err := tx.MarkAnnuityPaid(ctx, a.ID, now); err != nil {
			return fmt.Errorf("failed to mark annuity %d paid: %w", a.ID, err)
		}
		// The watermark only moves forward; paying an older year leaves it alone.
		if year > c.Watermark() {
			if err := tx.UpdateContractWatermark(ctx, c.ID, year); err != nil {
				return fmt.Errorf("failed to advance watermark of contract %d: %w", c.ID, err)
			}
		}
		paid = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"contract_id": contractID, "year": year}).Info("Annuity marked as paid")
	return paid, nil
}

// ListAnnuities returns the annuities of an existing contract ordered by year.
func (s *AnnuityService) ListAnnuities(ctx context.Context, contractID int64) ([]*annuity.Annuity, error) {
	if _, err := s.contracts.GetByID(ctx, contractID); err != nil {
		return nil, fmt.Errorf("failed to load contract %d: %w", contractID, err)
	}
	rows, err := s.annuities.ListByContract(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to list annuities of contract %d: %w", contractID, err)
	}
	return rows, nil
}
