package app

import (
	"context"
	"fmt"
	"time"

	"lease_notifier/internal/domain/annuity"
	"lease_notifier/internal/domain/contract"
	"lease_notifier/internal/domain/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ContractInput carries the mutable fields of a contract.
type ContractInput struct {
	OwnerID             int64
	TenantID            int64
	StartDate           time.Time
	EndDate             time.Time
	FlatRateRegime      bool
	LastAnnuityPaidYear *int // nil leaves the watermark as it is
	MonthlyRent         decimal.Decimal
}

// ContractService handles contract mutations. Each one commits the contract together with
// its recalculated annuity timeline.
type ContractService struct {
	store     store.Store
	contracts contract.Repository
	annuities *AnnuityService
	logger    *logrus.Entry
}

func NewContractService(st store.Store, cr contract.Repository, annuities *AnnuityService, logger *logrus.Entry) *ContractService {
	return &ContractService{
		store:     st,
		contracts: cr,
		annuities: annuities,
		logger:    logger,
	}
}

// CreateContract persists a new contract and generates its annuities in the same transaction.
func (s *ContractService) CreateContract(ctx context.Context, in ContractInput) (*contract.Contract, []*annuity.Annuity, error) {
	c := &contract.Contract{
		OwnerID:        in.OwnerID,
		TenantID:       in.TenantID,
		StartDate:      annuity.CivilDate(in.StartDate),
		EndDate:        annuity.CivilDate(in.EndDate),
		FlatRateRegime: in.FlatRateRegime,
		MonthlyRent:    in.MonthlyRent,
	}
	if in.LastAnnuityPaidYear != nil {
		c.LastAnnuityPaidYear = contract.Year(*in.LastAnnuityPaidYear)
	}
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	var rows []*annuity.Annuity
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		if err := tx.CreateContract(ctx, c); err != nil {
			return fmt.Errorf("failed to create contract: %w", err)
		}
		var err error
		rows, err = s.annuities.reconcile(ctx, tx, c)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"contract_id": c.ID,
		"annuities":   len(rows),
		"flat_rate":   c.FlatRateRegime,
	}).Info("Contract created")
	return c, rows, nil
}

// UpdateContract applies in to an existing contract. A watermark below the current one is
// rejected. When dates or regime change, annuities are recalculated in the same transaction.
func (s *ContractService) UpdateContract(ctx context.Context, id int64, in ContractInput) (*contract.Contract, []*annuity.Annuity, error) {
	var (
		updated *contract.Contract
		rows    []*annuity.Annuity
	)
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		current, err := tx.GetContract(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load contract %d: %w", id, err)
		}

		next := *current
		next.OwnerID = in.OwnerID
		next.TenantID = in.TenantID
		next.StartDate = annuity.CivilDate(in.StartDate)
		next.EndDate = annuity.CivilDate(in.EndDate)
		next.FlatRateRegime = in.FlatRateRegime
		next.MonthlyRent = in.MonthlyRent
		if in.LastAnnuityPaidYear != nil {
			if current.LastAnnuityPaidYear.Valid && *in.LastAnnuityPaidYear < current.Watermark() {
				return contract.ErrWatermarkRegression
			}
			next.LastAnnuityPaidYear = contract.Year(*in.LastAnnuityPaidYear)
		}
		if err := next.Validate(); err != nil {
			return err
		}

		if err := tx.UpdateContract(ctx, &next); err != nil {
			return fmt.Errorf("failed to update contract %d: %w", id, err)
		}
		updated = &next

		if current.ScheduleChanged(&next) {
			rows, err = s.annuities.reconcile(ctx, tx, &next)
			return err
		}
		rows, err = tx.ListAnnuities(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list annuities of contract %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.WithField("contract_id", id).Info("Contract updated")
	return updated, rows, nil
}

func (s *ContractService) GetContract(ctx context.Context, id int64) (*contract.Contract, error) {
	c, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contract %d: %w", id, err)
	}
	return c, nil
}

// DeleteContract removes a contract; its annuities and notifications go with it.
func (s *ContractService) DeleteContract(ctx context.Context, id int64) error {
	err := s.store.WithTransaction(ctx, func(tx store.Tx) error {
		return tx.DeleteContract(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete contract %d: %w", id, err)
	}
	s.logger.WithField("contract_id", id).Info("Contract deleted")
	return nil
}
