package app

import (
	"context"
	"fmt"
	"time"

	"lease_notifier/internal/domain/annuity"
	"lease_notifier/internal/domain/contract"
)

// DefaultHorizonDays is how far ahead an obligation becomes due for notification.
const DefaultHorizonDays = 7

// ExpiryScanner finds obligations falling exactly on today + horizon. It only reads.
type ExpiryScanner struct {
	contracts   contract.Repository
	annuities   annuity.Repository
	horizonDays int
	location    *time.Location
	now         func() time.Time
}

func NewExpiryScanner(cr contract.Repository, ar annuity.Repository, horizonDays int, loc *time.Location) *ExpiryScanner {
	if loc == nil {
		loc = time.Local
	}
	return &ExpiryScanner{
		contracts:   cr,
		annuities:   ar,
		horizonDays: horizonDays,
		location:    loc,
		now:         time.Now,
	}
}

func (s *ExpiryScanner) HorizonDays() int {
	return s.horizonDays
}

// TargetDate is today's calendar date in the scanner's location plus the horizon.
func (s *ExpiryScanner) TargetDate() time.Time {
	today := annuity.CivilDate(s.now().In(s.location))
	return today.AddDate(0, 0, s.horizonDays)
}

// FindDueContracts returns contracts whose end date is exactly target.
func (s *ExpiryScanner) FindDueContracts(ctx context.Context, target time.Time) ([]*contract.Contract, error) {
	rows, err := s.contracts.ListEndingOn(ctx, annuity.CivilDate(target))
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts ending on %s: %w", target.Format("2006-01-02"), err)
	}
	return rows, nil
}

// FindDueAnnuities returns unpaid annuities due exactly on target.
func (s *ExpiryScanner) FindDueAnnuities(ctx context.Context, target time.Time) ([]*annuity.Annuity, error) {
	rows, err := s.annuities.ListDueUnpaid(ctx, annuity.CivilDate(target))
	if err != nil {
		return nil, fmt.Errorf("failed to list annuities due on %s: %w", target.Format("2006-01-02"), err)
	}
	return rows, nil
}
