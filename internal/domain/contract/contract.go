package contract

import (
	"database/sql"
	"fmt"
	"time"

	"lease_notifier/internal/domain"

	"github.com/shopspring/decimal"
)

var ErrNotFound = fmt.Errorf("contract %w", domain.ErrNotFound)
var ErrInvalidDates = fmt.Errorf("%w: end date must be after start date", domain.ErrInvalidState)
var ErrWatermarkRegression = fmt.Errorf("%w: last annuity paid year cannot decrease", domain.ErrInvalidState)

// Contract is a multi-year rental agreement between an owner and a tenant.
type Contract struct {
	ID                  int64
	OwnerID             int64 // Foreign Key to parties.id
	TenantID            int64 // Foreign Key to parties.id
	StartDate           time.Time
	EndDate             time.Time
	FlatRateRegime      bool          // No intermediate annuities under the flat-rate election
	LastAnnuityPaidYear sql.NullInt32 // Watermark: every annuity year <= this is settled
	MonthlyRent         decimal.Decimal
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Validate requires the end date to fall after the start date.
func (c *Contract) Validate() error {
	if !c.EndDate.After(c.StartDate) {
		return ErrInvalidDates
	}
	return nil
}

// Watermark returns the last paid annuity year, treating an unset watermark as 0.
func (c *Contract) Watermark() int {
	if !c.LastAnnuityPaidYear.Valid {
		return 0
	}
	return int(c.LastAnnuityPaidYear.Int32)
}

// ScheduleChanged reports whether other differs from c in a field the annuity timeline depends on.
func (c *Contract) ScheduleChanged(other *Contract) bool {
	return !c.StartDate.Equal(other.StartDate) ||
		!c.EndDate.Equal(other.EndDate) ||
		c.FlatRateRegime != other.FlatRateRegime
}

// Year wraps a year value as a nullable column value.
func Year(y int) sql.NullInt32 {
	return sql.NullInt32{Int32: int32(y), Valid: true}
}
