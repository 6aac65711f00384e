package annuity

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"lease_notifier/internal/domain"
)

var ErrNotFound = fmt.Errorf("annuity %w", domain.ErrNotFound)
var ErrAlreadyPaid = fmt.Errorf("%w: annuity already paid", domain.ErrInvalidState)

// Annuity is one intermediate-year payment obligation of a contract.
// Unique per (ContractID, Year); IsPaid is true exactly when PaidAt is set.
type Annuity struct {
	ID         int64
	ContractID int64 // Foreign Key to contracts.id
	Year       int
	DueDate    time.Time // Same day and month as the contract start
	IsPaid     bool
	PaidAt     sql.NullTime
	CreatedAt  time.Time
}

// Draft is an annuity computed from contract state that has not been persisted yet.
type Draft struct {
	Year    int
	DueDate time.Time
	IsPaid  bool
	PaidAt  sql.NullTime
}

// NewAnnuity materializes the draft as a row of the given contract.
func (d Draft) NewAnnuity(contractID int64) *Annuity {
	return &Annuity{
		ContractID: contractID,
		Year:       d.Year,
		DueDate:    d.DueDate,
		IsPaid:     d.IsPaid,
		PaidAt:     d.PaidAt,
	}
}

// MarkPaid settles the annuity at the given instant.
func (a *Annuity) MarkPaid(at time.Time) error {
	if a.IsPaid {
		return ErrAlreadyPaid
	}
	a.IsPaid = true
	a.PaidAt = sql.NullTime{Time: at, Valid: true}
	return nil
}

// SortByYear orders annuities by year ascending, in place.
func SortByYear(rows []*Annuity) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Year < rows[j].Year })
}
