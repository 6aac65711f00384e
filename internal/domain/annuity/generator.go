package annuity

import (
	"database/sql"
	"time"

	"lease_notifier/internal/domain/contract"
)

// Generate builds the full annuity timeline of a contract from its current state.
// Flat-rate contracts have no annuities. Years up to the paid watermark are drafted as paid at now.
func Generate(c *contract.Contract, now time.Time) []Draft {
	if c.FlatRateRegime {
		return []Draft{}
	}

	years := IntermediateYears(c.StartDate, c.EndDate)
	drafts := make([]Draft, 0, len(years))
	for _, year := range years {
		draft := Draft{
			Year:    year,
			DueDate: DueDateForYear(c.StartDate, year),
		}
		if c.LastAnnuityPaidYear.Valid && year <= int(c.LastAnnuityPaidYear.Int32) {
			draft.IsPaid = true
			draft.PaidAt = sql.NullTime{Time: now, Valid: true}
		}
		drafts = append(drafts, draft)
	}
	return drafts
}
