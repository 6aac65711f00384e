package annuity

import (
	"context"
	"time"
)

// Repository defines the read side for annuities outside of a transaction.
type Repository interface {
	ListByContract(ctx context.Context, contractID int64) ([]*Annuity, error)
	// ListDueUnpaid returns unpaid annuities whose due date is exactly the given day.
	ListDueUnpaid(ctx context.Context, day time.Time) ([]*Annuity, error)
}
