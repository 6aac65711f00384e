package contract

import (
	"context"
	"time"
)

// Repository defines the read side for contracts. Writes go through store.Tx so that
// contract changes and their annuity timeline are committed together.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Contract, error)
	// ListEndingOn returns contracts whose end date is exactly the given day.
	ListEndingOn(ctx context.Context, day time.Time) ([]*Contract, error)
}
