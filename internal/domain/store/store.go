// Package store defines the unit of work that keeps a contract and its annuity timeline consistent.
//
// Every generation, recalculation and payment runs inside Store.WithTransaction and receives the
// transaction handle explicitly, so a caller that already holds a Tx (contract creation, for
// example) can pass it down instead of opening a second transaction.
package store

import (
	"context"
	"time"

	"lease_notifier/internal/domain/annuity"
	"lease_notifier/internal/domain/contract"
)

// Tx is the set of reads and writes available inside one transaction.
type Tx interface {
	// GetContract loads a contract and, where the backend supports it, locks its row until commit.
	GetContract(ctx context.Context, id int64) (*contract.Contract, error)
	CreateContract(ctx context.Context, c *contract.Contract) error
	UpdateContract(ctx context.Context, c *contract.Contract) error
	DeleteContract(ctx context.Context, id int64) error
	UpdateContractWatermark(ctx context.Context, contractID int64, year int) error

	ListAnnuities(ctx context.Context, contractID int64) ([]*annuity.Annuity, error)
	GetAnnuity(ctx context.Context, contractID int64, year int) (*annuity.Annuity, error)
	// InsertAnnuities persists rows and fills in their ID and CreatedAt.
	InsertAnnuities(ctx context.Context, rows []*annuity.Annuity) error
	DeleteAnnuities(ctx context.Context, ids []int64) error
	UpdateAnnuityDueDate(ctx context.Context, id int64, dueDate time.Time) error
	MarkAnnuityPaid(ctx context.Context, id int64, paidAt time.Time) error
}

// Store opens transactions. If fn returns an error the transaction is rolled back,
// otherwise it is committed.
type Store interface {
	WithTransaction(ctx context.Context, fn func(tx Tx) error) error
}
