// internal/domain/notification/repository.go
package notification

import "context"

// Repository defines the ledger operations for sent notifications.
type Repository interface {
	// Exists checks the unique obligation key.
	Exists(ctx context.Context, key Key) (bool, error)
	// Create inserts a row, returning ErrAlreadyRecorded when the key is taken.
	Create(ctx context.Context, n *Notification) error
	ListByContract(ctx context.Context, contractID int64) ([]*Notification, error)
}
