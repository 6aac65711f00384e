package party

import (
	"context"
)

// Repository defines the operations for persisting and retrieving Party entities.
type Repository interface {
	Create(ctx context.Context, p *Party) error
	GetByID(ctx context.Context, id int64) (*Party, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*Party, error)
	List(ctx context.Context) ([]*Party, error)
}
