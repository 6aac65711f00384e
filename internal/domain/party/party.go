package party

import (
	"database/sql"
	"fmt"
	"time"

	"lease_notifier/internal/domain"
)

var ErrNotFound = fmt.Errorf("party %w", domain.ErrNotFound)

// Party is an owner or tenant referenced by contracts.
type Party struct {
	ID         int64
	FullName   string
	Email      sql.NullString // Subject reminders are skipped for parties without one
	TelegramID sql.NullInt64  // Set once the party has talked to the bot
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
