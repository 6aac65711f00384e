// internal/domain/notification/notification.go
package notification

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyRecorded is returned when a notification for the same obligation already exists.
// Under concurrent dispatch runs this is the expected outcome for the second writer.
var ErrAlreadyRecorded = errors.New("notification already recorded for this obligation")

// Key identifies one obligation. Year is null only for contract expiry.
type Key struct {
	ContractID int64
	Kind       Kind
	Year       sql.NullInt32
}

func (k Key) String() string {
	if !k.Year.Valid {
		return fmt.Sprintf("%d/%s", k.ContractID, k.Kind)
	}
	return fmt.Sprintf("%d/%s/%d", k.ContractID, k.Kind, k.Year.Int32)
}

// Notification is the ledger row written after a dispatch attempt in which at least one
// channel succeeded. Its existence alone means the obligation must not be notified again.
// Corresponds to the 'notifications' table.
type Notification struct {
	ID             int64
	ContractID     int64 // Foreign Key to contracts.id
	Kind           Kind
	Year           sql.NullInt32
	SentToSubject  bool // Owner/tenant channel outcome
	SentToInternal bool // Operations channel outcome
	SentAt         time.Time
}

func (n *Notification) Key() Key {
	return Key{ContractID: n.ContractID, Kind: n.Kind, Year: n.Year}
}
