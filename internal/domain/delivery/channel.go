// Package delivery defines the reminder channels the dispatcher delivers through.
//
// Channels are best effort: they report success as a boolean and never return errors,
// so the dispatcher keeps going regardless of a single channel's health. A timeout is a
// plain false.
package delivery

import (
	"context"
	"database/sql"
	"time"

	"lease_notifier/internal/domain/contract"
	"lease_notifier/internal/domain/notification"
)

// Reminder is the snapshot handed to a channel for one obligation.
type Reminder struct {
	Contract    contract.Contract
	Kind        notification.Kind
	Year        sql.NullInt32 // Annuity year, null for contract expiry
	DueDate     time.Time     // Contract end date or annuity due date
	HorizonDays int
}

// InternalChannel notifies the agency's own staff.
type InternalChannel interface {
	SendInternalReminder(ctx context.Context, r Reminder) bool
}

// SubjectChannel notifies the owner and tenant of the contract.
type SubjectChannel interface {
	SendSubjectReminder(ctx context.Context, r Reminder) bool
}

// InternalFunc adapts a plain function to InternalChannel.
type InternalFunc func(ctx context.Context, r Reminder) bool

func (f InternalFunc) SendInternalReminder(ctx context.Context, r Reminder) bool { return f(ctx, r) }

// SubjectFunc adapts a plain function to SubjectChannel.
type SubjectFunc func(ctx context.Context, r Reminder) bool

func (f SubjectFunc) SendSubjectReminder(ctx context.Context, r Reminder) bool { return f(ctx, r) }
