// internal/infra/database/postgres_notification_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"lease_notifier/internal/domain/contract"
	"lease_notifier/internal/domain/notification"
)

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

// Exists treats a NULL year as a value of its own, matching the unique index.
func (r *PostgresNotificationRepository) Exists(ctx context.Context, key notification.Key) (bool, error) {
	query := `SELECT EXISTS (
                 SELECT 1 FROM notifications
                 WHERE contract_id = $1 AND kind = $2 AND year IS NOT DISTINCT FROM $3
               )`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, key.ContractID, key.Kind, key.Year).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking notification existence: %w", err)
	}
	return exists, nil
}

// Create inserts the ledger row. A row for the same obligation yields notification.ErrAlreadyRecorded.
func (r *PostgresNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	query := `INSERT INTO notifications (contract_id, kind, year, sent_to_subject, sent_to_internal, sent_at)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING id`
	err := r.db.QueryRowContext(ctx, query, n.ContractID, n.Kind, n.Year, n.SentToSubject, n.SentToInternal, n.SentAt).Scan(&n.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return notification.ErrAlreadyRecorded
		}
		if isForeignKeyViolation(err) {
			return contract.ErrNotFound
		}
		return fmt.Errorf("error creating notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) ListByContract(ctx context.Context, contractID int64) ([]*notification.Notification, error) {
	query := `SELECT id, contract_id, kind, year, sent_to_subject, sent_to_internal, sent_at
               FROM notifications WHERE contract_id = $1 ORDER BY sent_at, id`

	rows, err := r.db.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*notification.Notification, 0)
	for rows.Next() {
		n := &notification.Notification{}
		if err := rows.Scan(&n.ID, &n.ContractID, &n.Kind, &n.Year, &n.SentToSubject, &n.SentToInternal, &n.SentAt); err != nil {
			return nil, fmt.Errorf("error scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return notifications, nil
}
