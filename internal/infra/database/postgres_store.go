package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lease_notifier/internal/domain/annuity"
	"lease_notifier/internal/domain/contract"
	"lease_notifier/internal/domain/store"

	"github.com/lib/pq"
)

// PostgresStore runs units of work in database transactions.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) WithTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback() // no-op after commit

	if err := fn(&pgTx{q: txn}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	q *sql.Tx
}

// GetContract locks the contract row so concurrent recalculations of one contract serialize.
func (t *pgTx) GetContract(ctx context.Context, id int64) (*contract.Contract, error) {
	return getContract(ctx, t.q, id, true)
}

func (t *pgTx) CreateContract(ctx context.Context, c *contract.Contract) error {
	query := `INSERT INTO contracts (owner_id, tenant_id, start_date, end_date, flat_rate_regime,
                                    last_annuity_paid_year, monthly_rent)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, created_at, updated_at`
	err := t.q.QueryRowContext(ctx, query, c.OwnerID, c.TenantID, c.StartDate, c.EndDate, c.FlatRateRegime,
		c.LastAnnuityPaidYear, c.MonthlyRent).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating contract: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateContract(ctx context.Context, c *contract.Contract) error {
	query := `UPDATE contracts
               SET owner_id = $1, tenant_id = $2, start_date = $3, end_date = $4, flat_rate_regime = $5,
                   last_annuity_paid_year = $6, monthly_rent = $7, updated_at = NOW()
               WHERE id = $8
               RETURNING updated_at`
	err := t.q.QueryRowContext(ctx, query, c.OwnerID, c.TenantID, c.StartDate, c.EndDate, c.FlatRateRegime,
		c.LastAnnuityPaidYear, c.MonthlyRent, c.ID).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contract.ErrNotFound
		}
		return fmt.Errorf("error updating contract: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteContract(ctx context.Context, id int64) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting contract: %w", err)
	}
	return requireAffected(res, contract.ErrNotFound)
}

// UpdateContractWatermark never lowers the stored watermark.
func (t *pgTx) UpdateContractWatermark(ctx context.Context, contractID int64, year int) error {
	query := `UPDATE contracts
               SET last_annuity_paid_year = GREATEST(COALESCE(last_annuity_paid_year, 0), $1), updated_at = NOW()
               WHERE id = $2`
	res, err := t.q.ExecContext(ctx, query, year, contractID)
	if err != nil {
		return fmt.Errorf("error updating contract watermark: %w", err)
	}
	return requireAffected(res, contract.ErrNotFound)
}

func (t *pgTx) ListAnnuities(ctx context.Context, contractID int64) ([]*annuity.Annuity, error) {
	query := `SELECT ` + annuityColumns + ` FROM annuities WHERE contract_id = $1 ORDER BY year`
	return queryAnnuities(ctx, t.q, query, contractID)
}

func (t *pgTx) GetAnnuity(ctx context.Context, contractID int64, year int) (*annuity.Annuity, error) {
	query := `SELECT ` + annuityColumns + ` FROM annuities WHERE contract_id = $1 AND year = $2 FOR UPDATE`
	a, err := scanAnnuity(t.q.QueryRowContext(ctx, query, contractID, year))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, annuity.ErrNotFound
		}
		return nil, fmt.Errorf("error getting annuity: %w", err)
	}
	return a, nil
}

func (t *pgTx) InsertAnnuities(ctx context.Context, rows []*annuity.Annuity) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := t.q.PrepareContext(ctx, `INSERT INTO annuities (contract_id, year, due_date, is_paid, paid_at)
                                          VALUES ($1, $2, $3, $4, $5)
                                          RETURNING id, created_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare annuity insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range rows {
		err := stmt.QueryRowContext(ctx, a.ContractID, a.Year, a.DueDate, a.IsPaid, a.PaidAt).Scan(&a.ID, &a.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("annuity %d of contract %d already exists: %w", a.Year, a.ContractID, err)
			}
			return fmt.Errorf("error inserting annuity %d of contract %d: %w", a.Year, a.ContractID, err)
		}
	}
	return nil
}

func (t *pgTx) DeleteAnnuities(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := t.q.ExecContext(ctx, `DELETE FROM annuities WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("error deleting annuities: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateAnnuityDueDate(ctx context.Context, id int64, dueDate time.Time) error {
	res, err := t.q.ExecContext(ctx, `UPDATE annuities SET due_date = $1 WHERE id = $2`, dueDate, id)
	if err != nil {
		return fmt.Errorf("error rescheduling annuity: %w", err)
	}
	return requireAffected(res, annuity.ErrNotFound)
}

func (t *pgTx) MarkAnnuityPaid(ctx context.Context, id int64, paidAt time.Time) error {
	res, err := t.q.ExecContext(ctx, `UPDATE annuities SET is_paid = TRUE, paid_at = $1 WHERE id = $2`, paidAt, id)
	if err != nil {
		return fmt.Errorf("error marking annuity paid: %w", err)
	}
	return requireAffected(res, annuity.ErrNotFound)
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
