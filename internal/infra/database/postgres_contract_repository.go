package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lease_notifier/internal/domain/annuity"
	"lease_notifier/internal/domain/contract"
)

const contractColumns = `id, owner_id, tenant_id, start_date, end_date, flat_rate_regime,
       last_annuity_paid_year, monthly_rent, created_at, updated_at`

func scanContract(s scanner) (*contract.Contract, error) {
	c := &contract.Contract{}
	err := s.Scan(&c.ID, &c.OwnerID, &c.TenantID, &c.StartDate, &c.EndDate, &c.FlatRateRegime,
		&c.LastAnnuityPaidYear, &c.MonthlyRent, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.StartDate = annuity.CivilDate(c.StartDate)
	c.EndDate = annuity.CivilDate(c.EndDate)
	return c, nil
}

func getContract(ctx context.Context, q querier, id int64, forUpdate bool) (*contract.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	c, err := scanContract(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contract.ErrNotFound
		}
		return nil, fmt.Errorf("error getting contract by ID: %w", err)
	}
	return c, nil
}

type PostgresContractRepository struct {
	db *sql.DB
}

func NewPostgresContractRepository(db *sql.DB) *PostgresContractRepository {
	return &PostgresContractRepository{db: db}
}

func (r *PostgresContractRepository) GetByID(ctx context.Context, id int64) (*contract.Contract, error) {
	return getContract(ctx, r.db, id, false)
}

func (r *PostgresContractRepository) ListEndingOn(ctx context.Context, day time.Time) ([]*contract.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE end_date = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, annuity.CivilDate(day))
	if err != nil {
		return nil, fmt.Errorf("error listing contracts ending on date: %w", err)
	}
	defer rows.Close()

	contracts := make([]*contract.Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contracts: %w", err)
	}
	return contracts, nil
}
