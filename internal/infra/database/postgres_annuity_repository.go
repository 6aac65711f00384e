package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lease_notifier/internal/domain/annuity"
)

const annuityColumns = `id, contract_id, year, due_date, is_paid, paid_at, created_at`

func scanAnnuity(s scanner) (*annuity.Annuity, error) {
	a := &annuity.Annuity{}
	if err := s.Scan(&a.ID, &a.ContractID, &a.Year, &a.DueDate, &a.IsPaid, &a.PaidAt, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.DueDate = annuity.CivilDate(a.DueDate)
	return a, nil
}

func queryAnnuities(ctx context.Context, q querier, query string, args ...any) ([]*annuity.Annuity, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying annuities: %w", err)
	}
	defer rows.Close()

	annuities := make([]*annuity.Annuity, 0)
	for rows.Next() {
		a, err := scanAnnuity(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning annuity: %w", err)
		}
		annuities = append(annuities, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating annuities: %w", err)
	}
	return annuities, nil
}

type PostgresAnnuityRepository struct {
	db *sql.DB
}

func NewPostgresAnnuityRepository(db *sql.DB) *PostgresAnnuityRepository {
	return &PostgresAnnuityRepository{db: db}
}

func (r *PostgresAnnuityRepository) ListByContract(ctx context.Context, contractID int64) ([]*annuity.Annuity, error) {
	query := `SELECT ` + annuityColumns + ` FROM annuities WHERE contract_id = $1 ORDER BY year`
	return queryAnnuities(ctx, r.db, query, contractID)
}

func (r *PostgresAnnuityRepository) ListDueUnpaid(ctx context.Context, day time.Time) ([]*annuity.Annuity, error) {
	query := `SELECT ` + annuityColumns + ` FROM annuities
               WHERE due_date = $1 AND is_paid = FALSE
               ORDER BY contract_id, year`
	return queryAnnuities(ctx, r.db, query, annuity.CivilDate(day))
}
