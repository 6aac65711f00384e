package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lease_notifier/internal/domain/party"
)

var ErrDuplicateTelegramID = errors.New("party with this Telegram ID already exists")

const partyColumns = `id, full_name, email, telegram_id, created_at, updated_at`

type PostgresPartyRepository struct {
	db *sql.DB
}

func NewPostgresPartyRepository(db *sql.DB) *PostgresPartyRepository {
	return &PostgresPartyRepository{db: db}
}

func scanParty(s scanner) (*party.Party, error) {
	p := &party.Party{}
	if err := s.Scan(&p.ID, &p.FullName, &p.Email, &p.TelegramID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresPartyRepository) Create(ctx context.Context, p *party.Party) error {
	query := `INSERT INTO parties (full_name, email, telegram_id)
               VALUES ($1, $2, $3)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, p.FullName, p.Email, p.TelegramID).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTelegramID
		}
		return fmt.Errorf("error creating party: %w", err)
	}
	return nil
}

func (r *PostgresPartyRepository) GetByID(ctx context.Context, id int64) (*party.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties WHERE id = $1`
	p, err := scanParty(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, party.ErrNotFound
		}
		return nil, fmt.Errorf("error getting party by ID: %w", err)
	}
	return p, nil
}

func (r *PostgresPartyRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*party.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties WHERE telegram_id = $1`
	p, err := scanParty(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, party.ErrNotFound
		}
		return nil, fmt.Errorf("error getting party by Telegram ID: %w", err)
	}
	return p, nil
}

func (r *PostgresPartyRepository) List(ctx context.Context) ([]*party.Party, error) {
	query := `SELECT ` + partyColumns + ` FROM parties ORDER BY full_name, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing parties: %w", err)
	}
	defer rows.Close()

	parties := make([]*party.Party, 0)
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning party: %w", err)
		}
		parties = append(parties, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parties: %w", err)
	}
	return parties, nil
}
