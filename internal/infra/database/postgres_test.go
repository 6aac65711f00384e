package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"lease_notifier/internal/domain/annuity"
	"lease_notifier/internal/domain/contract"
	"lease_notifier/internal/domain/notification"
	"lease_notifier/internal/domain/party"
	"lease_notifier/internal/domain/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var (
	contractCols = []string{"id", "owner_id", "tenant_id", "start_date", "end_date", "flat_rate_regime",
		"last_annuity_paid_year", "monthly_rent", "created_at", "updated_at"}
	annuityCols = []string{"id", "contract_id", "year", "due_date", "is_paid", "paid_at", "created_at"}
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type PostgresSuite struct {
	suite.Suite
	db   *sql.DB
	mock sqlmock.Sqlmock
	ctx  context.Context
}

func TestPostgresSuite(t *testing.T) {
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)
	s.ctx = context.Background()
}

func (s *PostgresSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *PostgresSuite) TestContractGetByID() {
	now := time.Now()
	s.mock.ExpectQuery(`SELECT .* FROM contracts WHERE id = \$1$`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(contractCols).
			AddRow(int64(3), int64(1), int64(2), day(2025, 1, 15), day(2028, 1, 15), false, int64(2026), "850.00", now, now))

	c, err := NewPostgresContractRepository(s.db).GetByID(s.ctx, 3)
	s.Require().NoError(err)
	s.Equal(int64(3), c.ID)
	s.Equal(day(2028, 1, 15), c.EndDate)
	s.Equal(2026, c.Watermark())
	s.True(decimal.RequireFromString("850").Equal(c.MonthlyRent))
}

func (s *PostgresSuite) TestContractGetByIDNotFound() {
	s.mock.ExpectQuery(`SELECT .* FROM contracts WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(contractCols))

	_, err := NewPostgresContractRepository(s.db).GetByID(s.ctx, 9)
	s.ErrorIs(err, contract.ErrNotFound)
}

func (s *PostgresSuite) TestContractListEndingOn() {
	now := time.Now()
	s.mock.ExpectQuery(`SELECT .* FROM contracts WHERE end_date = \$1 ORDER BY id`).
		WithArgs(day(2026, 1, 15)).
		WillReturnRows(sqlmock.NewRows(contractCols).
			AddRow(int64(1), int64(1), int64(2), day(2023, 1, 15), day(2026, 1, 15), true, nil, "0", now, now).
			AddRow(int64(4), int64(1), int64(2), day(2024, 1, 15), day(2026, 1, 15), false, nil, "0", now, now))

	rows, err := NewPostgresContractRepository(s.db).ListEndingOn(s.ctx, time.Date(2026, 1, 15, 17, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Len(rows, 2)
	s.False(rows[0].LastAnnuityPaidYear.Valid)
}

func (s *PostgresSuite) TestAnnuityListDueUnpaid() {
	s.mock.ExpectQuery(`SELECT .* FROM annuities\s+WHERE due_date = \$1 AND is_paid = FALSE`).
		WithArgs(day(2026, 1, 15)).
		WillReturnRows(sqlmock.NewRows(annuityCols).
			AddRow(int64(10), int64(4), 2026, day(2026, 1, 15), false, nil, time.Now()))

	rows, err := NewPostgresAnnuityRepository(s.db).ListDueUnpaid(s.ctx, day(2026, 1, 15))
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(2026, rows[0].Year)
	s.False(rows[0].PaidAt.Valid)
}

func (s *PostgresSuite) TestNotificationExistsUsesNullSafeComparison() {
	s.mock.ExpectQuery(`year IS NOT DISTINCT FROM \$3`).
		WithArgs(int64(4), "contract_expiry", nil).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := NewPostgresNotificationRepository(s.db).Exists(s.ctx, notification.Key{
		ContractID: 4,
		Kind:       notification.KindContractExpiry,
	})
	s.Require().NoError(err)
	s.True(ok)
}

func (s *PostgresSuite) TestNotificationCreate() {
	n := &notification.Notification{
		ContractID:     4,
		Kind:           notification.KindAnnuityExpiry,
		Year:           sql.NullInt32{Int32: 2026, Valid: true},
		SentToSubject:  true,
		SentToInternal: false,
		SentAt:         time.Now(),
	}
	s.mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(int64(4), "annuity_expiry", int64(2026), true, false, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(77)))

	s.Require().NoError(NewPostgresNotificationRepository(s.db).Create(s.ctx, n))
	s.Equal(int64(77), n.ID)
}

func (s *PostgresSuite) TestNotificationCreateDuplicate() {
	s.mock.ExpectQuery(`INSERT INTO notifications`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := NewPostgresNotificationRepository(s.db).Create(s.ctx, &notification.Notification{
		ContractID: 4, Kind: notification.KindContractExpiry, SentToInternal: true, SentAt: time.Now(),
	})
	s.ErrorIs(err, notification.ErrAlreadyRecorded)
}

func (s *PostgresSuite) TestNotificationCreateUnknownContract() {
	s.mock.ExpectQuery(`INSERT INTO notifications`).
		WillReturnError(&pq.Error{Code: "23503"})

	err := NewPostgresNotificationRepository(s.db).Create(s.ctx, &notification.Notification{
		ContractID: 99, Kind: notification.KindContractExpiry, SentToInternal: true, SentAt: time.Now(),
	})
	s.ErrorIs(err, contract.ErrNotFound)
}

func (s *PostgresSuite) TestPartyGetByTelegramIDNotFound() {
	s.mock.ExpectQuery(`SELECT .* FROM parties WHERE telegram_id = \$1`).
		WithArgs(int64(555)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "telegram_id", "created_at", "updated_at"}))

	_, err := NewPostgresPartyRepository(s.db).GetByTelegramID(s.ctx, 555)
	s.ErrorIs(err, party.ErrNotFound)
}

func (s *PostgresSuite) TestPartyCreateDuplicateTelegramID() {
	s.mock.ExpectQuery(`INSERT INTO parties`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := NewPostgresPartyRepository(s.db).Create(s.ctx, &party.Party{FullName: "Anna Rossi"})
	s.ErrorIs(err, ErrDuplicateTelegramID)
}

func (s *PostgresSuite) TestWithTransactionCommits() {
	now := time.Now()
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`SELECT .* FROM contracts WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(contractCols).
			AddRow(int64(5), int64(1), int64(2), day(2025, 1, 15), day(2029, 1, 15), false, int64(2026), "0", now, now))
	prep := s.mock.ExpectPrepare(`INSERT INTO annuities`)
	prep.ExpectQuery().
		WithArgs(int64(5), 2027, day(2027, 1, 15), false, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(31), now))
	s.mock.ExpectExec(`DELETE FROM annuities WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(`UPDATE contracts\s+SET last_annuity_paid_year = GREATEST`).
		WithArgs(2027, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	rows := []*annuity.Annuity{{ContractID: 5, Year: 2027, DueDate: day(2027, 1, 15)}}
	err := NewPostgresStore(s.db).WithTransaction(s.ctx, func(tx store.Tx) error {
		c, err := tx.GetContract(s.ctx, 5)
		if err != nil {
			return err
		}
		if err := tx.InsertAnnuities(s.ctx, rows); err != nil {
			return err
		}
		if err := tx.DeleteAnnuities(s.ctx, []int64{12}); err != nil {
			return err
		}
		return tx.UpdateContractWatermark(s.ctx, c.ID, 2027)
	})
	s.Require().NoError(err)
	s.Equal(int64(31), rows[0].ID)
}

func (s *PostgresSuite) TestWithTransactionRollsBackOnError() {
	boom := errors.New("boom")
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`DELETE FROM contracts WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectRollback()

	err := NewPostgresStore(s.db).WithTransaction(s.ctx, func(tx store.Tx) error {
		if err := tx.DeleteContract(s.ctx, 5); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)
}

func (s *PostgresSuite) TestMarkAnnuityPaidMissingRow() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`UPDATE annuities SET is_paid = TRUE`).
		WithArgs(sqlmock.AnyArg(), int64(40)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectRollback()

	err := NewPostgresStore(s.db).WithTransaction(s.ctx, func(tx store.Tx) error {
		return tx.MarkAnnuityPaid(s.ctx, 40, time.Now())
	})
	s.ErrorIs(err, annuity.ErrNotFound)
}

func (s *PostgresSuite) TestUpdateAnnuityDueDate() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`UPDATE annuities SET due_date = \$1 WHERE id = \$2`).
		WithArgs(day(2026, 6, 1), int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	err := NewPostgresStore(s.db).WithTransaction(s.ctx, func(tx store.Tx) error {
		return tx.UpdateAnnuityDueDate(s.ctx, 12, day(2026, 6, 1))
	})
	s.NoError(err)
}

func (s *PostgresSuite) TestGetAnnuityNotFound() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`SELECT .* FROM annuities WHERE contract_id = \$1 AND year = \$2 FOR UPDATE`).
		WithArgs(int64(5), 2031).
		WillReturnRows(sqlmock.NewRows(annuityCols))
	s.mock.ExpectRollback()

	err := NewPostgresStore(s.db).WithTransaction(s.ctx, func(tx store.Tx) error {
		_, err := tx.GetAnnuity(s.ctx, 5, 2031)
		return err
	})
	s.ErrorIs(err, annuity.ErrNotFound)
}
