package app

import (
	"context"
	"testing"

	"lease_notifier/internal/domain"
	"lease_notifier/internal/domain/annuity"
	"lease_notifier/internal/domain/contract"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func years(rows []*annuity.Annuity) []int {
	out := make([]int, 0, len(rows))
	for _, a := range rows {
		out = append(out, a.Year)
	}
	return out
}

func paidYears(rows []*annuity.Annuity) []int {
	out := make([]int, 0)
	for _, a := range rows {
		if a.IsPaid {
			out = append(out, a.Year)
		}
	}
	return out
}

func TestCreateContractGeneratesAnnuities(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	c, rows, err := s.contracts.CreateContract(ctx, ContractInput{
		OwnerID:     1,
		TenantID:    2,
		StartDate:   date(2025, 1, 15),
		EndDate:     date(2028, 1, 15),
		MonthlyRent: decimal.RequireFromString("850.00"),
	})
	require.NoError(t, err)
	require.NotZero(t, c.ID)

	assert.Equal(t, []int{2026, 2027}, years(rows))
	assert.Equal(t, date(2026, 1, 15), rows[0].DueDate)
	assert.Equal(t, date(2027, 1, 15), rows[1].DueDate)

	listed, err := s.annuities.ListAnnuities(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{2026, 2027}, years(listed))
}

func TestCreateContractRejectsInvalidDates(t *testing.T) {
	s := newServices(t)

	_, _, err := s.contracts.CreateContract(context.Background(), ContractInput{
		StartDate: date(2026, 1, 1),
		EndDate:   date(2025, 1, 1),
	})
	assert.ErrorIs(t, err, contract.ErrInvalidDates)
	assert.True(t, domain.IsInvalidState(err))
}

func TestCreateContractAppliesWatermark(t *testing.T) {
	s := newServices(t)

	_, rows, err := s.contracts.CreateContract(context.Background(), ContractInput{
		StartDate:           date(2025, 6, 1),
		EndDate:             date(2030, 6, 1),
		LastAnnuityPaidYear: intPtr(2027),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2026, 2027, 2028, 2029}, years(rows))
	assert.Equal(t, []int{2026, 2027}, paidYears(rows))
}

func TestRecalculateIsIdempotent(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	c, _, err := s.contracts.CreateContract(ctx, ContractInput{StartDate: date(2025, 1, 15), EndDate: date(2029, 1, 15)})
	require.NoError(t, err)

	first, err := s.annuities.RecalculateAnnuities(ctx, c.ID)
	require.NoError(t, err)
	second, err := s.annuities.RecalculateAnnuities(ctx, c.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateTwiceDoesNotDuplicate(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	c, _, err := s.contracts.CreateContract(ctx, ContractInput{StartDate: date(2025, 1, 15), EndDate: date(2028, 1, 15)})
	require.NoError(t, err)

	rows, err := s.annuities.GenerateAnnuities(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{2026, 2027}, years(rows))
}

func TestUpdateContractExtendingEndPreservesPayments(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	in := ContractInput{StartDate: date(2025, 1, 15), EndDate: date(2028, 1, 15)}
	c, _, err := s.contracts.CreateContract(ctx, in)
	require.NoError(t, err)

	// GIVEN 2026 paid out of band
	_, err = s.annuities.MarkAnnuityPaid(ctx, c.ID, 2026)
	require.NoError(t, err)

	// WHEN the contract is extended by two years
	in.EndDate = date(2030, 1, 15)
	in.LastAnnuityPaidYear = intPtr(2026)
	_, rows, err := s.contracts.UpdateContract(ctx, c.ID, in)
	require.NoError(t, err)

	// THEN existing years keep their status and new ones are unpaid
	assert.Equal(t, []int{2026, 2027, 2028, 2029}, years(rows))
	assert.Equal(t, []int{2026}, paidYears(rows))
}

func TestUpdateContractMovingStartDayReschedulesAnnuities(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	in := ContractInput{StartDate: date(2025, 1, 15), EndDate: date(2028, 1, 15)}
	c, _, err := s.contracts.CreateContract(ctx, in)
	require.NoError(t, err)

	// GIVEN 2026 already paid
	_, err = s.annuities.MarkAnnuityPaid(ctx, c.ID, 2026)
	require.NoError(t, err)

	// WHEN start and end move to June within the same years
	in.StartDate = date(2025, 6, 1)
	in.EndDate = date(2028, 6, 1)
	in.LastAnnuityPaidYear = intPtr(2026)
	_, rows, err := s.contracts.UpdateContract(ctx, c.ID, in)
	require.NoError(t, err)

	// THEN the same rows follow the new day and keep their payment
	require.Equal(t, []int{2026, 2027}, years(rows))
	assert.Equal(t, date(2026, 6, 1), rows[0].DueDate)
	assert.Equal(t, date(2027, 6, 1), rows[1].DueDate)
	assert.Equal(t, []int{2026}, paidYears(rows))

	listed, err := s.annuities.ListAnnuities(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, date(2026, 6, 1), listed[0].DueDate)
	assert.True(t, listed[0].IsPaid)
	assert.True(t, listed[0].PaidAt.Valid)
	assert.Equal(t, date(2027, 6, 1), listed[1].DueDate)
}

func TestUpdateContractShorteningDeletesYears(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	in := ContractInput{StartDate: date(2025, 1, 15), EndDate: date(2030, 1, 15)}
	c, _, err := s.contracts.CreateContract(ctx, in)
	require.NoError(t, err)

	in.EndDate = date(2027, 1, 15)
	_, rows, err := s.contracts.UpdateContract(ctx, c.ID, in)
	require.NoError(t, err)
	assert.Equal(t, []int{2026}, years(rows))
}

func TestUpdateContractToFlatRateRemovesAnnuities(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	in := ContractInput{StartDate: date(2025, 1, 15), EndDate: date(2030, 1, 15)}
	c, _, err := s.contracts.CreateContract(ctx, in)
	require.NoError(t, err)

	in.FlatRateRegime = true
	_, rows, err := s.contracts.UpdateContract(ctx, c.ID, in)
	require.NoError(t, err)
	assert.Empty(t, rows)

	listed, err := s.annuities.ListAnnuities(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestUpdateContractRejectsWatermarkRegression(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	in := ContractInput{StartDate: date(2025, 1, 15), EndDate: date(2030, 1, 15), LastAnnuityPaidYear: intPtr(2027)}
	c, _, err := s.contracts.CreateContract(ctx, in)
	require.NoError(t, err)

	in.LastAnnuityPaidYear = intPtr(2026)
	_, _, err = s.contracts.UpdateContract(ctx, c.ID, in)
	assert.ErrorIs(t, err, contract.ErrWatermarkRegression)

	got, err := s.contracts.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2027, got.Watermark())
}

func TestUpdateContractWithoutScheduleChangeKeepsRows(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	in := ContractInput{StartDate: date(2025, 1, 15), EndDate: date(2028, 1, 15), MonthlyRent: decimal.NewFromInt(500)}
	c, created, err := s.contracts.CreateContract(ctx, in)
	require.NoError(t, err)

	in.MonthlyRent = decimal.NewFromInt(650)
	updated, rows, err := s.contracts.UpdateContract(ctx, c.ID, in)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(650).Equal(updated.MonthlyRent))
	assert.Equal(t, created, rows)
}

func TestMarkAnnuityPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("advances watermark", func(t *testing.T) {
		s := newServices(t)
		c, _, err := s.contracts.CreateContract(ctx, ContractInput{StartDate: date(2025, 1, 15), EndDate: date(2029, 1, 15)})
		require.NoError(t, err)

		a, err := s.annuities.MarkAnnuityPaid(ctx, c.ID, 2027)
		require.NoError(t, err)
		assert.True(t, a.IsPaid)
		assert.True(t, a.PaidAt.Valid)

		got, err := s.contracts.GetContract(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 2027, got.Watermark())
	})

	t.Run("lower year keeps watermark", func(t *testing.T) {
		s := newServices(t)
		c, _, err := s.contracts.CreateContract(ctx, ContractInput{StartDate: date(2025, 1, 15), EndDate: date(2029, 1, 15)})
		require.NoError(t, err)
		_, err = s.annuities.MarkAnnuityPaid(ctx, c.ID, 2027)
		require.NoError(t, err)

		a, err := s.annuities.MarkAnnuityPaid(ctx, c.ID, 2026)
		require.NoError(t, err)
		assert.True(t, a.IsPaid)

		got, err := s.contracts.GetContract(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 2027, got.Watermark())
	})

	t.Run("already paid is invalid state", func(t *testing.T) {
		s := newServices(t)
		c, _, err := s.contracts.CreateContract(ctx, ContractInput{StartDate: date(2025, 1, 15), EndDate: date(2029, 1, 15)})
		require.NoError(t, err)
		_, err = s.annuities.MarkAnnuityPaid(ctx, c.ID, 2026)
		require.NoError(t, err)

		_, err = s.annuities.MarkAnnuityPaid(ctx, c.ID, 2026)
		assert.ErrorIs(t, err, annuity.ErrAlreadyPaid)
		assert.True(t, domain.IsInvalidState(err))

		got, err := s.contracts.GetContract(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 2026, got.Watermark())
	})

	t.Run("unknown year", func(t *testing.T) {
		s := newServices(t)
		c, _, err := s.contracts.CreateContract(ctx, ContractInput{StartDate: date(2025, 1, 15), EndDate: date(2029, 1, 15)})
		require.NoError(t, err)

		_, err = s.annuities.MarkAnnuityPaid(ctx, c.ID, 2031)
		assert.ErrorIs(t, err, annuity.ErrNotFound)
	})

	t.Run("unknown contract", func(t *testing.T) {
		s := newServices(t)
		_, err := s.annuities.MarkAnnuityPaid(ctx, 42, 2026)
		assert.ErrorIs(t, err, contract.ErrNotFound)
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestRecalculateUnknownContract(t *testing.T) {
	s := newServices(t)
	_, err := s.annuities.RecalculateAnnuities(context.Background(), 7)
	assert.True(t, domain.IsNotFound(err))
}

func TestDeleteContractCascades(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	c, _, err := s.contracts.CreateContract(ctx, ContractInput{StartDate: date(2025, 1, 15), EndDate: date(2029, 1, 15)})
	require.NoError(t, err)

	require.NoError(t, s.contracts.DeleteContract(ctx, c.ID))

	_, err = s.annuities.ListAnnuities(ctx, c.ID)
	assert.ErrorIs(t, err, contract.ErrNotFound)
	rows, err := s.store.Annuities().ListByContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
