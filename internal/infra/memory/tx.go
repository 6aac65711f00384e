package memory

import (
	"context"
	"database/sql"
	"time"

	"lease_notifier/internal/domain/annuity"
	"lease_notifier/internal/domain/contract"
)

type memTx struct {
	st  *state
	now func() time.Time
}

func (tx *memTx) GetContract(_ context.Context, id int64) (*contract.Contract, error) {
	c, ok := tx.st.contracts[id]
	if !ok {
		return nil, contract.ErrNotFound
	}
	return copyContract(c), nil
}

func (tx *memTx) CreateContract(_ context.Context, c *contract.Contract) error {
	tx.st.seq.contract++
	now := tx.now()
	c.ID = tx.st.seq.contract
	c.CreatedAt, c.UpdatedAt = now, now
	tx.st.contracts[c.ID] = copyContract(c)
	return nil
}

func (tx *memTx) UpdateContract(_ context.Context, c *contract.Contract) error {
	existing, ok := tx.st.contracts[c.ID]
	if !ok {
		return contract.ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = tx.now()
	tx.st.contracts[c.ID] = copyContract(c)
	return nil
}

func (tx *memTx) DeleteContract(_ context.Context, id int64) error {
	if _, ok := tx.st.contracts[id]; !ok {
		return contract.ErrNotFound
	}
	delete(tx.st.contracts, id)
	for aid, a := range tx.st.annuities {
		if a.ContractID == id {
			delete(tx.st.annuities, aid)
		}
	}
	for nid, n := range tx.st.notifications {
		if n.ContractID == id {
			delete(tx.st.notifications, nid)
		}
	}
	return nil
}

func (tx *memTx) UpdateContractWatermark(_ context.Context, contractID int64, year int) error {
	c, ok := tx.st.contracts[contractID]
	if !ok {
		return contract.ErrNotFound
	}
	c.LastAnnuityPaidYear = contract.Year(year)
	c.UpdatedAt = tx.now()
	return nil
}

func (tx *memTx) ListAnnuities(_ context.Context, contractID int64) ([]*annuity.Annuity, error) {
	return tx.st.annuitiesOf(contractID), nil
}

func (tx *memTx) GetAnnuity(_ context.Context, contractID int64, year int) (*annuity.Annuity, error) {
	for _, a := range tx.st.annuities {
		if a.ContractID == contractID && a.Year == year {
			return copyAnnuity(a), nil
		}
	}
	return nil, annuity.ErrNotFound
}

func (tx *memTx) InsertAnnuities(_ context.Context, rows []*annuity.Annuity) error {
	for _, row := range rows {
		if _, ok := tx.st.contracts[row.ContractID]; !ok {
			return contract.ErrNotFound
		}
		for _, a := range tx.st.annuities {
			if a.ContractID == row.ContractID && a.Year == row.Year {
				return errDuplicateAnnuity
			}
		}
		tx.st.seq.annuity++
		row.ID = tx.st.seq.annuity
		row.CreatedAt = tx.now()
		tx.st.annuities[row.ID] = copyAnnuity(row)
	}
	return nil
}

func (tx *memTx) DeleteAnnuities(_ context.Context, ids []int64) error {
	for _, id := range ids {
		delete(tx.st.annuities, id)
	}
	return nil
}

func (tx *memTx) UpdateAnnuityDueDate(_ context.Context, id int64, dueDate time.Time) error {
	a, ok := tx.st.annuities[id]
	if !ok {
		return annuity.ErrNotFound
	}
	a.DueDate = dueDate
	return nil
}

func (tx *memTx) MarkAnnuityPaid(_ context.Context, id int64, paidAt time.Time) error {
	a, ok := tx.st.annuities[id]
	if !ok {
		return annuity.ErrNotFound
	}
	a.IsPaid = true
	a.PaidAt = sql.NullTime{Time: paidAt, Valid: true}
	return nil
}
