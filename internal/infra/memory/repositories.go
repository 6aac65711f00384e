package memory

import (
	"context"
	"errors"
	"time"

	"lease_notifier/internal/domain/annuity"
	"lease_notifier/internal/domain/contract"
	"lease_notifier/internal/domain/notification"
	"lease_notifier/internal/domain/party"
)

var errDuplicateAnnuity = errors.New("annuity for this contract and year already exists")

// Contracts returns the contract read repository backed by s.
func (s *Store) Contracts() *ContractRepository { return &ContractRepository{s: s} }

// Annuities returns the annuity read repository backed by s.
func (s *Store) Annuities() *AnnuityRepository { return &AnnuityRepository{s: s} }

// Notifications returns the notification ledger backed by s.
func (s *Store) Notifications() *NotificationRepository { return &NotificationRepository{s: s} }

// Parties returns the party repository backed by s.
func (s *Store) Parties() *PartyRepository { return &PartyRepository{s: s} }

type ContractRepository struct{ s *Store }

func (r *ContractRepository) GetByID(_ context.Context, id int64) (*contract.Contract, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.state.contracts[id]
	if !ok {
		return nil, contract.ErrNotFound
	}
	return copyContract(c), nil
}

func (r *ContractRepository) ListEndingOn(_ context.Context, day time.Time) ([]*contract.Contract, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	target := annuity.CivilDate(day)
	rows := make([]*contract.Contract, 0)
	for _, c := range r.s.state.contracts {
		if annuity.CivilDate(c.EndDate).Equal(target) {
			rows = append(rows, copyContract(c))
		}
	}
	sortContracts(rows)
	return rows, nil
}

type AnnuityRepository struct{ s *Store }

func (r *AnnuityRepository) ListByContract(_ context.Context, contractID int64) ([]*annuity.Annuity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.state.annuitiesOf(contractID), nil
}

func (r *AnnuityRepository) ListDueUnpaid(_ context.Context, day time.Time) ([]*annuity.Annuity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	target := annuity.CivilDate(day)
	rows := make([]*annuity.Annuity, 0)
	for _, a := range r.s.state.annuities {
		if !a.IsPaid && annuity.CivilDate(a.DueDate).Equal(target) {
			rows = append(rows, copyAnnuity(a))
		}
	}
	annuity.SortByYear(rows)
	return rows, nil
}

type NotificationRepository struct{ s *Store }

func normalizedKey(k notification.Key) notification.Key {
	if !k.Year.Valid {
		k.Year.Int32 = 0
	}
	return k
}

func (r *NotificationRepository) Exists(_ context.Context, key notification.Key) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.state.hasNotification(key), nil
}

func (st *state) hasNotification(key notification.Key) bool {
	key = normalizedKey(key)
	for _, n := range st.notifications {
		if normalizedKey(n.Key()) == key {
			return true
		}
	}
	return false
}

func (r *NotificationRepository) Create(_ context.Context, n *notification.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.state.contracts[n.ContractID]; !ok {
		return contract.ErrNotFound
	}
	if r.s.state.hasNotification(n.Key()) {
		return notification.ErrAlreadyRecorded
	}
	r.s.state.seq.notification++
	n.ID = r.s.state.seq.notification
	if n.SentAt.IsZero() {
		n.SentAt = r.s.now()
	}
	cp := *n
	r.s.state.notifications[n.ID] = &cp
	return nil
}

func (r *NotificationRepository) ListByContract(_ context.Context, contractID int64) ([]*notification.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows := make([]*notification.Notification, 0)
	for id := int64(1); id <= r.s.state.seq.notification; id++ {
		if n, ok := r.s.state.notifications[id]; ok && n.ContractID == contractID {
			cp := *n
			rows = append(rows, &cp)
		}
	}
	return rows, nil
}

type PartyRepository struct{ s *Store }

func (r *PartyRepository) Create(_ context.Context, p *party.Party) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.state.seq.party++
	now := r.s.now()
	p.ID = r.s.state.seq.party
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	r.s.state.parties[p.ID] = &cp
	return nil
}

func (r *PartyRepository) GetByID(_ context.Context, id int64) (*party.Party, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.state.parties[id]
	if !ok {
		return nil, party.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PartyRepository) GetByTelegramID(_ context.Context, telegramID int64) (*party.Party, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.state.parties {
		if p.TelegramID.Valid && p.TelegramID.Int64 == telegramID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, party.ErrNotFound
}

func (r *PartyRepository) List(_ context.Context) ([]*party.Party, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows := make([]*party.Party, 0, len(r.s.state.parties))
	for id := int64(1); id <= r.s.state.seq.party; id++ {
		if p, ok := r.s.state.parties[id]; ok {
			cp := *p
			rows = append(rows, &cp)
		}
	}
	return rows, nil
}
