// Package memory provides an in-memory implementation of the storage interfaces.
//
// It backs local runs with STORAGE_DRIVER=memory and is the substitutable fake in tests.
// WithTransaction works on a copy of the whole state and swaps it in on success, so a failed
// transaction leaves nothing behind. Transactions are serialized by a single mutex.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"lease_notifier/internal/domain/annuity"
	"lease_notifier/internal/domain/contract"
	"lease_notifier/internal/domain/notification"
	"lease_notifier/internal/domain/party"
	"lease_notifier/internal/domain/store"
)

type Store struct {
	mu    sync.RWMutex
	state *state
	now   func() time.Time
}

type sequences struct {
	contract, annuity, notification, party int64
}

type state struct {
	seq           sequences
	contracts     map[int64]*contract.Contract
	annuities     map[int64]*annuity.Annuity
	notifications map[int64]*notification.Notification
	parties       map[int64]*party.Party
}

func NewStore() *Store {
	return &Store{
		state: &state{
			contracts:     make(map[int64]*contract.Contract),
			annuities:     make(map[int64]*annuity.Annuity),
			notifications: make(map[int64]*notification.Notification),
			parties:       make(map[int64]*party.Party),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (st *state) clone() *state {
	out := &state{
		seq:           st.seq,
		contracts:     make(map[int64]*contract.Contract, len(st.contracts)),
		annuities:     make(map[int64]*annuity.Annuity, len(st.annuities)),
		notifications: make(map[int64]*notification.Notification, len(st.notifications)),
		parties:       make(map[int64]*party.Party, len(st.parties)),
	}
	for id, c := range st.contracts {
		out.contracts[id] = copyContract(c)
	}
	for id, a := range st.annuities {
		out.annuities[id] = copyAnnuity(a)
	}
	for id, n := range st.notifications {
		cp := *n
		out.notifications[id] = &cp
	}
	for id, p := range st.parties {
		cp := *p
		out.parties[id] = &cp
	}
	return out
}

func copyContract(c *contract.Contract) *contract.Contract {
	cp := *c
	return &cp
}

func copyAnnuity(a *annuity.Annuity) *annuity.Annuity {
	cp := *a
	return &cp
}

// WithTransaction runs fn against a private copy of the state and commits it if fn succeeds.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&memTx{st: work, now: s.now}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (st *state) annuitiesOf(contractID int64) []*annuity.Annuity {
	rows := make([]*annuity.Annuity, 0)
	for _, a := range st.annuities {
		if a.ContractID == contractID {
			rows = append(rows, copyAnnuity(a))
		}
	}
	annuity.SortByYear(rows)
	return rows
}

func sortContracts(rows []*contract.Contract) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
}
