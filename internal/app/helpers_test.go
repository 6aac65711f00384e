package app

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"lease_notifier/internal/domain/delivery"
	"lease_notifier/internal/infra/memory"

	"github.com/sirupsen/logrus"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func intPtr(v int) *int { return &v }

type services struct {
	store     *memory.Store
	annuities *AnnuityService
	contracts *ContractService
}

func newServices(t *testing.T) services {
	t.Helper()
	st := memory.NewStore()
	as := NewAnnuityService(st, st.Contracts(), st.Annuities(), testLogger())
	as.now = func() time.Time { return date(2025, 3, 1) }
	cs := NewContractService(st, st.Contracts(), as, testLogger())
	return services{store: st, annuities: as, contracts: cs}
}

// fakeChannel records reminders and answers with a configurable result. Safe for the
// concurrent calls the dispatcher makes.
type fakeChannel struct {
	mu    sync.Mutex
	ok    bool
	block bool
	calls []delivery.Reminder
}

func (f *fakeChannel) send(ctx context.Context, r delivery.Reminder) bool {
	f.mu.Lock()
	f.calls = append(f.calls, r)
	ok, block := f.ok, f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return false
	}
	return ok
}

func (f *fakeChannel) SendInternalReminder(ctx context.Context, r delivery.Reminder) bool {
	return f.send(ctx, r)
}

func (f *fakeChannel) SendSubjectReminder(ctx context.Context, r delivery.Reminder) bool {
	return f.send(ctx, r)
}

func (f *fakeChannel) set(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ok = ok
}

func (f *fakeChannel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
