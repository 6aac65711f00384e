package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"lease_notifier/internal/app"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	mu       sync.Mutex
	calls    int
	deadline bool
	err      error
}

func (r *countingRunner) RunExpiryDispatch(ctx context.Context) (app.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	_, r.deadline = ctx.Deadline()
	return app.Stats{RunID: "run"}, r.err
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	s := NewDispatchScheduler(&countingRunner{}, quietLogger(), "not a spec", time.UTC, time.Minute)
	assert.Error(t, s.Start())
}

func TestStartSchedulesInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	s := NewDispatchScheduler(&countingRunner{}, quietLogger(), "0 8 * * *", loc, time.Minute)
	require.NoError(t, s.Start())
	defer s.Stop()

	next := s.Next().In(loc)
	assert.Equal(t, 8, next.Hour())
	assert.Equal(t, 0, next.Minute())
}

func TestRunOnceUsesTimeout(t *testing.T) {
	runner := &countingRunner{err: errors.New("store down")}
	s := NewDispatchScheduler(runner, quietLogger(), "@daily", time.UTC, time.Minute)

	s.runOnce()

	assert.Equal(t, 1, runner.calls)
	assert.True(t, runner.deadline)
}
