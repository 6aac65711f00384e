package metrics

import (
	"errors"
	"testing"

	"lease_notifier/internal/app"
	"lease_notifier/internal/domain/notification"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewDispatchMetrics(registry)
	require.NoError(t, err)

	_, err = NewDispatchMetrics(registry)
	assert.Error(t, err)
}

func TestRecordsOutcomesAndRuns(t *testing.T) {
	m, err := NewDispatchMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObligationDone(notification.KindAnnuityExpiry, app.OutcomeSent)
	m.ObligationDone(notification.KindAnnuityExpiry, app.OutcomeSent)
	m.ObligationDone(notification.KindContractExpiry, app.OutcomeFailed)
	m.RunDone(app.Stats{Processed: 3}, nil)
	m.RunDone(app.Stats{Processed: 1}, errors.New("store down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.obligations.WithLabelValues("annuity_expiry", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.obligations.WithLabelValues("contract_expiry", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lastProcessed))
	assert.Greater(t, testutil.ToFloat64(m.lastDispatch), 0.0)
}
