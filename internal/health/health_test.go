package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMonitorHealthyUntilThreshold(t *testing.T) {
	m := NewMonitor(3)

	ok, _ := m.Healthy()
	require.True(t, ok)

	m.RecordDeliveryFailure("delivery_transient")
	m.RecordDeliveryFailure("delivery_transient")
	ok, _ = m.Healthy()
	require.True(t, ok)

	m.RecordFetchFailure("timeout")
	ok, reason := m.Healthy()
	require.False(t, ok)
	require.Contains(t, reason, "3 consecutive failures")
}

func TestMonitorSuccessResetsCounter(t *testing.T) {
	m := NewMonitor(2)

	m.RecordDeliveryFailure("delivery_transient")
	m.RecordDeliverySuccess()
	m.RecordDeliveryFailure("delivery_transient")

	ok, _ := m.Healthy()
	require.True(t, ok)
}

func TestMonitorSnapshot(t *testing.T) {
	m := NewMonitor(10)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.RecordFetchSuccess()
	m.RecordDeliverySuccess()
	m.RecordFetchFailure("timeout")
	m.RecordFetchFailure("timeout")
	m.RecordDeliveryFailure("delivery_rate_limited")

	snap := m.Snapshot()
	require.Equal(t, 3, snap.ConsecutiveFailures)
	require.NotNil(t, snap.LastFetchSuccess)
	require.Equal(t, now, *snap.LastFetchSuccess)
	require.Equal(t, 2, snap.Errors["fetch_timeout"].Count)
	require.Equal(t, 1, snap.Errors["delivery_rate_limited"].Count)
	require.Equal(t, now, snap.Errors["fetch_timeout"].LastAt)
}

func TestMonitorZeroThresholdUsesDefault(t *testing.T) {
	m := NewMonitor(0)
	for i := 0; i < defaultMaxConsecutiveFailures-1; i++ {
		m.RecordFetchFailure("timeout")
	}
	ok, _ := m.Healthy()
	require.True(t, ok)

	m.RecordFetchFailure("timeout")
	ok, _ = m.Healthy()
	require.False(t, ok)
}
