// Package health tracks process-wide fetch and delivery outcomes. State is
// in-memory only and rebuilt from zero on restart.
package health

import (
	"fmt"
	"sync"
	"time"
)

const defaultMaxConsecutiveFailures = 10

// ErrorStat is a rolling counter for one error kind.
type ErrorStat struct {
	Count  int       `json:"count"`
	LastAt time.Time `json:"last_at"`
}

// Report is a point-in-time view of the monitor, served by the health
// endpoint.
type Report struct {
	ConsecutiveFailures int                  `json:"consecutive_failures"`
	LastFetchSuccess    *time.Time           `json:"last_fetch_success,omitempty"`
	LastDeliverySuccess *time.Time           `json:"last_delivery_success,omitempty"`
	Errors              map[string]ErrorStat `json:"errors"`
}

// Monitor records outcomes from all poll loops; it implements the delivery
// worker's HealthRecorder.
type Monitor struct {
	mu           sync.Mutex
	threshold    int
	consec       int
	lastFetch    time.Time
	lastDelivery time.Time
	errors       map[string]ErrorStat
	now          func() time.Time
}

// NewMonitor creates a monitor that reports unhealthy after threshold
// consecutive failures. threshold <= 0 uses the default.
func NewMonitor(threshold int) *Monitor {
	if threshold <= 0 {
		threshold = defaultMaxConsecutiveFailures
	}
	return &Monitor{
		threshold: threshold,
		errors:    make(map[string]ErrorStat),
		now:       time.Now,
	}
}

func (m *Monitor) RecordFetchSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consec = 0
	m.lastFetch = m.now()
}

func (m *Monitor) RecordFetchFailure(kind string) {
	m.record("fetch_" + kind)
}

func (m *Monitor) RecordDeliverySuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consec = 0
	m.lastDelivery = m.now()
}

func (m *Monitor) RecordDeliveryFailure(kind string) {
	m.record(kind)
}

func (m *Monitor) record(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consec++
	stat := m.errors[kind]
	stat.Count++
	stat.LastAt = m.now()
	m.errors[kind] = stat
}

// Healthy reports whether the consecutive-failure threshold has been hit,
// with a diagnostic when it has.
func (m *Monitor) Healthy() (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.consec >= m.threshold {
		return false, fmt.Sprintf("%d consecutive failures", m.consec)
	}
	return true, ""
}

// Snapshot returns a copy of the current state.
func (m *Monitor) Snapshot() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := Report{
		ConsecutiveFailures: m.consec,
		Errors:              make(map[string]ErrorStat, len(m.errors)),
	}
	if !m.lastFetch.IsZero() {
		t := m.lastFetch
		r.LastFetchSuccess = &t
	}
	if !m.lastDelivery.IsZero() {
		t := m.lastDelivery
		r.LastDeliverySuccess = &t
	}
	for k, v := range m.errors {
		r.Errors[k] = v
	}
	return r
}
