// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

// Package quota tracks calls made against the spreadsheet API so the cache
// layer can stop fetching before the vendor starts refusing requests.
package quota

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/tomtom215/punchclock/internal/metrics"
)

var (
	// ErrRateLimitExceeded means the local monitor refused the call.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrQuotaExceeded means the upstream refused the call because its quota
	// is spent. Adapters wrap their vendor error with it.
	ErrQuotaExceeded = errors.New("upstream quota exceeded")

	// ErrUnavailable marks transient upstream failures (5xx, network errors,
	// an open circuit breaker). Callers holding older data may serve it.
	ErrUnavailable = errors.New("upstream unavailable")
)

// Degradable reports whether err allows falling back to stale data.
func Degradable(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
)

// Call is one entry of the rolling log.
type Call struct {
	At    time.Time `json:"at"`
	Label string    `json:"label"`
}

// Stats is a snapshot of the rolling log. JSON names match the admin panel.
type Stats struct {
	CallsLastMinute  int     `json:"callsLastMinute"`
	CallsLastHour    int     `json:"callsLastHour"`
	MaxPerMinute     int     `json:"maxPerMinute"`
	MaxPerHour       int     `json:"maxPerHour"`
	CanMakeCall      bool    `json:"canMakeCall"`
	MinutePercentage float64 `json:"minutePercentage"`
	HourPercentage   float64 `json:"hourPercentage"`
}

// Monitor is a rolling one-hour call log with a per-minute and a per-hour
// ceiling. It is safe for concurrent use.
type Monitor struct {
	mu           sync.Mutex
	calls        []Call
	maxPerMinute int
	maxPerHour   int
	now          func() time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor creates a monitor with the given ceilings.
func NewMonitor(maxPerMinute, maxPerHour int, opts ...Option) *Monitor {
	m := &Monitor{
		maxPerMinute: maxPerMinute,
		maxPerHour:   maxPerHour,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CanMakeCall reports whether another upstream call fits both ceilings.
func (m *Monitor) CanMakeCall() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	perMinute, perHour := m.countLocked(m.now())
	ok := perMinute < m.maxPerMinute && perHour < m.maxPerHour
	if !ok {
		metrics.QuotaDenied.Inc()
	}
	return ok
}

// LogCall records an upstream call under label and prunes old entries.
func (m *Monitor) LogCall(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.calls = append(m.calls, Call{At: now, Label: label})
	m.pruneLocked(now)
	metrics.UpstreamCalls.WithLabelValues(label).Inc()

	perMinute, perHour := m.countLocked(now)
	metrics.QuotaUsage.WithLabelValues("minute").Set(float64(perMinute) / float64(m.maxPerMinute))
	metrics.QuotaUsage.WithLabelValues("hour").Set(float64(perHour) / float64(m.maxPerHour))
}

// Stats returns counts and usage percentages rounded to one decimal.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	perMinute, perHour := m.countLocked(m.now())
	return Stats{
		CallsLastMinute:  perMinute,
		CallsLastHour:    perHour,
		MaxPerMinute:     m.maxPerMinute,
		MaxPerHour:       m.maxPerHour,
		CanMakeCall:      perMinute < m.maxPerMinute && perHour < m.maxPerHour,
		MinutePercentage: percent(perMinute, m.maxPerMinute),
		HourPercentage:   percent(perHour, m.maxPerHour),
	}
}

// Recent returns a copy of the log entries younger than one hour.
func (m *Monitor) Recent() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked(m.now())
	return append([]Call(nil), m.calls...)
}

// countLocked counts entries strictly younger than each window.
func (m *Monitor) countLocked(now time.Time) (perMinute, perHour int) {
	for i := len(m.calls) - 1; i >= 0; i-- {
		age := now.Sub(m.calls[i].At)
		if age >= hourWindow {
			break
		}
		perHour++
		if age < minuteWindow {
			perMinute++
		}
	}
	return perMinute, perHour
}

// pruneLocked drops entries at least one hour old. The log is append-only
// in time order, so the cut point is a prefix.
func (m *Monitor) pruneLocked(now time.Time) {
	cut := 0
	for cut < len(m.calls) && now.Sub(m.calls[cut].At) >= hourWindow {
		cut++
	}
	if cut > 0 {
		m.calls = append(m.calls[:0], m.calls[cut:]...)
	}
}

func percent(n, ceiling int) float64 {
	if ceiling <= 0 {
		return 0
	}
	return math.Round(float64(n)/float64(ceiling)*1000) / 10
}
