// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punchclock_api_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "punchclock_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "punchclock_api_active_requests",
			Help: "Requests currently being served",
		},
	)

	// Cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punchclock_cache_hits_total",
			Help: "Fresh cache hits per table",
		},
		[]string{"table"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punchclock_cache_misses_total",
			Help: "Cache misses per table that led to an upstream fetch",
		},
		[]string{"table"},
	)

	CacheStaleServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punchclock_cache_stale_served_total",
			Help: "Stale rows served instead of failing, by table and reason",
		},
		[]string{"table", "reason"}, // reason: "rate_limit", "quota", "timeout"
	)

	EmergencyMode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "punchclock_cache_emergency_mode",
			Help: "1 while emergency TTLs are in force",
		},
	)

	// Upstream quota
	UpstreamCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punchclock_upstream_calls_total",
			Help: "Calls logged against the spreadsheet quota, by operation label",
		},
		[]string{"label"},
	)

	QuotaDenied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "punchclock_quota_denied_total",
			Help: "Calls refused by the local quota monitor",
		},
	)

	QuotaUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "punchclock_quota_usage_ratio",
			Help: "Calls in window divided by the window ceiling",
		},
		[]string{"window"}, // "minute", "hour"
	)

	// Attendance
	AttendanceOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punchclock_attendance_operations_total",
			Help: "Clock-in and clock-out attempts by outcome",
		},
		[]string{"action", "outcome"},
	)

	ReconciliationTier = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punchclock_reconciliation_tier_total",
			Help: "Which row search tier located the ledger row on clock-out",
		},
		[]string{"tier"}, // "backref", "closest", "latest", "none"
	)

	// Outbound collaborators
	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punchclock_webhook_deliveries_total",
			Help: "Webhook notification attempts by result",
		},
		[]string{"result"},
	)

	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punchclock_geocode_lookups_total",
			Help: "Reverse geocoding lookups by result",
		},
		[]string{"result"}, // "ok", "fallback"
	)

	KeepAlivePings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punchclock_keepalive_pings_total",
			Help: "Self pings by result",
		},
		[]string{"result"},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "punchclock_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punchclock_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "punchclock_circuit_breaker_consecutive_failures",
			Help: "Current consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punchclock_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordAPIRequest records one served request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight gauge up or down.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetEmergencyMode mirrors the cache flag.
func SetEmergencyMode(on bool) {
	if on {
		EmergencyMode.Set(1)
	} else {
		EmergencyMode.Set(0)
	}
}

// RecordAttendance counts one resolver outcome.
func RecordAttendance(action, outcome string) {
	AttendanceOperations.WithLabelValues(action, outcome).Inc()
}
