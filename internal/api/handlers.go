// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package api

import (
	"context"
	"time"

	"github.com/tomtom215/punchclock/internal/attendance"
	"github.com/tomtom215/punchclock/internal/auth"
	"github.com/tomtom215/punchclock/internal/cache"
	"github.com/tomtom215/punchclock/internal/config"
	"github.com/tomtom215/punchclock/internal/quota"
	"github.com/tomtom215/punchclock/internal/report"
	"github.com/tomtom215/punchclock/internal/supervisor/services"
)

// Attendance is the resolver as seen by the handlers.
type Attendance interface {
	ClockIn(ctx context.Context, req attendance.ClockInRequest) (*attendance.ClockInResult, error)
	ClockOut(ctx context.Context, req attendance.ClockOutRequest) (*attendance.ClockOutResult, error)
	CheckStatus(ctx context.Context, employee string) (*attendance.Status, error)
	Employees(ctx context.Context) ([]string, error)
	AdminStats(ctx context.Context) (*attendance.AdminStats, error)
	Report(ctx context.Context, q attendance.ReportQuery) ([]attendance.ReportRow, error)
	RefreshAll(ctx context.Context) error
	Location() *time.Location
}

// QuotaMonitor is the upstream call log.
type QuotaMonitor interface {
	CanMakeCall() bool
	LogCall(label string)
	Stats() quota.Stats
	Recent() []quota.Call
}

// CacheControl exposes the cache switches the admin panel drives.
type CacheControl interface {
	SetEmergency(on bool)
	Emergency() bool
	LastError() string
	Stats() cache.Stats
}

// KeepAliveReporter reports the self-ping counters shown by /api/health.
type KeepAliveReporter interface {
	Stats() services.KeepAliveStats
}

// HandlerDeps lists the handler dependencies. KeepAlive may be nil.
type HandlerDeps struct {
	Config     *config.Config
	Attendance Attendance
	Quota      QuotaMonitor
	Cache      CacheControl
	Auth       *auth.Authenticator
	Reports    *report.Builder
	KeepAlive  KeepAliveReporter
}

// Handler contains dependencies for API handlers.
//
// Methods are split across files:
//   - handlers_attendance.go: the public mini-app endpoints
//   - handlers_admin.go: login and the admin panel endpoints
//   - handlers_health.go: health, ping, config and the webhook ping
type Handler struct {
	config     *config.Config
	attendance Attendance
	quota      QuotaMonitor
	cache      CacheControl
	auth       *auth.Authenticator
	reports    *report.Builder
	keepAlive  KeepAliveReporter
	startTime  time.Time
	now        func() time.Time
}

// NewHandler creates the API handler.
func NewHandler(deps HandlerDeps) *Handler {
	reports := deps.Reports
	if reports == nil {
		reports = &report.Builder{Location: deps.Attendance.Location()}
	}
	return &Handler{
		config:     deps.Config,
		attendance: deps.Attendance,
		quota:      deps.Quota,
		cache:      deps.Cache,
		auth:       deps.Auth,
		reports:    reports,
		keepAlive:  deps.KeepAlive,
		startTime:  time.Now(),
		now:        time.Now,
	}
}

// uptime returns seconds since the handler was created.
func (h *Handler) uptime() float64 {
	return h.now().Sub(h.startTime).Seconds()
}
