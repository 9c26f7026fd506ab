// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/punchclock/internal/config"
	"github.com/tomtom215/punchclock/internal/metrics"
)

// HourWindow is a local-time range [Start, End) in whole hours.
type HourWindow = config.HourWindow

// KeepAliveStats is reported by the health endpoint.
type KeepAliveStats struct {
	Enabled    bool       `json:"enabled"`
	Uptime     int64      `json:"uptime"`
	PingCount  int        `json:"pingCount"`
	ErrorCount int        `json:"errorCount"`
	LastPing   *time.Time `json:"lastPing,omitempty"`
}

// maxPingFailures is the run of failed pings after which the service
// retries on RetryDelay instead of waiting for the next tick.
const maxPingFailures = 5

// KeepAliveConfig configures the pinger.
type KeepAliveConfig struct {
	Enabled  bool
	URL      string
	Interval time.Duration
	Windows  []HourWindow
	Location *time.Location
	// StartDelay is the wait before the first ping, which ignores Windows.
	// Defaults to 5 seconds.
	StartDelay time.Duration
	// RetryDelay spaces the extra pings sent while failing. Defaults to
	// one minute.
	RetryDelay time.Duration
}

// KeepAliveService pings the service's own /api/ping inside the working
// hour windows so free hosting tiers do not idle it out.
type KeepAliveService struct {
	cfg     KeepAliveConfig
	client  *http.Client
	now     func() time.Time
	started time.Time
	logger  zerolog.Logger

	mu         sync.Mutex
	pingCount  int
	errorCount int
	lastPing   time.Time
}

// NewKeepAliveService creates the pinger.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewKeepAliveService(cfg KeepAliveConfig, logger zerolog.Logger) *KeepAliveService {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.StartDelay <= 0 {
		cfg.StartDelay = 5 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &KeepAliveService{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
		started: time.Now(),
		logger:  logger.With().Str("service", "keepalive").Logger(),
	}
}

// Serve implements suture.Service. It pings once StartDelay after starting,
// then on every Interval tick inside the hour windows. After maxPingFailures
// consecutive failures it keeps pinging every RetryDelay until one succeeds.
func (s *KeepAliveService) Serve(ctx context.Context) error {
	if !s.cfg.Enabled || s.cfg.URL == "" {
		s.logger.Info().Msg("keep-alive disabled")
		<-ctx.Done()
		return ctx.Err()
	}
	s.logger.Info().Str("url", s.cfg.URL).Dur("interval", s.cfg.Interval).Msg("keep-alive starting")

	start := time.NewTimer(s.cfg.StartDelay)
	defer start.Stop()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	var retry <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-start.C:
			s.ping(ctx)
		case <-ticker.C:
			s.Tick(ctx)
		case <-retry:
			retry = nil
			s.ping(ctx)
		}
		if retry == nil && s.failing() {
			s.logger.Warn().Dur("retry_in", s.cfg.RetryDelay).Msg("keep-alive failing repeatedly, scheduling retry")
			retry = time.After(s.cfg.RetryDelay)
		}
	}
}

func (s *KeepAliveService) failing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorCount >= maxPingFailures
}

// Tick pings once if the current local hour is inside a window.
func (s *KeepAliveService) Tick(ctx context.Context) {
	hour := s.now().In(s.cfg.Location).Hour()
	if !s.inWindow(hour) {
		s.logger.Debug().Int("hour", hour).Msg("outside working hours, skipping ping")
		return
	}
	s.ping(ctx)
}

func (s *KeepAliveService) inWindow(hour int) bool {
	if len(s.cfg.Windows) == 0 {
		return true
	}
	for _, w := range s.cfg.Windows {
		if w.Contains(hour) {
			return true
		}
	}
	return false
}

func (s *KeepAliveService) ping(ctx context.Context) {
	err := s.get(ctx)

	s.mu.Lock()
	s.pingCount++
	s.lastPing = s.now()
	n := s.pingCount
	if err != nil {
		s.errorCount++
	} else {
		s.errorCount = 0
	}
	s.mu.Unlock()

	if err != nil {
		metrics.KeepAlivePings.WithLabelValues("failure").Inc()
		s.logger.Warn().Err(err).Int("ping", n).Msg("keep-alive ping failed")
		return
	}
	metrics.KeepAlivePings.WithLabelValues("success").Inc()
	s.logger.Debug().Int("ping", n).Msg("keep-alive ping ok")
}

func (s *KeepAliveService) get(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL+"/api/ping", http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "KeepAlive-Service/1.0")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// Stats returns the ping counters. errorCount resets on every success.
func (s *KeepAliveService) Stats() KeepAliveStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := KeepAliveStats{
		Enabled:    s.cfg.Enabled,
		Uptime:     int64(s.now().Sub(s.started).Seconds()),
		PingCount:  s.pingCount,
		ErrorCount: s.errorCount,
	}
	if !s.lastPing.IsZero() {
		last := s.lastPing
		st.LastPing = &last
	}
	return st
}

// String returns the service name for logging.
func (s *KeepAliveService) String() string {
	return "keepalive"
}
