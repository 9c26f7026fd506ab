// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Warmer refreshes cached tables. *attendance.Resolver satisfies it.
type Warmer interface {
	Warm(ctx context.Context) error
}

// CacheWarmerService keeps the open-session roster and dashboard stats
// warm so public requests rarely wait on the spreadsheet.
type CacheWarmerService struct {
	warmer   Warmer
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewCacheWarmerService creates a warmer running every interval (60s when
// zero). The first refresh happens immediately.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCacheWarmerService(w Warmer, interval time.Duration, logger zerolog.Logger) *CacheWarmerService {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &CacheWarmerService{
		warmer:   w,
		interval: interval,
		timeout:  30 * time.Second,
		logger:   logger.With().Str("service", "cache-warmer").Logger(),
	}
}

// Serve implements suture.Service.
func (s *CacheWarmerService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("cache warmer starting")
	s.warm(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.warm(ctx)
		}
	}
}

// warm errors are logged only; the gate and stale fallback already decide
// what callers see.
func (s *CacheWarmerService) warm(ctx context.Context) {
	warmCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.warmer.Warm(warmCtx); err != nil {
		s.logger.Warn().Err(err).Msg("cache warm failed")
		return
	}
	s.logger.Debug().Dur("duration", time.Since(start)).Msg("cache warmed")
}

// String returns the service name for logging.
func (s *CacheWarmerService) String() string {
	return "cache-warmer"
}
