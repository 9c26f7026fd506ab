// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

// Package cache holds whole-table snapshots of the spreadsheet with one TTL
// per table.
//
// A refresh always replaces an entry; rows are never merged. When the quota
// monitor refuses a fetch, or the upstream reports an exhausted quota or
// times out, previously fetched rows are served even if expired. Emergency
// mode stretches every TTL to EmergencyTTL until it is switched off.
//
// Reads that feed a write must not see superseded rows. They go through
// Fetch, which never falls back to stale data. Clear bumps a per-key
// generation: a fetch that started before the Clear still returns its rows
// to its own caller but is not stored, and the persisted snapshot for the
// key is dropped.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/punchclock/internal/logging"
	"github.com/tomtom215/punchclock/internal/metrics"
	"github.com/tomtom215/punchclock/internal/quota"
)

// Table keys.
const (
	KeyEmployees = "employees"
	KeyOnWork    = "onwork"
	KeyMain      = "main"
	KeyStats     = "stats"
)

// DefaultTTL applies to keys without a registered TTL.
const DefaultTTL = 5 * time.Minute

// Gate is the quota monitor as seen by the cache.
type Gate interface {
	CanMakeCall() bool
	LogCall(label string)
}

// Entry is one cached table.
type Entry struct {
	Data      any
	FetchedAt time.Time
}

// Stats counts cache outcomes since start.
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	StaleServed int64   `json:"staleServed"`
	FetchErrors int64   `json:"fetchErrors"`
	HitRate     float64 `json:"hitRate"`
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Config sets the TTLs.
type Config struct {
	TTLs         map[string]time.Duration
	EmergencyTTL time.Duration
}

// Store is the process-wide table cache. Construct one with New and share it.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttls    map[string]time.Duration
	gens    map[string]uint64
	epoch   uint64

	emergency    atomic.Bool
	emergencyTTL time.Duration

	lastErrMu sync.RWMutex
	lastErr   string

	gate     Gate
	snapshot Snapshotter
	now      func() time.Time
	group    singleflight.Group

	hits, misses, stale, fetchErrs atomic.Int64
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSnapshot persists every successful fetch so stale rows survive restarts.
func WithSnapshot(sn Snapshotter) Option {
	return func(s *Store) { s.snapshot = sn }
}

// New creates a Store gated by gate.
func New(cfg Config, gate Gate, opts ...Option) *Store {
	s := &Store{
		entries:      make(map[string]Entry),
		gens:         make(map[string]uint64),
		ttls:         make(map[string]time.Duration, len(cfg.TTLs)),
		emergencyTTL: cfg.EmergencyTTL,
		gate:         gate,
		now:          time.Now,
	}
	for k, v := range cfg.TTLs {
		s.ttls[k] = v
	}
	if s.emergencyTTL <= 0 {
		s.emergencyTTL = time.Hour
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the TTL currently in force for key.
func (s *Store) TTL(key string) time.Duration {
	if s.emergency.Load() {
		return s.emergencyTTL
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ttl, ok := s.ttls[key]; ok {
		return ttl
	}
	return DefaultTTL
}

// IsValid reports whether key holds data younger than its TTL.
func (s *Store) IsValid(key string) bool {
	_, ok := s.fresh(key)
	return ok
}

// Get returns the data stored under key if it is still valid.
func (s *Store) Get(key string) (any, bool) {
	return s.fresh(key)
}

// Peek returns whatever is stored under key, expired or not.
func (s *Store) Peek(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Set replaces the entry for key and stamps it with the current time.
func (s *Store) Set(key string, data any) {
	s.mu.Lock()
	s.entries[key] = Entry{Data: data, FetchedAt: s.now()}
	s.mu.Unlock()
}

// Clear drops the given keys and their snapshots. Fetches already in flight
// for them are not stored.
func (s *Store) Clear(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
		s.gens[k]++
	}
	s.dropSnapshotsLocked(keys)
}

// ClearAll drops every entry and every snapshot.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries)+len(s.ttls))
	for k := range s.entries {
		keys = append(keys, k)
	}
	for k := range s.ttls {
		if _, ok := s.entries[k]; !ok {
			keys = append(keys, k)
		}
	}
	s.entries = make(map[string]Entry)
	s.epoch++
	s.dropSnapshotsLocked(keys)
}

func (s *Store) dropSnapshotsLocked(keys []string) {
	if s.snapshot == nil || len(keys) == 0 {
		return
	}
	if err := s.snapshot.Delete(keys...); err != nil {
		logging.Warn().Err(err).Strs("tables", keys).Msg("Failed to drop cache snapshots")
	}
}

// generation changes whenever key is cleared.
func (s *Store) generation(key string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch + s.gens[key]
}

// commit stores v unless key was cleared after gen was taken.
func (s *Store) commit(key string, v any, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch+s.gens[key] != gen {
		return false
	}
	now := s.now()
	s.entries[key] = Entry{Data: v, FetchedAt: now}
	if s.snapshot != nil {
		if err := s.snapshot.Save(key, v, now); err != nil {
			logging.Warn().Err(err).Str("table", key).Msg("Failed to persist cache snapshot")
		}
	}
	return true
}

// SetEmergency switches emergency mode. It never expires on its own.
func (s *Store) SetEmergency(on bool) {
	if s.emergency.Swap(on) == on {
		return
	}
	metrics.SetEmergencyMode(on)
	if on {
		logging.Warn().Dur("ttl", s.emergencyTTL).Msg("Emergency mode enabled, serving cached data with extended TTL")
	} else {
		logging.Info().Msg("Emergency mode disabled, normal TTLs restored")
	}
}

// Emergency reports whether emergency mode is on.
func (s *Store) Emergency() bool {
	return s.emergency.Load()
}

// LastError returns the message of the most recent fetch if it failed, or ""
// once a later fetch succeeded.
func (s *Store) LastError() string {
	s.lastErrMu.RLock()
	defer s.lastErrMu.RUnlock()
	return s.lastErr
}

// Stats returns a snapshot of the counters.
func (s *Store) Stats() Stats {
	hits, misses := s.hits.Load(), s.misses.Load()
	return Stats{
		Hits:        hits,
		Misses:      misses,
		StaleServed: s.stale.Load(),
		FetchErrors: s.fetchErrs.Load(),
		HitRate:     hitRate(hits, misses),
	}
}

func (s *Store) fresh(key string) (any, bool) {
	ttl := s.TTL(key)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || e.Data == nil {
		return nil, false
	}
	if s.now().Sub(e.FetchedAt) >= ttl {
		return nil, false
	}
	return e.Data, true
}

func (s *Store) recordError(err error) {
	s.fetchErrs.Add(1)
	s.lastErrMu.Lock()
	s.lastErr = err.Error()
	s.lastErrMu.Unlock()
}

func (s *Store) recordSuccess() {
	s.lastErrMu.Lock()
	s.lastErr = ""
	s.lastErrMu.Unlock()
}

// GetOrFetch returns the cached value for key, calling fetch when the entry
// is missing or expired. Concurrent misses for one key share a single fetch.
//
// Stale data is returned instead of an error when the quota gate refuses the
// call, or when fetch fails with an error accepted by quota.Degradable.
func GetOrFetch[V any](ctx context.Context, s *Store, key string, fetch func(context.Context) (V, error)) (V, error) {
	if data, ok := s.fresh(key); ok {
		if v, ok := data.(V); ok {
			s.hits.Add(1)
			metrics.CacheHits.WithLabelValues(key).Inc()
			return v, nil
		}
	}
	return load(ctx, s, key, fetch, false)
}

// Refresh fetches key regardless of the cached entry's age. The quota gate
// and the stale fallback apply as in GetOrFetch.
func Refresh[V any](ctx context.Context, s *Store, key string, fetch func(context.Context) (V, error)) (V, error) {
	return load(ctx, s, key, fetch, true)
}

// Fetch reads key from upstream and stores the result. Unlike GetOrFetch and
// Refresh it never answers with stale rows: a refused or failed call is an
// error. Callers about to write based on the rows use it.
func Fetch[V any](ctx context.Context, s *Store, key string, fetch func(context.Context) (V, error)) (V, error) {
	var zero V
	if !s.gate.CanMakeCall() {
		return zero, fmt.Errorf("fetch %s: %w", key, quota.ErrRateLimitExceeded)
	}
	gen := s.generation(key)
	s.gate.LogCall("get:" + key)
	s.misses.Add(1)
	metrics.CacheMisses.WithLabelValues(key).Inc()

	v, err := fetch(ctx)
	if err != nil {
		s.recordError(err)
		return zero, fmt.Errorf("fetch %s: %w", key, err)
	}
	s.recordSuccess()
	s.commit(key, v, gen)
	return v, nil
}

func load[V any](ctx context.Context, s *Store, key string, fetch func(context.Context) (V, error), force bool) (V, error) {
	var zero V
	gen := s.generation(key)
	flight := key + "#" + strconv.FormatUint(gen, 10)
	if force {
		flight = "refresh:" + flight
	}
	res, err, _ := s.group.Do(flight, func() (any, error) {
		if !force {
			if data, ok := s.fresh(key); ok {
				if v, ok := data.(V); ok {
					return v, nil
				}
			}
		}

		if !s.gate.CanMakeCall() {
			if v, ok := staleValue[V](s, key); ok {
				s.serveStale(key, "rate_limit")
				return v, nil
			}
			return nil, fmt.Errorf("fetch %s: %w", key, quota.ErrRateLimitExceeded)
		}

		s.gate.LogCall("get:" + key)
		s.misses.Add(1)
		metrics.CacheMisses.WithLabelValues(key).Inc()

		v, err := fetch(ctx)
		if err != nil {
			s.recordError(err)
			stale, haveStale := staleValue[V](s, key)
			if !haveStale {
				s.SetEmergency(true)
				return nil, fmt.Errorf("fetch %s: %w", key, err)
			}
			if quota.Degradable(err) {
				logging.Ctx(ctx).Warn().Err(err).Str("table", key).Msg("Upstream degraded, serving stale rows")
				s.serveStale(key, reason(err))
				return stale, nil
			}
			return nil, fmt.Errorf("fetch %s: %w", key, err)
		}

		s.recordSuccess()
		if !s.commit(key, v, gen) {
			logging.Ctx(ctx).Debug().Str("table", key).Msg("Table cleared during fetch, result not cached")
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	v, ok := res.(V)
	if !ok {
		return zero, fmt.Errorf("cache %s holds %T", key, res)
	}
	return v, nil
}

// staleValue returns the expired in-memory entry, falling back to the
// persisted snapshot when the process has not stored key since it started
// or since the last Clear dropped the snapshot.
func staleValue[V any](s *Store, key string) (V, bool) {
	var zero V
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.Data != nil {
		v, ok := e.Data.(V)
		return v, ok
	}
	if s.snapshot == nil {
		return zero, false
	}
	var v V
	fetchedAt, err := s.snapshot.Load(key, &v)
	if err != nil {
		return zero, false
	}
	s.entries[key] = Entry{Data: v, FetchedAt: fetchedAt}
	return v, true
}
func (s *Store) serveStale(key, why string) {
	s.stale.Add(1)
	metrics.CacheStaleServed.WithLabelValues(key, why).Inc()
}

func reason(err error) string {
	switch {
	case errors.Is(err, quota.ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unavailable"
	}
}
