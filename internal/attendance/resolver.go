// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/punchclock/internal/cache"
	"github.com/tomtom215/punchclock/internal/logging"
	"github.com/tomtom215/punchclock/internal/metrics"
)

// Event actions.
const (
	ActionClockIn  = "clockin"
	ActionClockOut = "clockout"
)

// DefaultTolerance is the largest clock-in gap accepted when picking between
// several open ledger rows.
const DefaultTolerance = 5 * time.Minute

// warmTimeout bounds the background refresh scheduled after a mutation.
const warmTimeout = 30 * time.Second

// Resolver serializes clock-ins and clock-outs per employee and keeps the
// ledger and the open-session roster consistent.
type Resolver struct {
	repo     Repository
	store    *cache.Store
	geocoder Geocoder
	notifier Notifier
	locks    *keyedMutex

	now       func() time.Time
	loc       *time.Location
	tolerance time.Duration
	warmDelay time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLocation sets the timezone timestamps are written in.
func WithLocation(loc *time.Location) Option {
	return func(r *Resolver) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithTolerance sets the clock-in gap accepted by the closest-row search.
func WithTolerance(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.tolerance = d
		}
	}
}

// WithWarmDelay schedules a cache refresh d after every mutation. Zero
// disables it.
func WithWarmDelay(d time.Duration) Option {
	return func(r *Resolver) { r.warmDelay = d }
}

// WithGeocoder sets the reverse geocoder.
func WithGeocoder(g Geocoder) Option {
	return func(r *Resolver) { r.geocoder = g }
}

// WithNotifier sets the event sink.
func WithNotifier(n Notifier) Option {
	return func(r *Resolver) { r.notifier = n }
}

// NewResolver creates a Resolver reading through store.
func NewResolver(repo Repository, store *cache.Store, opts ...Option) *Resolver {
	r := &Resolver{
		repo:      repo,
		store:     store,
		locks:     newKeyedMutex(),
		now:       time.Now,
		loc:       time.UTC,
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Location returns the timezone used for timestamps.
func (r *Resolver) Location() *time.Location { return r.loc }

// Now returns the current time in the resolver's timezone.
func (r *Resolver) Now() time.Time { return r.now().In(r.loc) }

// Employees returns the roster names.
func (r *Resolver) Employees(ctx context.Context) ([]string, error) {
	return cache.GetOrFetch(ctx, r.store, cache.KeyEmployees, r.repo.Roster)
}

// OpenSessions returns the ON_WORK rows.
func (r *Resolver) OpenSessions(ctx context.Context) ([]OpenSession, error) {
	return cache.GetOrFetch(ctx, r.store, cache.KeyOnWork, r.repo.OpenSessions)
}

// Ledger returns the MAIN rows.
func (r *Resolver) Ledger(ctx context.Context) ([]LedgerRecord, error) {
	return cache.GetOrFetch(ctx, r.store, cache.KeyMain, r.repo.Ledger)
}

// freshOpenSessions reads ON_WORK for a mutation. Cached or stale rows could
// predate another clock-in or clock-out, so the read always goes upstream.
func (r *Resolver) freshOpenSessions(ctx context.Context) ([]OpenSession, error) {
	return cache.Fetch(ctx, r.store, cache.KeyOnWork, r.repo.OpenSessions)
}

// ClockIn records the start of a session.
func (r *Resolver) ClockIn(ctx context.Context, req ClockInRequest) (*ClockInResult, error) {
	if strings.TrimSpace(req.Employee) == "" {
		return nil, &ValidationError{Field: "employee"}
	}
	ctx = logging.ContextWithEmployee(ctx, req.Employee)
	log := logging.Ctx(ctx)

	unlock := r.locks.Lock(Normalize(req.Employee))
	defer unlock()

	sessions, err := r.freshOpenSessions(ctx)
	if err != nil {
		metrics.RecordAttendance(ActionClockIn, "error")
		return nil, fmt.Errorf("read open sessions: %w", err)
	}
	if s, ok := findSession(sessions, req.Employee); ok {
		metrics.RecordAttendance(ActionClockIn, "already_in")
		log.Info().Str("since", s.ClockIn).Msg("Clock-in rejected, session already open")
		return nil, &AlreadyClockedInError{Employee: req.Employee, ClockIn: s.ClockIn}
	}

	now := r.Now()
	ts := FormatTimestamp(now)
	coords := CoordinatesCell(req.Lat, req.Lon)
	place := r.placeName(ctx, req.Lat, req.Lon)

	row, err := r.repo.AppendLedger(ctx, LedgerRecord{
		EmployeeName:   req.Employee,
		DisplayName:    req.ChatName,
		PictureFormula: pictureFormula(req.ChatPicture),
		ClockIn:        ts,
		UserInfo:       req.UserInfo,
		ClockInCoords:  coords,
		ClockInPlace:   place,
	})
	if err != nil {
		metrics.RecordAttendance(ActionClockIn, "error")
		return nil, fmt.Errorf("append ledger row: %w", err)
	}

	err = r.repo.AppendOpenSession(ctx, OpenSession{
		SystemName:   req.Employee,
		EmployeeName: req.Employee,
		ClockIn:      ts,
		Status:       OnWorkLabel,
		Note:         req.UserInfo,
		Coordinates:  coords,
		PlaceName:    place,
		MainRowRef:   row,
		ChatName:     req.ChatName,
		ChatPicture:  req.ChatPicture,
	})
	if err != nil {
		r.invalidate()
		metrics.RecordAttendance(ActionClockIn, "error")
		log.Error().Err(err).Int("main_row", row).Msg("Ledger row written but open session was not; the row needs manual cleanup")
		return nil, fmt.Errorf("append open session: %w", err)
	}

	r.invalidate()
	r.scheduleWarm()
	r.notify(ctx, ActionClockIn, now, map[string]any{
		"employee":  req.Employee,
		"lat":       req.Lat,
		"lon":       req.Lon,
		"line_name": req.ChatName,
		"userinfo":  req.UserInfo,
		"timestamp": ts,
	})
	metrics.RecordAttendance(ActionClockIn, "success")
	log.Info().Int("main_row", row).Str("place", place).Msg("Clock-in recorded")

	return &ClockInResult{
		Employee:  req.Employee,
		Timestamp: ts,
		Time:      TimeOfDay(ts, r.loc),
		MainRow:   row,
	}, nil
}

// ClockOut closes the employee's open session.
func (r *Resolver) ClockOut(ctx context.Context, req ClockOutRequest) (*ClockOutResult, error) {
	if strings.TrimSpace(req.Employee) == "" {
		return nil, &ValidationError{Field: "employee"}
	}
	ctx = logging.ContextWithEmployee(ctx, req.Employee)
	log := logging.Ctx(ctx)

	unlock := r.locks.Lock(Normalize(req.Employee))
	defer unlock()

	sessions, err := r.freshOpenSessions(ctx)
	if err != nil {
		metrics.RecordAttendance(ActionClockOut, "error")
		return nil, fmt.Errorf("read open sessions: %w", err)
	}
	session, ok := findSession(sessions, req.Employee)
	if !ok {
		metrics.RecordAttendance(ActionClockOut, "not_in")
		log.Info().Msg("Clock-out rejected, no open session")
		return nil, &NotClockedInError{Employee: req.Employee, Suggestions: suggest(sessions, req.Employee)}
	}

	now := r.Now()
	ts := FormatTimestamp(now)
	hours := r.hoursSince(ctx, session.ClockIn, now)
	coords := CoordinatesCell(req.Lat, req.Lon)
	place := r.placeName(ctx, req.Lat, req.Lon)

	ledger, err := cache.Fetch(ctx, r.store, cache.KeyMain, r.repo.Ledger)
	if err != nil {
		metrics.RecordAttendance(ActionClockOut, "error")
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	rec, tier := Locate(ledger, req.Employee, session, r.tolerance, r.loc)
	metrics.ReconciliationTier.WithLabelValues(string(tier)).Inc()
	recErr := &ReconciliationError{
		Employee:       req.Employee,
		MainRowRef:     session.MainRowRef,
		SessionClockIn: session.ClockIn,
		LedgerRows:     len(ledger),
	}
	if tier == TierNone || !rec.IsOpen() {
		metrics.RecordAttendance(ActionClockOut, "unreconciled")
		log.Error().
			Int("main_row_ref", session.MainRowRef).
			Str("session_clock_in", session.ClockIn).
			Str("session_name", session.Name()).
			Int("ledger_rows", len(ledger)).
			Msg("No ledger row found for open session")
		return nil, recErr
	}

	err = r.repo.CloseLedger(ctx, rec.Row, Closure{
		ClockOut:       ts,
		ClockOutCoords: coords,
		ClockOutPlace:  place,
		HoursWorked:    FormatHours(hours),
	})
	if errors.Is(err, ErrLedgerRowClosed) {
		r.store.Clear(cache.KeyMain, cache.KeyStats)
		metrics.RecordAttendance(ActionClockOut, "unreconciled")
		log.Error().Int("main_row", rec.Row).Str("tier", string(tier)).Msg("Ledger row closed by someone else, clock-out not written")
		recErr.Row, recErr.Err = rec.Row, err
		return nil, recErr
	}
	if err != nil {
		metrics.RecordAttendance(ActionClockOut, "error")
		return nil, fmt.Errorf("update ledger row %d: %w", rec.Row, err)
	}

	if err := r.repo.DeleteOpenSession(ctx, session); err != nil {
		log.Error().Err(err).Int("onwork_row", session.Row).Msg("Failed to remove open session after clock-out")
	}

	r.invalidate()
	r.scheduleWarm()
	r.notify(ctx, ActionClockOut, now, map[string]any{
		"employee":    req.Employee,
		"lat":         req.Lat,
		"lon":         req.Lon,
		"line_name":   req.ChatName,
		"timestamp":   ts,
		"hoursWorked": hours,
	})
	metrics.RecordAttendance(ActionClockOut, "success")
	log.Info().Int("main_row", rec.Row).Str("tier", string(tier)).Str("hours", FormatHours(hours)).Msg("Clock-out recorded")

	return &ClockOutResult{
		Employee:  req.Employee,
		Timestamp: ts,
		Time:      TimeOfDay(ts, r.loc),
		Hours:     FormatHours(hours),
		MainRow:   rec.Row,
		Tier:      tier,
	}, nil
}

// CheckStatus reports whether employee has an open session.
func (r *Resolver) CheckStatus(ctx context.Context, employee string) (*Status, error) {
	if strings.TrimSpace(employee) == "" {
		return nil, &ValidationError{Field: "employee"}
	}
	sessions, err := r.OpenSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read open sessions: %w", err)
	}
	st := &Status{Employee: employee, AllCurrent: sessions, Suggestions: []string{}}
	if s, ok := findSession(sessions, employee); ok {
		st.Session = &s
	}
	for _, s := range suggest(sessions, employee) {
		if s.SystemName != "" {
			st.Suggestions = append(st.Suggestions, s.SystemName)
		} else {
			st.Suggestions = append(st.Suggestions, s.EmployeeName)
		}
	}
	return st, nil
}

// Warm refreshes the open-session roster and the admin stats.
func (r *Resolver) Warm(ctx context.Context) error {
	if _, err := r.OpenSessions(ctx); err != nil {
		return err
	}
	_, err := r.AdminStats(ctx)
	return err
}

// RefreshAll drops every cached table and reloads ON_WORK and EMPLOYEES.
func (r *Resolver) RefreshAll(ctx context.Context) error {
	r.store.ClearAll()
	if _, err := r.OpenSessions(ctx); err != nil {
		return err
	}
	_, err := r.Employees(ctx)
	return err
}

func (r *Resolver) invalidate() {
	r.store.Clear(cache.KeyOnWork, cache.KeyMain, cache.KeyStats)
}

func (r *Resolver) scheduleWarm() {
	if r.warmDelay <= 0 {
		return
	}
	time.AfterFunc(r.warmDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
		defer cancel()
		if err := r.Warm(ctx); err != nil {
			logging.Warn().Err(err).Msg("Cache warm after mutation failed")
		}
	})
}

func (r *Resolver) placeName(ctx context.Context, lat, lon float64) string {
	if r.geocoder == nil {
		return CoordinatesText(lat, lon)
	}
	return r.geocoder.Reverse(ctx, lat, lon)
}

func (r *Resolver) notify(ctx context.Context, action string, at time.Time, data map[string]any) {
	if r.notifier == nil {
		return
	}
	r.notifier.Notify(ctx, Event{Action: action, Data: data, Timestamp: at.UTC()})
}

// hoursSince returns the fractional hours between clockIn and now, clamped
// at zero.
func (r *Resolver) hoursSince(ctx context.Context, clockIn string, now time.Time) float64 {
	in, err := ParseTimestamp(clockIn, r.loc)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Unreadable clock-in time, recording zero hours")
		return 0
	}
	h := now.Sub(in).Hours()
	if h < 0 {
		logging.Ctx(ctx).Warn().Float64("hours", h).Str("clock_in", clockIn).Msg("Negative working time, clamping to zero")
		return 0
	}
	return h
}

// findSession returns the open session for employee. A session whose name
// equals the input after normalization wins over an earlier fuzzy match, so
// "Somchai" does not land on "Som" when both are on shift.
func findSession(sessions []OpenSession, employee string) (OpenSession, bool) {
	want := Normalize(employee)
	for _, s := range sessions {
		if want != "" && (Normalize(s.SystemName) == want || Normalize(s.EmployeeName) == want) {
			return s, true
		}
	}
	for _, s := range sessions {
		if s.Matches(employee) {
			return s, true
		}
	}
	return OpenSession{}, false
}

func suggest(sessions []OpenSession, employee string) []Suggestion {
	var out []Suggestion
	for _, s := range sessions {
		if s.SystemName == "" && s.EmployeeName == "" {
			continue
		}
		if s.Matches(employee) {
			out = append(out, Suggestion{SystemName: s.SystemName, EmployeeName: s.EmployeeName})
		}
	}
	return out
}

func pictureFormula(url string) string {
	return `=IMAGE("` + url + `")`
}
