// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/punchclock/internal/cache"
)

var ict = time.FixedZone("ICT", 7*3600)

// memRepo is an in-memory Repository. Row numbers follow the sheet: MAIN
// data starts at row 2, ON_WORK data at row 3.
type memRepo struct {
	mu       sync.Mutex
	roster   []string
	ledger   []LedgerRecord
	onwork   []OpenSession
	readErr  error
	openErr  error
	closeErr error
}

func (m *memRepo) Roster(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return append([]string(nil), m.roster...), nil
}

func (m *memRepo) OpenSessions(context.Context) ([]OpenSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return append([]OpenSession(nil), m.onwork...), nil
}

func (m *memRepo) Ledger(context.Context) ([]LedgerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return append([]LedgerRecord(nil), m.ledger...), nil
}

func (m *memRepo) AppendLedger(_ context.Context, rec LedgerRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Row = len(m.ledger) + 2
	m.ledger = append(m.ledger, rec)
	return rec.Row, nil
}

func (m *memRepo) CloseLedger(_ context.Context, row int, c Closure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closeErr != nil {
		return m.closeErr
	}
	idx := row - 2
	if idx < 0 || idx >= len(m.ledger) {
		return fmt.Errorf("row %d out of range", row)
	}
	if m.ledger[idx].ClockOut != "" {
		return fmt.Errorf("row %d: %w", row, ErrLedgerRowClosed)
	}
	m.ledger[idx].ClockOut = c.ClockOut
	m.ledger[idx].ClockOutCoords = c.ClockOutCoords
	m.ledger[idx].ClockOutPlace = c.ClockOutPlace
	m.ledger[idx].HoursWorked = c.HoursWorked
	return nil
}

func (m *memRepo) AppendOpenSession(_ context.Context, s OpenSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return m.openErr
	}
	s.Row = len(m.onwork) + 3
	m.onwork = append(m.onwork, s)
	return nil
}

func (m *memRepo) DeleteOpenSession(_ context.Context, s OpenSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.onwork {
		if cur.Name() == s.Name() && cur.ClockIn == s.ClockIn {
			m.onwork = append(m.onwork[:i], m.onwork[i+1:]...)
			for j := i; j < len(m.onwork); j++ {
				m.onwork[j].Row = j + 3
			}
			return nil
		}
	}
	return errors.New("open session not found")
}

func (m *memRepo) openCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.onwork)
}

func (m *memRepo) ledgerRows() []LedgerRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LedgerRecord(nil), m.ledger...)
}

type allowAll struct{}

func (allowAll) CanMakeCall() bool { return true }
func (allowAll) LogCall(string)    {}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev Event) {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
}

func (n *recordingNotifier) actions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Action)
	}
	return out
}

type placeGeocoder struct{ place string }

func (g placeGeocoder) Reverse(context.Context, float64, float64) string { return g.place }

type fixture struct {
	repo     *memRepo
	store    *cache.Store
	clock    *fakeClock
	notifier *recordingNotifier
	resolver *Resolver
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newGatedFixture(t, allowAll{}, nil, opts...)
}

// newGatedFixture builds a fixture whose cache answers to gate and, when
// snapshot is non-nil, persists tables to it.
func newGatedFixture(t *testing.T, gate cache.Gate, snapshot cache.Snapshotter, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		repo:     &memRepo{roster: []string{"Somchai Jaidee", "Suda Dee"}},
		clock:    &fakeClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, ict)},
		notifier: &recordingNotifier{},
	}
	f.store = cache.New(cache.Config{
		TTLs: map[string]time.Duration{
			cache.KeyEmployees: 300 * time.Second,
			cache.KeyOnWork:    60 * time.Second,
			cache.KeyMain:      30 * time.Second,
			cache.KeyStats:     120 * time.Second,
		},
		EmergencyTTL: time.Hour,
	}, gate, cacheOpts(f.clock, snapshot)...)
	base := []Option{
		WithClock(f.clock.Now),
		WithLocation(ict),
		WithNotifier(f.notifier),
		WithGeocoder(placeGeocoder{place: "Khon Kaen"}),
	}
	f.resolver = NewResolver(f.repo, f.store, append(base, opts...)...)
	return f
}

func cacheOpts(clock *fakeClock, snapshot cache.Snapshotter) []cache.Option {
	opts := []cache.Option{cache.WithClock(clock.Now)}
	if snapshot != nil {
		opts = append(opts, cache.WithSnapshot(snapshot))
	}
	return opts
}

func (f *fixture) clockIn(t *testing.T, name string) *ClockInResult {
	t.Helper()
	res, err := f.resolver.ClockIn(context.Background(), ClockInRequest{
		Employee: name, Lat: 16.4419, Lon: 102.836, ChatName: "line-" + name, ChatPicture: "https://img/p.png",
	})
	if err != nil {
		t.Fatalf("ClockIn(%q) error = %v", name, err)
	}
	return res
}

func TestClockIn_CaseAndSpacingVariant(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	res := f.clockIn(t, "somchai   jaidee")
	if res.Time != "08:00:00" || res.Timestamp != "2026-03-02 08:00:00" {
		t.Errorf("result = %+v", res)
	}
	if res.MainRow != 2 {
		t.Errorf("MainRow = %d, want 2", res.MainRow)
	}

	st, err := f.resolver.CheckStatus(context.Background(), "Somchai Jaidee")
	if err != nil {
		t.Fatal(err)
	}
	if !st.IsOnWork() {
		t.Fatal("status for the canonical name should find the session")
	}
	if st.Session.MainRowRef != 2 || st.Session.Status != OnWorkLabel {
		t.Errorf("session = %+v", st.Session)
	}
	if len(st.Suggestions) != 1 || st.Suggestions[0] != "somchai   jaidee" {
		t.Errorf("Suggestions = %v", st.Suggestions)
	}

	rows := f.repo.ledgerRows()
	if len(rows) != 1 || !rows[0].IsOpen() {
		t.Fatalf("ledger = %+v", rows)
	}
	if rows[0].ClockInCoords != "16.4419,102.836" || rows[0].ClockInPlace != "Khon Kaen" {
		t.Errorf("ledger row = %+v", rows[0])
	}
	if rows[0].PictureFormula != `=IMAGE("https://img/p.png")` {
		t.Errorf("PictureFormula = %q", rows[0].PictureFormula)
	}
}

func TestClockIn_RejectsDoubleClockIn(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.clockIn(t, "Suda Dee")
	f.clock.Advance(time.Minute)

	_, err := f.resolver.ClockIn(context.Background(), ClockInRequest{Employee: "suda dee", Lat: 1, Lon: 2})
	var already *AlreadyClockedInError
	if !errors.As(err, &already) {
		t.Fatalf("err = %v, want AlreadyClockedInError", err)
	}
	if !errors.Is(err, ErrAlreadyClockedIn) || already.ClockIn != "2026-03-02 08:00:00" {
		t.Errorf("err = %#v", already)
	}
	if n := len(f.repo.ledgerRows()); n != 1 {
		t.Errorf("ledger rows = %d, want 1", n)
	}
	if f.repo.openCount() != 1 {
		t.Errorf("open sessions = %d, want 1", f.repo.openCount())
	}
}

func TestClockIn_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.resolver.ClockIn(context.Background(), ClockInRequest{Employee: "   "})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	_, err = f.resolver.ClockOut(context.Background(), ClockOutRequest{})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestClockIn_OpenSessionFailurePropagates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.repo.openErr = errors.New("sheet ON WORK missing")
	_, err := f.resolver.ClockIn(context.Background(), ClockInRequest{Employee: "Suda Dee"})
	if err == nil || !errors.Is(err, f.repo.openErr) {
		t.Fatalf("err = %v", err)
	}
	if len(f.notifier.actions()) != 0 {
		t.Error("no event should be published for a failed clock-in")
	}
}

func TestClockIn_GeocoderFallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithGeocoder(nil))
	f.clockIn(t, "Suda Dee")
	if got := f.repo.ledgerRows()[0].ClockInPlace; got != "16.4419, 102.836" {
		t.Errorf("ClockInPlace = %q, want coordinates", got)
	}
}

func TestClockOut_WithoutClockIn(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.resolver.ClockOut(context.Background(), ClockOutRequest{Employee: "Suda Dee"})
	var notIn *NotClockedInError
	if !errors.As(err, &notIn) || !errors.Is(err, ErrNotClockedIn) {
		t.Fatalf("err = %v, want NotClockedInError", err)
	}
	if len(notIn.Suggestions) != 0 {
		t.Errorf("Suggestions = %v", notIn.Suggestions)
	}
	if len(f.repo.ledgerRows()) != 0 {
		t.Error("ledger must not change")
	}
}

func TestClockOut_HoursWorked(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.clockIn(t, "Somchai Jaidee")
	f.clock.Advance(2*time.Hour + 15*time.Minute)

	res, err := f.resolver.ClockOut(context.Background(), ClockOutRequest{Employee: "somchai jaidee", Lat: 16.5, Lon: 102.9})
	if err != nil {
		t.Fatalf("ClockOut() error = %v", err)
	}
	if res.Hours != "2.25" || res.Time != "10:15:00" || res.Tier != TierBackRef {
		t.Errorf("result = %+v", res)
	}

	row := f.repo.ledgerRows()[0]
	if row.ClockOut != "2026-03-02 10:15:00" || row.HoursWorked != "2.25" {
		t.Errorf("ledger row = %+v", row)
	}
	if row.ClockOutCoords != "16.5,102.9" || row.ClockOutPlace != "Khon Kaen" {
		t.Errorf("ledger row = %+v", row)
	}
	if f.repo.openCount() != 0 {
		t.Error("open session should be deleted")
	}

	want := []string{ActionClockIn, ActionClockOut}
	if got := f.notifier.actions(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", got, want)
	}

	if _, err := f.resolver.ClockOut(context.Background(), ClockOutRequest{Employee: "Somchai Jaidee"}); !errors.Is(err, ErrNotClockedIn) {
		t.Errorf("second clock-out err = %v, want ErrNotClockedIn", err)
	}
}

func TestClockOut_OverlappingNames(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	// Both rows lack back-references, so the closest clock-in decides.
	f.repo.ledger = []LedgerRecord{
		{Row: 2, EmployeeName: "Som", ClockIn: "2026-03-02 07:00:00"},
		{Row: 3, EmployeeName: "Somchai", ClockIn: "2026-03-02 07:30:00"},
	}
	f.repo.onwork = []OpenSession{
		{Row: 3, SystemName: "Som", EmployeeName: "Som", ClockIn: "2026-03-02 07:00:00"},
		{Row: 4, SystemName: "Somchai", EmployeeName: "Somchai", ClockIn: "2026-03-02 07:30:00"},
	}

	res, err := f.resolver.ClockOut(context.Background(), ClockOutRequest{Employee: "Somchai"})
	if err != nil {
		t.Fatal(err)
	}
	if res.MainRow != 3 || res.Tier != TierClosest {
		t.Errorf("result = %+v, want row 3 via closest", res)
	}
	rows := f.repo.ledgerRows()
	if !rows[0].IsOpen() || rows[1].IsOpen() {
		t.Errorf("Som's row must stay open: %+v", rows)
	}
	if res.Hours != "0.50" {
		t.Errorf("Hours = %q, want 0.50", res.Hours)
	}
}

func TestClockOut_NegativeDurationClamped(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.repo.ledger = []LedgerRecord{{Row: 2, EmployeeName: "Suda Dee", ClockIn: "2026-03-02 09:00:00"}}
	f.repo.onwork = []OpenSession{{Row: 3, SystemName: "Suda Dee", ClockIn: "2026-03-02 09:00:00", MainRowRef: 2}}

	res, err := f.resolver.ClockOut(context.Background(), ClockOutRequest{Employee: "Suda Dee"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Hours != "0.00" {
		t.Errorf("Hours = %q, want 0.00", res.Hours)
	}
}

func TestClockOut_ReconciliationFailed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.repo.ledger = []LedgerRecord{{Row: 2, EmployeeName: "Suda Dee", ClockIn: "2026-03-01 08:00:00", ClockOut: "2026-03-01 17:00:00"}}
	f.repo.onwork = []OpenSession{{Row: 3, SystemName: "Suda Dee", ClockIn: "2026-03-02 08:00:00", MainRowRef: 2}}

	_, err := f.resolver.ClockOut(context.Background(), ClockOutRequest{Employee: "Suda Dee"})
	if !errors.Is(err, ErrReconciliationFailed) {
		t.Fatalf("err = %v, want ErrReconciliationFailed", err)
	}
	if got := f.repo.ledgerRows()[0].ClockOut; got != "2026-03-01 17:00:00" {
		t.Errorf("closed row was rewritten: %q", got)
	}
	if f.repo.openCount() != 1 {
		t.Error("open session must stay when reconciliation fails")
	}
}

func TestClockOut_ReadsLedgerFresh(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.repo.onwork = []OpenSession{{Row: 3, SystemName: "Suda Dee", ClockIn: "2026-03-02 07:00:00", MainRowRef: 2}}
	// Cached MAIN predates the row.
	f.store.Set(cache.KeyMain, []LedgerRecord{})
	f.repo.ledger = []LedgerRecord{{Row: 2, EmployeeName: "Suda Dee", ClockIn: "2026-03-02 07:00:00"}}

	res, err := f.resolver.ClockOut(context.Background(), ClockOutRequest{Employee: "Suda Dee"})
	if err != nil {
		t.Fatal(err)
	}
	if res.MainRow != 2 {
		t.Errorf("MainRow = %d", res.MainRow)
	}
}

func TestResolver_UpstreamFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.repo.readErr = fmt.Errorf("sheets: %w", ErrUpstreamUnavailable)
	_, err := f.resolver.ClockIn(context.Background(), ClockInRequest{Employee: "Suda Dee"})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
	if len(f.repo.ledgerRows()) != 0 {
		t.Error("no ledger row may be written when the roster cannot be read")
	}
}

func TestClockIn_ConcurrentRequestsOpenOneSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "Suda Dee"
			if i%2 == 1 {
				name = "  suda   dee "
			}
			_, err := f.resolver.ClockIn(context.Background(), ClockInRequest{Employee: name})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !errors.Is(err, ErrAlreadyClockedIn) {
				t.Errorf("unexpected error %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successes = %d, want 1", successes)
	}
	if f.repo.openCount() != 1 || len(f.repo.ledgerRows()) != 1 {
		t.Errorf("open = %d, ledger = %d", f.repo.openCount(), len(f.repo.ledgerRows()))
	}
	if f.resolver.locks.size() != 0 {
		t.Error("locks should be released")
	}
}

func TestSequentialShiftsKeepOneOpenSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	for day := 0; day < 3; day++ {
		f.clockIn(t, "Suda Dee")
		if f.repo.openCount() != 1 {
			t.Fatalf("day %d: open sessions = %d", day, f.repo.openCount())
		}
		f.clock.Advance(8 * time.Hour)
		if _, err := f.resolver.ClockOut(context.Background(), ClockOutRequest{Employee: "Suda Dee"}); err != nil {
			t.Fatalf("day %d: %v", day, err)
		}
		if f.repo.openCount() != 0 {
			t.Fatalf("day %d: open sessions after clock-out = %d", day, f.repo.openCount())
		}
		f.clock.Advance(16 * time.Hour)
	}
	for _, row := range f.repo.ledgerRows() {
		if row.IsOpen() || row.HoursWorked != "8.00" {
			t.Errorf("row = %+v", row)
		}
	}
}

func TestRefreshAllAndWarm(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.Set(cache.KeyMain, []LedgerRecord{{Row: 2}})
	if err := f.resolver.RefreshAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.store.IsValid(cache.KeyMain) {
		t.Error("RefreshAll should drop MAIN")
	}
	if !f.store.IsValid(cache.KeyOnWork) || !f.store.IsValid(cache.KeyEmployees) {
		t.Error("RefreshAll should reload ON_WORK and EMPLOYEES")
	}

	if err := f.resolver.Warm(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !f.store.IsValid(cache.KeyStats) {
		t.Error("Warm should cache stats")
	}
}
