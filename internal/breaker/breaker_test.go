// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package breaker

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	b := New("test-open", Settings{MinRequests: 3, Timeout: time.Hour})
	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		if _, err := Execute(b, func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d err = %v", i, err)
		}
	}
	if b.State() != "open" {
		t.Fatalf("State() = %s, want open", b.State())
	}
	calls := 0
	_, err := Execute(b, func() (int, error) { calls++; return 1, nil })
	if !IsRejection(err) || calls != 0 {
		t.Errorf("open breaker should reject without calling, err = %v calls = %d", err, calls)
	}
}

func TestBreakerIsSuccessful(t *testing.T) {
	t.Parallel()

	notFound := errors.New("not found")
	b := New("test-success", Settings{
		MinRequests:  2,
		IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, notFound) },
	})
	for i := 0; i < 5; i++ {
		_, _ = Execute(b, func() (string, error) { return "", notFound })
	}
	if b.State() != "closed" {
		t.Errorf("State() = %s, want closed", b.State())
	}
	got, err := Execute(b, func() (string, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Errorf("Execute() = %q, %v", got, err)
	}
}
