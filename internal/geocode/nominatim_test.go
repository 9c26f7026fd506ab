// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/punchclock/internal/config"
)

func newTestGeocoder(t *testing.T, h http.HandlerFunc) *Nominatim {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.GeocodeConfig{
		BaseURL:   srv.URL,
		UserAgent: "punchclock-test",
		Language:  "th",
		Rate:      1000,
		Timeout:   time.Second,
	})
}

func TestReverse_DisplayName(t *testing.T) {
	t.Parallel()

	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/reverse" || q.Get("lat") != "13.7563" || q.Get("lon") != "100.5018" || q.Get("accept-language") != "th" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("User-Agent") != "punchclock-test" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`{"display_name":"Bangkok, Thailand"}`))
	})

	if got := g.Reverse(context.Background(), 13.7563, 100.5018); got != "Bangkok, Thailand" {
		t.Errorf("Reverse() = %q", got)
	}
}

func TestReverse_FallsBackToCoordinates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) }},
		{"empty result", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"error":"Unable to geocode"}`)) }},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`<html>`)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := newTestGeocoder(t, tt.handler)
			if got := g.Reverse(context.Background(), 16.4419, 102.836); got != "16.4419, 102.836" {
				t.Errorf("Reverse() = %q", got)
			}
		})
	}
}

func TestReverse_Paced(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"display_name":"x"}`))
	}))
	t.Cleanup(srv.Close)
	g := New(config.GeocodeConfig{BaseURL: srv.URL, Rate: 5, Timeout: time.Second})

	start := time.Now()
	for i := 0; i < 3; i++ {
		g.Reverse(context.Background(), 1, 2)
	}
	if elapsed := time.Since(start); elapsed < 350*time.Millisecond {
		t.Errorf("3 lookups at 5/s took %v, want pacing", elapsed)
	}
	if hits.Load() != 3 {
		t.Errorf("hits = %d", hits.Load())
	}
}

func TestReverse_CanceledContext(t *testing.T) {
	t.Parallel()

	g := newTestGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"display_name":"x"}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := g.Reverse(ctx, 1.5, 2); got != "1.5, 2" {
		t.Errorf("Reverse() = %q", got)
	}
	if got := (Disabled{}).Reverse(context.Background(), 1.5, 2); got != "1.5, 2" {
		t.Errorf("Disabled.Reverse() = %q", got)
	}
}
