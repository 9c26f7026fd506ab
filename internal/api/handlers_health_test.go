// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHealth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "healthy" || body["environment"] != "test" {
		t.Errorf("body = %v", body)
	}
	if ka, _ := body["keepAlive"].(map[string]any); ka["pingCount"] != float64(3) || ka["enabled"] != true {
		t.Errorf("keepAlive = %v", body["keepAlive"])
	}
	if cfg, _ := body["config"].(map[string]any); cfg["hasLiffId"] != true || cfg["liffIdLength"] != float64(9) {
		t.Errorf("config = %v", body["config"])
	}
	if _, err := time.Parse(time.RFC3339Nano, body["timestamp"].(string)); err != nil {
		t.Errorf("timestamp %v: %v", body["timestamp"], err)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}
}

func TestPingAndConfig(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	if body := decode(t, s.do(t, http.MethodGet, "/api/ping", "", "")); body["status"] != "pong" {
		t.Errorf("ping = %v", body)
	}

	body := decode(t, s.do(t, http.MethodGet, "/api/config", "", ""))
	data, _ := body["data"].(map[string]any)
	if data["liffId"] != "1234-abcd" || data["apiUrl"] != "https://punch.example.com/api" || data["environment"] != "test" {
		t.Errorf("config = %v", data)
	}
	if f, _ := data["features"].(map[string]any); f["liffEnabled"] != true || f["keepAlive"] != false {
		t.Errorf("features = %v", data["features"])
	}
}

func TestWebhookPing_Secret(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"header", "hook-secret", "", http.StatusOK},
		{"query", "", "?secret=hook-secret", http.StatusOK},
		{"wrong", "nope", "", http.StatusUnauthorized},
		{"missing", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/webhook/ping"+tt.query, nil)
		if tt.header != "" {
			req.Header.Set("X-Webhook-Secret", tt.header)
		}
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
		}
		if tt.want == http.StatusOK && decode(t, rec)["status"] != "received" {
			t.Errorf("%s: body %s", tt.name, rec.Body.String())
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/clockin", nil)
	req.Header.Set("Origin", "https://liff.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://liff.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	s.do(t, http.MethodGet, "/api/ping", "", "")
	rec := s.do(t, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "punchclock_") {
		t.Errorf("metrics: status %d", rec.Code)
	}
}

func TestRecoverer(t *testing.T) {
	t.Parallel()

	h := Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "Internal server error" {
		t.Errorf("body = %v", body)
	}
}

func TestRateLimitCustom(t *testing.T) {
	t.Parallel()

	mw := NewChiMiddleware(nil)
	h := mw.RateLimitCustom(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/api/clockin", nil)
		req.RemoteAddr = "203.0.113.9:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [204 204 429]", codes)
	}

	disabled := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true})
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	if got := disabled.RateLimitLogin()(next); got == nil {
		t.Error("disabled limiter returned nil handler")
	}
}
