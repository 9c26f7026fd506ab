// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	jm := newTestJWT(t)
	enf, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	mw := NewMiddleware(jm, enf)

	adminToken, _ := jm.GenerateToken(User{Username: "admin", Role: RoleAdmin})
	viewerToken, _ := jm.GenerateToken(User{Username: "v", Role: "viewer"})

	var seen *Claims
	h := mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"missing", "", http.StatusUnauthorized, "Access token required"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "Access token required"},
		{"invalid", "Bearer nope", http.StatusForbidden, "Invalid token"},
		{"wrong role", "Bearer " + viewerToken, http.StatusForbidden, "Insufficient permissions"},
		{"admin", "Bearer " + adminToken, http.StatusOK, ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != tt.wantCode {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.wantCode)
		}
		if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
			t.Errorf("%s: body = %s, want %q", tt.name, rec.Body.String(), tt.wantBody)
		}
	}
	if seen == nil || seen.Username != "admin" {
		t.Errorf("claims in context = %+v", seen)
	}
}
