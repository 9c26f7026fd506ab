// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package api

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tomtom215/punchclock/internal/attendance"
	"github.com/tomtom215/punchclock/internal/quota"
	"github.com/tomtom215/punchclock/internal/report"
)

func TestAdminLogin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{"missing password", `{"username":"admin"}`, http.StatusBadRequest, msgLoginMissing},
		{"empty body", ``, http.StatusBadRequest, msgLoginMissing},
		{"wrong password", `{"username":"admin","password":"nope"}`, http.StatusUnauthorized, msgLoginInvalid},
		{"unknown user", `{"username":"ghost","password":"` + testPassword + `"}`, http.StatusUnauthorized, msgLoginInvalid},
		{"success", `{"username":"admin","password":"` + testPassword + `"}`, http.StatusOK, msgLoginOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t, nil)
			rec := s.do(t, http.MethodPost, "/api/admin/login", tt.body, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			body := decode(t, rec)
			if body["message"] != tt.wantMessage {
				t.Errorf("message = %v, want %q", body["message"], tt.wantMessage)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			token, _ := body["token"].(string)
			if token == "" {
				t.Fatal("token missing")
			}
			user, _ := body["user"].(map[string]any)
			if user["username"] != "admin" || user["name"] != "Administrator" || user["role"] != "admin" || user["id"] != float64(1) {
				t.Errorf("user = %v", user)
			}

			// The issued token opens the admin API.
			rec = s.do(t, http.MethodGet, "/api/admin/verify-token", "", token)
			if rec.Code != http.StatusOK {
				t.Fatalf("verify-token status = %d; body %s", rec.Code, rec.Body.String())
			}
			if u, _ := decode(t, rec)["user"].(map[string]any); u["username"] != "admin" {
				t.Errorf("verify-token user = %v", u)
			}
		})
	}
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	routes := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/admin/verify-token"},
		{http.MethodGet, "/api/admin/stats"},
		{http.MethodGet, "/api/admin/export/daily?date=2026-03-02"},
		{http.MethodGet, "/api/admin/api-stats"},
		{http.MethodPost, "/api/admin/refresh-cache"},
		{http.MethodGet, "/api/admin/quota-status"},
		{http.MethodPost, "/api/admin/emergency-mode"},
	}
	for _, rt := range routes {
		if rec := s.do(t, rt.method, rt.path, "", ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status %d, want 401", rt.method, rt.path, rec.Code)
		}
		if rec := s.do(t, rt.method, rt.path, "", "not-a-jwt"); rec.Code != http.StatusForbidden {
			t.Errorf("%s %s with bad token: status %d, want 403", rt.method, rt.path, rec.Code)
		}
	}
	if s.attendance.refreshes != 0 {
		t.Error("refresh ran without authentication")
	}
}

func TestAdminStats(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, &fakeAttendance{stats: &attendance.AdminStats{
		TotalEmployees: 10,
		PresentToday:   3,
		WorkingNow:     3,
		AbsentToday:    7,
		WorkingEmployees: []attendance.WorkingEmployee{
			{Name: "Somchai", ClockIn: "08:00", WorkingHours: "2.5 ชม."},
		},
	}})

	rec := s.do(t, http.MethodGet, "/api/admin/stats", "", s.adminToken(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}
	data, _ := decode(t, rec)["data"].(map[string]any)
	if data["totalEmployees"] != float64(10) || data["absentToday"] != float64(7) {
		t.Errorf("data = %v", data)
	}

	s = newTestServer(t, nil)
	rec = s.do(t, http.MethodGet, "/api/admin/stats", "", s.adminToken(t))
	if rec.Code != http.StatusInternalServerError || decode(t, rec)["error"] != "Failed to get stats" {
		t.Errorf("failure: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestExport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantQuery  attendance.ReportQuery
	}{
		{"invalid type", "/api/admin/export/weekly", http.StatusBadRequest, attendance.ReportQuery{}},
		{"daily without date", "/api/admin/export/daily", http.StatusBadRequest, attendance.ReportQuery{}},
		{"daily bad date", "/api/admin/export/daily?date=02/03/2026", http.StatusBadRequest, attendance.ReportQuery{}},
		{"monthly bad month", "/api/admin/export/monthly?month=13&year=2026", http.StatusBadRequest, attendance.ReportQuery{}},
		{"range reversed", "/api/admin/export/range?startDate=2026-03-10&endDate=2026-03-01", http.StatusBadRequest, attendance.ReportQuery{}},
		{
			"daily", "/api/admin/export/daily?date=2026-03-02", http.StatusOK,
			attendance.ReportQuery{Kind: attendance.ReportDaily, Date: time.Date(2026, 3, 2, 0, 0, 0, 0, bangkok)},
		},
		{
			"monthly", "/api/admin/export/monthly?month=3&year=2026", http.StatusOK,
			attendance.ReportQuery{Kind: attendance.ReportMonthly, Month: 3, Year: 2026},
		},
		{
			"range", "/api/admin/export/range?startDate=2026-03-01&endDate=2026-03-31", http.StatusOK,
			attendance.ReportQuery{
				Kind:  attendance.ReportRange,
				Start: time.Date(2026, 3, 1, 0, 0, 0, 0, bangkok),
				End:   time.Date(2026, 3, 31, 0, 0, 0, 0, bangkok),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t, &fakeAttendance{rows: []attendance.ReportRow{
				{Employee: "Somchai", ClockIn: "2026-03-02 08:00:00", ClockOut: "2026-03-02 17:00:00", WorkingHours: "9.00"},
			}})
			rec := s.do(t, http.MethodGet, tt.path, "", s.adminToken(t))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				if body := decode(t, rec); body["success"] != false {
					t.Errorf("success = %v", body["success"])
				}
				if len(s.attendance.queries) != 0 {
					t.Error("report queried for an invalid request")
				}
				return
			}

			if got := rec.Header().Get("Content-Type"); got != report.ContentType {
				t.Errorf("Content-Type = %q", got)
			}
			if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=report.xlsx" {
				t.Errorf("Content-Disposition = %q", got)
			}
			if len(s.attendance.queries) != 1 {
				t.Fatalf("queries = %d, want 1", len(s.attendance.queries))
			}
			q := s.attendance.queries[0]
			if q.Kind != tt.wantQuery.Kind || !q.Date.Equal(tt.wantQuery.Date) || q.Month != tt.wantQuery.Month ||
				q.Year != tt.wantQuery.Year || !q.Start.Equal(tt.wantQuery.Start) || !q.End.Equal(tt.wantQuery.End) {
				t.Errorf("query = %+v, want %+v", q, tt.wantQuery)
			}

			f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
			if err != nil {
				t.Fatalf("body is not a workbook: %v", err)
			}
			defer f.Close()
			if v, _ := f.GetCellValue(report.SheetName, "B7"); v != "Somchai" {
				t.Errorf("B7 = %q, want Somchai", v)
			}
		})
	}
}

func TestQuotaStatus(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAttendance{employees: []string{"Somchai"}})
	rec := s.do(t, http.MethodGet, "/api/admin/quota-status", "", s.adminToken(t))
	data, _ := decode(t, rec)["data"].(map[string]any)
	if data["apiHealthy"] != true || data["lastError"] != nil {
		t.Errorf("healthy: apiHealthy=%v lastError=%v", data["apiHealthy"], data["lastError"])
	}
	if recs, _ := data["recommendations"].([]any); len(recs) != 1 || recs[0] != msgHealthy {
		t.Errorf("healthy recommendations = %v", data["recommendations"])
	}

	s = newTestServer(t, &fakeAttendance{employeeErr: quota.ErrQuotaExceeded})
	s.cache.emergency = true
	rec = s.do(t, http.MethodGet, "/api/admin/quota-status", "", s.adminToken(t))
	data, _ = decode(t, rec)["data"].(map[string]any)
	if data["apiHealthy"] != false || data["emergencyMode"] != true || data["lastError"] != quota.ErrQuotaExceeded.Error() {
		t.Errorf("unhealthy: %v", data)
	}
	if recs, _ := data["recommendations"].([]any); len(recs) != 3 {
		t.Errorf("unhealthy recommendations = %v", data["recommendations"])
	}
	if _, ok := data["apiStats"].(map[string]any)["maxPerHour"]; !ok {
		t.Errorf("apiStats = %v", data["apiStats"])
	}

	// Stale rows answered the roster read but the last fetch failed.
	s = newTestServer(t, &fakeAttendance{employees: []string{"Somchai"}})
	s.cache.lastErr = "sheets: quota exceeded"
	rec = s.do(t, http.MethodGet, "/api/admin/quota-status", "", s.adminToken(t))
	data, _ = decode(t, rec)["data"].(map[string]any)
	if data["apiHealthy"] != false || data["lastError"] != "sheets: quota exceeded" {
		t.Errorf("stale: apiHealthy=%v lastError=%v", data["apiHealthy"], data["lastError"])
	}
}

func TestAPIStats_RecentCallsAndCache(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	for i := 0; i < 25; i++ {
		s.quota.LogCall(fmt.Sprintf("get:call-%d", i))
	}
	rec := s.do(t, http.MethodGet, "/api/admin/api-stats", "", s.adminToken(t))
	data, _ := decode(t, rec)["data"].(map[string]any)

	if data["callsLastMinute"] != float64(25) {
		t.Errorf("callsLastMinute = %v", data["callsLastMinute"])
	}
	calls, _ := data["recentCalls"].([]any)
	if len(calls) != recentCallLimit {
		t.Fatalf("recentCalls = %d entries, want %d", len(calls), recentCallLimit)
	}
	first, _ := calls[0].(map[string]any)
	if first["label"] != "get:call-24" || first["at"] == nil {
		t.Errorf("newest call = %v", first)
	}
	c, _ := data["cache"].(map[string]any)
	if c["hitRate"] != float64(75) || c["misses"] != float64(1) {
		t.Errorf("cache = %v", c)
	}
}

func TestEmergencyModeAndRefresh(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	token := s.adminToken(t)

	rec := s.do(t, http.MethodPost, "/api/admin/emergency-mode", `{"enabled":true}`, token)
	body := decode(t, rec)
	if body["message"] != "Emergency mode enabled" || body["emergencyMode"] != true || !s.cache.emergency {
		t.Errorf("enable: %v (cache %v)", body, s.cache.emergency)
	}
	rec = s.do(t, http.MethodPost, "/api/admin/emergency-mode", `{"enabled":false}`, token)
	if body := decode(t, rec); body["message"] != "Emergency mode disabled" || s.cache.emergency {
		t.Errorf("disable: %v", body)
	}

	rec = s.do(t, http.MethodPost, "/api/admin/refresh-cache", "", token)
	if body := decode(t, rec); body["message"] != "Cache refreshed successfully" || s.attendance.refreshes != 1 {
		t.Errorf("refresh: %v (refreshes %d)", body, s.attendance.refreshes)
	}

	s.attendance.refreshErr = quota.ErrUnavailable
	rec = s.do(t, http.MethodPost, "/api/admin/refresh-cache", "", token)
	if rec.Code != http.StatusInternalServerError || decode(t, rec)["error"] != "Failed to refresh cache" {
		t.Errorf("refresh failure: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/api/admin/api-stats", "", token)
	if data, _ := decode(t, rec)["data"].(map[string]any); data["maxPerMinute"] != float64(30) {
		t.Errorf("api-stats = %v", data)
	}
}
