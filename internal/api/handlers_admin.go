// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/punchclock/internal/attendance"
	"github.com/tomtom215/punchclock/internal/auth"
	"github.com/tomtom215/punchclock/internal/cache"
	"github.com/tomtom215/punchclock/internal/logging"
	"github.com/tomtom215/punchclock/internal/quota"
	"github.com/tomtom215/punchclock/internal/report"
	"github.com/tomtom215/punchclock/internal/validation"
)

// Admin panel messages.
const (
	msgLoginMissing  = "กรุณากรอกชื่อผู้ใช้และรหัสผ่าน"       // enter username and password
	msgLoginInvalid  = "ชื่อผู้ใช้หรือรหัสผ่านไม่ถูกต้อง"     // wrong username or password
	msgLoginOK       = "เข้าสู่ระบบสำเร็จ"                    // logged in
	msgInternalError = "เกิดข้อผิดพลาดภายในระบบ"              // internal error
	msgHealthy       = "ระบบทำงานปกติ"                        // system normal
	msgWaitReset     = "รอให้ quota reset (ภายใน 24 ชั่วโมง)" // wait for the quota reset (within 24h)
	msgUseCache      = "ใช้ cached data ในระยะนี้"            // use cached data meanwhile
	msgReduceUsage   = "ลดการใช้งานฟีเจอร์ที่ต้องใช้ API"     // reduce API-heavy features
)

// loginResponse is the body of a successful login.
type loginResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Token   string    `json:"token"`
	User    auth.User `json:"user"`
}

// AdminLogin handles POST /api/admin/login.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, APIResponse{Message: msgLoginMissing, Code: ErrCodeBadRequest})
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, APIResponse{Message: msgLoginMissing, Code: ErrCodeValidationFailed})
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		respondJSON(w, http.StatusBadRequest, APIResponse{Message: msgLoginMissing, Code: ErrCodeValidationFailed})
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondJSON(w, http.StatusUnauthorized, APIResponse{Message: msgLoginInvalid, Code: ErrCodeUnauthorized})
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Admin login failed")
		respondJSON(w, http.StatusInternalServerError, APIResponse{Message: msgInternalError, Code: ErrCodeInternalError})
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{
		Success: true,
		Message: msgLoginOK,
		Token:   token,
		User:    user,
	})
}

// VerifyToken handles GET /api/admin/verify-token.
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Access token required")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": auth.User{
			ID:       claims.ID,
			Username: claims.Username,
			Role:     claims.Role,
		},
	})
}

// AdminStats handles GET /api/admin/stats.
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.attendance.AdminStats(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Admin stats failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeUpstreamFailed, "Failed to get stats")
		return
	}
	respondData(w, st)
}

// Export handles GET /api/admin/export/{type}. The workbook is rendered
// into memory first so a failure can still be answered with JSON.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "type")
	switch kind {
	case attendance.ReportDaily, attendance.ReportMonthly, attendance.ReportRange:
	default:
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid report type")
		return
	}

	req := exportRequestFrom(kind, r)
	if err := validation.ValidateStruct(&req); err != nil {
		respondValidation(w, r, err.Error(), validationDetails(err))
		return
	}
	q, err := req.toQuery(h.attendance.Location())
	if err != nil {
		respondValidation(w, r, err.Error(), nil)
		return
	}

	rows, err := h.attendance.Report(r.Context(), q)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("type", kind).Msg("Report query failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeUpstreamFailed, "Failed to export report")
		return
	}

	var buf bytes.Buffer
	if err := h.reports.Write(&buf, q, rows); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("type", kind).Msg("Workbook rendering failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to export report")
		return
	}

	logging.Ctx(r.Context()).Info().Str("type", kind).Int("rows", len(rows)).Msg("Report exported")
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=report.xlsx")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Client went away during export")
	}
}

// recentCallLimit caps the call log returned by api-stats.
const recentCallLimit = 20

// apiStats is the api-stats payload: the quota counters at the top level,
// plus the cache counters and the newest upstream calls, newest first.
type apiStats struct {
	quota.Stats
	Cache       cache.Stats  `json:"cache"`
	RecentCalls []quota.Call `json:"recentCalls"`
}

// APIStats handles GET /api/admin/api-stats.
func (h *Handler) APIStats(w http.ResponseWriter, r *http.Request) {
	calls := h.quota.Recent()
	recent := make([]quota.Call, 0, min(len(calls), recentCallLimit))
	for i := len(calls) - 1; i >= 0 && len(recent) < recentCallLimit; i-- {
		recent = append(recent, calls[i])
	}
	respondData(w, apiStats{
		Stats:       h.quota.Stats(),
		Cache:       h.cache.Stats(),
		RecentCalls: recent,
	})
}

// RefreshCache handles POST /api/admin/refresh-cache.
func (h *Handler) RefreshCache(w http.ResponseWriter, r *http.Request) {
	logging.Ctx(r.Context()).Info().Msg("Manual cache refresh requested")
	if err := h.attendance.RefreshAll(r.Context()); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Cache refresh failed")
		respondError(w, r, http.StatusInternalServerError, ErrCodeUpstreamFailed, "Failed to refresh cache")
		return
	}
	respondMessage(w, "Cache refreshed successfully")
}

// quotaStatus is the quota-status payload.
type quotaStatus struct {
	APIHealthy      bool        `json:"apiHealthy"`
	EmergencyMode   bool        `json:"emergencyMode"`
	LastError       *string     `json:"lastError"`
	APIStats        quota.Stats `json:"apiStats"`
	Recommendations []string    `json:"recommendations"`
}

// QuotaStatus handles GET /api/admin/quota-status. Health is checked by
// reading the employee roster through the cache. A roster served from stale
// rows still reports the last upstream failure.
func (h *Handler) QuotaStatus(w http.ResponseWriter, r *http.Request) {
	st := quotaStatus{
		APIHealthy:    true,
		EmergencyMode: h.cache.Emergency(),
		APIStats:      h.quota.Stats(),
	}
	if _, err := h.attendance.Employees(r.Context()); err != nil {
		msg := err.Error()
		st.APIHealthy = false
		st.LastError = &msg
	} else if msg := h.cache.LastError(); msg != "" {
		st.APIHealthy = false
		st.LastError = &msg
	}
	if st.APIHealthy {
		st.Recommendations = []string{msgHealthy}
	} else {
		st.Recommendations = []string{msgWaitReset, msgUseCache, msgReduceUsage}
	}
	respondData(w, st)
}

// EmergencyMode handles POST /api/admin/emergency-mode.
func (h *Handler) EmergencyMode(w http.ResponseWriter, r *http.Request) {
	var req EmergencyModeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, msgInvalidBody)
		return
	}
	h.cache.SetEmergency(req.Enabled)

	state := "disabled"
	if req.Enabled {
		state = "enabled"
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		logging.Ctx(r.Context()).Info().Str("username", claims.Username).Bool("enabled", req.Enabled).Msg("Emergency mode switched by admin")
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Emergency mode " + state,
		"emergencyMode": req.Enabled,
	})
}
