// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/punchclock/internal/attendance"
	"github.com/tomtom215/punchclock/internal/logging"
	"github.com/tomtom215/punchclock/internal/quota"
	"github.com/tomtom215/punchclock/internal/validation"
)

// Messages shown by the mini-app.
const (
	msgClockInOK    = "บันทึกเวลาเข้างานสำเร็จ"                                   // clock-in recorded
	msgAlreadyIn    = "คุณลงเวลาเข้างานไปแล้ว กรุณาลงเวลาออกก่อน"                 // already clocked in, clock out first
	msgClockOutOK   = "บันทึกเวลาออกงานสำเร็จ"                                    // clock-out recorded
	msgNotIn        = "คุณต้องลงเวลาเข้างานก่อน หรือตรวจสอบชื่อที่ป้อนให้ถูกต้อง" // clock in first or check the name
	msgNotInSuggest = "ไม่พบข้อมูลการลงเวลาเข้างาน ชื่อที่ใกล้เคียง: "            // no clock-in found, similar names:
	msgUnreconciled = "ไม่พบข้อมูลการลงเวลาเข้างานที่ตรงกัน กรุณาตรวจสอบระบบ"     // no matching ledger row
	msgErrorPrefix  = "เกิดข้อผิดพลาด: "                                          // an error occurred:

	msgMissingFields  = "Missing required fields"
	msgTooManyCalls   = "Too many requests, please try again later"
	msgInvalidBody    = "Invalid request body"
	msgMissingName    = "Missing employee name"
	labelClockIn      = "clockIn"
	labelClockOut     = "clockOut"
	failClockIn       = "Failed to clock in"
	failClockOut      = "Failed to clock out"
	failCheckStatus   = "Failed to check status"
	failGetEmployees  = "Failed to get employees"
	failInvalidCoords = "Invalid coordinates"
)

// clockResponse is the flat body of clock-in and clock-out.
type clockResponse struct {
	Success       bool                    `json:"success"`
	Message       string                  `json:"message,omitempty"`
	Employee      string                  `json:"employee,omitempty"`
	Time          string                  `json:"time,omitempty"`
	Hours         string                  `json:"hours,omitempty"`
	CurrentStatus string                  `json:"currentStatus,omitempty"`
	ClockInTime   string                  `json:"clockInTime,omitempty"`
	Suggestions   []attendance.Suggestion `json:"suggestions,omitempty"`
	Error         string                  `json:"error,omitempty"`
	RequestID     string                  `json:"request_id,omitempty"`
}

// ClockIn handles POST /api/clockin.
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req ClockInRequest
	if !h.decodeClockRequest(w, r, &req) {
		return
	}
	if !h.admitUpstreamCall(w, r, labelClockIn) {
		return
	}

	res, err := h.attendance.ClockIn(r.Context(), req.toDomain())
	if err != nil {
		h.clockError(w, r, req.Employee, failClockIn, err)
		return
	}
	respondJSON(w, http.StatusOK, clockResponse{
		Success:       true,
		Message:       msgClockInOK,
		Employee:      res.Employee,
		Time:          res.Time,
		CurrentStatus: attendance.StatusClockedIn,
	})
}

// ClockOut handles POST /api/clockout.
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	var req ClockOutRequest
	if !h.decodeClockRequest(w, r, &req) {
		return
	}
	if !h.admitUpstreamCall(w, r, labelClockOut) {
		return
	}

	res, err := h.attendance.ClockOut(r.Context(), req.toDomain())
	if err != nil {
		h.clockError(w, r, req.Employee, failClockOut, err)
		return
	}
	respondJSON(w, http.StatusOK, clockResponse{
		Success:       true,
		Message:       msgClockOutOK,
		Employee:      res.Employee,
		Time:          res.Time,
		Hours:         res.Hours,
		CurrentStatus: attendance.StatusClockedOut,
	})
}

// decodeClockRequest decodes and validates dst, answering 400 on failure.
func (h *Handler) decodeClockRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeBody(r, dst); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Rejected clock request body")
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, msgInvalidBody)
		return false
	}
	if err := validation.ValidateStruct(dst); err != nil {
		if missingRequired(err) {
			respondError(w, r, http.StatusBadRequest, ErrCodeValidationFailed, msgMissingFields)
		} else {
			respondValidation(w, r, failInvalidCoords, validationDetails(err))
		}
		return false
	}
	return true
}

// admitUpstreamCall checks the quota monitor before a mutation and logs
// the call under label. It answers 429 when the ceiling is reached.
func (h *Handler) admitUpstreamCall(w http.ResponseWriter, r *http.Request, label string) bool {
	if !h.quota.CanMakeCall() {
		logging.Ctx(r.Context()).Warn().Str("operation", label).Msg("Upstream quota ceiling reached, rejecting request")
		respondError(w, r, http.StatusTooManyRequests, ErrCodeTooManyRequests, msgTooManyCalls)
		return false
	}
	h.quota.LogCall(label)
	return true
}

// clockError maps resolver errors. Business rejections are 200 with
// success false so the mini-app shows the message.
func (h *Handler) clockError(w http.ResponseWriter, r *http.Request, employee, failure string, err error) {
	var (
		already *attendance.AlreadyClockedInError
		notIn   *attendance.NotClockedInError
	)
	switch {
	case errors.As(err, &already):
		respondJSON(w, http.StatusOK, clockResponse{
			Message:       msgAlreadyIn,
			Employee:      employee,
			CurrentStatus: attendance.StatusClockedIn,
			ClockInTime:   already.ClockIn,
		})
	case errors.As(err, &notIn):
		respondJSON(w, http.StatusOK, clockResponse{
			Message:       notClockedInMessage(notIn.Suggestions),
			Employee:      employee,
			CurrentStatus: attendance.StatusNotClockedIn,
			Suggestions:   notIn.Suggestions,
		})
	case errors.Is(err, attendance.ErrReconciliationFailed):
		respondJSON(w, http.StatusOK, clockResponse{
			Message:  msgUnreconciled,
			Employee: employee,
		})
	case errors.Is(err, attendance.ErrValidation):
		respondError(w, r, http.StatusBadRequest, ErrCodeValidationFailed, msgMissingFields)
	case errors.Is(err, quota.ErrRateLimitExceeded):
		respondError(w, r, http.StatusTooManyRequests, ErrCodeTooManyRequests, msgTooManyCalls)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("employee", employee).Msg(failure)
		respondJSON(w, http.StatusInternalServerError, clockResponse{
			Error:     failure,
			Message:   msgErrorPrefix + err.Error(),
			Employee:  employee,
			RequestID: logging.RequestIDFromContext(r.Context()),
		})
	}
}

func notClockedInMessage(suggestions []attendance.Suggestion) string {
	if len(suggestions) == 0 {
		return msgNotIn
	}
	names := make([]string, len(suggestions))
	for i, s := range suggestions {
		names[i] = s.SystemName
		if names[i] == "" {
			names[i] = s.EmployeeName
		}
	}
	return msgNotInSuggest + strings.Join(names, ", ")
}

// statusData is the check-status payload.
type statusData struct {
	Employee            string            `json:"employee"`
	IsOnWork            bool              `json:"isOnWork"`
	HasWorkRecord       bool              `json:"hasWorkRecord"`
	WorkRecord          *workRecord       `json:"workRecord"`
	AllCurrentEmployees []currentEmployee `json:"allCurrentEmployees"`
	Suggestions         []string          `json:"suggestions"`
}

type workRecord struct {
	ClockIn      string `json:"clockIn"`
	MainRowIndex *int   `json:"mainRowIndex"`
}

type currentEmployee struct {
	SystemName   string `json:"systemName"`
	EmployeeName string `json:"employeeName"`
	ClockIn      string `json:"clockIn"`
	MainRowIndex *int   `json:"mainRowIndex"`
}

// rowRef returns nil for an unknown ledger row.
func rowRef(row int) *int {
	if row <= 0 {
		return nil
	}
	return &row
}

// CheckStatus handles POST /api/check-status.
func (h *Handler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	var req CheckStatusRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, msgInvalidBody)
		return
	}
	req.Employee = strings.TrimSpace(req.Employee)
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidationFailed, msgMissingName)
		return
	}

	st, err := h.attendance.CheckStatus(r.Context(), req.Employee)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("employee", req.Employee).Msg(failCheckStatus)
		respondError(w, r, http.StatusInternalServerError, ErrCodeUpstreamFailed, failCheckStatus)
		return
	}

	data := statusData{
		Employee:            req.Employee,
		IsOnWork:            st.IsOnWork(),
		HasWorkRecord:       st.Session != nil,
		AllCurrentEmployees: make([]currentEmployee, 0, len(st.AllCurrent)),
		Suggestions:         st.Suggestions,
	}
	if data.Suggestions == nil {
		data.Suggestions = []string{}
	}
	if st.Session != nil {
		data.WorkRecord = &workRecord{ClockIn: st.Session.ClockIn, MainRowIndex: rowRef(st.Session.MainRowRef)}
	}
	for _, s := range st.AllCurrent {
		data.AllCurrentEmployees = append(data.AllCurrentEmployees, currentEmployee{
			SystemName:   s.SystemName,
			EmployeeName: s.EmployeeName,
			ClockIn:      s.ClockIn,
			MainRowIndex: rowRef(s.MainRowRef),
		})
	}
	respondData(w, data)
}

// Employees handles POST /api/employees.
func (h *Handler) Employees(w http.ResponseWriter, r *http.Request) {
	names, err := h.attendance.Employees(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg(failGetEmployees)
		respondError(w, r, http.StatusInternalServerError, ErrCodeUpstreamFailed, failGetEmployees)
		return
	}
	if names == nil {
		names = []string{}
	}
	respondData(w, names)
}
