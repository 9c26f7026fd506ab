// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/punchclock/internal/logging"
)

// APIResponse is the envelope for every JSON endpoint except clock-in and
// clock-out, which answer with their own flat body.
type APIResponse struct {
	Success bool `json:"success"`

	// Data is omitted only when nil; empty lists are still written.
	Data any `json:"data,omitempty"`

	Message string `json:"message,omitempty"`

	// Error is a human-readable message. The mini-app shows it as is.
	Error string `json:"error,omitempty"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`

	// Details carries per-field validation failures.
	Details any `json:"details,omitempty"`

	RequestID string `json:"request_id,omitempty"`
}

// Error codes for API responses
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeUpstreamFailed     = "UPSTREAM_FAILED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// respondJSON writes v with status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// respondData writes {success: true, data}.
func respondData(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// respondMessage writes {success: true, message}.
func respondMessage(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusOK, APIResponse{Success: true, Message: msg})
}

// respondError writes {success: false, error, code, request_id}.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	respondJSON(w, status, APIResponse{
		Error:     msg,
		Code:      code,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

// respondValidation writes a 400 carrying the failed fields.
func respondValidation(w http.ResponseWriter, r *http.Request, msg string, details any) {
	respondJSON(w, http.StatusBadRequest, APIResponse{
		Error:     msg,
		Code:      ErrCodeValidationFailed,
		Details:   details,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}
