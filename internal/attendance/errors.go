// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package attendance

import (
	"errors"
	"fmt"

	"github.com/tomtom215/punchclock/internal/quota"
)

var (
	// ErrValidation marks requests missing required fields.
	ErrValidation = errors.New("validation failed")

	// ErrAlreadyClockedIn means an open session exists for the employee.
	ErrAlreadyClockedIn = errors.New("already clocked in")

	// ErrNotClockedIn means no open session matched the employee.
	ErrNotClockedIn = errors.New("not clocked in")

	// ErrReconciliationFailed means no ledger row could be tied to the open
	// session. Retrying does not help; the sheet needs a manual look.
	ErrReconciliationFailed = errors.New("ledger row not found for open session")

	// ErrLedgerRowClosed means the ledger row picked for a clock-out already
	// has one.
	ErrLedgerRowClosed = errors.New("ledger row already closed")

	// ErrUpstreamUnavailable is the row store failing transiently.
	ErrUpstreamUnavailable = quota.ErrUnavailable
)

// AlreadyClockedInError carries the existing clock-in time.
type AlreadyClockedInError struct {
	Employee string
	ClockIn  string
}

func (e *AlreadyClockedInError) Error() string {
	return fmt.Sprintf("%s: %s since %s", ErrAlreadyClockedIn, e.Employee, e.ClockIn)
}

func (e *AlreadyClockedInError) Unwrap() error { return ErrAlreadyClockedIn }

// NotClockedInError carries open sessions with similar names.
type NotClockedInError struct {
	Employee    string
	Suggestions []Suggestion
}

func (e *NotClockedInError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotClockedIn, e.Employee)
}

func (e *NotClockedInError) Unwrap() error { return ErrNotClockedIn }

// ReconciliationError describes an open session that could not be tied to
// a closable ledger row.
type ReconciliationError struct {
	Employee       string
	MainRowRef     int
	SessionClockIn string
	LedgerRows     int
	// Row is the ledger row that was picked but refused the update, or 0.
	Row int
	Err error
}

func (e *ReconciliationError) Error() string {
	msg := fmt.Sprintf("%s: %s (ref %d, clock-in %q, %d ledger rows)",
		ErrReconciliationFailed, e.Employee, e.MainRowRef, e.SessionClockIn, e.LedgerRows)
	if e.Row > 0 {
		msg += fmt.Sprintf(": row %d", e.Row)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ReconciliationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrReconciliationFailed, e.Err}
	}
	return []error{ErrReconciliationFailed}
}

// ValidationError names the offending field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s is required", ErrValidation, e.Field)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
