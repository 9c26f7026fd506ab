// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package attendance

import "context"

// Repository is the row store holding MAIN, ON_WORK and EMPLOYEES.
//
// Implementations talk to the store directly; caching and quota gating are
// applied by the Resolver. Errors that should fall back to cached rows wrap
// quota.ErrQuotaExceeded or quota.ErrUnavailable.
type Repository interface {
	Roster(ctx context.Context) ([]string, error)
	OpenSessions(ctx context.Context) ([]OpenSession, error)
	Ledger(ctx context.Context) ([]LedgerRecord, error)

	// AppendLedger adds a row to MAIN and returns its row number.
	AppendLedger(ctx context.Context, rec LedgerRecord) (int, error)
	// CloseLedger writes the clock-out fields of MAIN row number row. It
	// returns ErrLedgerRowClosed, leaving the row untouched, when the row
	// already carries a clock-out.
	CloseLedger(ctx context.Context, row int, c Closure) error

	AppendOpenSession(ctx context.Context, s OpenSession) error
	// DeleteOpenSession removes the ON_WORK row describing s.
	DeleteOpenSession(ctx context.Context, s OpenSession) error
}

// Geocoder turns coordinates into a place name. It never fails; on error
// it returns CoordinatesText(lat, lon).
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) string
}

// Notifier delivers events without blocking the caller.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}
