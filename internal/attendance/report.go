// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package attendance

import (
	"context"
	"fmt"
	"time"
)

// Report kinds.
const (
	ReportDaily   = "daily"
	ReportMonthly = "monthly"
	ReportRange   = "range"
)

// ReportQuery selects ledger rows by clock-in date.
type ReportQuery struct {
	Kind string
	// Date is the day for daily reports.
	Date time.Time
	// Month (1-12) and Year select monthly reports.
	Month int
	Year  int
	// Start and End bound range reports, both days inclusive.
	Start time.Time
	End   time.Time
}

// Validate checks the fields required by Kind.
func (q ReportQuery) Validate() error {
	switch q.Kind {
	case ReportDaily:
		if q.Date.IsZero() {
			return &ValidationError{Field: "date"}
		}
	case ReportMonthly:
		if q.Month < 1 || q.Month > 12 {
			return &ValidationError{Field: "month"}
		}
		if q.Year < 1 {
			return &ValidationError{Field: "year"}
		}
	case ReportRange:
		if q.Start.IsZero() {
			return &ValidationError{Field: "startDate"}
		}
		if q.End.IsZero() {
			return &ValidationError{Field: "endDate"}
		}
	default:
		return fmt.Errorf("%w: invalid report type %q", ErrValidation, q.Kind)
	}
	return nil
}

// ReportRow is one ledger row in an export.
type ReportRow struct {
	Employee     string `json:"employee"`
	LineName     string `json:"lineName"`
	ClockIn      string `json:"clockIn"`
	ClockOut     string `json:"clockOut"`
	Note         string `json:"note"`
	WorkingHours string `json:"workingHours"`
	LocationIn   string `json:"locationIn"`
	LocationOut  string `json:"locationOut"`
}

// Report returns the ledger rows selected by q in sheet order.
func (r *Resolver) Report(ctx context.Context, q ReportQuery) ([]ReportRow, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ledger, err := r.Ledger(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return FilterReport(ledger, q, r.loc), nil
}

// FilterReport applies q to ledger. Rows with an unreadable clock-in are
// left out.
func FilterReport(ledger []LedgerRecord, q ReportQuery, loc *time.Location) []ReportRow {
	keep := reportFilter(q, loc)
	out := make([]ReportRow, 0)
	for _, rec := range ledger {
		if rec.ClockIn == "" {
			continue
		}
		in, err := ParseTimestamp(rec.ClockIn, loc)
		if err != nil || !keep(in) {
			continue
		}
		out = append(out, ReportRow{
			Employee:     rec.EmployeeName,
			LineName:     rec.DisplayName,
			ClockIn:      rec.ClockIn,
			ClockOut:     rec.ClockOut,
			Note:         rec.Note,
			WorkingHours: rec.HoursWorked,
			LocationIn:   rec.ClockInPlace,
			LocationOut:  rec.ClockOutPlace,
		})
	}
	return out
}

func reportFilter(q ReportQuery, loc *time.Location) func(time.Time) bool {
	switch q.Kind {
	case ReportDaily:
		day := q.Date.In(loc).Format("2006-01-02")
		return func(t time.Time) bool { return t.Format("2006-01-02") == day }
	case ReportMonthly:
		return func(t time.Time) bool { return int(t.Month()) == q.Month && t.Year() == q.Year }
	case ReportRange:
		start := startOfDay(q.Start, loc)
		end := startOfDay(q.End, loc).AddDate(0, 0, 1)
		return func(t time.Time) bool { return !t.Before(start) && t.Before(end) }
	default:
		return func(time.Time) bool { return false }
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
