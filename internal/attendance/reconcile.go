// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package attendance

import "time"

// Tier names the search step that located a ledger row.
type Tier string

const (
	// TierBackRef: the row number stored on the open session.
	TierBackRef Tier = "backref"
	// TierClosest: the only open row for the name, or the one whose clock-in
	// is nearest the session's within the tolerance.
	TierClosest Tier = "closest"
	// TierLatest: the last open row for the name.
	TierLatest Tier = "latest"
	// TierNone: nothing matched.
	TierNone Tier = "none"
)

// Locate finds the ledger row that session belongs to. ledger must be in
// sheet order, starting at row 2. employee is the name the caller typed.
//
// A closed row is never returned, so a clock-out cannot overwrite an earlier
// session's clock-out.
func Locate(ledger []LedgerRecord, employee string, session OpenSession, tolerance time.Duration, loc *time.Location) (LedgerRecord, Tier) {
	if ref := session.MainRowRef; ref > 1 {
		if idx := ref - 2; idx < len(ledger) {
			rec := ledger[idx]
			if IsMatch(employee, rec.EmployeeName) && rec.IsOpen() {
				return rec, TierBackRef
			}
		}
	}

	var candidates []LedgerRecord
	for _, rec := range ledger {
		if rec.IsOpen() && IsMatch(employee, rec.EmployeeName) {
			candidates = append(candidates, rec)
		}
	}
	switch len(candidates) {
	case 0:
		return LedgerRecord{}, TierNone
	case 1:
		return candidates[0], TierClosest
	}

	if sessionIn, err := ParseTimestamp(session.ClockIn, loc); err == nil {
		best, bestGap := -1, time.Duration(0)
		for i, rec := range candidates {
			in, err := ParseTimestamp(rec.ClockIn, loc)
			if err != nil {
				continue
			}
			gap := in.Sub(sessionIn)
			if gap < 0 {
				gap = -gap
			}
			if best < 0 || gap < bestGap {
				best, bestGap = i, gap
			}
		}
		if best >= 0 && bestGap < tolerance {
			return candidates[best], TierClosest
		}
	}

	return candidates[len(candidates)-1], TierLatest
}
