// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package attendance

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalize returns the canonical form of an employee name: full-width
// characters folded, lowercased, NFC composed, surrounding whitespace
// trimmed and inner whitespace runs collapsed to one space.
func Normalize(name string) string {
	s := width.Fold.String(name)
	s = strings.ToLower(s)
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// IsMatch reports whether two names refer to the same employee: their
// normalized forms are equal or one contains the other. Short names match
// longer ones that contain them; callers that can disambiguate by time do so.
func IsMatch(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}
