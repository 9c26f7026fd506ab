// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package attendance

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 3, 2, 8, 5, 0, 0, ict)
	for _, in := range []string{
		"2026-03-02 08:05:00",
		"2026-03-02 8:05:00",
		" 2026-03-02 08:05:00 ",
		"2026-03-02T08:05:00",
		"2026-03-02T01:05:00Z",
		"2026-03-02T08:05:00+07:00",
	} {
		got, err := ParseTimestamp(in, ict)
		if err != nil {
			t.Errorf("ParseTimestamp(%q) error = %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseTimestamp("soon", ict); err == nil {
		t.Error("ParseTimestamp(soon) should fail")
	}
}

func TestTimeOfDayAndDateOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, time, date string
	}{
		{"2026-03-02 08:05:09", "08:05:09", "2026-03-02"},
		{"2026-03-02 8:05:09", "08:05:09", "2026-03-02"},
		{"2026-03-02T01:05:09Z", "08:05:09", "2026-03-02"},
		{"garbage", "garbage", ""},
	}
	for _, tt := range tests {
		if got := TimeOfDay(tt.in, ict); got != tt.time {
			t.Errorf("TimeOfDay(%q) = %q, want %q", tt.in, got, tt.time)
		}
		if got := DateOf(tt.in, ict); got != tt.date {
			t.Errorf("DateOf(%q) = %q, want %q", tt.in, got, tt.date)
		}
	}
}

func TestCoordinateFormatting(t *testing.T) {
	t.Parallel()

	if got := CoordinatesCell(13.7563, 100.5018); got != "13.7563,100.5018" {
		t.Errorf("CoordinatesCell = %q", got)
	}
	if got := CoordinatesText(13, -0.5); got != "13, -0.5" {
		t.Errorf("CoordinatesText = %q", got)
	}
	if got := FormatHours(2.25); got != "2.25" {
		t.Errorf("FormatHours = %q", got)
	}
}
