// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is how times are written to the sheet.
const TimestampLayout = "2006-01-02 15:04:05"

// Layouts accepted when reading a time cell. The hour field also accepts a
// single digit, which covers cells edited by hand as "2026-03-02 8:05:00".
var readLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04",
	"2006-01-02",
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp reads a time cell. Values without a zone are taken to be in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range readLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// TimeOfDay returns the HH:mm:ss part of a time cell, or the input unchanged
// when it cannot be parsed.
func TimeOfDay(ts string, loc *time.Location) string {
	if len(ts) == len(TimestampLayout) && ts[10] == ' ' {
		return ts[11:]
	}
	if t, err := ParseTimestamp(ts, loc); err == nil {
		return t.Format("15:04:05")
	}
	return ts
}

// DateOf returns the YYYY-MM-DD part of a time cell, or "".
func DateOf(ts string, loc *time.Location) string {
	ts = strings.TrimSpace(ts)
	if i := strings.IndexAny(ts, " T"); i == 10 {
		return ts[:10]
	}
	if t, err := ParseTimestamp(ts, loc); err == nil {
		return t.Format("2006-01-02")
	}
	return ""
}

// FormatHours renders fractional hours with two decimals.
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', 2, 64)
}

// CoordinatesCell is the "lat,lon" value stored in coordinate columns.
func CoordinatesCell(lat, lon float64) string {
	return formatCoord(lat) + "," + formatCoord(lon)
}

// CoordinatesText is the "lat, lon" place name used when geocoding fails.
func CoordinatesText(lat, lon float64) string {
	return formatCoord(lat) + ", " + formatCoord(lon)
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
