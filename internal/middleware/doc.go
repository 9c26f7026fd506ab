// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

// Package middleware holds HTTP middleware shared by every route group:
// request IDs, Prometheus request metrics, access logging and response
// security headers. All middleware uses the func(http.Handler) http.Handler
// shape so it plugs straight into chi's r.Use.
package middleware
