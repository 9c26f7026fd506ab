// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

/*
Package api serves the attendance HTTP API on a chi router.

Public endpoints, used by the chat mini-app:

	POST /api/clockin        record a clock-in
	POST /api/clockout       close the open session
	POST /api/check-status   is the employee on shift?
	POST /api/employees      roster names
	GET  /api/health         liveness plus keep-alive counters
	GET  /api/ping           keep-alive target
	GET  /api/config         mini-app bootstrap
	POST /api/webhook/ping   inbound ping from the map generator

Admin endpoints require a bearer token from POST /api/admin/login:

	GET  /api/admin/verify-token
	GET  /api/admin/stats
	GET  /api/admin/export/{daily|monthly|range}
	GET  /api/admin/api-stats
	POST /api/admin/refresh-cache
	GET  /api/admin/quota-status
	POST /api/admin/emergency-mode

Clock-in and clock-out answer business rejections (already clocked in, not
clocked in, no matching ledger row) with 200 and success false, because the
mini-app renders the message field. Every other endpoint uses APIResponse.

Rate limits are per client IP via go-chi/httprate: 30/min on the mini-app
endpoints, 5 per 5 minutes on login, 10/min on exports. Separately, clock-in
and clock-out consult the spreadsheet quota monitor and answer 429 when the
upstream ceiling is reached.
*/
package api
