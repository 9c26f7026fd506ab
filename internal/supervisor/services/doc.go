// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

// Package services adapts long-running components to suture.Service.
//
// Every wrapper blocks in Serve until its context is canceled and returns
// ctx.Err() on a clean stop, so the supervisor can tell a shutdown from a
// crash:
//
//   - HTTPServerService runs the API listener and shuts it down gracefully.
//   - CacheWarmerService refreshes the open-session roster and stats.
//   - KeepAliveService pings /api/ping inside the configured hour windows.
//
// The webhook notifier implements suture.Service itself and is added to the
// tree directly.
package services
