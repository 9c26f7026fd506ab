// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

// Package supervisor runs the server's long-lived goroutines under a
// suture supervision tree.
//
// The root supervisor has two children so a crash loop in one layer does
// not take the other down:
//
//	punchclock
//	├── background-layer  cache warmer, keep-alive pinger, webhook notifier
//	└── api-layer         HTTP server
//
// Supervisor events are logged through sutureslog and the zerolog slog
// bridge. Concrete service wrappers live in the services subpackage.
package supervisor
