// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

// Package logging provides the process-wide zerolog logger for Punchclock.
//
// Every package logs through this one logger, so a single Init call decides
// the level, the format and the destination for the HTTP layer, the
// attendance resolver, the Sheets client and the supervised services alike.
//
// # Overview
//
// The package provides:
//   - A global zerolog logger guarded by an RWMutex, usable before Init
//   - JSON output for production and console output for development
//   - Context-aware logging that adds the request ID and the employee name
//   - An slog.Handler adapter for sutureslog and the watermill event bus
//
// # Quick Start
//
//	import "github.com/tomtom215/punchclock/internal/logging"
//
//	// Initialize once the configuration is loaded
//	logging.Init(logging.Config{
//	    Level:     cfg.Logging.Level,
//	    Format:    cfg.Logging.Format,
//	    Caller:    cfg.Logging.Caller,
//	    Timestamp: true,
//	})
//
//	// Structured entries
//	logging.Info().Str("spreadsheet", id).Msg("Spreadsheet connected")
//	logging.Error().Err(err).Msg("Failed to create Sheets client")
//
//	// Request-scoped entries carry request_id and employee
//	ctx = logging.ContextWithEmployee(ctx, req.Employee)
//	logging.Ctx(ctx).Info().Int("main_row", row).Msg("Clock-in recorded")
//
// Until Init runs, a JSON logger at info level writes to stderr.
//
// # Configuration
//
// Environment variables, read by internal/config:
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line: true, false (default: false)
//
// # Context Fields
//
// The request ID middleware stores the X-Request-ID value with
// ContextWithRequestID. The attendance resolver tags the employee it acts on
// with ContextWithEmployee. Ctx copies both onto every entry:
//
//	{"level":"info","request_id":"9f1c...","employee":"Suda Dee","message":"Clock-out recorded"}
//
// Background services have no request. They take a child logger from
// WithComponent instead:
//
//	logger := logging.WithComponent("keepalive")
//
// # Best Practices
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
//
// Use structured fields instead of string formatting:
//
//	logging.Info().Str("employee", name).Int("row", row).Msg("Ledger row closed")  // Correct
//	logging.Info().Msgf("closed row %d for %s", row, name)                         // Avoid
//
// # Testing
//
// Tests capture output by swapping the global logger:
//
//	var buf bytes.Buffer
//	logging.SetLogger(logging.NewTestLogger(&buf))
package logging
