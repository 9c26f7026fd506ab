// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

/*
Package main is the entry point for the Punchclock server.

Punchclock records employee clock-ins and clock-outs from a chat mini-app
into a Google spreadsheet. The spreadsheet is the only datastore; a table
cache and a quota monitor keep the server within the Sheets API limits.

# Application Architecture

The server runs under a Suture v4 supervision tree:

	punchclock
	├── background-layer
	│   ├── cache-warmer       refresh ON_WORK and stats every minute
	│   ├── keepalive          self-ping inside configured hour windows
	│   └── webhook-notifier   deliver attendance events to the map generator
	└── api-layer
	    └── http-server

Component initialization order:

 1. Configuration: koanf v2 with defaults, config.yaml and environment
 2. Logging: zerolog, JSON or console
 3. Quota monitor, table cache and the optional badger snapshot store
 4. Sheets client and repository
 5. Reverse geocoder and webhook notifier
 6. Attendance resolver
 7. Admin authentication, casbin enforcer and the chi router
 8. Supervisor tree

# Configuration

Required:
  - SHEETS_SPREADSHEET_ID (or GOOGLE_SHEET_ID): the attendance spreadsheet
  - GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON: service account key
  - JWT_SECRET: admin token signing secret

See internal/config for the full list.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains for up to
10 seconds, queued webhook events are dropped, and the snapshot store is
closed.
*/
package main
