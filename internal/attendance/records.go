// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

// Package attendance decides whether an employee may clock in or out and
// locates the ledger row an open session belongs to.
//
// The ledger (MAIN) holds one row per session; the open-session roster
// (ON_WORK) holds one row per employee currently on shift, pointing back at
// its ledger row. Storage is behind Repository.
package attendance

import "time"

// Session status values reported to the mini-app.
const (
	StatusClockedIn    = "clocked_in"
	StatusClockedOut   = "clocked_out"
	StatusNotClockedIn = "not_clocked_in"
)

// OnWorkLabel is the status written to new open-session rows ("working").
const OnWorkLabel = "ทำงาน"

// LedgerRecord is one row of MAIN.
type LedgerRecord struct {
	// Row is the 1-based sheet row number; the header is row 1.
	Row            int    `json:"row"`
	EmployeeName   string `json:"employee"`
	DisplayName    string `json:"lineName"`
	ClockIn        string `json:"clockIn"`
	ClockOut       string `json:"clockOut"`
	ClockInCoords  string `json:"clockInCoords"`
	ClockInPlace   string `json:"locationIn"`
	ClockOutCoords string `json:"clockOutCoords"`
	ClockOutPlace  string `json:"locationOut"`
	HoursWorked    string `json:"workingHours"`
	Note           string `json:"note"`
	UserInfo       string `json:"userinfo,omitempty"`
	PictureFormula string `json:"-"`
}

// IsOpen reports whether the session has no clock-out yet.
func (r LedgerRecord) IsOpen() bool {
	return r.ClockOut == ""
}

// OpenSession is one row of ON_WORK.
type OpenSession struct {
	Row          int    `json:"row"`
	SystemName   string `json:"systemName"`
	EmployeeName string `json:"employeeName"`
	ClockIn      string `json:"clockIn"`
	Status       string `json:"status"`
	Note         string `json:"note"`
	Coordinates  string `json:"coordinates"`
	PlaceName    string `json:"placeName"`
	// MainRowRef is the MAIN row number written at clock-in, 0 if unknown.
	MainRowRef  int    `json:"mainRowIndex"`
	ChatName    string `json:"lineName"`
	ChatPicture string `json:"linePicture"`
}

// Name returns the system name, or the employee name when empty.
func (s OpenSession) Name() string {
	if s.SystemName != "" {
		return s.SystemName
	}
	return s.EmployeeName
}

// Matches reports whether name fuzzy-matches either name column.
func (s OpenSession) Matches(name string) bool {
	return IsMatch(name, s.SystemName) || IsMatch(name, s.EmployeeName)
}

// Closure holds the fields written to a ledger row at clock-out.
type Closure struct {
	ClockOut       string
	ClockOutCoords string
	ClockOutPlace  string
	HoursWorked    string
}

// ClockInRequest is a validated clock-in.
type ClockInRequest struct {
	Employee    string
	UserInfo    string
	Lat         float64
	Lon         float64
	ChatName    string
	ChatPicture string
}

// ClockOutRequest is a validated clock-out.
type ClockOutRequest struct {
	Employee string
	Lat      float64
	Lon      float64
	ChatName string
}

// ClockInResult describes a recorded clock-in.
type ClockInResult struct {
	Employee  string
	Timestamp string
	// Time is the HH:mm:ss part of Timestamp.
	Time    string
	MainRow int
}

// ClockOutResult describes a recorded clock-out.
type ClockOutResult struct {
	Employee  string
	Timestamp string
	Time      string
	Hours     string
	MainRow   int
	Tier      Tier
}

// Suggestion is an open session whose names resemble the input.
type Suggestion struct {
	SystemName   string `json:"systemName"`
	EmployeeName string `json:"employeeName"`
}

// Status is the answer to a check-status query.
type Status struct {
	Employee    string
	Session     *OpenSession
	AllCurrent  []OpenSession
	Suggestions []string
}

// IsOnWork reports whether an open session matched.
func (s Status) IsOnWork() bool {
	return s.Session != nil
}

// Event is published after every successful clock-in or clock-out.
type Event struct {
	Action    string         `json:"action"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}
