// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/tomtom215/punchclock/internal/attendance"
	"github.com/tomtom215/punchclock/internal/config"
	"github.com/tomtom215/punchclock/internal/logging"
)

// Column headers. Reads locate columns by header text; a missing header
// falls back to the position the service writes that value at.
const (
	hdrFullName = "ชื่อ-นามสกุล" // roster: full name

	hdrEmployee    = "ชื่อพนักงาน"  // employee name
	hdrChatName    = "ชื่อไลน์"     // chat display name
	hdrClockIn     = "เวลาเข้า"     // clock-in time
	hdrClockOut    = "เวลาออก"      // clock-out time
	hdrOutCoords   = "พิกัดออก"     // clock-out coordinates
	hdrOutPlace    = "ที่อยู่ออก"   // clock-out place
	hdrHours       = "ชั่วโมงทำงาน" // hours worked
	hdrNote        = "หมายเหตุ"     // note
	hdrInPlace     = "ที่อยู่เข้า"  // clock-in place
	hdrInCoords    = "พิกัดเข้า"    // clock-in coordinates
	hdrSystemName  = "ชื่อในระบบ"   // system name
	hdrRowRef      = "แถวอ้างอิง"   // reference row
	hdrMainRow     = "แถวในMain"    // row in MAIN
	hdrStatus      = "สถานะ"        // status
	hdrCoordinates = "พิกัด"        // coordinates
	hdrPlace       = "ที่อยู่"      // place
	hdrPicture     = "รูปไลน์"      // chat picture
)

type column struct {
	header   string
	fallback int
}

// MAIN layout, matching AppendLedger.
var (
	mainEmployee  = column{hdrEmployee, 0}
	mainChatName  = column{hdrChatName, 1}
	mainClockIn   = column{hdrClockIn, 3}
	mainNote      = column{hdrNote, 4}
	mainClockOut  = column{hdrClockOut, 5}
	mainInCoords  = column{hdrInCoords, 6}
	mainInPlace   = column{hdrInPlace, 7}
	mainOutCoords = column{hdrOutCoords, 8}
	mainOutPlace  = column{hdrOutPlace, 9}
	mainHours     = column{hdrHours, 10}
)

// ON_WORK layout, matching AppendOpenSession.
var (
	onworkEmployee   = column{hdrEmployee, 1}
	onworkClockIn    = column{hdrClockIn, 2}
	onworkStatus     = column{hdrStatus, 3}
	onworkNote       = column{hdrNote, 4}
	onworkCoords     = column{hdrCoordinates, 5}
	onworkPlace      = column{hdrPlace, 6}
	onworkRowRef     = column{hdrRowRef, 7}
	onworkChatName   = column{hdrChatName, 8}
	onworkPicture    = column{hdrPicture, 9}
	onworkMainRow    = column{hdrMainRow, 10}
	onworkSystemName = column{hdrSystemName, 11}
)

// onworkFirstDataRow skips the header (row 1) and the row under it.
const onworkFirstDataRow = 3

// Repository implements attendance.Repository on a spreadsheet.
type Repository struct {
	client    *Client
	main      string
	onwork    string
	employees string

	// onworkMu serializes ON_WORK deletes, which address rows by position.
	onworkMu sync.Mutex
}

var _ attendance.Repository = (*Repository)(nil)

// NewRepository binds client to the table titles in cfg.
func NewRepository(client *Client, cfg config.SheetsConfig) *Repository {
	return &Repository{
		client:    client,
		main:      cfg.MainSheet,
		onwork:    cfg.OnWorkSheet,
		employees: cfg.EmployeesSheet,
	}
}

// table is a grid with its header row resolved.
type table struct {
	index    map[string]int
	startRow int
	rows     [][]string
}

func newTable(g *Grid) *table {
	t := &table{index: make(map[string]int), startRow: g.StartRow}
	if len(g.Rows) == 0 {
		return t
	}
	for i, h := range g.Rows[0] {
		h = strings.TrimSpace(h)
		if _, dup := t.index[h]; h != "" && !dup {
			t.index[h] = i
		}
	}
	t.rows = g.Rows[1:]
	return t
}

func (t *table) col(c column) int {
	if i, ok := t.index[c.header]; ok {
		return i
	}
	return c.fallback
}

func get(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// rowNumber returns the sheet row of t.rows[i].
func (t *table) rowNumber(i int) int {
	return t.startRow + 1 + i
}

// Roster implements attendance.Repository.
func (r *Repository) Roster(ctx context.Context) ([]string, error) {
	g, err := r.client.Values(ctx, r.employees)
	if err != nil {
		return nil, err
	}
	t := newTable(g)
	idx := t.col(column{hdrFullName, 0})
	names := make([]string, 0, len(t.rows))
	for _, row := range t.rows {
		if name := get(row, idx); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Ledger implements attendance.Repository. Every row below the header is
// returned, blank ones included, so slice index i is sheet row i+2.
func (r *Repository) Ledger(ctx context.Context) ([]attendance.LedgerRecord, error) {
	g, err := r.client.Values(ctx, r.main)
	if err != nil {
		return nil, err
	}
	t := newTable(g)
	out := make([]attendance.LedgerRecord, 0, len(t.rows))
	for i, row := range t.rows {
		out = append(out, attendance.LedgerRecord{
			Row:            t.rowNumber(i),
			EmployeeName:   get(row, t.col(mainEmployee)),
			DisplayName:    get(row, t.col(mainChatName)),
			ClockIn:        get(row, t.col(mainClockIn)),
			ClockOut:       get(row, t.col(mainClockOut)),
			ClockInCoords:  get(row, t.col(mainInCoords)),
			ClockInPlace:   get(row, t.col(mainInPlace)),
			ClockOutCoords: get(row, t.col(mainOutCoords)),
			ClockOutPlace:  get(row, t.col(mainOutPlace)),
			HoursWorked:    get(row, t.col(mainHours)),
			Note:           get(row, t.col(mainNote)),
		})
	}
	return out, nil
}

// OpenSessions implements attendance.Repository.
func (r *Repository) OpenSessions(ctx context.Context) ([]attendance.OpenSession, error) {
	g, err := r.client.Values(ctx, r.onwork)
	if err != nil {
		return nil, err
	}
	return parseOpenSessions(newTable(g)), nil
}

func parseOpenSessions(t *table) []attendance.OpenSession {
	out := make([]attendance.OpenSession, 0, len(t.rows))
	for i, row := range t.rows {
		n := t.rowNumber(i)
		if n < onworkFirstDataRow {
			continue
		}
		s := attendance.OpenSession{
			Row:          n,
			SystemName:   get(row, t.col(onworkSystemName)),
			EmployeeName: get(row, t.col(onworkEmployee)),
			ClockIn:      get(row, t.col(onworkClockIn)),
			Status:       get(row, t.col(onworkStatus)),
			Note:         get(row, t.col(onworkNote)),
			Coordinates:  get(row, t.col(onworkCoords)),
			PlaceName:    get(row, t.col(onworkPlace)),
			ChatName:     get(row, t.col(onworkChatName)),
			ChatPicture:  get(row, t.col(onworkPicture)),
		}
		if s.SystemName == "" && s.EmployeeName == "" && s.ClockIn == "" {
			continue
		}
		s.MainRowRef = leadingInt(get(row, t.col(onworkRowRef)))
		if s.MainRowRef == 0 {
			s.MainRowRef = leadingInt(get(row, t.col(onworkMainRow)))
		}
		out = append(out, s)
	}
	return out
}

// leadingInt parses the leading digits of s, 0 if there are none.
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// AppendLedger implements attendance.Repository.
func (r *Repository) AppendLedger(ctx context.Context, rec attendance.LedgerRecord) (int, error) {
	return r.client.Append(ctx, r.main, []any{
		rec.EmployeeName,
		rec.DisplayName,
		rec.PictureFormula,
		rec.ClockIn,
		rec.UserInfo,
		"",
		rec.ClockInCoords,
		rec.ClockInPlace,
		"",
		"",
		"",
	})
}

// CloseLedger implements attendance.Repository. The row is read back first
// and a row that already carries a clock-out is left untouched.
func (r *Repository) CloseLedger(ctx context.Context, row int, c attendance.Closure) error {
	header, err := r.client.Header(ctx, r.main)
	if err != nil {
		return err
	}
	t := newTable(&Grid{StartRow: 1, Rows: [][]string{header}})
	cells, err := r.client.Row(ctx, r.main, row)
	if err != nil {
		return err
	}
	if get(cells, t.col(mainClockOut)) != "" {
		return fmt.Errorf("row %d: %w", row, attendance.ErrLedgerRowClosed)
	}
	return r.client.Update(ctx, r.main, []CellUpdate{
		{Row: row, Column: t.col(mainClockOut), Value: c.ClockOut},
		{Row: row, Column: t.col(mainOutCoords), Value: c.ClockOutCoords},
		{Row: row, Column: t.col(mainOutPlace), Value: c.ClockOutPlace},
		{Row: row, Column: t.col(mainHours), Value: c.HoursWorked},
	})
}

// AppendOpenSession implements attendance.Repository.
func (r *Repository) AppendOpenSession(ctx context.Context, s attendance.OpenSession) error {
	_, err := r.client.Append(ctx, r.onwork, []any{
		s.ClockIn,
		s.EmployeeName,
		s.ClockIn,
		s.Status,
		s.Note,
		s.Coordinates,
		s.PlaceName,
		s.MainRowRef,
		s.ChatName,
		s.ChatPicture,
		s.MainRowRef,
		s.SystemName,
	})
	return err
}

// ErrSessionNotFound is returned when the open session to delete is no
// longer on the sheet.
var ErrSessionNotFound = errors.New("open session row not found")

// DeleteOpenSession implements attendance.Repository. Row positions shift
// after every delete, so the row is located again on a fresh read and must
// still carry the same name and clock-in.
func (r *Repository) DeleteOpenSession(ctx context.Context, s attendance.OpenSession) error {
	r.onworkMu.Lock()
	defer r.onworkMu.Unlock()

	g, err := r.client.Values(ctx, r.onwork)
	if err != nil {
		return err
	}
	row := 0
	for _, cur := range parseOpenSessions(newTable(g)) {
		if cur.ClockIn == s.ClockIn && cur.Name() == s.Name() {
			row = cur.Row
			if cur.Row == s.Row {
				break
			}
		}
	}
	if row == 0 {
		return fmt.Errorf("%w: %s at %s", ErrSessionNotFound, s.Name(), s.ClockIn)
	}
	if row != s.Row {
		logging.Debug().Int("expected", s.Row).Int("actual", row).Msg("Open session row moved before delete")
	}
	return r.client.DeleteRow(ctx, r.onwork, row)
}
