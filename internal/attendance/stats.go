// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package attendance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tomtom215/punchclock/internal/cache"
)

// hoursSuffix is appended to working-hour figures ("hrs").
const hoursSuffix = " ชม."

// AdminStats summarizes today's attendance.
type AdminStats struct {
	TotalEmployees   int               `json:"totalEmployees"`
	PresentToday     int               `json:"presentToday"`
	WorkingNow       int               `json:"workingNow"`
	AbsentToday      int               `json:"absentToday"`
	WorkingEmployees []WorkingEmployee `json:"workingEmployees"`
}

// WorkingEmployee is one open session as shown on the dashboard.
type WorkingEmployee struct {
	Name         string `json:"name"`
	ClockIn      string `json:"clockIn"`
	WorkingHours string `json:"workingHours"`
}

// AdminStats returns the dashboard summary, cached under cache.KeyStats.
// Only the underlying table reads count against the quota.
func (r *Resolver) AdminStats(ctx context.Context) (*AdminStats, error) {
	if v, ok := r.store.Get(cache.KeyStats); ok {
		if st, ok := v.(*AdminStats); ok {
			return st, nil
		}
	}

	roster, err := r.Employees(ctx)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	sessions, err := r.OpenSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read open sessions: %w", err)
	}

	st := BuildStats(roster, sessions, r.now(), r.loc)
	r.store.Set(cache.KeyStats, st)
	return st, nil
}

// BuildStats computes the summary at now. Present today counts open
// sessions whose clock-in falls on now's date in loc.
func BuildStats(roster []string, sessions []OpenSession, now time.Time, loc *time.Location) *AdminStats {
	now = now.In(loc)
	today := now.Format("2006-01-02")
	st := &AdminStats{
		TotalEmployees:   len(roster),
		WorkingNow:       len(sessions),
		WorkingEmployees: make([]WorkingEmployee, 0, len(sessions)),
	}
	for _, s := range sessions {
		if s.ClockIn != "" && DateOf(s.ClockIn, loc) == today {
			st.PresentToday++
		}
		name := s.EmployeeName
		if name == "" {
			name = s.SystemName
		}
		w := WorkingEmployee{Name: name, WorkingHours: formatWorkingHours(0)}
		if in, err := ParseTimestamp(s.ClockIn, loc); err == nil {
			w.ClockIn = in.Format("15:04")
			w.WorkingHours = formatWorkingHours(now.Sub(in).Hours())
		}
		st.WorkingEmployees = append(st.WorkingEmployees, w)
	}
	st.AbsentToday = st.TotalEmployees - st.PresentToday
	return st
}

func formatWorkingHours(h float64) string {
	if h <= 0 {
		return "0" + hoursSuffix
	}
	return strconv.FormatFloat(h, 'f', 1, 64) + hoursSuffix
}
