// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/punchclock/internal/attendance"
	"github.com/tomtom215/punchclock/internal/validation"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// dateLayout is the query format of report dates.
const dateLayout = "2006-01-02"

// Coordinate is a latitude or longitude. The mini-app sends numbers, older
// clients send strings; both decode. Empty or null is zero.
type Coordinate float64

// UnmarshalJSON accepts a JSON number, a numeric string, "" or null.
func (c *Coordinate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*c = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %q", s)
	}
	*c = Coordinate(f)
	return nil
}

// ClockInRequest is the body of POST /api/clockin.
type ClockInRequest struct {
	Employee    string     `json:"employee" validate:"required"`
	UserInfo    string     `json:"userinfo"`
	Lat         Coordinate `json:"lat" validate:"required,latitude"`
	Lon         Coordinate `json:"lon" validate:"required,longitude"`
	LineName    string     `json:"line_name"`
	LinePicture string     `json:"line_picture"`
}

func (r ClockInRequest) toDomain() attendance.ClockInRequest {
	return attendance.ClockInRequest{
		Employee:    strings.TrimSpace(r.Employee),
		UserInfo:    r.UserInfo,
		Lat:         float64(r.Lat),
		Lon:         float64(r.Lon),
		ChatName:    r.LineName,
		ChatPicture: r.LinePicture,
	}
}

// ClockOutRequest is the body of POST /api/clockout.
type ClockOutRequest struct {
	Employee string     `json:"employee" validate:"required"`
	Lat      Coordinate `json:"lat" validate:"required,latitude"`
	Lon      Coordinate `json:"lon" validate:"required,longitude"`
	LineName string     `json:"line_name"`
}

func (r ClockOutRequest) toDomain() attendance.ClockOutRequest {
	return attendance.ClockOutRequest{
		Employee: strings.TrimSpace(r.Employee),
		Lat:      float64(r.Lat),
		Lon:      float64(r.Lon),
		ChatName: r.LineName,
	}
}

// CheckStatusRequest is the body of POST /api/check-status.
type CheckStatusRequest struct {
	Employee string `json:"employee" validate:"required"`
}

// LoginRequest is the body of POST /api/admin/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// EmergencyModeRequest is the body of POST /api/admin/emergency-mode.
type EmergencyModeRequest struct {
	Enabled bool `json:"enabled"`
}

// ExportRequest holds the export path and query parameters.
type ExportRequest struct {
	Type      string `json:"type" validate:"oneof=daily monthly range"`
	Date      string `json:"date" validate:"required_if=Type daily,omitempty,datetime=2006-01-02"`
	Month     int    `json:"month" validate:"required_if=Type monthly,omitempty,min=1,max=12"`
	Year      int    `json:"year" validate:"required_if=Type monthly,omitempty,min=1900,max=9999"`
	StartDate string `json:"startDate" validate:"required_if=Type range,omitempty,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required_if=Type range,omitempty,datetime=2006-01-02"`
}

// exportRequestFrom reads the query string. Unparseable numbers become zero
// and fail validation.
func exportRequestFrom(kind string, r *http.Request) ExportRequest {
	q := r.URL.Query()
	month, _ := strconv.Atoi(q.Get("month"))
	year, _ := strconv.Atoi(q.Get("year"))
	return ExportRequest{
		Type:      kind,
		Date:      q.Get("date"),
		Month:     month,
		Year:      year,
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}
}

// toQuery converts a validated request. Dates are read in loc.
func (e ExportRequest) toQuery(loc *time.Location) (attendance.ReportQuery, error) {
	q := attendance.ReportQuery{Kind: e.Type, Month: e.Month, Year: e.Year}
	var err error
	switch e.Type {
	case attendance.ReportDaily:
		q.Date, err = time.ParseInLocation(dateLayout, e.Date, loc)
	case attendance.ReportRange:
		if q.Start, err = time.ParseInLocation(dateLayout, e.StartDate, loc); err != nil {
			break
		}
		q.End, err = time.ParseInLocation(dateLayout, e.EndDate, loc)
		if err == nil && q.End.Before(q.Start) {
			err = errors.New("endDate is before startDate")
		}
	}
	if err != nil {
		return q, err
	}
	return q, q.Validate()
}

// errMalformedBody is returned for bodies that are not a JSON object.
var errMalformedBody = errors.New("malformed JSON body")

// decodeBody reads a JSON body into dst. An empty body leaves dst zero.
func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

// missingRequired reports whether err is a validation failure on a
// required rule only.
func missingRequired(err error) bool {
	var verr *validation.RequestValidationError
	if !errors.As(err, &verr) {
		return false
	}
	for _, f := range verr.Fields {
		if f.Tag != "required" {
			return false
		}
	}
	return len(verr.Fields) > 0
}

// validationDetails returns the per-field failures of err, or nil.
func validationDetails(err error) []validation.FieldError {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}
