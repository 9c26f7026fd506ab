// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateSecurity,
		c.validateSheets,
		c.validateCache,
		c.validateQuota,
		c.validateAttendance,
		c.validateNotifications,
		c.validateKeepAlive,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return errors.New("server timeout must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	s := &c.Security
	// An empty secret leaves the admin API disabled.
	if s.JWTSecret != "" {
		if len(s.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters")
		}
		if containsPlaceholder(s.JWTSecret) {
			return errors.New("JWT_SECRET contains a placeholder value, generate one with: openssl rand -base64 32")
		}
	}
	if s.SessionTimeout <= 0 {
		return errors.New("security session_timeout must be positive")
	}
	for i, u := range s.Admins() {
		if u.Username == "" || u.PasswordHash == "" {
			return fmt.Errorf("admin user %d needs username and password_hash", i)
		}
		if !strings.HasPrefix(u.PasswordHash, "$2") {
			return fmt.Errorf("admin user %q password_hash must be a bcrypt hash", u.Username)
		}
	}
	if !s.RateLimitDisabled {
		if s.RateLimitReqs < 1 || s.RateLimitReqs > 100000 {
			return fmt.Errorf("rate_limit_requests must be between 1 and 100000, got %d", s.RateLimitReqs)
		}
		if s.RateLimitWindow < time.Second {
			return errors.New("rate_limit_window must be at least 1s")
		}
	}
	if c.IsProduction() && s.JWTSecret != "" && c.hasWildcardCORS() {
		return errors.New("CORS_ORIGINS=* is not allowed in production with the admin API enabled, list the allowed origins instead")
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, o := range c.Security.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

func (c *Config) validateSheets() error {
	s := &c.Sheets
	if s.SpreadsheetID == "" {
		return errors.New("GOOGLE_SHEET_ID is required")
	}
	if s.CredentialsFile == "" && s.CredentialsJSON == "" {
		return errors.New("one of GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON is required")
	}
	if err := validateHTTPURL(s.BaseURL, "sheets base_url", false); err != nil {
		return err
	}
	if err := validateHTTPURL(s.TokenURL, "sheets token_url", true); err != nil {
		return err
	}
	if s.Timeout <= 0 {
		return errors.New("sheets timeout must be positive")
	}
	if s.MainSheet == "" || s.OnWorkSheet == "" || s.EmployeesSheet == "" {
		return errors.New("sheet titles must not be empty")
	}
	return nil
}

func (c *Config) validateCache() error {
	ttls := map[string]time.Duration{
		"employees_ttl": c.Cache.EmployeesTTL,
		"onwork_ttl":    c.Cache.OnWorkTTL,
		"main_ttl":      c.Cache.MainTTL,
		"stats_ttl":     c.Cache.StatsTTL,
		"emergency_ttl": c.Cache.EmergencyTTL,
	}
	for name, ttl := range ttls {
		if ttl <= 0 {
			return fmt.Errorf("cache %s must be positive", name)
		}
	}
	return nil
}

func (c *Config) validateQuota() error {
	if c.Quota.MaxPerMinute < 1 || c.Quota.MaxPerHour < 1 {
		return errors.New("quota ceilings must be at least 1")
	}
	if c.Quota.MaxPerMinute > c.Quota.MaxPerHour {
		return fmt.Errorf("quota max_per_minute (%d) exceeds max_per_hour (%d)", c.Quota.MaxPerMinute, c.Quota.MaxPerHour)
	}
	return nil
}

func (c *Config) validateAttendance() error {
	if c.Attendance.MatchTolerance <= 0 {
		return errors.New("attendance match_tolerance must be positive")
	}
	if c.Attendance.WarmDelay < 0 {
		return errors.New("attendance warm_delay must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Geocode.Enabled {
		if err := validateHTTPURL(c.Geocode.BaseURL, "geocode base_url", false); err != nil {
			return err
		}
		if c.Geocode.Rate <= 0 {
			return errors.New("geocode rate must be positive")
		}
	}
	if c.Webhook.URL != "" {
		if err := validateHTTPURL(c.Webhook.URL, "WEBHOOK_URL", true); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateKeepAlive() error {
	if !c.KeepAlive.Enabled {
		return nil
	}
	if err := validateHTTPURL(c.KeepAlive.URL, "keep-alive url", false); err != nil {
		return err
	}
	if c.KeepAlive.Interval < time.Minute {
		return errors.New("keep-alive interval must be at least 1m")
	}
	_, err := ParseHourWindows(c.KeepAlive.Windows)
	return err
}

// HourWindow is a local-time range [Start, End) in whole hours.
type HourWindow struct {
	Start int
	End   int
}

// Contains reports whether hour falls inside w.
func (w HourWindow) Contains(hour int) bool {
	return hour >= w.Start && hour < w.End
}

// ParseHourWindows parses entries like "05-10".
func ParseHourWindows(specs []string) ([]HourWindow, error) {
	out := make([]HourWindow, 0, len(specs))
	for _, spec := range specs {
		from, to, ok := strings.Cut(strings.TrimSpace(spec), "-")
		if !ok {
			return nil, fmt.Errorf("keep-alive window %q must look like HH-HH", spec)
		}
		start, err1 := strconv.Atoi(from)
		end, err2 := strconv.Atoi(to)
		if err1 != nil || err2 != nil || start < 0 || end > 24 || start >= end {
			return nil, fmt.Errorf("keep-alive window %q is not a valid hour range", spec)
		}
		out = append(out, HourWindow{Start: start, End: end})
	}
	return out, nil
}

var (
	validLogLevels  = []string{"trace", "debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "console"}
)

func (c *Config) validateLogging() error {
	if !contains(validLogLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("LOG_LEVEL must be one of %v, got %q", validLogLevels, c.Logging.Level)
	}
	if !contains(validLogFormats, strings.ToLower(c.Logging.Format)) {
		return fmt.Errorf("LOG_FORMAT must be one of %v, got %q", validLogFormats, c.Logging.Format)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// placeholderPatterns catch values copied verbatim from example files.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, p := range placeholderPatterns {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}
