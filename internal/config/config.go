// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

// Package config loads Punchclock settings.
//
// Sources are layered with Koanf v2, highest priority last:
//
//  1. Built-in defaults (defaultConfig)
//  2. YAML file (CONFIG_PATH, or config.yaml in the working directory)
//  3. Environment variables, mapped through envTransformFunc
//
// Durations accept Go syntax ("30s", "10m", "24h").
package config

import (
	"strings"
	"time"
)

// Config is the complete runtime configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	Sheets     SheetsConfig     `koanf:"sheets"`
	Cache      CacheConfig      `koanf:"cache"`
	Quota      QuotaConfig      `koanf:"quota"`
	Attendance AttendanceConfig `koanf:"attendance"`
	Geocode    GeocodeConfig    `koanf:"geocode"`
	Webhook    WebhookConfig    `koanf:"webhook"`
	KeepAlive  KeepAliveConfig  `koanf:"keepalive"`
	Warmer     WarmerConfig     `koanf:"warmer"`
	Liff       LiffConfig       `koanf:"liff"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
	// PublicURL is what /api/config reports as apiUrl.
	PublicURL string `koanf:"public_url"`
}

// AdminUser is one admin panel account. PasswordHash is a bcrypt hash.
type AdminUser struct {
	ID           int    `koanf:"id"`
	Username     string `koanf:"username"`
	PasswordHash string `koanf:"password_hash"`
	Name         string `koanf:"name"`
	Role         string `koanf:"role"`
}

// SecurityConfig holds auth and request limiting settings.
type SecurityConfig struct {
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	AdminUsers     []AdminUser   `koanf:"admin_users"`

	// AdminUsername and AdminPasswordHash define one extra admin from the
	// environment, for deployments without a config file.
	AdminUsername     string `koanf:"admin_username"`
	AdminPasswordHash string `koanf:"admin_password_hash"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Admins returns the configured admin users including the env-defined one.
func (s *SecurityConfig) Admins() []AdminUser {
	users := make([]AdminUser, 0, len(s.AdminUsers)+1)
	users = append(users, s.AdminUsers...)
	if s.AdminUsername != "" && s.AdminPasswordHash != "" {
		users = append(users, AdminUser{
			ID:           len(users) + 1,
			Username:     s.AdminUsername,
			PasswordHash: s.AdminPasswordHash,
			Name:         s.AdminUsername,
			Role:         "admin",
		})
	}
	return users
}

// SheetsConfig points at the spreadsheet used as the row store.
type SheetsConfig struct {
	SpreadsheetID string `koanf:"spreadsheet_id"`
	// CredentialsFile is a Google service account JSON key file.
	CredentialsFile string `koanf:"credentials_file"`
	// CredentialsJSON is the same key inline; it wins over CredentialsFile.
	CredentialsJSON string        `koanf:"credentials_json"`
	BaseURL         string        `koanf:"base_url"`
	TokenURL        string        `koanf:"token_url"`
	Timeout         time.Duration `koanf:"timeout"`
	MainSheet       string        `koanf:"main_sheet"`
	OnWorkSheet     string        `koanf:"onwork_sheet"`
	EmployeesSheet  string        `koanf:"employees_sheet"`
}

// CacheConfig holds per-table TTLs.
type CacheConfig struct {
	EmployeesTTL time.Duration `koanf:"employees_ttl"`
	OnWorkTTL    time.Duration `koanf:"onwork_ttl"`
	MainTTL      time.Duration `koanf:"main_ttl"`
	StatsTTL     time.Duration `koanf:"stats_ttl"`
	EmergencyTTL time.Duration `koanf:"emergency_ttl"`
	// SnapshotPath enables the badger snapshot store when set.
	SnapshotPath string `koanf:"snapshot_path"`
}

// QuotaConfig holds the upstream call ceilings.
type QuotaConfig struct {
	MaxPerMinute int `koanf:"max_per_minute"`
	MaxPerHour   int `koanf:"max_per_hour"`
}

// AttendanceConfig holds resolver settings.
type AttendanceConfig struct {
	Timezone string `koanf:"timezone"`
	// MatchTolerance bounds the clock-in gap accepted when several open
	// ledger rows match one name.
	MatchTolerance time.Duration `koanf:"match_tolerance"`
	WarmDelay      time.Duration `koanf:"warm_delay"`
}

// Location resolves Timezone, falling back to UTC+7 if the tz database is
// unavailable.
func (a *AttendanceConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}

// GeocodeConfig configures the Nominatim reverse geocoder.
type GeocodeConfig struct {
	Enabled   bool          `koanf:"enabled"`
	BaseURL   string        `koanf:"base_url"`
	UserAgent string        `koanf:"user_agent"`
	Language  string        `koanf:"language"`
	Rate      float64       `koanf:"rate"`
	Timeout   time.Duration `koanf:"timeout"`
}

// WebhookConfig configures outbound notifications and the inbound ping check.
type WebhookConfig struct {
	URL     string        `koanf:"url"`
	Secret  string        `koanf:"secret"`
	Timeout time.Duration `koanf:"timeout"`
}

// KeepAliveConfig configures the self-ping that keeps free hosting awake.
type KeepAliveConfig struct {
	Enabled  bool          `koanf:"enabled"`
	URL      string        `koanf:"url"`
	Interval time.Duration `koanf:"interval"`
	// Windows lists local hour ranges as "HH-HH", end exclusive.
	Windows []string `koanf:"windows"`
}

// WarmerConfig configures the background cache refresher.
type WarmerConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
}

// LiffConfig holds the chat mini-app ID served to the frontend.
type LiffConfig struct {
	ID string `koanf:"id"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsProduction reports whether the server runs with ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}
