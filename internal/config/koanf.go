// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/punchclock/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        3000,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			SessionTimeout:  24 * time.Hour,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Sheets: SheetsConfig{
			BaseURL:        "https://sheets.googleapis.com",
			TokenURL:       "https://oauth2.googleapis.com/token",
			Timeout:        10 * time.Second,
			MainSheet:      "MAIN",
			OnWorkSheet:    "ON WORK",
			EmployeesSheet: "EMPLOYEES",
		},
		Cache: CacheConfig{
			EmployeesTTL: 300 * time.Second,
			OnWorkTTL:    60 * time.Second,
			MainTTL:      30 * time.Second,
			StatsTTL:     120 * time.Second,
			EmergencyTTL: time.Hour,
		},
		Quota: QuotaConfig{
			MaxPerMinute: 30,
			MaxPerHour:   300,
		},
		Attendance: AttendanceConfig{
			Timezone:       "Asia/Bangkok",
			MatchTolerance: 5 * time.Minute,
			WarmDelay:      2 * time.Second,
		},
		Geocode: GeocodeConfig{
			Enabled:   true,
			BaseURL:   "https://nominatim.openstreetmap.org",
			UserAgent: "punchclock/1.0",
			Language:  "th,en",
			Rate:      1,
			Timeout:   5 * time.Second,
		},
		Webhook: WebhookConfig{
			Timeout: 10 * time.Second,
		},
		KeepAlive: KeepAliveConfig{
			Interval: 10 * time.Minute,
			Windows:  []string{"05-10", "15-20"},
		},
		Warmer: WarmerConfig{
			Enabled:  true,
			Interval: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf builds a Config from defaults, the optional YAML file and
// the environment, then validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// SHEETS_SPREADSHEET_ID -> sheets.spreadsheet_id, etc.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"keepalive.windows",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok || raw == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to config paths.
// Names not listed are ignored, so unrelated variables never leak in.
var envMappings = map[string]string{
	"port":        "server.port",
	"host":        "server.host",
	"http_port":   "server.port",
	"http_host":   "server.host",
	"environment": "server.environment",
	"node_env":    "server.environment",
	"api_url":     "server.public_url",

	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"admin_username":      "security.admin_username",
	"admin_password_hash": "security.admin_password_hash",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	"google_sheet_id":         "sheets.spreadsheet_id",
	"sheets_spreadsheet_id":   "sheets.spreadsheet_id",
	"google_credentials_file": "sheets.credentials_file",
	"google_credentials_json": "sheets.credentials_json",
	"sheets_base_url":         "sheets.base_url",
	"sheets_token_url":        "sheets.token_url",
	"sheets_timeout":          "sheets.timeout",
	"sheets_main_sheet":       "sheets.main_sheet",
	"sheets_onwork_sheet":     "sheets.onwork_sheet",
	"sheets_employees_sheet":  "sheets.employees_sheet",
	"cache_employees_ttl":     "cache.employees_ttl",
	"cache_onwork_ttl":        "cache.onwork_ttl",
	"cache_main_ttl":          "cache.main_ttl",
	"cache_stats_ttl":         "cache.stats_ttl",
	"cache_emergency_ttl":     "cache.emergency_ttl",
	"cache_snapshot_path":     "cache.snapshot_path",
	"quota_max_per_minute":    "quota.max_per_minute",
	"quota_max_per_hour":      "quota.max_per_hour",
	"tz":                      "attendance.timezone",
	"attendance_timezone":     "attendance.timezone",
	"attendance_tolerance":    "attendance.match_tolerance",
	"attendance_warm_delay":   "attendance.warm_delay",
	"geocode_enabled":         "geocode.enabled",
	"geocode_base_url":        "geocode.base_url",
	"geocode_user_agent":      "geocode.user_agent",
	"geocode_rate":            "geocode.rate",
	"webhook_url":             "webhook.url",
	"webhook_secret":          "webhook.secret",
	"webhook_timeout":         "webhook.timeout",
	"keep_alive_enabled":      "keepalive.enabled",
	"render_service_url":      "keepalive.url",
	"keep_alive_url":          "keepalive.url",
	"keep_alive_interval":     "keepalive.interval",
	"keep_alive_windows":      "keepalive.windows",
	"cache_warmer_enabled":    "warmer.enabled",
	"cache_warmer_interval":   "warmer.interval",
	"liff_id":                 "liff.id",
	"log_level":               "logging.level",
	"log_format":              "logging.format",
	"log_caller":              "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
