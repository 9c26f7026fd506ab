// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

// Package geocode turns clock-in coordinates into place names using the
// OpenStreetMap Nominatim reverse endpoint.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/punchclock/internal/attendance"
	"github.com/tomtom215/punchclock/internal/breaker"
	"github.com/tomtom215/punchclock/internal/config"
	"github.com/tomtom215/punchclock/internal/logging"
	"github.com/tomtom215/punchclock/internal/metrics"
)

// Nominatim implements attendance.Geocoder. Requests are paced to the
// public instance's usage policy of one per second.
type Nominatim struct {
	client    *http.Client
	baseURL   string
	userAgent string
	language  string
	limiter   *rate.Limiter
	breaker   *breaker.Breaker
}

var _ attendance.Geocoder = (*Nominatim)(nil)

// New creates a Nominatim geocoder from cfg.
func New(cfg config.GeocodeConfig) *Nominatim {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	perSecond := cfg.Rate
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Nominatim{
		client:    &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		language:  cfg.Language,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), 1),
		breaker:   breaker.New("nominatim", breaker.Settings{Timeout: time.Minute}),
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Reverse implements attendance.Geocoder. Any failure yields "lat, lon".
func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) string {
	name, err := n.Lookup(ctx, lat, lon)
	if err != nil {
		metrics.GeocodeLookups.WithLabelValues("fallback").Inc()
		logging.Ctx(ctx).Warn().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("Location lookup failed, using coordinates")
		return attendance.CoordinatesText(lat, lon)
	}
	metrics.GeocodeLookups.WithLabelValues("ok").Inc()
	return name
}

// errNoResult is returned when Nominatim answers without a display name.
var errNoResult = errors.New("no display name in response")

// Lookup returns the display name for the coordinates.
func (n *Nominatim) Lookup(ctx context.Context, lat, lon float64) (string, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return breaker.Execute(n.breaker, func() (string, error) {
		return n.query(ctx, lat, lon)
	})
}

func (n *Nominatim) query(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")
	if n.language != "" {
		q.Set("accept-language", n.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	var out reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.DisplayName == "" {
		if out.Error != "" {
			return "", fmt.Errorf("%w: %s", errNoResult, out.Error)
		}
		return "", errNoResult
	}
	return out.DisplayName, nil
}

// Disabled implements attendance.Geocoder without network access.
type Disabled struct{}

// Reverse returns the coordinates as text.
func (Disabled) Reverse(_ context.Context, lat, lon float64) string {
	return attendance.CoordinatesText(lat, lon)
}
