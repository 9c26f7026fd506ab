// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/punchclock/internal/logging"
	"github.com/tomtom215/punchclock/internal/notify"
	"github.com/tomtom215/punchclock/internal/supervisor/services"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status      string                  `json:"status"`
	Timestamp   time.Time               `json:"timestamp"`
	Uptime      float64                 `json:"uptime"`
	KeepAlive   services.KeepAliveStats `json:"keepAlive"`
	Environment string                  `json:"environment"`
	Config      HealthConfig            `json:"config"`
}

// HealthConfig reports whether the mini-app ID is set without exposing it.
type HealthConfig struct {
	HasLiffID    bool `json:"hasLiffId"`
	LiffIDLength int  `json:"liffIdLength"`
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	var ka services.KeepAliveStats
	if h.keepAlive != nil {
		ka = h.keepAlive.Stats()
	}
	liff := h.config.Liff.ID
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		Timestamp:   h.now().UTC(),
		Uptime:      h.uptime(),
		KeepAlive:   ka,
		Environment: h.environment(),
		Config: HealthConfig{
			HasLiffID:    liff != "",
			LiffIDLength: len(liff),
		},
	})
}

// Ping handles GET /api/ping, the keep-alive target.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "pong",
		"timestamp": h.now().UTC(),
		"uptime":    h.uptime(),
	})
}

// WebhookPing handles POST /api/webhook/ping from the map generator. When a
// webhook secret is configured the caller must present it in the
// X-Webhook-Secret header or the secret query parameter.
func (h *Handler) WebhookPing(w http.ResponseWriter, r *http.Request) {
	if want := h.config.Webhook.Secret; want != "" {
		got := r.Header.Get(notify.SecretHeader)
		if got == "" {
			got = r.URL.Query().Get("secret")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			logging.Ctx(r.Context()).Warn().Msg("Webhook ping with wrong secret")
			respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
	}
	logging.Ctx(r.Context()).Info().Msg("Received webhook ping")
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "received",
		"timestamp": h.now().UTC(),
	})
}

// clientConfig is the /api/config payload.
type clientConfig struct {
	LiffID      string         `json:"liffId"`
	APIURL      string         `json:"apiUrl"`
	Environment string         `json:"environment"`
	Features    clientFeatures `json:"features"`
}

type clientFeatures struct {
	KeepAlive   bool `json:"keepAlive"`
	LiffEnabled bool `json:"liffEnabled"`
}

// ClientConfig handles GET /api/config.
func (h *Handler) ClientConfig(w http.ResponseWriter, r *http.Request) {
	respondData(w, clientConfig{
		LiffID:      h.config.Liff.ID,
		APIURL:      strings.TrimRight(h.config.Server.PublicURL, "/") + "/api",
		Environment: h.environment(),
		Features: clientFeatures{
			KeepAlive:   h.config.KeepAlive.Enabled,
			LiffEnabled: h.config.Liff.ID != "",
		},
	})
}

// Robots handles GET /robots.txt.
func (h *Handler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("User-agent: *\nDisallow: /api/\n"))
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Not found")
}

// MethodNotAllowed answers known routes called with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
}

func (h *Handler) environment() string {
	if h.config.Server.Environment == "" {
		return "development"
	}
	return h.config.Server.Environment
}
