// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/punchclock/internal/auth"
	"github.com/tomtom215/punchclock/internal/middleware"
)

// Router wires the handlers into a chi mux.
type Router struct {
	handler       *Handler
	authz         *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil chiMiddleware takes the defaults.
func NewRouter(handler *Handler, authz *auth.Middleware, chiMiddleware *ChiMiddleware) *Router {
	if chiMiddleware == nil {
		chiMiddleware = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		authz:         authz,
		chiMiddleware: chiMiddleware,
	}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	// Global middleware, outermost first. CORS is global so preflight
	// requests never reach a route.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Get("/robots.txt", h.Robots)
	r.With(router.chiMiddleware.RateLimitHealth()).Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Health and client bootstrap
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitHealth())
			r.Get("/health", h.Health)
			r.Get("/ping", h.Ping)
			r.Get("/config", h.ClientConfig)
			r.Post("/webhook/ping", h.WebhookPing)
		})

		// Mini-app endpoints
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitWrite())
			r.Post("/clockin", h.ClockIn)
			r.Post("/clockout", h.ClockOut)
			r.Post("/check-status", h.CheckStatus)
			r.Post("/employees", h.Employees)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", h.AdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(router.chiMiddleware.RateLimit())
				r.Use(router.authz.RequireAdmin)

				r.Get("/verify-token", h.VerifyToken)
				r.Get("/stats", h.AdminStats)
				r.With(router.chiMiddleware.RateLimitExport()).Get("/export/{type}", h.Export)
				r.Get("/api-stats", h.APIStats)
				r.Post("/refresh-cache", h.RefreshCache)
				r.Get("/quota-status", h.QuotaStatus)
				r.Post("/emergency-mode", h.EmergencyMode)
			})
		})
	})

	return r
}
