// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	employeeKey  contextKey = "employee"
)

// GenerateRequestID returns a new UUIDv4 string.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithRequestID stores id in ctx. The request ID middleware calls it
// with the incoming X-Request-ID header or a generated ID.
//
//	ctx = logging.ContextWithRequestID(ctx, logging.GenerateRequestID())
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithEmployee tags ctx with the employee name an operation is acting on.
//
//	ctx = logging.ContextWithEmployee(ctx, req.Employee)
//	logging.Ctx(ctx).Info().Msg("Clock-in recorded") // carries "employee"
func ContextWithEmployee(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, employeeKey, name)
}

// EmployeeFromContext returns the employee tag or "".
func EmployeeFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(employeeKey).(string); ok {
		return name
	}
	return ""
}

// Ctx returns the global logger enriched with the request ID and employee
// stored in ctx, if any. Fields that are not set are left out rather than
// written empty.
//
// The returned logger is a fresh copy on every call, so adding fields to it
// does not affect other callers:
//
//	log := logging.Ctx(ctx)
//	log.Info().Str("since", s.ClockIn).Msg("Clock-in rejected, session already open")
func Ctx(ctx context.Context) *zerolog.Logger {
	lc := Logger().With()
	if id := RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	if name := EmployeeFromContext(ctx); name != "" {
		lc = lc.Str("employee", name)
	}
	l := lc.Logger()
	return &l
}

// WithComponent returns a child logger tagged with component. Supervised
// services take one at construction:
//
//	services.NewCacheWarmerService(resolver, interval, logging.WithComponent("cache-warmer"))
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
