// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/punchclock/internal/logging"
)

type contextKey string

// ClaimsContextKey holds the validated *Claims on admin requests.
const ClaimsContextKey contextKey = "claims"

// ClaimsFromContext returns the claims stored by RequireAdmin.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return c, ok
}

// Middleware guards the admin API.
type Middleware struct {
	jwt      *JWTManager
	enforcer *Enforcer
}

// NewMiddleware creates the admin guard.
func NewMiddleware(jwt *JWTManager, enforcer *Enforcer) *Middleware {
	return &Middleware{jwt: jwt, enforcer: enforcer}
}

// RequireAdmin rejects requests without a valid bearer token (401 when
// missing, 403 when invalid) and requests whose role the policy denies.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Access token required")
			return
		}
		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("JWT verification failed")
			writeError(w, http.StatusForbidden, "Invalid token")
			return
		}

		allowed, err := m.enforcer.Allow(claims.Role, r.URL.Path, r.Method)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization check failed")
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !allowed {
			logging.Ctx(r.Context()).Warn().Str("username", claims.Username).Str("role", claims.Role).
				Str("path", r.URL.Path).Msg("Admin access denied")
			writeError(w, http.StatusForbidden, "Insufficient permissions")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken takes the second field of the header, as in "Bearer <token>".
func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
