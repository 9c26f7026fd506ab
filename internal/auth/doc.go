// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

/*
Package auth guards the admin panel API.

Admins log in with a username and a bcrypt-hashed password taken from the
configuration (see config.SecurityConfig.AdminUsers). A successful login
returns an HS256 JWT carrying the admin's id, username and role.

Every /api/admin route except login goes through Middleware.RequireAdmin:

	Authorization: Bearer <token>

A missing token is answered with 401, an invalid or expired token with 403.
The token's role is then checked against a casbin RBAC policy; the built-in
policy lets the "admin" role GET and POST anything under /api/admin/.

Example:

	jwtMgr, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
	    return err
	}
	enforcer, err := auth.NewEnforcer()
	if err != nil {
	    return err
	}
	mw := auth.NewMiddleware(jwtMgr, enforcer)
	r.With(mw.RequireAdmin).Get("/api/admin/stats", h.AdminStats)
*/
package auth
