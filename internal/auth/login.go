// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/punchclock/internal/config"
	"github.com/tomtom215/punchclock/internal/logging"
)

var (
	// ErrMissingCredentials is returned when username or password is empty.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrInvalidCredentials covers both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// RoleAdmin is the role granted access to the admin API.
const RoleAdmin = "admin"

// User is an admin account without its password hash.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// dummyHash keeps the compare cost constant for unknown usernames.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("punchclock-unknown-user"), bcrypt.DefaultCost)
	return h
})

// Authenticator checks admin credentials and issues tokens.
type Authenticator struct {
	users map[string]config.AdminUser
	jwt   *JWTManager
}

// NewAuthenticator builds an Authenticator over the configured admins.
func NewAuthenticator(admins []config.AdminUser, jwt *JWTManager) *Authenticator {
	users := make(map[string]config.AdminUser, len(admins))
	for _, u := range admins {
		if u.Role == "" {
			u.Role = RoleAdmin
		}
		users[u.Username] = u
	}
	return &Authenticator{users: users, jwt: jwt}
}

// Login verifies username and password and returns a signed token.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, User, error) {
	if username == "" || password == "" {
		return "", User{}, ErrMissingCredentials
	}

	u, ok := a.users[username]
	var hash []byte
	if ok {
		hash = []byte(u.PasswordHash)
	} else {
		hash = dummyHash()
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !ok {
		logging.Ctx(ctx).Warn().Str("username", username).Msg("Admin login rejected")
		return "", User{}, ErrInvalidCredentials
	}

	user := User{ID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role}
	token, err := a.jwt.GenerateToken(user)
	if err != nil {
		return "", User{}, fmt.Errorf("issue token: %w", err)
	}
	logging.Ctx(ctx).Info().Str("username", username).Msg("Admin logged in")
	return token, user, nil
}

// Tokens returns the token manager.
func (a *Authenticator) Tokens() *JWTManager { return a.jwt }
