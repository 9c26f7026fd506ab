// Punchclock - Employee Time Attendance Tracker
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/punchclock

package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// rbacModel matches a role against path patterns and method regexes.
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// defaultPolicy grants the admin role the whole admin API.
var defaultPolicy = [][]string{
	{RoleAdmin, "/api/admin/*", "(GET)|(POST)"},
}

// Enforcer decides whether a role may call an admin route.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads the built-in model and policy.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if _, err := e.AddPolicies(defaultPolicy); err != nil {
		return nil, fmt.Errorf("failed to add policy: %w", err)
	}
	return &Enforcer{enforcer: e}, nil
}

// Allow reports whether role may perform method on path.
func (e *Enforcer) Allow(role, path, method string) (bool, error) {
	ok, err := e.enforcer.Enforce(role, path, method)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return ok, nil
}

// Grant adds a policy rule for role.
func (e *Enforcer) Grant(role, pathPattern, methodPattern string) error {
	if _, err := e.enforcer.AddPolicy(role, pathPattern, methodPattern); err != nil {
		return fmt.Errorf("failed to add policy: %w", err)
	}
	return nil
}
