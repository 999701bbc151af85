package auth

import (
	"context"
	"strings"
)

// RBACConfig configures the RBAC authorizer.
type RBACConfig struct {
	// Roles defines role configurations.
	Roles map[Role]RoleConfig

	// Common lists permissions granted to every signed-in identity,
	// e.g. "account:update" so any admin may change their own password.
	Common []string

	// AllowUnassigned permits identities that carry no roles at all. The
	// API decides for them.
	AllowUnassigned bool
}

// RoleConfig defines permissions for a role.
type RoleConfig struct {
	// Permissions are "<resource>:<action>" strings; either side may be "*".
	Permissions []string

	// Inherits lists roles this role inherits from.
	Inherits []Role

	// Denied are permissions this role may never exercise, even through
	// inheritance. Deny takes precedence over every allow.
	Denied []string
}

// RBACAuthorizer provides role-based access control over dashboard actions.
//
// Contract:
//   - Concurrency: safe for concurrent use; the config is read-only.
//   - Errors: denials return *AuthzError, which matches ErrForbidden.
type RBACAuthorizer struct {
	config RBACConfig
}

// NewRBACAuthorizer creates a new RBAC authorizer.
func NewRBACAuthorizer(config RBACConfig) *RBACAuthorizer {
	return &RBACAuthorizer{config: config}
}

// DefaultPolicy returns the role table of the admin dashboard.
func DefaultPolicy() RBACConfig {
	return RBACConfig{
		Roles: map[Role]RoleConfig{
			RoleViewer: {
				Permissions: []string{"users:read", "fixtures:read", "teams:read"},
			},
			RoleCoach: {
				Permissions: []string{"fixtures:read", "teams:read"},
			},
			RoleSales: {
				Permissions: []string{"users:read", "wallet:read", "plans:read", "plans:buy"},
			},
			RoleHR: {
				Permissions: []string{"users:*", "invites:*"},
				Inherits:    []Role{RoleViewer},
				Denied:      []string{"admins:*"},
			},
			RoleSuper: {
				Permissions: []string{"*:*"},
			},
		},
		Common:          []string{"account:*"},
		AllowUnassigned: true,
	}
}

// Name returns "rbac".
func (a *RBACAuthorizer) Name() string {
	return "rbac"
}

// Authorize checks if the identity is allowed to perform the action.
func (a *RBACAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.Subject == nil {
		return &AuthzError{
			Resource: req.Resource,
			Action:   req.Action,
			Reason:   "no identity provided",
		}
	}
	deny := func(reason string) error {
		return &AuthzError{
			Subject:  req.Subject.Principal,
			Resource: req.Resource,
			Action:   req.Action,
			Reason:   reason,
		}
	}

	if len(req.Subject.Roles) == 0 && a.config.AllowUnassigned {
		return nil
	}

	roles := a.collectRoles(req.Subject)
	for _, role := range roles {
		for _, perm := range a.config.Roles[role].Denied {
			if matchPermission(perm, req) {
				return deny("denied for role " + string(role))
			}
		}
	}

	for _, perm := range a.config.Common {
		if matchPermission(perm, req) {
			return nil
		}
	}
	for _, role := range roles {
		for _, perm := range a.config.Roles[role].Permissions {
			if matchPermission(perm, req) {
				return nil
			}
		}
	}
	return deny("no role permits this action")
}

func (a *RBACAuthorizer) collectRoles(subject *Identity) []Role {
	seen := make(map[Role]bool)
	result := make([]Role, 0, len(subject.Roles))

	queue := append([]Role{}, subject.Roles...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if seen[current] {
			continue
		}
		seen[current] = true
		result = append(result, current)

		if role, ok := a.config.Roles[current]; ok {
			for _, inherited := range role.Inherits {
				if !seen[inherited] {
					queue = append(queue, inherited)
				}
			}
		}
	}
	return result
}

// matchPermission matches "<resource>:<action>" against a request. A bare
// action matches it on any resource.
func matchPermission(perm string, req *AuthzRequest) bool {
	resource, action, ok := strings.Cut(perm, ":")
	if !ok {
		return perm == "*" || perm == req.Action
	}
	return (resource == "*" || resource == req.Resource) &&
		(action == "*" || action == req.Action)
}

var _ Authorizer = (*RBACAuthorizer)(nil)
