// Package authz implements the role-based authorization gate consulted
// before any mutating stage operation.
package authz

import (
	"context"
	"fmt"

	"github.com/deploykit/stagegate/internal/domain"
)

// Grant assigns a role to a principal on a resource. An empty Resource
// matches every resource of the grant's type (a platform-wide grant).
type Grant struct {
	Principal string
	Resource  string
	Type      domain.ResourceType
	Role      domain.Role
}

// RoleAuthorizer evaluates grants loaded once at startup. The grant table is
// read-only after construction, so it is safe for concurrent use.
type RoleAuthorizer struct {
	grants map[grantKey]domain.Role
}

type grantKey struct {
	principal string
	resource  string
	rtype     domain.ResourceType
}

var _ domain.Authorizer = (*RoleAuthorizer)(nil)

// rank orders roles so a higher role satisfies a lower requirement.
func rank(r domain.Role) int {
	switch r {
	case domain.RoleReader:
		return 1
	case domain.RoleOperator:
		return 2
	case domain.RoleAdmin:
		return 3
	}
	return 0
}

// New creates an authorizer from a grant table. Later grants for the same
// (principal, resource) pair win.
func New(grants []Grant) *RoleAuthorizer {
	a := &RoleAuthorizer{grants: make(map[grantKey]domain.Role)}
	for _, g := range grants {
		a.grants[grantKey{g.Principal, g.Resource, g.Type}] = g.Role
	}
	return a
}

// Authorize returns nil if the caller holds a role on the resource at least
// as high as required, and a Forbidden error otherwise. No side effects.
func (a *RoleAuthorizer) Authorize(ctx context.Context, caller domain.Caller, resource domain.Resource, required domain.Role) error {
	held, ok := a.grants[grantKey{caller.Name, resource.Name, resource.Type}]
	if !ok {
		// Fall back to a platform-wide grant of the same resource type.
		held, ok = a.grants[grantKey{caller.Name, "", resource.Type}]
	}
	if ok && rank(held) >= rank(required) {
		return nil
	}

	return domain.ErrForbidden(fmt.Sprintf(
		"%s requires role %s on %s %s", caller.Name, required, resource.Type, resource.Name))
}
