package guard

import (
	"context"

	"github.com/osa030/vctrack/internal/domain/member"
)

// RoleGuard checks that the caller holds one of the authorising roles.
type RoleGuard struct {
	roles []string
}

// NewRoleGuard creates a role guard. Empty role IDs are ignored.
func NewRoleGuard(roles ...string) *RoleGuard {
	return &RoleGuard{roles: roles}
}

func (g *RoleGuard) Name() string {
	return "role_guard"
}

func (g *RoleGuard) Description() string {
	return "Checks that the caller holds an authorising role"
}

func (g *RoleGuard) ReturnCodes() []string {
	return []string{"unauthorized"}
}

func (g *RoleGuard) Check(ctx context.Context, inv Invocation) Result {
	if !member.HasAnyRole(inv.Roles, g.roles...) {
		return Deny("unauthorized")
	}
	return Allow()
}
