package permission

import "github.com/scenesync/core/internal/opmodel"

// RoleLookup resolves a participant's current role. The Gate always
// consults this at the moment of the check (spec.md §4.5: "An op
// authored by a user who lacked the capability at the time the op was
// submitted must still be rejected on receive if that user currently
// lacks the capability"), never the role recorded on the operation
// itself, since operations don't carry one.
type RoleLookup interface {
	RoleOf(userID int) (opmodel.Role, bool)
}

// Gate is the PermissionGate. It holds no state of its own beyond a
// RoleLookup; every decision is a pure function of the looked-up role and
// the operation kind, so retroactive demotion is automatically enforced
// without the gate needing its own bookkeeping.
type Gate struct {
	roles RoleLookup
}

// NewGate creates a Gate consulting roles for every check.
func NewGate(roles RoleLookup) *Gate {
	return &Gate{roles: roles}
}

// CanApply implements PermissionGate.can_apply (spec.md §4.5). An unknown
// user (never joined, or already evicted) is always denied.
func (g *Gate) CanApply(userID int, kind opmodel.Kind) bool {
	role, ok := g.roles.RoleOf(userID)
	if !ok {
		return false
	}
	return Can(role, kind)
}
