package permission

import "github.com/scenesync/core/internal/opmodel"

// RoleTable is the in-memory, per-participant role cache the Gate
// actually consults on the hot ingest path (spec.md §5: no suspension
// points inside the gated components). SessionController sets the host's
// Admin and each joiner's Viewer role at join time without reading Store,
// and the Dispatcher keeps it in sync as PermissionChange ops apply;
// Store is only written on role change, never touched once per op.
type RoleTable struct {
	roles [opmodel.MaxUsers]opmodel.Role
	set   [opmodel.MaxUsers]bool
}

// NewRoleTable creates an empty table.
func NewRoleTable() *RoleTable { return &RoleTable{} }

// RoleOf implements RoleLookup.
func (t *RoleTable) RoleOf(userID int) (opmodel.Role, bool) {
	if userID < 0 || userID >= opmodel.MaxUsers || !t.set[userID] {
		return opmodel.Viewer, false
	}
	return t.roles[userID], true
}

// Set assigns userID's role, called on join and on applying
// a PermissionChange op.
func (t *RoleTable) Set(userID int, role opmodel.Role) {
	if userID < 0 || userID >= opmodel.MaxUsers {
		return
	}
	t.roles[userID] = role
	t.set[userID] = true
}

// Clear removes userID, called on UserLeave/eviction so a reused
// participant slot doesn't inherit a stale role.
func (t *RoleTable) Clear(userID int) {
	if userID < 0 || userID >= opmodel.MaxUsers {
		return
	}
	t.roles[userID] = opmodel.Viewer
	t.set[userID] = false
}
