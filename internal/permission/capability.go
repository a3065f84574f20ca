// Package permission implements the PermissionGate (C5): a role-capability
// matrix evaluated at both local submit and remote ingest, plus a durable
// store for role assignments that survive a process restart.
//
// Grounded on the teacher's (shiv248-kolabpad) pkg/database package for the
// persistence shape (sql.DB + embedded migrations), repurposed here from
// document text storage to username-to-role bookkeeping, since the spec's
// non-goal excludes persisting operation history but says nothing about
// role state.
package permission

import "github.com/scenesync/core/internal/opmodel"

// Capability is a single gated action a role may or may not hold.
type Capability uint8

const (
	CapCreateDelete Capability = iota
	CapModify
	CapMaterial
	CapScript
	CapSaveProject
	CapManageUsers
	CapManageSettings
	capCount
)

// matrix[role][capability] mirrors spec.md §4.5: "Admin has all; Editor
// can create/delete/modify objects, materials, scripts, save projects, but
// not manage users or settings; Viewer has none."
var matrix = [...][capCount]bool{
	opmodel.Viewer: {},
	opmodel.Editor: {
		CapCreateDelete: true,
		CapModify:       true,
		CapMaterial:     true,
		CapScript:       true,
		CapSaveProject:  true,
	},
	opmodel.Admin: {
		CapCreateDelete:   true,
		CapModify:         true,
		CapMaterial:       true,
		CapScript:         true,
		CapSaveProject:    true,
		CapManageUsers:    true,
		CapManageSettings: true,
	},
}

// capabilityFor maps an operation kind to the capability it requires.
// PermissionChange itself requires CapManageUsers; every informational or
// presence-adjacent kind is intentionally absent from this switch and
// falls through to CapModify, the least-privileged gated action, rather
// than being ungated.
func capabilityFor(k opmodel.Kind) Capability {
	switch k {
	case opmodel.CreateObject, opmodel.DeleteObject:
		return CapCreateDelete
	case opmodel.AssignMaterial:
		return CapMaterial
	case opmodel.EditScript:
		return CapScript
	case opmodel.PermissionChange:
		return CapManageUsers
	default:
		return CapModify
	}
}

// Can reports whether role holds the capability required by kind.
func Can(role opmodel.Role, kind opmodel.Kind) bool {
	if int(role) >= len(matrix) {
		return false
	}
	return matrix[role][capabilityFor(kind)]
}
