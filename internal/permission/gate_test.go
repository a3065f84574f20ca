package permission

import (
	"testing"

	"github.com/scenesync/core/internal/opmodel"
)

func TestCapabilityMatrix(t *testing.T) {
	cases := []struct {
		role opmodel.Role
		kind opmodel.Kind
		want bool
	}{
		{opmodel.Admin, opmodel.PermissionChange, true},
		{opmodel.Editor, opmodel.PermissionChange, false},
		{opmodel.Editor, opmodel.CreateObject, true},
		{opmodel.Editor, opmodel.DeleteObject, true},
		{opmodel.Editor, opmodel.Move, true},
		{opmodel.Viewer, opmodel.Move, false},
		{opmodel.Viewer, opmodel.CreateObject, false},
		{opmodel.Admin, opmodel.Move, true},
	}
	for _, c := range cases {
		if got := Can(c.role, c.kind); got != c.want {
			t.Errorf("Can(%s, %s) = %v, want %v", c.role, c.kind, got, c.want)
		}
	}
}

func TestGateRetroactiveRejection(t *testing.T) {
	table := NewRoleTable()
	table.Set(1, opmodel.Editor)
	gate := NewGate(table)

	if !gate.CanApply(1, opmodel.Move) {
		t.Fatal("expected Editor to be able to Move while still Editor")
	}

	// Demote user 1 to Viewer; an op authored while they were still an
	// Editor must now be rejected on receive (spec.md §4.5).
	table.Set(1, opmodel.Viewer)
	if gate.CanApply(1, opmodel.Move) {
		t.Fatal("expected demoted user's op to be rejected")
	}
}

func TestGateUnknownUserDenied(t *testing.T) {
	gate := NewGate(NewRoleTable())
	if gate.CanApply(5, opmodel.Move) {
		t.Fatal("expected unknown user to be denied")
	}
}

func TestRoleTableClearResetsToUnknown(t *testing.T) {
	table := NewRoleTable()
	table.Set(2, opmodel.Admin)
	table.Clear(2)
	if _, ok := table.RoleOf(2); ok {
		t.Fatal("expected cleared user to be unknown")
	}
}
