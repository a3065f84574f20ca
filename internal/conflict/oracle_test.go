package conflict

import (
	"testing"

	"github.com/scenesync/core/internal/opmodel"
)

func op(kind opmodel.Kind, target uint32, payload interface{}) *opmodel.Operation {
	return &opmodel.Operation{Kind: kind, Target: target, Payload: payload}
}

func TestConflictsDifferentTargets(t *testing.T) {
	a := op(opmodel.Move, 7, nil)
	b := op(opmodel.Move, 8, nil)
	if Conflicts(a, b) {
		t.Fatalf("different non-zero targets should never conflict")
	}
}

func TestConflictsSameKindSameObject(t *testing.T) {
	a := op(opmodel.Move, 7, nil)
	b := op(opmodel.Move, 7, nil)
	if !Conflicts(a, b) {
		t.Fatalf("same kind + same object should conflict")
	}
}

func TestConflictsDeleteWins(t *testing.T) {
	a := op(opmodel.Move, 7, nil)
	b := op(opmodel.DeleteObject, 7, nil)
	if !Conflicts(a, b) {
		t.Fatalf("delete vs non-delete on same object should conflict")
	}
}

func TestConflictsCreateNameCollision(t *testing.T) {
	a := op(opmodel.CreateObject, 0, opmodel.CreatePayload{Name: "Cube", ParentID: 1})
	b := op(opmodel.CreateObject, 0, opmodel.CreatePayload{Name: "Cube", ParentID: 1})
	if !Conflicts(a, b) {
		t.Fatalf("identical name+parent creates should conflict")
	}

	c := op(opmodel.CreateObject, 0, opmodel.CreatePayload{Name: "Sphere", ParentID: 1})
	if Conflicts(a, c) {
		t.Fatalf("distinct names under same parent should not conflict")
	}
}

func TestConflictsSetPropertySameHash(t *testing.T) {
	a := op(opmodel.SetProperty, 7, opmodel.PropertyPayload{PropertyHash: 42})
	b := op(opmodel.SetProperty, 7, opmodel.PropertyPayload{PropertyHash: 42})
	if !Conflicts(a, b) {
		t.Fatalf("same object + same property hash should conflict")
	}

	c := op(opmodel.SetProperty, 7, opmodel.PropertyPayload{PropertyHash: 99})
	if !Conflicts(a, c) {
		t.Fatalf("different property hash on the same object should still conflict (Rule 2 matches first)")
	}
}

func TestConflictsHierarchyCycle(t *testing.T) {
	a := op(opmodel.HierarchyChange, 7, opmodel.HierarchyPayload{NewParent: 9})
	b := op(opmodel.HierarchyChange, 9, opmodel.HierarchyPayload{NewParent: 7})
	if !Conflicts(a, b) {
		t.Fatalf("reciprocal reparenting should conflict as a would-be cycle")
	}
}

func TestConflictsHierarchySameObject(t *testing.T) {
	a := op(opmodel.HierarchyChange, 7, opmodel.HierarchyPayload{NewParent: 9})
	b := op(opmodel.HierarchyChange, 7, opmodel.HierarchyPayload{NewParent: 10})
	if !Conflicts(a, b) {
		t.Fatalf("moving the same object twice should conflict")
	}
}

func TestConflictsOtherwiseNone(t *testing.T) {
	a := op(opmodel.Move, 7, nil)
	b := op(opmodel.Rotate, 7, nil)
	if Conflicts(a, b) {
		t.Fatalf("different kinds on same object that aren't special-cased should not conflict")
	}
}

func TestConflictsZeroTargetsStillEvaluated(t *testing.T) {
	// Two CreateObject ops both target 0 (target is the parent placeholder
	// for creation ops) so rule 1 must not short-circuit them.
	a := op(opmodel.CreateObject, 0, opmodel.CreatePayload{Name: "Cube", ParentID: 1})
	b := op(opmodel.CreateObject, 0, opmodel.CreatePayload{Name: "Cube", ParentID: 1})
	if !Conflicts(a, b) {
		t.Fatalf("zero-target creates should still be checked for name collisions")
	}
}
