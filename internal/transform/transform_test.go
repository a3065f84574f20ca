package transform

import (
	"testing"

	"github.com/scenesync/core/internal/opmodel"
)

// TestMoveComposition covers spec.md Property 4 and scenario S1: local
// Move(obj, old=o, new=o+delta) transformed against a concurrent remote
// Move(obj, old=o, new=o+gamma) yields old'=o+gamma, new'=o+gamma+delta.
func TestMoveComposition(t *testing.T) {
	local := &opmodel.Operation{
		Kind:   opmodel.Move,
		Target: 7,
		Payload: opmodel.VectorPayload{
			Old: opmodel.Vec3{X: 0, Y: 0, Z: 0},
			New: opmodel.Vec3{X: 1, Y: 0, Z: 0},
		},
	}
	remote := &opmodel.Operation{
		Kind:   opmodel.Move,
		Target: 7,
		Payload: opmodel.VectorPayload{
			Old: opmodel.Vec3{X: 0, Y: 0, Z: 0},
			New: opmodel.Vec3{X: 0, Y: 2, Z: 0},
		},
	}

	rebased := Transform(local, remote)
	if rebased == nil {
		t.Fatalf("expected a rebased operation, got nil")
	}
	p := rebased.Payload.(opmodel.VectorPayload)
	if p.Old != (opmodel.Vec3{X: 0, Y: 2, Z: 0}) {
		t.Fatalf("expected old'=remote.new, got %+v", p.Old)
	}
	want := opmodel.Vec3{X: 1, Y: 2, Z: 0}
	if p.New != want {
		t.Fatalf("expected new'=%+v, got %+v", want, p.New)
	}
}

// TestCreateCollisionRename covers scenario S2.
func TestCreateCollisionRename(t *testing.T) {
	local := &opmodel.Operation{
		Kind:    opmodel.CreateObject,
		Payload: opmodel.CreatePayload{Name: "Cube", ParentID: 1},
	}
	remote := &opmodel.Operation{
		Kind:    opmodel.CreateObject,
		Payload: opmodel.CreatePayload{Name: "Cube", ParentID: 1},
	}

	rebased := Transform(local, remote)
	if rebased == nil {
		t.Fatalf("create collision must rename, not supersede")
	}
	p := rebased.Payload.(opmodel.CreatePayload)
	if p.Name != "Cube (1)" {
		t.Fatalf("expected renamed 'Cube (1)', got %q", p.Name)
	}
}

// TestDeleteBeatsMove covers scenario S3: local Move loses to a concurrent
// remote Delete, and passes through unchanged (becomes a no-op once the
// object no longer exists, rather than being specially marked).
func TestDeleteBeatsMove(t *testing.T) {
	local := &opmodel.Operation{Kind: opmodel.Move, Target: 7, Timestamp: 100}
	remote := &opmodel.Operation{Kind: opmodel.DeleteObject, Target: 7, Timestamp: 50}

	rebased := Transform(local, remote)
	if rebased != local {
		t.Fatalf("expected delete-vs-move to pass local through unchanged")
	}
}

// TestDeleteVsDeleteTiebreak covers the DeleteObject-vs-DeleteObject rule.
func TestDeleteVsDeleteTiebreak(t *testing.T) {
	earlier := &opmodel.Operation{Kind: opmodel.DeleteObject, Target: 7, Timestamp: 10}
	later := &opmodel.Operation{Kind: opmodel.DeleteObject, Target: 7, Timestamp: 20}

	if got := Transform(later, earlier); got != nil {
		t.Fatalf("later delete should be superseded by earlier, got %+v", got)
	}
	if got := Transform(earlier, later); got != earlier {
		t.Fatalf("earlier delete should survive unchanged")
	}
}

// TestSetPropertyTimestampWinner covers spec.md Property 5.
func TestSetPropertyTimestampWinner(t *testing.T) {
	local := &opmodel.Operation{
		Kind: opmodel.SetProperty, Target: 3, Timestamp: 100,
		Payload: opmodel.PropertyPayload{PropertyHash: 1, Value: []byte("local")},
	}
	remote := &opmodel.Operation{
		Kind: opmodel.SetProperty, Target: 3, Timestamp: 200,
		Payload: opmodel.PropertyPayload{PropertyHash: 1, Value: []byte("remote")},
	}

	if got := Transform(local, remote); got != nil {
		t.Fatalf("older local SetProperty should be superseded by newer remote")
	}

	newerLocal := &opmodel.Operation{
		Kind: opmodel.SetProperty, Target: 3, Timestamp: 300,
		Payload: opmodel.PropertyPayload{PropertyHash: 1, Value: []byte("local")},
	}
	if got := Transform(newerLocal, remote); got != newerLocal {
		t.Fatalf("newer local SetProperty should survive unchanged")
	}
}

// TestHierarchyChangeTiebreak exercises the HierarchyChange-vs-HierarchyChange rule.
func TestHierarchyChangeTiebreak(t *testing.T) {
	earlier := &opmodel.Operation{Kind: opmodel.HierarchyChange, Target: 7, Timestamp: 10}
	later := &opmodel.Operation{Kind: opmodel.HierarchyChange, Target: 7, Timestamp: 20}

	if got := Transform(later, earlier); got != nil {
		t.Fatalf("later hierarchy change should be superseded")
	}
}
