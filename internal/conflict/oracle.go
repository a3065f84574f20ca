// Package conflict implements the ConflictOracle (C2): a pure predicate
// over two operations deciding whether they conflict and therefore
// require transformation before both can apply. Grounded on the
// stroke/cursor conflict switch in segfal-realtime_whiteboard's ot.go,
// generalized to the scene-edit kind set and rule order of spec.md §4.2.
package conflict

import "github.com/scenesync/core/internal/opmodel"

// Conflicts implements spec.md §4.2's ordered rule list. Rules are
// evaluated in order; the first match wins.
func Conflicts(a, b *opmodel.Operation) bool {
	// Rule 1: different non-zero targets never conflict, except for a pair
	// of HierarchyChange ops, which Rule 6 checks for a two-node cycle.
	bothHierarchy := a.Kind == opmodel.HierarchyChange && b.Kind == opmodel.HierarchyChange
	if a.Target != 0 && b.Target != 0 && a.Target != b.Target && !bothHierarchy {
		return false
	}

	// Rule 2: same kind, same object. CreateObject is excluded here since
	// its Target is always 0 (the object doesn't exist yet) — two
	// unrelated creates would otherwise both match on Target==0 before
	// Rule 4 gets a chance to look at name/parent.
	if a.Kind == b.Kind && a.Kind != opmodel.CreateObject && a.Target == b.Target {
		return true
	}

	// Rule 3: either is DeleteObject targeting the shared object.
	if (a.Kind == opmodel.DeleteObject || b.Kind == opmodel.DeleteObject) && a.Target == b.Target {
		return true
	}

	// Rule 4: two CreateObject with identical name and parent.
	if a.Kind == opmodel.CreateObject && b.Kind == opmodel.CreateObject {
		ap, aok := a.Payload.(opmodel.CreatePayload)
		bp, bok := b.Payload.(opmodel.CreatePayload)
		if aok && bok && ap.Name == bp.Name && ap.ParentID == bp.ParentID {
			return true
		}
	}

	// Rule 5: two SetProperty on same object with same property hash.
	if a.Kind == opmodel.SetProperty && b.Kind == opmodel.SetProperty && a.Target == b.Target {
		ap, aok := a.Payload.(opmodel.PropertyPayload)
		bp, bok := b.Payload.(opmodel.PropertyPayload)
		if aok && bok && ap.PropertyHash == bp.PropertyHash {
			return true
		}
	}

	// Rule 6: two HierarchyChange. Conflict if moving the same object, or
	// if they would form a two-node cycle (a.new_parent == b.object_id AND
	// b.new_parent == a.object_id).
	if a.Kind == opmodel.HierarchyChange && b.Kind == opmodel.HierarchyChange {
		if a.Target == b.Target {
			return true
		}
		ap, aok := a.Payload.(opmodel.HierarchyPayload)
		bp, bok := b.Payload.(opmodel.HierarchyPayload)
		if aok && bok && ap.NewParent == b.Target && bp.NewParent == a.Target {
			return true
		}
	}

	// Rule 7: otherwise, no conflict.
	return false
}
