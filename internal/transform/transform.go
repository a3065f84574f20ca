// Package transform implements the Transformer (C3): given a pending
// local operation and a causally-concurrent remote operation the two
// conflict against (per conflict.Conflicts), produce the rebased local
// operation, or nil if the local op is retired (superseded).
//
// Grounded on spec.md §4.3's per-kind rule table; the delta-composition
// shape for Move/Rotate/Scale follows the same "compose on top of the
// winning operation" idea as segfal-realtime_whiteboard's
// transformStrokeUpdates, generalized from 2D stroke edits to 3D vector
// ops with additive deltas instead of last-write-wins on the whole field.
package transform

import (
	"strconv"

	"github.com/scenesync/core/internal/opmodel"
)

// Transform rebases local against remote. remote has already been applied
// to the store; local is still pending. A nil return means local is
// superseded and must be dropped from the pending list without
// re-broadcast.
func Transform(local, remote *opmodel.Operation) *opmodel.Operation {
	switch {
	case isVectorKind(local.Kind) && local.Kind == remote.Kind && local.Target == remote.Target:
		return transformVector(local, remote)

	case local.Kind == opmodel.SetProperty && remote.Kind == opmodel.SetProperty && local.Target == remote.Target:
		return transformSetProperty(local, remote)

	case local.Kind == opmodel.CreateObject && remote.Kind == opmodel.CreateObject:
		return transformCreateCollision(local, remote)

	case remote.Kind == opmodel.DeleteObject && local.Kind != opmodel.DeleteObject && local.Target == remote.Target:
		// delete wins; local passes through unchanged (it will be a no-op
		// against a deleted object, per spec.md §4.3 and scenario S3).
		return local

	case local.Kind == opmodel.DeleteObject && remote.Kind == opmodel.DeleteObject && local.Target == remote.Target:
		return transformTimestampTiebreak(local, remote)

	case local.Kind == opmodel.HierarchyChange && remote.Kind == opmodel.HierarchyChange:
		return transformTimestampTiebreak(local, remote)

	default:
		// All other conflicting combinations: timestamp-ordered, earlier wins.
		return transformTimestampTiebreak(local, remote)
	}
}

func isVectorKind(k opmodel.Kind) bool {
	return k == opmodel.Move || k == opmodel.Rotate || k == opmodel.Scale
}

// transformVector composes local's delta on top of remote's result:
// delta = local.new - local.old; local' = {old: remote.new, new: remote.new + delta}.
// This is spec.md Property 4 (move-composition round-trip).
func transformVector(local, remote *opmodel.Operation) *opmodel.Operation {
	lp, lok := local.Payload.(opmodel.VectorPayload)
	rp, rok := remote.Payload.(opmodel.VectorPayload)
	if !lok || !rok {
		return local
	}

	delta := lp.New.Sub(lp.Old)
	rebased := local.Clone()
	rebased.Payload = opmodel.VectorPayload{
		Old: rp.New,
		New: rp.New.Add(delta),
	}
	return rebased
}

// transformSetProperty is timestamp-ordered: the op with the later
// timestamp wins. If local loses, it is superseded but its "old" value
// (not modeled explicitly here since PropertyPayload carries only the
// new value) conceptually becomes remote's value for any subsequent
// undo; callers that need the pre-transform value should read it off the
// remote operation they lost to.
func transformSetProperty(local, remote *opmodel.Operation) *opmodel.Operation {
	if local.Timestamp < remote.Timestamp {
		return nil // remote wins, local superseded
	}
	return local // local overwrites remote, unchanged
}

// transformCreateCollision appends a fixed " (1)" suffix to local's name
// when it collides on (name, parent) with remote's CreateObject. No
// collision counter is consulted: every pairwise collision gets " (1)",
// so a third concurrent create of the same name is not given a distinct
// suffix. CausalEngine.dedupeCreateName numbers only this site's own
// repeated creates of a name, not concurrent creates from other sites.
func transformCreateCollision(local, remote *opmodel.Operation) *opmodel.Operation {
	lp, lok := local.Payload.(opmodel.CreatePayload)
	rp, rok := remote.Payload.(opmodel.CreatePayload)
	if !lok || !rok || lp.Name != rp.Name || lp.ParentID != rp.ParentID {
		return local
	}

	rebased := local.Clone()
	cp := rebased.Payload.(opmodel.CreatePayload)
	cp.Name = suffixed(cp.Name, 1)
	rebased.Payload = cp
	return rebased
}

func suffixed(name string, k int) string {
	// " (k)" per spec.md §4.3. The only caller passes k = 1.
	return name + " (" + strconv.Itoa(k) + ")"
}

// transformTimestampTiebreak resolves any remaining conflicting pair by
// wall-clock timestamp: earlier wins, later is superseded. Exact ties
// (equal timestamps) break toward the remote op so every site converges
// identically regardless of application order (spec.md §4.4 convergence
// argument: "timestamp ties are broken identically at every site").
func transformTimestampTiebreak(local, remote *opmodel.Operation) *opmodel.Operation {
	if local.Timestamp < remote.Timestamp {
		return local
	}
	return nil
}
