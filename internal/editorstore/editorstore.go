// Package editorstore defines the narrow contract the causal engine uses
// to mutate the host application's scene graph. Per spec.md §1, the
// rendering pipeline, physics/audio, and the editor's actual scene-object
// store are external collaborators — this package only names the
// boundary and ships an in-memory reference implementation for tests.
package editorstore

import "github.com/scenesync/core/internal/opmodel"

// Store is the narrow apply/revert/query contract the causal engine
// drives. Implementations are expected to be deterministic functions of
// their own state (spec.md §7: "EditorStore rejects are deterministic
// functions of store state, which is itself converged").
type Store interface {
	// Apply mutates the scene graph for op. An error marks the op
	// Superseded without advancing the vector clock (spec.md §7 "Apply
	// failure").
	Apply(op *opmodel.Operation) error

	// Revert undoes a previously applied op. The core never calls this
	// itself (spec.md §5: "no per-op cancellation"); it exists so a host
	// application can build undo on top of the same contract.
	Revert(op *opmodel.Operation) error

	// Exists returns whether id currently exists in the scene graph, used
	// by HierarchyChange's cycle check at apply time.
	Exists(id uint32) bool

	// Parent returns the current parent of id, or (0, false) if id has no
	// parent or does not exist.
	Parent(id uint32) (uint32, bool)
}
