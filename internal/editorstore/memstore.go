package editorstore

import (
	"fmt"

	"github.com/scenesync/core/internal/opmodel"
)

// node is a scene object as tracked by MemStore.
type node struct {
	id       uint32
	name     string
	parent   uint32
	hasParent bool
	position opmodel.Vec3
	rotation opmodel.Vec3
	scale    opmodel.Vec3
	props    map[uint32][]byte
}

// MemStore is a minimal in-memory EditorStore used by tests and as a
// reference adapter for hosts that don't yet have a real scene graph
// wired in. It is not part of the core's specified surface (spec.md §1
// treats the scene-object store as an external collaborator) but gives
// the rest of the module something concrete to apply operations to.
type MemStore struct {
	nodes  map[uint32]*node
	nextID uint32
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{nodes: make(map[uint32]*node), nextID: 1}
}

func (s *MemStore) Exists(id uint32) bool {
	_, ok := s.nodes[id]
	return ok
}

func (s *MemStore) Parent(id uint32) (uint32, bool) {
	n, ok := s.nodes[id]
	if !ok || !n.hasParent {
		return 0, false
	}
	return n.parent, true
}

// Apply implements Store.
func (s *MemStore) Apply(op *opmodel.Operation) error {
	switch op.Kind {
	case opmodel.CreateObject:
		p, ok := op.Payload.(opmodel.CreatePayload)
		if !ok {
			return fmt.Errorf("CreateObject: bad payload")
		}
		id := s.nextID
		s.nextID++
		s.nodes[id] = &node{id: id, name: p.Name, parent: p.ParentID, hasParent: p.ParentID != 0, props: make(map[uint32][]byte)}
		return nil

	case opmodel.DeleteObject:
		if !s.Exists(op.Target) {
			return fmt.Errorf("DeleteObject: object %d does not exist", op.Target)
		}
		delete(s.nodes, op.Target)
		return nil

	case opmodel.Move, opmodel.Rotate, opmodel.Scale:
		n, ok := s.nodes[op.Target]
		if !ok {
			return fmt.Errorf("%s: object %d does not exist", op.Kind, op.Target)
		}
		p, ok := op.Payload.(opmodel.VectorPayload)
		if !ok {
			return fmt.Errorf("%s: bad payload", op.Kind)
		}
		switch op.Kind {
		case opmodel.Move:
			n.position = p.New
		case opmodel.Rotate:
			n.rotation = p.New
		case opmodel.Scale:
			n.scale = p.New
		}
		return nil

	case opmodel.Rename:
		n, ok := s.nodes[op.Target]
		if !ok {
			return fmt.Errorf("Rename: object %d does not exist", op.Target)
		}
		p, ok := op.Payload.(opmodel.RawPayload)
		if ok {
			n.name = string(p.Data)
		}
		return nil

	case opmodel.SetProperty:
		n, ok := s.nodes[op.Target]
		if !ok {
			return fmt.Errorf("SetProperty: object %d does not exist", op.Target)
		}
		p, ok := op.Payload.(opmodel.PropertyPayload)
		if !ok {
			return fmt.Errorf("SetProperty: bad payload")
		}
		n.props[p.PropertyHash] = p.Value
		return nil

	case opmodel.HierarchyChange:
		n, ok := s.nodes[op.Target]
		if !ok {
			return fmt.Errorf("HierarchyChange: object %d does not exist", op.Target)
		}
		p, ok := op.Payload.(opmodel.HierarchyPayload)
		if !ok {
			return fmt.Errorf("HierarchyChange: bad payload")
		}
		if s.reachable(p.NewParent, op.Target) {
			return fmt.Errorf("HierarchyChange: would create a cycle")
		}
		n.parent = p.NewParent
		n.hasParent = p.NewParent != 0
		return nil

	case opmodel.PermissionChange:
		// Target here is a participant_id, not an object_id (spec.md
		// §4.5); the scene graph has no opinion on it, so the store
		// accepts it unconditionally and lets internal/permission own the
		// actual role bookkeeping via CausalEngine's apply hook.
		return nil

	default:
		// AssignMaterial, AddComponent, RemoveComponent, EditScript,
		// Terrain, Light, Camera, Animation, Physics: opaque bodies the
		// reference store accepts unconditionally, matching spec.md §6's
		// "passed through verbatim" treatment.
		if op.Target != 0 && !s.Exists(op.Target) {
			return fmt.Errorf("%s: object %d does not exist", op.Kind, op.Target)
		}
		return nil
	}
}

// reachable reports whether target is reachable by walking parent links
// starting from candidate — used to reject HierarchyChange moves that
// would reparent a subtree underneath itself (spec.md §9 cyclic-graph note).
func (s *MemStore) reachable(candidate, target uint32) bool {
	seen := make(map[uint32]bool)
	cur := candidate
	for {
		if cur == target {
			return true
		}
		if cur == 0 || seen[cur] {
			return false
		}
		seen[cur] = true
		n, ok := s.nodes[cur]
		if !ok || !n.hasParent {
			return false
		}
		cur = n.parent
	}
}

// Revert implements Store. The reference store does not track enough
// history to invert arbitrary ops; hosts that need undo keep their own
// inverse-operation log and submit inverse ops instead (spec.md §5).
func (s *MemStore) Revert(op *opmodel.Operation) error {
	return fmt.Errorf("revert not supported by the reference store; submit an inverse operation")
}
