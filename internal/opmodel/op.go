// Package opmodel defines the Operation data model shared by the wire
// codec, conflict oracle, transformer, and causal engine: how a scene
// edit is represented, independent of how it travels over the wire.
package opmodel

// Vec3 is a world-space 3-vector. The wire codec is responsible for the
// fixed-point i16/1000 packing described in spec.md §4.1; in memory we
// keep full float64 precision.
type Vec3 struct {
	X, Y, Z float64
}

// Sub returns a - b.
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

// Add returns a + b.
func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }

// VectorPayload is the body for Move/Rotate/Scale: an old and new Vec3.
type VectorPayload struct {
	Old, New Vec3
}

// PropertyPayload is the body for SetProperty.
type PropertyPayload struct {
	PropertyHash uint32
	Value        []byte // length-prefixed on the wire, <=255 bytes
}

// CreatePayload is the body for CreateObject. The parent id travels in
// ParentID, not in the op's Target.
type CreatePayload struct {
	Name     string // <=63 bytes
	ParentID uint32
}

// HierarchyPayload is the body for HierarchyChange. NewParent must be
// exposed (not fully opaque) because ConflictOracle rule 6 and the cycle
// check at apply time both inspect it.
type HierarchyPayload struct {
	NewParent uint32
}

// RolePayload is the body of a PermissionChange pseudo-operation (wire
// message type 0x0A). It is routed through the same causal-ordering path
// as every other op so that role changes can be causally sequenced
// relative to the operations they gate (spec.md §4.5, scenario S5).
type RolePayload struct {
	NewRole Role
}

// RawPayload is the opaque, fixed-size-or-bounded body used for the kinds
// the core never interprets beyond routing and bounding: Rename,
// AssignMaterial, HierarchyChange's sibling kinds, AddComponent,
// RemoveComponent, EditScript, Terrain, Light, Camera, Animation,
// Physics. Passed through verbatim, <=256 bytes.
type RawPayload struct {
	Data []byte
}

// MaxRawPayload is the bound from spec.md §6 ("opaque fixed-size body
// struct passed through verbatim (<=256 bytes)").
const MaxRawPayload = 256

// MaxPropertyValue is SetProperty's value_size bound (a single byte length
// prefix, spec.md §4.1/§6).
const MaxPropertyValue = 255

// MaxNameLength is CreateObject's name_len bound (spec.md §4.1/§6).
const MaxNameLength = 63

// Operation is a single structured mutation of the shared scene,
// uniquely identified by (Sender, Sequence) (spec.md §3/GLOSSARY).
type Operation struct {
	// identity
	Sender    int // participant_id
	Sequence  uint32
	Context   VectorClock // snapshot of sender's VC at submission time
	Timestamp int64       // wall-clock ms, tie-breaks only, never causality

	// shape
	Kind    Kind
	Target  uint32 // object_id; for PermissionChange this is the user_id being changed
	Payload interface{}

	Status Status
}

// ID returns the (sender, sequence) pair that uniquely identifies op
// within a session.
func (o *Operation) ID() (int, uint32) { return o.Sender, o.Sequence }

// Clone returns a deep-enough copy of o suitable for mutation by the
// Transformer without aliasing the original's payload slices.
func (o *Operation) Clone() *Operation {
	c := *o
	switch p := o.Payload.(type) {
	case VectorPayload:
		c.Payload = p
	case PropertyPayload:
		v := make([]byte, len(p.Value))
		copy(v, p.Value)
		c.Payload = PropertyPayload{PropertyHash: p.PropertyHash, Value: v}
	case CreatePayload:
		c.Payload = p
	case HierarchyPayload:
		c.Payload = p
	case RolePayload:
		c.Payload = p
	case RawPayload:
		d := make([]byte, len(p.Data))
		copy(d, p.Data)
		c.Payload = RawPayload{Data: d}
	}
	return &c
}
