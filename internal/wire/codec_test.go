package wire

import (
	"reflect"
	"testing"

	"github.com/scenesync/core/internal/opmodel"
)

func roundTrip(t *testing.T, op *opmodel.Operation) *opmodel.Operation {
	t.Helper()
	frame, err := EncodeOperation(op)
	if err != nil {
		t.Fatalf("EncodeOperation: %v", err)
	}
	got, err := DecodeOperation(frame)
	if err != nil {
		t.Fatalf("DecodeOperation: %v", err)
	}
	return got
}

func TestRoundTripMove(t *testing.T) {
	op := &opmodel.Operation{
		Sender: 3, Sequence: 7, Timestamp: 1000,
		Kind: opmodel.Move, Target: 42,
		Payload: opmodel.VectorPayload{
			Old: opmodel.Vec3{X: 1, Y: 2, Z: 3},
			New: opmodel.Vec3{X: 1.5, Y: -2.25, Z: 0},
		},
	}
	got := roundTrip(t, op)
	if got.Sender != op.Sender || got.Sequence != op.Sequence || got.Target != op.Target || got.Kind != op.Kind {
		t.Fatalf("identity mismatch: %+v", got)
	}
	p := got.Payload.(opmodel.VectorPayload)
	want := op.Payload.(opmodel.VectorPayload)
	if p.Old.X != want.Old.X || p.New.Y != want.New.Y {
		t.Fatalf("vector payload mismatch: got %+v want %+v", p, want)
	}
}

func TestRoundTripSetProperty(t *testing.T) {
	op := &opmodel.Operation{
		Sender: 1, Sequence: 2, Kind: opmodel.SetProperty, Target: 9,
		Payload: opmodel.PropertyPayload{PropertyHash: 0xdeadbeef, Value: []byte("red")},
	}
	got := roundTrip(t, op)
	p := got.Payload.(opmodel.PropertyPayload)
	if p.PropertyHash != 0xdeadbeef || string(p.Value) != "red" {
		t.Fatalf("property payload mismatch: %+v", p)
	}
}

func TestRoundTripCreateObject(t *testing.T) {
	op := &opmodel.Operation{
		Sender: 0, Sequence: 1, Kind: opmodel.CreateObject, Target: 0,
		Payload: opmodel.CreatePayload{Name: "Cube", ParentID: 5},
	}
	got := roundTrip(t, op)
	p := got.Payload.(opmodel.CreatePayload)
	if p.Name != "Cube" || p.ParentID != 5 {
		t.Fatalf("create payload mismatch: %+v", p)
	}
}

func TestRoundTripHierarchyChange(t *testing.T) {
	op := &opmodel.Operation{
		Sender: 2, Sequence: 4, Kind: opmodel.HierarchyChange, Target: 11,
		Payload: opmodel.HierarchyPayload{NewParent: 99},
	}
	got := roundTrip(t, op)
	p := got.Payload.(opmodel.HierarchyPayload)
	if p.NewParent != 99 {
		t.Fatalf("hierarchy payload mismatch: %+v", p)
	}
}

func TestRoundTripOpaqueKinds(t *testing.T) {
	opaque := []opmodel.Kind{
		opmodel.Rename, opmodel.AssignMaterial, opmodel.AddComponent,
		opmodel.RemoveComponent, opmodel.EditScript, opmodel.Terrain,
		opmodel.Light, opmodel.Camera, opmodel.Animation, opmodel.Physics,
	}
	for _, k := range opaque {
		op := &opmodel.Operation{
			Sender: 1, Sequence: 1, Kind: k, Target: 3,
			Payload: opmodel.RawPayload{Data: []byte{1, 2, 3, 4}},
		}
		got := roundTrip(t, op)
		p := got.Payload.(opmodel.RawPayload)
		if !reflect.DeepEqual(p.Data, []byte{1, 2, 3, 4}) {
			t.Fatalf("%s: opaque payload mismatch: %+v", k, p)
		}
	}
}

func TestRoundTripPermissionChange(t *testing.T) {
	op := &opmodel.Operation{
		Sender: 0, Sequence: 6, Kind: opmodel.PermissionChange, Target: 12,
		Payload: opmodel.RolePayload{NewRole: opmodel.Admin},
	}
	got := roundTrip(t, op)
	if got.Kind != opmodel.PermissionChange || got.Target != 12 {
		t.Fatalf("permission change identity mismatch: %+v", got)
	}
	p := got.Payload.(opmodel.RolePayload)
	if p.NewRole != opmodel.Admin {
		t.Fatalf("role payload mismatch: %+v", p)
	}
}

func TestDecodeRejectsCRCMismatch(t *testing.T) {
	op := &opmodel.Operation{
		Sender: 1, Sequence: 1, Kind: opmodel.Move, Target: 1,
		Payload: opmodel.VectorPayload{New: opmodel.Vec3{X: 1}},
	}
	frame, err := EncodeOperation(op)
	if err != nil {
		t.Fatalf("EncodeOperation: %v", err)
	}
	// Flip a bit in the payload without touching the header's CRC field.
	frame[HeaderSize] ^= 0x01
	if _, err := DecodeOperation(frame); err == nil {
		t.Fatal("expected CRC mismatch error, got nil")
	}
}

func TestDecodeRejectsTruncatedFrame(t *testing.T) {
	if _, err := DecodeOperation(make([]byte, HeaderSize-1)); err == nil {
		t.Fatal("expected error for frame shorter than header")
	}
}

func TestDecodeRejectsPayloadSizeMismatch(t *testing.T) {
	op := &opmodel.Operation{
		Sender: 1, Sequence: 1, Kind: opmodel.Move, Target: 1,
		Payload: opmodel.VectorPayload{},
	}
	frame, err := EncodeOperation(op)
	if err != nil {
		t.Fatalf("EncodeOperation: %v", err)
	}
	truncated := frame[:len(frame)-1]
	if _, err := DecodeOperation(truncated); err == nil {
		t.Fatal("expected payload size mismatch error")
	}
}

func TestMessageRoundTrips(t *testing.T) {
	joinFrame, err := EncodeUserJoin(1, 500, UserJoinPayload{Username: "ada", ProtocolVersion: ProtocolVersion})
	if err != nil {
		t.Fatalf("EncodeUserJoin: %v", err)
	}
	h, payload, err := DecodeFrame(joinFrame)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if h.MsgType != MsgUserJoin {
		t.Fatalf("unexpected msg type: %v", h.MsgType)
	}
	join, err := DecodeUserJoin(payload)
	if err != nil {
		t.Fatalf("DecodeUserJoin: %v", err)
	}
	if join.Username != "ada" || join.ProtocolVersion != ProtocolVersion {
		t.Fatalf("join mismatch: %+v", join)
	}

	chatFrame, err := EncodeChatMessage(2, 600, ChatMessagePayload{
		UserID: 2, Username: "bob", Message: "hello", TimestampMs: 600,
	})
	if err != nil {
		t.Fatalf("EncodeChatMessage: %v", err)
	}
	_, chatPayload, err := DecodeFrame(chatFrame)
	if err != nil {
		t.Fatalf("DecodeFrame chat: %v", err)
	}
	chat, err := DecodeChatMessage(chatPayload)
	if err != nil {
		t.Fatalf("DecodeChatMessage: %v", err)
	}
	if chat.Username != "bob" || chat.Message != "hello" {
		t.Fatalf("chat mismatch: %+v", chat)
	}

	selFrame, err := EncodeSelectionUpdate(3, 700, SelectionUpdatePayload{UserID: 3, ObjectIDs: []uint32{1, 2, 3}})
	if err != nil {
		t.Fatalf("EncodeSelectionUpdate: %v", err)
	}
	_, selPayload, err := DecodeFrame(selFrame)
	if err != nil {
		t.Fatalf("DecodeFrame selection: %v", err)
	}
	sel, err := DecodeSelectionUpdate(selPayload)
	if err != nil {
		t.Fatalf("DecodeSelectionUpdate: %v", err)
	}
	if !reflect.DeepEqual(sel.ObjectIDs, []uint32{1, 2, 3}) {
		t.Fatalf("selection mismatch: %+v", sel)
	}
}

func TestEncodeRejectsOversizedName(t *testing.T) {
	op := &opmodel.Operation{
		Sender: 1, Sequence: 1, Kind: opmodel.CreateObject, Target: 0,
		Payload: opmodel.CreatePayload{Name: string(make([]byte, opmodel.MaxNameLength+1))},
	}
	if _, err := EncodeOperation(op); err == nil {
		t.Fatal("expected error for oversized name")
	}
}
