package dispatch

import (
	"testing"

	"github.com/scenesync/core/internal/causal"
	"github.com/scenesync/core/internal/editorstore"
	"github.com/scenesync/core/internal/opmodel"
	"github.com/scenesync/core/internal/permission"
	"github.com/scenesync/core/internal/presence"
	"github.com/scenesync/core/internal/session"
	"github.com/scenesync/core/internal/wire"
)

// fakeTransport is an in-memory Transport double: frames sent via
// SendReliable/SendUnreliable land in out, and frames queued into in are
// what Recv drains, mirroring the loopback harness the teacher's
// server_test.go builds with a real websocket.Conn pair but without the
// network round trip.
type fakeTransport struct {
	in  [][]byte
	out [][]byte
}

func (f *fakeTransport) SendReliable(frame []byte) error   { f.out = append(f.out, frame); return nil }
func (f *fakeTransport) SendUnreliable(frame []byte) error { f.out = append(f.out, frame); return nil }
func (f *fakeTransport) Recv() ([]byte, bool) {
	if len(f.in) == 0 {
		return nil, false
	}
	frame := f.in[0]
	f.in = f.in[1:]
	return frame, true
}
func (f *fakeTransport) Close() error { return nil }

type harness struct {
	tr   *fakeTransport
	d    *Dispatcher
	ctrl *session.Controller
}

func newHarness(self int) *harness {
	engine := causal.New(self, editorstore.NewMemStore())
	roles := permission.NewRoleTable()
	pt := presence.NewTracker()
	gate := permission.NewGate(roles)
	ctrl := session.NewController(engine, pt, roles)
	tr := &fakeTransport{}
	d := New(self, tr, engine, gate, roles, pt, ctrl, wire.ProtocolVersion)
	return &harness{tr: tr, d: d, ctrl: ctrl}
}

func TestSubmitDeniedForViewer(t *testing.T) {
	h := newHarness(0)
	h.d.roles.Set(0, opmodel.Viewer)
	if _, err := h.d.Submit(opmodel.Move, 1, opmodel.VectorPayload{}); err == nil {
		t.Fatal("expected Viewer Submit to be denied")
	}
}

func TestSubmitBroadcastsFrame(t *testing.T) {
	h := newHarness(0)
	h.d.roles.Set(0, opmodel.Admin)
	if _, err := h.d.Submit(opmodel.CreateObject, 0, opmodel.CreatePayload{Name: "cube"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(h.tr.out) != 1 {
		t.Fatalf("expected one broadcast frame, got %d", len(h.tr.out))
	}
}

func TestTickIngestsQueuedOperation(t *testing.T) {
	h := newHarness(0)
	h.d.roles.Set(0, opmodel.Admin)
	h.d.roles.Set(1, opmodel.Editor)

	op := &opmodel.Operation{
		Sender: 1, Sequence: 1, Kind: opmodel.CreateObject,
		Payload: opmodel.CreatePayload{Name: "cube"},
	}
	frame, err := wire.EncodeOperation(op)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	h.tr.in = append(h.tr.in, frame)

	h.d.Tick(0)

	if h.d.engine.HistoryLen() != 1 {
		t.Fatalf("expected the remote op to be applied, history len=%d", h.d.engine.HistoryLen())
	}
}

func TestTickDropsOperationFromUnauthorizedSender(t *testing.T) {
	h := newHarness(0)
	h.d.roles.Set(1, opmodel.Viewer)

	op := &opmodel.Operation{
		Sender: 1, Sequence: 1, Kind: opmodel.CreateObject,
		Payload: opmodel.CreatePayload{Name: "cube"},
	}
	frame, err := wire.EncodeOperation(op)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	h.tr.in = append(h.tr.in, frame)

	h.d.Tick(0)

	if h.d.engine.HistoryLen() != 0 {
		t.Fatal("expected Viewer's CreateObject to be dropped")
	}
	if h.d.engine.Stats.PermDenied != 1 {
		t.Fatalf("expected PermDenied counter to increment, got %d", h.d.engine.Stats.PermDenied)
	}
}

func TestTickDropsMalformedFrame(t *testing.T) {
	h := newHarness(0)
	h.tr.in = append(h.tr.in, []byte{1, 2, 3})
	h.d.Tick(0)
	if h.d.engine.Stats.BadFrames != 1 {
		t.Fatalf("expected BadFrames counter to increment, got %d", h.d.engine.Stats.BadFrames)
	}
}

func TestTickEmitsHeartbeatAtInterval(t *testing.T) {
	h := newHarness(0)
	h.d.Tick(0)
	if len(h.tr.out) != 1 {
		t.Fatalf("expected a heartbeat on the first tick, got %d frames", len(h.tr.out))
	}
	h.d.Tick(HeartbeatIntervalMs - 1)
	if len(h.tr.out) != 1 {
		t.Fatal("expected no heartbeat before the interval elapses")
	}
	h.d.Tick(HeartbeatIntervalMs)
	if len(h.tr.out) != 2 {
		t.Fatalf("expected a second heartbeat once the interval elapses, got %d frames", len(h.tr.out))
	}
}

func TestPermissionChangeUpdatesRoleTable(t *testing.T) {
	h := newHarness(0)
	h.d.roles.Set(0, opmodel.Admin)
	h.d.roles.Set(1, opmodel.Viewer)

	if _, err := h.d.Submit(opmodel.PermissionChange, 1, opmodel.RolePayload{NewRole: opmodel.Editor}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	role, ok := h.d.roles.RoleOf(1)
	if !ok || role != opmodel.Editor {
		t.Fatalf("expected user 1 promoted to Editor, got %v ok=%v", role, ok)
	}
}

func TestUserJoinSendsSnapshotAndBroadcastsJoin(t *testing.T) {
	h := newHarness(0)
	h.d.roles.Set(0, opmodel.Admin)
	h.ctrl.HostSession("my-scene", 8, 0, "host", 0)

	frame, err := wire.EncodeUserJoin(1, 0, wire.UserJoinPayload{Username: "guest", ProtocolVersion: wire.ProtocolVersion})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	h.tr.in = append(h.tr.in, frame)

	h.d.Tick(0)

	if h.d.presence.User(1) == nil {
		t.Fatal("expected guest joined into presence")
	}
	if len(h.tr.out) == 0 {
		t.Fatal("expected at least the SessionInfo snapshot frame plus a UserJoin broadcast")
	}
}

func TestSetRolePersisterFiresOnPermissionChange(t *testing.T) {
	h := newHarness(0)
	h.d.roles.Set(0, opmodel.Admin)
	h.d.roles.Set(1, opmodel.Viewer)
	h.d.presence.Join(1, "guest", opmodel.Viewer, 0)

	var gotUser int
	var gotRole opmodel.Role
	h.d.SetRolePersister(func(userID int, role opmodel.Role) {
		gotUser, gotRole = userID, role
	})

	if _, err := h.d.Submit(opmodel.PermissionChange, 1, opmodel.RolePayload{NewRole: opmodel.Editor}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gotUser != 1 || gotRole != opmodel.Editor {
		t.Fatalf("expected persister called with (1, Editor), got (%d, %v)", gotUser, gotRole)
	}
}

func TestUserJoinRejectsProtocolMismatch(t *testing.T) {
	h := newHarness(0)
	h.d.roles.Set(0, opmodel.Admin)
	h.ctrl.HostSession("my-scene", 8, 0, "host", 0)

	frame, err := wire.EncodeUserJoin(1, 0, wire.UserJoinPayload{Username: "guest", ProtocolVersion: wire.ProtocolVersion + 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	h.tr.in = append(h.tr.in, frame)

	h.d.Tick(0)

	if h.d.presence.User(1) != nil {
		t.Fatal("expected protocol-mismatched join to be rejected")
	}
}
