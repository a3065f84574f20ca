// Package causal implements the CausalEngine (C4): sequence assignment,
// vector-clock bookkeeping, buffered causal-order delivery, and the
// pending-local rebase loop described in spec.md §4.4.
//
// Grounded on the teacher's (shiv248-kolabpad) operation pipeline in
// pkg/server/kolabpad.go, which also owns a pending-edit queue and an
// apply-then-broadcast sequence; this package generalizes that single
// linear-document queue into vector-clock-gated delivery over the
// conflict/transform packages instead of the teacher's character-offset OT.
package causal

import (
	"strconv"

	"github.com/scenesync/core/internal/conflict"
	"github.com/scenesync/core/internal/editorstore"
	"github.com/scenesync/core/internal/logx"
	"github.com/scenesync/core/internal/opmodel"
	"github.com/scenesync/core/internal/transform"
)

// Bounds from spec.md §5.
const (
	MaxPendingLocal  = 256
	MinReceiveBuffer = 256
	MaxHistory       = 1024
	DefaultTimeoutMs = 15000 // operation_timeout_ms: age after which a pending-local op is swept
)

// Stats counts the failure-path events spec.md §7 and §8 (Property 7)
// require to be observable without retaining the dropped data itself.
type Stats struct {
	BadFrames            uint64
	PermDenied           uint64
	ApplyFailed          uint64
	PendingLocalEvicted  uint64
	ReceiveBufferEvicted uint64
}

// bufferKey identifies a buffered inbound op by its identity pair.
type bufferKey struct {
	sender   int
	sequence uint32
}

func keyOf(op *opmodel.Operation) bufferKey {
	return bufferKey{sender: op.Sender, sequence: op.Sequence}
}

// Engine is the CausalEngine. It owns vc_local, seq_local, PendingLocal,
// the ReceiveBuffer, and the bounded history ring, and drives EditorStore
// through the conflict/transform pipeline on every ingest.
type Engine struct {
	self int
	vc   opmodel.VectorClock
	seq  uint32

	store editorstore.Store

	pendingLocal []*opmodel.Operation
	pendingAt    []uint64 // submission tick, parallel to pendingLocal

	buffer     map[bufferKey]*opmodel.Operation
	bufferFIFO []bufferKey // insertion order, for oldest-eviction

	history     []*opmodel.Operation
	historyHead int

	createCounters map[string]int // createKey(parent, name) -> last collision suffix used (0 for the first create)

	tick uint64

	Stats Stats

	onApply func(*opmodel.Operation)
}

// New creates an Engine for participant self, driving store.
func New(self int, store editorstore.Store) *Engine {
	return &Engine{
		self:           self,
		store:          store,
		pendingLocal:   make([]*opmodel.Operation, 0, MaxPendingLocal),
		pendingAt:      make([]uint64, 0, MaxPendingLocal),
		buffer:         make(map[bufferKey]*opmodel.Operation, MinReceiveBuffer),
		bufferFIFO:     make([]bufferKey, 0, MinReceiveBuffer),
		history:        make([]*opmodel.Operation, MaxHistory),
		createCounters: make(map[string]int),
	}
}

// VectorClock returns a snapshot of the local vector clock.
func (e *Engine) VectorClock() opmodel.VectorClock { return e.vc }

// OnApply registers fn to be called once, synchronously, every time an op
// is actually committed to the store (locally via Submit or remotely via
// Ingest's deliver step) — never on a buffered or rejected op. Dispatcher
// uses this to route PermissionChange ops to the role table, since
// EditorStore has no opinion on participant roles (spec.md §4.5: "Role
// changes are themselves ops ... and take effect at apply time").
func (e *Engine) OnApply(fn func(*opmodel.Operation)) { e.onApply = fn }

// Tick advances the engine's logical clock by one. Dispatcher calls this
// at the cadence of its heartbeat loop (spec.md §4.4: "Timeout sweep
// called by Dispatcher at the cadence of the heartbeat loop"), so
// SweepPendingLocal's timeoutTicks argument is expressed in heartbeat
// intervals rather than a wall-clock read inside the core.
func (e *Engine) Tick() { e.tick++ }

// Submit implements CausalEngine.Submit (spec.md §4.4): stamps, applies
// optimistically, enqueues for broadcast, and advances vc_local[self].
func (e *Engine) Submit(kind opmodel.Kind, target uint32, payload interface{}) (*opmodel.Operation, error) {
	e.seq++
	op := &opmodel.Operation{
		Sender:    e.self,
		Sequence:  e.seq,
		Context:   e.vc,
		Timestamp: nowMs(),
		Kind:      kind,
		Target:    target,
		Payload:   payload,
		Status:    opmodel.Pending,
	}

	if kind == opmodel.CreateObject {
		e.dedupeCreateName(op)
	}

	if err := e.store.Apply(op); err != nil {
		logx.Error("causal: optimistic apply failed for local op %d/%d: %v", op.Sender, op.Sequence, err)
		op.Status = opmodel.Superseded
		e.Stats.ApplyFailed++
		return op, err
	}
	op.Status = opmodel.Applied
	e.appendHistory(op)
	if e.onApply != nil {
		e.onApply(op)
	}

	e.pendingLocal = append(e.pendingLocal, op)
	e.pendingAt = append(e.pendingAt, e.tick)
	if len(e.pendingLocal) > MaxPendingLocal {
		e.pendingLocal = e.pendingLocal[1:]
		e.pendingAt = e.pendingAt[1:]
		e.Stats.PendingLocalEvicted++
	}

	e.vc.Advance(e.self, e.seq)
	return op, nil
}

// dedupeCreateName appends a deterministic " (k)" suffix if this site has
// already created an object with the same (parent, name) pair, mirroring
// what Transform would do on receipt of a colliding remote CreateObject
// (spec.md §4.3) so a single site creating the same name twice in a row
// also converges instead of silently overwriting on apply.
func (e *Engine) dedupeCreateName(op *opmodel.Operation) {
	p, ok := op.Payload.(opmodel.CreatePayload)
	if !ok {
		return
	}
	key := createKey(p.ParentID, p.Name)
	if n, seen := e.createCounters[key]; seen {
		e.createCounters[key] = n + 1
		p.Name = suffixName(p.Name, n+1)
		op.Payload = p
		return
	}
	e.createCounters[key] = 0
}

func createKey(parent uint32, name string) string {
	buf := make([]byte, 0, len(name)+11)
	buf = appendUint32(buf, parent)
	buf = append(buf, ':')
	buf = append(buf, name...)
	return string(buf)
}

func appendUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func suffixName(name string, k int) string {
	return name + " (" + strconv.Itoa(k) + ")"
}

// Ingest implements CausalEngine.Ingest (spec.md §4.4), run after the
// codec and PermissionGate passes have already accepted op.
func (e *Engine) Ingest(op *opmodel.Operation) {
	// 1. De-dup.
	if op.Sequence <= e.vc.Get(op.Sender) {
		return
	}

	// 2. Causal readiness.
	if !e.vc.Ready(op.Sender, op.Sequence, op.Context) {
		e.bufferOp(op)
		return
	}

	e.deliver(op)
	e.drainBuffer()
}

// deliver performs the rebase-then-apply step for a single causally-ready
// op: rebase every still-pending local op that conflicts with it, apply
// it, and advance vc_local[op.sender].
func (e *Engine) deliver(op *opmodel.Operation) {
	kept := e.pendingLocal[:0:0]
	keptAt := e.pendingAt[:0:0]
	for i, p := range e.pendingLocal {
		if conflict.Conflicts(p, op) {
			rebased := transform.Transform(p, op)
			if rebased == nil {
				// p loses to op outright (e.g. a SetProperty or timestamp
				// tie-break loss): the superseded op must not read back as
				// Applied in history, since the shared pointer already sits
				// in e.history. A local op meeting a remote Delete of its
				// target is passed through by Transform and never lands here.
				p.Status = opmodel.Superseded
				continue // drop from pending list
			}
			kept = append(kept, rebased)
			keptAt = append(keptAt, e.pendingAt[i])
		} else {
			kept = append(kept, p)
			keptAt = append(keptAt, e.pendingAt[i])
		}
	}
	e.pendingLocal = kept
	e.pendingAt = keptAt

	if err := e.store.Apply(op); err != nil {
		logx.Error("causal: apply failed for remote op %d/%d: %v", op.Sender, op.Sequence, err)
		op.Status = opmodel.Superseded
		e.Stats.ApplyFailed++
		return // VC is NOT advanced; spec.md §4.8 failure semantics
	}
	op.Status = opmodel.Applied
	e.appendHistory(op)
	if e.onApply != nil {
		e.onApply(op)
	}
	e.vc.Advance(op.Sender, op.Sequence)
}

func (e *Engine) bufferOp(op *opmodel.Operation) {
	key := keyOf(op)
	if _, exists := e.buffer[key]; exists {
		return
	}
	if len(e.buffer) >= MinReceiveBuffer {
		oldest := e.bufferFIFO[0]
		e.bufferFIFO = e.bufferFIFO[1:]
		delete(e.buffer, oldest)
		e.Stats.ReceiveBufferEvicted++
	}
	e.buffer[key] = op
	e.bufferFIFO = append(e.bufferFIFO, key)
}

// drainBuffer re-evaluates readiness of every buffered op after a
// delivery, applying any that have become ready, recursively, since
// delivering one op can unblock several others at once.
func (e *Engine) drainBuffer() {
	for {
		progressed := false
		keys := append([]bufferKey(nil), e.bufferFIFO...)
		for _, key := range keys {
			op, ok := e.buffer[key]
			if !ok {
				continue
			}
			if op.Sequence <= e.vc.Get(op.Sender) {
				e.removeBuffered(key)
				progressed = true
				continue
			}
			if e.vc.Ready(op.Sender, op.Sequence, op.Context) {
				e.removeBuffered(key)
				e.deliver(op)
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

func (e *Engine) removeBuffered(key bufferKey) {
	delete(e.buffer, key)
	for i, k := range e.bufferFIFO {
		if k == key {
			e.bufferFIFO = append(e.bufferFIFO[:i], e.bufferFIFO[i+1:]...)
			break
		}
	}
}

// SweepPendingLocal drops every pending-local op older than timeoutTicks
// without retransmission, per spec.md §4.4's timeout sweep.
func (e *Engine) SweepPendingLocal(timeoutTicks uint64) {
	kept := e.pendingLocal[:0:0]
	keptAt := e.pendingAt[:0:0]
	for i, p := range e.pendingLocal {
		if e.tick-e.pendingAt[i] > timeoutTicks {
			e.Stats.PendingLocalEvicted++
			continue
		}
		kept = append(kept, p)
		keptAt = append(keptAt, e.pendingAt[i])
	}
	e.pendingLocal = kept
	e.pendingAt = keptAt
}

// PendingLocalLen reports len(PendingLocal), used by pkg/metrics gauges
// and Property 7's bounded-memory tests.
func (e *Engine) PendingLocalLen() int { return len(e.pendingLocal) }

// ReceiveBufferLen reports len(ReceiveBuffer).
func (e *Engine) ReceiveBufferLen() int { return len(e.buffer) }

// HistoryLen reports the number of ops currently retained in the history
// ring (capped at MaxHistory).
func (e *Engine) HistoryLen() int {
	n := 0
	for _, h := range e.history {
		if h != nil {
			n++
		}
	}
	return n
}

// History returns the most recent n ops from the ring (oldest first),
// used by SessionController's snapshot burst (spec.md §4.7).
func (e *Engine) History(n int) []*opmodel.Operation {
	if n > MaxHistory {
		n = MaxHistory
	}
	out := make([]*opmodel.Operation, 0, n)
	total := e.HistoryLen()
	if n > total {
		n = total
	}
	for i := total - n; i < total; i++ {
		idx := (e.historyHead - total + i + MaxHistory*2) % MaxHistory
		if e.history[idx] != nil {
			out = append(out, e.history[idx])
		}
	}
	return out
}

func (e *Engine) appendHistory(op *opmodel.Operation) {
	e.history[e.historyHead] = op
	e.historyHead = (e.historyHead + 1) % MaxHistory
}

