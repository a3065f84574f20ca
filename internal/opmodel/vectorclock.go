package opmodel

// MaxUsers bounds the dense participant-id space. Spec §5 bounds the user
// table at 32; the vector clock is sized to match so it stays a fixed-size
// array with no per-tick allocation.
const MaxUsers = 32

// VectorClock maps participant_id to the highest sequence number from that
// participant that has been observed and delivered locally. Entries only
// ever increase (invariant I-VC in spec.md §3).
type VectorClock [MaxUsers]uint32

// Get returns VC[p], or 0 if p is out of range.
func (vc VectorClock) Get(p int) uint32 {
	if p < 0 || p >= MaxUsers {
		return 0
	}
	return vc[p]
}

// Advance sets VC[p] to s if s is greater than the current entry. Returns
// false if s did not advance the clock (stale or duplicate).
func (vc *VectorClock) Advance(p int, s uint32) bool {
	if p < 0 || p >= MaxUsers {
		return false
	}
	if s <= vc[p] {
		return false
	}
	vc[p] = s
	return true
}

// Ready reports whether an operation with the given sender and context is
// causally ready to deliver against this clock: every entry in context,
// the sender's own included, must be already delivered, and the sender's
// own entry must be exactly one behind the operation's sequence (spec.md
// glossary: "causally ready").
func (vc VectorClock) Ready(sender int, sequence uint32, context VectorClock) bool {
	for i := 0; i < MaxUsers; i++ {
		if i == sender && context[i] != sequence-1 {
			return false
		}
		if context[i] > vc[i] {
			return false
		}
	}
	return true
}

// Concurrent reports whether neither vc nor other's context includes the
// other's stamp (spec.md glossary: "concurrent"). The Transformer and
// CausalEngine do not call it; the engine rebases on conflict alone.
func Concurrent(aSender int, aSeq uint32, aContext VectorClock, bSender int, bSeq uint32, bContext VectorClock) bool {
	aIncludesB := aContext.Get(bSender) >= bSeq
	bIncludesA := bContext.Get(aSender) >= aSeq
	return !aIncludesB && !bIncludesA
}
