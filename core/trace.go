package core

// TraceRingSize is how many transitions are kept for post-mortem.
const TraceRingSize = 32

// Transition is one recorded state change.
type Transition struct {
	From  State
	To    State
	Tick  uint32
	Cause EventKind // event being handled when the change was made
}

// traceRing keeps the most recent transitions, overwriting the oldest.
type traceRing struct {
	buf   [TraceRingSize]Transition
	head  uint8
	count uint8
}

func (r *traceRing) record(t Transition) {
	r.buf[r.head] = t
	r.head = (r.head + 1) % TraceRingSize
	if r.count < TraceRingSize {
		r.count++
	}
}

// snapshot returns the transitions oldest first.
func (r *traceRing) snapshot() []Transition {
	out := make([]Transition, 0, r.count)
	start := (int(r.head) - int(r.count) + TraceRingSize) % TraceRingSize
	for i := 0; i < int(r.count); i++ {
		out = append(out, r.buf[(start+i)%TraceRingSize])
	}
	return out
}
