package hive

// Handles are 32-bit, generation-tagged identifiers. The upper bits carry a
// generation counter; the lower bits carry a slot index into the owning
// pool. A handle compares equal to a currently-live slot iff the
// generation matches, so a stale handle never aliases a recycled slot
// (spec's "generation-tagged handles" invariant, §3/§9).
const (
	handleIndexBits = 22
	handleIndexMask = 1<<handleIndexBits - 1
	handleGenMask   = ^uint32(0) &^ handleIndexMask
)

func makeHandle(generation uint32, index uint32) uint32 {
	return (generation << handleIndexBits) | (index & handleIndexMask)
}

func handleIndex(h uint32) uint32 {
	return h & handleIndexMask
}

func handleGeneration(h uint32) uint32 {
	return (h & handleGenMask) >> handleIndexBits
}

// ActorID is an opaque, generation-tagged handle to an actor. The zero
// value is the invalid sentinel.
type ActorID uint32

// Valid reports whether the handle is non-sentinel. It does not by itself
// prove liveness; use Runtime.Alive for that.
func (h ActorID) Valid() bool { return h != 0 }

func (h ActorID) index() uint32      { return handleIndex(uint32(h)) }
func (h ActorID) generation() uint32 { return handleGeneration(uint32(h)) }

// TimerID is an opaque handle to a registered timer.
type TimerID uint32

// Valid reports whether the handle is non-sentinel.
func (h TimerID) Valid() bool { return h != 0 }

func (h TimerID) index() uint32      { return handleIndex(uint32(h)) }
func (h TimerID) generation() uint32 { return handleGeneration(uint32(h)) }

// MonitorRef is an opaque handle returned by Monitor and consumed by
// Demonitor.
type MonitorRef uint32

// Valid reports whether the handle is non-sentinel.
func (h MonitorRef) Valid() bool { return h != 0 }

func (h MonitorRef) index() uint32      { return handleIndex(uint32(h)) }
func (h MonitorRef) generation() uint32 { return handleGeneration(uint32(h)) }

// linkID addresses a slot in the link pool. It is never exposed to callers
// (link/unlink take ActorID peers directly, per spec §4.7) so it carries
// no generation tag of its own; liveness is governed by the owning actor.
type linkID uint32
