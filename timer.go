package hive

import "time"

// Timer service (component I, spec §4.6): a monotonic, deadline-ordered
// list of one-shot and periodic timers, delivered as Timer-class mailbox
// messages carrying the timer handle in the tag field.

type timerRecord struct {
	owner     ActorID
	deadline  int64
	period    int64 // 0 for one-shot
	cancelled bool
}

type timerService struct {
	pool  *pool[timerRecord]
	gens  []uint32
	order []uint32 // slot indices, kept sorted by deadline
}

func newTimerService(cfg Config) *timerService {
	return &timerService{
		pool: newPool[timerRecord](cfg.TimerPoolSize),
		gens: make([]uint32, cfg.TimerPoolSize),
	}
}

func (t *timerService) insertSorted(idx uint32) {
	rec := t.pool.get(idx)
	i := 0
	for i < len(t.order) {
		other := t.pool.get(t.order[i])
		if other == nil || other.deadline > rec.deadline {
			break
		}
		i++
	}
	t.order = append(t.order, 0)
	copy(t.order[i+1:], t.order[i:])
	t.order[i] = idx
}

func (t *timerService) removeFromOrder(idx uint32) {
	for i, v := range t.order {
		if v == idx {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

// after registers a one-shot timer firing at now+d, or d<=0 firing at the
// next scheduler iteration (a zero-delay one-shot is permitted; spec
// §4.6).
func (rt *Runtime) after(owner ActorID, d time.Duration) (TimerID, Status) {
	return rt.timers.register(owner, d, 0)
}

// every registers a periodic timer with period d. A zero or negative
// period is rejected with Invalid (spec §9's resolution of the zero-
// period open question).
func (rt *Runtime) every(owner ActorID, d time.Duration) (TimerID, Status) {
	if d <= 0 {
		return 0, invalidf("periodic timer period must be > 0")
	}
	return rt.timers.register(owner, d, d)
}

func (t *timerService) register(owner ActorID, delay, period time.Duration) (TimerID, Status) {
	idx, rec, ok := t.pool.acquire()
	if !ok {
		return 0, noMemf("timer pool exhausted (capacity=%d)", t.pool.capacity())
	}
	deadline := monotonicMicros() + delay.Microseconds()
	if delay <= 0 {
		deadline = monotonicMicros()
	}
	rec.owner = owner
	rec.deadline = deadline
	rec.period = period.Microseconds()
	rec.cancelled = false
	// Generations cycle through 1..31 so that the whole handle fits the
	// 27-bit tag field a tick message carries it in.
	t.gens[idx] = t.gens[idx]%31 + 1
	t.insertSorted(idx)
	return TimerID(makeHandle(t.gens[idx], idx)), OkStatus()
}

// cancel removes a pending timer. Already-enqueued ticks in the owner's
// mailbox are not retracted (spec §4.6): receivers must tolerate a late
// tick by checking handle liveness, which is exactly what generation
// tagging on TimerID gives them for free.
func (rt *Runtime) cancelTimer(owner ActorID, id TimerID) Status {
	t := rt.timers
	idx := id.index()
	rec := t.pool.get(idx)
	if rec == nil || !t.pool.used(idx) || t.gens[idx] != id.generation() {
		return invalidf("unknown or already-cancelled timer")
	}
	if rec.owner != owner {
		return invalidf("timer not owned by caller")
	}
	rec.cancelled = true
	t.removeFromOrder(idx)
	t.pool.release(idx)
	return OkStatus()
}

// expireDue fires every timer whose deadline has elapsed, posting a
// Timer-class message to its owner's mailbox and rescheduling periodic
// timers at deadline+=period (drift-free w.r.t. the original start).
func (rt *Runtime) expireDue(now int64) int {
	t := rt.timers
	fired := 0
	for len(t.order) > 0 {
		idx := t.order[0]
		rec := t.pool.get(idx)
		if rec == nil || rec.cancelled || rec.deadline > now {
			break
		}
		t.order = t.order[1:]
		id := TimerID(makeHandle(t.gens[idx], idx))
		rt.deliverTimerTick(rec.owner, id)
		fired++
		if rec.period > 0 {
			rec.deadline += rec.period
			t.insertSorted(idx)
		} else {
			t.pool.release(idx)
		}
	}
	return fired
}

// releaseOwnedTimers cancels every timer owned by actor id, part of the
// cleanup epilogue step 5 (spec §4.7).
func (rt *Runtime) releaseOwnedTimers(a *actor) {
	for id := range a.ownedTimers {
		rt.cancelTimer(a.id, id)
	}
	a.ownedTimers = nil
}

// clockBase anchors monotonicMicros. time.Since uses the monotonic clock
// reading carried by clockBase, so results never jump with wall-clock
// adjustments; the +1 keeps every reading above the deadlineImmediate
// sentinel.
var clockBase = time.Now()

func monotonicMicros() int64 {
	return time.Since(clockBase).Microseconds() + 1
}
