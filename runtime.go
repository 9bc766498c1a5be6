package hive

import (
	"sync"
	"time"
)

// Runtime loop and I/O collaborator contract (component K, spec §4.8),
// plus the Init/Run/Cleanup lifecycle (spec §6) and the global actor
// table (component E) that every other component operates against.
//
// A singleton runtime context is acceptable and idiomatic for this kind
// of embeddable core (spec §9's "Global mutable state" note); hive takes
// the explicit-context alternative the same note offers instead, since Go
// favors passing state explicitly over package-level mutable singletons.
// Every operation therefore takes a *Runtime (or the Context wrapping
// one), and nothing here is accessed from more than one goroutine at a
// time by construction (the fiber baton in fiber.go enforces that).

// EntryFunc is an actor's body. Arguments are captured by closure, the
// idiomatic Go replacement for the source's void* argument pointer.
type EntryFunc func(ctx *Context)

// actorTable is the slot map backing component E: id -> actor control
// block, with alive tests and generation-checked handle resolution.
type actorTable struct {
	pool *pool[actor]
	gens []uint32
}

func newActorTable(cfg Config) *actorTable {
	return &actorTable{
		pool: newPool[actor](cfg.MaxActors),
		gens: make([]uint32, cfg.MaxActors),
	}
}

func (t *actorTable) allocate(cfg ActorConfig) (*actor, Status) {
	idx, a, ok := t.pool.acquire()
	if !ok {
		return nil, noMemf("actor pool exhausted (capacity=%d)", t.pool.capacity())
	}
	t.gens[idx]++
	id := ActorID(makeHandle(t.gens[idx], idx))
	a.reset(id, t.gens[idx], cfg)
	return a, OkStatus()
}

// get resolves a handle to its control block, returning nil if the slot
// is free or the generation no longer matches (spec §3's core invariant).
func (t *actorTable) get(id ActorID) *actor {
	if !id.Valid() {
		return nil
	}
	idx := id.index()
	if int(idx) >= t.pool.capacity() || !t.pool.used(idx) {
		return nil
	}
	if t.gens[idx] != id.generation() {
		return nil
	}
	return t.pool.get(idx)
}

func (t *actorTable) bumpGeneration(id ActorID) {
	idx := id.index()
	t.gens[idx]++
	t.pool.release(idx)
}

func (t *actorTable) alive(id ActorID) bool {
	a := t.get(id)
	return a != nil && a.state != StateDead
}

// IOCollaborator is the contract external file/network adapters
// implement (spec §4.8). The core knows nothing about fds, sockets, or
// files: it only registers wait tokens and is told when they become
// ready, time out on their own, or observe a closed descriptor.
type IOCollaborator interface {
	Register(token IOToken) error
	Deregister(token IOToken)
	Poll(timeout time.Duration, deliver func(token IOToken, result Status))
}

// Runtime is the embeddable actor runtime: the single context threaded
// through every operation.
type Runtime struct {
	cfg    Config
	logger Logger

	actorTable  *actorTable
	scheduler   *scheduler
	timers      *timerService
	supervision *supervisionTables
	stackArena  *StackArena

	envelopes *pool[envelope]
	payloads  *payloadPool

	tagCounter uint32

	ioCollaborators []IOCollaborator

	running bool

	// externalMu guards externalInbox, the one piece of Runtime state
	// touched from goroutines other than the current actor/scheduler
	// goroutine. Everything else here is single-threaded by construction
	// (the fiber baton in fiber.go); a watcher or I/O callback running on
	// its own goroutine (ioadapter/vfs's WatchPathWithActor) has no safe
	// way to call Notify directly, so it deposits here instead and Run
	// drains it each iteration on the owning goroutine.
	externalMu    sync.Mutex
	externalInbox []externalNotify
}

type externalNotify struct {
	to   ActorID
	data []byte
}

// InjectExternal is the only Runtime entry point safe to call from a
// goroutine other than the one currently running Run/an actor: it queues a
// Notify to be delivered on the runtime's own goroutine at the start of its
// next loop iteration. External event sources (fsnotify watchers, timers
// not owned by this runtime, etc.) use this instead of Notify.
func (rt *Runtime) InjectExternal(to ActorID, data []byte) {
	rt.externalMu.Lock()
	rt.externalInbox = append(rt.externalInbox, externalNotify{to: to, data: data})
	rt.externalMu.Unlock()
}

func (rt *Runtime) drainExternalInbox() int {
	rt.externalMu.Lock()
	pending := rt.externalInbox
	rt.externalInbox = nil
	rt.externalMu.Unlock()
	for _, n := range pending {
		rt.Notify(0, n.to, n.data)
	}
	return len(pending)
}

// New allocates a Runtime from Config (spec §6's init). Capacities are
// fixed for the Runtime's lifetime; nothing here grows.
func New(cfg Config) (*Runtime, Status) {
	if st := cfg.validate(); !st.IsOk() {
		return nil, st
	}
	rt := &Runtime{
		cfg:         cfg,
		logger:      cfg.logger(),
		actorTable:  newActorTable(cfg),
		timers:      newTimerService(cfg),
		supervision: newSupervisionTables(cfg),
		stackArena:  NewStackArena(cfg.StackArenaSize, cfg.MallocStackFallback),
		envelopes:   newPool[envelope](cfg.MailboxEntryPoolSize),
		payloads:    newPayloadPool(cfg.MessagePayloadPoolSize, cfg.MaxPayload()),
	}
	rt.scheduler = newScheduler(rt)
	return rt, OkStatus()
}

// RegisterIOCollaborator wires an external readiness poller (file/network
// adapter) into the runtime loop. Registering a nil collaborator is a
// no-op.
func (rt *Runtime) RegisterIOCollaborator(c IOCollaborator) {
	if c == nil {
		return
	}
	rt.ioCollaborators = append(rt.ioCollaborators, c)
}

// Spawn allocates a new actor: slot, stack, and context, enqueued at the
// back of its priority queue (spec §4.3's spawn operation). Rejects a nil
// entry function with Invalid.
func (rt *Runtime) Spawn(entry EntryFunc, cfg ActorConfig) (ActorID, Status) {
	if entry == nil {
		return 0, invalidf("spawn: entry function must not be nil")
	}
	if cfg.StackSize == 0 {
		cfg.StackSize = rt.cfg.DefaultStackSize
	}
	a, st := rt.actorTable.allocate(cfg)
	if !st.IsOk() {
		return 0, st
	}
	stack, st := rt.stackArena.Carve(cfg.StackSize)
	if !st.IsOk() {
		rt.actorTable.bumpGeneration(a.id)
		return 0, st
	}
	stack.mallocStack = cfg.MallocStack || stack.mallocStack
	a.stack = stack
	a.fbr = newFiber()

	ctx := &Context{rt: rt, self: a}
	a.fbr.launch(
		func() { entry(ctx) },
		func(panicValue interface{}) { rt.onEntryReturned(a, panicValue) },
	)

	rt.scheduler.enqueue(a)
	rt.scheduler.liveCount++
	return a.id, OkStatus()
}

// onEntryReturned runs on the actor's own goroutine immediately after its
// entry function returns or panics, before the fiber's final park. A
// function that returns without calling Exit is a Crash (spec §3's
// lifecycle); an actor that already called Exit leaves state == StateDead
// and this is a no-op.
func (rt *Runtime) onEntryReturned(a *actor, panicValue interface{}) {
	if a.state == StateDead {
		return
	}
	reason := ExitCrash
	if panicValue != nil {
		rt.logger.Error("actor panicked", "actor", a.id, "panic", panicValue)
		reason = ExitCrash
	}
	rt.runCleanupEpilogue(a, reason)
}

// Alive reports whether handle currently names a live actor; it verifies
// the generation, so a stale handle to a recycled slot reports false.
func (rt *Runtime) Alive(id ActorID) bool { return rt.actorTable.alive(id) }

// Run drives the dispatch loop until quiescence: no live actors remain
// and no external wakeups (timers, I/O) are pending (spec §4.3's run
// operation, alternated per §4.8's four-activity loop).
func (rt *Runtime) Run() {
	rt.running = true
	for rt.running {
		firedExternal := rt.drainExternalInbox()
		if id, ok := rt.scheduler.pickNext(); ok {
			a := rt.actorTable.get(id)
			if a == nil {
				continue
			}
			a.inQueue = false
			rt.scheduler.current = id
			a.fbr.dispatch()
			rt.scheduler.current = 0
			continue
		}
		// Run-queues exhausted: advance time and drain readiness.
		now := monotonicMicros()
		firedTimers := rt.expireDue(now)
		firedDeadlines := rt.scheduler.expireDeadlines(now)
		firedIO := rt.pollIOCollaborators()

		if firedTimers == 0 && firedDeadlines == 0 && firedIO == 0 && firedExternal == 0 {
			if rt.scheduler.liveCount == 0 {
				// No live actors remain and nothing fired this iteration:
				// any further timers/deadlines would target a dead actor.
				rt.running = false
			} else {
				// Live actors exist but none are runnable and nothing is
				// imminently due; sleep briefly to avoid a busy spin while
				// waiting for the next deadline or I/O collaborator event.
				time.Sleep(time.Millisecond)
			}
		}
	}
}

func (rt *Runtime) pollIOCollaborators() int {
	if len(rt.ioCollaborators) == 0 {
		return 0
	}
	timeout := time.Duration(rt.cfg.IoReadyPollTimeoutMs) * time.Millisecond
	delivered := 0
	for _, c := range rt.ioCollaborators {
		c.Poll(timeout, func(token IOToken, result Status) {
			rt.deliverIOWakeup(token, result)
			delivered++
		})
		if delivered >= rt.cfg.MaxReadyEventsPerTick {
			break
		}
	}
	return delivered
}

func (rt *Runtime) deliverIOWakeup(token IOToken, result Status) {
	n := rt.actorTable.pool.capacity()
	for i := 0; i < n; i++ {
		if !rt.actorTable.pool.used(uint32(i)) {
			continue
		}
		a := rt.actorTable.pool.get(uint32(i))
		if a.state == StateSuspended && a.waitReason == WaitIoReady &&
			a.waitIOToken.FD == token.FD && a.waitIOToken.Direction == token.Direction {
			rt.scheduler.removeDeadlineWaiter(a.id)
			rt.wake(a, result, Message{})
			return
		}
	}
}

// Shutdown requests the run loop stop at its next opportunity, killing
// any actors still alive with reason Killed via their cleanup epilogue.
func (rt *Runtime) Shutdown() {
	n := rt.actorTable.pool.capacity()
	for i := 0; i < n; i++ {
		if !rt.actorTable.pool.used(uint32(i)) {
			continue
		}
		a := rt.actorTable.pool.get(uint32(i))
		if a.state != StateDead {
			rt.runCleanupEpilogue(a, ExitKilled)
		}
	}
	rt.running = false
}

// Cleanup drops the runtime's references to its registered I/O
// collaborators. It does not call any Close method on them, and it leaves
// the pools and the stack arena as they are. Safe to call after Run
// returns.
func (rt *Runtime) Cleanup() {
	rt.ioCollaborators = nil
}
