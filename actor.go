package hive

// Actor lifecycle types (component E, spec §3).

// Priority is one of Critical, High, Normal, Low; strictly ordered, no
// aging or fairness across levels (spec §4.3, Non-goals).
type Priority int

const (
	Critical Priority = iota
	High
	Normal
	Low
	numPriorities
)

func (p Priority) String() string {
	switch p {
	case Critical:
		return "Critical"
	case High:
		return "High"
	case Normal:
		return "Normal"
	case Low:
		return "Low"
	default:
		return "Unknown"
	}
}

// LifecycleState is Runnable, Suspended, or Dead.
type LifecycleState int

const (
	StateRunnable LifecycleState = iota
	StateSuspended
	StateDead
)

// ExitReason records why an actor died.
type ExitReason int

const (
	ExitNone ExitReason = iota
	ExitNormal
	ExitCrash
	ExitCrashStack
	ExitKilled
)

func (r ExitReason) String() string {
	switch r {
	case ExitNone:
		return "None"
	case ExitNormal:
		return "Normal"
	case ExitCrash:
		return "Crash"
	case ExitCrashStack:
		return "CrashStack"
	case ExitKilled:
		return "Killed"
	default:
		return "Unknown"
	}
}

// WaitReason tags why a Suspended actor is waiting (spec §3/§4.4).
type WaitReason int

const (
	WaitNone WaitReason = iota
	WaitRecvAny
	WaitRecvMatch
	WaitTimerTick
	WaitIoReady
)

// IOToken is the fd+direction+deadline handle an I/O collaborator
// registers on an actor's behalf (spec §4.8). The core treats it opaquely.
type IOToken struct {
	FD        int
	Direction IODirection
	Deadline  int64 // absolute monotonic micros
}

// IODirection distinguishes read-readiness from write-readiness waits.
type IODirection int

const (
	IORead IODirection = iota
	IOWrite
)

// ActorConfig configures a single spawned actor (spec §6's per-actor
// fields).
type ActorConfig struct {
	StackSize   uintptr // 0 = Config.DefaultStackSize
	Priority    Priority
	Name        string
	MallocStack bool
}

// actor is the per-slot control block. It is never exposed directly;
// callers interact through ActorID and the Context passed to their entry
// function.
type actor struct {
	id         ActorID
	generation uint32
	name       string
	priority   Priority
	state      LifecycleState
	exitReason ExitReason

	stack *StackDescriptor
	fbr   *fiber

	mailbox Mailbox

	waitReason   WaitReason
	waitFilter   MatchFilter
	waitDeadline int64 // absolute monotonic micros; deadlineImmediate/deadlineInfinite sentinels
	waitTimerID  TimerID
	waitIOToken  IOToken
	waitResult   Status
	waitMsg      Message
	waitReady    bool

	// lastPayloadIdx/lastHasPayload track the payload slot exposed by the
	// most recent Recv/RecvMatch, released on the *next* call per the
	// "valid until next recv" aliasing contract (spec §3/§4.5).
	lastPayloadIdx  uint32
	lastHasPayload  bool

	links          map[ActorID]linkID // peer -> this actor's link-pool slot
	monitoredBy    map[MonitorRef]ActorID // observer's ref -> observer id, for notifying
	monitoring     map[MonitorRef]ActorID // this actor's own refs -> target
	ownedTimers    map[TimerID]struct{}
	requestWaiters []requestWaiter // waiters blocked in Request targeting this actor

	inQueue bool // true while linked into a priority run-queue
}

// requestWaiter records an actor blocked in Request against this (soon to
// be dead) actor, so the cleanup epilogue can wake it with Closed even
// though it registered no explicit link or monitor (spec §4.4's "death of
// a target of request wakes the waiter with Closed").
type requestWaiter struct {
	waiter ActorID
}

func (a *actor) reset(id ActorID, generation uint32, cfg ActorConfig) {
	*a = actor{
		id:         id,
		generation: generation,
		name:       cfg.Name,
		priority:   cfg.Priority,
		state:      StateRunnable,
		exitReason: ExitNone,
	}
}
