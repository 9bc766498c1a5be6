package hive

import "time"

// Suspend / wake primitive (component G, spec §4.4).
//
// Deadline encoding: Immediate (0) never suspends, returning WouldBlock
// when not immediately satisfiable; Infinite (-1) means no deadline;
// any positive duration becomes an absolute deadline of now+N.
const (
	deadlineImmediate int64 = 0
	deadlineInfinite  int64 = -1
)

// encodeDeadline converts a caller-supplied timeout into the absolute
// monotonic-micros deadline used internally. A negative timeout means
// Infinite; a zero timeout means Immediate.
func encodeDeadline(now int64, timeout time.Duration) int64 {
	switch {
	case timeout < 0:
		return deadlineInfinite
	case timeout == 0:
		return deadlineImmediate
	default:
		return now + timeout.Microseconds()
	}
}

// suspend parks the current actor with the given wait reason and deadline,
// handing control back to the scheduler via the fiber baton, and returns
// once woken. It must only be called from within the actor's own
// goroutine while it holds the baton.
func (rt *Runtime) suspend(a *actor, reason WaitReason, filter MatchFilter, deadline int64) Status {
	if deadline == deadlineImmediate {
		return Status{Code: WouldBlock}
	}
	a.state = StateSuspended
	a.waitReason = reason
	a.waitFilter = filter
	a.waitDeadline = deadline
	a.waitReady = false
	if deadline != deadlineInfinite {
		rt.scheduler.addDeadlineWaiter(a.id, deadline)
	}
	a.fbr.park()
	return a.waitResult
}

// wake transitions a into Runnable with the given result and re-enqueues
// it at the back of its priority queue, per the suspend/wake contract
// (spec §4.4 step 3).
func (rt *Runtime) wake(a *actor, result Status, msg Message) {
	if a.state != StateSuspended {
		return
	}
	a.state = StateRunnable
	a.waitReason = WaitNone
	a.waitResult = result
	a.waitMsg = msg
	a.waitReady = true
	rt.scheduler.enqueue(a)
}
