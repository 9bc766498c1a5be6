package hive

import (
	goruntime "runtime"
	"time"
)

// Context is the actor-facing API surface passed to an EntryFunc. Every
// method must be called from within the owning actor's own goroutine
// while it holds the scheduler baton (fiber.go); calling it from any
// other goroutine is undefined, matching spec §5's "all state is owned
// by the runtime and accessed only from actor context."
type Context struct {
	rt   *Runtime
	self *actor
}

// Self returns the calling actor's own handle.
func (c *Context) Self() ActorID { return c.self.id }

// Alive reports whether handle currently names a live actor.
func (c *Context) Alive(handle ActorID) bool { return c.rt.Alive(handle) }

// Logger returns the runtime's configured logger.
func (c *Context) Logger() Logger { return c.rt.logger }

// Yield places the caller at the back of its priority queue and switches
// to the next dispatch choice (spec §4.3).
func (c *Context) Yield() {
	c.rt.yield(c.self)
}

// Exit marks the caller Dead with reason Normal and never returns control
// to the entry function. It runs the cleanup epilogue, then unwinds the
// actor's goroutine via runtime.Goexit, since fiber.launch defers the
// hand-back-to-scheduler step and Goexit still runs deferred calls
// before terminating the goroutine.
func (c *Context) Exit() {
	c.rt.runCleanupEpilogue(c.self, ExitNormal)
	goruntime.Goexit()
}

// Notify appends a Notify envelope to to's mailbox. The caller never
// blocks (spec §4.5).
func (c *Context) Notify(to ActorID, data []byte) Status {
	return c.rt.Notify(c.self.id, to, data)
}

// Recv pops the head of the mailbox, or suspends until timeout elapses
// (negative timeout means Infinite, zero means Immediate/non-blocking).
func (c *Context) Recv(timeout time.Duration) (Message, Status) {
	return c.rt.Recv(c.self, timeout)
}

// RecvMatch scans for the first envelope satisfying filter.
func (c *Context) RecvMatch(filter MatchFilter, timeout time.Duration) (Message, Status) {
	return c.rt.RecvMatch(c.self, filter, timeout)
}

// Request sends to to and blocks for the matching Reply.
func (c *Context) Request(to ActorID, data []byte, timeout time.Duration) (Message, Status) {
	return c.rt.Request(c.self, to, data, timeout)
}

// Reply answers a Request previously received via Recv/RecvMatch.
func (c *Context) Reply(req Message, data []byte) Status {
	return c.rt.Reply(c.self, req, data)
}

// Pending reports whether the caller's mailbox is non-empty.
func (c *Context) Pending() bool { return c.rt.Pending(c.self) }

// Count reports the caller's mailbox depth.
func (c *Context) Count() int { return c.rt.Count(c.self) }

// After registers a one-shot timer.
func (c *Context) After(d time.Duration) (TimerID, Status) {
	id, st := c.rt.after(c.self.id, d)
	if st.IsOk() {
		c.trackTimer(id)
	}
	return id, st
}

// Every registers a periodic timer; a non-positive period is rejected
// with Invalid (spec §9's zero-period resolution).
func (c *Context) Every(d time.Duration) (TimerID, Status) {
	id, st := c.rt.every(c.self.id, d)
	if st.IsOk() {
		c.trackTimer(id)
	}
	return id, st
}

func (c *Context) trackTimer(id TimerID) {
	if c.self.ownedTimers == nil {
		c.self.ownedTimers = map[TimerID]struct{}{}
	}
	c.self.ownedTimers[id] = struct{}{}
}

// CancelTimer cancels a pending timer owned by the caller.
func (c *Context) CancelTimer(id TimerID) Status {
	st := c.rt.cancelTimer(c.self.id, id)
	if st.IsOk() {
		delete(c.self.ownedTimers, id)
	}
	return st
}

// Link establishes a bidirectional link with peer.
func (c *Context) Link(peer ActorID) Status {
	return c.rt.link(c.self, peer)
}

// Unlink removes a previously established link.
func (c *Context) Unlink(peer ActorID) Status {
	return c.rt.unlink(c.self, peer)
}

// Monitor registers a unidirectional watch of target.
func (c *Context) Monitor(target ActorID) (MonitorRef, Status) {
	return c.rt.monitor(c.self, target)
}

// Demonitor cancels a monitor.
func (c *Context) Demonitor(ref MonitorRef) Status {
	return c.rt.demonitor(c.self, ref)
}

// WaitIO registers token with every configured I/O collaborator and
// suspends until one reports readiness, timeout, or closure (spec §4.8's
// collaborator contract). Returns Invalid if no collaborator is
// registered.
func (c *Context) WaitIO(token IOToken, timeout time.Duration) Status {
	if len(c.rt.ioCollaborators) == 0 {
		return invalidf("no I/O collaborator registered")
	}
	for _, collab := range c.rt.ioCollaborators {
		if err := collab.Register(token); err != nil {
			return statusf(Io, "%v", err)
		}
	}
	c.self.waitIOToken = token
	now := monotonicMicros()
	deadline := encodeDeadline(now, timeout)
	return c.rt.suspend(c.self, WaitIoReady, MatchFilter{}, deadline)
}

// TouchStack accounts for n bytes of simulated stack usage against the
// caller's carved stack budget, approximating the source's stack-guard
// check (see DESIGN.md, Open Question resolution #2). If the budget is
// exceeded the actor is immediately torn down with CrashStack and this
// call never returns (see Exit's doc comment for how unwinding reaches
// the scheduler).
func (c *Context) TouchStack(n uintptr) {
	if c.self.stack != nil && !c.self.stack.touch(n) {
		c.rt.runCleanupEpilogue(c.self, ExitCrashStack)
		goruntime.Goexit()
	}
}
