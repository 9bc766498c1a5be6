package hive

// Supervision: links (bidirectional) and monitors (unidirectional),
// component J, spec §4.7.

type linkRecord struct {
	a, b ActorID
}

type monitorRecord struct {
	observer ActorID
	target   ActorID
}

type supervisionTables struct {
	links    *pool[linkRecord]
	monitors *pool[monitorRecord]
	monGens  []uint32
}

func newSupervisionTables(cfg Config) *supervisionTables {
	return &supervisionTables{
		links:    newPool[linkRecord](cfg.LinkPoolSize),
		monitors: newPool[monitorRecord](cfg.MonitorPoolSize),
		monGens:  make([]uint32, cfg.MonitorPoolSize),
	}
}

// link establishes a bidirectional link between a and peer, consuming two
// link-pool slots (one per direction), matching spec §3/§4.7. Link to
// self is permitted as a degenerate case.
func (rt *Runtime) link(a *actor, peer ActorID) Status {
	if a.id == peer {
		if a.links == nil {
			a.links = map[ActorID]linkID{}
		}
		return OkStatus() // degenerate: nothing to notify, self-delivery is skipped on death
	}
	pa := rt.actorTable.get(a.id)
	pb := rt.actorTable.get(peer)
	if pa == nil || pb == nil {
		return invalidf("link target is not a live actor")
	}
	idxA, _, okA := rt.supervision.links.acquire()
	if !okA {
		return noMemf("link pool exhausted")
	}
	idxB, _, okB := rt.supervision.links.acquire()
	if !okB {
		rt.supervision.links.release(idxA)
		return noMemf("link pool exhausted")
	}
	if a.links == nil {
		a.links = map[ActorID]linkID{}
	}
	if pb.links == nil {
		pb.links = map[ActorID]linkID{}
	}
	a.links[peer] = linkID(idxA)
	pb.links[a.id] = linkID(idxB)
	return OkStatus()
}

// unlink removes both sides of a link.
func (rt *Runtime) unlink(a *actor, peer ActorID) Status {
	if a.id == peer {
		return OkStatus()
	}
	idA, ok := a.links[peer]
	if !ok {
		return invalidf("no link to given peer")
	}
	delete(a.links, peer)
	rt.supervision.links.release(uint32(idA))
	if pb := rt.actorTable.get(peer); pb != nil {
		if idB, ok := pb.links[a.id]; ok {
			delete(pb.links, a.id)
			rt.supervision.links.release(uint32(idB))
		}
	}
	return OkStatus()
}

// monitor registers a unidirectional watch of target by observer a.
// Monitoring an already-dead target delivers an exit message immediately
// (spec §4.7); a target handle that was never valid (the zero handle, or
// an index outside the actor table) fails with Invalid instead, since
// there is no dead actor to report an exit for.
func (rt *Runtime) monitor(a *actor, target ActorID) (MonitorRef, Status) {
	if !target.Valid() || int(target.index()) >= rt.actorTable.pool.capacity() {
		return 0, invalidf("invalid monitor target handle")
	}
	idx, rec, ok := rt.supervision.monitors.acquire()
	if !ok {
		return 0, noMemf("monitor pool exhausted")
	}
	rt.supervision.monGens[idx]++
	ref := MonitorRef(makeHandle(rt.supervision.monGens[idx], idx))
	rec.observer = a.id
	rec.target = target

	if a.monitoring == nil {
		a.monitoring = map[MonitorRef]ActorID{}
	}
	a.monitoring[ref] = target

	pt := rt.actorTable.get(target)
	if pt == nil {
		rt.deliverExit(a.id, target, ExitNormal)
		rt.supervision.monitors.release(idx)
		delete(a.monitoring, ref)
		return ref, OkStatus()
	}
	if pt.monitoredBy == nil {
		pt.monitoredBy = map[MonitorRef]ActorID{}
	}
	pt.monitoredBy[ref] = a.id
	return ref, OkStatus()
}

// demonitor cancels a monitor. Double-demonitor fails with Invalid.
func (rt *Runtime) demonitor(a *actor, ref MonitorRef) Status {
	target, ok := a.monitoring[ref]
	if !ok {
		return invalidf("unknown or already-demonitored monitor reference")
	}
	delete(a.monitoring, ref)
	if pt := rt.actorTable.get(target); pt != nil {
		delete(pt.monitoredBy, ref)
	}
	idx := ref.index()
	if rt.supervision.monitors.used(idx) && rt.supervision.monGens[idx] == ref.generation() {
		rt.supervision.monitors.release(idx)
	}
	return OkStatus()
}

// deliverExit posts a System-class exit message to observer reporting
// that dying died with reason.
func (rt *Runtime) deliverExit(observer, dying ActorID, reason ExitReason) {
	pobs := rt.actorTable.get(observer)
	if pobs == nil {
		return
	}
	rt.enqueueSystemMessage(pobs, dying, reason)
}

// runCleanupEpilogue executes the exact 8-step sequence spec §4.7
// mandates when an actor transitions to Dead.
func (rt *Runtime) runCleanupEpilogue(a *actor, reason ExitReason) {
	// 1. final reason already decided by the caller.
	a.exitReason = reason
	a.state = StateDead

	// 2. wake every outstanding request waiter targeting this actor.
	for _, w := range a.requestWaiters {
		if waiter := rt.actorTable.get(w.waiter); waiter != nil && waiter.state == StateSuspended {
			rt.scheduler.removeDeadlineWaiter(waiter.id)
			rt.wake(waiter, Status{Code: Closed}, Message{})
		}
	}
	a.requestWaiters = nil

	// 3. link peers: deliver exit, remove reciprocal entry.
	for peer, idSelf := range a.links {
		rt.supervision.links.release(uint32(idSelf))
		if pb := rt.actorTable.get(peer); pb != nil {
			if idPeer, ok := pb.links[a.id]; ok {
				delete(pb.links, a.id)
				rt.supervision.links.release(uint32(idPeer))
			}
			rt.deliverExit(peer, a.id, reason)
		}
	}
	a.links = nil

	// 4. monitor observers: deliver exit, free monitor slot.
	for ref, observer := range a.monitoredBy {
		rt.deliverExit(observer, a.id, reason)
		idx := ref.index()
		if rt.supervision.monitors.used(idx) && rt.supervision.monGens[idx] == ref.generation() {
			rt.supervision.monitors.release(idx)
		}
		if pobs := rt.actorTable.get(observer); pobs != nil {
			delete(pobs.monitoring, ref)
		}
	}
	a.monitoredBy = nil

	// 5. cancel all timers owned by this actor.
	rt.releaseOwnedTimers(a)

	// 6. drain mailbox entries and payload slots back to pools.
	rt.drainMailbox(a)

	// 7. release the stack.
	rt.stackArena.Release(a.stack)
	a.stack = nil

	// 8. bump the slot's generation so the handle no longer matches.
	rt.actorTable.bumpGeneration(a.id)

	rt.scheduler.liveCount--
}
