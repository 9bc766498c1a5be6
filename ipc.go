package hive

import "time"

// IPC operations (component H, spec §4.5): notify, recv, recv_match,
// request, reply, pending, count.

// payloadPool is a fixed-capacity pool of pre-allocated byte buffers,
// capped at MaxPayload each. Kept distinct from the generic pool[T]
// because payload buffers must retain their backing array's capacity
// across acquire/release cycles rather than being zeroed to a nil slice.
type payloadPool struct {
	bufs [][]byte
	free []uint32
}

func newPayloadPool(capacity, maxPayload int) *payloadPool {
	p := &payloadPool{
		bufs: make([][]byte, capacity),
		free: make([]uint32, capacity),
	}
	for i := range p.bufs {
		p.bufs[i] = make([]byte, 0, maxPayload)
		p.free[i] = uint32(capacity - 1 - i)
	}
	return p
}

func (p *payloadPool) acquire(n int) (uint32, []byte, bool) {
	if len(p.free) == 0 {
		return 0, nil, false
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	buf := p.bufs[idx][:n]
	return idx, buf, true
}

func (p *payloadPool) release(idx uint32) {
	if int(idx) >= len(p.bufs) {
		return
	}
	p.free = append(p.free, idx)
}

func (p *payloadPool) get(idx uint32) []byte {
	if int(idx) >= len(p.bufs) {
		return nil
	}
	return p.bufs[idx]
}

func (p *payloadPool) capacity() int { return len(p.bufs) }
func (p *payloadPool) len() int      { return len(p.bufs) - len(p.free) }

// nextTag allocates the next 27-bit generated tag for request/reply
// correlation (spec §3/§4.5), wrapping within the 27-bit field. Tag 0 is
// reserved to keep the value distinguishable from a zeroed struct.
func (rt *Runtime) nextTag() uint32 {
	rt.tagCounter++
	if rt.tagCounter&tagMask == 0 {
		rt.tagCounter++
	}
	return rt.tagCounter & tagMask
}

// appendEnvelope pushes an envelope onto the back of target's mailbox,
// preserving per-sender FIFO order (spec §4.5's ordering guarantee).
func (rt *Runtime) appendEnvelope(target *actor, sender ActorID, h header, data []byte) Status {
	idx, env, ok := rt.envelopes.acquire()
	if !ok {
		return noMemf("mailbox envelope pool exhausted (capacity=%d)", rt.envelopes.capacity())
	}
	env.sender = sender
	env.hdr = h
	env.hasNext = false

	if len(data) > 0 {
		pidx, buf, ok := rt.payloads.acquire(len(data))
		if !ok {
			rt.envelopes.release(idx)
			return noMemf("payload pool exhausted (capacity=%d)", rt.payloads.capacity())
		}
		copy(buf, data)
		env.hasPayload = true
		env.payloadIdx = pidx
		env.payloadLen = len(data)
	} else {
		env.hasPayload = false
	}

	mb := &target.mailbox
	if mb.hasTail {
		tailEnv := rt.envelopes.get(mb.tailIdx)
		tailEnv.next = idx
		tailEnv.hasNext = true
	} else {
		mb.headIdx = idx
		mb.hasHead = true
	}
	mb.tailIdx = idx
	mb.hasTail = true
	mb.count++

	if target.state == StateSuspended && waitMatches(target, sender, h) {
		msg := rt.envelopeToMessage(idx)
		rt.popSpecificEnvelope(target, idx)
		rt.scheduler.removeDeadlineWaiter(target.id)
		rt.wake(target, Status{Code: Ok}, msg)
	}
	return OkStatus()
}

func waitMatches(a *actor, sender ActorID, h header) bool {
	switch a.waitReason {
	case WaitRecvAny:
		return true
	case WaitRecvMatch:
		return a.waitFilter.matches(&envelope{sender: sender, hdr: h})
	default:
		return false
	}
}

// envelopeToMessage builds the receiver-facing Message view for the
// envelope at idx without removing it from the mailbox.
func (rt *Runtime) envelopeToMessage(idx uint32) Message {
	env := rt.envelopes.get(idx)
	var data []byte
	if env.hasPayload {
		data = rt.payloads.get(env.payloadIdx)[:env.payloadLen]
	}
	return Message{
		Sender:    env.sender,
		Class:     env.hdr.class,
		Tag:       env.hdr.tag,
		Generated: env.hdr.generated,
		Data:      data,
	}
}

// popMatch scans front-to-back for the first envelope matching filter,
// O(n) in mailbox depth (spec §4.5's recv_match complexity note),
// preserving the order of non-matching envelopes.
func (rt *Runtime) popMatch(a *actor, filter MatchFilter) (Message, bool) {
	mb := &a.mailbox
	if !mb.hasHead {
		return Message{}, false
	}
	prevIdx := uint32(0)
	hasPrev := false
	cur := mb.headIdx
	for {
		env := rt.envelopes.get(cur)
		if filter.matches(env) {
			msg := rt.envelopeToMessage(cur)
			rt.unlinkEnvelope(a, prevIdx, hasPrev, cur)
			rt.releaseLastPayload(a)
			a.lastPayloadIdx = cur
			a.lastHasPayload = true
			return msg, true
		}
		if !env.hasNext {
			break
		}
		prevIdx = cur
		hasPrev = true
		cur = env.next
	}
	return Message{}, false
}

// popSpecificEnvelope removes a specific envelope (already known to
// match a waiter) wherever it sits in the mailbox.
func (rt *Runtime) popSpecificEnvelope(a *actor, target uint32) {
	mb := &a.mailbox
	if mb.headIdx == target && mb.hasHead {
		rt.advanceMailboxHead(a, target)
		rt.releaseLastPayload(a)
		a.lastPayloadIdx = target
		a.lastHasPayload = true
		return
	}
	cur := mb.headIdx
	for {
		env := rt.envelopes.get(cur)
		if !env.hasNext {
			return
		}
		if env.next == target {
			rt.unlinkEnvelope(a, cur, true, target)
			rt.releaseLastPayload(a)
			a.lastPayloadIdx = target
			a.lastHasPayload = true
			return
		}
		cur = env.next
	}
}

func (rt *Runtime) advanceMailboxHead(a *actor, headIdx uint32) {
	mb := &a.mailbox
	env := rt.envelopes.get(headIdx)
	if env.hasNext {
		mb.headIdx = env.next
	} else {
		mb.hasHead = false
		mb.hasTail = false
	}
	mb.count--
}

func (rt *Runtime) unlinkEnvelope(a *actor, prevIdx uint32, hasPrev bool, target uint32) {
	mb := &a.mailbox
	env := rt.envelopes.get(target)
	if !hasPrev {
		rt.advanceMailboxHead(a, target)
		return
	}
	prev := rt.envelopes.get(prevIdx)
	prev.next = env.next
	prev.hasNext = env.hasNext
	if mb.tailIdx == target {
		mb.tailIdx = prevIdx
	}
	mb.count--
}

// releaseLastPayload frees the envelope and payload slot exposed by the
// actor's previous Recv/RecvMatch, per the "valid until next recv"
// contract (spec §3/§4.5).
func (rt *Runtime) releaseLastPayload(a *actor) {
	if !a.lastHasPayload {
		return
	}
	env := rt.envelopes.get(a.lastPayloadIdx)
	if env.hasPayload {
		rt.payloads.release(env.payloadIdx)
	}
	rt.envelopes.release(a.lastPayloadIdx)
	a.lastHasPayload = false
}

// drainMailbox releases every remaining envelope (and payload) back to
// the pools, including the last-exposed one; part of the cleanup
// epilogue step 6 (spec §4.7).
func (rt *Runtime) drainMailbox(a *actor) {
	rt.releaseLastPayload(a)
	mb := &a.mailbox
	cur := mb.headIdx
	has := mb.hasHead
	for has {
		env := rt.envelopes.get(cur)
		if env.hasPayload {
			rt.payloads.release(env.payloadIdx)
		}
		next := env.next
		hasNext := env.hasNext
		rt.envelopes.release(cur)
		cur = next
		has = hasNext
	}
	a.mailbox = Mailbox{}
}

// Notify appends a Notify envelope addressed from sender to to. The
// sender never blocks (spec §4.5).
func (rt *Runtime) Notify(sender ActorID, to ActorID, data []byte) Status {
	return rt.send(sender, to, header{class: ClassNotify}, data)
}

func (rt *Runtime) send(sender, to ActorID, h header, data []byte) Status {
	if len(data) > rt.cfg.MaxPayload() {
		return invalidf("payload length %d exceeds MaxPayload %d", len(data), rt.cfg.MaxPayload())
	}
	if data == nil && len(data) > 0 {
		return invalidf("data must not be nil when len>0")
	}
	target := rt.actorTable.get(to)
	if target == nil || target.state == StateDead {
		return Status{Code: Closed}
	}
	return rt.appendEnvelope(target, sender, h, data)
}

// deliverTimerTick posts a Timer-class message with no payload, timer
// handle encoded in the tag field (spec §4.6).
func (rt *Runtime) deliverTimerTick(owner ActorID, id TimerID) {
	target := rt.actorTable.get(owner)
	if target == nil {
		return
	}
	if rec := rt.timers.pool.get(id.index()); rec == nil || rec.period == 0 {
		// A fired one-shot is finished; a periodic timer stays owned
		// until it is cancelled.
		delete(target.ownedTimers, id)
	}
	rt.appendEnvelope(target, 0, header{class: ClassTimer, tag: uint32(id) & tagMask}, nil)
}

// enqueueSystemMessage posts a System-class exit notification encoding
// {dying actor, reason}.
func (rt *Runtime) enqueueSystemMessage(target *actor, dying ActorID, reason ExitReason) {
	rt.appendEnvelope(target, dying, header{class: ClassSystem}, encodeExitPayload(dying, reason))
}

// Recv pops the head of the caller's mailbox if non-empty, else suspends
// with the given timeout (spec §4.5). It is RecvMatch with the AnyMessage
// filter, so the wait is recorded as WaitRecvMatch.
func (rt *Runtime) Recv(a *actor, timeout time.Duration) (Message, Status) {
	return rt.RecvMatch(a, AnyMessage, timeout)
}

// RecvMatch scans for the first envelope matching filter; same suspend/
// timeout semantics as Recv.
func (rt *Runtime) RecvMatch(a *actor, filter MatchFilter, timeout time.Duration) (Message, Status) {
	if msg, ok := rt.popMatch(a, filter); ok {
		return msg, OkStatus()
	}
	now := monotonicMicros()
	deadline := encodeDeadline(now, timeout)
	st := rt.suspend(a, WaitRecvMatch, filter, deadline)
	if !st.IsOk() {
		return Message{}, st
	}
	return a.waitMsg, st
}

// Request sends a Request envelope and blocks for the matching Reply,
// generating a tag with the "generated" bit set. If to dies before
// replying, the waiter is woken promptly with Closed rather than waiting
// for the full timeout (spec §4.4/§4.5, §9 open question (b)).
func (rt *Runtime) Request(a *actor, to ActorID, data []byte, timeout time.Duration) (Message, Status) {
	tag := rt.nextTag()
	st := rt.send(a.id, to, header{class: ClassRequest, generated: true, tag: tag}, data)
	if !st.IsOk() {
		return Message{}, st
	}
	target := rt.actorTable.get(to)
	if target != nil {
		target.requestWaiters = append(target.requestWaiters, requestWaiter{waiter: a.id})
	}
	filter := MatchFilter{Sender: to, Class: ClassReply, Tag: tag}
	msg, rst := rt.RecvMatch(a, filter, timeout)
	// The request is settled one way or another (reply, timeout, or an
	// immediate WouldBlock): drop the waiter entry now rather than
	// leaving it for to's cleanup epilogue to find and wake a second
	// time. Re-resolve the handle instead of reusing target, since to
	// may have died and its slot been reclaimed by an unrelated actor
	// while a was suspended.
	if pt := rt.actorTable.get(to); pt != nil {
		removeRequestWaiter(pt, a.id)
	}
	return msg, rst
}

// removeRequestWaiter deletes waiter's entry from target's requestWaiters
// list, if present.
func removeRequestWaiter(target *actor, waiter ActorID) {
	for i, w := range target.requestWaiters {
		if w.waiter == waiter {
			target.requestWaiters = append(target.requestWaiters[:i], target.requestWaiters[i+1:]...)
			return
		}
	}
}

// Reply extracts the tag from req and sends a Reply envelope with that
// tag back to req.Sender.
func (rt *Runtime) Reply(a *actor, req Message, data []byte) Status {
	return rt.send(a.id, req.Sender, header{class: ClassReply, generated: req.Generated, tag: req.Tag}, data)
}

// Pending reports whether the actor's mailbox is non-empty.
func (rt *Runtime) Pending(a *actor) bool { return a.mailbox.count > 0 }

// Count reports the actor's mailbox depth.
func (rt *Runtime) Count(a *actor) int { return a.mailbox.count }
