package hive

import "sort"

// Scheduler (component F, spec §4.3): four strict-FIFO priority run-
// queues, cooperative dispatch, no aging, no preemption.

type runQueue struct {
	items []ActorID
}

func (q *runQueue) pushBack(id ActorID) {
	q.items = append(q.items, id)
}

func (q *runQueue) popFront() (ActorID, bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	id := q.items[0]
	q.items = q.items[1:]
	return id, true
}

func (q *runQueue) empty() bool { return len(q.items) == 0 }

// deadlineWaiter records a suspended actor's timeout, kept sorted by
// deadline so the scheduler can cheaply find all waiters whose deadline
// has elapsed.
type deadlineWaiter struct {
	actor    ActorID
	deadline int64
}

type scheduler struct {
	rt        *Runtime
	queues    [numPriorities]runQueue
	current   ActorID
	waiters   []deadlineWaiter // sorted ascending by deadline
	liveCount int
}

func newScheduler(rt *Runtime) *scheduler {
	return &scheduler{rt: rt}
}

// enqueue places a at the back of its priority's run-queue.
func (s *scheduler) enqueue(a *actor) {
	if a.inQueue {
		return
	}
	a.inQueue = true
	s.queues[a.priority].pushBack(a.id)
}

// addDeadlineWaiter records that actor id should be woken with Timeout no
// earlier than deadline, unless woken sooner by its satisfied reason.
func (s *scheduler) addDeadlineWaiter(id ActorID, deadline int64) {
	w := deadlineWaiter{actor: id, deadline: deadline}
	i := sort.Search(len(s.waiters), func(i int) bool { return s.waiters[i].deadline >= deadline })
	s.waiters = append(s.waiters, deadlineWaiter{})
	copy(s.waiters[i+1:], s.waiters[i:])
	s.waiters[i] = w
}

// removeDeadlineWaiter cancels a pending timeout for id, e.g. because it
// was woken for another reason first.
func (s *scheduler) removeDeadlineWaiter(id ActorID) {
	for i, w := range s.waiters {
		if w.actor == id {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

// expireDeadlines wakes every waiter whose deadline has elapsed with
// Timeout, returning how many were woken.
func (s *scheduler) expireDeadlines(now int64) int {
	n := 0
	for len(s.waiters) > 0 && s.waiters[0].deadline <= now {
		w := s.waiters[0]
		s.waiters = s.waiters[1:]
		a := s.rt.actorTable.get(w.actor)
		if a == nil || a.state != StateSuspended {
			continue
		}
		s.rt.wake(a, Status{Code: Timeout}, Message{})
		n++
	}
	return n
}

// pickNext returns the next actor to dispatch: the head of the lowest-
// numbered non-empty queue (spec §4.3's strict priority rule).
func (s *scheduler) pickNext() (ActorID, bool) {
	for p := Priority(0); p < numPriorities; p++ {
		if id, ok := s.queues[p].popFront(); ok {
			return id, true
		}
	}
	return 0, false
}

// yield re-enqueues the caller at the back of its own priority and
// returns control to the scheduler (spec §4.3's yield operation).
func (rt *Runtime) yield(a *actor) {
	rt.scheduler.enqueue(a)
	a.fbr.park()
}
