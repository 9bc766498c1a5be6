package asyncio

import (
	"time"

	"github.com/wrenrt/hive"
)

// Collaborator adapts an FDPoller to hive's IOCollaborator contract
// (spec §4.8), the seam the core leaves to external file/network
// adapters. The core never sees a raw fd or an epoll_event; it only sees
// IOToken registration and Ok/Timeout/Closed wakeups.
type Collaborator struct {
	poller FDPoller
}

// NewCollaborator wraps an FDPoller (e.g. the Linux epoll implementation
// or the portable poll(2) fallback, both selected automatically by
// NewOSFDPoller for the build platform) as a hive.IOCollaborator.
func NewCollaborator(poller FDPoller) *Collaborator {
	return &Collaborator{poller: poller}
}

// NewOSCollaborator is the common-case constructor: the OS-appropriate
// FDPoller wrapped as a Collaborator ready to register with hive.Runtime.
func NewOSCollaborator() (*Collaborator, error) {
	p, err := NewOSFDPoller()
	if err != nil {
		return nil, err
	}
	return NewCollaborator(p), nil
}

func kindForDirection(dir hive.IODirection) EventKind {
	if dir == hive.IOWrite {
		return EventWrite
	}
	return EventRead
}

func directionForKind(kind EventKind) hive.IODirection {
	if kind&EventWrite != 0 {
		return hive.IOWrite
	}
	return hive.IORead
}

// Register satisfies hive.IOCollaborator.
func (c *Collaborator) Register(token hive.IOToken) error {
	return c.poller.Register(token.FD, kindForDirection(token.Direction))
}

// Deregister satisfies hive.IOCollaborator.
func (c *Collaborator) Deregister(token hive.IOToken) {
	_ = c.poller.Deregister(token.FD)
}

// Poll satisfies hive.IOCollaborator: it drains ready/closed events from
// the underlying FDPoller and reports each one as an Ok or Closed wakeup.
// Timeout wakeups are handled generically by the runtime's own deadline
// bookkeeping and never originate here.
func (c *Collaborator) Poll(timeout time.Duration, deliver func(token hive.IOToken, result hive.Status)) {
	events, err := c.poller.Wait(timeout)
	if err != nil {
		return
	}
	for _, ev := range events {
		dir := directionForKind(ev.Kind)
		result := hive.OkStatus()
		if ev.Err != nil {
			result = hive.Status{Code: hive.Closed, Msg: ev.Err.Error()}
		}
		deliver(hive.IOToken{FD: ev.FD, Direction: dir}, result)
	}
}

// Close releases the underlying poller's resources.
func (c *Collaborator) Close() error {
	return c.poller.Close()
}
