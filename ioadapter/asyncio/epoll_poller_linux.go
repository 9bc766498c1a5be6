//go:build linux

package asyncio

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller is a genuine epoll(7)-backed FDPoller: EpollCreate1/
// EpollCtl/EpollWait drive readiness the way a kqueue-based poller would
// use Kqueue/Kevent on BSD.
type epollPoller struct {
	epfd int
	fds  map[int]EventKind
}

// NewOSFDPoller returns the epoll-backed FDPoller on Linux.
func NewOSFDPoller() (FDPoller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &epollPoller{epfd: fd, fds: make(map[int]EventKind)}, nil
}

func (p *epollPoller) Register(fd int, kind EventKind) error {
	var events uint32
	if kind&EventRead != 0 {
		events |= unix.EPOLLIN
	}
	if kind&EventWrite != 0 {
		events |= unix.EPOLLOUT
	}
	ev := &unix.EpollEvent{Events: events, Fd: int32(fd)}
	op := unix.EPOLL_CTL_ADD
	if _, exists := p.fds[fd]; exists {
		op = unix.EPOLL_CTL_MOD
	}
	if err := unix.EpollCtl(p.epfd, op, fd, ev); err != nil {
		return fmt.Errorf("epoll_ctl: %w", err)
	}
	p.fds[fd] = kind
	return nil
}

func (p *epollPoller) Deregister(fd int) error {
	if _, ok := p.fds[fd]; !ok {
		return nil
	}
	delete(p.fds, fd)
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll_ctl del: %w", err)
	}
	return nil
}

func (p *epollPoller) Wait(timeout time.Duration) ([]ReadyEvent, error) {
	events := make([]unix.EpollEvent, 64)
	ms := int(timeout / time.Millisecond)
	n, err := unix.EpollWait(p.epfd, events, ms)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("epoll_wait: %w", err)
	}
	out := make([]ReadyEvent, 0, n)
	for i := 0; i < n; i++ {
		fd := int(events[i].Fd)
		kind := p.fds[fd]
		var evErr error
		if events[i].Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			evErr = fmt.Errorf("fd %d closed or errored", fd)
		}
		out = append(out, ReadyEvent{FD: fd, Kind: kind, Err: evErr})
	}
	return out, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}
