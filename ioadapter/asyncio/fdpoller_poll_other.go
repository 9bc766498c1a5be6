//go:build !linux

package asyncio

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// pollFDPoller is the non-Linux FDPoller: a poll(2)-based implementation
// via golang.org/x/sys/unix, used on other unix-like development
// platforms. Target machines range from embedded-class up to Linux-class
// servers, so this is a portability convenience for building and testing
// off Linux, not a tuned production path; Windows is out of scope
// (golang.org/x/sys/unix itself does not build there).
type pollFDPoller struct {
	fds map[int]EventKind
}

// NewOSFDPoller returns the poll(2)-backed FDPoller on non-Linux unix
// platforms.
func NewOSFDPoller() (FDPoller, error) {
	return &pollFDPoller{fds: make(map[int]EventKind)}, nil
}

func (p *pollFDPoller) Register(fd int, kind EventKind) error {
	p.fds[fd] = kind
	return nil
}

func (p *pollFDPoller) Deregister(fd int) error {
	delete(p.fds, fd)
	return nil
}

func (p *pollFDPoller) Wait(timeout time.Duration) ([]ReadyEvent, error) {
	if len(p.fds) == 0 {
		time.Sleep(timeout)
		return nil, nil
	}
	pfds := make([]unix.PollFd, 0, len(p.fds))
	order := make([]int, 0, len(p.fds))
	for fd, kind := range p.fds {
		var events int16
		if kind&EventRead != 0 {
			events |= unix.POLLIN
		}
		if kind&EventWrite != 0 {
			events |= unix.POLLOUT
		}
		pfds = append(pfds, unix.PollFd{Fd: int32(fd), Events: events})
		order = append(order, fd)
	}
	n, err := unix.Poll(pfds, int(timeout/time.Millisecond))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]ReadyEvent, 0, n)
	for i, pfd := range pfds {
		if pfd.Revents == 0 {
			continue
		}
		fd := order[i]
		kind := p.fds[fd]
		var evErr error
		if pfd.Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			evErr = fmt.Errorf("fd %d closed or errored", fd)
		}
		out = append(out, ReadyEvent{FD: fd, Kind: kind, Err: evErr})
	}
	return out, nil
}

func (p *pollFDPoller) Close() error { return nil }
