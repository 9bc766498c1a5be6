package hive

import (
	"time"
)

// fakeCollaborator is a minimal hive.IOCollaborator stand-in for testing
// the core's collaborator contract (spec §4.8) without any real fds: a
// test arranges for a registered token to become ready, time out, or
// close by pushing onto the pending channel/queue directly.
type fakeCollaborator struct {
	registered []IOToken
	pending    []struct {
		token  IOToken
		result Status
	}
}

func (f *fakeCollaborator) Register(token IOToken) error {
	f.registered = append(f.registered, token)
	return nil
}

func (f *fakeCollaborator) Deregister(token IOToken) {}

func (f *fakeCollaborator) Poll(timeout time.Duration, deliver func(token IOToken, result Status)) {
	for _, p := range f.pending {
		deliver(p.token, p.result)
	}
	f.pending = nil
}

func (f *fakeCollaborator) readyNow(token IOToken, result Status) {
	f.pending = append(f.pending, struct {
		token  IOToken
		result Status
	}{token, result})
}
