package hive

import (
	"testing"
	"time"
)

// recv(timeout=0) returns WouldBlock without suspending when the mailbox
// is empty (spec §8 boundary behavior).
func TestRecvImmediateWouldBlock(t *testing.T) {
	rt, st := New(DefaultConfig())
	if !st.IsOk() {
		t.Fatalf("New: %v", st)
	}
	id, st := rt.Spawn(func(ctx *Context) {}, ActorConfig{})
	if !st.IsOk() {
		t.Fatalf("Spawn: %v", st)
	}
	a := rt.actorTable.get(id)
	if a == nil {
		t.Fatalf("actor not found")
	}
	_, status := rt.Recv(a, 0)
	if status.Code != WouldBlock {
		t.Fatalf("status = %v, want WouldBlock", status.Code)
	}
	if a.state != StateRunnable {
		t.Fatalf("actor suspended on an Immediate recv")
	}
}

// recv(timeout=N) wakes with Timeout once elapsed >= N.
func TestRecvTimeout(t *testing.T) {
	rt, st := New(DefaultConfig())
	if !st.IsOk() {
		t.Fatalf("New: %v", st)
	}

	var gotStatus Status
	var elapsed time.Duration
	_, st = rt.Spawn(func(ctx *Context) {
		start := time.Now()
		_, s := ctx.Recv(30 * time.Millisecond)
		elapsed = time.Since(start)
		gotStatus = s
		ctx.Exit()
	}, ActorConfig{})
	if !st.IsOk() {
		t.Fatalf("Spawn: %v", st)
	}

	rt.Run()

	if gotStatus.Code != Timeout {
		t.Fatalf("status = %v, want Timeout", gotStatus.Code)
	}
	if elapsed < 30*time.Millisecond {
		t.Fatalf("elapsed = %v, want >= 30ms", elapsed)
	}
}

// notify with len=0, data=nil succeeds; the receiver observes len=0.
func TestNotifyZeroLength(t *testing.T) {
	rt, st := New(DefaultConfig())
	if !st.IsOk() {
		t.Fatalf("New: %v", st)
	}

	var gotLen = -1
	target, st := rt.Spawn(func(ctx *Context) {
		msg, s := ctx.Recv(time.Second)
		if !s.IsOk() {
			t.Errorf("Recv: %v", s)
			ctx.Exit()
			return
		}
		gotLen = len(msg.Data)
		ctx.Exit()
	}, ActorConfig{})
	if !st.IsOk() {
		t.Fatalf("Spawn: %v", st)
	}

	notifyStatus := rt.Notify(0, target, nil)
	if !notifyStatus.IsOk() {
		t.Fatalf("Notify: %v", notifyStatus)
	}

	rt.Run()

	if gotLen != 0 {
		t.Fatalf("len(msg.Data) = %d, want 0", gotLen)
	}
}

// notify with len > MaxPayload returns Invalid.
func TestNotifyOversizedPayloadInvalid(t *testing.T) {
	cfg := DefaultConfig()
	rt, st := New(cfg)
	if !st.IsOk() {
		t.Fatalf("New: %v", st)
	}
	id, st := rt.Spawn(func(ctx *Context) {}, ActorConfig{})
	if !st.IsOk() {
		t.Fatalf("Spawn: %v", st)
	}

	oversized := make([]byte, cfg.MaxPayload()+1)
	status := rt.Notify(0, id, oversized)
	if status.Code != Invalid {
		t.Fatalf("status = %v, want Invalid", status.Code)
	}
}

// notify to an unknown/dead handle returns Closed.
func TestNotifyToDeadActorClosed(t *testing.T) {
	rt, st := New(DefaultConfig())
	if !st.IsOk() {
		t.Fatalf("New: %v", st)
	}
	id, st := rt.Spawn(func(ctx *Context) { ctx.Exit() }, ActorConfig{})
	if !st.IsOk() {
		t.Fatalf("Spawn: %v", st)
	}
	rt.Run()

	status := rt.Notify(0, id, nil)
	if status.Code != Closed {
		t.Fatalf("status = %v, want Closed", status.Code)
	}
}

// Exhausting the envelope pool returns NoMem; once the receiver's lazy
// release frees a slot (by recv-ing past the previously exposed entry),
// the next notify succeeds again.
func TestEnvelopePoolExhaustionAndRecovery(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MailboxEntryPoolSize = 2
	rt, st := New(cfg)
	if !st.IsOk() {
		t.Fatalf("New: %v", st)
	}
	id, st := rt.Spawn(func(ctx *Context) {}, ActorConfig{})
	if !st.IsOk() {
		t.Fatalf("Spawn: %v", st)
	}
	a := rt.actorTable.get(id)

	if s := rt.Notify(0, id, nil); !s.IsOk() {
		t.Fatalf("notify #1: %v", s)
	}
	if s := rt.Notify(0, id, nil); !s.IsOk() {
		t.Fatalf("notify #2: %v", s)
	}
	if s := rt.Notify(0, id, nil); s.Code != NoMem {
		t.Fatalf("notify #3 status = %v, want NoMem", s.Code)
	}

	// First recv pops entry #1 but only marks it as "last exposed"; the
	// pool stays fully in use until the following recv call releases it.
	if _, s := rt.Recv(a, 0); !s.IsOk() {
		t.Fatalf("recv #1: %v", s)
	}
	if s := rt.Notify(0, id, nil); s.Code != NoMem {
		t.Fatalf("notify after one recv = %v, want still NoMem (lazy release)", s.Code)
	}

	if _, s := rt.Recv(a, 0); !s.IsOk() {
		t.Fatalf("recv #2: %v", s)
	}
	if s := rt.Notify(0, id, nil); !s.IsOk() {
		t.Fatalf("notify after second recv: %v, want Ok once a slot is freed", s)
	}
}

// header encode/decode round-trips class, generated flag, and tag.
func TestHeaderRoundTrip(t *testing.T) {
	cases := []header{
		{class: ClassNotify, generated: false, tag: 0},
		{class: ClassRequest, generated: true, tag: 123},
		{class: ClassSystem, generated: false, tag: tagMask},
	}
	for _, h := range cases {
		v := encodeHeader(h)
		got := decodeHeader(v)
		if got != h {
			t.Fatalf("round trip %+v -> %+v", h, got)
		}
	}
}
