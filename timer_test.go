package hive

import (
	"testing"
	"time"
)

// Scenario 4 (spec §8): periodic timer cancel. every(200ms); after five
// ticks received, cancel; no further ticks for 600ms. Counter is exactly
// 5.
func TestPeriodicTimerCancel(t *testing.T) {
	rt, st := New(DefaultConfig())
	if !st.IsOk() {
		t.Fatalf("New: %v", st)
	}

	var finalCount, finalExtra int
	_, st = rt.Spawn(func(ctx *Context) {
		tid, s := ctx.Every(200 * time.Millisecond)
		if !s.IsOk() {
			t.Errorf("Every: %v", s)
			ctx.Exit()
			return
		}

		count := 0
		for count < 5 {
			msg, s := ctx.Recv(2 * time.Second)
			if !s.IsOk() {
				t.Errorf("Recv waiting for tick %d: %v", count+1, s)
				ctx.Exit()
				return
			}
			if msg.IsTimer() && msg.TimerID() == tid {
				count++
			}
		}
		if s := ctx.CancelTimer(tid); !s.IsOk() {
			t.Errorf("CancelTimer: %v", s)
		}

		deadline := time.Now().Add(600 * time.Millisecond)
		extra := 0
		for {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			msg, s := ctx.Recv(remaining)
			if s.Code == Timeout {
				break
			}
			if s.IsOk() && msg.IsTimer() && msg.TimerID() == tid {
				extra++
			}
		}

		finalCount = count
		finalExtra = extra
		ctx.Exit()
	}, ActorConfig{})
	if !st.IsOk() {
		t.Fatalf("Spawn: %v", st)
	}

	rt.Run()

	if finalCount != 5 {
		t.Fatalf("finalCount = %d, want 5", finalCount)
	}
	if finalExtra != 0 {
		t.Fatalf("finalExtra = %d, want 0 (no ticks after cancel)", finalExtra)
	}
}

// A periodic timer's successive deadlines are spaced at least the
// requested period apart, even as it reschedules drift-free off the
// original start (spec §8 quantified invariant).
func TestPeriodicTimerSpacing(t *testing.T) {
	rt, st := New(DefaultConfig())
	if !st.IsOk() {
		t.Fatalf("New: %v", st)
	}

	const period = 40 * time.Millisecond
	var gaps []time.Duration
	_, st = rt.Spawn(func(ctx *Context) {
		tid, s := ctx.Every(period)
		if !s.IsOk() {
			t.Errorf("Every: %v", s)
			ctx.Exit()
			return
		}
		last := time.Now()
		for i := 0; i < 4; i++ {
			msg, s := ctx.Recv(time.Second)
			if !s.IsOk() || !msg.IsTimer() || msg.TimerID() != tid {
				t.Errorf("unexpected tick %d: status=%v msg=%+v", i, s, msg)
				ctx.Exit()
				return
			}
			now := time.Now()
			gaps = append(gaps, now.Sub(last))
			last = now
		}
		ctx.CancelTimer(tid)
		ctx.Exit()
	}, ActorConfig{})
	if !st.IsOk() {
		t.Fatalf("Spawn: %v", st)
	}

	rt.Run()

	if len(gaps) != 4 {
		t.Fatalf("got %d gaps, want 4", len(gaps))
	}
	for i, g := range gaps {
		if g < period {
			t.Fatalf("gap[%d] = %v, want >= %v", i, g, period)
		}
	}
}

// A zero-delay one-shot fires at the next scheduler iteration.
func TestZeroDelayOneShotFires(t *testing.T) {
	rt, st := New(DefaultConfig())
	if !st.IsOk() {
		t.Fatalf("New: %v", st)
	}
	var fired bool
	_, st = rt.Spawn(func(ctx *Context) {
		tid, s := ctx.After(0)
		if !s.IsOk() {
			t.Errorf("After(0): %v", s)
			ctx.Exit()
			return
		}
		msg, s := ctx.Recv(time.Second)
		fired = s.IsOk() && msg.IsTimer() && msg.TimerID() == tid
		ctx.Exit()
	}, ActorConfig{})
	if !st.IsOk() {
		t.Fatalf("Spawn: %v", st)
	}
	rt.Run()
	if !fired {
		t.Fatalf("zero-delay one-shot never fired")
	}
}

// A zero (or negative) period periodic timer is rejected with Invalid
// rather than accepted and busy-looping (spec §4.6/§9 open question a).
func TestZeroPeriodPeriodicRejected(t *testing.T) {
	rt, st := New(DefaultConfig())
	if !st.IsOk() {
		t.Fatalf("New: %v", st)
	}
	var gotStatus Status
	_, st = rt.Spawn(func(ctx *Context) {
		_, s := ctx.Every(0)
		gotStatus = s
		ctx.Exit()
	}, ActorConfig{})
	if !st.IsOk() {
		t.Fatalf("Spawn: %v", st)
	}
	rt.Run()
	if gotStatus.Code != Invalid {
		t.Fatalf("status = %v, want Invalid", gotStatus.Code)
	}
}

// cancel removes a pending timer before it ever fires.
func TestCancelBeforeFire(t *testing.T) {
	rt, st := New(DefaultConfig())
	if !st.IsOk() {
		t.Fatalf("New: %v", st)
	}
	var gotTimeout bool
	_, st = rt.Spawn(func(ctx *Context) {
		tid, s := ctx.After(time.Hour)
		if !s.IsOk() {
			t.Errorf("After: %v", s)
			ctx.Exit()
			return
		}
		if s := ctx.CancelTimer(tid); !s.IsOk() {
			t.Errorf("CancelTimer: %v", s)
		}
		_, s = ctx.Recv(30 * time.Millisecond)
		gotTimeout = s.Code == Timeout
		ctx.Exit()
	}, ActorConfig{})
	if !st.IsOk() {
		t.Fatalf("Spawn: %v", st)
	}
	rt.Run()
	if !gotTimeout {
		t.Fatalf("expected Recv to time out after cancelling the pending timer")
	}
}
