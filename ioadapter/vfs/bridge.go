package vfs

import (
	"encoding/json"
	"sync"

	"github.com/wrenrt/hive"
)

// WatchPathWithActor starts watching path with w and redelivers every Event
// it produces as a Notify message to target. hive's scheduler is
// single-threaded by construction, so the watcher goroutine here hands
// events to Runtime.InjectExternal, which the runtime's own goroutine
// drains into a real Notify on its next loop iteration.
//
// The returned stop function stops the underlying watcher and the
// delivery goroutine. It is safe to call multiple times.
func WatchPathWithActor(rt *hive.Runtime, target hive.ActorID, w Watcher, path string) (stop func() error, err error) {
	if err := w.Add(path); err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-w.Events():
				if !ok {
					return
				}
				data, merr := encodeEvent(ev)
				if merr != nil {
					continue
				}
				rt.InjectExternal(target, data)
			case _, ok := <-w.Errors():
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	var closeErr error
	return func() error {
		once.Do(func() {
			close(done)
			closeErr = w.Close()
		})
		return closeErr
	}, nil
}

// watchEventWire is the JSON-on-the-wire shape of an Event delivered as a
// Notify payload, kept separate from Event itself so Event stays free of
// marshal tags.
type watchEventWire struct {
	Path string `json:"path"`
	Op   uint32 `json:"op"`
	Unix int64  `json:"unix"`
}

func encodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(watchEventWire{Path: ev.Path, Op: uint32(ev.Op), Unix: ev.Time.UnixNano()})
}

// DecodeEvent recovers the Path and Op of an Event from a message
// delivered by WatchPathWithActor. The timestamp that encodeEvent writes
// is not decoded; the returned Event's Time is the zero time.
func DecodeEvent(data []byte) (Event, error) {
	var wire watchEventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Event{}, err
	}
	return Event{Path: wire.Path, Op: WatchOp(wire.Op)}, nil
}
