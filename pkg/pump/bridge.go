// Package pump moves control events from a real-time producer to a worker
// through a ring buffer.
//
// The ring itself has no synchronisation. Bridge adds the one lock both
// sides need: the producer only ever tries it, so a producer cycle never
// blocks on the worker; when the worker holds it the cycle's events are
// deferred to the next cycle.
package pump

import (
	"errors"
	"sync"

	"github.com/haivivi/rtring/pkg/ringbuf"
	"github.com/haivivi/rtring/pkg/ringstats"
	"github.com/haivivi/rtring/pkg/rtevent"
)

var (
	// ErrBusy is returned by Push when the worker holds the ring.
	ErrBusy = errors.New("pump: ring busy")

	// ErrTooLarge is returned by Push for an event that cannot fit the
	// ring even when it is empty.
	ErrTooLarge = errors.New("pump: event larger than the ring")
)

// Bridge guards a ring shared by one producer and one consumer.
type Bridge[S ringbuf.State] struct {
	mu    sync.Mutex
	ring  *ringbuf.Engine[S]
	stats *ringstats.Stats
}

// NewBridge returns a Bridge over ring. stats may be nil.
func NewBridge[S ringbuf.State](ring *ringbuf.Engine[S], stats *ringstats.Stats) *Bridge[S] {
	return &Bridge[S]{ring: ring, stats: stats}
}

// Push commits events in order, one commit group each, and returns how many
// were committed. It stops at the first event that fails and returns its
// error; ErrBusy means nothing was attempted. An event of Cap() bytes or
// more is refused with ErrTooLarge before anything is written.
//
// Push never blocks.
func (b *Bridge[S]) Push(events []rtevent.Event) (int, error) {
	if !b.mu.TryLock() {
		if b.stats != nil {
			b.stats.Busy()
		}
		return 0, ErrBusy
	}
	defer b.mu.Unlock()

	n := 0
	var err error
	for i := range events {
		if events[i].Size() >= b.ring.Cap() {
			err = ErrTooLarge
			break
		}
		if err = rtevent.Put(b.ring, events[i]); err != nil {
			break
		}
		n++
	}
	if b.stats != nil && n > 0 {
		b.stats.Pushed(n)
	}
	return n, err
}

// Drain reads every committed event and passes it to fn, holding the ring
// for the duration. It stops at the first error from fn or from decoding.
func (b *Bridge[S]) Drain(fn func(rtevent.Event) error) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	defer func() {
		if b.stats != nil && n > 0 {
			b.stats.Drained(n)
		}
	}()
	var ev rtevent.Event
	for {
		ok, err := rtevent.Next(b.ring, &ev)
		if err != nil {
			// The rest of the ring cannot be framed any more.
			b.ring.Clear()
			return n, err
		}
		if !ok {
			return n, nil
		}
		n++
		if err := fn(ev); err != nil {
			return n, err
		}
	}
}

// Snapshot returns a copy of the ring state.
func (b *Bridge[S]) Snapshot() (ringbuf.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ring.Snapshot()
}

// Status is a point-in-time summary of the ring.
type Status struct {
	Capacity int `json:"capacity"`
	Readable int `json:"readable"`
	Writable int `json:"writable"`
}

// Status returns the current fill level of the ring.
func (b *Bridge[S]) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Capacity: b.ring.Cap(),
		Readable: b.ring.Readable(),
		Writable: b.ring.Writable(),
	}
}
