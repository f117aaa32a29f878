package pump

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/haivivi/rtring/pkg/ringbuf"
	"github.com/haivivi/rtring/pkg/rtevent"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newBridge(t *testing.T, size uint32) (*Bridge[*ringbuf.HeapState], *ringbuf.HeapBuffer) {
	t.Helper()
	rb, err := ringbuf.NewHeap(size)
	if err != nil {
		t.Fatalf("NewHeap: %v", err)
	}
	rb.SetReporter(ringbuf.DiscardReporter)
	return NewBridge(&rb.Engine, nil), rb
}

func params(from, n int) []rtevent.Event {
	evs := make([]rtevent.Event, n)
	for i := range evs {
		evs[i] = rtevent.Parameter(0, int32(from+i), 0)
	}
	return evs
}

func TestPushDrain(t *testing.T) {
	b, _ := newBridge(t, 256)

	n, err := b.Push(params(0, 3))
	if n != 3 || err != nil {
		t.Fatalf("Push = %d, %v, want 3, nil", n, err)
	}

	var got []int32
	n, err = b.Drain(func(ev rtevent.Event) error {
		got = append(got, ev.Index)
		return nil
	})
	if n != 3 || err != nil {
		t.Fatalf("Drain = %d, %v, want 3, nil", n, err)
	}
	for i, idx := range got {
		if idx != int32(i) {
			t.Errorf("event #%d Index = %d", i, idx)
		}
	}
}

func TestPushBusy(t *testing.T) {
	b, rb := newBridge(t, 256)

	b.mu.Lock()
	n, err := b.Push(params(0, 1))
	b.mu.Unlock()

	if n != 0 || !errors.Is(err, ErrBusy) {
		t.Errorf("Push while held = %d, %v, want 0, ErrBusy", n, err)
	}
	if rb.IsDataAvailableForReading() {
		t.Error("busy push wrote to the ring")
	}
}

func TestPushStopsWhenFull(t *testing.T) {
	b, _ := newBridge(t, 32)

	n, err := b.Push(params(0, 3))
	if n != 2 || !errors.Is(err, ringbuf.ErrInsufficientSpace) {
		t.Errorf("Push = %d, %v, want 2, ErrInsufficientSpace", n, err)
	}
	if st := b.Status(); st.Readable != 26 || st.Capacity != 32 {
		t.Errorf("Status() = %+v", st)
	}
}

func TestPushTooLarge(t *testing.T) {
	b, rb := newBridge(t, 16)

	// A transport event takes 22 bytes and can never fit.
	n, err := b.Push([]rtevent.Event{rtevent.TransportUpdate(0, true, 0, 120), rtevent.Program(0, 1)})
	if n != 0 || !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Push = %d, %v, want 0, ErrTooLarge", n, err)
	}
	if rb.IsDataAvailableForReading() || rb.State().Pending() != rb.State().Head() {
		t.Error("oversized event left bytes in the ring")
	}
}

func TestDrainSinkError(t *testing.T) {
	b, _ := newBridge(t, 256)
	b.Push(params(0, 3))

	stop := errors.New("stop")
	n, err := b.Drain(func(rtevent.Event) error { return stop })
	if n != 1 || !errors.Is(err, stop) {
		t.Errorf("Drain = %d, %v, want 1, stop", n, err)
	}
	if st := b.Status(); st.Readable != 26 {
		t.Errorf("Readable = %d, want 26 left", st.Readable)
	}
}

func TestDrainCorruptClears(t *testing.T) {
	b, rb := newBridge(t, 64)
	rb.WriteInt8(42)
	rb.WriteInt32(0)
	rb.CommitWrite()

	_, err := b.Drain(func(rtevent.Event) error { return nil })
	if !errors.Is(err, rtevent.ErrCorrupt) {
		t.Fatalf("Drain err = %v, want ErrCorrupt", err)
	}
	if rb.IsDataAvailableForReading() {
		t.Error("ring not cleared after corrupt data")
	}
}

func TestRunDeliversInOrder(t *testing.T) {
	b, _ := newBridge(t, 64)

	var got []int32
	res, err := Run(context.Background(), b, Config{
		Period: 100 * time.Microsecond,
		Cycles: 50,
		Source: func(cycle int) []rtevent.Event { return params(cycle*2, 2) },
	}, func(ev rtevent.Event) error {
		got = append(got, ev.Index)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Cycles != 50 {
		t.Errorf("Cycles = %d, want 50", res.Cycles)
	}
	if res.Pushed == 0 || res.Pushed > 100 {
		t.Errorf("Pushed = %d", res.Pushed)
	}
	if res.Drained != res.Pushed || len(got) != res.Pushed {
		t.Errorf("Drained = %d, sink saw %d, Pushed = %d", res.Drained, len(got), res.Pushed)
	}
	if res.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", res.Dropped)
	}
	for i, idx := range got {
		if idx != int32(i) {
			t.Fatalf("event #%d Index = %d, want %d", i, idx, i)
		}
	}
}

func TestRunMaxPending(t *testing.T) {
	b, _ := newBridge(t, 1024)

	res, err := Run(context.Background(), b, Config{
		Cycles:     1,
		MaxPending: 4,
		Source:     func(int) []rtevent.Event { return params(0, 10) },
	}, func(rtevent.Event) error { return nil })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Pushed != 4 || res.Dropped != 6 || res.Drained != 4 {
		t.Errorf("Run = %+v, want 4 pushed, 6 dropped, 4 drained", res)
	}
}

func TestRunDropsInvalidEvents(t *testing.T) {
	b, _ := newBridge(t, 1024)

	res, err := Run(context.Background(), b, Config{
		Cycles: 1,
		Source: func(int) []rtevent.Event {
			return []rtevent.Event{
				rtevent.Program(0, 1),
				{Kind: 0},
				rtevent.Program(0, 2),
			}
		},
	}, func(rtevent.Event) error { return nil })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Pushed != 2 || res.Dropped != 1 || res.Deferred != 0 {
		t.Errorf("Run = %+v, want 2 pushed, 1 dropped", res)
	}
}

func TestRunDropsOversizedEvents(t *testing.T) {
	b, _ := newBridge(t, 16)

	var got []rtevent.Event
	res, err := Run(context.Background(), b, Config{
		Cycles: 5,
		Source: func(cycle int) []rtevent.Event {
			if cycle != 0 {
				return nil
			}
			return []rtevent.Event{
				rtevent.TransportUpdate(0, true, 0, 120),
				rtevent.Program(0, 1),
			}
		},
	}, func(ev rtevent.Event) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Pushed != 1 || res.Dropped != 1 || res.Deferred != 0 || res.Drained != 1 {
		t.Errorf("Run = %+v, want 1 pushed, 1 dropped, 1 drained", res)
	}
	if len(got) != 1 || got[0] != rtevent.Program(0, 1) {
		t.Errorf("sink got %+v, want the program event", got)
	}
}

func TestRunSinkErrorStops(t *testing.T) {
	b, _ := newBridge(t, 256)

	stop := errors.New("stop")
	_, err := Run(context.Background(), b, Config{
		Period: 100 * time.Microsecond,
		Source: func(cycle int) []rtevent.Event { return params(cycle, 1) },
	}, func(rtevent.Event) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("Run err = %v, want stop", err)
	}
}

func TestRunCancel(t *testing.T) {
	b, _ := newBridge(t, 256)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	drained := 0
	res, err := Run(ctx, b, Config{
		Source: func(cycle int) []rtevent.Event { return params(cycle, 1) },
	}, func(rtevent.Event) error {
		drained++
		return nil
	})
	if err != nil {
		t.Fatalf("Run err = %v, want nil on cancel", err)
	}
	if res.Cycles == 0 {
		t.Error("no cycles ran")
	}
	if drained != res.Pushed {
		t.Errorf("drained %d of %d pushed", drained, res.Pushed)
	}
}
