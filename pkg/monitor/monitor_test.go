package monitor

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/haivivi/rtring/pkg/pump"
	"github.com/haivivi/rtring/pkg/ringbuf"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct{ readable atomic.Int64 }

func (f *fakeSource) Status() pump.Status {
	return pump.Status{Capacity: 64, Readable: int(f.readable.Add(1)), Writable: 10}
}

func serve(t *testing.T, src Source) string {
	t.Helper()
	srv := httptest.NewServer(NewHandler("synth", src, time.Millisecond))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWatch(t *testing.T) {
	url := serve(t, new(fakeSource))

	var got []Sample
	err := Watch(context.Background(), url, func(s Sample) error {
		got = append(got, s)
		if len(got) == 3 {
			return ErrStop
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d samples, want 3", len(got))
	}
	for i, s := range got {
		if s.Ring != "synth" || s.Capacity != 64 || s.Writable != 10 {
			t.Errorf("sample #%d = %+v", i, s)
		}
		if s.Readable != i+1 {
			t.Errorf("sample #%d Readable = %d, want %d", i, s.Readable, i+1)
		}
	}
}

func TestWatchCancel(t *testing.T) {
	url := serve(t, new(fakeSource))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n := 0
	err := Watch(ctx, url, func(Sample) error {
		n++
		if n == 2 {
			cancel()
		}
		return nil
	})
	if err != nil {
		t.Errorf("Watch after cancel = %v, want nil", err)
	}
	if n < 2 {
		t.Errorf("saw %d samples", n)
	}
}

func TestWatchBridge(t *testing.T) {
	rb, err := ringbuf.NewHeap(128)
	if err != nil {
		t.Fatalf("NewHeap: %v", err)
	}
	rb.WriteInt32(1)
	rb.CommitWrite()
	url := serve(t, pump.NewBridge(&rb.Engine, nil))

	var s Sample
	err = Watch(context.Background(), url, func(got Sample) error {
		s = got
		return ErrStop
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if s.Capacity != 128 || s.Readable != 4 || s.Writable != 123 {
		t.Errorf("sample = %+v, want 128/4/123", s)
	}
}

func TestWatchDialError(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	if err := Watch(context.Background(), url, func(Sample) error { return nil }); err == nil {
		t.Error("Watch to closed server succeeded")
	}
}
