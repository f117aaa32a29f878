package kv_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/haivivi/rtring/pkg/kv"
)

var backends = []struct {
	name string
	open func(t *testing.T) kv.Store
}{
	{"memory", func(t *testing.T) kv.Store {
		s := kv.NewMemory()
		t.Cleanup(func() { s.Close() })
		return s
	}},
	{"badger", func(t *testing.T) kv.Store {
		s, err := kv.NewBadger(kv.BadgerOptions{InMemory: true})
		if err != nil {
			t.Fatalf("NewBadger: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	}},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s kv.Store)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) { fn(t, b.open(t)) })
	}
}

func scanKeys(t *testing.T, s kv.Store, prefix kv.Key) []string {
	t.Helper()
	var keys []string
	for e, err := range s.Scan(context.Background(), prefix) {
		if err != nil {
			t.Fatalf("Scan(%v): %v", prefix, err)
		}
		keys = append(keys, e.Key.String()+"="+string(e.Value))
	}
	return keys
}

func TestGetPutDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		key := kv.Key{"snapshot", "synth", "1"}

		if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("Get missing err = %v, want ErrNotFound", err)
		}
		if err := s.Put(ctx, key, []byte("a")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := s.Put(ctx, key, []byte("b")); err != nil {
			t.Fatalf("Put again: %v", err)
		}
		got, err := s.Get(ctx, key)
		if err != nil || string(got) != "b" {
			t.Fatalf("Get = %q, %v, want b", got, err)
		}
		if err := s.Delete(ctx, key); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(ctx, key); !errors.Is(err, kv.ErrNotFound) {
			t.Errorf("Get after Delete err = %v", err)
		}
		if err := s.Delete(ctx, key); err != nil {
			t.Errorf("Delete missing: %v", err)
		}
	})
}

func TestScan(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		for _, k := range []kv.Key{
			{"snapshot", "b", "2"},
			{"snapshot", "a", "1"},
			{"snapshot", "ab", "3"},
			{"snapshot", "a", "0"},
			{"other", "x"},
		} {
			if err := s.Put(ctx, k, []byte(k[len(k)-1])); err != nil {
				t.Fatalf("Put(%v): %v", k, err)
			}
		}

		got := scanKeys(t, s, kv.Key{"snapshot", "a"})
		want := []string{"snapshot/a/0=0", "snapshot/a/1=1"}
		if !slices.Equal(got, want) {
			t.Errorf("Scan(snapshot/a) = %v, want %v", got, want)
		}
		if got := scanKeys(t, s, kv.Key{"snapshot"}); len(got) != 4 {
			t.Errorf("Scan(snapshot) = %v, want 4 entries", got)
		}
		if got := scanKeys(t, s, nil); len(got) != 5 {
			t.Errorf("Scan(nil) = %v, want 5 entries", got)
		}
	})
}

func TestScanStopsEarly(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		for _, id := range []string{"1", "2", "3"} {
			s.Put(ctx, kv.Key{"p", id}, nil)
		}
		n := 0
		for _, err := range s.Scan(ctx, kv.Key{"p"}) {
			if err != nil {
				t.Fatalf("Scan: %v", err)
			}
			n++
			if n == 2 {
				break
			}
		}
		if n != 2 {
			t.Errorf("visited %d entries, want 2", n)
		}
	})
}

func TestDeleteAll(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		for _, id := range []string{"1", "2", "3"} {
			s.Put(ctx, kv.Key{"p", id}, []byte(id))
		}
		if err := s.DeleteAll(ctx, []kv.Key{{"p", "1"}, {"p", "3"}, {"p", "9"}}); err != nil {
			t.Fatalf("DeleteAll: %v", err)
		}
		if got := scanKeys(t, s, kv.Key{"p"}); !slices.Equal(got, []string{"p/2=2"}) {
			t.Errorf("left %v, want [p/2=2]", got)
		}
	})
}

func TestInvalidKey(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s kv.Store) {
		ctx := context.Background()
		for _, k := range []kv.Key{nil, {"a", ""}, {"a/b"}} {
			if err := s.Put(ctx, k, nil); !errors.Is(err, kv.ErrInvalidKey) {
				t.Errorf("Put(%q) err = %v, want ErrInvalidKey", []string(k), err)
			}
			if _, err := s.Get(ctx, k); !errors.Is(err, kv.ErrInvalidKey) {
				t.Errorf("Get(%q) err = %v, want ErrInvalidKey", []string(k), err)
			}
		}
		for _, err := range s.Scan(ctx, kv.Key{"bad/prefix"}) {
			if !errors.Is(err, kv.ErrInvalidKey) {
				t.Errorf("Scan err = %v, want ErrInvalidKey", err)
			}
		}
	})
}

func TestMemoryValueIsolation(t *testing.T) {
	ctx := context.Background()
	s := kv.NewMemory()

	v := []byte("orig")
	s.Put(ctx, kv.Key{"k"}, v)
	v[0] = 'X'

	got, _ := s.Get(ctx, kv.Key{"k"})
	if string(got) != "orig" {
		t.Fatalf("stored value changed to %q", got)
	}
	got[0] = 'Y'
	if again, _ := s.Get(ctx, kv.Key{"k"}); string(again) != "orig" {
		t.Errorf("returned slice aliases the store: %q", again)
	}
}

func TestBadgerOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	if err := s.Put(ctx, kv.Key{"k"}, []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, kv.Key{"k"})
	if err != nil || string(got) != "v" {
		t.Errorf("Get after reopen = %q, %v", got, err)
	}

	if _, err := kv.NewBadger(kv.BadgerOptions{}); err == nil {
		t.Error("NewBadger without dir succeeded")
	}
}
