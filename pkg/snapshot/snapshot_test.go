package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/haivivi/rtring/pkg/kv"
	"github.com/haivivi/rtring/pkg/ringbuf"
	"github.com/haivivi/rtring/pkg/storage"
)

func newRing(t *testing.T, size uint32) *ringbuf.HeapBuffer {
	t.Helper()
	rb, err := ringbuf.NewHeap(size)
	if err != nil {
		t.Fatalf("NewHeap: %v", err)
	}
	rb.SetReporter(ringbuf.DiscardReporter)
	return rb
}

func capture(t *testing.T, ring string, rb *ringbuf.HeapBuffer) Record {
	t.Helper()
	snap, err := rb.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	r, err := Capture(ring, snap)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	return r
}

func TestEncodeDecode(t *testing.T) {
	rb := newRing(t, 32)
	rb.WriteInt32(7)
	rb.WriteInt16(1)
	rb.CommitWrite()
	rb.WriteInt8(3)

	r := capture(t, "synth", rb)
	if r.Readable() != 6 || r.Pending != 7 {
		t.Errorf("Readable() = %d, Pending = %d, want 6, 7", r.Readable(), r.Pending)
	}

	b, err := Encode(r)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != r.ID || got.Ring != r.Ring || got.Head != r.Head || got.Pending != r.Pending ||
		got.Checksum != r.Checksum || !bytes.Equal(got.Data, r.Data) || !got.TakenAt.Equal(r.TakenAt) {
		t.Errorf("Decode = %+v, want %+v", got, r)
	}
}

func TestDecodeDetectsCorruption(t *testing.T) {
	rb := newRing(t, 16)
	rb.WriteInt64(42)
	rb.CommitWrite()

	r := capture(t, "synth", rb)
	r.Data[0] ^= 1
	b, err := Encode(r)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(b); !errors.Is(err, ErrChecksum) {
		t.Errorf("Decode err = %v, want ErrChecksum", err)
	}

	r = capture(t, "synth", rb)
	r.Tail = 3
	if err := r.Verify(); !errors.Is(err, ErrChecksum) {
		t.Errorf("Verify after cursor change err = %v", err)
	}

	if _, err := Decode([]byte{0xc1}); err == nil {
		t.Error("Decode of garbage succeeded")
	}
}

func TestRestore(t *testing.T) {
	src := newRing(t, 64)
	src.WriteFloat64(1.5)
	src.CommitWrite()
	r := capture(t, "synth", src)

	dst := newRing(t, 16)
	if err := Restore(dst, r); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if dst.Cap() != 64 {
		t.Errorf("Cap() = %d, want 64", dst.Cap())
	}
	if got := dst.ReadFloat64(); got != 1.5 {
		t.Errorf("ReadFloat64() = %v, want 1.5", got)
	}

	r.Head = 99
	r.Checksum = r.sum()
	if err := Restore(dst, r); !errors.Is(err, ringbuf.ErrInvalidArgument) {
		t.Errorf("Restore out of range err = %v", err)
	}
}

func TestRestoreRejectsOddCapacityUntouched(t *testing.T) {
	dst := newRing(t, 16)
	dst.WriteInt32(7)
	dst.CommitWrite()

	r := Record{ID: "odd", Ring: "synth", Capacity: 24, Data: make([]byte, 24)}
	r.Checksum = r.sum()
	if err := r.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := Restore(dst, r); !errors.Is(err, ringbuf.ErrInvalidArgument) {
		t.Fatalf("Restore err = %v, want ErrInvalidArgument", err)
	}
	if dst.Cap() != 16 {
		t.Errorf("Cap() = %d, want 16", dst.Cap())
	}
	if got := dst.ReadInt32(); got != 7 {
		t.Errorf("ReadInt32() = %d, want 7", got)
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	archive, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	s := NewStore(kv.NewMemory(), archive)

	rb := newRing(t, 16)
	var ids []string
	for i := range 3 {
		rb.WriteInt8(int8(i))
		rb.CommitWrite()
		r := capture(t, "synth", rb)
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save: %v", err)
		}
		ids = append(ids, r.ID)
		time.Sleep(2 * time.Millisecond)
	}
	other := capture(t, "drum", rb)
	if err := s.Save(ctx, other); err != nil {
		t.Fatalf("Save: %v", err)
	}

	infos, err := s.List(ctx, "synth")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("List(synth) = %d records, want 3", len(infos))
	}
	for i, info := range infos {
		if info.ID != ids[i] {
			t.Errorf("List #%d = %s, want %s", i, info.ID, ids[i])
		}
		if info.Readable != i+1 {
			t.Errorf("List #%d Readable = %d, want %d", i, info.Readable, i+1)
		}
	}
	if all, _ := s.List(ctx, ""); len(all) != 4 {
		t.Errorf("List(all) = %d records, want 4", len(all))
	}

	latest, err := s.Latest(ctx, "synth")
	if err != nil || latest.ID != ids[2] {
		t.Errorf("Latest = %s, %v, want %s", latest.ID, err, ids[2])
	}

	name, err := s.Export(ctx, "synth", ids[0])
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if name != "synth/"+ids[0]+".msgpack" {
		t.Errorf("Export name = %s", name)
	}

	n, err := s.Prune(ctx, "synth", 1)
	if err != nil || n != 2 {
		t.Fatalf("Prune = %d, %v, want 2", n, err)
	}
	if _, err := s.Get(ctx, "synth", ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get pruned err = %v, want ErrNotFound", err)
	}

	imported, err := s.Import(ctx, name)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if imported.ID != ids[0] {
		t.Errorf("Import ID = %s, want %s", imported.ID, ids[0])
	}
	if _, err := s.Get(ctx, "synth", ids[0]); err != nil {
		t.Errorf("Get after Import: %v", err)
	}

	if _, err := s.Import(ctx, "synth/missing.msgpack"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Import missing err = %v", err)
	}
	if _, err := s.Latest(ctx, "none"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest(none) err = %v", err)
	}
}

func TestStoreWithoutArchive(t *testing.T) {
	s := NewStore(kv.NewMemory(), nil)
	if _, err := s.Export(context.Background(), "synth", "x"); err == nil {
		t.Error("Export without archive succeeded")
	}
}
