// Package snapshot captures ring buffer state for offline inspection.
//
// A Record is a ringbuf.Snapshot plus an id, the ring's name, a capture time
// and an xxhash checksum. Records are msgpack encoded; a Store indexes them
// in a kv.Store and exports them to a storage.Archive.
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/rtring/pkg/ringbuf"
)

// ErrChecksum is returned when a record's content does not match its
// checksum.
var ErrChecksum = errors.New("snapshot: checksum mismatch")

// Record is a captured ring state.
type Record struct {
	ID      string    `msgpack:"id"`
	Ring    string    `msgpack:"ring"`
	TakenAt time.Time `msgpack:"taken_at"`

	Capacity    int    `msgpack:"capacity"`
	Head        int    `msgpack:"head"`
	Tail        int    `msgpack:"tail"`
	Pending     int    `msgpack:"pending"`
	Invalidated bool   `msgpack:"invalidated"`
	Checksum    uint64 `msgpack:"checksum"`
	Data        []byte `msgpack:"data"`
}

// Capture turns snap into a Record for the named ring. IDs are UUIDv7, so
// they sort by capture time.
func Capture(ring string, snap ringbuf.Snapshot) (Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Record{}, fmt.Errorf("snapshot: new id: %w", err)
	}
	r := Record{
		ID:          id.String(),
		Ring:        ring,
		TakenAt:     time.Now().UTC(),
		Capacity:    snap.Capacity,
		Head:        snap.Head,
		Tail:        snap.Tail,
		Pending:     snap.Pending,
		Invalidated: snap.Invalidated,
		Data:        snap.Data,
	}
	r.Checksum = r.sum()
	return r, nil
}

// sum hashes the cursors and the storage.
func (r *Record) sum() uint64 {
	var hdr [33]byte
	binary.LittleEndian.PutUint64(hdr[0:], uint64(r.Capacity))
	binary.LittleEndian.PutUint64(hdr[8:], uint64(r.Head))
	binary.LittleEndian.PutUint64(hdr[16:], uint64(r.Tail))
	binary.LittleEndian.PutUint64(hdr[24:], uint64(r.Pending))
	if r.Invalidated {
		hdr[32] = 1
	}
	d := xxhash.New()
	d.Write(hdr[:])
	d.Write(r.Data)
	return d.Sum64()
}

// Verify checks the checksum and that the cursors fit the capacity.
func (r *Record) Verify() error {
	if r.sum() != r.Checksum {
		return ErrChecksum
	}
	if r.Capacity != len(r.Data) {
		return fmt.Errorf("snapshot: %s: capacity %d but %d data bytes", r.ID, r.Capacity, len(r.Data))
	}
	return nil
}

// Snapshot converts r back to a ringbuf.Snapshot.
func (r *Record) Snapshot() ringbuf.Snapshot {
	return ringbuf.Snapshot{
		Capacity:    r.Capacity,
		Head:        r.Head,
		Tail:        r.Tail,
		Pending:     r.Pending,
		Invalidated: r.Invalidated,
		Data:        r.Data,
	}
}

// Readable returns the committed bytes not yet read at capture time.
func (r *Record) Readable() int {
	s := r.Snapshot()
	return s.Readable()
}

// Encode returns the msgpack encoding of r.
func Encode(r Record) ([]byte, error) {
	b, err := msgpack.Marshal(&r)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return b, nil
}

// Decode parses and verifies an encoded record.
func Decode(b []byte) (Record, error) {
	var r Record
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("snapshot: decode: %w", err)
	}
	if err := r.Verify(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Restore loads r into rb, recreating rb's storage when its capacity
// differs. A record that no HeapBuffer could hold is refused before rb is
// touched.
func Restore(rb *ringbuf.HeapBuffer, r Record) error {
	if err := r.Verify(); err != nil {
		return err
	}
	if err := r.checkLayout(); err != nil {
		return fmt.Errorf("snapshot: restore %s: %w", r.ID, err)
	}
	if rb.Cap() != r.Capacity {
		if err := rb.CreateBuffer(uint32(r.Capacity)); err != nil {
			return fmt.Errorf("snapshot: create buffer: %w", err)
		}
	}
	if err := rb.State().Restore(r.Snapshot()); err != nil {
		return fmt.Errorf("snapshot: restore %s: %w", r.ID, err)
	}
	return nil
}

// checkLayout reports whether r fits a HeapBuffer: a power of two capacity
// and cursors inside it.
func (r *Record) checkLayout() error {
	n := r.Capacity
	if n <= 0 || uint64(n) > 1<<31 || n&(n-1) != 0 {
		return fmt.Errorf("capacity %d is not a power of two: %w", n, ringbuf.ErrInvalidArgument)
	}
	for _, v := range [...]int{r.Head, r.Tail, r.Pending} {
		if v < 0 || v >= n {
			return fmt.Errorf("cursor %d out of range: %w", v, ringbuf.ErrInvalidArgument)
		}
	}
	return nil
}
