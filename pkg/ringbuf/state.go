package ringbuf

// StackSize is the fixed capacity of a StackState.
const StackSize = 4096

// cursor holds the positions shared by every storage strategy.
//
//	head: end of committed data, the boundary visible to the reader
//	tail: next byte to be read; head == tail means empty
//	wrtn: end of data written since the last commit, reached from head by
//	      moving forward; becomes head on commit, falls back to head on rollback
//	invalid: a write of the pending group failed; the next commit rolls back
type cursor struct {
	head, tail, wrtn int
	invalid          bool
}

// State is the closed set of backing stores an Engine can be bound to.
type State interface {
	*HeapState | *StackState
	cur() *cursor
	data() []byte
}

// HeapState is a ring state whose storage is allocated on the heap. Its
// capacity is always a power of two.
type HeapState struct {
	cursor
	buf []byte
}

func (s *HeapState) cur() *cursor  { return &s.cursor }
func (s *HeapState) data() []byte { return s.buf }

// Cap returns the storage length in bytes, zero when nothing is allocated.
func (s *HeapState) Cap() int { return len(s.buf) }

// Head returns the commit cursor.
func (s *HeapState) Head() int { return s.head }

// Tail returns the read cursor.
func (s *HeapState) Tail() int { return s.tail }

// Pending returns the provisional write cursor.
func (s *HeapState) Pending() int { return s.wrtn }

// Invalidated reports whether the pending write group will be rolled back.
func (s *HeapState) Invalidated() bool { return s.invalid }

// Bytes returns the storage itself, not a copy. It is meant for
// diagnostics and must not be modified.
func (s *HeapState) Bytes() []byte { return s.buf }

// CopyFrom makes s a duplicate of src: cursors, failure flag and storage
// bytes. It refuses, without touching s, when the capacities differ.
func (s *HeapState) CopyFrom(src *HeapState) error {
	if src == nil {
		return copyFailed(0, ErrInvalidArgument)
	}
	return CopyState(s, src)
}

// Snapshot returns a detached copy of s.
func (s *HeapState) Snapshot() Snapshot { return snapshotOf(s) }

// Restore loads a snapshot taken from a state of the same capacity.
func (s *HeapState) Restore(snap Snapshot) error { return restore(s, snap) }

// StackState is a ring state with fixed inline storage of StackSize bytes.
type StackState struct {
	cursor
	mem [StackSize]byte
}

func (s *StackState) cur() *cursor  { return &s.cursor }
func (s *StackState) data() []byte { return s.mem[:] }

// Cap returns StackSize.
func (s *StackState) Cap() int { return StackSize }

// Head returns the commit cursor.
func (s *StackState) Head() int { return s.head }

// Tail returns the read cursor.
func (s *StackState) Tail() int { return s.tail }

// Pending returns the provisional write cursor.
func (s *StackState) Pending() int { return s.wrtn }

// Invalidated reports whether the pending write group will be rolled back.
func (s *StackState) Invalidated() bool { return s.invalid }

// Bytes returns the inline storage. It must not be modified.
func (s *StackState) Bytes() []byte { return s.mem[:] }

// CopyFrom makes s a duplicate of src.
func (s *StackState) CopyFrom(src *StackState) error {
	if src == nil {
		return copyFailed(0, ErrInvalidArgument)
	}
	return CopyState(s, src)
}

// Snapshot returns a detached copy of s.
func (s *StackState) Snapshot() Snapshot { return snapshotOf(s) }

// Restore loads a snapshot taken from a state of the same capacity.
func (s *StackState) Restore(snap Snapshot) error { return restore(s, snap) }

// CopyState duplicates src into dst, which may use a different storage
// strategy. It returns ErrCapacityMismatch and leaves dst untouched when the
// capacities differ. Refused copies are reported to the default reporter
// with OpCopy, since states carry no reporter of their own.
//
// The caller must make sure neither state is being mutated concurrently.
func CopyState[D, S State](dst D, src S) error {
	var (
		zd D
		zs S
	)
	if dst == zd || src == zs {
		return copyFailed(0, ErrInvalidArgument)
	}
	db, sb := dst.data(), src.data()
	if len(db) != len(sb) {
		return copyFailed(len(sb), ErrCapacityMismatch)
	}
	*dst.cur() = *src.cur()
	copy(db, sb)
	return nil
}

func copyFailed(size int, err error) error {
	defaultReporter.Report(Failure{Op: OpCopy, Size: size, Err: err})
	return err
}

// Snapshot is a detached copy of a ring state, used for diagnostics.
type Snapshot struct {
	Capacity    int
	Head        int
	Tail        int
	Pending     int
	Invalidated bool
	Data        []byte
}

// Readable returns the number of committed bytes not yet read.
func (s Snapshot) Readable() int {
	return distance(s.Tail, s.Head, s.Capacity)
}

// Uncommitted returns the number of bytes written but not yet committed.
func (s Snapshot) Uncommitted() int {
	return distance(s.Head, s.Pending, s.Capacity)
}

func snapshotOf[S State](st S) Snapshot {
	c, buf := st.cur(), st.data()
	data := make([]byte, len(buf))
	copy(data, buf)
	return Snapshot{
		Capacity:    len(buf),
		Head:        c.head,
		Tail:        c.tail,
		Pending:     c.wrtn,
		Invalidated: c.invalid,
		Data:        data,
	}
}

func restore[S State](st S, snap Snapshot) error {
	buf := st.data()
	if snap.Capacity != len(buf) || len(snap.Data) != len(buf) {
		return ErrCapacityMismatch
	}
	for _, v := range [...]int{snap.Head, snap.Tail, snap.Pending} {
		if v < 0 || v >= len(buf) {
			return ErrInvalidArgument
		}
	}
	c := st.cur()
	c.head, c.tail, c.wrtn, c.invalid = snap.Head, snap.Tail, snap.Pending, snap.Invalidated
	copy(buf, snap.Data)
	return nil
}

// distance returns how far to is ahead of from on a ring of size n.
func distance(from, to, n int) int {
	if to >= from {
		return to - from
	}
	return n - from + to
}
