// Package ringbuf provides a fixed-capacity byte ring buffer for handing
// variable-length binary records from a real-time producer to a worker (or
// the other way around) without allocating, locking or blocking on the hot
// path.
//
// Two storage strategies are available:
//
//   - HeapBuffer: storage is allocated by CreateBuffer and rounded up to the
//     next power of two.
//   - StackBuffer: a fixed 4096-byte region embedded in the value itself.
//
// Both bind an Engine, which implements the cursor arithmetic, the typed
// read/write helpers and the write transaction:
//
//	var rb ringbuf.StackBuffer
//	rb.Init()
//
//	// producer
//	rb.WriteInt32(42)
//	rb.WriteFloat32(0.5)
//	if err := rb.CommitWrite(); err != nil {
//	    // nothing of the group became visible
//	}
//
//	// consumer
//	for rb.IsDataAvailableForReading() {
//	    id := rb.ReadInt32()
//	    v := rb.ReadFloat32()
//	    _, _ = id, v
//	}
//
// Writes land behind a provisional cursor and only become visible to the
// reader when CommitWrite succeeds. If any write of the group failed,
// CommitWrite rolls the whole group back instead.
//
// No length or type tags are stored. The reader must issue reads in exactly
// the order and widths the writer used for each commit group. Scalars are
// encoded little-endian; bool takes one byte.
//
// The engine performs plain loads and stores of its cursors. It supports one
// producer and one consumer, and the caller must establish a happens-before
// edge (a mutex, a channel hand-off, or strict alternation) between the two
// sides. See package pump for an example.
package ringbuf
