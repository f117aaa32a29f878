package ringbuf

import (
	"math"
	"math/bits"
)

// HeapBuffer is a ring buffer whose storage is allocated by CreateBuffer.
// The zero value is ready to use and unbound until CreateBuffer is called.
//
// A HeapBuffer must not be copied after first use.
type HeapBuffer struct {
	_ noCopy

	Engine[*HeapState]
	state HeapState
}

// NewHeap returns a HeapBuffer with storage for at least size bytes.
func NewHeap(size uint32) (*HeapBuffer, error) {
	b := new(HeapBuffer)
	if err := b.CreateBuffer(size); err != nil {
		return nil, err
	}
	return b, nil
}

// CreateBuffer allocates storage of size rounded up to the next power of
// two, binds the engine to it and clears it. Storage from a previous call is
// released first.
func (b *HeapBuffer) CreateBuffer(size uint32) error {
	if size == 0 || size > math.MaxUint32/2+1 {
		return b.fail(OpCreate, int(size), ErrInvalidArgument)
	}
	b.unbind()
	b.state = HeapState{buf: make([]byte, nextPowerOfTwo(size))}
	b.bind(&b.state, true)
	return nil
}

// DeleteBuffer unbinds the engine and releases the storage. It returns
// ErrUnbound when no buffer exists.
func (b *HeapBuffer) DeleteBuffer() error {
	if b.state.buf == nil {
		return b.fail(OpDelete, 0, ErrUnbound)
	}
	b.unbind()
	b.state = HeapState{}
	return nil
}

// State returns the backing state for diagnostics and CopyFrom.
func (b *HeapBuffer) State() *HeapState {
	return &b.state
}

// nextPowerOfTwo returns the smallest power of two >= n, for 0 < n <= 1<<31.
func nextPowerOfTwo(n uint32) int {
	return 1 << bits.Len32(n-1)
}
