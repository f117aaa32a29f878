package ringbuf

import (
	"errors"
	"fmt"
)

// Sentinel errors. They are plain values so that returning them on the hot
// path never allocates.
var (
	// ErrUnbound is returned when the engine has no backing state, e.g. a
	// HeapBuffer before CreateBuffer or after DeleteBuffer.
	ErrUnbound = errors.New("ringbuf: no buffer bound")

	// ErrInvalidArgument is returned for empty data or a size that is not
	// strictly smaller than the capacity.
	ErrInvalidArgument = errors.New("ringbuf: invalid argument")

	// ErrInsufficientSpace is returned when a write does not fit in front of
	// the unread data. The pending group is marked for rollback.
	ErrInsufficientSpace = errors.New("ringbuf: not enough space")

	// ErrEmpty is returned when reading from a buffer with no committed data.
	// It matches ErrInsufficientData with errors.Is.
	ErrEmpty = fmt.Errorf("ringbuf: empty: %w", ErrInsufficientData)

	// ErrInsufficientData is returned when fewer committed bytes are
	// available than requested.
	ErrInsufficientData = errors.New("ringbuf: not enough data")

	// ErrRolledBack is returned by CommitWrite when a write in the pending
	// group failed and the group was discarded.
	ErrRolledBack = errors.New("ringbuf: commit rolled back")

	// ErrNothingToCommit is returned by CommitWrite when no bytes were
	// written since the last commit.
	ErrNothingToCommit = errors.New("ringbuf: nothing to commit")

	// ErrCapacityMismatch is returned when copying between states of
	// different capacity.
	ErrCapacityMismatch = errors.New("ringbuf: capacity mismatch")

	// ErrNotPlain is returned by the custom type helpers when the type
	// contains pointers, strings, slices, maps, channels, funcs or interfaces.
	ErrNotPlain = errors.New("ringbuf: type is not plain data")
)
