package ringbuf

// Engine implements the ring buffer algorithms on top of a bound State. The
// zero value is unbound: every operation fails with ErrUnbound and the
// queries report false.
//
// An Engine is normally embedded in HeapBuffer or StackBuffer, which own the
// state it points to.
type Engine[S State] struct {
	st    S
	bound bool
	rep   Reporter
}

// bind points the engine at st, clearing it when reset is set.
func (e *Engine[S]) bind(st S, reset bool) {
	e.st = st
	e.bound = true
	if reset {
		e.Clear()
	}
}

func (e *Engine[S]) unbind() {
	var zero S
	e.st = zero
	e.bound = false
}

// SetReporter sets the failure sink. A nil reporter restores the default,
// which logs through slog.Default().
func (e *Engine[S]) SetReporter(r Reporter) {
	e.rep = r
}

func (e *Engine[S]) fail(op Op, size int, err error) error {
	r := e.rep
	if r == nil {
		r = defaultReporter
	}
	r.Report(Failure{Op: op, Size: size, Err: err})
	return err
}

// Clear resets all cursors, drops the failure flag and zero fills storage.
func (e *Engine[S]) Clear() error {
	if !e.bound {
		return e.fail(OpClear, 0, ErrUnbound)
	}
	*e.st.cur() = cursor{}
	clear(e.st.data())
	return nil
}

// IsEmpty reports whether there is no committed data to read. It returns
// false when unbound.
func (e *Engine[S]) IsEmpty() bool {
	if !e.bound {
		return false
	}
	c := e.st.cur()
	return c.head == c.tail
}

// IsDataAvailableForReading reports whether committed data is waiting to be
// read. It returns false when unbound.
func (e *Engine[S]) IsDataAvailableForReading() bool {
	if !e.bound {
		return false
	}
	c := e.st.cur()
	return c.head != c.tail
}

// Cap returns the capacity of the bound state, zero when unbound.
func (e *Engine[S]) Cap() int {
	if !e.bound {
		return 0
	}
	return len(e.st.data())
}

// Readable returns the number of committed bytes not yet read.
func (e *Engine[S]) Readable() int {
	if !e.bound {
		return 0
	}
	c := e.st.cur()
	return distance(c.tail, c.head, len(e.st.data()))
}

// Writable returns the largest single write that would currently succeed.
// It accounts for bytes already pending in the current group.
func (e *Engine[S]) Writable() int {
	if !e.bound {
		return 0
	}
	c, n := e.st.cur(), len(e.st.data())
	free := c.tail - c.wrtn
	if c.tail <= c.wrtn {
		free += n
	}
	return max(free-1, 0)
}

// Snapshot returns a detached copy of the bound state.
func (e *Engine[S]) Snapshot() (Snapshot, error) {
	if !e.bound {
		return Snapshot{}, ErrUnbound
	}
	return snapshotOf(e.st), nil
}

// CommitWrite publishes every byte written since the last commit.
//
// If a write of the group failed, the group is discarded, the failure flag
// is cleared and ErrRolledBack is returned. Committing with nothing pending
// returns ErrNothingToCommit.
func (e *Engine[S]) CommitWrite() error {
	if !e.bound {
		return e.fail(OpCommit, 0, ErrUnbound)
	}
	c := e.st.cur()
	if c.invalid {
		dropped := distance(c.head, c.wrtn, len(e.st.data()))
		c.wrtn = c.head
		c.invalid = false
		return e.fail(OpCommit, dropped, ErrRolledBack)
	}
	if c.head == c.wrtn {
		return e.fail(OpCommit, 0, ErrNothingToCommit)
	}
	c.head = c.wrtn
	return nil
}

// Rollback discards the pending group without publishing it and clears the
// failure flag. It is a no-op when unbound or when nothing is pending.
func (e *Engine[S]) Rollback() {
	if !e.bound {
		return
	}
	c := e.st.cur()
	c.wrtn = c.head
	c.invalid = false
}

// TryWrite appends p to the pending group.
//
// Free space is measured from the pending cursor up to the oldest unread
// byte, so a producer never overwrites data the consumer has not read, even
// in the middle of a group. When p does not fit the group is marked for
// rollback and ErrInsufficientSpace is returned; nothing is copied.
func (e *Engine[S]) TryWrite(p []byte) error {
	if !e.bound {
		return e.fail(OpWrite, len(p), ErrUnbound)
	}
	buf := e.st.data()
	size := len(p)
	if size == 0 || size >= len(buf) {
		return e.fail(OpWrite, size, ErrInvalidArgument)
	}

	c := e.st.cur()
	free := c.tail - c.wrtn
	if c.tail <= c.wrtn {
		free += len(buf)
	}
	if size >= free {
		c.invalid = true
		return e.fail(OpWrite, size, ErrInsufficientSpace)
	}

	if n := copy(buf[c.wrtn:], p); n < size {
		copy(buf, p[n:])
	}
	c.wrtn += size
	if c.wrtn >= len(buf) {
		c.wrtn -= len(buf)
	}
	return nil
}

// TryRead fills p with the next len(p) committed bytes. On failure the read
// cursor does not move and p is left as is.
func (e *Engine[S]) TryRead(p []byte) error {
	if !e.bound {
		return e.fail(OpRead, len(p), ErrUnbound)
	}
	buf := e.st.data()
	size := len(p)
	if size == 0 || size >= len(buf) {
		return e.fail(OpRead, size, ErrInvalidArgument)
	}

	c := e.st.cur()
	if c.head == c.tail {
		return e.fail(OpRead, size, ErrEmpty)
	}
	if size > distance(c.tail, c.head, len(buf)) {
		return e.fail(OpRead, size, ErrInsufficientData)
	}

	if n := copy(p, buf[c.tail:]); n < size {
		copy(p[n:], buf)
	}
	c.tail += size
	if c.tail >= len(buf) {
		c.tail -= len(buf)
	}
	return nil
}
