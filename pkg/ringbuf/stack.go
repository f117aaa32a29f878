package ringbuf

// StackBuffer is a ring buffer with StackSize bytes of storage embedded in
// the value, so no allocation beyond the value itself is needed. Call Init
// (or use NewStack) before use; an uninitialised StackBuffer is unbound.
//
// A StackBuffer must not be copied after Init.
type StackBuffer struct {
	_ noCopy

	Engine[*StackState]
	state StackState
}

// NewStack returns an initialised StackBuffer.
func NewStack() *StackBuffer {
	b := new(StackBuffer)
	b.Init()
	return b
}

// Init binds the engine to the embedded storage and clears it.
func (b *StackBuffer) Init() {
	b.bind(&b.state, true)
}

// State returns the backing state for diagnostics and CopyFrom.
func (b *StackBuffer) State() *StackState {
	return &b.state
}

// noCopy may be embedded into structs which must not be copied after first
// use; go vet's copylocks check reports violations.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
