package ringbuf

import (
	"errors"
	"testing"
)

type sample struct {
	ID    int32
	Gain  float32
	Flags [4]uint8
	On    bool
}

func TestCustomType(t *testing.T) {
	rb, _ := newHeap(t, 64)

	in := sample{ID: 3, Gain: 0.75, Flags: [4]uint8{1, 2, 3, 4}, On: true}
	if err := WriteCustomType(&rb.Engine, in); err != nil {
		t.Fatalf("WriteCustomType: %v", err)
	}
	if err := rb.CommitWrite(); err != nil {
		t.Fatalf("CommitWrite: %v", err)
	}

	var out sample
	if err := ReadCustomType(&rb.Engine, &out); err != nil {
		t.Fatalf("ReadCustomType: %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}

	out = sample{ID: 9}
	if err := ReadCustomType(&rb.Engine, &out); !errors.Is(err, ErrEmpty) {
		t.Errorf("ReadCustomType on empty err = %v", err)
	}
	if out != (sample{}) {
		t.Errorf("failed read left %+v, want zero value", out)
	}
}

func TestCustomTypeRejectsPointers(t *testing.T) {
	rb, _ := newHeap(t, 64)

	type withString struct {
		N    int32
		Name string
	}
	if err := WriteCustomType(&rb.Engine, withString{N: 1}); !errors.Is(err, ErrNotPlain) {
		t.Errorf("WriteCustomType(string field) err = %v, want ErrNotPlain", err)
	}
	if err := WriteCustomType(&rb.Engine, &sample{}); !errors.Is(err, ErrNotPlain) {
		t.Errorf("WriteCustomType(pointer) err = %v, want ErrNotPlain", err)
	}
	var s []byte
	if err := ReadCustomType(&rb.Engine, &s); !errors.Is(err, ErrNotPlain) {
		t.Errorf("ReadCustomType(slice) err = %v, want ErrNotPlain", err)
	}
	if rb.CommitWrite() == nil {
		t.Error("rejected writes left something to commit")
	}
}
