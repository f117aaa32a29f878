package ringbuf

import (
	"reflect"
	"sync"
	"unsafe"
)

// WriteCustomType appends the in-memory representation of v to the pending
// group. T must be plain data: booleans, numbers, and arrays or structs of
// them. Padding bytes are copied as they are.
//
// The first call for a given T inspects the type once; later calls do not
// allocate.
func WriteCustomType[T any, S State](e *Engine[S], v T) error {
	if !isPlain[T]() {
		return e.fail(OpWrite, 0, ErrNotPlain)
	}
	return e.TryWrite(bytesOf(&v))
}

// ReadCustomType reads a value written by WriteCustomType into v. On failure
// *v is set to the zero value and the error is returned.
func ReadCustomType[T any, S State](e *Engine[S], v *T) error {
	var zero T
	if !isPlain[T]() {
		*v = zero
		return e.fail(OpRead, 0, ErrNotPlain)
	}
	if err := e.TryRead(bytesOf(v)); err != nil {
		*v = zero
		return err
	}
	return nil
}

func bytesOf[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// plainTypes caches the result of checkPlain per type.
var plainTypes sync.Map // map[reflect.Type]bool

func isPlain[T any]() bool {
	t := reflect.TypeFor[T]()
	if ok, found := plainTypes.Load(t); found {
		return ok.(bool)
	}
	ok := checkPlain(t)
	plainTypes.Store(t, ok)
	return ok
}

// checkPlain reports whether values of t can be copied byte by byte without
// hiding pointers from the garbage collector.
func checkPlain(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return checkPlain(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if !checkPlain(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
