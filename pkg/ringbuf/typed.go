package ringbuf

import (
	"encoding/binary"
	"math"
)

// Typed writers. Each one appends to the pending group; see TryWrite.

func (e *Engine[S]) WriteBool(v bool) error {
	var b [1]byte
	if v {
		b[0] = 1
	}
	return e.TryWrite(b[:])
}

func (e *Engine[S]) WriteInt8(v int8) error {
	b := [1]byte{byte(v)}
	return e.TryWrite(b[:])
}

func (e *Engine[S]) WriteInt16(v int16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	return e.TryWrite(b[:])
}

func (e *Engine[S]) WriteInt32(v int32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	return e.TryWrite(b[:])
}

func (e *Engine[S]) WriteInt64(v int64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	return e.TryWrite(b[:])
}

func (e *Engine[S]) WriteFloat32(v float32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	return e.TryWrite(b[:])
}

func (e *Engine[S]) WriteFloat64(v float64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return e.TryWrite(b[:])
}

// WriteCustomData appends an opaque blob. The reader must know its length.
func (e *Engine[S]) WriteCustomData(p []byte) error {
	return e.TryWrite(p)
}

// Typed readers. On failure they return the zero value; callers that need
// to tell a zero apart from a failure check IsDataAvailableForReading or
// Readable first.

func (e *Engine[S]) ReadBool() bool {
	var b [1]byte
	if e.TryRead(b[:]) != nil {
		return false
	}
	return b[0] != 0
}

func (e *Engine[S]) ReadInt8() int8 {
	var b [1]byte
	if e.TryRead(b[:]) != nil {
		return 0
	}
	return int8(b[0])
}

func (e *Engine[S]) ReadInt16() int16 {
	var b [2]byte
	if e.TryRead(b[:]) != nil {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(b[:]))
}

func (e *Engine[S]) ReadInt32() int32 {
	var b [4]byte
	if e.TryRead(b[:]) != nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b[:]))
}

func (e *Engine[S]) ReadInt64() int64 {
	var b [8]byte
	if e.TryRead(b[:]) != nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// The unsigned readers consume the same width as their signed counterpart
// and return 0 unless the value lies in [0, max signed]. A value written
// with its top bit set therefore reads back as 0.

func (e *Engine[S]) ReadUint8() uint8 {
	if v := e.ReadInt8(); v >= 0 {
		return uint8(v)
	}
	return 0
}

func (e *Engine[S]) ReadUint16() uint16 {
	if v := e.ReadInt16(); v >= 0 {
		return uint16(v)
	}
	return 0
}

func (e *Engine[S]) ReadUint32() uint32 {
	if v := e.ReadInt32(); v >= 0 {
		return uint32(v)
	}
	return 0
}

func (e *Engine[S]) ReadUint64() uint64 {
	if v := e.ReadInt64(); v >= 0 {
		return uint64(v)
	}
	return 0
}

func (e *Engine[S]) ReadFloat32() float32 {
	var b [4]byte
	if e.TryRead(b[:]) != nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b[:]))
}

func (e *Engine[S]) ReadFloat64() float64 {
	var b [8]byte
	if e.TryRead(b[:]) != nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:]))
}

// ReadCustomData fills p with the next len(p) bytes, or zero fills p and
// returns the error when that many bytes are not available.
func (e *Engine[S]) ReadCustomData(p []byte) error {
	if err := e.TryRead(p); err != nil {
		clear(p)
		return err
	}
	return nil
}
