package rtevent

import (
	"github.com/haivivi/rtring/pkg/ringbuf"
)

// Put writes ev as one commit group. Either the whole event becomes visible
// to the reader or none of it does; on failure the pending group is
// discarded and the first write error (or ErrInvalidEvent) is returned.
//
// Put does not allocate, so it is safe to call from a real-time goroutine.
func Put[S ringbuf.State](e *ringbuf.Engine[S], ev Event) error {
	if err := ev.validate(); err != nil {
		return err
	}
	w := writer[S]{e: e}
	w.do(e.WriteInt8(int8(ev.Kind)))
	w.do(e.WriteInt32(int32(ev.Time)))
	switch ev.Kind {
	case KindParameter:
		w.do(e.WriteInt32(ev.Index))
		w.do(e.WriteFloat32(ev.Value))
	case KindProgram:
		w.do(e.WriteInt32(ev.Index))
	case KindMidi:
		w.do(e.WriteInt8(int8(ev.Midi.Port)))
		w.do(e.WriteInt8(int8(ev.Midi.Size)))
		w.do(e.WriteCustomData(ev.Midi.Data[:ev.Midi.Size]))
	case KindTransport:
		w.do(e.WriteBool(ev.Transport.Playing))
		w.do(e.WriteInt64(ev.Transport.Frame))
		w.do(e.WriteFloat64(ev.Transport.BPM))
	}
	return w.commit()
}

// writer keeps the first error of a group.
type writer[S ringbuf.State] struct {
	e   *ringbuf.Engine[S]
	err error
}

func (w *writer[S]) do(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *writer[S]) commit() error {
	if w.err != nil {
		// Argument errors do not mark the group, so discard it explicitly.
		w.e.Rollback()
		return w.err
	}
	return w.e.CommitWrite()
}

// Next reads the next committed event into ev. It returns false with a nil
// error when there is nothing to read.
func Next[S ringbuf.State](e *ringbuf.Engine[S], ev *Event) (bool, error) {
	if !e.IsDataAvailableForReading() {
		return false, nil
	}
	if e.Readable() < headerSize {
		return false, ErrCorrupt
	}
	*ev = Event{
		Kind: Kind(e.ReadInt8()),
		Time: e.ReadUint32(),
	}

	var need int
	switch ev.Kind {
	case KindParameter:
		need = parameterSize
	case KindProgram:
		need = programSize
	case KindMidi:
		need = midiHeadSize
	case KindTransport:
		need = transportSize
	default:
		return false, ErrCorrupt
	}
	if e.Readable() < need {
		return false, ErrCorrupt
	}

	switch ev.Kind {
	case KindParameter:
		ev.Index = e.ReadInt32()
		ev.Value = e.ReadFloat32()
	case KindProgram:
		ev.Index = e.ReadInt32()
	case KindMidi:
		ev.Midi.Port = e.ReadUint8()
		ev.Midi.Size = e.ReadUint8()
		if ev.Midi.Size == 0 || ev.Midi.Size > MaxMidiSize {
			return false, ErrCorrupt
		}
		if err := e.ReadCustomData(ev.Midi.Data[:ev.Midi.Size]); err != nil {
			return false, ErrCorrupt
		}
	case KindTransport:
		ev.Transport.Playing = e.ReadBool()
		ev.Transport.Frame = e.ReadInt64()
		ev.Transport.BPM = e.ReadFloat64()
	}
	return true, nil
}
