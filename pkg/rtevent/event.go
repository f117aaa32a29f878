package rtevent

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidEvent is returned by Put for events that cannot be encoded.
	ErrInvalidEvent = errors.New("rtevent: invalid event")

	// ErrCorrupt is returned by Next when the committed bytes do not form a
	// valid event. The stream cannot be resynchronised after this.
	ErrCorrupt = errors.New("rtevent: corrupt event stream")
)

// Kind tags an encoded event.
type Kind int8

const (
	KindParameter Kind = iota + 1
	KindProgram
	KindMidi
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindParameter:
		return "parameter"
	case KindProgram:
		return "program"
	case KindMidi:
		return "midi"
	case KindTransport:
		return "transport"
	default:
		return fmt.Sprintf("kind(%d)", int8(k))
	}
}

// MaxMidiSize is the largest MIDI message carried inline.
const MaxMidiSize = 4

// Event is a single control event. Which fields are meaningful depends on
// Kind:
//
//	KindParameter: Time, Index, Value
//	KindProgram:   Time, Index
//	KindMidi:      Time, Midi
//	KindTransport: Time, Transport
type Event struct {
	Kind Kind

	// Time is the frame offset inside the processing cycle. Values above
	// math.MaxInt32 are rejected.
	Time uint32

	Index int32
	Value float32

	Midi      Midi
	Transport Transport
}

// Midi is a short MIDI message.
type Midi struct {
	Port uint8 // 0..127
	Size uint8 // 1..MaxMidiSize
	Data [MaxMidiSize]byte
}

// Bytes returns the used part of Data.
func (m *Midi) Bytes() []byte {
	return m.Data[:min(int(m.Size), MaxMidiSize)]
}

// Transport describes the host transport position.
type Transport struct {
	Playing bool
	Frame   int64
	BPM     float64
}

// Parameter returns a parameter change event.
func Parameter(time uint32, index int32, value float32) Event {
	return Event{Kind: KindParameter, Time: time, Index: index, Value: value}
}

// Program returns a program change event.
func Program(time uint32, index int32) Event {
	return Event{Kind: KindProgram, Time: time, Index: index}
}

// MidiMessage returns a MIDI event; data longer than MaxMidiSize makes the
// event invalid.
func MidiMessage(time uint32, port uint8, data ...byte) Event {
	ev := Event{Kind: KindMidi, Time: time}
	ev.Midi.Port = port
	ev.Midi.Size = uint8(min(len(data), math.MaxUint8))
	copy(ev.Midi.Data[:], data)
	return ev
}

// TransportUpdate returns a transport event.
func TransportUpdate(time uint32, playing bool, frame int64, bpm float64) Event {
	return Event{Kind: KindTransport, Time: time, Transport: Transport{Playing: playing, Frame: frame, BPM: bpm}}
}

// Encoded sizes: kind + time header, then the per-kind body.
const (
	headerSize    = 1 + 4
	parameterSize = 4 + 4
	programSize   = 4
	midiHeadSize  = 1 + 1
	transportSize = 1 + 8 + 8
)

// Size returns the number of ring bytes the event occupies, or 0 for an
// event that cannot be encoded.
func (ev *Event) Size() int {
	if ev.validate() != nil {
		return 0
	}
	switch ev.Kind {
	case KindParameter:
		return headerSize + parameterSize
	case KindProgram:
		return headerSize + programSize
	case KindMidi:
		return headerSize + midiHeadSize + int(ev.Midi.Size)
	case KindTransport:
		return headerSize + transportSize
	}
	return 0
}

func (ev *Event) validate() error {
	if ev.Time > math.MaxInt32 {
		return ErrInvalidEvent
	}
	switch ev.Kind {
	case KindParameter, KindProgram, KindTransport:
		return nil
	case KindMidi:
		if ev.Midi.Size == 0 || ev.Midi.Size > MaxMidiSize || ev.Midi.Port > math.MaxInt8 {
			return ErrInvalidEvent
		}
		return nil
	default:
		return ErrInvalidEvent
	}
}
