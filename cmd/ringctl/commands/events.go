package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/rtring/pkg/cli"
	"github.com/haivivi/rtring/pkg/ringbuf"
	"github.com/haivivi/rtring/pkg/rtevent"
)

// eventFile is the input format of events play and snapshot capture:
//
//	events:
//	  - {kind: parameter, time: 0, index: 3, value: 0.5}
//	  - {kind: midi, time: 64, port: 0, data: [0x90, 60, 100]}
//	  - {kind: program, index: 7}
//	  - {kind: transport, playing: true, frame: 48000, bpm: 120}
type eventFile struct {
	Events []eventSpec `yaml:"events" json:"events"`
}

type eventSpec struct {
	Kind    string  `yaml:"kind" json:"kind"`
	Time    uint32  `yaml:"time,omitempty" json:"time,omitempty"`
	Index   int32   `yaml:"index,omitempty" json:"index,omitempty"`
	Value   float32 `yaml:"value,omitempty" json:"value,omitempty"`
	Port    uint8   `yaml:"port,omitempty" json:"port,omitempty"`
	Data    []int   `yaml:"data,omitempty" json:"data,omitempty"`
	Playing bool    `yaml:"playing,omitempty" json:"playing,omitempty"`
	Frame   int64   `yaml:"frame,omitempty" json:"frame,omitempty"`
	BPM     float64 `yaml:"bpm,omitempty" json:"bpm,omitempty"`
	Size    int     `yaml:"size,omitempty" json:"size,omitempty"`
}

func (s eventSpec) event() (rtevent.Event, error) {
	switch strings.ToLower(s.Kind) {
	case "parameter", "param":
		return rtevent.Parameter(s.Time, s.Index, s.Value), nil
	case "program":
		return rtevent.Program(s.Time, s.Index), nil
	case "midi":
		data := make([]byte, len(s.Data))
		for i, b := range s.Data {
			if b < 0 || b > 0xff {
				return rtevent.Event{}, fmt.Errorf("midi byte %d out of range", b)
			}
			data[i] = byte(b)
		}
		return rtevent.MidiMessage(s.Time, s.Port, data...), nil
	case "transport":
		return rtevent.TransportUpdate(s.Time, s.Playing, s.Frame, s.BPM), nil
	default:
		return rtevent.Event{}, fmt.Errorf("unknown event kind %q", s.Kind)
	}
}

func specOf(ev rtevent.Event) eventSpec {
	s := eventSpec{Kind: ev.Kind.String(), Time: ev.Time, Size: ev.Size()}
	switch ev.Kind {
	case rtevent.KindParameter:
		s.Index, s.Value = ev.Index, ev.Value
	case rtevent.KindProgram:
		s.Index = ev.Index
	case rtevent.KindMidi:
		s.Port = ev.Midi.Port
		for _, b := range ev.Midi.Bytes() {
			s.Data = append(s.Data, int(b))
		}
	case rtevent.KindTransport:
		s.Playing, s.Frame, s.BPM = ev.Transport.Playing, ev.Transport.Frame, ev.Transport.BPM
	}
	return s
}

func loadEvents(path string) ([]rtevent.Event, error) {
	var f eventFile
	if err := cli.LoadRequest(path, &f); err != nil {
		return nil, err
	}
	evs := make([]rtevent.Event, len(f.Events))
	for i, s := range f.Events {
		ev, err := s.event()
		if err != nil {
			return nil, fmt.Errorf("event #%d: %w", i, err)
		}
		evs[i] = ev
	}
	return evs, nil
}

// playResult is the output of events play.
type playResult struct {
	Ring      string      `json:"ring" yaml:"ring"`
	Capacity  int         `json:"capacity" yaml:"capacity"`
	Committed int         `json:"committed" yaml:"committed"`
	Rejected  []string    `json:"rejected,omitempty" yaml:"rejected,omitempty"`
	Read      []eventSpec `json:"read" yaml:"read"`
	Remaining int         `json:"remaining_bytes" yaml:"remaining_bytes"`
}

// play commits evs one group each, then reads back up to read events
// (all when read < 0).
func play[S ringbuf.State](e *ringbuf.Engine[S], evs []rtevent.Event, read int) (playResult, error) {
	res := playResult{Capacity: e.Cap()}
	for i, ev := range evs {
		if err := rtevent.Put(e, ev); err != nil {
			res.Rejected = append(res.Rejected, fmt.Sprintf("#%d %s: %v", i, ev.Kind, err))
			continue
		}
		res.Committed++
	}
	for read < 0 || len(res.Read) < read {
		var ev rtevent.Event
		ok, err := rtevent.Next(e, &ev)
		if err != nil {
			return res, err
		}
		if !ok {
			break
		}
		res.Read = append(res.Read, specOf(ev))
	}
	res.Remaining = e.Readable()
	return res, nil
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Encode control events into a ring and decode them",
}

var eventsPlayFlags struct {
	file string
	read int
}

var eventsPlayCmd = &cobra.Command{
	Use:   "play",
	Short: "Commit events from a file and read them back",
	Long: `Commit every event of a YAML or JSON file as its own commit group, then
read events back in order. Events that do not fit are reported as rejected;
their partial writes are rolled back.

Example:
  ringctl events play -f events.yaml
  ringctl events play -f events.yaml --read 1 -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if eventsPlayFlags.file == "" {
			return errors.New("-f is required")
		}
		c, err := resolveContext()
		if err != nil {
			return err
		}
		evs, err := loadEvents(eventsPlayFlags.file)
		if err != nil {
			return err
		}
		var res playResult
		err = withRing(c, func(h ringHandle) error {
			res, err = h.play(evs, eventsPlayFlags.read)
			return err
		})
		if err != nil {
			return err
		}
		res.Ring = c.Ring.Name
		return output(cmd, res)
	},
}

func init() {
	eventsPlayCmd.Flags().StringVarP(&eventsPlayFlags.file, "file", "f", "", "event file (YAML or JSON, - for stdin)")
	eventsPlayCmd.Flags().IntVar(&eventsPlayFlags.read, "read", -1, "events to read back (-1 for all)")

	eventsCmd.AddCommand(eventsPlayCmd)
	rootCmd.AddCommand(eventsCmd)
}
