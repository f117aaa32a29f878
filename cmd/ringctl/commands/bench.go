package commands

import (
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/haivivi/rtring/pkg/pump"
	"github.com/haivivi/rtring/pkg/ringbuf"
	"github.com/haivivi/rtring/pkg/ringstats"
	"github.com/haivivi/rtring/pkg/rtevent"
)

// synthSource returns a pump source producing perCycle events each cycle,
// rotating through every event kind. The returned slice is reused.
func synthSource(perCycle int) func(cycle int) []rtevent.Event {
	buf := make([]rtevent.Event, perCycle)
	return func(cycle int) []rtevent.Event {
		for i := range buf {
			t := uint32(i)
			switch n := cycle*perCycle + i; n % 4 {
			case 0:
				buf[i] = rtevent.Parameter(t, int32(n%128), float32(n%100)/100)
			case 1:
				buf[i] = rtevent.MidiMessage(t, 0, 0x90, byte(n%128), 100)
			case 2:
				buf[i] = rtevent.Program(t, int32(n%16))
			default:
				buf[i] = rtevent.TransportUpdate(t, true, int64(cycle)*512, 120)
			}
		}
		return buf
	}
}

// gatherCounters returns every non-zero counter in reg as
// name{label=value,...} -> value.
func gatherCounters(reg prometheus.Gatherer) (map[string]float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			v := m.GetCounter().GetValue()
			if v == 0 {
				continue
			}
			var labels []string
			for _, l := range m.GetLabel() {
				if l.GetName() == "ring" {
					continue
				}
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			slices.Sort(labels)
			out[f.GetName()+"{"+strings.Join(labels, ",")+"}"] = v
		}
	}
	return out, nil
}

type benchResult struct {
	Ring     string             `json:"ring" yaml:"ring"`
	Capacity int                `json:"capacity" yaml:"capacity"`
	Elapsed  string             `json:"elapsed" yaml:"elapsed"`
	Cycles   int                `json:"cycles" yaml:"cycles"`
	Pushed   int                `json:"pushed" yaml:"pushed"`
	Drained  int                `json:"drained" yaml:"drained"`
	Deferred int                `json:"deferred" yaml:"deferred"`
	Dropped  int                `json:"dropped" yaml:"dropped"`
	Busy     int                `json:"busy" yaml:"busy"`
	Counters map[string]float64 `json:"counters,omitempty" yaml:"counters,omitempty"`
}

var benchFlags struct {
	cycles     int
	period     time.Duration
	perCycle   int
	maxPending int
	sinkDelay  time.Duration
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the producer/worker pump and report counters",
	Long: `Run a producer ticking every --period that pushes --events synthetic
control events per cycle into the context's ring, and a worker draining it.
Failures reported by the ring are counted with Prometheus counters and
printed with the result.

Examples:
  ringctl bench --cycles 1000 --period 1ms --events 8
  ringctl bench --cycles 500 --sink-delay 50us -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveContext()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var res benchResult
		err = withRing(c, func(h ringHandle) error {
			reg := prometheus.NewRegistry()
			stats, err := ringstats.New(reg, c.Ring.Name)
			if err != nil {
				return err
			}
			h.setReporter(ringbuf.MultiReporter(stats, ringbuf.LogReporter(nil)))

			p := h.bridge(stats)
			start := time.Now()
			r, err := p.run(ctx, benchConfig(), func(rtevent.Event) error {
				if benchFlags.sinkDelay > 0 {
					time.Sleep(benchFlags.sinkDelay)
				}
				return nil
			})
			if err != nil {
				return err
			}
			counters, err := gatherCounters(reg)
			if err != nil {
				return err
			}
			res = benchResult{
				Ring:     c.Ring.Name,
				Capacity: h.capacity,
				Elapsed:  time.Since(start).Round(time.Microsecond).String(),
				Cycles:   r.Cycles,
				Pushed:   r.Pushed,
				Drained:  r.Drained,
				Deferred: r.Deferred,
				Dropped:  r.Dropped,
				Busy:     r.Busy,
				Counters: counters,
			}
			return nil
		})
		if err != nil {
			return err
		}
		return output(cmd, res)
	},
}

func benchConfig() pump.Config {
	return pump.Config{
		Period:     benchFlags.period,
		Cycles:     benchFlags.cycles,
		Source:     synthSource(benchFlags.perCycle),
		MaxPending: benchFlags.maxPending,
	}
}

func init() {
	f := benchCmd.Flags()
	f.IntVar(&benchFlags.cycles, "cycles", 1000, "producer cycles to run")
	f.DurationVar(&benchFlags.period, "period", time.Millisecond, "time between producer cycles")
	f.IntVar(&benchFlags.perCycle, "events", 8, "events produced per cycle")
	f.IntVar(&benchFlags.maxPending, "max-pending", 0, "producer backlog bound (0 for the default)")
	f.DurationVar(&benchFlags.sinkDelay, "sink-delay", 0, "simulated work per drained event")

	rootCmd.AddCommand(benchCmd)
}
