// Package ringstats exports ring buffer activity as Prometheus metrics.
//
// Stats implements ringbuf.Reporter, so it can be installed on an engine
// directly (or next to a logger with ringbuf.MultiReporter). All counters
// are created up front; reporting a failure is a slice lookup and an atomic
// add and is safe on a real-time goroutine.
package ringstats

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haivivi/rtring/pkg/ringbuf"
)

// Failure reasons used as the "reason" label.
var reasons = []struct {
	err   error
	label string
}{
	// ErrEmpty must come before ErrInsufficientData, which it wraps.
	{ringbuf.ErrEmpty, "empty"},
	{ringbuf.ErrInsufficientData, "insufficient_data"},
	{ringbuf.ErrInsufficientSpace, "insufficient_space"},
	{ringbuf.ErrInvalidArgument, "invalid_argument"},
	{ringbuf.ErrUnbound, "unbound"},
	{ringbuf.ErrRolledBack, "rolled_back"},
	{ringbuf.ErrNothingToCommit, "nothing_to_commit"},
	{ringbuf.ErrCapacityMismatch, "capacity_mismatch"},
	{ringbuf.ErrNotPlain, "not_plain"},
}

const otherReason = "other"

var ops = []ringbuf.Op{
	ringbuf.OpRead,
	ringbuf.OpWrite,
	ringbuf.OpCommit,
	ringbuf.OpClear,
	ringbuf.OpCreate,
	ringbuf.OpDelete,
	ringbuf.OpCopy,
}

// Reason maps an engine error to its metric label.
func Reason(err error) string {
	if i := reasonIndex(err); i < len(reasons) {
		return reasons[i].label
	}
	return otherReason
}

func reasonIndex(err error) int {
	for i, r := range reasons {
		if err == r.err {
			return i
		}
	}
	for i, r := range reasons {
		if errors.Is(err, r.err) {
			return i
		}
	}
	return len(reasons)
}

// Stats holds the counters for one ring.
type Stats struct {
	failures *prometheus.CounterVec
	byOp     [][]prometheus.Counter // [op-1][reason]

	events    *prometheus.CounterVec
	pushed    prometheus.Counter
	drained   prometheus.Counter
	deferred  prometheus.Counter
	dropped   prometheus.Counter
	busyTries prometheus.Counter
}

// New creates the counters for the ring called name and registers them
// with reg. A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, name string) (*Stats, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := prometheus.Labels{"ring": name}

	s := &Stats{
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "rtring",
			Subsystem:   "ring",
			Name:        "failures_total",
			ConstLabels: labels,
			Help:        "Failed ring operations by operation and reason",
		}, []string{"op", "reason"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "rtring",
			Subsystem:   "ring",
			Name:        "events_total",
			ConstLabels: labels,
			Help:        "Events moved through the ring by stage",
		}, []string{"stage"}),
		busyTries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "rtring",
			Subsystem:   "ring",
			Name:        "busy_total",
			ConstLabels: labels,
			Help:        "Producer cycles that found the ring held by the consumer",
		}),
	}
	s.pushed = s.events.WithLabelValues("pushed")
	s.drained = s.events.WithLabelValues("drained")
	s.deferred = s.events.WithLabelValues("deferred")
	s.dropped = s.events.WithLabelValues("dropped")

	s.byOp = make([][]prometheus.Counter, len(ops))
	for i, op := range ops {
		row := make([]prometheus.Counter, len(reasons)+1)
		for j, r := range reasons {
			row[j] = s.failures.WithLabelValues(op.String(), r.label)
		}
		row[len(reasons)] = s.failures.WithLabelValues(op.String(), otherReason)
		s.byOp[i] = row
	}

	for _, c := range []prometheus.Collector{s.failures, s.events, s.busyTries} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Report implements ringbuf.Reporter.
func (s *Stats) Report(f ringbuf.Failure) {
	i := int(f.Op) - 1
	if i < 0 || i >= len(s.byOp) {
		return
	}
	s.byOp[i][reasonIndex(f.Err)].Inc()
}

// Pushed counts events committed by the producer.
func (s *Stats) Pushed(n int) { s.pushed.Add(float64(n)) }

// Drained counts events consumed by the worker.
func (s *Stats) Drained(n int) { s.drained.Add(float64(n)) }

// Deferred counts events carried over to the next producer cycle.
func (s *Stats) Deferred(n int) { s.deferred.Add(float64(n)) }

// Dropped counts events discarded because the producer backlog was full.
func (s *Stats) Dropped(n int) { s.dropped.Add(float64(n)) }

// Busy counts producer cycles that could not take the ring.
func (s *Stats) Busy() { s.busyTries.Inc() }

var _ ringbuf.Reporter = (*Stats)(nil)
