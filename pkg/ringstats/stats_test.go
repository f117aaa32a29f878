package ringstats

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haivivi/rtring/pkg/ringbuf"
)

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func failureCount(t *testing.T, s *Stats, op, reason string) float64 {
	t.Helper()
	return value(t, s.failures.WithLabelValues(op, reason))
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ringbuf.ErrEmpty, "empty"},
		{ringbuf.ErrInsufficientData, "insufficient_data"},
		{ringbuf.ErrInsufficientSpace, "insufficient_space"},
		{ringbuf.ErrRolledBack, "rolled_back"},
		{fmt.Errorf("wrapped: %w", ringbuf.ErrCapacityMismatch), "capacity_mismatch"},
		{errors.New("boom"), "other"},
		{nil, "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Reason(tt.err), "Reason(%v)", tt.err)
	}
}

func TestReportCountsFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := New(reg, "test")
	require.NoError(t, err)

	rb, err := ringbuf.NewHeap(16)
	require.NoError(t, err)
	rb.SetReporter(s)

	rb.ReadInt32()
	rb.ReadInt32()
	rb.TryWrite(make([]byte, 16))
	rb.CommitWrite()

	assert.Equal(t, 2.0, failureCount(t, s, "read", "empty"))
	assert.Equal(t, 1.0, failureCount(t, s, "write", "invalid_argument"))
	assert.Equal(t, 1.0, failureCount(t, s, "commit", "nothing_to_commit"))
	assert.Equal(t, 0.0, failureCount(t, s, "write", "insufficient_space"))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["rtring_ring_failures_total"])
	assert.True(t, names["rtring_ring_events_total"])
	assert.True(t, names["rtring_ring_busy_total"])
}

func TestReportIgnoresUnknownOp(t *testing.T) {
	s, err := New(prometheus.NewRegistry(), "test")
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		s.Report(ringbuf.Failure{Op: 0, Err: ringbuf.ErrEmpty})
		s.Report(ringbuf.Failure{Op: 200, Err: ringbuf.ErrEmpty})
	})
}

func TestEventCounters(t *testing.T) {
	s, err := New(prometheus.NewRegistry(), "test")
	require.NoError(t, err)

	s.Pushed(5)
	s.Drained(3)
	s.Deferred(2)
	s.Dropped(1)
	s.Busy()
	s.Busy()

	assert.Equal(t, 5.0, value(t, s.pushed))
	assert.Equal(t, 3.0, value(t, s.drained))
	assert.Equal(t, 2.0, value(t, s.deferred))
	assert.Equal(t, 1.0, value(t, s.dropped))
	assert.Equal(t, 2.0, value(t, s.busyTries))
}

func TestDuplicateRing(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, "a")
	require.NoError(t, err)

	_, err = New(reg, "a")
	require.Error(t, err)
}

func TestReportDoesNotAllocate(t *testing.T) {
	s, err := New(prometheus.NewRegistry(), "test")
	require.NoError(t, err)
	f := ringbuf.Failure{Op: ringbuf.OpWrite, Size: 4, Err: ringbuf.ErrInsufficientSpace}
	allocs := testing.AllocsPerRun(100, func() { s.Report(f) })
	assert.Zero(t, allocs)
}
