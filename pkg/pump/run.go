package pump

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/haivivi/rtring/pkg/ringbuf"
	"github.com/haivivi/rtring/pkg/rtevent"
)

// Defaults for Config.
const (
	DefaultPeriod     = time.Millisecond
	DefaultMaxPending = 1024
)

// Config controls Run.
type Config struct {
	// Period between producer cycles.
	Period time.Duration

	// Cycles is the number of producer cycles to run. Zero runs until the
	// context is cancelled.
	Cycles int

	// Source returns the events produced in a cycle. The events are copied
	// before the next call, so the slice may be reused.
	Source func(cycle int) []rtevent.Event

	// MaxPending bounds the events held by the producer, carried over or
	// new. Newer events beyond it are dropped. Invalid events and events
	// too large for the ring are dropped when they reach the front.
	MaxPending int
}

// Result counts what happened during Run. Deferred sums, over all cycles,
// the events left for a later cycle.
type Result struct {
	Cycles   int
	Pushed   int
	Deferred int
	Dropped  int
	Busy     int
	Drained  int
}

// Run drives b with a producer goroutine ticking every cfg.Period and a
// worker goroutine passing drained events to sink. The worker is woken after
// each cycle that committed something and drains once more after the
// producer stops, so every committed event reaches sink unless sink fails.
//
// Cancelling ctx stops the producer; Run then returns nil. An error from
// sink stops both sides and is returned.
func Run[S ringbuf.State](ctx context.Context, b *Bridge[S], cfg Config, sink func(rtevent.Event) error) (Result, error) {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = DefaultMaxPending
	}

	g, gctx := errgroup.WithContext(ctx)
	notify := make(chan struct{}, 1)
	done := make(chan struct{})

	var prod, work Result
	g.Go(func() error {
		defer close(done)
		prod = produce(gctx, b, cfg, notify)
		return nil
	})
	g.Go(func() error {
		var err error
		work.Drained, err = consume(b, notify, done, sink)
		return err
	})
	err := g.Wait()

	prod.Drained = work.Drained
	slog.Debug("pump: run finished",
		"cycles", prod.Cycles,
		"pushed", prod.Pushed,
		"drained", prod.Drained,
		"dropped", prod.Dropped,
		"busy", prod.Busy,
	)
	return prod, err
}

func produce[S ringbuf.State](ctx context.Context, b *Bridge[S], cfg Config, notify chan<- struct{}) Result {
	var res Result
	pending := make([]rtevent.Event, 0, cfg.MaxPending)

	ticker := time.NewTicker(cfg.Period)
	defer ticker.Stop()

	for cfg.Cycles == 0 || res.Cycles < cfg.Cycles {
		select {
		case <-ctx.Done():
			return res
		case <-ticker.C:
		}

		if cfg.Source != nil {
			pending = append(pending, cfg.Source(res.Cycles)...)
		}
		res.Cycles++
		if over := len(pending) - cfg.MaxPending; over > 0 {
			res.Dropped += over
			if b.stats != nil {
				b.stats.Dropped(over)
			}
			pending = pending[:cfg.MaxPending]
		}

		sent, pushed := 0, 0
		for sent < len(pending) {
			n, err := b.Push(pending[sent:])
			sent += n
			pushed += n
			if errors.Is(err, rtevent.ErrInvalidEvent) || errors.Is(err, ErrTooLarge) {
				sent++
				res.Dropped++
				if b.stats != nil {
					b.stats.Dropped(1)
				}
				continue
			}
			if errors.Is(err, ErrBusy) {
				res.Busy++
			}
			break
		}
		pending = append(pending[:0], pending[sent:]...)
		res.Pushed += pushed
		res.Deferred += len(pending)
		if b.stats != nil && len(pending) > 0 {
			b.stats.Deferred(len(pending))
		}
		if pushed > 0 {
			select {
			case notify <- struct{}{}:
			default:
			}
		}
	}
	return res
}

func consume[S ringbuf.State](b *Bridge[S], notify <-chan struct{}, done <-chan struct{}, sink func(rtevent.Event) error) (int, error) {
	total := 0
	for {
		select {
		case <-notify:
			n, err := b.Drain(sink)
			total += n
			if err != nil {
				return total, err
			}
		case <-done:
			n, err := b.Drain(sink)
			return total + n, err
		}
	}
}
