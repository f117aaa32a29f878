package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/haivivi/rtring/pkg/monitor"
	"github.com/haivivi/rtring/pkg/pump"
	"github.com/haivivi/rtring/pkg/ringbuf"
	"github.com/haivivi/rtring/pkg/ringstats"
	"github.com/haivivi/rtring/pkg/rtevent"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Serve or watch live ring fill levels",
}

var monitorServeFlags struct {
	addr      string
	interval  time.Duration
	period    time.Duration
	perCycle  int
	sinkDelay time.Duration
}

var monitorServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pump and serve /ws samples and /metrics",
	Long: `Run the producer/worker pump on the context's ring until interrupted and
serve its fill level as WebSocket samples on /ws and its counters on
/metrics.

Example:
  ringctl monitor serve --addr 127.0.0.1:9470 --sink-delay 200us
  ringctl monitor watch ws://127.0.0.1:9470/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveContext()
		if err != nil {
			return err
		}
		addr := c.Monitor.Addr
		if cmd.Flags().Changed("addr") {
			addr = monitorServeFlags.addr
		}
		interval := time.Duration(c.Monitor.IntervalMS) * time.Millisecond
		if cmd.Flags().Changed("interval") || interval == 0 {
			interval = monitorServeFlags.interval
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return withRing(c, func(h ringHandle) error {
			reg := prometheus.NewRegistry()
			stats, err := ringstats.New(reg, c.Ring.Name)
			if err != nil {
				return err
			}
			h.setReporter(ringbuf.MultiReporter(stats, ringbuf.LogReporter(nil)))
			p := h.bridge(stats)

			mux := http.NewServeMux()
			mux.Handle("/ws", monitor.NewHandler(c.Ring.Name, p.source, interval))
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving ring %q on http://%s (/ws, /metrics)\n", c.Ring.Name, ln.Addr())

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				_, err := p.run(gctx, pump.Config{
					Period: monitorServeFlags.period,
					Source: synthSource(monitorServeFlags.perCycle),
				}, func(rtevent.Event) error {
					if monitorServeFlags.sinkDelay > 0 {
						time.Sleep(monitorServeFlags.sinkDelay)
					}
					return nil
				})
				return err
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				slog.Debug("ringctl: shutting down monitor")
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		})
	},
}

var monitorWatchCount int

var monitorWatchCmd = &cobra.Command{
	Use:   "watch <url>",
	Short: "Print samples from a monitor server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		n := 0
		return monitor.Watch(ctx, args[0], func(s monitor.Sample) error {
			if err := output(cmd, s); err != nil {
				return err
			}
			n++
			if monitorWatchCount > 0 && n >= monitorWatchCount {
				return monitor.ErrStop
			}
			return nil
		})
	},
}

func init() {
	f := monitorServeCmd.Flags()
	f.StringVar(&monitorServeFlags.addr, "addr", "", "listen address (default from context)")
	f.DurationVar(&monitorServeFlags.interval, "interval", 250*time.Millisecond, "sample interval")
	f.DurationVar(&monitorServeFlags.period, "period", time.Millisecond, "time between producer cycles")
	f.IntVar(&monitorServeFlags.perCycle, "events", 8, "events produced per cycle")
	f.DurationVar(&monitorServeFlags.sinkDelay, "sink-delay", 0, "simulated work per drained event")

	monitorWatchCmd.Flags().IntVarP(&monitorWatchCount, "count", "n", 0, "stop after this many samples (0 for no limit)")

	monitorCmd.AddCommand(monitorServeCmd)
	monitorCmd.AddCommand(monitorWatchCmd)
	rootCmd.AddCommand(monitorCmd)
}
