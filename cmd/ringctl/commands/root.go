package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/rtring/pkg/cli"
)

const appName = "ringctl"

var (
	// Global flags
	verbose      bool
	configPath   string
	contextName  string
	formatOutput string
)

var rootCmd = &cobra.Command{
	Use:   "ringctl",
	Short: "Exercise and inspect real-time ring buffers",
	Long: `ringctl - tools around the lock-free SPSC ring buffer used to hand
control events from a real-time thread to a worker.

Configuration is stored in ~/.rtring/ringctl/config.yaml (override with
--config or RTRING_CONFIG) as named contexts describing the ring, the
snapshot index and the snapshot archive.

Examples:
  # Create a context and make it current
  ringctl config set-context studio --ring synth --capacity 8192 --index-dir ~/.rtring/index

  # Push a file of events through the ring
  ringctl events play -f events.yaml

  # Run the pump for two seconds
  ringctl bench --cycles 2000 --period 1ms

  # Capture and inspect a snapshot
  ringctl snapshot capture -f events.yaml --read 2
  ringctl snapshot show --latest`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("RTRING_CONFIG"), "config file path")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context to use (default: current context)")
	rootCmd.PersistentFlags().StringVarP(&formatOutput, "format", "o", "yaml", "output format: yaml, json or raw")
}

// loadConfig reads the config file named by the flags.
func loadConfig() (*cli.Config, error) {
	cfg, err := cli.LoadConfig(appName, configPath)
	if err != nil {
		return nil, fmt.Errorf("config not available: %w", err)
	}
	return cfg, nil
}

// resolveContext returns the context selected by --context.
func resolveContext() (*cli.Context, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return cfg.Resolve(contextName)
}

// output writes v to the command's stdout in the --format format.
func output(cmd *cobra.Command, v any) error {
	return cli.Output(v, cli.OutputOptions{
		Format: cli.OutputFormat(formatOutput),
		Writer: cmd.OutOrStdout(),
	})
}
