package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/rtring/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage contexts",
	Long: `Manage the named contexts of ringctl.

A context names the ring to build (name, capacity or the fixed 4096 byte
stack ring), where snapshots are indexed (a badger directory) and where
they are exported (a local directory or an S3 bucket).

Examples:
  ringctl config list-contexts
  ringctl config set-context studio --ring synth --capacity 8192
  ringctl config set-context cloud --s3-bucket ring-dumps --s3-region eu-west-1
  ringctl config use-context studio
  ringctl config view`,
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"ls"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		names := cfg.ContextNames()
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No contexts configured.")
			fmt.Fprintln(cmd.OutOrStdout(), "Create one with: ringctl config set-context <name>")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tRING\tCAPACITY")
		for _, name := range names {
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			c, _ := cfg.Resolve(name)
			capacity := fmt.Sprint(c.Ring.Capacity)
			if c.Ring.Stack {
				capacity = "stack"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", current, name, c.Ring.Name, capacity)
		}
		return w.Flush()
	},
}

var setContextFlags struct {
	ring       string
	capacity   uint32
	stack      bool
	indexDir   string
	keep       int
	archiveDir string
	s3         cli.S3Settings
	addr       string
}

var configSetContextCmd = &cobra.Command{
	Use:   "set-context <name>",
	Short: "Create or update a context",
	Long: `Create or update a context. Only the given flags change an existing
context. The first context created becomes current.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		name := args[0]
		c, ok := cfg.Contexts[name]
		if !ok {
			c = &cli.Context{}
		}

		f := cmd.Flags()
		if f.Changed("ring") {
			c.Ring.Name = setContextFlags.ring
		}
		if f.Changed("capacity") {
			c.Ring.Capacity = setContextFlags.capacity
		}
		if f.Changed("stack") {
			c.Ring.Stack = setContextFlags.stack
		}
		if f.Changed("index-dir") {
			c.Snapshot.IndexDir = setContextFlags.indexDir
		}
		if f.Changed("keep") {
			c.Snapshot.Keep = setContextFlags.keep
		}
		if f.Changed("archive-dir") {
			c.Archive.Dir = setContextFlags.archiveDir
		}
		if f.Changed("s3-bucket") {
			if setContextFlags.s3.Bucket == "" {
				c.Archive.S3 = nil
			} else {
				s3 := setContextFlags.s3
				c.Archive.S3 = &s3
			}
		}
		if f.Changed("monitor-addr") {
			c.Monitor.Addr = setContextFlags.addr
		}

		if err := cfg.SetContext(name, c); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Context %q saved to %s\n", name, cfg.Path())
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q\n", args[0])
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Context %q deleted\n", args[0])
		return nil
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the resolved context with defaults applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveContext()
		if err != nil {
			return err
		}
		return output(cmd, c)
	},
}

func init() {
	f := configSetContextCmd.Flags()
	f.StringVar(&setContextFlags.ring, "ring", "", "ring name")
	f.Uint32Var(&setContextFlags.capacity, "capacity", 0, "ring capacity in bytes, rounded up to a power of two")
	f.BoolVar(&setContextFlags.stack, "stack", false, "use the fixed 4096 byte stack ring")
	f.StringVar(&setContextFlags.indexDir, "index-dir", "", "badger directory for the snapshot index")
	f.IntVar(&setContextFlags.keep, "keep", 0, "snapshots kept per ring by prune")
	f.StringVar(&setContextFlags.archiveDir, "archive-dir", "", "local directory for exported snapshots")
	f.StringVar(&setContextFlags.s3.Bucket, "s3-bucket", "", "S3 bucket for exported snapshots (empty removes S3)")
	f.StringVar(&setContextFlags.s3.Prefix, "s3-prefix", "", "S3 key prefix")
	f.StringVar(&setContextFlags.s3.Region, "s3-region", "", "S3 region")
	f.StringVar(&setContextFlags.s3.Endpoint, "s3-endpoint", "", "S3-compatible endpoint URL")
	f.BoolVar(&setContextFlags.s3.PathStyle, "s3-path-style", false, "use path-style S3 addressing")
	f.StringVar(&setContextFlags.addr, "monitor-addr", "", "listen address of monitor serve")

	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configSetContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configViewCmd)
	rootCmd.AddCommand(configCmd)
}
