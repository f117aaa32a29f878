package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/rtring/pkg/cli"
	"github.com/haivivi/rtring/pkg/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture and inspect ring snapshots",
	Long: `Capture ring state into the context's snapshot index and move snapshots
between the index and the archive (a local directory or S3).

Examples:
  ringctl snapshot capture -f events.yaml --read 2 --export
  ringctl snapshot list
  ringctl snapshot show --latest
  ringctl snapshot export <id>
  ringctl snapshot import synth/<id>.msgpack
  ringctl snapshot prune --keep 5`,
}

var snapshotCaptureFlags struct {
	file   string
	read   int
	export bool
}

type captureResult struct {
	snapshot.Info `yaml:",inline" json:",inline"`
	Rejected      []string `json:"rejected,omitempty" yaml:"rejected,omitempty"`
	Exported      string   `json:"exported,omitempty" yaml:"exported,omitempty"`
}

var snapshotCaptureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Play events into a ring, read some back and capture the state",
	RunE: func(cmd *cobra.Command, args []string) error {
		if snapshotCaptureFlags.file == "" {
			return errors.New("-f is required")
		}
		c, err := resolveContext()
		if err != nil {
			return err
		}
		evs, err := loadEvents(snapshotCaptureFlags.file)
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cmd.Context(), c)
		if err != nil {
			return err
		}
		defer closeStore()

		var res captureResult
		err = withRing(c, func(h ringHandle) error {
			played, err := h.play(evs, snapshotCaptureFlags.read)
			if err != nil {
				return err
			}
			res.Rejected = played.Rejected
			snap, err := h.snapshot()
			if err != nil {
				return err
			}
			rec, err := snapshot.Capture(c.Ring.Name, snap)
			if err != nil {
				return err
			}
			if err := store.Save(cmd.Context(), rec); err != nil {
				return err
			}
			res.Info = rec.Info()
			if snapshotCaptureFlags.export {
				res.Exported, err = store.Export(cmd.Context(), rec.Ring, rec.ID)
			}
			return err
		})
		if err != nil {
			return err
		}
		if c.Snapshot.Keep > 0 {
			if n, err := store.Prune(cmd.Context(), c.Ring.Name, c.Snapshot.Keep); err != nil {
				return err
			} else if n > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "pruned %d old snapshot(s)\n", n)
			}
		}
		return output(cmd, res)
	},
}

var snapshotListAll bool

var snapshotListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List snapshots of the context's ring",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveContext()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cmd.Context(), c)
		if err != nil {
			return err
		}
		defer closeStore()

		ring := c.Ring.Name
		if snapshotListAll {
			ring = ""
		}
		infos, err := store.List(cmd.Context(), ring)
		if err != nil {
			return err
		}
		if infos == nil {
			infos = []snapshot.Info{}
		}
		return output(cmd, infos)
	},
}

var snapshotShowFlags struct {
	latest bool
	cols   int
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Render a snapshot as a highlighted hex dump",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !snapshotShowFlags.latest {
			return errors.New("give a snapshot id or --latest")
		}
		c, err := resolveContext()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cmd.Context(), c)
		if err != nil {
			return err
		}
		defer closeStore()

		var rec snapshot.Record
		if len(args) == 1 {
			rec, err = store.Get(cmd.Context(), c.Ring.Name, args[0])
		} else {
			rec, err = store.Latest(cmd.Context(), c.Ring.Name)
		}
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("format") {
			return output(cmd, rec)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", rec.Ring, rec.ID, rec.TakenAt.Format("2006-01-02 15:04:05.000"))
		fmt.Fprint(cmd.OutOrStdout(), cli.RenderSnapshot(cli.NewStyles(cli.DefaultTheme), rec.Snapshot(), snapshotShowFlags.cols))
		return nil
	},
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Copy a snapshot from the index to the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveContext()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cmd.Context(), c)
		if err != nil {
			return err
		}
		defer closeStore()

		name, err := store.Export(cmd.Context(), c.Ring.Name, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s\n", name)
		return nil
	},
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Verify an archived snapshot and add it to the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveContext()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cmd.Context(), c)
		if err != nil {
			return err
		}
		defer closeStore()

		rec, err := store.Import(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s/%s\n", rec.Ring, rec.ID)
		return nil
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a snapshot from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveContext()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cmd.Context(), c)
		if err != nil {
			return err
		}
		defer closeStore()
		return store.Delete(cmd.Context(), c.Ring.Name, args[0])
	},
}

var snapshotPruneKeep int

var snapshotPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest snapshots of the ring",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := resolveContext()
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cmd.Context(), c)
		if err != nil {
			return err
		}
		defer closeStore()

		keep := c.Snapshot.Keep
		if cmd.Flags().Changed("keep") {
			keep = snapshotPruneKeep
		}
		n, err := store.Prune(cmd.Context(), c.Ring.Name, keep)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d snapshot(s)\n", n)
		return nil
	},
}

func init() {
	f := snapshotCaptureCmd.Flags()
	f.StringVarP(&snapshotCaptureFlags.file, "file", "f", "", "event file (YAML or JSON, - for stdin)")
	f.IntVar(&snapshotCaptureFlags.read, "read", 0, "events to read back before capturing (-1 for all)")
	f.BoolVar(&snapshotCaptureFlags.export, "export", false, "also export the snapshot to the archive")

	snapshotListCmd.Flags().BoolVar(&snapshotListAll, "all", false, "list every ring")
	snapshotShowCmd.Flags().BoolVar(&snapshotShowFlags.latest, "latest", false, "show the newest snapshot")
	snapshotShowCmd.Flags().IntVar(&snapshotShowFlags.cols, "cols", 16, "bytes per row")
	snapshotPruneCmd.Flags().IntVar(&snapshotPruneKeep, "keep", 0, "snapshots to keep (default from context)")

	snapshotCmd.AddCommand(snapshotCaptureCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.AddCommand(snapshotExportCmd)
	snapshotCmd.AddCommand(snapshotImportCmd)
	snapshotCmd.AddCommand(snapshotDeleteCmd)
	snapshotCmd.AddCommand(snapshotPruneCmd)
	rootCmd.AddCommand(snapshotCmd)
}
