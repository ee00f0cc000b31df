package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/ensnano-geometry/internal/security"
	"github.com/banshee-data/ensnano-geometry/internal/storage/sqlite"
)

// snapshotCommand groups the snapshot database subcommands.
func (c *CLI) snapshotCommand() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage design snapshots and recorded runs",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath, "snapshot database")

	open := func() (*sqlite.Store, error) {
		return sqlite.Open(dbPath)
	}
	cmd.AddCommand(c.snapshotSaveCommand(open))
	cmd.AddCommand(c.snapshotListCommand(open))
	cmd.AddCommand(c.snapshotShowCommand(open))
	cmd.AddCommand(c.snapshotDeleteCommand(open))
	cmd.AddCommand(c.snapshotRunsCommand(open))
	return cmd
}

type storeOpener func() (*sqlite.Store, error)

func (c *CLI) snapshotSaveCommand(open storeOpener) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "save <design>",
		Short: "Store a design file as a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := c.loadDesign(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()
			snap, err := store.SaveSnapshot(name, d)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), snap.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot name (default: design file name)")
	return cmd
}

func (c *CLI) snapshotListCommand(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()
			list, err := store.ListSnapshots()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tHELICES\tSTRANDS\tCREATED")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", s.ID, s.Name, s.HelixCount, s.StrandCount, s.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

// snapshotShowCommand prints a snapshot's metadata, or writes its design to
// --out.
func (c *CLI) snapshotShowCommand(open storeOpener) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a snapshot or export its design",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()
			snap, err := store.GetSnapshot(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				return printJSON(cmd.OutOrStdout(), snap)
			}
			if out == "-" {
				out = security.FileName(snap.Name) + ".json"
			}
			return c.saveDesign(snap.Design, out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", `write the design here ("-" names the file after the snapshot)`)
	return cmd
}

func (c *CLI) snapshotDeleteCommand(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot and its runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.DeleteSnapshot(args[0]); err != nil {
				return err
			}
			c.Logger.Info("deleted snapshot", "id", args[0])
			return nil
		},
	}
}

func (c *CLI) snapshotRunsCommand(open storeOpener) *cobra.Command {
	var snapshotID string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded relaxations, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()
			runs, err := store.ListRuns(snapshotID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSNAPSHOT\tSEED\tSTERIC\tCROSSOVER\tINITIAL\tFINAL\tSTEPS\tSTOP")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%g\t%g\t%.6g\t%.6g\t%d\t%s\n",
					r.ID, r.SnapshotID, r.Seed, r.StericWeight, r.CrossoverWeight,
					r.InitialStrain, r.FinalStrain, r.Steps, r.StopReason)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&snapshotID, "snapshot", "", "only runs of this snapshot")
	return cmd
}
