package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ardanlabs/blockvault/foundation/blockchain/persist"
	"github.com/ardanlabs/blockvault/foundation/validate"
)

const snapshotTypes = "oneof=blockchain miningHistory full"

func backupsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List or create snapshots.",
	}

	list := &cobra.Command{
		Use:   "list [type]",
		Short: "List the snapshots for a type, or every type.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			types := persist.SnapshotTypes
			if len(args) == 1 {
				if err := validate.Var("type", args[0], snapshotTypes); err != nil {
					return err
				}
				types = []string{args[0]}
			}

			st, err := a.open()
			if err != nil {
				return err
			}
			defer st.Shutdown()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tTIME\tSIZE\tCHECKSUM")
			for _, typ := range types {
				snaps, err := st.RetrieveSnapshots(typ)
				if err != nil {
					return err
				}
				for _, snap := range snaps {
					ts := snap.Timestamp.Time().Format(time.RFC3339)
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", snap.ID, snap.Type, ts, snap.Size, snap.Checksum[:16])
				}
			}

			return tw.Flush()
		},
	}

	create := &cobra.Command{
		Use:   "create <type>",
		Short: "Create a snapshot of the current data.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.Var("type", args[0], snapshotTypes); err != nil {
				return err
			}

			st, err := a.open()
			if err != nil {
				return err
			}
			defer st.Shutdown()

			snap, err := st.CreateSnapshot(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot %s created\n", snap.ID)

			return nil
		},
	}

	cmd.AddCommand(list, create)

	return cmd
}

func restoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the stored data with the contents of a snapshot.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			defer st.Shutdown()

			if err := st.ApplySnapshot(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot %s restored\n", args[0])

			return nil
		},
	}
}
