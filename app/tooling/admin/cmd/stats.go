package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the number of records held in each table.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			defer st.Shutdown()

			stats, err := st.RetrieveStats()
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func clearCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove everything stored.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("clear removes all stored data: pass --yes to confirm")
			}

			st, err := a.open()
			if err != nil {
				return err
			}
			defer st.Shutdown()

			if err := st.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "store cleared")

			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm removing everything.")

	return cmd
}
