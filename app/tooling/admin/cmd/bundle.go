package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func exportCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a bundle of everything stored.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			defer st.Shutdown()

			doc, err := st.ExportBundle()
			if err != nil {
				return err
			}

			if out == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), string(doc))
				return err
			}

			if err := os.WriteFile(out, doc, 0o644); err != nil {
				return fmt.Errorf("writing bundle: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bundle written to %s\n", out)

			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "File to write the bundle to, stdout when empty.")

	return cmd
}

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored data with the contents of a bundle.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading bundle: %w", err)
			}

			st, err := a.open()
			if err != nil {
				return err
			}
			defer st.Shutdown()

			if err := st.ImportBundle(doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bundle %s imported\n", args[0])

			return nil
		},
	}
}
