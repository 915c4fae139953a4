package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func verifyCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify every stored block.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.open()
			if err != nil {
				return err
			}
			defer st.Shutdown()

			report, err := st.ValidateChain()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if err := printJSON(out, report); err != nil {
					return err
				}
			} else {
				for _, res := range report.PerBlock {
					mark := "ok"
					if !res.Valid {
						mark = "INVALID"
					}
					fmt.Fprintf(out, "block %d  %s  %s\n", res.Index, res.Hash, mark)
					for _, e := range res.Errors {
						fmt.Fprintf(out, "    %s\n", e)
					}
				}
				fmt.Fprintf(out, "blocks: %d  valid: %d  invalid: %d\n", report.TotalBlocks, report.ValidBlocks, report.InvalidBlocks)
			}

			if !report.IsValid {
				return fmt.Errorf("chain invalid: %d of %d blocks failed", report.InvalidBlocks, report.TotalBlocks)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON.")

	return cmd
}
