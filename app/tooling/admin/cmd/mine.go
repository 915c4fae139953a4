package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ardanlabs/blockvault/foundation/blockchain/database"
	"github.com/ardanlabs/blockvault/foundation/validate"
)

func mineCmd(a *app) *cobra.Command {
	var (
		data       string
		difficulty uint
	)

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Mine a block for the data and append it to the chain.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validate.Var("data", data, "required"); err != nil {
				return err
			}
			if err := validate.Var("difficulty", difficulty, "max=64"); err != nil {
				return err
			}

			st, err := a.open()
			if err != nil {
				return err
			}
			defer st.Shutdown()

			if !cmd.Flags().Changed("difficulty") {
				difficulty = st.RetrieveDifficulty()
			}

			// Ctrl-C cancels the search and nothing is stored.
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errOut := cmd.ErrOrStderr()
			progress := func(p database.Progress) {
				fmt.Fprintf(errOut, "\rnonce %d  attempts %d  %.0f H/s", p.Nonce, p.Attempts, p.HashRate)
			}

			block, record, err := st.MineNewBlock(ctx, data, difficulty, progress)
			fmt.Fprintln(errOut)
			if err != nil {
				return fmt.Errorf("mining: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "block %d mined in %dms\n", block.Index, record.MiningTime)
			fmt.Fprintf(out, "hash   %s\n", block.Hash)
			fmt.Fprintf(out, "nonce  %d\n", block.Nonce)
			fmt.Fprintf(out, "reward %d\n", record.Reward)

			return nil
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "Data to record in the block.")
	cmd.Flags().UintVar(&difficulty, "difficulty", 0, "Leading zeros required, the stored setting when not provided.")

	return cmd
}
