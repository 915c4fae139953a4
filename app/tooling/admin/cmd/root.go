// Package cmd contains the admin commands for working with a stored vault.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ardanlabs/blockvault/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockvault/foundation/blockchain/persist"
	"github.com/ardanlabs/blockvault/foundation/blockchain/state"
	"github.com/ardanlabs/blockvault/foundation/blockchain/storage/leveldb"
	"github.com/ardanlabs/blockvault/foundation/logger"
)

// app holds the flags shared by every command.
type app struct {
	dbPath      string
	genesisPath string
	retention   int
	verbose     bool
	log         *zap.SugaredLogger
}

// Execute runs the admin program against the os arguments.
func Execute(build string) {
	if err := newRootCmd(build).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(build string) *cobra.Command {
	var a app

	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Administer a blockvault store",
		Version:       build,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New("ADMIN", "stderr")
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.dbPath, "db", "d", "zblock/vault.db", "Path to the leveldb store.")
	rootCmd.PersistentFlags().StringVarP(&a.genesisPath, "genesis", "g", genesis.DefaultPath, "Path to the genesis file.")
	rootCmd.PersistentFlags().IntVarP(&a.retention, "retention", "r", persist.DefaultRetention, "Snapshots kept per type.")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log store activity to stderr.")

	rootCmd.AddCommand(
		verifyCmd(&a),
		exportCmd(&a),
		importCmd(&a),
		backupsCmd(&a),
		restoreCmd(&a),
		mineCmd(&a),
		statsCmd(&a),
		clearCmd(&a),
	)

	return rootCmd
}

// open constructs the state over the leveldb store. The caller must call
// Shutdown on the returned state.
func (a *app) open() (*state.State, error) {
	gen, err := genesis.Load(a.genesisPath)
	if err != nil {
		return nil, fmt.Errorf("loading genesis: %w", err)
	}

	engine, err := leveldb.New(a.dbPath)
	if err != nil {
		return nil, err
	}

	mgr, err := persist.New(persist.Config{
		Engine:    engine,
		Retention: a.retention,
		EvHandler: a.ev,
	})
	if err != nil {
		engine.Close()
		return nil, err
	}

	st, err := state.New(state.Config{
		Manager:   mgr,
		Genesis:   gen,
		EvHandler: a.ev,
	})
	if err != nil {
		mgr.Close()
		return nil, err
	}

	return st, nil
}

func (a *app) ev(v string, args ...any) {
	if !a.verbose || a.log == nil {
		return
	}
	a.log.Infow(fmt.Sprintf(v, args...), "traceid", "00000000-0000-0000-0000-000000000000")
}

// printJSON writes the value as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}
