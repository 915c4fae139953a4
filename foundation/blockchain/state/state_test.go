package state_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ardanlabs/blockvault/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockvault/foundation/blockchain/persist"
	"github.com/ardanlabs/blockvault/foundation/blockchain/signature"
	"github.com/ardanlabs/blockvault/foundation/blockchain/state"
	"github.com/ardanlabs/blockvault/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/blockvault/foundation/events"
	"github.com/ardanlabs/blockvault/foundation/logger"
	"github.com/ardanlabs/blockvault/foundation/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func ifErrFailNow(t *testing.T, err error) {
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

func newState(t *testing.T, gen genesis.Genesis) *state.State {
	log, err := logger.New("TEST")
	ifErrFailNow(t, err)
	t.Cleanup(func() { log.Sync() })

	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...), "traceid", "00000000-0000-0000-0000-000000000000")
	}

	evts := events.New()

	mgr, err := persist.New(persist.Config{
		Engine:    memory.New(),
		EvHandler: ev,
		Events:    evts,
	})
	ifErrFailNow(t, err)

	st, err := state.New(state.Config{
		Manager:   mgr,
		Genesis:   gen,
		BatchSize: 100,
		EvHandler: ev,
		Events:    evts,
	})
	ifErrFailNow(t, err)

	return st
}

func Test_MineChain(t *testing.T) {
	t.Log("Given the need to mine a chain and record the rewards.")
	{
		gen := genesis.Default()
		gen.Difficulty = 1
		gen.MiningReward = 50
		gen.Workers = 2

		st := newState(t, gen)
		defer st.Shutdown()

		ctx := context.Background()

		genBlock, record, err := st.MineNewBlock(ctx, "genesis", 1, nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine the genesis block: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to mine the genesis block.", success)

		if genBlock.Index != 0 || genBlock.PreviousHash != signature.GenesisHash {
			t.Fatalf("\t%s\tShould link the first block to the genesis sentinel: %+v", failed, genBlock)
		}
		t.Logf("\t%s\tShould link the first block to the genesis sentinel.", success)

		if record.Reward != 50 || record.BlockHash != genBlock.Hash {
			t.Fatalf("\t%s\tShould record the reward for the block: %+v", failed, record)
		}
		t.Logf("\t%s\tShould record the reward for the block.", success)

		block1, _, err := st.MineNewBlock(ctx, "block 1", 1, nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine the next block: %v", failed, err)
		}

		if block1.Index != 1 || block1.PreviousHash != genBlock.Hash {
			t.Fatalf("\t%s\tShould link the next block to the first: %+v", failed, block1)
		}
		t.Logf("\t%s\tShould link the next block to the first.", success)

		report, err := st.ValidateChain()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to validate the chain: %v", failed, err)
		}

		if !report.IsValid || report.TotalBlocks != 2 {
			t.Fatalf("\t%s\tShould get a valid chain of 2 blocks: %+v", failed, report)
		}
		t.Logf("\t%s\tShould get a valid chain of 2 blocks.", success)

		history, err := st.RetrieveHistory()
		if err != nil || len(history) != 2 {
			t.Fatalf("\t%s\tShould have a record per block: %d %v", failed, len(history), err)
		}
		t.Logf("\t%s\tShould have a record per block.", success)
	}
}

func Test_MineCancelled(t *testing.T) {
	t.Log("Given the need to never store a block from a cancelled search.")
	{
		st := newState(t, genesis.Default())
		defer st.Shutdown()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := st.MineNewBlock(ctx, "never", 0, nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("\t%s\tShould get context.Canceled: %v", failed, err)
		}
		t.Logf("\t%s\tShould get context.Canceled.", success)

		n, err := st.RetrieveBlockCount()
		if err != nil || n != 0 {
			t.Fatalf("\t%s\tShould not store a block: %d %v", failed, n, err)
		}
		t.Logf("\t%s\tShould not store a block.", success)
	}
}

func Test_MineInvalidTemplate(t *testing.T) {
	t.Log("Given the need to reject a block template that can't be stored.")
	{
		tt := []struct {
			name   string
			bundle string
			data   string
			field  string
		}{
			{"dataNotUTF8", "", "file\xff\xfe", "data"},
			{"malformedPreviousHash", `{"blockchain":[{"index":0,"hash":"bad","previousHash":"bad","data":"x","timestamp":1700000000000,"nonce":0}]}`, "next", "previousHash"},
		}

		for _, tst := range tt {
			f := func(t *testing.T) {
				st := newState(t, genesis.Default())
				defer st.Shutdown()

				if tst.bundle != "" {
					if err := st.ImportBundle([]byte(tst.bundle)); err != nil {
						t.Fatalf("\t%s\tTest %s:\tShould be able to store the chain: %v", failed, tst.name, err)
					}
				}

				before, err := st.RetrieveBlockCount()
				ifErrFailNow(t, err)

				_, _, err = st.MineNewBlock(context.Background(), tst.data, 0, nil)
				if !validate.IsFieldErrors(err) {
					t.Fatalf("\t%s\tTest %s:\tShould get field errors: %v", failed, tst.name, err)
				}
				t.Logf("\t%s\tTest %s:\tShould get field errors.", success, tst.name)

				if _, exists := validate.GetFieldErrors(err).Fields()[tst.field]; !exists {
					t.Fatalf("\t%s\tTest %s:\tShould name the %s field: %v", failed, tst.name, tst.field, err)
				}
				t.Logf("\t%s\tTest %s:\tShould name the %s field.", success, tst.name, tst.field)

				after, err := st.RetrieveBlockCount()
				if err != nil || after != before {
					t.Fatalf("\t%s\tTest %s:\tShould not store a block: %d %v", failed, tst.name, after, err)
				}
				t.Logf("\t%s\tTest %s:\tShould not store a block.", success, tst.name)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Settings(t *testing.T) {
	t.Log("Given the need to take mining values from the saved settings.")
	{
		gen := genesis.Default()
		gen.Difficulty = 2
		gen.MiningReward = 10
		gen.Workers = 1

		st := newState(t, gen)
		defer st.Shutdown()

		if st.RetrieveDifficulty() != 2 || st.RetrieveReward() != 10 || st.RetrieveWorkers() != 1 {
			t.Fatalf("\t%s\tShould use the genesis values without settings.", failed)
		}
		t.Logf("\t%s\tShould use the genesis values without settings.", success)

		doc := []byte(`{"mining":{"difficulty":3,"reward":75},"performance":{"workers":4}}`)
		ifErrFailNow(t, st.UpdateSettings(doc))

		if st.RetrieveDifficulty() != 3 || st.RetrieveReward() != 75 || st.RetrieveWorkers() != 4 {
			t.Fatalf("\t%s\tShould use the saved settings.", failed)
		}
		t.Logf("\t%s\tShould use the saved settings.", success)
	}
}

func Test_Snapshots(t *testing.T) {
	t.Log("Given the need to snapshot and roll back the chain.")
	{
		gen := genesis.Default()
		gen.Workers = 1

		st := newState(t, gen)
		defer st.Shutdown()

		ctx := context.Background()

		_, _, err := st.MineNewBlock(ctx, "genesis", 1, nil)
		ifErrFailNow(t, err)

		snap, err := st.CreateSnapshot(persist.SnapshotBlockchain)
		ifErrFailNow(t, err)
		t.Logf("\t%s\tShould be able to create a snapshot.", success)

		_, _, err = st.MineNewBlock(ctx, "block 1", 1, nil)
		ifErrFailNow(t, err)

		ifErrFailNow(t, st.ApplySnapshot(snap.ID))

		n, _ := st.RetrieveBlockCount()
		if n != 1 {
			t.Fatalf("\t%s\tShould hold the blocks of the snapshot: %d", failed, n)
		}
		t.Logf("\t%s\tShould hold the blocks of the snapshot.", success)

		if _, err := st.CreateSnapshot("bogus"); err == nil {
			t.Fatalf("\t%s\tShould reject an unknown snapshot type.", failed)
		}
		t.Logf("\t%s\tShould reject an unknown snapshot type.", success)

		full, err := st.CreateSnapshot(persist.SnapshotFull)
		ifErrFailNow(t, err)

		ifErrFailNow(t, st.Reset())

		stats, _ := st.RetrieveStats()
		if stats.Blocks != 0 || stats.Backups != 0 {
			t.Fatalf("\t%s\tShould have nothing stored after a reset: %+v", failed, stats)
		}
		t.Logf("\t%s\tShould have nothing stored after a reset.", success)

		if _, err := st.RetrieveSnapshotData(full.ID); !errors.Is(err, persist.ErrNotFound) {
			t.Fatalf("\t%s\tShould have removed the snapshots: %v", failed, err)
		}
		t.Logf("\t%s\tShould have removed the snapshots.", success)
	}
}
