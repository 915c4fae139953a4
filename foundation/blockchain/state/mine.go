package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/blockvault/foundation/blockchain/database"
	"github.com/ardanlabs/blockvault/foundation/blockchain/persist"
	"github.com/ardanlabs/blockvault/foundation/validate"
)

// ErrChainChanged is returned when a mined block no longer extends the
// latest stored block.
var ErrChainChanged = errors.New("chain changed while mining")

// =============================================================================

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain. The block and its reward record are only
// stored if the context has not been cancelled by the time the search ends.
func (s *State) MineNewBlock(ctx context.Context, data string, difficulty uint, progress func(database.Progress)) (database.Block, database.MiningRecord, error) {
	s.evHandler("state: MineNewBlock: MINING: find latest block")

	var prevBlock *database.Block
	latest, err := s.manager.Blocks.Latest()
	switch {
	case err == nil:
		prevBlock = &latest
	case !errors.Is(err, persist.ErrNotFound):
		return database.Block{}, database.MiningRecord{}, err
	}

	tmpl := database.NewTemplate(prevBlock, data, time.Now())
	if err := validate.Check(tmpl); err != nil {
		return database.Block{}, database.MiningRecord{}, fmt.Errorf("invalid block template: %w", err)
	}

	workers := s.RetrieveWorkers()

	s.evHandler("state: MineNewBlock: MINING: perform POW: index[%d] difficulty[%d] workers[%d]", tmpl.Index, difficulty, workers)

	cfg := database.SearchConfig{
		BatchSize: s.batchSize,
		Progress:  progress,
	}

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	start := time.Now()
	block, err := database.ParallelPOW(ctx, tmpl, difficulty, workers, cfg, database.EventHandler(s.evHandler))
	if err != nil {
		return database.Block{}, database.MiningRecord{}, err
	}
	duration := time.Since(start)

	s.evHandler("state: MineNewBlock: MINING: update local state: duration[%v]", duration)

	record := database.NewMiningRecord(block, s.RetrieveReward(), duration, time.Now())

	if err := s.updateLocalState(ctx, block, record); err != nil {
		return database.Block{}, database.MiningRecord{}, err
	}

	return block, record, nil
}

// ValidateChain reads the stored chain and verifies every block.
func (s *State) ValidateChain() (database.Report, error) {
	blocks, err := s.manager.Blocks.LoadAll()
	if err != nil {
		return database.Report{}, err
	}

	return database.VerifyChain(blocks, database.EventHandler(s.evHandler)), nil
}

// =============================================================================

// updateLocalState stores the block and its reward record.
func (s *State) updateLocalState(ctx context.Context, block database.Block, record database.MiningRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		s.evHandler("state: updateLocalState: MINING: CANCEL: block discarded")
		return ctx.Err()
	}

	// The chain may have been replaced by an import or restore while the
	// search was running.
	latest, err := s.manager.Blocks.Latest()
	switch {
	case err == nil:
		if latest.Hash != block.PreviousHash || latest.Index+1 != block.Index {
			return fmt.Errorf("%w: latest block[%d]", ErrChainChanged, latest.Index)
		}
	case errors.Is(err, persist.ErrNotFound):
		if block.Index != 0 {
			return fmt.Errorf("%w: no blocks stored", ErrChainChanged)
		}
	default:
		return err
	}

	s.evHandler("state: updateLocalState: write block to disk")

	if err := s.manager.Blocks.Append(block); err != nil {
		return err
	}

	s.evHandler("state: updateLocalState: apply mining reward: reward[%d]", record.Reward)

	if _, err := s.manager.History.Append(record); err != nil {
		return err
	}

	return nil
}
