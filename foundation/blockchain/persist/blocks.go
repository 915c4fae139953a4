package persist

import (
	"fmt"

	"github.com/ardanlabs/blockvault/foundation/blockchain/database"
	"github.com/ardanlabs/blockvault/foundation/blockchain/storage"
	"github.com/ardanlabs/blockvault/foundation/events"
)

// BlockStore maintains the blocks table keyed by block index.
type BlockStore struct {
	m *Manager
}

// ReplaceAll clears the table and stores the specified blocks in a single
// batch. Nothing is written when any block can't be encoded. A snapshot of
// the blocks is exported once the write succeeds.
func (bs *BlockStore) ReplaceAll(blocks []database.Block) error {
	b := storage.NewBatch()
	if err := bs.stage(b, blocks); err != nil {
		return err
	}

	if err := bs.m.write(b, "blocks.replaceAll"); err != nil {
		return err
	}

	bs.m.ev("persist: BlockStore.ReplaceAll: stored blocks[%d]", len(blocks))
	bs.saved(blocks)

	return nil
}

// stage adds the operations that replace the table contents to the batch.
func (bs *BlockStore) stage(b *storage.Batch, blocks []database.Block) error {
	if err := checkBlocks(blocks); err != nil {
		return err
	}

	b.Clear(storage.TableBlocks)

	for _, block := range blocks {
		value, err := encodeRecord(bs.m, block)
		if err != nil {
			return fmt.Errorf("encode block %d: %w", block.Index, err)
		}
		b.Put(storage.TableBlocks, storage.Uint64Key(block.Index), value)
	}

	return nil
}

// saved runs what follows a successful replace of the table.
func (bs *BlockStore) saved(blocks []database.Block) {
	if _, err := bs.m.Backups.Export(SnapshotBlockchain, blocks); err != nil {
		bs.m.ev("persist: BlockStore.ReplaceAll: WARNING: snapshot: %s", err)
	}

	bs.m.send(events.TypeBlockchainSaved, len(blocks))
}

// Append stores a single new block. ErrDuplicateKey is returned when a
// block with the same index is already stored.
func (bs *BlockStore) Append(block database.Block) error {
	if err := block.CheckData(); err != nil {
		return err
	}

	value, err := encodeRecord(bs.m, block)
	if err != nil {
		return fmt.Errorf("encode block %d: %w", block.Index, err)
	}

	bs.m.mu.Lock()
	defer bs.m.mu.Unlock()

	key := storage.Uint64Key(block.Index)

	exists, err := bs.m.engine.Has(storage.TableBlocks, key)
	if err != nil {
		return &StorageError{Op: "blocks.append", Err: err}
	}

	if exists {
		return fmt.Errorf("block index %d: %w", block.Index, ErrDuplicateKey)
	}

	b := storage.NewBatch()
	b.Put(storage.TableBlocks, key, value)

	if err := bs.m.engine.Write(b); err != nil {
		return &StorageError{Op: "blocks.append", Err: err}
	}

	bs.m.ev("persist: BlockStore.Append: stored block[%d] hash[%s]", block.Index, block.Hash)
	bs.m.send(events.TypeBlockAdded, block)

	return nil
}

// LoadAll returns the stored blocks in ascending index order. Blocks that
// fail their integrity check are excluded.
func (bs *BlockStore) LoadAll() ([]database.Block, error) {
	return loadTable[database.Block](bs.m, storage.TableBlocks, "blocks.loadAll")
}

// Latest returns the block with the highest index. ErrNotFound is returned
// when no valid block is stored.
func (bs *BlockStore) Latest() (database.Block, error) {
	blocks, err := bs.LoadAll()
	if err != nil {
		return database.Block{}, err
	}

	if len(blocks) == 0 {
		return database.Block{}, ErrNotFound
	}

	return blocks[len(blocks)-1], nil
}

// Count returns the number of stored blocks.
func (bs *BlockStore) Count() (int, error) {
	return countTable(bs.m, storage.TableBlocks, "blocks.count")
}

// Clear removes every stored block.
func (bs *BlockStore) Clear() error {
	return clearTable(bs.m, storage.TableBlocks, "blocks.clear")
}

// =============================================================================

// checkBlocks rejects blocks that can't be stored as a set.
func checkBlocks(blocks []database.Block) error {
	seen := make(map[uint64]struct{}, len(blocks))
	for _, block := range blocks {
		if err := block.CheckData(); err != nil {
			return err
		}
		if _, exists := seen[block.Index]; exists {
			return fmt.Errorf("block index %d: %w", block.Index, ErrDuplicateKey)
		}
		seen[block.Index] = struct{}{}
	}
	return nil
}
