package state

import (
	"encoding/json"

	"github.com/ardanlabs/blockvault/foundation/blockchain/database"
	"github.com/ardanlabs/blockvault/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockvault/foundation/blockchain/persist"
)

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() (database.Block, error) {
	return s.manager.Blocks.Latest()
}

// RetrieveBlocks returns the stored blocks in index order.
func (s *State) RetrieveBlocks() ([]database.Block, error) {
	return s.manager.Blocks.LoadAll()
}

// RetrieveBlockCount returns the number of stored blocks.
func (s *State) RetrieveBlockCount() (int, error) {
	return s.manager.Blocks.Count()
}

// RetrieveHistory returns the mining records with the most recent first.
func (s *State) RetrieveHistory() ([]database.MiningRecord, error) {
	return s.manager.History.LoadAll()
}

// RetrieveSnapshots returns the snapshots of the type, newest first.
func (s *State) RetrieveSnapshots(typ string) ([]persist.Snapshot, error) {
	return s.manager.Backups.List(typ)
}

// RetrieveSnapshotData returns the verified data of the snapshot.
func (s *State) RetrieveSnapshotData(id string) (json.RawMessage, error) {
	return s.manager.Backups.Restore(id)
}

// RetrieveSettings returns the settings document.
func (s *State) RetrieveSettings() (json.RawMessage, error) {
	return s.manager.Profile.LoadSettings()
}

// RetrieveStats returns the number of records stored per table.
func (s *State) RetrieveStats() (persist.Stats, error) {
	return s.manager.Stats()
}

// RetrieveDifficulty returns the difficulty used when a mining request
// doesn't provide one. A saved setting wins over the genesis value.
func (s *State) RetrieveDifficulty() uint {
	if st, ok := s.storedSettings(); ok && st.Mining.Difficulty > 0 {
		return st.Mining.Difficulty
	}
	return s.genesis.Difficulty
}

// RetrieveReward returns the reward recorded for a mined block. A saved
// setting wins over the genesis value.
func (s *State) RetrieveReward() uint64 {
	if st, ok := s.storedSettings(); ok && st.Mining.Reward > 0 {
		return st.Mining.Reward
	}
	return s.genesis.MiningReward
}

// RetrieveWorkers returns the number of goroutines used to search for a
// nonce. A saved setting wins over the genesis value.
func (s *State) RetrieveWorkers() int {
	if st, ok := s.storedSettings(); ok && st.Performance.Workers > 0 {
		return st.Performance.Workers
	}
	if s.genesis.Workers > 0 {
		return s.genesis.Workers
	}
	return 1
}

// storedSettings returns the settings only when a document was saved.
func (s *State) storedSettings() (persist.Settings, bool) {
	st, ok, err := s.manager.Profile.StoredSettings()
	if err != nil {
		s.evHandler("state: storedSettings: WARNING: %s", err)
		return persist.Settings{}, false
	}

	return st, ok
}
