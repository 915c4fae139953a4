package state

import (
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/blockvault/foundation/blockchain/persist"
)

// UpdateSettings stores the settings document.
func (s *State) UpdateSettings(doc json.RawMessage) error {
	return s.manager.Profile.SaveSettings(doc)
}

// ImportBundle cancels any active mining session and replaces the stored
// data with the contents of the bundle.
func (s *State) ImportBundle(doc []byte) error {
	s.cancelMining()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.manager.ImportBundle(doc)
}

// ExportBundle returns the document holding everything that is stored.
func (s *State) ExportBundle() ([]byte, error) {
	return s.manager.ExportBundle()
}

// CreateSnapshot stores a snapshot of the current data for the type.
func (s *State) CreateSnapshot(typ string) (persist.Snapshot, error) {
	switch typ {
	case persist.SnapshotBlockchain:
		blocks, err := s.manager.Blocks.LoadAll()
		if err != nil {
			return persist.Snapshot{}, err
		}
		return s.manager.Backups.Export(typ, blocks)

	case persist.SnapshotMiningHistory:
		records, err := s.manager.History.LoadAll()
		if err != nil {
			return persist.Snapshot{}, err
		}
		return s.manager.Backups.Export(typ, records)

	case persist.SnapshotFull:
		return s.manager.BackupAll()
	}

	return persist.Snapshot{}, fmt.Errorf("unknown snapshot type %q", typ)
}

// ApplySnapshot cancels any active mining session and replaces the stored
// data with the contents of the snapshot.
func (s *State) ApplySnapshot(id string) error {
	s.cancelMining()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.manager.ApplySnapshot(id)
}

// Reset cancels any active mining session and removes everything stored.
func (s *State) Reset() error {
	s.cancelMining()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.manager.ClearAll()
}
