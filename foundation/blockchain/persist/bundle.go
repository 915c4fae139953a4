package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/blockvault/foundation/blockchain/database"
	"github.com/ardanlabs/blockvault/foundation/blockchain/storage"
	"github.com/ardanlabs/blockvault/foundation/events"
)

// BundleVersion is the version written into exported bundles.
const BundleVersion = "1.0.0"

// Bundle represents the document holding everything that is stored.
type Bundle struct {
	Version       string                  `json:"version"`
	Timestamp     string                  `json:"timestamp"`
	Blockchain    []database.Block        `json:"blockchain"`
	MiningHistory []database.MiningRecord `json:"miningHistory"`
	UserData      json.RawMessage         `json:"userData"`
	Settings      json.RawMessage         `json:"settings"`
}

// Bundle collects the current contents of every store.
func (m *Manager) Bundle() (Bundle, error) {
	blocks, err := m.Blocks.LoadAll()
	if err != nil {
		return Bundle{}, err
	}

	records, err := m.History.LoadAll()
	if err != nil {
		return Bundle{}, err
	}

	userData, err := m.Profile.LoadUserData()
	if err != nil {
		return Bundle{}, err
	}

	settings, err := m.Profile.LoadSettings()
	if err != nil {
		return Bundle{}, err
	}

	if blocks == nil {
		blocks = []database.Block{}
	}

	if records == nil {
		records = []database.MiningRecord{}
	}

	if userData == nil {
		userData = json.RawMessage("null")
	}

	bundle := Bundle{
		Version:       BundleVersion,
		Timestamp:     m.now().UTC().Format(time.RFC3339Nano),
		Blockchain:    blocks,
		MiningHistory: records,
		UserData:      userData,
		Settings:      settings,
	}

	return bundle, nil
}

// ExportBundle returns the indented JSON document of the current contents
// of every store.
func (m *Manager) ExportBundle() ([]byte, error) {
	bundle, err := m.Bundle()
	if err != nil {
		return nil, err
	}

	doc, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}

	m.ev("persist: ExportBundle: blocks[%d] records[%d]", len(bundle.Blockchain), len(bundle.MiningHistory))

	return doc, nil
}

// BackupAll stores a snapshot of the full bundle.
func (m *Manager) BackupAll() (Snapshot, error) {
	bundle, err := m.Bundle()
	if err != nil {
		return Snapshot{}, err
	}

	return m.Backups.Export(SnapshotFull, bundle)
}

// ImportBundle decodes the document and replaces the contents of each
// store whose key is present. Keys that are absent or null are left alone.
// The whole document is decoded before any store is touched, so a
// ParseError means nothing changed. Every store is then written in one
// batch, so a storage failure leaves nothing changed either.
func (m *Manager) ImportBundle(doc []byte) error {
	imp, err := parseBundle(doc)
	if err != nil {
		return err
	}

	b := storage.NewBatch()

	if imp.blocks != nil {
		if err := m.Blocks.stage(b, *imp.blocks); err != nil {
			return err
		}
	}

	var records []database.MiningRecord
	if imp.records != nil {
		if records, err = m.History.stage(b, *imp.records); err != nil {
			return err
		}
	}

	if imp.userData != nil {
		if err := m.Profile.stageUserData(b, imp.userData); err != nil {
			return err
		}
	}

	if imp.settings != nil {
		if err := m.Profile.stageSettings(b, imp.settings); err != nil {
			return err
		}
	}

	if err := m.write(b, "importBundle"); err != nil {
		return err
	}

	m.ev("persist: ImportBundle: import applied: keys%v", imp.keys)

	if imp.blocks != nil {
		m.Blocks.saved(*imp.blocks)
	}
	if imp.records != nil {
		m.History.saved(records)
	}

	m.send(events.TypeImported, imp.keys)

	return nil
}

// ApplySnapshot restores the snapshot and replaces the stores it covers
// with its data.
func (m *Manager) ApplySnapshot(id string) error {
	snap, err := m.Backups.restore(id)
	if err != nil {
		return err
	}

	m.ev("persist: ApplySnapshot: applying snapshot[%s] type[%s]", snap.ID, snap.Type)

	switch snap.Type {
	case SnapshotBlockchain:
		var blocks []database.Block
		if err := json.Unmarshal(snap.Data, &blocks); err != nil {
			return &ParseError{Field: SnapshotBlockchain, Err: err}
		}
		return m.Blocks.ReplaceAll(blocks)

	case SnapshotMiningHistory:
		var records []database.MiningRecord
		if err := json.Unmarshal(snap.Data, &records); err != nil {
			return &ParseError{Field: SnapshotMiningHistory, Err: err}
		}
		return m.History.ReplaceAll(records)

	case SnapshotFull:
		return m.ImportBundle(snap.Data)
	}

	return fmt.Errorf("unknown snapshot type %q", snap.Type)
}

// =============================================================================

// bundleImport holds the decoded values of the keys present in a bundle.
type bundleImport struct {
	keys     []string
	blocks   *[]database.Block
	records  *[]database.MiningRecord
	userData json.RawMessage
	settings json.RawMessage
}

func parseBundle(doc []byte) (bundleImport, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(doc, &raw); err != nil {
		return bundleImport{}, &ParseError{Field: "document", Err: err}
	}

	if raw == nil {
		return bundleImport{}, &ParseError{Field: "document", Err: errors.New("document must be an object")}
	}

	var imp bundleImport

	if v, ok := present(raw, "blockchain"); ok {
		var blocks []database.Block
		if err := json.Unmarshal(v, &blocks); err != nil {
			return bundleImport{}, &ParseError{Field: "blockchain", Err: err}
		}
		if err := checkBlocks(blocks); err != nil {
			return bundleImport{}, &ParseError{Field: "blockchain", Err: err}
		}
		imp.blocks = &blocks
		imp.keys = append(imp.keys, "blockchain")
	}

	if v, ok := present(raw, "miningHistory"); ok {
		var records []database.MiningRecord
		if err := json.Unmarshal(v, &records); err != nil {
			return bundleImport{}, &ParseError{Field: "miningHistory", Err: err}
		}
		imp.records = &records
		imp.keys = append(imp.keys, "miningHistory")
	}

	if v, ok := present(raw, "userData"); ok {
		if err := isObject(v); err != nil {
			return bundleImport{}, &ParseError{Field: "userData", Err: err}
		}
		imp.userData = v
		imp.keys = append(imp.keys, "userData")
	}

	if v, ok := present(raw, "settings"); ok {
		if err := isObject(v); err != nil {
			return bundleImport{}, &ParseError{Field: "settings", Err: err}
		}
		imp.settings = v
		imp.keys = append(imp.keys, "settings")
	}

	return imp, nil
}

func present(raw map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	v, exists := raw[key]
	if !exists || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}

func isObject(v json.RawMessage) error {
	var obj map[string]json.RawMessage
	return json.Unmarshal(v, &obj)
}
