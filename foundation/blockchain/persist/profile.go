package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/ardanlabs/blockvault/foundation/blockchain/storage"
)

// Set of keys held in the profile table.
const (
	keyUser     = "user"
	keySettings = "settings"
	keyLastSync = "lastSync"
)

// ProfileVersion is stamped on saved user data.
const ProfileVersion = "1.0.0"

// Settings represents the known parts of the settings document. The
// document itself is stored as provided and may carry more fields.
type Settings struct {
	Mining struct {
		Difficulty uint   `json:"difficulty"`
		Reward     uint64 `json:"reward"`
	} `json:"mining"`
	Notifications struct {
		Enabled bool `json:"enabled"`
		Sound   bool `json:"sound"`
	} `json:"notifications"`
	Performance struct {
		Workers int `json:"workers"`
	} `json:"performance"`
}

// DefaultSettings returns the settings used when none have been saved.
func DefaultSettings() Settings {
	var s Settings
	s.Mining.Difficulty = 4
	s.Mining.Reward = 50
	s.Notifications.Enabled = true
	s.Notifications.Sound = true
	s.Performance.Workers = runtime.NumCPU()
	return s
}

// =============================================================================

// ProfileStore maintains small documents about the user in the profile
// table. The documents are opaque to the store other than the fields it
// stamps on save.
type ProfileStore struct {
	m *Manager
}

// SaveUserData stores the user document stamped with the save time and
// the profile version. The document must be a JSON object.
func (ps *ProfileStore) SaveUserData(doc json.RawMessage) error {
	b := storage.NewBatch()
	if err := ps.stageUserData(b, doc); err != nil {
		return err
	}

	return ps.m.write(b, "profile.saveUserData")
}

// LoadUserData returns the stored user document or nil if none has been
// saved.
func (ps *ProfileStore) LoadUserData() (json.RawMessage, error) {
	return ps.get(keyUser, "profile.loadUserData")
}

// SaveSettings stores the settings document stamped with the update time.
// The document must be a JSON object.
func (ps *ProfileStore) SaveSettings(doc json.RawMessage) error {
	b := storage.NewBatch()
	if err := ps.stageSettings(b, doc); err != nil {
		return err
	}

	return ps.m.write(b, "profile.saveSettings")
}

// LoadSettings returns the stored settings document or the default
// settings if none has been saved.
func (ps *ProfileStore) LoadSettings() (json.RawMessage, error) {
	doc, err := ps.get(keySettings, "profile.loadSettings")
	if err != nil {
		return nil, err
	}

	if doc == nil {
		return json.Marshal(DefaultSettings())
	}

	return doc, nil
}

// StoredSettings returns the known parts of the saved settings document.
// False is returned when no document has been saved.
func (ps *ProfileStore) StoredSettings() (Settings, bool, error) {
	doc, err := ps.get(keySettings, "profile.storedSettings")
	if err != nil || doc == nil {
		return Settings{}, false, err
	}

	var s Settings
	if err := json.Unmarshal(doc, &s); err != nil {
		return Settings{}, false, nil
	}

	return s, true, nil
}

// LastSync returns the time maintenance last ran.
func (ps *ProfileStore) LastSync() (time.Time, error) {
	doc, err := ps.get(keyLastSync, "profile.lastSync")
	if err != nil {
		return time.Time{}, err
	}

	if doc == nil {
		return time.Time{}, ErrNotFound
	}

	ms, err := strconv.ParseInt(string(doc), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last sync: %w", err)
	}

	return time.UnixMilli(ms), nil
}

// =============================================================================

// saveLastSync records the time maintenance ran. The caller must hold the
// manager's write lock.
func (ps *ProfileStore) saveLastSync(now time.Time) error {
	value, err := encodeRecord(ps.m, json.RawMessage(strconv.FormatInt(now.UnixMilli(), 10)))
	if err != nil {
		return err
	}

	b := storage.NewBatch()
	b.Put(storage.TableProfile, []byte(keyLastSync), value)

	if err := ps.m.engine.Write(b); err != nil {
		return &StorageError{Op: "profile.lastSync", Err: err}
	}

	return nil
}

func (ps *ProfileStore) stageUserData(b *storage.Batch, doc json.RawMessage) error {
	now := ps.m.now().UnixMilli()

	stamped, err := stamp(doc, map[string]any{"lastSaved": now, "version": ProfileVersion})
	if err != nil {
		return &ParseError{Field: "userData", Err: err}
	}

	return ps.stage(b, keyUser, stamped)
}

func (ps *ProfileStore) stageSettings(b *storage.Batch, doc json.RawMessage) error {
	now := ps.m.now().UnixMilli()

	stamped, err := stamp(doc, map[string]any{"lastUpdated": now})
	if err != nil {
		return &ParseError{Field: "settings", Err: err}
	}

	return ps.stage(b, keySettings, stamped)
}

func (ps *ProfileStore) stage(b *storage.Batch, key string, doc json.RawMessage) error {
	value, err := encodeRecord(ps.m, doc)
	if err != nil {
		return err
	}

	b.Put(storage.TableProfile, []byte(key), value)
	return nil
}

// get returns nil when the key is missing or the record failed its
// integrity check.
func (ps *ProfileStore) get(key string, op string) (json.RawMessage, error) {
	value, err := ps.m.engine.Get(storage.TableProfile, []byte(key))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, &StorageError{Op: op, Err: err}
	}

	rec, err := storage.DecodeRecord[json.RawMessage](value)
	if err != nil {
		cre := CorruptRecordError{Table: storage.TableProfile, Key: key, Err: err}
		ps.m.ev("persist: ProfileStore: WARNING: ignoring record: %s", &cre)
		return nil, nil
	}

	return rec.Payload, nil
}

// stamp decodes the document as an object and adds the fields to it.
func stamp(doc json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	var obj map[string]any
	if err := json.Unmarshal(doc, &obj); err != nil {
		return nil, err
	}

	if obj == nil {
		return nil, errors.New("document must be an object")
	}

	for k, v := range fields {
		obj[k] = v
	}

	return json.Marshal(obj)
}
