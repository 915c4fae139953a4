// Package persist maintains the durable state of the blockchain: the blocks,
// the mining history, the snapshots taken of both and the user profile.
// Every write goes through the Manager's single write lock and lands in the
// engine as one atomic batch.
package persist

import (
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/blockvault/foundation/blockchain/database"
	"github.com/ardanlabs/blockvault/foundation/blockchain/storage"
	"github.com/ardanlabs/blockvault/foundation/events"
)

// DefaultRetention is the number of snapshots kept per type.
const DefaultRetention = 5

// Config represents the configuration required to start the
// persistence manager.
type Config struct {
	Engine    storage.Engine
	Retention int
	EvHandler database.EventHandler
	Events    *events.Events
	Now       func() time.Time
}

// Manager owns the engine and the stores built on top of it.
type Manager struct {
	engine    storage.Engine
	retention int
	evHandler database.EventHandler
	events    *events.Events
	now       func() time.Time

	mu          sync.Mutex
	initialized bool

	Blocks  *BlockStore
	History *HistoryStore
	Backups *BackupStore
	Profile *ProfileStore
}

// New constructs a manager over the specified engine.
func New(cfg Config) (*Manager, error) {
	if cfg.Engine == nil {
		return nil, errors.New("storage engine required")
	}

	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := Manager{
		engine:    cfg.Engine,
		retention: cfg.Retention,
		evHandler: cfg.EvHandler,
		events:    cfg.Events,
		now:       cfg.Now,
	}

	m.Blocks = &BlockStore{m: &m}
	m.History = &HistoryStore{m: &m}
	m.Backups = &BackupStore{m: &m}
	m.Profile = &ProfileStore{m: &m}

	return &m, nil
}

// Initialize performs maintenance on the stored data. Snapshots beyond the
// retention limit are pruned and the sync time is recorded. Calling it more
// than once does nothing.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	m.ev("persist: Initialize: performing maintenance: retention[%d]", m.retention)

	for _, typ := range SnapshotTypes {
		if err := m.Backups.prune(typ, m.retention); err != nil {
			return err
		}
	}

	if err := m.Profile.saveLastSync(m.now()); err != nil {
		return err
	}

	m.initialized = true

	m.ev("persist: Initialize: maintenance completed")

	return nil
}

// Close releases the engine.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ev("persist: Close: closing storage engine")

	return m.engine.Close()
}

// Events returns the notification channel stores publish to.
func (m *Manager) Events() *events.Events {
	return m.events
}

// =============================================================================

// Stats represents the number of records held per table and the space
// they take.
type Stats struct {
	Blocks        int       `json:"blocks"`
	MiningHistory int       `json:"miningHistory"`
	Backups       int       `json:"backups"`
	Profile       int       `json:"profile"`
	TotalRecords  int       `json:"totalRecords"`
	Size          int64     `json:"size"` // Bytes of keys and values across every table.
	LastSync      time.Time `json:"lastSync"`
}

// Stats returns the record counts for every table.
func (m *Manager) Stats() (Stats, error) {
	tables := []string{storage.TableBlocks, storage.TableMiningHistory, storage.TableBackups, storage.TableProfile}
	counts := make([]int, len(tables))

	var size int64
	for i, table := range tables {
		fn := func(key []byte, value []byte) error {
			counts[i]++
			size += int64(len(key) + len(value))
			return nil
		}

		if err := m.engine.ForEach(table, fn); err != nil {
			return Stats{}, &StorageError{Op: "stats", Err: err}
		}
	}

	lastSync, err := m.Profile.LastSync()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Stats{}, err
	}

	stats := Stats{
		Blocks:        counts[0],
		MiningHistory: counts[1],
		Backups:       counts[2],
		Profile:       counts[3],
		TotalRecords:  counts[0] + counts[1],
		Size:          size,
		LastSync:      lastSync,
	}

	return stats, nil
}

// ClearAll removes everything from every table in one batch.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := storage.NewBatch()
	b.Clear(storage.TableBlocks)
	b.Clear(storage.TableMiningHistory)
	b.Clear(storage.TableBackups)
	b.Clear(storage.TableProfile)

	if err := m.engine.Write(b); err != nil {
		return &StorageError{Op: "clearAll", Err: err}
	}

	m.ev("persist: ClearAll: all tables cleared")
	m.send(events.TypeCleared, nil)

	return nil
}

// =============================================================================

func (m *Manager) ev(v string, args ...any) {
	if m.evHandler != nil {
		m.evHandler(v, args...)
	}
}

// write applies the batch under the write lock.
func (m *Manager) write(b *storage.Batch, op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.engine.Write(b); err != nil {
		return &StorageError{Op: op, Err: err}
	}

	return nil
}

func (m *Manager) send(typ string, data any) {
	m.events.Send(events.NewEvent(typ, data))
}
