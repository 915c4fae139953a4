package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/ardanlabs/blockvault/foundation/blockchain/database"
	"github.com/ardanlabs/blockvault/foundation/blockchain/signature"
	"github.com/ardanlabs/blockvault/foundation/blockchain/storage"
	"github.com/ardanlabs/blockvault/foundation/events"
)

// Set of snapshot types.
const (
	SnapshotBlockchain    = "blockchain"
	SnapshotMiningHistory = "miningHistory"
	SnapshotFull          = "full"
)

// SnapshotTypes lists every snapshot type retention is enforced on.
var SnapshotTypes = []string{SnapshotBlockchain, SnapshotMiningHistory, SnapshotFull}

// Snapshot represents a point in time copy of some stored data.
type Snapshot struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Data      json.RawMessage    `json:"data,omitempty"`
	Timestamp database.Timestamp `json:"timestamp"`
	Size      int                `json:"size"`
	Checksum  string             `json:"checksum"`
}

// lastID holds the last nanosecond value used for a snapshot id.
var lastID atomic.Int64

// nextID returns a value that is strictly greater than any returned before
// in this process.
func nextID(now int64) int64 {
	for {
		last := lastID.Load()
		next := now
		if next <= last {
			next = last + 1
		}
		if lastID.CompareAndSwap(last, next) {
			return next
		}
	}
}

// =============================================================================

// BackupStore maintains the snapshots table keyed by snapshot id.
type BackupStore struct {
	m *Manager
}

// Export stores a snapshot of the data under the specified type. Once
// stored, the oldest snapshots of that type beyond the retention limit
// are deleted.
func (bs *BackupStore) Export(typ string, data any) (Snapshot, error) {
	if typ == "" || strings.Contains(typ, "_") {
		return Snapshot{}, fmt.Errorf("invalid snapshot type %q", typ)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s", signature.ErrSerialization, err)
	}

	checksum, err := signature.Fingerprint(json.RawMessage(raw))
	if err != nil {
		return Snapshot{}, err
	}

	now := bs.m.now()

	snap := Snapshot{
		ID:        fmt.Sprintf("%s_%d", typ, nextID(now.UnixNano())),
		Type:      typ,
		Data:      raw,
		Timestamp: database.NewTimestamp(now),
		Size:      len(raw),
		Checksum:  checksum,
	}

	value, err := json.Marshal(snap)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}

	bs.m.mu.Lock()
	defer bs.m.mu.Unlock()

	b := storage.NewBatch()
	b.Put(storage.TableBackups, []byte(snap.ID), value)

	if err := bs.m.engine.Write(b); err != nil {
		return Snapshot{}, &StorageError{Op: "backups.export", Err: err}
	}

	bs.m.ev("persist: BackupStore.Export: snapshot[%s] size[%d]", snap.ID, snap.Size)

	if err := bs.prune(typ, bs.m.retention); err != nil {
		bs.m.ev("persist: BackupStore.Export: WARNING: prune: %s", err)
	}

	bs.m.send(events.TypeBackupCreated, snap.ID)

	return snap, nil
}

// Restore looks up the snapshot and returns its data once the checksum has
// been verified. No store is modified.
func (bs *BackupStore) Restore(id string) (json.RawMessage, error) {
	snap, err := bs.restore(id)
	if err != nil {
		return nil, err
	}

	return snap.Data, nil
}

// List returns the metadata of the snapshots of the specified type, newest
// first. The data is not included. An empty type lists every snapshot.
func (bs *BackupStore) List(typ string) ([]Snapshot, error) {
	snaps, err := bs.list(typ)
	if err != nil {
		return nil, err
	}

	sort.Slice(snaps, func(i, j int) bool {
		return older(snaps[j], snaps[i])
	})

	for i := range snaps {
		snaps[i].Data = nil
	}

	return snaps, nil
}

// Count returns the number of stored snapshots.
func (bs *BackupStore) Count() (int, error) {
	return countTable(bs.m, storage.TableBackups, "backups.count")
}

// =============================================================================

func (bs *BackupStore) restore(id string) (Snapshot, error) {
	value, err := bs.m.engine.Get(storage.TableBackups, []byte(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Snapshot{}, fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
		}
		return Snapshot{}, &StorageError{Op: "backups.restore", Err: err}
	}

	var snap Snapshot
	if err := json.Unmarshal(value, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w: %s", id, ErrCorruptBackup, err)
	}

	if !signature.Match(snap.Data, snap.Checksum) {
		bs.m.ev("persist: BackupStore.Restore: WARNING: snapshot[%s] checksum mismatch", id)
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", id, ErrCorruptBackup)
	}

	bs.m.ev("persist: BackupStore.Restore: snapshot[%s] verified", id)

	return snap, nil
}

// list reads every snapshot of the type. Snapshots that no longer decode
// are skipped.
func (bs *BackupStore) list(typ string) ([]Snapshot, error) {
	var snaps []Snapshot

	fn := func(key []byte, value []byte) error {
		if typ != "" && !strings.HasPrefix(string(key), typ+"_") {
			return nil
		}

		var snap Snapshot
		if err := json.Unmarshal(value, &snap); err != nil {
			cre := CorruptRecordError{Table: storage.TableBackups, Key: string(key), Err: err}
			bs.m.ev("persist: BackupStore.List: WARNING: excluding snapshot: %s", &cre)
			return nil
		}

		snaps = append(snaps, snap)
		return nil
	}

	if err := bs.m.engine.ForEach(storage.TableBackups, fn); err != nil {
		return nil, &StorageError{Op: "backups.list", Err: err}
	}

	return snaps, nil
}

// prune deletes the oldest snapshots of the type beyond the keep count.
// The caller must hold the manager's write lock.
func (bs *BackupStore) prune(typ string, keep int) error {
	snaps, err := bs.list(typ)
	if err != nil {
		return err
	}

	if len(snaps) <= keep {
		return nil
	}

	sort.Slice(snaps, func(i, j int) bool {
		return older(snaps[i], snaps[j])
	})

	b := storage.NewBatch()
	for _, snap := range snaps[:len(snaps)-keep] {
		b.Delete(storage.TableBackups, []byte(snap.ID))
		bs.m.ev("persist: BackupStore.prune: deleting snapshot[%s]", snap.ID)
	}

	if err := bs.m.engine.Write(b); err != nil {
		return &StorageError{Op: "backups.prune", Err: err}
	}

	return nil
}

// older orders snapshots by timestamp and then by the sequence in the id.
func older(a Snapshot, b Snapshot) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return sequence(a.ID) < sequence(b.ID)
}

func sequence(id string) int64 {
	i := strings.LastIndexByte(id, '_')
	if i < 0 {
		return 0
	}

	n, _ := strconv.ParseInt(id[i+1:], 10, 64)
	return n
}
