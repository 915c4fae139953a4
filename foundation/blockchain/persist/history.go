package persist

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/ardanlabs/blockvault/foundation/blockchain/database"
	"github.com/ardanlabs/blockvault/foundation/blockchain/storage"
	"github.com/ardanlabs/blockvault/foundation/events"
)

// HistoryStore maintains the mining history table keyed by record id.
type HistoryStore struct {
	m *Manager
}

// ReplaceAll clears the table and stores the specified records in a single
// batch. A snapshot of the records is exported once the write succeeds.
func (hs *HistoryStore) ReplaceAll(records []database.MiningRecord) error {
	b := storage.NewBatch()
	records, err := hs.stage(b, records)
	if err != nil {
		return err
	}

	if err := hs.m.write(b, "history.replaceAll"); err != nil {
		return err
	}

	hs.m.ev("persist: HistoryStore.ReplaceAll: stored records[%d]", len(records))
	hs.saved(records)

	return nil
}

// stage adds the operations that replace the table contents to the batch.
// The records are returned with any missing id assigned.
func (hs *HistoryStore) stage(b *storage.Batch, records []database.MiningRecord) ([]database.MiningRecord, error) {
	records = append([]database.MiningRecord{}, records...)

	b.Clear(storage.TableMiningHistory)

	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}

		value, err := encodeRecord(hs.m, records[i])
		if err != nil {
			return nil, fmt.Errorf("encode mining record %s: %w", records[i].ID, err)
		}
		b.Put(storage.TableMiningHistory, []byte(records[i].ID), value)
	}

	return records, nil
}

// saved runs what follows a successful replace of the table.
func (hs *HistoryStore) saved(records []database.MiningRecord) {
	if _, err := hs.m.Backups.Export(SnapshotMiningHistory, records); err != nil {
		hs.m.ev("persist: HistoryStore.ReplaceAll: WARNING: snapshot: %s", err)
	}

	hs.m.send(events.TypeHistorySaved, len(records))
}

// Append stores a single mining record. A record without an id is given one.
func (hs *HistoryStore) Append(record database.MiningRecord) (database.MiningRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	value, err := encodeRecord(hs.m, record)
	if err != nil {
		return database.MiningRecord{}, fmt.Errorf("encode mining record %s: %w", record.ID, err)
	}

	b := storage.NewBatch()
	b.Put(storage.TableMiningHistory, []byte(record.ID), value)

	if err := hs.m.write(b, "history.append"); err != nil {
		return database.MiningRecord{}, err
	}

	hs.m.ev("persist: HistoryStore.Append: stored record[%s] reward[%d]", record.ID, record.Reward)
	hs.m.send(events.TypeHistoryAdded, record)

	return record, nil
}

// LoadAll returns the stored records with the most recent first.
func (hs *HistoryStore) LoadAll() ([]database.MiningRecord, error) {
	records, err := loadTable[database.MiningRecord](hs.m, storage.TableMiningHistory, "history.loadAll")
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp == records[j].Timestamp {
			return records[i].ID < records[j].ID
		}
		return records[i].Timestamp > records[j].Timestamp
	})

	return records, nil
}

// Count returns the number of stored records.
func (hs *HistoryStore) Count() (int, error) {
	return countTable(hs.m, storage.TableMiningHistory, "history.count")
}

// Clear removes every stored record.
func (hs *HistoryStore) Clear() error {
	return clearTable(hs.m, storage.TableMiningHistory, "history.clear")
}
