package persist

import (
	"fmt"

	"github.com/ardanlabs/blockvault/foundation/blockchain/storage"
)

// loadTable reads every record of the table in key order. Records that no
// longer decode or fail their integrity check are logged and skipped.
func loadTable[T any](m *Manager, table string, op string) ([]T, error) {
	var items []T

	fn := func(key []byte, value []byte) error {
		rec, err := storage.DecodeRecord[T](value)
		if err != nil {
			cre := CorruptRecordError{Table: table, Key: displayKey(table, key), Err: err}
			m.ev("persist: %s: WARNING: excluding record: %s", op, &cre)
			return nil
		}

		items = append(items, rec.Payload)
		return nil
	}

	if err := m.engine.ForEach(table, fn); err != nil {
		return nil, &StorageError{Op: op, Err: err}
	}

	return items, nil
}

// encodeRecord wraps the payload in its integrity envelope.
func encodeRecord[T any](m *Manager, payload T) ([]byte, error) {
	rec, err := storage.NewRecord(payload, m.now())
	if err != nil {
		return nil, err
	}

	return rec.Encode()
}

// countTable returns the number of records in the table.
func countTable(m *Manager, table string, op string) (int, error) {
	n, err := m.engine.Count(table)
	if err != nil {
		return 0, &StorageError{Op: op, Err: err}
	}

	return n, nil
}

// clearTable removes every record in the table.
func clearTable(m *Manager, table string, op string) error {
	b := storage.NewBatch()
	b.Clear(table)

	return m.write(b, op)
}

func displayKey(table string, key []byte) string {
	if table == storage.TableBlocks {
		if n, err := storage.KeyUint64(key); err == nil {
			return fmt.Sprint(n)
		}
	}
	return string(key)
}
