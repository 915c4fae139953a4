// Package leveldb implements the ability to read and write tables to disk
// using goleveldb. Every table lives under its own key prefix.
package leveldb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/ardanlabs/blockvault/foundation/blockchain/storage"
)

// separator is placed between the table name and the key.
const separator = 0x00

// LevelDB represents the serialization implementation for reading and storing
// tables in a leveldb database. This implements the storage.Engine interface.
type LevelDB struct {
	db *leveldb.DB

	// Clearing a table requires a read of the current keys, so writes are
	// serialized to keep the delete set accurate.
	mu sync.Mutex
}

// New opens or creates the database at the specified path.
func New(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &LevelDB{db: db}, nil
}

// NewInMemory opens a database backed by memory. It behaves like a
// file backed database but nothing survives the process.
func NewInMemory() (*LevelDB, error) {
	db, err := leveldb.Open(lvlstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open memory storage: %w", err)
	}

	return &LevelDB{db: db}, nil
}

// Close releases the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}

// Get returns the value stored for the key.
func (l *LevelDB) Get(table string, key []byte) ([]byte, error) {
	value, err := l.db.Get(tableKey(table, key), nil)
	if err != nil {
		return nil, convert(err)
	}

	return value, nil
}

// Has reports whether the key exists in the table.
func (l *LevelDB) Has(table string, key []byte) (bool, error) {
	ok, err := l.db.Has(tableKey(table, key), nil)
	if err != nil {
		return false, convert(err)
	}

	return ok, nil
}

// ForEach walks the table in key order from a consistent snapshot.
func (l *LevelDB) ForEach(table string, fn func(key []byte, value []byte) error) error {
	snap, err := l.db.GetSnapshot()
	if err != nil {
		return convert(err)
	}
	defer snap.Release()

	prefix := tablePrefix(table)

	iter := snap.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	for iter.Next() {
		key := append([]byte{}, iter.Key()[len(prefix):]...)
		value := append([]byte{}, iter.Value()...)

		if err := fn(key, value); err != nil {
			return err
		}
	}

	return convert(iter.Error())
}

// Count returns the number of keys in the table.
func (l *LevelDB) Count(table string) (int, error) {
	iter := l.db.NewIterator(util.BytesPrefix(tablePrefix(table)), nil)
	defer iter.Release()

	var n int
	for iter.Next() {
		n++
	}

	return n, convert(iter.Error())
}

// Write applies the batch atomically.
func (l *LevelDB) Write(batch *storage.Batch) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var b leveldb.Batch
	pending := make(map[string][][]byte)

	for _, op := range batch.Ops() {
		switch op.Kind {
		case storage.OpPut:
			key := tableKey(op.Table, op.Key)
			b.Put(key, op.Value)
			pending[op.Table] = append(pending[op.Table], key)

		case storage.OpDelete:
			b.Delete(tableKey(op.Table, op.Key))

		case storage.OpClear:
			if err := l.clear(&b, op.Table); err != nil {
				return err
			}
			for _, key := range pending[op.Table] {
				b.Delete(key)
			}
			delete(pending, op.Table)

		default:
			return fmt.Errorf("unknown batch operation %d", op.Kind)
		}
	}

	if err := l.db.Write(&b, &opt.WriteOptions{Sync: true}); err != nil {
		return convert(err)
	}

	return nil
}

// clear adds a delete for every key currently stored in the table. Puts
// that come later in the same batch still land since leveldb replays the
// batch in order.
func (l *LevelDB) clear(b *leveldb.Batch, table string) error {
	iter := l.db.NewIterator(util.BytesPrefix(tablePrefix(table)), nil)
	defer iter.Release()

	for iter.Next() {
		b.Delete(append([]byte{}, iter.Key()...))
	}

	return convert(iter.Error())
}

// =============================================================================

func tablePrefix(table string) []byte {
	return append([]byte(table), separator)
}

func tableKey(table string, key []byte) []byte {
	return append(tablePrefix(table), key...)
}

func convert(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, leveldb.ErrNotFound):
		return storage.ErrNotFound
	case errors.Is(err, leveldb.ErrClosed):
		return storage.ErrClosed
	}
	return err
}
