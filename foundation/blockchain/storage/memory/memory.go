// Package memory implements the ability to read and write tables to memory
// using maps.
package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ardanlabs/blockvault/foundation/blockchain/storage"
)

// Memory represents the serialization implementation for reading and storing
// tables in memory. This implements the storage.Engine interface.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]map[string][]byte
	closed bool
}

// New constructs an Memory value for use.
func New() *Memory {
	return &Memory{
		tables: make(map[string]map[string][]byte),
	}
}

// Close marks the engine closed. Every call after this returns
// storage.ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.tables = nil
	return nil
}

// Get returns the value stored for the key.
func (m *Memory) Get(table string, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, storage.ErrClosed
	}

	value, exists := m.tables[table][string(key)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return append([]byte{}, value...), nil
}

// Has reports whether the key exists in the table.
func (m *Memory) Has(table string, key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, storage.ErrClosed
	}

	_, exists := m.tables[table][string(key)]
	return exists, nil
}

// ForEach walks the table in key order. The walk works off a copy of the
// table so the function is free to call back into the engine.
func (m *Memory) ForEach(table string, fn func(key []byte, value []byte) error) error {
	m.mu.RLock()

	if m.closed {
		m.mu.RUnlock()
		return storage.ErrClosed
	}

	t := m.tables[table]
	keys := make([]string, 0, len(t))
	values := make(map[string][]byte, len(t))
	for k, v := range t {
		keys = append(keys, k)
		values[k] = v
	}

	m.mu.RUnlock()

	sort.Strings(keys)

	for _, k := range keys {
		if err := fn([]byte(k), append([]byte{}, values[k]...)); err != nil {
			return err
		}
	}

	return nil
}

// Count returns the number of keys in the table.
func (m *Memory) Count(table string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, storage.ErrClosed
	}

	return len(m.tables[table]), nil
}

// Write applies every operation in the batch under a single lock so readers
// see all of the batch or none of it.
func (m *Memory) Write(batch *storage.Batch) error {
	for _, op := range batch.Ops() {
		switch op.Kind {
		case storage.OpPut, storage.OpDelete, storage.OpClear:
		default:
			return fmt.Errorf("unknown batch operation %d", op.Kind)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return storage.ErrClosed
	}

	for _, op := range batch.Ops() {
		switch op.Kind {
		case storage.OpPut:
			t, exists := m.tables[op.Table]
			if !exists {
				t = make(map[string][]byte)
				m.tables[op.Table] = t
			}
			t[string(op.Key)] = op.Value

		case storage.OpDelete:
			delete(m.tables[op.Table], string(op.Key))

		case storage.OpClear:
			delete(m.tables, op.Table)
		}
	}

	return nil
}
