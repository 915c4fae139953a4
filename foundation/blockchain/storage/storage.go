// Package storage defines the contract for the durable tables the
// blockchain is persisted into and the envelope every record is stored in.
package storage

import (
	"errors"
)

// Set of tables used by the persistence layer.
const (
	TableBlocks        = "blocks"
	TableMiningHistory = "miningHistory"
	TableBackups       = "backups"
	TableProfile       = "profile"
)

// Set of error variables for the storage engines.
var (
	ErrNotFound = errors.New("record not found")
	ErrClosed   = errors.New("storage engine closed")
)

// =============================================================================

// Engine interface represents the behavior required to be implemented by
// any package providing support for storing and reading keyed tables.
// Keys iterate in byte order. A Batch is applied all or nothing and readers
// never observe part of a batch.
type Engine interface {
	Get(table string, key []byte) ([]byte, error)
	Has(table string, key []byte) (bool, error)
	ForEach(table string, fn func(key []byte, value []byte) error) error
	Count(table string) (int, error)
	Write(batch *Batch) error
	Close() error
}

// =============================================================================

// OpKind identifies the type of operation in a batch.
type OpKind int

// Set of operations a batch can hold.
const (
	OpPut OpKind = iota + 1
	OpDelete
	OpClear
)

// Op represents a single operation in a batch.
type Op struct {
	Kind  OpKind
	Table string
	Key   []byte
	Value []byte
}

// Batch represents a set of operations to apply to an engine as a single
// unit. Operations are applied in the order they were added.
type Batch struct {
	ops []Op
}

// NewBatch constructs an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Put adds a write of the value for the key.
func (b *Batch) Put(table string, key []byte, value []byte) {
	b.ops = append(b.ops, Op{Kind: OpPut, Table: table, Key: clone(key), Value: clone(value)})
}

// Delete adds the removal of the key.
func (b *Batch) Delete(table string, key []byte) {
	b.ops = append(b.ops, Op{Kind: OpDelete, Table: table, Key: clone(key)})
}

// Clear adds the removal of every key in the table.
func (b *Batch) Clear(table string) {
	b.ops = append(b.ops, Op{Kind: OpClear, Table: table})
}

// Ops returns the operations in the order they were added.
func (b *Batch) Ops() []Op {
	return b.ops
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
