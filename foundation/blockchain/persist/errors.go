package persist

import (
	"errors"
	"fmt"
)

// Set of error variables for the persistence layer.
var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrCorruptBackup = errors.New("backup checksum mismatch")
)

// StorageError is returned when the underlying engine fails a read or
// a write. No retry is attempted.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (se *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %s", se.Op, se.Err)
}

// Unwrap returns the engine error.
func (se *StorageError) Unwrap() error {
	return se.Err
}

// CorruptRecordError describes a single stored record whose integrity
// check failed. It is logged and the record is excluded from the load.
type CorruptRecordError struct {
	Table string
	Key   string
	Err   error
}

// Error implements the error interface.
func (ce *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record %s[%s]: %s", ce.Table, ce.Key, ce.Err)
}

// Unwrap returns the decode error.
func (ce *CorruptRecordError) Unwrap() error {
	return ce.Err
}

// ParseError is returned when an import document can't be decoded. No
// store has been touched when this error is returned.
type ParseError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (pe *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", pe.Field, pe.Err)
}

// Unwrap returns the decode error.
func (pe *ParseError) Unwrap() error {
	return pe.Err
}
