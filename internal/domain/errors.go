package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable means no persistent storage can be provided at all.
	// Bookmarking should be treated as a disabled feature.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrStorageIO means a specific read, write or delete failed.
	ErrStorageIO = errors.New("storage i/o error")

	// ErrInvalidArgument is returned before any I/O for bad page numbers or verse ids.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMigrationIncomplete means a schema migration was rolled back.
	// The store is left at its previous version and the migration runs again on next open.
	ErrMigrationIncomplete = errors.New("migration incomplete")
)

// StorageError describes a failed store operation.
type StorageError struct {
	Op         string // open, get, getAll, put, delete, migrate
	Collection string // empty for store-wide operations
	Kind       error  // ErrStorageUnavailable or ErrStorageIO
	Err        error
}

func (e *StorageError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{e.Kind, e.Err} }

// Unavailable wraps err as an ErrStorageUnavailable failure of op.
func Unavailable(op string, err error) error {
	return &StorageError{Op: op, Kind: ErrStorageUnavailable, Err: err}
}

// IOError wraps err as an ErrStorageIO failure of op on collection.
func IOError(op, collection string, err error) error {
	return &StorageError{Op: op, Collection: collection, Kind: ErrStorageIO, Err: err}
}

// ValidationError reports a rejected argument.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidArgument }
