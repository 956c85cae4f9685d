// Package storage persists the channel registry and the video feed as
// wholesale-rewritten JSON documents.
package storage

import (
	"errors"
	"fmt"

	"chanfeed/internal/errs"
)

// Sentinel errors for storage conditions.
var (
	// ErrStorageCorrupt indicates a document could not be decoded.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrLockTimeout indicates a timeout acquiring a file lock. It matches errs.ErrBusy.
	ErrLockTimeout = fmt.Errorf("storage: lock acquisition timeout: %w", errs.ErrBusy)
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s %s: %v\n", storErr.Op, storErr.Entity, storErr.ID, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("read", "write", "lock").
	Op string
	// Entity is the document or entity type ("channels", "videos", "file").
	Entity string
	// ID is the entity ID or path if applicable.
	ID string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }
