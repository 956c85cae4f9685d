package chanfeed

import (
	"chanfeed/internal/errs"
	"chanfeed/internal/retry"
	"chanfeed/internal/storage"
	"chanfeed/internal/vcs"
	"chanfeed/internal/youtube"
)

// Type aliases for convenient error handling.
type (
	// APIError describes a failed catalog call.
	APIError = youtube.APIError
	// CommandError describes a failed git invocation.
	CommandError = vcs.CommandError
	// RetryableError wraps errors that occurred after retries were exhausted.
	RetryableError = retry.RetryableError
	// StorageError wraps errors during storage operations.
	StorageError = storage.StorageError
)

// Sentinel error kinds.
var (
	ErrValidation       = errs.ErrValidation
	ErrNotFound         = errs.ErrNotFound
	ErrQuotaExceeded    = errs.ErrQuotaExceeded
	ErrDuplicate        = errs.ErrDuplicate
	ErrTransientNetwork = errs.ErrTransientNetwork
	ErrVersionControl   = errs.ErrVersionControl
	ErrBusy             = errs.ErrBusy

	// ErrStorageCorrupt indicates a data document could not be parsed.
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	// ErrLockTimeout indicates a timeout acquiring the publish lock.
	ErrLockTimeout = storage.ErrLockTimeout
)

// Kind maps err to its stable kind name, such as "quota_exceeded".
func Kind(err error) string {
	return errs.Kind(err)
}

// Message returns the user-facing message for err.
func Message(err error) string {
	return errs.Message(err)
}

// IsRetryable determines if an error should be retried.
func IsRetryable(err error) bool {
	return retry.IsRetryable(err)
}
