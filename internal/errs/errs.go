// Package errs defines the stable error kinds surfaced to callers.
package errs

import (
	"context"
	"errors"
)

var (
	// ErrValidation indicates malformed input such as a bad handle or day window.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a handle, channel or listing could not be resolved.
	ErrNotFound = errors.New("not found")
	// ErrQuotaExceeded indicates the catalog provider rejected the call for quota or rate reasons.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrDuplicate indicates the channel is already registered.
	ErrDuplicate = errors.New("already registered")
	// ErrTransientNetwork indicates a network or 5xx failure that outlived its retries.
	ErrTransientNetwork = errors.New("transient network failure")
	// ErrVersionControl indicates a status, stage, commit or push failure.
	ErrVersionControl = errors.New("version control failure")
	// ErrBusy indicates another publish run holds the data files.
	ErrBusy = errors.New("publish already in progress")
)

// Kind names, stable across releases.
const (
	KindValidation       = "validation"
	KindNotFound         = "not_found"
	KindQuotaExceeded    = "quota_exceeded"
	KindDuplicate        = "duplicate"
	KindTransientNetwork = "transient_network"
	KindVersionControl   = "version_control"
	KindBusy             = "busy"
	KindInternal         = "internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrValidation, KindValidation},
	{ErrNotFound, KindNotFound},
	{ErrQuotaExceeded, KindQuotaExceeded},
	{ErrDuplicate, KindDuplicate},
	{ErrTransientNetwork, KindTransientNetwork},
	{ErrVersionControl, KindVersionControl},
	{ErrBusy, KindBusy},
	{context.DeadlineExceeded, KindTransientNetwork},
}

// Kind maps err to its stable kind name. Unknown errors are KindInternal.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Message returns a user-facing message for the kind of err that never
// includes implementation detail.
func Message(err error) string {
	switch Kind(err) {
	case KindValidation:
		return "The request is invalid."
	case KindNotFound:
		return "Channel not found on YouTube."
	case KindQuotaExceeded:
		return "API quota exceeded. Please try again later or check your API key."
	case KindDuplicate:
		return "Channel already exists."
	case KindTransientNetwork:
		return "The video catalog could not be reached. Please try again."
	case KindVersionControl:
		return "Publishing to version control failed."
	case KindBusy:
		return "A publish run is already in progress."
	default:
		return "An unexpected error occurred. Please try again."
	}
}
