package types

import (
	"errors"
	"fmt"
)

// Catalog error taxonomy. Callers match with errors.Is.
var (
	// ErrFeedUnreachable means the supplier feed could not be fetched; retry is user-driven
	ErrFeedUnreachable = errors.New("supplier feed unreachable")

	// ErrFeedEmptyOrMalformed means no item records were found under any known tag
	ErrFeedEmptyOrMalformed = errors.New("supplier feed is empty or malformed")

	// ErrInvalidRecord marks a single skipped record; only ever reported as a count
	ErrInvalidRecord = errors.New("invalid feed record")

	// ErrRemoteWriteDenied means the remote store refused a write by access policy
	ErrRemoteWriteDenied = errors.New("remote catalog write denied")

	// ErrRemoteUnreachable is any other remote store failure
	ErrRemoteUnreachable = errors.New("remote catalog unreachable")

	// ErrRemoteDisabled means no remote store is configured
	ErrRemoteDisabled = errors.New("remote catalog disabled")

	// ErrHydrationFailure means remote, local and bundled catalogs all failed to load
	ErrHydrationFailure = errors.New("catalog hydration failed")

	// ErrIngestionInProgress rejects a second ingestion while one is running
	ErrIngestionInProgress = errors.New("catalog ingestion already in progress")
)

// RemoteWriteDeniedHint is shown to operators when a remote write is rejected
const RemoteWriteDeniedHint = "the remote store rejected the write: grant the service write access to the catalog document (database role privileges or store access rules)"

// RemoteError describes a failed remote store operation
type RemoteError struct {
	Backend string
	Op      string
	Kind    error // ErrRemoteWriteDenied or ErrRemoteUnreachable
	Cause   error
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Kind)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Hint returns remediation guidance for the operator, if any
func (e *RemoteError) Hint() string {
	if errors.Is(e.Kind, ErrRemoteWriteDenied) {
		return RemoteWriteDeniedHint
	}
	return ""
}

// NewRemoteError builds a RemoteError of the given kind
func NewRemoteError(backend, op string, kind, cause error) *RemoteError {
	return &RemoteError{Backend: backend, Op: op, Kind: kind, Cause: cause}
}

// RemoteHint extracts operator guidance from an error chain
func RemoteHint(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Hint()
	}
	return ""
}
