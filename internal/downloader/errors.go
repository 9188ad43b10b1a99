package downloader

import (
	"errors"
	"fmt"

	"github.com/dyluth/tcutil/pkg/taskcluster"
)

// TransferKind classifies a failed transfer.
type TransferKind string

const (
	// TransferAuth means the artifact service rejected the credentials (401/403),
	// or the location could not be signed.
	TransferAuth TransferKind = "auth"
	// TransferRest means the artifact service returned any other non-2xx status.
	TransferRest TransferKind = "rest"
	// TransferTransport means the request or the body stream failed.
	TransferTransport TransferKind = "transport"
)

// TransferError is a fatal failure of a single retrieval.
type TransferError struct {
	Kind     TransferKind
	TaskID   string
	Artifact string
	Err      error
}

func (e *TransferError) Error() string {
	switch e.Kind {
	case TransferAuth:
		return fmt.Sprintf("not authorized to retrieve '%s' of task %s: %v", e.Artifact, e.TaskID, e.Err)
	case TransferRest:
		return fmt.Sprintf("artifact service refused '%s' of task %s: %v", e.Artifact, e.TaskID, e.Err)
	default:
		return fmt.Sprintf("transfer of '%s' from task %s failed: %v", e.Artifact, e.TaskID, e.Err)
	}
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// IsTransferError returns true if err is a TransferError of the given kind.
// An empty kind matches any TransferError.
func IsTransferError(err error, kind TransferKind) bool {
	var transferErr *TransferError
	if !errors.As(err, &transferErr) {
		return false
	}
	return kind == "" || transferErr.Kind == kind
}

// classifyTransfer wraps a failure to open or read an artifact.
func classifyTransfer(taskID, name string, err error) *TransferError {
	kind := TransferTransport
	switch {
	case taskcluster.IsAuthError(err):
		kind = TransferAuth
	case taskcluster.StatusCode(err) != 0:
		kind = TransferRest
	}
	return &TransferError{Kind: kind, TaskID: taskID, Artifact: name, Err: err}
}

// DestinationError reports that a finished artifact could not be placed in
// its destination directory. Retrieve logs it and returns the scratch path
// instead of failing.
type DestinationError struct {
	Dir    string
	Reason string
	Err    error
}

func (e *DestinationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("destination '%s' %s: %v", e.Dir, e.Reason, e.Err)
	}
	return fmt.Sprintf("destination '%s' %s", e.Dir, e.Reason)
}

func (e *DestinationError) Unwrap() error {
	return e.Err
}
