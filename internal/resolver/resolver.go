// Package resolver turns a command-line target, a namespace or a task id,
// into the task id to work on.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dyluth/tcutil/internal/finder"
	"github.com/dyluth/tcutil/internal/namespace"
	"github.com/dyluth/tcutil/pkg/taskcluster"
)

// TaskFinder resolves namespaces. *finder.Finder implements it.
type TaskFinder interface {
	FindTaskID(ctx context.Context, ns string) (string, error)
}

// Target is what the user asked for. Exactly one field must be set.
type Target struct {
	Namespace string
	TaskID    string
}

// Resolved is a target after lookup.
type Resolved struct {
	TaskID string
	// Namespace is the namespace actually looked up, after any legacy
	// prefix was stripped. Empty when the target was a task id.
	Namespace string
}

// Resolve validates target and returns its task id.
//
// The function handles two cases:
// 1. A task id - validated as a slugid, no remote call
// 2. A namespace - a leading "index." or "root." is stripped once, then
// the namespace is looked up in the index
func Resolve(ctx context.Context, tasks TaskFinder, target Target, logger *slog.Logger) (*Resolved, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch {
	case target.Namespace != "" && target.TaskID != "":
		return nil, fmt.Errorf("namespace and task ID are mutually exclusive")
	case target.TaskID != "":
		if err := taskcluster.ValidateTaskID(target.TaskID); err != nil {
			return nil, &InvalidTaskIDError{TaskID: target.TaskID, Err: err}
		}
		return &Resolved{TaskID: target.TaskID}, nil
	case target.Namespace == "":
		return nil, fmt.Errorf("either a namespace or a task ID is required")
	}

	ns, prefix := namespace.Normalize(target.Namespace)
	if prefix != "" {
		logger.Info("removed legacy prefix from namespace", "prefix", prefix, "namespace", ns)
	}
	if ns == "" || !namespace.Valid(ns) {
		return nil, fmt.Errorf("invalid namespace '%s': segments must be non-empty", target.Namespace)
	}

	logger.Info("finding task of namespace", "namespace", ns)
	taskID, err := tasks.FindTaskID(ctx, ns)
	if err != nil {
		if taskcluster.IsNotFound(err) {
			return nil, &NotFoundError{Namespace: ns}
		}
		return nil, err
	}
	logger.Info("found task", "namespace", ns, "task_id", taskID)

	return &Resolved{TaskID: taskID, Namespace: ns}, nil
}

// NotFoundError indicates no task is indexed at the namespace.
type NotFoundError struct {
	Namespace string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no task indexed at namespace '%s'", e.Namespace)
}

// InvalidTaskIDError indicates a task id that is not a slugid.
type InvalidTaskIDError struct {
	TaskID string
	Err    error
}

func (e *InvalidTaskIDError) Error() string {
	return e.Err.Error()
}

func (e *InvalidTaskIDError) Unwrap() error {
	return e.Err
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// IsInvalidTaskIDError checks if an error is an InvalidTaskIDError.
func IsInvalidTaskIDError(err error) bool {
	var invalid *InvalidTaskIDError
	return errors.As(err, &invalid)
}

// IsLookupError checks if the index failed for a reason other than the
// namespace being absent.
func IsLookupError(err error) bool {
	return finder.IsLookupError(err) && !IsNotFoundError(err)
}

// FormatNotFound creates a user-friendly explanation for a namespace with
// no task, suggesting the nearest ancestors to browse from.
func FormatNotFound(err *NotFoundError) string {
	msg := fmt.Sprintf("No task is indexed at '%s'.", err.Namespace)

	ancestors := namespace.Ancestors(err.Namespace)
	if len(ancestors) > 0 && !namespace.IsRoot(ancestors[0]) {
		msg += fmt.Sprintf("\n\nBrowse its parent namespace instead:\n  tcutil traverse --namespace %s", ancestors[0])
	}
	return msg
}
