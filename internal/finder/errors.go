package finder

import (
	"errors"
	"fmt"

	"github.com/dyluth/tcutil/pkg/taskcluster"
)

// LookupError reports that a namespace could not be resolved to a task,
// either because nothing is indexed there or because the index failed.
type LookupError struct {
	Namespace string
	Err       error
}

func (e *LookupError) Error() string {
	if taskcluster.IsNotFound(e.Err) {
		return fmt.Sprintf("no task indexed at namespace '%s'", e.Namespace)
	}
	return fmt.Sprintf("failed to look up namespace '%s': %v", e.Namespace, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// IsLookupError returns true if err is a LookupError.
func IsLookupError(err error) bool {
	var lookupErr *LookupError
	return errors.As(err, &lookupErr)
}

// PageError reports a failed page of a paginated listing.
type PageError struct {
	Operation string
	Namespace string
	Page      int
	Err       error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("%s '%s' failed on page %d: %v", e.Operation, e.Namespace, e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}
