// Package finder walks the task index: it classifies namespaces, resolves
// them to task ids and enumerates the children of a node across every
// page of the index listings.
package finder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dyluth/tcutil/internal/namespace"
	"github.com/dyluth/tcutil/pkg/taskcluster"
)

// DefaultPageSize is the service-imposed ceiling on listing pages.
const DefaultPageSize = 1000

// IndexService is the subset of the index API the finder uses.
// *taskcluster.Client implements it.
type IndexService interface {
	FindTask(ctx context.Context, namespace string) (*taskcluster.IndexedTask, error)
	ListNamespaces(ctx context.Context, namespace string, opts taskcluster.ListOptions) (*taskcluster.ListNamespacesResponse, error)
	ListTasks(ctx context.Context, namespace string, opts taskcluster.ListOptions) (*taskcluster.ListTasksResponse, error)
}

// PaginationPolicy decides what a listing does when a page fails.
type PaginationPolicy string

const (
	// PaginationPartial stops at the failing page and returns what was
	// accumulated so far with a nil error. The failure is logged.
	PaginationPartial PaginationPolicy = "partial"

	// PaginationStrict stops at the failing page and returns what was
	// accumulated so far together with the error.
	PaginationStrict PaginationPolicy = "strict"
)

// Task is a task indexed directly below a namespace.
type Task struct {
	Namespace string
	TaskID    string
}

// Children is everything directly below one node of the index tree.
type Children struct {
	Node       string
	Namespaces []string
	Tasks      []Task
}

// Finder is the namespace tree engine. It owns its index handle and holds
// no state between calls.
type Finder struct {
	index      IndexService
	logger     *slog.Logger
	pagination PaginationPolicy
}

// Option customises a Finder.
type Option func(*Finder)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Finder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithPagination sets the page failure policy. The default is PaginationPartial.
func WithPagination(policy PaginationPolicy) Option {
	return func(f *Finder) {
		f.pagination = policy
	}
}

// New creates a Finder over index.
func New(index IndexService, opts ...Option) *Finder {
	f := &Finder{
		index:      index,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination: PaginationPartial,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsRoot reports whether ns is the root of the index tree.
func (f *Finder) IsRoot(ns string) bool {
	return namespace.IsRoot(ns)
}

// Parent returns the namespace above ns; the root is its own parent.
func (f *Finder) Parent(ns string) string {
	return namespace.Parent(ns)
}

// IsTask reports whether a task is indexed at ns. Any lookup failure,
// including transport errors, classifies ns as a plain namespace.
func (f *Finder) IsTask(ctx context.Context, ns string) bool {
	taskID, err := f.FindTaskID(ctx, ns)
	if err != nil {
		f.logger.Debug("namespace is not a task", "namespace", ns, "error", err)
		return false
	}
	return taskID != ""
}

// FindTaskID resolves ns to a task id. An empty ns returns ("", nil)
// without contacting the index. Lookup failures are returned as *LookupError.
func (f *Finder) FindTaskID(ctx context.Context, ns string) (string, error) {
	if ns == "" {
		return "", nil
	}

	task, err := f.index.FindTask(ctx, ns)
	if err != nil {
		return "", &LookupError{Namespace: ns, Err: err}
	}

	f.logger.Debug("resolved namespace", "namespace", ns, "task_id", task.TaskID)
	return task.TaskID, nil
}

// ListNamespaces returns every namespace directly below node, in page order.
// Entries with an empty namespace are skipped. pageSize <= 0 uses
// DefaultPageSize.
func (f *Finder) ListNamespaces(ctx context.Context, node string, pageSize int) ([]string, error) {
	var namespaces []string

	err := f.paginate(ctx, "listNamespaces", node, pageSize, func(opts taskcluster.ListOptions) (string, error) {
		page, err := f.index.ListNamespaces(ctx, node, opts)
		if err != nil {
			return "", err
		}
		for _, entry := range page.Namespaces {
			if entry.Namespace != "" {
				namespaces = append(namespaces, entry.Namespace)
			}
		}
		return page.ContinuationToken, nil
	})
	return namespaces, err
}

// ListTasks returns every task indexed directly below node, in page order.
// Entries with an empty task id are skipped. pageSize <= 0 uses
// DefaultPageSize.
func (f *Finder) ListTasks(ctx context.Context, node string, pageSize int) ([]Task, error) {
	var tasks []Task

	err := f.paginate(ctx, "listTasks", node, pageSize, func(opts taskcluster.ListOptions) (string, error) {
		page, err := f.index.ListTasks(ctx, node, opts)
		if err != nil {
			return "", err
		}
		for _, entry := range page.Tasks {
			if entry.TaskID != "" {
				tasks = append(tasks, Task{Namespace: entry.Namespace, TaskID: entry.TaskID})
			}
		}
		return page.ContinuationToken, nil
	})
	return tasks, err
}

// ListChildren aggregates ListNamespaces and ListTasks for node.
// Under PaginationStrict the first listing error is returned alongside
// whatever was gathered.
func (f *Finder) ListChildren(ctx context.Context, node string, pageSize int) (*Children, error) {
	children := &Children{Node: node}

	var errs []error
	var err error
	if children.Namespaces, err = f.ListNamespaces(ctx, node, pageSize); err != nil {
		errs = append(errs, err)
	}
	if children.Tasks, err = f.ListTasks(ctx, node, pageSize); err != nil {
		errs = append(errs, err)
	}
	return children, errors.Join(errs...)
}

// paginate calls fetch with successive continuation tokens until a page
// comes back without one. fetch returns the next token.
func (f *Finder) paginate(ctx context.Context, operation, node string, pageSize int, fetch func(taskcluster.ListOptions) (string, error)) error {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	opts := taskcluster.ListOptions{Limit: pageSize}
	for page := 1; ; page++ {
		next, err := fetch(opts)
		if err != nil {
			// Cancellation is never a partial result.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("%s %q: %w", operation, node, ctxErr)
			}
			pageErr := &PageError{Operation: operation, Namespace: node, Page: page, Err: err}
			if f.pagination == PaginationStrict {
				return pageErr
			}
			f.logger.Warn("listing stopped early, returning partial results",
				"operation", operation, "namespace", node, "page", page, "error", err)
			return nil
		}
		if next == "" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s %q: %w", operation, node, err)
		}
		opts.ContinuationToken = next
	}
}
