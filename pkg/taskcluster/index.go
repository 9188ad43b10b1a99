package taskcluster

import (
	"context"
	"fmt"
)

// FindTask resolves a namespace to the task indexed under it.
// Returns an APIError with status 404 if nothing is indexed there;
// use IsNotFound() to check for that case.
func (c *Client) FindTask(ctx context.Context, namespace string) (*IndexedTask, error) {
	var task IndexedTask
	if err := c.getJSON(ctx, "index", "findTask", FindTaskURL(c.rootURL, namespace), &task); err != nil {
		return nil, err
	}
	if task.TaskID == "" {
		return nil, fmt.Errorf("index.findTask returned no taskId for namespace %q", namespace)
	}
	return &task, nil
}

// ListNamespaces fetches one page of the namespaces directly below namespace.
// Pass the previous page's ContinuationToken in opts to fetch the next page.
func (c *Client) ListNamespaces(ctx context.Context, namespace string, opts ListOptions) (*ListNamespacesResponse, error) {
	var page ListNamespacesResponse
	rawURL := withPage(ListNamespacesURL(c.rootURL, namespace), opts)
	if err := c.getJSON(ctx, "index", "listNamespaces", rawURL, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListTasks fetches one page of the tasks indexed directly below namespace.
// Pass the previous page's ContinuationToken in opts to fetch the next page.
func (c *Client) ListTasks(ctx context.Context, namespace string, opts ListOptions) (*ListTasksResponse, error) {
	var page ListTasksResponse
	rawURL := withPage(ListTasksURL(c.rootURL, namespace), opts)
	if err := c.getJSON(ctx, "index", "listTasks", rawURL, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
