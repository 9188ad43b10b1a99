package taskcluster

import (
	"net/url"
	"strconv"
	"strings"
)

// URL pattern helpers
//
// Every endpoint is rooted at the deployment root URL. Namespaces and task
// ids are single path segments; artifact names keep their slashes and have
// each segment escaped individually.
//
// Index pattern: {root}/api/index/v1/{operation}/{namespace}
// Queue pattern: {root}/api/queue/v1/task/{taskId}/artifacts[/{name}]

const (
	indexPrefix = "/api/index/v1"
	queuePrefix = "/api/queue/v1"
)

// FindTaskURL returns the index URL that resolves a namespace to a task.
// Pattern: {root}/api/index/v1/task/{namespace}
func FindTaskURL(rootURL, namespace string) string {
	return trimRoot(rootURL) + indexPrefix + "/task/" + url.PathEscape(namespace)
}

// ListNamespacesURL returns the index URL listing child namespaces.
// Pattern: {root}/api/index/v1/namespaces/{namespace}
func ListNamespacesURL(rootURL, namespace string) string {
	return trimRoot(rootURL) + indexPrefix + "/namespaces/" + url.PathEscape(namespace)
}

// ListTasksURL returns the index URL listing tasks indexed under a namespace.
// Pattern: {root}/api/index/v1/tasks/{namespace}
func ListTasksURL(rootURL, namespace string) string {
	return trimRoot(rootURL) + indexPrefix + "/tasks/" + url.PathEscape(namespace)
}

// ListLatestArtifactsURL returns the queue URL listing the latest artifacts of a task.
// Pattern: {root}/api/queue/v1/task/{taskId}/artifacts
func ListLatestArtifactsURL(rootURL, taskID string) string {
	return trimRoot(rootURL) + queuePrefix + "/task/" + url.PathEscape(taskID) + "/artifacts"
}

// LatestArtifactURL returns the public queue URL of the latest artifact of a task.
// Pattern: {root}/api/queue/v1/task/{taskId}/artifacts/{name}
func LatestArtifactURL(rootURL, taskID, name string) string {
	return ListLatestArtifactsURL(rootURL, taskID) + "/" + escapeArtifactName(name)
}

// escapeArtifactName escapes each slash-separated segment of an artifact name.
func escapeArtifactName(name string) string {
	segments := strings.Split(name, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func withPage(rawURL string, opts ListOptions) string {
	query := url.Values{}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.ContinuationToken != "" {
		query.Set("continuationToken", opts.ContinuationToken)
	}
	if len(query) == 0 {
		return rawURL
	}
	return rawURL + "?" + query.Encode()
}

func trimRoot(rootURL string) string {
	return strings.TrimRight(rootURL, "/")
}
