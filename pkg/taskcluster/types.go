package taskcluster

import "encoding/json"

// IndexedTask is an entry of the index service: a task id indexed under a namespace.
// Returned by FindTask and, as list entries, by ListTasks.
type IndexedTask struct {
	Namespace string          `json:"namespace"`      // Full dot-separated namespace the task is indexed under
	TaskID    string          `json:"taskId"`         // Slugid of the indexed task
	Rank      int64           `json:"rank"`           // Rank used by the index to pick between competing tasks
	Data      json.RawMessage `json:"data,omitempty"` // Opaque data stored with the index entry
	Expires   string          `json:"expires"`        // RFC3339 expiry of the index entry
}

// NamespaceEntry is a child namespace returned by ListNamespaces.
type NamespaceEntry struct {
	Namespace string `json:"namespace"` // Full dot-separated namespace
	Name      string `json:"name"`      // Last segment of the namespace
	Expires   string `json:"expires"`   // RFC3339 expiry of the namespace
}

// ListOptions controls a single page of a paginated listing.
// A zero Limit lets the service pick its default page size.
type ListOptions struct {
	Limit             int
	ContinuationToken string
}

// ListNamespacesResponse is one page of child namespaces.
// An empty ContinuationToken marks the final page.
type ListNamespacesResponse struct {
	Namespaces        []NamespaceEntry `json:"namespaces"`
	ContinuationToken string           `json:"continuationToken,omitempty"`
}

// ListTasksResponse is one page of tasks indexed directly under a namespace.
// An empty ContinuationToken marks the final page.
type ListTasksResponse struct {
	Tasks             []IndexedTask `json:"tasks"`
	ContinuationToken string        `json:"continuationToken,omitempty"`
}

// Artifact describes one artifact of the latest run of a task.
type Artifact struct {
	Name        string `json:"name"`                  // Artifact name, e.g. "public/build/target.tar.gz"
	ContentType string `json:"contentType"`           // MIME type reported by the queue
	StorageType string `json:"storageType,omitempty"` // "s3", "object", "reference", "link" or "error"
	Expires     string `json:"expires,omitempty"`     // RFC3339 expiry of the artifact
}

// ListArtifactsResponse is the result of ListLatestArtifacts.
type ListArtifactsResponse struct {
	Artifacts         []Artifact `json:"artifacts"`
	ContinuationToken string     `json:"continuationToken,omitempty"`
}

// errorResponse is the JSON error body returned by the services.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
