// Package taskcluster provides a small, typed client for the two remote
// services tcutil talks to: the task index and the task queue.
//
// # Overview
//
// The index service maps dot-separated namespaces onto task ids. It is a
// tree: every namespace may contain child namespaces and indexed tasks,
// and both listings are paginated with an opaque continuation token.
//
// The queue service owns tasks and their artifacts. tcutil only reads
// from it: the latest artifacts of a task are listed in a single call,
// and an artifact is retrieved by following its "latest artifact" URL,
// which redirects to the storage location.
//
// # Endpoints
//
// All endpoints hang off a deployment root URL:
//
//	Index: {root}/api/index/v1/task/{namespace}
//	       {root}/api/index/v1/namespaces/{namespace}?limit=&continuationToken=
//	       {root}/api/index/v1/tasks/{namespace}?limit=&continuationToken=
//	Queue: {root}/api/queue/v1/task/{taskId}/artifacts
//	       {root}/api/queue/v1/task/{taskId}/artifacts/{name}
//
// The root namespace is addressed with an empty path segment.
//
// # Usage Example
//
//	client, err := taskcluster.NewClient("https://firefox-ci-tc.services.mozilla.com")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	task, err := client.FindTask(ctx, "gecko.v2.mozilla-central.latest.firefox.linux64-opt")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	artifacts, err := client.ListLatestArtifacts(ctx, task.TaskID)
//
// # Authentication
//
// Requests are sent unauthenticated. Protected artifacts are reached
// through a signed URL produced by a Signer; how a URL gets signed is
// up to the Signer implementation.
package taskcluster
