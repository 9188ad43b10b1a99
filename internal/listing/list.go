// Package listing prints the latest artifacts of a task, filtered by name
// and content type, as a table, JSONL or YAML.
package listing

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/tcutil/pkg/taskcluster"
)

// OutputFormat specifies how to format the artifact list output.
type OutputFormat string

const (
	// OutputFormatDefault uses the "[Type] | [Name]" table
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs one artifact per line as JSON
	OutputFormatJSONL OutputFormat = "jsonl"

	// OutputFormatYAML outputs a single YAML document
	OutputFormatYAML OutputFormat = "yaml"
)

// ParseOutputFormat validates a format name. The empty string is the default table.
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(name)) {
	case "", OutputFormatDefault:
		return OutputFormatDefault, nil
	case OutputFormatJSONL:
		return OutputFormatJSONL, nil
	case OutputFormatYAML, "yml":
		return OutputFormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format: %s", name)
	}
}

// Lister returns the latest artifacts of a task.
// *downloader.Downloader implements it.
type Lister interface {
	ListLatestArtifacts(ctx context.Context, taskID string) ([]taskcluster.Artifact, error)
}

// ListArtifacts fetches the latest artifacts of taskID, applies the filter
// criteria and writes them to w in the requested format. Listing order is
// the order returned by the queue.
func ListArtifacts(ctx context.Context, lister Lister, taskID string, format OutputFormat, filters *Criteria, w io.Writer) error {
	if err := filters.Validate(); err != nil {
		return err
	}

	artifacts, err := lister.ListLatestArtifacts(ctx, taskID)
	if err != nil {
		return err
	}
	artifacts = Filter(artifacts, filters)

	switch format {
	case OutputFormatDefault:
		FormatTable(w, artifacts, taskID)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, artifacts); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	case OutputFormatYAML:
		if err := FormatYAML(w, artifacts, taskID); err != nil {
			return fmt.Errorf("failed to format YAML output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}

// InvalidPatternError reports a malformed --filter or --type glob.
type InvalidPatternError struct {
	Pattern string
	Err     error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern '%s': %v", e.Pattern, e.Err)
}

func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}

// IsInvalidPattern returns true if the error is an InvalidPatternError.
func IsInvalidPattern(err error) bool {
	_, ok := err.(*InvalidPatternError)
	return ok
}
