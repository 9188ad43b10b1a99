package listing

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dyluth/tcutil/pkg/taskcluster"
)

// columnWidth pads the [Type] column of the table.
const columnWidth = 30

// FormatTable writes artifacts as a "[Type] | [Name]" table.
// Returns the number of artifacts formatted.
func FormatTable(w io.Writer, artifacts []taskcluster.Artifact, taskID string) int {
	if len(artifacts) == 0 {
		fmt.Fprintf(w, "No artifacts found for task '%s'\n", taskID)
		return 0
	}

	fmt.Fprintf(w, "%s| %s\n", pad("[Type]"), "[Name]")
	for _, a := range artifacts {
		fmt.Fprintf(w, "%s| %s\n", pad(formatContentType(a.ContentType)), a.Name)
	}

	countMsg := "artifact"
	if len(artifacts) != 1 {
		countMsg = "artifacts"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(artifacts), countMsg)

	return len(artifacts)
}

// FormatJSONL writes artifacts as line-delimited JSON (JSONL).
// Each artifact is written as a single JSON object on its own line,
// ready for processing with tools like jq.
func FormatJSONL(w io.Writer, artifacts []taskcluster.Artifact) error {
	for _, artifact := range artifacts {
		data, err := json.Marshal(artifact)
		if err != nil {
			return fmt.Errorf("failed to marshal artifact to JSON: %w", err)
		}

		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// yamlArtifact mirrors taskcluster.Artifact with YAML field names.
type yamlArtifact struct {
	Name        string `yaml:"name"`
	ContentType string `yaml:"contentType"`
	StorageType string `yaml:"storageType,omitempty"`
	Expires     string `yaml:"expires,omitempty"`
}

// FormatYAML writes the listing as a YAML document with the task id.
func FormatYAML(w io.Writer, artifacts []taskcluster.Artifact, taskID string) error {
	doc := struct {
		TaskID    string         `yaml:"taskId"`
		Artifacts []yamlArtifact `yaml:"artifacts"`
	}{TaskID: taskID, Artifacts: make([]yamlArtifact, 0, len(artifacts))}

	for _, a := range artifacts {
		doc.Artifacts = append(doc.Artifacts, yamlArtifact(a))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write YAML output: %w", err)
	}
	return enc.Close()
}

// formatContentType shows "-" for artifacts without a content type.
func formatContentType(contentType string) string {
	if contentType == "" {
		return "-"
	}
	return contentType
}

func pad(s string) string {
	if len(s) >= columnWidth {
		return s + " "
	}
	return s + strings.Repeat(" ", columnWidth-len(s))
}
