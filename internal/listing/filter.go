package listing

import (
	"path"

	"github.com/dyluth/tcutil/pkg/taskcluster"
)

// Criteria defines filtering criteria for artifacts.
// All filters are ANDed together - an artifact must match ALL criteria to pass.
type Criteria struct {
	NameGlob string // Glob pattern for the artifact name, empty = no filter
	TypeGlob string // Glob pattern for the content type, empty = no filter
}

// Matches returns true if the artifact matches all filter criteria.
// Empty criteria values are treated as "match all" for that criterion.
// Globs use path.Match, so "*" does not cross a '/' in artifact names:
// use "public/build/*" rather than "*.zip" for nested artifacts.
func (c *Criteria) Matches(art taskcluster.Artifact) bool {
	if c == nil {
		return true
	}

	if c.NameGlob != "" {
		matched, err := path.Match(c.NameGlob, art.Name)
		if err != nil || !matched {
			return false
		}
	}

	if c.TypeGlob != "" {
		matched, err := path.Match(c.TypeGlob, art.ContentType)
		if err != nil || !matched {
			return false
		}
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c != nil && (c.NameGlob != "" || c.TypeGlob != "")
}

// Validate reports a malformed glob before any remote call is made.
func (c *Criteria) Validate() error {
	if c == nil {
		return nil
	}
	for _, pattern := range []string{c.NameGlob, c.TypeGlob} {
		if pattern == "" {
			continue
		}
		if _, err := path.Match(pattern, ""); err != nil {
			return &InvalidPatternError{Pattern: pattern, Err: err}
		}
	}
	return nil
}

// Filter returns the artifacts that match c, in their original order.
func Filter(artifacts []taskcluster.Artifact, c *Criteria) []taskcluster.Artifact {
	if !c.HasFilters() {
		return artifacts
	}
	var matched []taskcluster.Artifact
	for _, art := range artifacts {
		if c.Matches(art) {
			matched = append(matched, art)
		}
	}
	return matched
}
