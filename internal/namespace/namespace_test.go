package namespace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParent(t *testing.T) {
	testCases := []struct {
		name     string
		ns       string
		expected string
	}{
		{name: "two segments", ns: "foo.bar", expected: "foo"},
		{name: "single segment", ns: "root", expected: ""},
		{name: "deep namespace", ns: "root.foo.bar.test_v1.moz.node", expected: "root.foo.bar.test_v1.moz"},
		{name: "root is a fixed point", ns: "", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Parent(tc.ns))
		})
	}
}

func TestParentReachesRootInDepthSteps(t *testing.T) {
	for _, ns := range []string{"a", "a.b", "gecko.v2.mozilla-central.latest.firefox.linux64-opt", "x.y.z.w"} {
		k := len(strings.Split(ns, Separator))
		assert.Equal(t, k, Depth(ns))

		current := ns
		for i := 0; i < k; i++ {
			assert.False(t, IsRoot(current), "reached root early for %q after %d steps", ns, i)
			current = Parent(current)
		}
		assert.True(t, IsRoot(current), "%q did not reach root after %d steps", ns, k)
		assert.Equal(t, Root, Parent(current))
	}
}

func TestAncestors(t *testing.T) {
	assert.Equal(t, []string{"a.b", "a", ""}, Ancestors("a.b.c"))
	assert.Empty(t, Ancestors(""))
}

func TestIsRoot(t *testing.T) {
	assert.True(t, IsRoot(""))
	assert.False(t, IsRoot("foo"))
}

func TestName(t *testing.T) {
	assert.Equal(t, "c", Name("a.b.c"))
	assert.Equal(t, "a", Name("a"))
	assert.Equal(t, "", Name(""))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(""))
	assert.True(t, Valid("a.b"))
	assert.False(t, Valid("a..b"))
	assert.False(t, Valid(".a"))
	assert.False(t, Valid("a."))
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		input          string
		expected       string
		expectedPrefix string
	}{
		{input: "index.gecko.v2", expected: "gecko.v2", expectedPrefix: "index."},
		{input: "root.gecko.v2", expected: "gecko.v2", expectedPrefix: "root."},
		{input: "gecko.v2", expected: "gecko.v2", expectedPrefix: ""},
		{input: "index.root.foo", expected: "root.foo", expectedPrefix: "index."},
		{input: "indexer.foo", expected: "indexer.foo", expectedPrefix: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, prefix := Normalize(tc.input)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, tc.expectedPrefix, prefix)
		})
	}
}
