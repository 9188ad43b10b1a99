// Package namespace implements the dot-separated namespace algebra of the
// task index. The root of the tree is the empty string.
package namespace

import "strings"

// Root is the namespace at the top of the index tree.
const Root = ""

// Separator joins namespace segments.
const Separator = "."

// legacyPrefixes are accepted in front of user-supplied namespaces and
// stripped before lookup. Old index URLs and docs used both forms.
var legacyPrefixes = []string{"index.", "root."}

// IsRoot reports whether ns is the root namespace.
func IsRoot(ns string) bool {
	return ns == Root
}

// Parent returns the namespace one level above ns.
// The parent of a single-segment namespace is Root, and Root is its own parent.
func Parent(ns string) string {
	i := strings.LastIndex(ns, Separator)
	if i < 0 {
		return Root
	}
	return ns[:i]
}

// Depth returns the number of segments in ns. Root has depth 0.
func Depth(ns string) int {
	if IsRoot(ns) {
		return 0
	}
	return strings.Count(ns, Separator) + 1
}

// Ancestors returns every namespace above ns, nearest first, ending with Root.
// Root itself has no ancestors.
func Ancestors(ns string) []string {
	var out []string
	for !IsRoot(ns) {
		ns = Parent(ns)
		out = append(out, ns)
	}
	return out
}

// Name returns the last segment of ns.
func Name(ns string) string {
	return ns[strings.LastIndex(ns, Separator)+1:]
}

// Valid reports whether every segment of ns is non-empty. Root is valid.
func Valid(ns string) bool {
	if IsRoot(ns) {
		return true
	}
	for _, segment := range strings.Split(ns, Separator) {
		if segment == "" {
			return false
		}
	}
	return true
}

// Normalize strips one legacy "index." or "root." prefix from ns.
// It returns the stripped namespace and the prefix removed, if any.
func Normalize(ns string) (string, string) {
	for _, prefix := range legacyPrefixes {
		if strings.HasPrefix(ns, prefix) {
			return ns[len(prefix):], prefix
		}
	}
	return ns, ""
}
