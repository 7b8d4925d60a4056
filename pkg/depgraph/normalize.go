package depgraph

import (
	"strings"
	"unicode"
)

// DefaultRoot is the resource subtree bare schema file names are assumed to live in.
const DefaultRoot = "schemas"

// Normalize canonicalizes key under DefaultRoot.
func Normalize(key string) string {
	return NormalizeUnder(key, DefaultRoot)
}

// NormalizeUnder canonicalizes a node key:
//   - backslashes become forward slashes;
//   - drive-letter and UNC paths are otherwise kept verbatim;
//   - a run of leading slashes collapses to one and the path is kept verbatim;
//   - a bare "*.xml" file name is placed under root.
//
// Namespaces and relative paths with a directory are kept as they are.
func NormalizeUnder(key, root string) string {
	if key == "" {
		return ""
	}
	k := strings.ReplaceAll(key, `\`, "/")
	if IsAbsolute(key) {
		if !strings.HasPrefix(key, `\\`) && strings.HasPrefix(k, "/") {
			return "/" + strings.TrimLeft(k, "/")
		}
		return k
	}
	if root != "" && !strings.Contains(k, "/") && strings.HasSuffix(strings.ToLower(k), ".xml") {
		return strings.TrimSuffix(root, "/") + "/" + k
	}
	return k
}

// IsAbsolute reports whether path is absolute on Unix or Windows.
func IsAbsolute(path string) bool {
	switch {
	case path == "":
		return false
	case strings.HasPrefix(path, `\\`):
		return true
	case len(path) >= 3 && unicode.IsLetter(rune(path[0])) && path[1] == ':':
		return true
	default:
		return strings.HasPrefix(path, "/") || strings.HasPrefix(path, `\`)
	}
}
