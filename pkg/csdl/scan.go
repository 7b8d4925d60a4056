package csdl

import "regexp"

// Raw-text scanners. These work on documents the XML decoder refuses
// (undeclared entities, truncated files) so content-level checks still run.
var (
	referencePattern = regexp.MustCompile(`(?i)<edmx:Reference\s+Uri\s*=\s*["']([^"']+)["'][^>]*>`)
	includePattern   = regexp.MustCompile(`(?i)<edmx:Include\s+Namespace\s*=\s*["']([^"']+)["'][^>]*>`)
	namespacePattern = regexp.MustCompile(`<Schema[^>]+Namespace\s*=\s*["']([^"']+)["'][^>]*>`)
)

// ScanReferences returns every edmx:Reference Uri in content, in order.
func ScanReferences(content string) []string {
	return submatches(referencePattern, content)
}

// ScanIncludes returns every edmx:Include Namespace in content, in order.
func ScanIncludes(content string) []string {
	return submatches(includePattern, content)
}

// ScanNamespaces returns every Schema Namespace attribute in content, in order.
func ScanNamespaces(content string) []string {
	return submatches(namespacePattern, content)
}

func submatches(re *regexp.Regexp, content string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		out = append(out, m[1])
	}
	return out
}
