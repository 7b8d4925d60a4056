package merger

import (
	"fmt"
	"sort"

	"github.com/aretw0/csdlc/pkg/csdl"
)

// Result is the outcome of a merge. It is not modified after Merge returns;
// accessors return copies.
type Result struct {
	schemas   map[string]*csdl.Schema
	errors    []string
	warnings  []string
	notes     []string
	conflicts map[csdl.ElementKind]map[string]struct{}
}

func newResult() *Result {
	return &Result{
		schemas:   make(map[string]*csdl.Schema),
		conflicts: make(map[csdl.ElementKind]map[string]struct{}),
	}
}

func (r *Result) warn(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func (r *Result) note(format string, args ...any) {
	r.notes = append(r.notes, fmt.Sprintf(format, args...))
}

func (r *Result) fail(kind csdl.ElementKind, name, format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
	set, ok := r.conflicts[kind]
	if !ok {
		set = make(map[string]struct{})
		r.conflicts[kind] = set
	}
	set[name] = struct{}{}
}

// Success reports whether the merge found no conflicting duplicates.
func (r *Result) Success() bool {
	return len(r.errors) == 0
}

// Schema returns the canonical schema of ns.
func (r *Result) Schema(ns string) (*csdl.Schema, bool) {
	s, ok := r.schemas[ns]
	return s, ok
}

// Schemas returns the canonical schema of every namespace.
func (r *Result) Schemas() map[string]*csdl.Schema {
	out := make(map[string]*csdl.Schema, len(r.schemas))
	for k, v := range r.schemas {
		out[k] = v
	}
	return out
}

// Namespaces returns the merged namespaces, sorted.
func (r *Result) Namespaces() []string {
	out := make([]string, 0, len(r.schemas))
	for ns := range r.schemas {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Errors returns the conflict messages in discovery order.
func (r *Result) Errors() []string {
	return append([]string(nil), r.errors...)
}

// Warnings returns the identical-duplicate messages in discovery order.
func (r *Result) Warnings() []string {
	return append([]string(nil), r.warnings...)
}

// Notes returns informational messages (annotation groups merged by target).
func (r *Result) Notes() []string {
	return append([]string(nil), r.notes...)
}

// Conflicts maps each element kind to the sorted names that conflicted.
func (r *Result) Conflicts() map[csdl.ElementKind][]string {
	out := make(map[csdl.ElementKind][]string, len(r.conflicts))
	for kind, set := range r.conflicts {
		names := make([]string, 0, len(set))
		for n := range set {
			names = append(names, n)
		}
		sort.Strings(names)
		out[kind] = names
	}
	return out
}

// ConflictCount returns the number of distinct conflicting elements.
func (r *Result) ConflictCount() int {
	n := 0
	for _, set := range r.conflicts {
		n += len(set)
	}
	return n
}
