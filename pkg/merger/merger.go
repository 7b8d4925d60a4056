// Package merger consolidates schema fragments that share a namespace into one
// canonical schema per namespace and reports duplicated elements.
package merger

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/aretw0/csdlc/pkg/csdl"
)

// Resolution decides which definition survives a conflicting duplicate.
// The conflict is reported regardless of the policy.
type Resolution int

const (
	// KeepFirst keeps the first-seen definition.
	KeepFirst Resolution = iota
	// KeepLast replaces the definition with the last-seen one.
	KeepLast
	// SkipConflicts drops conflicting elements from the canonical schema.
	SkipConflicts
)

func (r Resolution) String() string {
	switch r {
	case KeepLast:
		return "keep-last"
	case SkipConflicts:
		return "skip-conflicts"
	default:
		return "keep-first"
	}
}

// ParseResolution maps a policy name to a Resolution.
func ParseResolution(s string) (Resolution, error) {
	switch s {
	case "", "keep-first":
		return KeepFirst, nil
	case "keep-last":
		return KeepLast, nil
	case "skip-conflicts":
		return SkipConflicts, nil
	}
	return KeepFirst, fmt.Errorf("unknown merge resolution %q", s)
}

// Merger merges same-namespace fragments.
type Merger struct {
	resolution Resolution
	logger     *slog.Logger
}

// Option configures a Merger.
type Option func(*Merger)

// WithResolution configures the conflict resolution policy.
func WithResolution(r Resolution) Option {
	return func(m *Merger) {
		m.resolution = r
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Merger) {
		m.logger = logger
	}
}

// New creates a Merger.
func New(opts ...Option) *Merger {
	m := &Merger{
		resolution: KeepFirst,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GroupByNamespace flattens fragments keyed by file into fragments keyed by
// namespace. Files are visited in sorted order so merges are reproducible.
func GroupByNamespace(byFile map[string][]*csdl.Schema) map[string][]*csdl.Schema {
	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	out := make(map[string][]*csdl.Schema)
	for _, f := range files {
		for _, s := range byFile[f] {
			if s == nil {
				continue
			}
			out[s.Namespace] = append(out[s.Namespace], s)
		}
	}
	return out
}

// Merge merges fragments grouped by namespace. A namespace with a single
// fragment is passed through unchanged.
func (m *Merger) Merge(fragments map[string][]*csdl.Schema) *Result {
	namespaces := make([]string, 0, len(fragments))
	for ns := range fragments {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	res := newResult()
	for _, ns := range namespaces {
		frags := fragments[ns]
		switch len(frags) {
		case 0:
			continue
		case 1:
			res.schemas[ns] = frags[0]
			continue
		}

		nm := &nsMerge{namespace: ns, resolution: m.resolution, res: res}
		res.schemas[ns] = nm.merge(frags)
		m.logger.Debug("merged namespace", "namespace", ns, "fragments", len(frags))
	}
	if len(res.errors) > 0 {
		m.logger.Warn("schema merge found conflicts", "errors", len(res.errors), "warnings", len(res.warnings))
	}
	return res
}

// MergeFiles groups fragments by namespace and merges them.
func (m *Merger) MergeFiles(byFile map[string][]*csdl.Schema) *Result {
	return m.Merge(GroupByNamespace(byFile))
}

// CheckCompatibility lists the "Kind:name" entries that a and b declare with
// different definitions. It does not merge anything.
func (m *Merger) CheckCompatibility(a, b *csdl.Schema) []string {
	if a == nil || b == nil || a.Namespace != b.Namespace {
		return nil
	}
	res := newResult()
	nm := &nsMerge{namespace: a.Namespace, resolution: KeepFirst, res: res}
	nm.merge([]*csdl.Schema{a, b})

	var out []string
	for kind, names := range res.Conflicts() {
		for _, n := range names {
			out = append(out, string(kind)+":"+n)
		}
	}
	sort.Strings(out)
	return out
}

// nsMerge carries the state of one multi-fragment namespace merge.
type nsMerge struct {
	namespace  string
	resolution Resolution
	res        *Result
}

func (nm *nsMerge) merge(frags []*csdl.Schema) *csdl.Schema {
	out := &csdl.Schema{Namespace: nm.namespace}
	for _, f := range frags {
		if out.Alias == "" {
			out.Alias = f.Alias
		}
	}

	out.EntityTypes = mergeKind(nm, csdl.KindEntityType, frags,
		func(s *csdl.Schema) []*csdl.EntityType { return s.EntityTypes },
		func(t *csdl.EntityType) string { return t.Name },
		func(t *csdl.EntityType) string { return t.Name },
		entityTypesEqual)
	out.ComplexTypes = mergeKind(nm, csdl.KindComplexType, frags,
		func(s *csdl.Schema) []*csdl.ComplexType { return s.ComplexTypes },
		func(t *csdl.ComplexType) string { return t.Name },
		func(t *csdl.ComplexType) string { return t.Name },
		complexTypesEqual)
	out.EnumTypes = mergeKind(nm, csdl.KindEnumType, frags,
		func(s *csdl.Schema) []*csdl.EnumType { return s.EnumTypes },
		func(t *csdl.EnumType) string { return t.Name },
		func(t *csdl.EnumType) string { return t.Name },
		enumTypesEqual)
	out.TypeDefinitions = mergeKind(nm, csdl.KindTypeDefinition, frags,
		func(s *csdl.Schema) []*csdl.TypeDefinition { return s.TypeDefinitions },
		func(t *csdl.TypeDefinition) string { return t.Name },
		func(t *csdl.TypeDefinition) string { return t.Name },
		typeDefinitionsEqual)
	out.Actions = mergeKind(nm, csdl.KindAction, frags,
		func(s *csdl.Schema) []*csdl.Action { return s.Actions },
		func(a *csdl.Action) string { return a.MergeKey() },
		func(a *csdl.Action) string { return a.Name },
		actionsEqual)
	out.Functions = mergeKind(nm, csdl.KindFunction, frags,
		func(s *csdl.Schema) []*csdl.Function { return s.Functions },
		func(f *csdl.Function) string { return f.MergeKey() },
		func(f *csdl.Function) string { return f.Name },
		functionsEqual)
	out.Terms = mergeKind(nm, csdl.KindTerm, frags,
		func(s *csdl.Schema) []*csdl.Term { return s.Terms },
		func(t *csdl.Term) string { return t.Name },
		func(t *csdl.Term) string { return t.Name },
		termsEqual)
	out.EntityContainer = nm.mergeContainers(frags)
	out.Annotations = nm.mergeAnnotations(frags)
	return out
}

// mergeKind merges one element bucket, preserving first-seen order.
func mergeKind[T any](
	nm *nsMerge,
	kind csdl.ElementKind,
	frags []*csdl.Schema,
	items func(*csdl.Schema) []T,
	key func(T) string,
	name func(T) string,
	equal func(a, b T) bool,
) []T {
	var out []T
	index := make(map[string]int)
	skipped := make(map[string]bool)

	for _, f := range frags {
		for _, item := range items(f) {
			k := key(item)
			i, seen := index[k]
			if !seen {
				index[k] = len(out)
				out = append(out, item)
				continue
			}
			if equal(out[i], item) {
				nm.res.warn("Duplicate but identical %s '%s' found in namespace '%s'", kind, name(item), nm.namespace)
				continue
			}
			nm.res.fail(kind, name(item), "Duplicate %s '%s' found in namespace '%s' with different definitions", kind, name(item), nm.namespace)
			switch nm.resolution {
			case KeepLast:
				out[i] = item
			case SkipConflicts:
				skipped[k] = true
			}
		}
	}

	if len(skipped) == 0 {
		return out
	}
	kept := out[:0]
	for _, item := range out {
		if !skipped[key(item)] {
			kept = append(kept, item)
		}
	}
	return kept
}

// mergeContainers folds every fragment's container into one. Name and
// Extends are taken from the first fragment that sets them.
func (nm *nsMerge) mergeContainers(frags []*csdl.Schema) *csdl.EntityContainer {
	var containers []*csdl.Schema
	var out *csdl.EntityContainer
	for _, f := range frags {
		c := f.EntityContainer
		if c == nil {
			continue
		}
		containers = append(containers, f)
		if out == nil {
			out = &csdl.EntityContainer{Name: c.Name, Extends: c.Extends}
			continue
		}
		if out.Name == "" {
			out.Name = c.Name
		} else if c.Name != "" && c.Name != out.Name {
			nm.res.warn("EntityContainer '%s' merged into '%s' in namespace '%s'", c.Name, out.Name, nm.namespace)
		}
		if out.Extends == "" {
			out.Extends = c.Extends
		}
	}
	if out == nil {
		return nil
	}
	if len(containers) == 1 {
		return containers[0].EntityContainer
	}

	out.EntitySets = mergeMembers(nm, csdl.KindEntitySet, containers,
		func(c *csdl.EntityContainer) []*csdl.EntitySet { return c.EntitySets },
		func(e *csdl.EntitySet) string { return e.Name },
		entitySetsEqual)
	out.Singletons = mergeMembers(nm, csdl.KindSingleton, containers,
		func(c *csdl.EntityContainer) []*csdl.Singleton { return c.Singletons },
		func(s *csdl.Singleton) string { return s.Name },
		singletonsEqual)
	out.ActionImports = mergeMembers(nm, csdl.KindActionImport, containers,
		func(c *csdl.EntityContainer) []*csdl.ActionImport { return c.ActionImports },
		func(a *csdl.ActionImport) string { return a.Name },
		actionImportsEqual)
	out.FunctionImports = mergeMembers(nm, csdl.KindFunctionImport, containers,
		func(c *csdl.EntityContainer) []*csdl.FunctionImport { return c.FunctionImports },
		func(f *csdl.FunctionImport) string { return f.Name },
		functionImportsEqual)
	return out
}

func mergeMembers[T any](
	nm *nsMerge,
	kind csdl.ElementKind,
	frags []*csdl.Schema,
	items func(*csdl.EntityContainer) []T,
	name func(T) string,
	equal func(a, b T) bool,
) []T {
	var out []T
	index := make(map[string]int)
	skipped := make(map[string]bool)
	for _, f := range frags {
		for _, item := range items(f.EntityContainer) {
			n := name(item)
			i, seen := index[n]
			if !seen {
				index[n] = len(out)
				out = append(out, item)
				continue
			}
			if equal(out[i], item) {
				nm.res.warn("Duplicate but identical %s '%s' found in namespace '%s'", kind, n, nm.namespace)
				continue
			}
			nm.res.fail(kind, n, "Duplicate %s '%s' with different definitions in namespace '%s'", kind, n, nm.namespace)
			switch nm.resolution {
			case KeepLast:
				out[i] = item
			case SkipConflicts:
				skipped[n] = true
			}
		}
	}

	if len(skipped) == 0 {
		return out
	}
	kept := out[:0]
	for _, item := range out {
		if !skipped[name(item)] {
			kept = append(kept, item)
		}
	}
	return kept
}

// mergeAnnotations concatenates same-target annotation groups.
func (nm *nsMerge) mergeAnnotations(frags []*csdl.Schema) []*csdl.Annotations {
	var out []*csdl.Annotations
	index := make(map[string]int)
	for _, f := range frags {
		for _, g := range f.Annotations {
			k := g.Target + "#" + g.Qualifier
			i, seen := index[k]
			if !seen {
				index[k] = len(out)
				cp := *g
				cp.Annotations = append([]*csdl.Annotation(nil), g.Annotations...)
				out = append(out, &cp)
				continue
			}
			out[i].Annotations = append(out[i].Annotations, g.Annotations...)
			nm.res.note("Merged annotations for target '%s' in namespace '%s'", g.Target, nm.namespace)
		}
	}
	return out
}
