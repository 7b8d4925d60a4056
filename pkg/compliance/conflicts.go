package compliance

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/merger"
)

type fragment struct {
	file   string
	schema *csdl.Schema
}

// DetectConflicts compares the schemas of several documents keyed by path.
//
// It reports elements declared by more than one file in the same namespace
// (an error when the definitions differ, a warning when they are identical),
// namespaces declared with different aliases, and aliases shared by distinct
// namespaces. Each issue is attributed to one of the files involved.
// Documents that failed to parse may be nil.
func DetectConflicts(docs map[string]*csdl.Document) []domain.Issue {
	files := make([]string, 0, len(docs))
	for f, doc := range docs {
		if doc != nil {
			files = append(files, f)
		}
	}
	sort.Strings(files)

	byNamespace := make(map[string][]fragment)
	var namespaces []string
	for _, f := range files {
		for _, s := range docs[f].Schemas {
			if s == nil || s.Namespace == "" {
				continue
			}
			if _, ok := byNamespace[s.Namespace]; !ok {
				namespaces = append(namespaces, s.Namespace)
			}
			byNamespace[s.Namespace] = append(byNamespace[s.Namespace], fragment{file: f, schema: s})
		}
	}
	sort.Strings(namespaces)

	var out []domain.Issue
	m := merger.New()
	for _, ns := range namespaces {
		frags := byNamespace[ns]
		out = append(out, elementConflicts(m, ns, frags)...)
		out = append(out, aliasConflicts(ns, frags)...)
	}
	out = append(out, crossNamespaceAliases(namespaces, byNamespace)...)
	return out
}

// declaration is one top-level element of a fragment. Operations are keyed
// by overload so that overloads split across files do not collide.
type declaration struct {
	key  string
	kind csdl.ElementKind
	name string
}

func declarations(s *csdl.Schema) []declaration {
	var out []declaration
	for kind, names := range s.ElementNames() {
		if kind == csdl.KindAction || kind == csdl.KindFunction {
			continue
		}
		for _, n := range names {
			out = append(out, declaration{key: string(kind) + ":" + n, kind: kind, name: n})
		}
	}
	for _, a := range s.Actions {
		out = append(out, declaration{key: string(csdl.KindAction) + ":" + a.MergeKey(), kind: csdl.KindAction, name: a.Name})
	}
	for _, f := range s.Functions {
		out = append(out, declaration{key: string(csdl.KindFunction) + ":" + f.MergeKey(), kind: csdl.KindFunction, name: f.Name})
	}
	return out
}

func elementConflicts(m *merger.Merger, ns string, frags []fragment) []domain.Issue {
	owners := make(map[string][]string)
	decls := make(map[string]declaration)
	var keys []string
	for _, fr := range frags {
		for _, d := range declarations(fr.schema) {
			if slices.Contains(owners[d.key], fr.file) {
				continue
			}
			if len(owners[d.key]) == 0 {
				keys = append(keys, d.key)
				decls[d.key] = d
			}
			owners[d.key] = append(owners[d.key], fr.file)
		}
	}
	sort.Strings(keys)

	// CheckCompatibility reports by kind and name.
	differing := make(map[string]bool)
	for i := 0; i < len(frags); i++ {
		for j := i + 1; j < len(frags); j++ {
			if frags[i].file == frags[j].file {
				continue
			}
			for _, key := range m.CheckCompatibility(frags[i].schema, frags[j].schema) {
				differing[key] = true
			}
		}
	}

	var out []domain.Issue
	for _, key := range keys {
		files := owners[key]
		if len(files) < 2 {
			continue
		}
		d := decls[key]
		sev := domain.SeverityWarning
		if differing[string(d.kind)+":"+d.name] {
			sev = domain.SeverityError
		}
		msg := fmt.Sprintf("Element conflict: '%s' in namespace '%s' is defined in multiple files: %s",
			d.name, ns, strings.Join(files, ", "))
		for _, f := range files {
			out = append(out, domain.Issue{
				Kind:        domain.KindNamespaceConflict,
				Severity:    sev,
				Message:     msg,
				File:        f,
				Element:     ns + "." + d.name,
				ElementKind: string(d.kind),
			})
		}
	}
	return out
}

func aliasConflicts(ns string, frags []fragment) []domain.Issue {
	var aliases []string
	for _, fr := range frags {
		if fr.schema.Alias != "" && !slices.Contains(aliases, fr.schema.Alias) {
			aliases = append(aliases, fr.schema.Alias)
		}
	}
	if len(aliases) < 2 {
		return nil
	}

	msg := fmt.Sprintf("Alias conflict: namespace '%s' is declared with different aliases: %s", ns, strings.Join(aliases, ", "))
	var out []domain.Issue
	var seen []string
	for _, fr := range frags {
		if fr.schema.Alias == "" || slices.Contains(seen, fr.file) {
			continue
		}
		seen = append(seen, fr.file)
		out = append(out, domain.Issue{
			Kind:     domain.KindAliasConflict,
			Severity: domain.SeverityError,
			Message:  msg,
			File:     fr.file,
			Element:  ns,
		})
	}
	return out
}

func crossNamespaceAliases(namespaces []string, byNamespace map[string][]fragment) []domain.Issue {
	type owner struct {
		ns   string
		file string
	}
	first := make(map[string]owner)
	reported := make(map[string]bool)

	var out []domain.Issue
	for _, ns := range namespaces {
		for _, fr := range byNamespace[ns] {
			alias := fr.schema.Alias
			if alias == "" {
				continue
			}
			prev, ok := first[alias]
			if !ok {
				first[alias] = owner{ns: ns, file: fr.file}
				continue
			}
			pair := alias + "\x00" + ns
			if prev.ns == ns || reported[pair] {
				continue
			}
			reported[pair] = true
			msg := fmt.Sprintf("Cross-namespace alias conflict: Alias '%s' is used for both namespace '%s' (in %s) and namespace '%s' (in %s)",
				alias, prev.ns, prev.file, ns, fr.file)
			attributed := []string{prev.file}
			if fr.file != prev.file {
				attributed = append(attributed, fr.file)
			}
			for _, f := range attributed {
				out = append(out, domain.Issue{
					Kind:     domain.KindAliasConflict,
					Severity: domain.SeverityError,
					Message:  msg,
					File:     f,
					Element:  alias,
				})
			}
		}
	}
	return out
}
