// Package typeregistry indexes every named element declared by a set of
// schemas so higher layers can answer existence and kind questions.
package typeregistry

import (
	"sort"

	"github.com/aretw0/csdlc/pkg/csdl"
)

// Registry is built once per validation pass and is read-only afterwards.
// Every name is stored both namespace-qualified and, when the schema declares
// an alias, alias-qualified.
type Registry struct {
	kinds   map[string]csdl.ElementKind
	targets map[string]struct{}
}

// Build indexes schemas. Nil schemas are skipped.
func Build(schemas ...*csdl.Schema) *Registry {
	r := &Registry{
		kinds:   make(map[string]csdl.ElementKind),
		targets: make(map[string]struct{}),
	}
	for _, s := range schemas {
		if s == nil {
			continue
		}
		prefixes := []string{s.Namespace}
		if s.Alias != "" && s.Alias != s.Namespace {
			prefixes = append(prefixes, s.Alias)
		}
		for _, p := range prefixes {
			r.register(p, s)
		}
	}
	return r
}

func (r *Registry) register(prefix string, s *csdl.Schema) {
	q := func(name string) string { return prefix + "." + name }

	for _, t := range s.EntityTypes {
		full := q(t.Name)
		r.add(full, csdl.KindEntityType)
		for _, p := range t.Properties {
			r.target(full + "/" + p.Name)
		}
		for _, n := range t.NavigationProperties {
			r.target(full + "/" + n.Name)
		}
	}
	for _, t := range s.ComplexTypes {
		full := q(t.Name)
		r.add(full, csdl.KindComplexType)
		for _, p := range t.Properties {
			r.target(full + "/" + p.Name)
		}
		for _, n := range t.NavigationProperties {
			r.target(full + "/" + n.Name)
		}
	}
	for _, t := range s.EnumTypes {
		full := q(t.Name)
		r.add(full, csdl.KindEnumType)
		for _, m := range t.Members {
			r.target(full + "/" + m.Name)
		}
	}
	for _, t := range s.TypeDefinitions {
		r.add(q(t.Name), csdl.KindTypeDefinition)
	}
	for _, f := range s.Functions {
		r.add(q(f.Name), csdl.KindFunction)
	}
	for _, a := range s.Actions {
		r.add(q(a.Name), csdl.KindAction)
	}
	for _, t := range s.Terms {
		r.add(q(t.Name), csdl.KindTerm)
	}
	if c := s.EntityContainer; c != nil {
		full := q(c.Name)
		r.add(full, csdl.KindEntityContainer)
		for _, es := range c.EntitySets {
			r.target(full + "/" + es.Name)
		}
		for _, sg := range c.Singletons {
			r.target(full + "/" + sg.Name)
		}
		for _, ai := range c.ActionImports {
			r.target(full + "/" + ai.Name)
		}
		for _, fi := range c.FunctionImports {
			r.target(full + "/" + fi.Name)
		}
	}
}

func (r *Registry) add(name string, kind csdl.ElementKind) {
	// First declaration wins; duplicates are reported by the rules, not here.
	if _, ok := r.kinds[name]; !ok {
		r.kinds[name] = kind
	}
	r.target(name)
}

func (r *Registry) target(name string) {
	r.targets[name] = struct{}{}
}

func (r *Registry) is(name string, kind csdl.ElementKind) bool {
	return r.kinds[name] == kind
}

// HasEntityType reports whether name is a declared entity type.
func (r *Registry) HasEntityType(name string) bool { return r.is(name, csdl.KindEntityType) }

// HasComplexType reports whether name is a declared complex type.
func (r *Registry) HasComplexType(name string) bool { return r.is(name, csdl.KindComplexType) }

// HasEnumType reports whether name is a declared enum type.
func (r *Registry) HasEnumType(name string) bool { return r.is(name, csdl.KindEnumType) }

// HasTypeDefinition reports whether name is a declared type definition.
func (r *Registry) HasTypeDefinition(name string) bool { return r.is(name, csdl.KindTypeDefinition) }

// HasFunction reports whether name is a declared function.
func (r *Registry) HasFunction(name string) bool { return r.is(name, csdl.KindFunction) }

// HasAction reports whether name is a declared action.
func (r *Registry) HasAction(name string) bool { return r.is(name, csdl.KindAction) }

// HasOperation reports whether name is a declared function or action.
func (r *Registry) HasOperation(name string) bool { return r.HasFunction(name) || r.HasAction(name) }

// HasTerm reports whether name is a declared term.
func (r *Registry) HasTerm(name string) bool { return r.is(name, csdl.KindTerm) }

// HasContainer reports whether name is a declared entity container.
func (r *Registry) HasContainer(name string) bool { return r.is(name, csdl.KindEntityContainer) }

// HasType reports whether name is an entity, complex, enum or type definition.
func (r *Registry) HasType(name string) bool {
	switch r.kinds[name] {
	case csdl.KindEntityType, csdl.KindComplexType, csdl.KindEnumType, csdl.KindTypeDefinition:
		return true
	}
	return false
}

// HasTarget reports whether name can be annotated.
func (r *Registry) HasTarget(name string) bool {
	_, ok := r.targets[name]
	return ok
}

// Kind returns the kind name was declared as.
func (r *Registry) Kind(name string) (csdl.ElementKind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// Targets returns every annotatable name, sorted.
func (r *Registry) Targets() []string {
	out := make([]string, 0, len(r.targets))
	for t := range r.targets {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of named elements (excluding member paths).
func (r *Registry) Len() int {
	return len(r.kinds)
}
