// Package registry holds the directory-wide index of schemas used by
// cross-file checks. It is populated before per-file validation starts and
// treated as read-only while files are validated.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/csdlc/pkg/csdl"
)

// SchemaDefinition summarizes one schema contributed by one file.
type SchemaDefinition struct {
	Namespace string           `json:"namespace"`
	Alias     string           `json:"alias,omitempty"`
	FilePath  string           `json:"file"`
	Types     []TypeDefinition `json:"types"`
}

// TypeDefinition describes one named type.
type TypeDefinition struct {
	Name     string           `json:"name"`
	Kind     csdl.ElementKind `json:"kind"`
	BaseType string           `json:"baseType,omitempty"`
}

// Statistics counts registry contents.
type Statistics struct {
	Namespaces   int `json:"namespaces"`
	TotalTypes   int `json:"totalTypes"`
	EntityTypes  int `json:"entityTypes"`
	ComplexTypes int `json:"complexTypes"`
	Files        int `json:"files"`
}

// Registry manages the known schemas.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[string][]*SchemaDefinition
	types      map[string]TypeDefinition
	aliases    map[string]string
	files      map[string][]*SchemaDefinition
}

// New creates a new empty registry.
func New() *Registry {
	r := &Registry{}
	r.reset()
	return r
}

func (r *Registry) reset() {
	r.namespaces = make(map[string][]*SchemaDefinition)
	r.types = make(map[string]TypeDefinition)
	r.aliases = make(map[string]string)
	r.files = make(map[string][]*SchemaDefinition)
}

// Reset drops every registered schema.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

// RegisterDocument registers every schema of doc under doc.Path.
func (r *Registry) RegisterDocument(doc *csdl.Document) {
	for _, s := range doc.Schemas {
		r.Register(doc.Path, s)
	}
}

// Register adds schema s as contributed by path.
// A type registered twice keeps its first definition.
func (r *Registry) Register(path string, s *csdl.Schema) {
	def := Describe(path, s)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(def)
}

func (r *Registry) add(def *SchemaDefinition) {
	r.namespaces[def.Namespace] = append(r.namespaces[def.Namespace], def)
	r.files[def.FilePath] = append(r.files[def.FilePath], def)
	if def.Alias != "" {
		r.aliases[def.Alias] = def.Namespace
	}
	for _, t := range def.Types {
		full := def.Namespace + "." + t.Name
		if _, ok := r.types[full]; !ok {
			r.types[full] = t
		}
	}
}

// Describe summarizes s without registering it.
func Describe(path string, s *csdl.Schema) *SchemaDefinition {
	def := &SchemaDefinition{Namespace: s.Namespace, Alias: s.Alias, FilePath: path}
	for _, t := range s.EntityTypes {
		def.Types = append(def.Types, TypeDefinition{Name: t.Name, Kind: csdl.KindEntityType, BaseType: t.BaseType})
	}
	for _, t := range s.ComplexTypes {
		def.Types = append(def.Types, TypeDefinition{Name: t.Name, Kind: csdl.KindComplexType, BaseType: t.BaseType})
	}
	for _, t := range s.EnumTypes {
		def.Types = append(def.Types, TypeDefinition{Name: t.Name, Kind: csdl.KindEnumType})
	}
	for _, t := range s.TypeDefinitions {
		def.Types = append(def.Types, TypeDefinition{Name: t.Name, Kind: csdl.KindTypeDefinition, BaseType: t.UnderlyingType})
	}
	for _, a := range s.Actions {
		def.Types = append(def.Types, TypeDefinition{Name: a.Name, Kind: csdl.KindAction})
	}
	for _, f := range s.Functions {
		def.Types = append(def.Types, TypeDefinition{Name: f.Name, Kind: csdl.KindFunction})
	}
	for _, t := range s.Terms {
		def.Types = append(def.Types, TypeDefinition{Name: t.Name, Kind: csdl.KindTerm})
	}
	if c := s.EntityContainer; c != nil {
		def.Types = append(def.Types, TypeDefinition{Name: c.Name, Kind: csdl.KindEntityContainer})
	}
	return def
}

// HasNamespace reports whether any file declared ns (or an alias of it).
func (r *Registry) HasNamespace(ns string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.namespaces[ns]; ok {
		return true
	}
	_, ok := r.aliases[ns]
	return ok
}

// HasSchemaForFile reports whether path contributed at least one schema.
// Paths are compared as registered and by base name as a fallback.
func (r *Registry) HasSchemaForFile(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.files[path]; ok {
		return true
	}
	base := baseName(path)
	for f := range r.files {
		if baseName(f) == base {
			return true
		}
	}
	return false
}

// Type returns the definition of a qualified type name, resolving aliases.
func (r *Registry) Type(name string) (TypeDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(name)
}

func (r *Registry) lookup(name string) (TypeDefinition, bool) {
	if t, ok := r.types[name]; ok {
		return t, true
	}
	ns, local := csdl.SplitQualified(name)
	if full, ok := r.aliases[ns]; ok {
		t, ok := r.types[full+"."+local]
		return t, ok
	}
	return TypeDefinition{}, false
}

// TypeExists reports whether name resolves to a registered type.
func (r *Registry) TypeExists(name string) bool {
	_, ok := r.Type(name)
	return ok
}

// IsValidBaseType reports whether base may be the base type of derived: both
// exist, they are of the same kind (entity and complex types never derive
// from each other) and base does not itself derive from derived.
func (r *Registry) IsValidBaseType(derived, base string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.lookup(derived)
	if !ok {
		return false
	}
	b, ok := r.lookup(base)
	if !ok {
		return false
	}
	if d.Kind != b.Kind {
		return false
	}

	seen := map[string]bool{derived: true}
	for cur := base; cur != ""; {
		if seen[cur] {
			return false
		}
		seen[cur] = true
		t, ok := r.lookup(cur)
		if !ok {
			break
		}
		cur = t.BaseType
	}
	return true
}

// Schemas returns the definitions registered for ns.
func (r *Registry) Schemas(ns string) []SchemaDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := r.namespaces[ns]
	out := make([]SchemaDefinition, len(defs))
	for i, d := range defs {
		out[i] = *d
	}
	return out
}

// SchemasForFile returns the definitions contributed by path.
func (r *Registry) SchemasForFile(path string) []SchemaDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := r.files[path]
	out := make([]SchemaDefinition, len(defs))
	for i, d := range defs {
		out[i] = *d
	}
	return out
}

// Namespaces returns every registered namespace, sorted.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.namespaces))
	for ns := range r.namespaces {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Files returns every registered file, sorted.
func (r *Registry) Files() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.files))
	for f := range r.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Statistics counts the registry contents.
func (r *Registry) Statistics() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Statistics{
		Namespaces: len(r.namespaces),
		TotalTypes: len(r.types),
		Files:      len(r.files),
	}
	for _, t := range r.types {
		switch t.Kind {
		case csdl.KindEntityType:
			st.EntityTypes++
		case csdl.KindComplexType:
			st.ComplexTypes++
		}
	}
	return st
}

// Merge copies every definition of other into r.
func (r *Registry) Merge(other *Registry) error {
	if other == nil {
		return fmt.Errorf("merge: nil registry")
	}
	if other == r {
		return nil
	}

	other.mu.RLock()
	var defs []*SchemaDefinition
	for _, list := range other.files {
		defs = append(defs, list...)
	}
	other.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range defs {
		cp := *d
		r.add(&cp)
	}
	return nil
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
