package csdl

import (
	"strings"
)

// ElementKind names a schema element bucket.
type ElementKind string

const (
	KindEntityType      ElementKind = "EntityType"
	KindComplexType     ElementKind = "ComplexType"
	KindEnumType        ElementKind = "EnumType"
	KindTypeDefinition  ElementKind = "TypeDefinition"
	KindAction          ElementKind = "Action"
	KindFunction        ElementKind = "Function"
	KindTerm            ElementKind = "Term"
	KindEntityContainer ElementKind = "EntityContainer"
	KindEntitySet       ElementKind = "EntitySet"
	KindSingleton       ElementKind = "Singleton"
	KindActionImport    ElementKind = "ActionImport"
	KindFunctionImport  ElementKind = "FunctionImport"
	KindAnnotations     ElementKind = "Annotations"
)

// Document is one parsed EDMX source file.
type Document struct {
	Path       string      `xml:"-"`
	Version    string      `xml:"Version,attr"`
	References []Reference `xml:"Reference"`
	Schemas    []*Schema   `xml:"DataServices>Schema"`
}

// Namespaces lists the namespaces declared by the document, in order.
func (d *Document) Namespaces() []string {
	out := make([]string, 0, len(d.Schemas))
	for _, s := range d.Schemas {
		out = append(out, s.Namespace)
	}
	return out
}

// ImportedNamespaces lists every namespace (and alias) pulled in through edmx:Include.
func (d *Document) ImportedNamespaces() []string {
	var out []string
	for _, ref := range d.References {
		for _, inc := range ref.Includes {
			out = append(out, inc.Namespace)
			if inc.Alias != "" {
				out = append(out, inc.Alias)
			}
		}
	}
	return out
}

// Reference is an edmx:Reference to another document.
type Reference struct {
	URI      string    `xml:"Uri,attr"`
	Includes []Include `xml:"Include"`
}

// Include is an edmx:Include inside a Reference.
type Include struct {
	Namespace string `xml:"Namespace,attr"`
	Alias     string `xml:"Alias,attr"`
}

// Schema is one namespace-scoped block of declarations.
type Schema struct {
	Namespace       string            `xml:"Namespace,attr"`
	Alias           string            `xml:"Alias,attr"`
	EntityTypes     []*EntityType     `xml:"EntityType"`
	ComplexTypes    []*ComplexType    `xml:"ComplexType"`
	EnumTypes       []*EnumType       `xml:"EnumType"`
	TypeDefinitions []*TypeDefinition `xml:"TypeDefinition"`
	Actions         []*Action         `xml:"Action"`
	Functions       []*Function       `xml:"Function"`
	Terms           []*Term           `xml:"Term"`
	EntityContainer *EntityContainer  `xml:"EntityContainer"`
	Annotations     []*Annotations    `xml:"Annotations"`
}

// Qualify returns the namespace-qualified form of name.
func (s *Schema) Qualify(name string) string {
	return s.Namespace + "." + name
}

// ElementNames returns every top-level element name declared in the schema, keyed by kind.
func (s *Schema) ElementNames() map[ElementKind][]string {
	out := make(map[ElementKind][]string)
	for _, t := range s.EntityTypes {
		out[KindEntityType] = append(out[KindEntityType], t.Name)
	}
	for _, t := range s.ComplexTypes {
		out[KindComplexType] = append(out[KindComplexType], t.Name)
	}
	for _, t := range s.EnumTypes {
		out[KindEnumType] = append(out[KindEnumType], t.Name)
	}
	for _, t := range s.TypeDefinitions {
		out[KindTypeDefinition] = append(out[KindTypeDefinition], t.Name)
	}
	for _, a := range s.Actions {
		out[KindAction] = append(out[KindAction], a.Name)
	}
	for _, f := range s.Functions {
		out[KindFunction] = append(out[KindFunction], f.Name)
	}
	for _, t := range s.Terms {
		out[KindTerm] = append(out[KindTerm], t.Name)
	}
	if s.EntityContainer != nil {
		out[KindEntityContainer] = append(out[KindEntityContainer], s.EntityContainer.Name)
	}
	return out
}

// EntityType declares a keyed structured type.
type EntityType struct {
	Name                 string                `xml:"Name,attr"`
	BaseType             string                `xml:"BaseType,attr"`
	Abstract             bool                  `xml:"Abstract,attr"`
	OpenType             bool                  `xml:"OpenType,attr"`
	HasStream            bool                  `xml:"HasStream,attr"`
	Key                  []PropertyRef         `xml:"Key>PropertyRef"`
	Properties           []*Property           `xml:"Property"`
	NavigationProperties []*NavigationProperty `xml:"NavigationProperty"`
}

// KeyNames returns the key property names in declaration order.
func (t *EntityType) KeyNames() []string {
	out := make([]string, len(t.Key))
	for i, k := range t.Key {
		out[i] = k.Name
	}
	return out
}

// PropertyRef names one key property.
type PropertyRef struct {
	Name  string `xml:"Name,attr"`
	Alias string `xml:"Alias,attr"`
}

// ComplexType declares a keyless structured type.
type ComplexType struct {
	Name                 string                `xml:"Name,attr"`
	BaseType             string                `xml:"BaseType,attr"`
	Abstract             bool                  `xml:"Abstract,attr"`
	OpenType             bool                  `xml:"OpenType,attr"`
	Properties           []*Property           `xml:"Property"`
	NavigationProperties []*NavigationProperty `xml:"NavigationProperty"`
}

// Property is a structural property.
type Property struct {
	Name      string `xml:"Name,attr"`
	Type      string `xml:"Type,attr"`
	Nullable  *bool  `xml:"Nullable,attr"`
	MaxLength string `xml:"MaxLength,attr"`
	Precision string `xml:"Precision,attr"`
	Scale     string `xml:"Scale,attr"`
	Unicode   *bool  `xml:"Unicode,attr"`
	Default   string `xml:"DefaultValue,attr"`
}

// IsNullable applies the CSDL default (nullable unless stated otherwise).
func (p *Property) IsNullable() bool { return p.Nullable == nil || *p.Nullable }

// IsUnicode applies the CSDL default (unicode unless stated otherwise).
func (p *Property) IsUnicode() bool { return p.Unicode == nil || *p.Unicode }

// NavigationProperty relates an entity type to another entity type.
type NavigationProperty struct {
	Name           string `xml:"Name,attr"`
	Type           string `xml:"Type,attr"`
	Nullable       *bool  `xml:"Nullable,attr"`
	Partner        string `xml:"Partner,attr"`
	ContainsTarget bool   `xml:"ContainsTarget,attr"`
}

// IsNullable applies the CSDL default.
func (n *NavigationProperty) IsNullable() bool { return n.Nullable == nil || *n.Nullable }

// EnumType declares named members over an integral underlying type.
type EnumType struct {
	Name           string        `xml:"Name,attr"`
	UnderlyingType string        `xml:"UnderlyingType,attr"`
	IsFlags        bool          `xml:"IsFlags,attr"`
	Members        []*EnumMember `xml:"Member"`
}

// EnumMember is one enum value.
type EnumMember struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr"`
}

// TypeDefinition aliases a primitive type.
type TypeDefinition struct {
	Name           string `xml:"Name,attr"`
	UnderlyingType string `xml:"UnderlyingType,attr"`
	MaxLength      string `xml:"MaxLength,attr"`
	Precision      string `xml:"Precision,attr"`
	Scale          string `xml:"Scale,attr"`
}

// Parameter is an operation parameter.
type Parameter struct {
	Name     string `xml:"Name,attr"`
	Type     string `xml:"Type,attr"`
	Nullable *bool  `xml:"Nullable,attr"`
}

// IsNullable applies the CSDL default.
func (p *Parameter) IsNullable() bool { return p.Nullable == nil || *p.Nullable }

// ReturnType is an operation result.
type ReturnType struct {
	Type     string `xml:"Type,attr"`
	Nullable *bool  `xml:"Nullable,attr"`
}

// IsNullable applies the CSDL default.
func (r *ReturnType) IsNullable() bool { return r.Nullable == nil || *r.Nullable }

// Action is a side-effecting operation.
type Action struct {
	Name          string       `xml:"Name,attr"`
	IsBound       bool         `xml:"IsBound,attr"`
	EntitySetPath string       `xml:"EntitySetPath,attr"`
	Parameters    []*Parameter `xml:"Parameter"`
	ReturnType    *ReturnType  `xml:"ReturnType"`
}

// Signature identifies an overload: name(p1,p2):ret.
func (a *Action) Signature() string { return signature(a.Name, a.Parameters, a.ReturnType) }

// MergeKey identifies an overload for merging: name_p1_p2.
func (a *Action) MergeKey() string { return mergeKey(a.Name, a.Parameters) }

// Function is a side-effect free operation.
type Function struct {
	Name          string       `xml:"Name,attr"`
	IsBound       bool         `xml:"IsBound,attr"`
	IsComposable  bool         `xml:"IsComposable,attr"`
	EntitySetPath string       `xml:"EntitySetPath,attr"`
	Parameters    []*Parameter `xml:"Parameter"`
	ReturnType    *ReturnType  `xml:"ReturnType"`
}

// Signature identifies an overload: name(p1,p2):ret.
func (f *Function) Signature() string { return signature(f.Name, f.Parameters, f.ReturnType) }

// MergeKey identifies an overload for merging: name_p1_p2.
func (f *Function) MergeKey() string { return mergeKey(f.Name, f.Parameters) }

func signature(name string, params []*Parameter, ret *ReturnType) string {
	types := make([]string, len(params))
	for i, p := range params {
		types[i] = p.Type
	}
	r := ""
	if ret != nil {
		r = ret.Type
	}
	return name + "(" + strings.Join(types, ",") + "):" + r
}

func mergeKey(name string, params []*Parameter) string {
	var sb strings.Builder
	sb.WriteString(name)
	for _, p := range params {
		sb.WriteString("_")
		sb.WriteString(p.Type)
	}
	return sb.String()
}

// Term declares an annotation vocabulary term.
type Term struct {
	Name      string `xml:"Name,attr"`
	Type      string `xml:"Type,attr"`
	BaseTerm  string `xml:"BaseTerm,attr"`
	AppliesTo string `xml:"AppliesTo,attr"`
	Nullable  *bool  `xml:"Nullable,attr"`
}

// EntityContainer groups the service surface.
type EntityContainer struct {
	Name            string            `xml:"Name,attr"`
	Extends         string            `xml:"Extends,attr"`
	EntitySets      []*EntitySet      `xml:"EntitySet"`
	Singletons      []*Singleton      `xml:"Singleton"`
	ActionImports   []*ActionImport   `xml:"ActionImport"`
	FunctionImports []*FunctionImport `xml:"FunctionImport"`
}

// EntitySet exposes a collection of entities.
type EntitySet struct {
	Name                     string                       `xml:"Name,attr"`
	EntityType               string                       `xml:"EntityType,attr"`
	IncludeInServiceDocument *bool                        `xml:"IncludeInServiceDocument,attr"`
	NavigationBindings       []*NavigationPropertyBinding `xml:"NavigationPropertyBinding"`
}

// Included applies the CSDL default.
func (e *EntitySet) Included() bool {
	return e.IncludeInServiceDocument == nil || *e.IncludeInServiceDocument
}

// NavigationPropertyBinding binds a navigation path to a target set.
type NavigationPropertyBinding struct {
	Path   string `xml:"Path,attr"`
	Target string `xml:"Target,attr"`
}

// Singleton exposes a single entity.
type Singleton struct {
	Name string `xml:"Name,attr"`
	Type string `xml:"Type,attr"`
}

// ActionImport exposes an unbound action.
type ActionImport struct {
	Name      string `xml:"Name,attr"`
	Action    string `xml:"Action,attr"`
	EntitySet string `xml:"EntitySet,attr"`
}

// FunctionImport exposes an unbound function.
type FunctionImport struct {
	Name                     string `xml:"Name,attr"`
	Function                 string `xml:"Function,attr"`
	EntitySet                string `xml:"EntitySet,attr"`
	IncludeInServiceDocument bool   `xml:"IncludeInServiceDocument,attr"`
}

// Annotations applies a group of annotations to one target.
type Annotations struct {
	Target      string        `xml:"Target,attr"`
	Qualifier   string        `xml:"Qualifier,attr"`
	Annotations []*Annotation `xml:"Annotation"`
}

// Annotation applies one term.
type Annotation struct {
	Term      string `xml:"Term,attr"`
	Qualifier string `xml:"Qualifier,attr"`
	String    string `xml:"String,attr"`
	Bool      string `xml:"Bool,attr"`
	Int       string `xml:"Int,attr"`
}

// UnwrapCollection strips a Collection(...) wrapper.
func UnwrapCollection(t string) (string, bool) {
	if strings.HasPrefix(t, "Collection(") && strings.HasSuffix(t, ")") {
		return t[len("Collection(") : len(t)-1], true
	}
	return t, false
}

// SplitQualified splits "A.B.Name" into ("A.B", "Name"). Unqualified names return an empty namespace.
func SplitQualified(name string) (string, string) {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}

// IsPrimitive reports whether t is a built-in Edm type.
func IsPrimitive(t string) bool {
	t, _ = UnwrapCollection(t)
	return strings.HasPrefix(t, "Edm.")
}
