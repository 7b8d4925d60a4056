package csdl

// Builder accumulates declarations into a Schema.
// It is the supported way to assemble or extend a fragment outside the parser.
type Builder struct {
	schema *Schema
}

// NewSchema starts a builder for namespace ns.
func NewSchema(ns string) *Builder {
	return &Builder{schema: &Schema{Namespace: ns}}
}

// Extend wraps an existing schema so further declarations are appended to it.
func Extend(s *Schema) *Builder {
	return &Builder{schema: s}
}

// Alias sets the schema alias.
func (b *Builder) Alias(alias string) *Builder {
	b.schema.Alias = alias
	return b
}

// Entity adds (or returns the existing) entity type called name.
func (b *Builder) Entity(name string) *EntityBuilder {
	for _, t := range b.schema.EntityTypes {
		if t.Name == name {
			return &EntityBuilder{t: t, parent: b}
		}
	}
	t := &EntityType{Name: name}
	b.schema.EntityTypes = append(b.schema.EntityTypes, t)
	return &EntityBuilder{t: t, parent: b}
}

// AddEntityType appends t without deduplication.
func (b *Builder) AddEntityType(t *EntityType) *Builder {
	b.schema.EntityTypes = append(b.schema.EntityTypes, t)
	return b
}

// Complex adds a complex type with the given properties.
func (b *Builder) Complex(name string, props ...*Property) *Builder {
	b.schema.ComplexTypes = append(b.schema.ComplexTypes, &ComplexType{Name: name, Properties: props})
	return b
}

// AddComplexType appends t without deduplication.
func (b *Builder) AddComplexType(t *ComplexType) *Builder {
	b.schema.ComplexTypes = append(b.schema.ComplexTypes, t)
	return b
}

// Enum adds an enum type with members valued by position.
func (b *Builder) Enum(name string, members ...string) *Builder {
	e := &EnumType{Name: name, UnderlyingType: "Edm.Int32"}
	for _, m := range members {
		e.Members = append(e.Members, &EnumMember{Name: m})
	}
	b.schema.EnumTypes = append(b.schema.EnumTypes, e)
	return b
}

// TypeDef adds a type definition.
func (b *Builder) TypeDef(name, underlying string) *Builder {
	b.schema.TypeDefinitions = append(b.schema.TypeDefinitions, &TypeDefinition{Name: name, UnderlyingType: underlying})
	return b
}

// Action adds an action. ret may be empty.
func (b *Builder) Action(name, ret string, params ...*Parameter) *Builder {
	a := &Action{Name: name, Parameters: params}
	if ret != "" {
		a.ReturnType = &ReturnType{Type: ret}
	}
	b.schema.Actions = append(b.schema.Actions, a)
	return b
}

// Function adds a function returning ret.
func (b *Builder) Function(name, ret string, params ...*Parameter) *Builder {
	b.schema.Functions = append(b.schema.Functions, &Function{Name: name, Parameters: params, ReturnType: &ReturnType{Type: ret}})
	return b
}

// Term adds a vocabulary term.
func (b *Builder) Term(name, typ string) *Builder {
	b.schema.Terms = append(b.schema.Terms, &Term{Name: name, Type: typ})
	return b
}

// Container returns the schema's entity container, creating it with name if absent.
func (b *Builder) Container(name string) *ContainerBuilder {
	if b.schema.EntityContainer == nil {
		b.schema.EntityContainer = &EntityContainer{Name: name}
	}
	return &ContainerBuilder{c: b.schema.EntityContainer, parent: b}
}

// Annotate appends an annotation group for target.
func (b *Builder) Annotate(target string, terms ...string) *Builder {
	g := &Annotations{Target: target}
	for _, t := range terms {
		g.Annotations = append(g.Annotations, &Annotation{Term: t})
	}
	b.schema.Annotations = append(b.schema.Annotations, g)
	return b
}

// Build returns the accumulated schema.
func (b *Builder) Build() *Schema {
	return b.schema
}

// EntityBuilder configures one entity type.
type EntityBuilder struct {
	t      *EntityType
	parent *Builder
}

// Key sets the key property names.
func (e *EntityBuilder) Key(names ...string) *EntityBuilder {
	e.t.Key = e.t.Key[:0]
	for _, n := range names {
		e.t.Key = append(e.t.Key, PropertyRef{Name: n})
	}
	return e
}

// Base sets the base type.
func (e *EntityBuilder) Base(t string) *EntityBuilder {
	e.t.BaseType = t
	return e
}

// Abstract marks the type abstract.
func (e *EntityBuilder) Abstract() *EntityBuilder {
	e.t.Abstract = true
	return e
}

// Prop adds a nullable structural property.
func (e *EntityBuilder) Prop(name, typ string) *EntityBuilder {
	e.t.Properties = append(e.t.Properties, &Property{Name: name, Type: typ})
	return e
}

// AddProperty adds a fully specified property.
func (e *EntityBuilder) AddProperty(p *Property) *EntityBuilder {
	e.t.Properties = append(e.t.Properties, p)
	return e
}

// Nav adds a navigation property.
func (e *EntityBuilder) Nav(name, typ string) *EntityBuilder {
	e.t.NavigationProperties = append(e.t.NavigationProperties, &NavigationProperty{Name: name, Type: typ})
	return e
}

// Done returns to the schema builder.
func (e *EntityBuilder) Done() *Builder {
	return e.parent
}

// ContainerBuilder configures an entity container.
type ContainerBuilder struct {
	c      *EntityContainer
	parent *Builder
}

// EntitySet adds an entity set.
func (c *ContainerBuilder) EntitySet(name, entityType string) *ContainerBuilder {
	c.c.EntitySets = append(c.c.EntitySets, &EntitySet{Name: name, EntityType: entityType})
	return c
}

// Singleton adds a singleton.
func (c *ContainerBuilder) Singleton(name, typ string) *ContainerBuilder {
	c.c.Singletons = append(c.c.Singletons, &Singleton{Name: name, Type: typ})
	return c
}

// ActionImport adds an action import.
func (c *ContainerBuilder) ActionImport(name, action string) *ContainerBuilder {
	c.c.ActionImports = append(c.c.ActionImports, &ActionImport{Name: name, Action: action})
	return c
}

// FunctionImport adds a function import.
func (c *ContainerBuilder) FunctionImport(name, function string) *ContainerBuilder {
	c.c.FunctionImports = append(c.c.FunctionImports, &FunctionImport{Name: name, Function: function})
	return c
}

// Done returns to the schema builder.
func (c *ContainerBuilder) Done() *Builder {
	return c.parent
}

// Param is shorthand for a nullable parameter.
func Param(name, typ string) *Parameter {
	return &Parameter{Name: name, Type: typ}
}

// Prop is shorthand for a nullable property.
func Prop(name, typ string) *Property {
	return &Property{Name: name, Type: typ}
}

// Bool returns a pointer to v, for the optional facets.
func Bool(v bool) *bool {
	return &v
}
