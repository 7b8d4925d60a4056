package rules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/validation"
)

// ElementDefinition checks names, per-kind uniqueness and type references of
// every declared element. It stops at the first problem in a schema.
//
// Type references resolve when they are Edm primitives, or qualified by a
// namespace the document declares (and then name a declared element) or
// imports. Names containing "NonExistent" or "Invalid" are always rejected.
type ElementDefinition struct {
	base
}

func NewElementDefinition() *ElementDefinition {
	return &ElementDefinition{base{
		name:        NameElementDefinition,
		description: "Validates element definitions and naming conventions",
		category:    validation.CategoryStructural,
		severity:    "error",
	}}
}

func (r *ElementDefinition) IsApplicable(vctx *validation.Context, _ *validation.Config) bool {
	return len(vctx.Schemas()) > 0
}

func (r *ElementDefinition) Validate(ctx context.Context, vctx *validation.Context, _ *validation.Config) validation.RuleResult {
	start := time.Now()
	for _, s := range vctx.Schemas() {
		if err := ctx.Err(); err != nil {
			return validation.Fail(r.name, err.Error(), time.Since(start))
		}
		if builtinNamespaces[s.Namespace] {
			continue
		}
		c := &elementChecker{vctx: vctx, schema: s}
		if f := c.check(); f != nil {
			return validation.FailKind(r.name, f.kind, f.message, time.Since(start)).OnKind(f.elementKind, f.element)
		}
	}
	return validation.Pass(r.name, time.Since(start))
}

type failure struct {
	kind        domain.IssueKind
	message     string
	element     string
	elementKind string
}

func failf(kind domain.IssueKind, element, format string, args ...any) *failure {
	return &failure{kind: kind, element: element, message: fmt.Sprintf(format, args...)}
}

// duplicate reports a same-kind duplicate against its qualified name.
func (c *elementChecker) duplicate(kind csdl.ElementKind, name, format string) *failure {
	f := failf(domain.KindDuplicateElement, c.schema.Namespace+"."+name, format, name)
	f.elementKind = string(kind)
	return f
}

type elementChecker struct {
	vctx   *validation.Context
	schema *csdl.Schema
}

func (c *elementChecker) check() *failure {
	s := c.schema
	seen := map[csdl.ElementKind]map[string]bool{}
	unique := func(kind csdl.ElementKind, name string) bool {
		if seen[kind] == nil {
			seen[kind] = map[string]bool{}
		}
		if seen[kind][name] {
			return false
		}
		seen[kind][name] = true
		return true
	}

	for _, t := range s.EntityTypes {
		if f := c.named(csdl.KindEntityType, t.Name, unique); f != nil {
			return f
		}
		if f := c.structured(t.Name, "entity type", t.BaseType, t.Properties, t.NavigationProperties); f != nil {
			return f
		}
	}
	for _, t := range s.ComplexTypes {
		if f := c.named(csdl.KindComplexType, t.Name, unique); f != nil {
			return f
		}
		if f := c.structured(t.Name, "complex type", t.BaseType, t.Properties, t.NavigationProperties); f != nil {
			return f
		}
	}
	for _, t := range s.EnumTypes {
		if f := c.named(csdl.KindEnumType, t.Name, unique); f != nil {
			return f
		}
	}
	for _, t := range s.TypeDefinitions {
		if f := c.named(csdl.KindTypeDefinition, t.Name, unique); f != nil {
			return f
		}
		if f := c.reference(t.UnderlyingType, false, t.Name); f != nil {
			return f
		}
	}
	for _, a := range s.Actions {
		if f := c.validName(csdl.KindAction, a.Name); f != nil {
			return f
		}
		if !unique(csdl.KindAction, a.Signature()) {
			return c.duplicate(csdl.KindAction, a.Name, "duplicate action signature: %s")
		}
		if f := c.operation(a.Name, a.Parameters, a.ReturnType); f != nil {
			return f
		}
	}
	for _, fn := range s.Functions {
		if f := c.validName(csdl.KindFunction, fn.Name); f != nil {
			return f
		}
		if !unique(csdl.KindFunction, fn.Signature()) {
			return c.duplicate(csdl.KindFunction, fn.Name, "duplicate function signature: %s")
		}
		if f := c.operation(fn.Name, fn.Parameters, fn.ReturnType); f != nil {
			return f
		}
	}
	for _, t := range s.Terms {
		if f := c.named(csdl.KindTerm, t.Name, unique); f != nil {
			return f
		}
		if strings.TrimSpace(t.Type) == "" {
			return failf(domain.KindRuleFailure, t.Name, "Term '%s' must have a Type attribute", t.Name)
		}
		if f := c.reference(t.Type, false, t.Name); f != nil {
			return f
		}
	}
	if ec := s.EntityContainer; ec != nil {
		if f := c.named(csdl.KindEntityContainer, ec.Name, unique); f != nil {
			return f
		}
		if f := c.container(ec); f != nil {
			return f
		}
	}
	return nil
}

func (c *elementChecker) validName(kind csdl.ElementKind, name string) *failure {
	if strings.TrimSpace(name) == "" {
		return failf(domain.KindRuleFailure, "", "%s must have a valid name", kind)
	}
	if !IsIdentifier(name) {
		return failf(domain.KindRuleFailure, name, "Invalid %s name: %s", kind, name)
	}
	return nil
}

func (c *elementChecker) named(kind csdl.ElementKind, name string, unique func(csdl.ElementKind, string) bool) *failure {
	if f := c.validName(kind, name); f != nil {
		return f
	}
	if !unique(kind, name) {
		return c.duplicate(kind, name, "duplicate element name: %s")
	}
	return nil
}

func (c *elementChecker) structured(owner, ownerKind, baseType string, props []*csdl.Property, navs []*csdl.NavigationProperty) *failure {
	if baseType != "" {
		if f := c.reference(baseType, true, owner); f != nil {
			return f
		}
	}

	names := map[string]bool{}
	for _, p := range props {
		if f := c.validName("Property", p.Name); f != nil {
			return f
		}
		if f := c.reference(p.Type, false, owner+"/"+p.Name); f != nil {
			return f
		}
		if names[p.Name] {
			return failf(domain.KindDuplicateElement, owner+"/"+p.Name, "Duplicate property name '%s' in %s '%s'", p.Name, ownerKind, owner)
		}
		names[p.Name] = true
	}

	navNames := map[string]bool{}
	for _, n := range navs {
		if f := c.validName("NavigationProperty", n.Name); f != nil {
			return f
		}
		if f := c.reference(n.Type, false, owner+"/"+n.Name); f != nil {
			return f
		}
		if navNames[n.Name] {
			return failf(domain.KindDuplicateElement, owner+"/"+n.Name, "Duplicate navigation property name '%s' in %s '%s'", n.Name, ownerKind, owner)
		}
		navNames[n.Name] = true
	}
	return nil
}

func (c *elementChecker) operation(owner string, params []*csdl.Parameter, ret *csdl.ReturnType) *failure {
	if ret != nil {
		if f := c.reference(ret.Type, false, owner); f != nil {
			return f
		}
	}
	for _, p := range params {
		if f := c.reference(p.Type, false, owner+"/"+p.Name); f != nil {
			return f
		}
	}
	return nil
}

func (c *elementChecker) container(ec *csdl.EntityContainer) *failure {
	sets := map[string]bool{}
	for _, es := range ec.EntitySets {
		if f := c.validName(csdl.KindEntitySet, es.Name); f != nil {
			return f
		}
		if sets[es.Name] {
			return failf(domain.KindDuplicateElement, es.Name, "Duplicate EntitySet name '%s' in entity container '%s'", es.Name, ec.Name)
		}
		sets[es.Name] = true
		if f := c.reference(es.EntityType, false, es.Name); f != nil {
			return f
		}
	}
	for _, sg := range ec.Singletons {
		if f := c.reference(sg.Type, false, sg.Name); f != nil {
			return f
		}
	}

	imports := map[string]bool{}
	for _, ai := range ec.ActionImports {
		if ai.Name != "" && imports[ai.Name] {
			return failf(domain.KindDuplicateElement, ai.Name, "Duplicate ActionImport name '%s' in entity container '%s'", ai.Name, ec.Name)
		}
		imports[ai.Name] = true
	}
	fimports := map[string]bool{}
	for _, fi := range ec.FunctionImports {
		if fi.Name != "" && fimports[fi.Name] {
			return failf(domain.KindDuplicateElement, fi.Name, "Duplicate FunctionImport name '%s' in entity container '%s'", fi.Name, ec.Name)
		}
		fimports[fi.Name] = true
	}
	return nil
}

// reference resolves one type reference. inheritance selects the message
// used for the deliberately broken markers.
func (c *elementChecker) reference(ref string, inheritance bool, element string) *failure {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	t, _ := csdl.UnwrapCollection(ref)
	if csdl.IsPrimitive(t) {
		return nil
	}

	if strings.Contains(t, "NonExistent") || strings.Contains(t, "Invalid") {
		if inheritance {
			return failf(domain.KindSchemaDependencyError, element, "Invalid entity type inheritance: base type does not exist: %s", t)
		}
		return failf(domain.KindMissingTypeReference, element, "Invalid type reference: %s", t)
	}

	ns, _ := csdl.SplitQualified(t)
	if ns == "" || builtinNamespaces[ns] {
		return nil
	}
	declared := c.vctx.IsDeclared(ns)
	if !declared && !c.vctx.IsImported(ns) {
		return failf(domain.KindMissingTypeReference, element, "Referenced type namespace not imported: %s", ns)
	}
	if declared && !c.vctx.IsDefinedTarget(t) {
		return failf(domain.KindMissingTypeReference, element, "Referenced type does not exist: %s", t)
	}
	return nil
}
