package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/registry"
	"github.com/aretw0/csdlc/pkg/validation"
)

// Namespaces under this prefix are the published OData vocabularies.
const standardVocabularyPrefix = "Org.OData."

// CrossFileReference resolves references, includes and type references of one
// file against the directory-wide schema registry.
type CrossFileReference struct {
	base
}

func NewCrossFileReference() *CrossFileReference {
	return &CrossFileReference{base{
		name:        NameCrossFileReference,
		description: "Validates references between schema files using the schema registry",
		category:    validation.CategorySemantic,
		severity:    "error",
	}}
}

func (r *CrossFileReference) IsApplicable(vctx *validation.Context, cfg *validation.Config) bool {
	if vctx.Registry() == nil || !cfg.CrossFileValidation {
		return false
	}
	return hasSource(vctx) || len(vctx.Schemas()) > 0
}

func (r *CrossFileReference) Validate(ctx context.Context, vctx *validation.Context, _ *validation.Config) validation.RuleResult {
	start := time.Now()
	reg := vctx.Registry()

	refs, includes, aliases := r.imports(vctx)

	dir := "."
	if p := vctx.FilePath(); p != "" {
		dir = filepath.Dir(p)
	}
	for _, uri := range refs {
		if isRemote(uri) {
			continue
		}
		path := uri
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if !reg.HasSchemaForFile(path) {
			return validation.FailKind(r.name, domain.KindSchemaNotFound, fmt.Sprintf(
				"Referenced file '%s' is not registered in Schema Registry. The file may not exist or may have parsing errors.", uri),
				time.Since(start)).On(uri)
		}
	}
	for _, ns := range includes {
		if builtinNamespaces[ns] || strings.HasPrefix(ns, standardVocabularyPrefix) {
			continue
		}
		if !reg.HasNamespace(ns) {
			return validation.FailKind(r.name, domain.KindSchemaNotFound, fmt.Sprintf(
				"Included namespace '%s' is not found in Schema Registry. The referenced schema may not exist or may have parsing errors.", ns),
				time.Since(start)).On(ns)
		}
	}

	for _, s := range vctx.Schemas() {
		if err := ctx.Err(); err != nil {
			return validation.Fail(r.name, err.Error(), time.Since(start))
		}
		resolve := func(t string) string {
			ns, local := csdl.SplitQualified(t)
			if full, ok := aliases[ns]; ok {
				return full + "." + local
			}
			if s.Alias != "" && ns == s.Alias {
				return s.Namespace + "." + local
			}
			return t
		}
		for _, t := range s.EntityTypes {
			if f := r.structured(reg, resolve, s.Qualify(t.Name), "EntityType", t.Name, t.BaseType, t.Properties, t.NavigationProperties); f != nil {
				return validation.FailKind(r.name, f.kind, f.message, time.Since(start)).On(f.element)
			}
		}
		for _, t := range s.ComplexTypes {
			if f := r.structured(reg, resolve, s.Qualify(t.Name), "ComplexType", t.Name, t.BaseType, t.Properties, t.NavigationProperties); f != nil {
				return validation.FailKind(r.name, f.kind, f.message, time.Since(start)).On(f.element)
			}
		}
	}
	return validation.Pass(r.name, time.Since(start))
}

// imports returns the referenced URIs, included namespaces and include aliases
// of the document, falling back to a raw scan when it could not be parsed.
func (r *CrossFileReference) imports(vctx *validation.Context) ([]string, []string, map[string]string) {
	aliases := make(map[string]string)
	if doc := vctx.Document(); doc != nil {
		var refs, includes []string
		for _, ref := range doc.References {
			refs = append(refs, ref.URI)
			for _, inc := range ref.Includes {
				if inc.Alias != "" {
					aliases[inc.Alias] = inc.Namespace
				}
				if !isRemote(ref.URI) {
					includes = append(includes, inc.Namespace)
				}
			}
		}
		return refs, includes, aliases
	}
	content, err := rawContent(vctx)
	if err != nil {
		return nil, nil, aliases
	}
	return csdl.ScanReferences(content), csdl.ScanIncludes(content), aliases
}

func (r *CrossFileReference) structured(
	reg *registry.Registry,
	resolve func(string) string,
	full, kind, name, baseType string,
	props []*csdl.Property,
	navs []*csdl.NavigationProperty,
) *failure {
	if baseType != "" {
		b := resolve(baseType)
		if !reg.TypeExists(b) {
			return failf(domain.KindSchemaDependencyError, full,
				"Schema dependency error: Type '%s' references non-existent base type '%s'", full, baseType)
		}
		if reg.TypeExists(full) && !reg.IsValidBaseType(full, b) {
			return failf(domain.KindInvalidInheritance, full,
				"Invalid inheritance hierarchy: Type '%s' cannot inherit from '%s'", full, baseType)
		}
	}

	check := func(member, typ string) *failure {
		t, _ := csdl.UnwrapCollection(typ)
		if t == "" || csdl.IsPrimitive(t) {
			return nil
		}
		t = resolve(t)
		ns, _ := csdl.SplitQualified(t)
		if ns == "" || builtinNamespaces[ns] || !reg.HasNamespace(ns) {
			return nil
		}
		if !reg.TypeExists(t) {
			return failf(domain.KindTypeNotExist, full+"/"+member,
				"Property '%s' in %s '%s' references undefined type '%s'", member, kind, name, typ)
		}
		return nil
	}
	for _, p := range props {
		if f := check(p.Name, p.Type); f != nil {
			return f
		}
	}
	for _, n := range navs {
		if f := check(n.Name, n.Type); f != nil {
			return f
		}
	}
	return nil
}

