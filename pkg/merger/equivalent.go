package merger

import (
	"github.com/aretw0/csdlc/pkg/csdl"
)

// Deep structural equivalence used to tell identical duplicates from
// conflicting ones. Property and navigation lists are compared as name-keyed
// sets; keys, enum members and parameters are compared in order.

func entityTypesEqual(a, b *csdl.EntityType) bool {
	if a.Name != b.Name || a.BaseType != b.BaseType ||
		a.Abstract != b.Abstract || a.OpenType != b.OpenType || a.HasStream != b.HasStream {
		return false
	}
	if !stringsEqual(a.KeyNames(), b.KeyNames()) {
		return false
	}
	return propertiesEqual(a.Properties, b.Properties) &&
		navigationsEqual(a.NavigationProperties, b.NavigationProperties)
}

func complexTypesEqual(a, b *csdl.ComplexType) bool {
	if a.Name != b.Name || a.BaseType != b.BaseType || a.Abstract != b.Abstract || a.OpenType != b.OpenType {
		return false
	}
	return propertiesEqual(a.Properties, b.Properties) &&
		navigationsEqual(a.NavigationProperties, b.NavigationProperties)
}

func enumTypesEqual(a, b *csdl.EnumType) bool {
	if a.Name != b.Name || a.UnderlyingType != b.UnderlyingType || a.IsFlags != b.IsFlags {
		return false
	}
	if len(a.Members) != len(b.Members) {
		return false
	}
	for i := range a.Members {
		if a.Members[i].Name != b.Members[i].Name || a.Members[i].Value != b.Members[i].Value {
			return false
		}
	}
	return true
}

func typeDefinitionsEqual(a, b *csdl.TypeDefinition) bool {
	return *a == *b
}

func termsEqual(a, b *csdl.Term) bool {
	return a.Name == b.Name && a.Type == b.Type && a.BaseTerm == b.BaseTerm &&
		a.AppliesTo == b.AppliesTo && boolPtrEqual(a.Nullable, b.Nullable, true)
}

func actionsEqual(a, b *csdl.Action) bool {
	return a.Name == b.Name && a.IsBound == b.IsBound && a.EntitySetPath == b.EntitySetPath &&
		parametersEqual(a.Parameters, b.Parameters) && returnTypesEqual(a.ReturnType, b.ReturnType)
}

func functionsEqual(a, b *csdl.Function) bool {
	return a.Name == b.Name && a.IsBound == b.IsBound && a.IsComposable == b.IsComposable &&
		a.EntitySetPath == b.EntitySetPath &&
		parametersEqual(a.Parameters, b.Parameters) && returnTypesEqual(a.ReturnType, b.ReturnType)
}

func entitySetsEqual(a, b *csdl.EntitySet) bool {
	return a.Name == b.Name && a.EntityType == b.EntityType && a.Included() == b.Included()
}

func singletonsEqual(a, b *csdl.Singleton) bool {
	return *a == *b
}

func actionImportsEqual(a, b *csdl.ActionImport) bool {
	return *a == *b
}

func functionImportsEqual(a, b *csdl.FunctionImport) bool {
	return *a == *b
}

func propertiesEqual(a, b []*csdl.Property) bool {
	if len(a) != len(b) {
		return false
	}
	byName := make(map[string]*csdl.Property, len(b))
	for _, p := range b {
		byName[p.Name] = p
	}
	names := make(map[string]struct{}, len(a))
	for _, p := range a {
		names[p.Name] = struct{}{}
	}
	if len(names) != len(byName) {
		return false
	}
	for _, p := range a {
		q, ok := byName[p.Name]
		if !ok {
			return false
		}
		if p.Type != q.Type || p.IsNullable() != q.IsNullable() || p.MaxLength != q.MaxLength ||
			p.Precision != q.Precision || p.Scale != q.Scale || p.IsUnicode() != q.IsUnicode() {
			return false
		}
	}
	return true
}

func navigationsEqual(a, b []*csdl.NavigationProperty) bool {
	if len(a) != len(b) {
		return false
	}
	byName := make(map[string]*csdl.NavigationProperty, len(b))
	for _, n := range b {
		byName[n.Name] = n
	}
	names := make(map[string]struct{}, len(a))
	for _, n := range a {
		names[n.Name] = struct{}{}
	}
	if len(names) != len(byName) {
		return false
	}
	for _, n := range a {
		m, ok := byName[n.Name]
		if !ok {
			return false
		}
		if n.Type != m.Type || n.IsNullable() != m.IsNullable() ||
			n.Partner != m.Partner || n.ContainsTarget != m.ContainsTarget {
			return false
		}
	}
	return true
}

func parametersEqual(a, b []*csdl.Parameter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Type != b[i].Type || a[i].IsNullable() != b[i].IsNullable() {
			return false
		}
	}
	return true
}

func returnTypesEqual(a, b *csdl.ReturnType) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Type == b.Type && a.IsNullable() == b.IsNullable()
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func boolPtrEqual(a, b *bool, def bool) bool {
	av, bv := def, def
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}
