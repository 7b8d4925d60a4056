package memory

import (
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/ports"
)

// Resolver implements ports.Resolver over an in-memory document set.
// Locations are slash-separated and relative references resolve against the
// directory of the referencing document.
type Resolver struct {
	docs map[string][]byte
}

// NewResolver creates a resolver serving the given documents keyed by location.
func NewResolver(docs map[string]string) *Resolver {
	m := make(map[string][]byte, len(docs))
	for k, v := range docs {
		m[path.Clean(k)] = []byte(v)
	}
	return &Resolver{docs: m}
}

// Resolve returns the document uri points at.
func (r *Resolver) Resolve(ctx context.Context, base, uri string) (*ports.Source, error) {
	loc := path.Clean(uri)
	if base != "" && !path.IsAbs(uri) {
		loc = path.Join(path.Dir(base), uri)
	}
	content, ok := r.docs[loc]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSchemaNotFound, uri)
	}
	return &ports.Source{Location: loc, Content: content}, nil
}

// Documents returns all document locations, sorted.
func (r *Resolver) Documents() []string {
	keys := make([]string, 0, len(r.docs))
	for k := range r.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
