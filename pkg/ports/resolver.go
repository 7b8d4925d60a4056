package ports

import "context"

// Source is a resolved schema document.
type Source struct {
	// Location is the canonical location of the document (a path or URL).
	Location string
	// Content holds the raw document bytes.
	Content []byte
}

// Resolver locates the document referenced by uri from the document at base.
type Resolver interface {
	// Resolve returns the referenced document.
	// It returns domain.ErrSchemaNotFound when uri cannot be served by this resolver.
	Resolve(ctx context.Context, base, uri string) (*Source, error)
}
