package compliance

import (
	"context"
	"fmt"

	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/merger"
)

// MergeSchemas merges fragments keyed by file into one schema per namespace
// using the configured resolution.
func (v *Validator) MergeSchemas(fragments map[string][]*csdl.Schema) *merger.Result {
	return v.merger.MergeFiles(fragments)
}

// MergeFiles parses every path and merges the schemas they declare.
// A file that cannot be read or parsed fails the whole merge.
func (v *Validator) MergeFiles(ctx context.Context, paths []string) (*merger.Result, error) {
	fragments := make(map[string][]*csdl.Schema, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := v.parser.ParseFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", p, err)
		}
		fragments[p] = doc.Schemas
	}
	res := v.MergeSchemas(fragments)
	v.logger.Info("schemas merged",
		"files", len(paths),
		"namespaces", len(res.Namespaces()),
		"conflicts", res.ConflictCount())
	return res, nil
}
