package rules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/validation"
)

// ReferenceValidation checks that every local edmx:Reference points at a
// readable file. Remote URIs are not fetched.
type ReferenceValidation struct {
	base
}

func NewReferenceValidation() *ReferenceValidation {
	return &ReferenceValidation{base{
		name:        NameReferenceValidation,
		description: "Validates that referenced schema files exist and are readable",
		category:    validation.CategoryStructural,
		severity:    "error",
	}}
}

func (r *ReferenceValidation) IsApplicable(vctx *validation.Context, _ *validation.Config) bool {
	return hasSource(vctx)
}

func (r *ReferenceValidation) Validate(ctx context.Context, vctx *validation.Context, _ *validation.Config) validation.RuleResult {
	start := time.Now()

	uris := vctx.ReferencedURIs()
	if len(uris) == 0 {
		content, err := rawContent(vctx)
		if err != nil {
			return validation.Pass(r.name, time.Since(start))
		}
		uris = csdl.ScanReferences(content)
	}

	dir := "."
	if p := vctx.FilePath(); p != "" {
		dir = filepath.Dir(p)
	}
	for _, uri := range uris {
		if err := ctx.Err(); err != nil {
			return validation.Fail(r.name, err.Error(), time.Since(start))
		}
		if isRemote(uri) {
			continue
		}
		path := uri
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return validation.FailKind(r.name, domain.KindSchemaNotFound, fmt.Sprintf("Referenced file does not exist: %s", uri), time.Since(start)).On(uri)
		}
		f, err := os.Open(path)
		if err != nil {
			return validation.FailKind(r.name, domain.KindSchemaNotFound, fmt.Sprintf("Referenced file is not readable: %s", uri), time.Since(start)).On(uri)
		}
		f.Close()
	}
	return validation.Pass(r.name, time.Since(start))
}
