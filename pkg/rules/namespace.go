package rules

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/validation"
)

const forbiddenNamespaceChars = "!@#$%^&*()-+=[]{}|\\:;\"'<>,?/~`"

// SchemaNamespace checks that every schema declares a well-formed namespace.
// Without parsed schemas it falls back to scanning the raw text.
type SchemaNamespace struct {
	base
}

func NewSchemaNamespace() *SchemaNamespace {
	return &SchemaNamespace{base{
		name:        NameSchemaNamespace,
		description: "Validates schema namespace declarations",
		category:    validation.CategoryStructural,
		severity:    "error",
	}}
}

func (r *SchemaNamespace) IsApplicable(vctx *validation.Context, _ *validation.Config) bool {
	return len(vctx.Schemas()) > 0 || hasSource(vctx)
}

func (r *SchemaNamespace) Validate(_ context.Context, vctx *validation.Context, _ *validation.Config) validation.RuleResult {
	start := time.Now()

	if schemas := vctx.Schemas(); len(schemas) > 0 {
		for _, s := range schemas {
			if strings.TrimSpace(s.Namespace) == "" {
				return validation.Fail(r.name, "Schema must have a valid namespace", time.Since(start))
			}
			if !ValidNamespace(s.Namespace) {
				return validation.Fail(r.name, fmt.Sprintf("Invalid namespace format: %s", s.Namespace), time.Since(start)).On(s.Namespace)
			}
		}
		return validation.Pass(r.name, time.Since(start))
	}

	content, err := rawContent(vctx)
	if err != nil || strings.TrimSpace(content) == "" {
		return validation.FailKind(r.name, domain.KindParsingError, "No XML content available for namespace validation", time.Since(start))
	}
	for _, ns := range csdl.ScanNamespaces(content) {
		if !ValidNamespace(ns) {
			return validation.Fail(r.name, fmt.Sprintf("Invalid namespace format: %s", ns), time.Since(start)).On(ns)
		}
	}
	return validation.Pass(r.name, time.Since(start))
}

// ValidNamespace reports whether ns is a dotted identifier path without
// whitespace, empty segments, punctuation or a leading digit.
func ValidNamespace(ns string) bool {
	if ns == "" {
		return false
	}
	if strings.HasPrefix(ns, ".") || strings.HasSuffix(ns, ".") || strings.Contains(ns, "..") {
		return false
	}
	if unicode.IsDigit(rune(ns[0])) {
		return false
	}
	for _, c := range ns {
		if unicode.IsSpace(c) || strings.ContainsRune(forbiddenNamespaceChars, c) {
			return false
		}
	}
	return true
}
