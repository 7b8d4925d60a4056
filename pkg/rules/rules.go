// Package rules contains the built-in validation rules.
package rules

import (
	"os"
	"regexp"
	"strings"

	"github.com/aretw0/csdlc/pkg/validation"
)

// Rule names.
const (
	NameElementDefinition   = "element-definition"
	NameXXEAttack           = "xxe-attack"
	NameSchemaNamespace     = "schema-namespace"
	NameReferenceValidation = "reference-validation"
	NameAnnotation          = "annotation-validation"
	NameCrossFileReference  = "cross-file-reference-validation"
)

// Defaults returns one instance of every built-in rule.
func Defaults() []validation.Rule {
	return []validation.Rule{
		NewElementDefinition(),
		NewXXEAttack(),
		NewSchemaNamespace(),
		NewReferenceValidation(),
		NewAnnotationValidation(),
		NewCrossFileReference(),
	}
}

// base carries the descriptive part every rule shares.
type base struct {
	name        string
	description string
	category    validation.Category
	severity    string
}

func (b base) Name() string                  { return b.name }
func (b base) Description() string           { return b.description }
func (b base) Category() validation.Category { return b.category }
func (b base) Severity() string              { return b.severity }

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s is a simple identifier.
func IsIdentifier(s string) bool {
	return identifier.MatchString(s)
}

var builtinNamespaces = map[string]bool{
	"Edm":    true,
	"System": true,
	"http://docs.oasis-open.org/odata/ns/edm": true,
}

func isRemote(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

// rawContent returns the document text from the context, reading the file
// when the context has no content of its own.
func rawContent(vctx *validation.Context) (string, error) {
	if vctx.HasContent() {
		return string(vctx.Content()), nil
	}
	data, err := os.ReadFile(vctx.FilePath())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func hasSource(vctx *validation.Context) bool {
	return vctx.HasContent() || vctx.FilePath() != ""
}
