package rules

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/validation"
)

var (
	annotationTarget = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*(\([^)]*\))?(/[A-Za-z_@][A-Za-z0-9_.]*)*$`)
	annotationTerm   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)+$`)
)

// Standard OData vocabularies accepted without a local term declaration.
var knownVocabularies = map[string]bool{
	"Core":          true,
	"Measures":      true,
	"Capabilities":  true,
	"Validation":    true,
	"UI":            true,
	"Common":        true,
	"Communication": true,
	"PersonalData":  true,
	"Analytics":     true,
	"Aggregation":   true,
	"Authorization": true,
	"Session":       true,
	"Temporal":      true,
}

// AnnotationValidation checks annotation targets and terms. Targets in
// namespaces that are only imported are skipped since they cannot be verified
// from this document.
type AnnotationValidation struct {
	base
}

func NewAnnotationValidation() *AnnotationValidation {
	return &AnnotationValidation{base{
		name:        NameAnnotation,
		description: "Validates annotation targets and terms",
		category:    validation.CategorySemantic,
		severity:    "error",
	}}
}

func (r *AnnotationValidation) IsApplicable(vctx *validation.Context, _ *validation.Config) bool {
	return len(vctx.Schemas()) > 0
}

func (r *AnnotationValidation) Validate(_ context.Context, vctx *validation.Context, _ *validation.Config) validation.RuleResult {
	start := time.Now()
	for _, s := range vctx.Schemas() {
		for _, g := range s.Annotations {
			if res, ok := r.checkGroup(vctx, g, start); !ok {
				return res
			}
		}
	}
	return validation.Pass(r.name, time.Since(start))
}

func (r *AnnotationValidation) checkGroup(vctx *validation.Context, g *csdl.Annotations, start time.Time) (validation.RuleResult, bool) {
	target := strings.TrimSpace(g.Target)
	if target == "" {
		return validation.Fail(r.name, "Annotation target cannot be null or empty", time.Since(start)), false
	}
	if !annotationTarget.MatchString(target) {
		return validation.Fail(r.name, fmt.Sprintf("Invalid annotation target format: %s", target), time.Since(start)).On(target), false
	}
	if !r.targetExists(vctx, target) {
		return validation.FailKind(r.name, domain.KindMissingAnnotationTarget,
			fmt.Sprintf("MissingAnnotationTarget: annotation target does not exist: %s", target), time.Since(start)).On(target), false
	}

	for _, a := range g.Annotations {
		term := strings.TrimSpace(a.Term)
		if term == "" {
			return validation.Fail(r.name, "Annotation term cannot be null or empty", time.Since(start)).On(target), false
		}
		if !annotationTerm.MatchString(term) {
			return validation.Fail(r.name, fmt.Sprintf("Invalid annotation term format: %s", term), time.Since(start)).On(target), false
		}
		if !r.termDefined(vctx, term) {
			return validation.Fail(r.name, fmt.Sprintf("Undefined annotation term: %s", term), time.Since(start)).On(target), false
		}
	}
	return validation.RuleResult{}, true
}

func (r *AnnotationValidation) targetExists(vctx *validation.Context, target string) bool {
	head := target
	if i := strings.IndexAny(head, "/("); i >= 0 {
		head = head[:i]
	}
	ns, _ := csdl.SplitQualified(head)
	if ns != "" && !vctx.IsDeclared(ns) && vctx.IsImported(ns) {
		return true
	}
	types := vctx.Types()
	if types.HasTarget(target) || types.HasTarget(head) && !strings.Contains(target, "/") {
		return true
	}
	return vctx.IsDefinedTarget(target)
}

func (r *AnnotationValidation) termDefined(vctx *validation.Context, term string) bool {
	ns, _ := csdl.SplitQualified(term)
	if knownVocabularies[ns] || vctx.IsImported(ns) {
		return true
	}
	if vctx.IsDeclared(ns) {
		return vctx.Types().HasTerm(term) || vctx.IsDefinedTarget(term)
	}
	return false
}
