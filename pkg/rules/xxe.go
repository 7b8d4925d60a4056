package rules

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/validation"
)

var (
	externalEntity  = regexp.MustCompile(`(?is)<!ENTITY\s+\w+\s+(SYSTEM|PUBLIC).*?>`)
	parameterEntity = regexp.MustCompile(`(?is)<!ENTITY\s+%\s*\w+.*?>`)
	entityReference = regexp.MustCompile(`&(\w+);|%(\w+);`)
	entityDecl      = regexp.MustCompile(`(?i)<!ENTITY\s+(\w+)\s+[^>]*>`)
)

var standardEntities = map[string]bool{
	"lt":   true,
	"gt":   true,
	"amp":  true,
	"quot": true,
	"apos": true,
}

// XXEAttack scans the raw document text for entity declarations that could
// be used for XML external entity attacks. It works on bytes, so it also runs
// on documents the parser rejected.
type XXEAttack struct {
	base
}

func NewXXEAttack() *XXEAttack {
	return &XXEAttack{base{
		name:        NameXXEAttack,
		description: "Detects XML External Entity (XXE) attack patterns",
		category:    validation.CategorySecurity,
		severity:    "error",
	}}
}

func (r *XXEAttack) IsApplicable(vctx *validation.Context, _ *validation.Config) bool {
	return hasSource(vctx)
}

func (r *XXEAttack) Validate(_ context.Context, vctx *validation.Context, _ *validation.Config) validation.RuleResult {
	start := time.Now()
	content, err := rawContent(vctx)
	if err != nil {
		vctx.AddWarning(r.name, fmt.Sprintf("Could not read file content for XXE analysis: %v", err))
		return validation.Pass(r.name, time.Since(start))
	}

	if msg := DetectXXE(content); msg != "" {
		return validation.FailKind(r.name, domain.KindSecurityViolation, msg, time.Since(start))
	}
	return validation.Pass(r.name, time.Since(start))
}

// DetectXXE returns a description of the first XXE pattern found in content,
// or "" when the content looks safe.
func DetectXXE(content string) string {
	if externalEntity.MatchString(content) {
		return "External entity declaration detected - potential XXE attack"
	}
	if parameterEntity.MatchString(content) {
		return "Parameter entity declaration detected - potential XXE attack"
	}

	declared := make(map[string]bool)
	for _, m := range entityDecl.FindAllStringSubmatch(content, -1) {
		declared[strings.ToLower(m[1])] = true
	}
	for _, m := range entityReference.FindAllStringSubmatch(content, -1) {
		// Only general references may name a predefined entity, and entity
		// names are case-sensitive.
		if m[1] != "" && standardEntities[m[1]] {
			continue
		}
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if declared[strings.ToLower(name)] {
			continue
		}
		return "Undeclared entity references detected"
	}
	return ""
}
