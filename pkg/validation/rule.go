package validation

import (
	"context"
	"time"

	"github.com/aretw0/csdlc/pkg/domain"
)

// Category groups rules so whole families can be switched off in Config.
type Category string

const (
	CategoryStructural Category = "structural"
	CategorySecurity   Category = "security"
	CategorySemantic   Category = "semantic"
	CategoryCompliance Category = "compliance"
)

// Rule is a single named check.
//
// Validate must not retain ctx or vctx after returning. Rules run concurrently
// when parallel processing is enabled, so they must only touch vctx through
// its methods.
type Rule interface {
	Name() string
	Description() string
	Category() Category
	// Severity is "error", "warning" or anything else for informational.
	Severity() string
	IsApplicable(vctx *Context, cfg *Config) bool
	Validate(ctx context.Context, vctx *Context, cfg *Config) RuleResult
}

// RuleResult is the outcome of one rule execution.
type RuleResult struct {
	RuleName string
	Passed   bool
	Message  string
	// Kind classifies a failure. Empty means domain.KindRuleFailure.
	Kind     domain.IssueKind
	Element  string
	Duration time.Duration

	// ElementKind is the CSDL kind of Element, when the rule knows it.
	ElementKind string
}

// Pass builds a passing result.
func Pass(name string, d time.Duration) RuleResult {
	return RuleResult{RuleName: name, Passed: true, Duration: d}
}

// Fail builds a failing result.
func Fail(name, message string, d time.Duration) RuleResult {
	return RuleResult{RuleName: name, Message: message, Duration: d}
}

// FailKind builds a failing result with an explicit issue kind.
func FailKind(name string, kind domain.IssueKind, message string, d time.Duration) RuleResult {
	return RuleResult{RuleName: name, Message: message, Kind: kind, Duration: d}
}

// On attaches the element the failure is about.
func (r RuleResult) On(element string) RuleResult {
	r.Element = element
	return r
}

// OnKind attaches the element and its CSDL kind.
func (r RuleResult) OnKind(kind, element string) RuleResult {
	r.Element = element
	r.ElementKind = kind
	return r
}
