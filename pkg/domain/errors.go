package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrParsing is returned when a schema document cannot be parsed.
var ErrParsing = errors.New("parsing error")

// ErrSchemaNotFound is returned when a referenced schema document cannot be resolved.
var ErrSchemaNotFound = errors.New("schema not found")

// ErrCircularDependency is returned when the dependency graph contains cycles and cycles are not allowed.
var ErrCircularDependency = errors.New("circular dependency")

// ErrMaxDepthExceeded is returned when reference resolution nests deeper than the configured limit.
var ErrMaxDepthExceeded = errors.New("maximum dependency depth exceeded")

// ErrDuplicateElement marks a same-kind element declared twice in one namespace.
var ErrDuplicateElement = errors.New("duplicate element")

// ErrMissingTypeReference marks a type reference that does not resolve.
var ErrMissingTypeReference = errors.New("missing type reference")

// ErrMissingAnnotationTarget marks an annotation target that does not resolve.
var ErrMissingAnnotationTarget = errors.New("missing annotation target")

// ErrSchemaDependency marks a base type that is wholly absent.
var ErrSchemaDependency = errors.New("schema dependency error")

// ErrInvalidInheritance marks a base type that exists but is not a legal ancestor.
var ErrInvalidInheritance = errors.New("invalid inheritance hierarchy")

// ErrNamespaceConflict marks the same element name declared in one namespace by two files.
var ErrNamespaceConflict = errors.New("namespace conflict")

// ErrSecurityViolation marks forbidden XML constructs (external or parameter entities).
var ErrSecurityViolation = errors.New("security violation")

// ErrValidationTimeout is returned when validation exceeds the configured processing time.
var ErrValidationTimeout = errors.New("validation timeout")

// ErrUnsupportedContext is returned when no validation strategy can handle a context.
var ErrUnsupportedContext = errors.New("no validation strategy found for context")

// ErrCacheMiss is returned by result caches when no entry exists for a key.
var ErrCacheMiss = errors.New("cache miss")

// CircularDependencyError carries every cycle found in a dependency graph.
type CircularDependencyError struct {
	Cycles [][]string
}

func (e *CircularDependencyError) Error() string {
	parts := make([]string, len(e.Cycles))
	for i, c := range e.Cycles {
		parts[i] = "[" + strings.Join(c, " -> ") + "]"
	}
	return fmt.Sprintf("circular dependencies detected and not allowed. Cycles: %s", strings.Join(parts, ", "))
}

func (e *CircularDependencyError) Unwrap() error { return ErrCircularDependency }

// MaxDepthExceededError reports the document at which the depth guard tripped.
type MaxDepthExceededError struct {
	Path  string
	Depth int
	Max   int
}

func (e *MaxDepthExceededError) Error() string {
	return fmt.Sprintf("maximum dependency depth exceeded: %d (at %s, depth %d)", e.Max, e.Path, e.Depth)
}

func (e *MaxDepthExceededError) Unwrap() error { return ErrMaxDepthExceeded }

// ParseError wraps a parser failure with the source it came from.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParsing, e.Err} }

// DuplicateElementError identifies a duplicated element by kind, name and namespace.
type DuplicateElementError struct {
	Kind      string
	Name      string
	Namespace string
}

func (e *DuplicateElementError) Error() string {
	return fmt.Sprintf("duplicate %s '%s' in namespace '%s'", e.Kind, e.Name, e.Namespace)
}

func (e *DuplicateElementError) Unwrap() error { return ErrDuplicateElement }

// AggregateError represents multiple failures collected in one pass.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// Errors returns the wrapped errors if err is an AggregateError.
// Otherwise returns nil.
func Errors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
