package domain

import "fmt"

// Severity classifies how an issue affects compliance.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ParseSeverity maps a declared rule severity to a Severity.
// Anything other than "error" or "warning" is informational.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityError:
		return SeverityError
	case SeverityWarning:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// IssueKind is the stable classification of an issue.
type IssueKind string

const (
	KindParsingError            IssueKind = "ParsingError"
	KindSchemaNotFound          IssueKind = "SchemaNotFound"
	KindCircularDependency      IssueKind = "CircularDependency"
	KindMaxDepthExceeded        IssueKind = "MaxDepthExceeded"
	KindDuplicateElement        IssueKind = "DuplicateElement"
	KindMissingTypeReference    IssueKind = "MissingTypeReference"
	KindMissingAnnotationTarget IssueKind = "MissingAnnotationTarget"
	KindSchemaDependencyError   IssueKind = "SCHEMA_DEPENDENCY_ERROR"
	KindInvalidInheritance      IssueKind = "INVALID_INHERITANCE_HIERARCHY"
	KindTypeNotExist            IssueKind = "TYPE_NOT_EXIST"
	KindNamespaceConflict       IssueKind = "NamespaceConflict"
	KindAliasConflict           IssueKind = "AliasConflict"
	KindSecurityViolation       IssueKind = "SecurityViolation"
	KindValidationTimeout       IssueKind = "ValidationTimeout"
	KindUnsupportedContext      IssueKind = "UnsupportedContext"
	KindRuleFailure             IssueKind = "RuleFailure"
	KindFileTooLarge            IssueKind = "FileTooLarge"
)

// Issue is one finding attached to a file (and optionally an element).
type Issue struct {
	Kind        IssueKind `json:"kind"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	Rule        string    `json:"rule,omitempty"`
	File        string    `json:"file,omitempty"`
	Element     string    `json:"element,omitempty"`
	ElementKind string    `json:"elementKind,omitempty"` // CSDL kind of Element, when known
}

func (i Issue) String() string {
	if i.File == "" {
		return fmt.Sprintf("%s [%s] %s", i.Severity, i.Kind, i.Message)
	}
	return fmt.Sprintf("%s [%s] %s: %s", i.Severity, i.Kind, i.File, i.Message)
}

// IsError reports whether the issue makes its unit non-compliant.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError
}
