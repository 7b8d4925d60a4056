/*
Package domain contains the error kinds and issue model shared by every csdlc component.

It is kept free of I/O so that the graph, merger, rules and adapters can all
depend on it without pulling each other in.

# Key Entities

  - Issue: one finding (kind, severity, message, file, element) in a compliance result.
  - IssueKind: the stable classification callers switch on (DuplicateElement, TYPE_NOT_EXIST, ...).
  - Severity: error, warning or info.
  - Sentinel errors (ErrCircularDependency, ErrMaxDepthExceeded, ...) and their typed carriers.
*/
package domain
