package validation

import (
	"sort"
	"sync"
	"time"

	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/registry"
	"github.com/aretw0/csdlc/pkg/typeregistry"
)

// Context is the mutable state of one validation call. It is safe for
// concurrent use by rules running in parallel.
type Context struct {
	mu sync.Mutex

	filePath  string
	content   []byte
	loaded    bool
	directory string
	children  []*Context

	doc      *csdl.Document
	schemas  []*csdl.Schema
	all      []*csdl.Schema
	types    *typeregistry.Registry
	registry *registry.Registry

	declared   map[string]struct{}
	imported   map[string]struct{}
	referenced map[string]struct{}
	targets    map[string]struct{}

	issues   []domain.Issue
	metadata map[string]any
	timings  map[string]time.Duration
	start    time.Time
}

func newContext() *Context {
	return &Context{
		declared:   make(map[string]struct{}),
		imported:   make(map[string]struct{}),
		referenced: make(map[string]struct{}),
		targets:    make(map[string]struct{}),
		metadata:   make(map[string]any),
		timings:    make(map[string]time.Duration),
		start:      time.Now(),
	}
}

// NewFileContext validates the document at path. The file is read and parsed
// by the file strategy.
func NewFileContext(path string) *Context {
	c := newContext()
	c.filePath = path
	return c
}

// NewContentContext validates raw document bytes that have no backing file.
func NewContentContext(content []byte) *Context {
	c := newContext()
	c.content = content
	c.loaded = true
	return c
}

// NewDocumentContext validates an already loaded document. content may be
// nil when the raw bytes are not available; doc may be nil when parsing failed.
func NewDocumentContext(path string, content []byte, doc *csdl.Document) *Context {
	c := newContext()
	c.filePath = path
	c.content = content
	c.loaded = content != nil
	if doc != nil {
		c.SetDocument(doc)
	}
	return c
}

// NewSchemaContext validates in-memory schemas.
func NewSchemaContext(schemas ...*csdl.Schema) *Context {
	c := newContext()
	c.setSchemas(schemas)
	return c
}

// NewDirectoryContext groups the per-file contexts of one directory.
func NewDirectoryContext(dir string, files ...*Context) *Context {
	c := newContext()
	c.directory = dir
	c.children = files
	return c
}

// WithRegistry attaches the directory-wide schema registry.
func (c *Context) WithRegistry(r *registry.Registry) *Context {
	c.registry = r
	for _, child := range c.children {
		child.WithRegistry(r)
	}
	return c
}

// WithTypes attaches a prebuilt type registry.
func (c *Context) WithTypes(t *typeregistry.Registry) *Context {
	c.types = t
	for _, child := range c.children {
		child.WithTypes(t)
	}
	return c
}

// WithAllSchemas sets the schemas visible to cross-document checks.
func (c *Context) WithAllSchemas(all []*csdl.Schema) *Context {
	c.all = all
	for _, child := range c.children {
		child.WithAllSchemas(all)
	}
	return c
}

// SetDocument installs a parsed document and derives the namespace sets.
func (c *Context) SetDocument(doc *csdl.Document) {
	c.doc = doc
	c.setSchemas(doc.Schemas)
	for _, ns := range doc.ImportedNamespaces() {
		c.imported[ns] = struct{}{}
	}
	for _, ref := range doc.References {
		c.referenced[ref.URI] = struct{}{}
	}
}

func (c *Context) setSchemas(schemas []*csdl.Schema) {
	c.schemas = schemas
	for _, s := range schemas {
		c.declared[s.Namespace] = struct{}{}
		if s.Alias != "" {
			c.declared[s.Alias] = struct{}{}
		}
		for _, names := range s.ElementNames() {
			for _, n := range names {
				c.targets[s.Qualify(n)] = struct{}{}
				if s.Alias != "" {
					c.targets[s.Alias+"."+n] = struct{}{}
				}
			}
		}
	}
}

// FilePath returns the validated file, if any.
func (c *Context) FilePath() string { return c.filePath }

// Directory returns the validated directory, if any.
func (c *Context) Directory() string { return c.directory }

// Children returns the per-file contexts of a directory context.
func (c *Context) Children() []*Context { return c.children }

// IsDirectory reports whether c is a directory context.
func (c *Context) IsDirectory() bool { return c.directory != "" }

// HasContent reports whether raw bytes are available without reading a file.
func (c *Context) HasContent() bool { return c.loaded }

// Content returns the raw document bytes, if loaded.
func (c *Context) Content() []byte { return c.content }

func (c *Context) setContent(b []byte) {
	c.content = b
	c.loaded = true
}

// Document returns the parsed document, or nil.
func (c *Context) Document() *csdl.Document { return c.doc }

// Schemas returns the schemas under test.
func (c *Context) Schemas() []*csdl.Schema { return c.schemas }

// AllSchemas returns the schemas visible to cross-document checks. It falls
// back to the schemas under test.
func (c *Context) AllSchemas() []*csdl.Schema {
	if len(c.all) > 0 {
		return c.all
	}
	return c.schemas
}

// Types returns the type registry, building it from AllSchemas on first use.
func (c *Context) Types() *typeregistry.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.types == nil {
		c.types = typeregistry.Build(c.AllSchemas()...)
	}
	return c.types
}

// Registry returns the directory-wide schema registry, or nil.
func (c *Context) Registry() *registry.Registry { return c.registry }

// IsDeclared reports whether ns (or alias) is declared by the document.
func (c *Context) IsDeclared(ns string) bool {
	_, ok := c.declared[ns]
	return ok
}

// IsImported reports whether ns (or alias) is included through a reference.
func (c *Context) IsImported(ns string) bool {
	_, ok := c.imported[ns]
	return ok
}

// ReferencedURIs returns the reference URIs of the document, sorted.
func (c *Context) ReferencedURIs() []string {
	return sortedKeys(c.referenced)
}

// ImportedNamespaces returns every included namespace and alias, sorted.
func (c *Context) ImportedNamespaces() []string {
	return sortedKeys(c.imported)
}

// IsDefinedTarget reports whether the qualified name is declared by the document.
func (c *Context) IsDefinedTarget(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.targets[name]
	return ok
}

// DefineTarget adds a qualified name to the defined targets.
func (c *Context) DefineTarget(name string) {
	c.mu.Lock()
	c.targets[name] = struct{}{}
	c.mu.Unlock()
}

// AddIssue records an issue. An empty File defaults to the context file.
func (c *Context) AddIssue(issue domain.Issue) {
	if issue.File == "" {
		issue.File = c.filePath
	}
	c.mu.Lock()
	c.issues = append(c.issues, issue)
	c.mu.Unlock()
}

// AddError records an error attributed to rule.
func (c *Context) AddError(rule, message string) {
	c.AddIssue(domain.Issue{Kind: domain.KindRuleFailure, Severity: domain.SeverityError, Rule: rule, Message: message})
}

// AddWarning records a warning attributed to rule.
func (c *Context) AddWarning(rule, message string) {
	c.AddIssue(domain.Issue{Kind: domain.KindRuleFailure, Severity: domain.SeverityWarning, Rule: rule, Message: message})
}

// AddInfo records an informational message attributed to rule.
func (c *Context) AddInfo(rule, message string) {
	c.AddIssue(domain.Issue{Kind: domain.KindRuleFailure, Severity: domain.SeverityInfo, Rule: rule, Message: message})
}

// Issues returns a copy of the recorded issues.
func (c *Context) Issues() []domain.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Issue(nil), c.issues...)
}

// Errors returns error messages formatted "[rule] message".
func (c *Context) Errors() []string { return tagged(c.Issues(), domain.SeverityError) }

// Warnings returns warning messages formatted "[rule] message".
func (c *Context) Warnings() []string { return tagged(c.Issues(), domain.SeverityWarning) }

// Infos returns informational messages formatted "[rule] message".
func (c *Context) Infos() []string { return tagged(c.Issues(), domain.SeverityInfo) }

// HasErrors reports whether any error was recorded.
func (c *Context) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, i := range c.issues {
		if i.IsError() {
			return true
		}
	}
	return false
}

// SetMetadata stores a metadata value.
func (c *Context) SetMetadata(key string, value any) {
	c.mu.Lock()
	c.metadata[key] = value
	c.mu.Unlock()
}

// Metadata returns a copy of the metadata.
func (c *Context) Metadata() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.metadata))
	for k, v := range c.metadata {
		out[k] = v
	}
	return out
}

// RecordTiming stores the execution time of rule.
func (c *Context) RecordTiming(rule string, d time.Duration) {
	c.mu.Lock()
	c.timings[rule] = d
	c.mu.Unlock()
}

// Timings returns a copy of the per-rule execution times.
func (c *Context) Timings() map[string]time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]time.Duration, len(c.timings))
	for k, v := range c.timings {
		out[k] = v
	}
	return out
}

// Elapsed returns the time since the context was created.
func (c *Context) Elapsed() time.Duration { return time.Since(c.start) }

func tagged(issues []domain.Issue, sev domain.Severity) []string {
	var out []string
	for _, i := range issues {
		if i.Severity != sev {
			continue
		}
		if i.Rule == "" {
			out = append(out, i.Message)
			continue
		}
		out = append(out, "["+i.Rule+"] "+i.Message)
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
