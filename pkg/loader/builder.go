// Package loader resolves edmx:Reference chains starting at a root document
// and records them in a dependency graph.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/depgraph"
	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/ports"
)

// Statistics summarizes one Build.
type Statistics struct {
	FilesProcessed   int  `json:"filesProcessed"`
	MaxDepthReached  int  `json:"maxDepthReached"`
	CircularDetected bool `json:"circularDetected"`
	Unresolved       int  `json:"unresolved"`
}

// Unresolved is a reference no resolver could serve.
type Unresolved struct {
	From string `json:"from"`
	URI  string `json:"uri"`
	Err  error  `json:"-"`
}

// Result is everything learned while walking the reference graph.
// Documents and ParseErrors are keyed by normalized graph key.
type Result struct {
	Root        string
	Graph       *depgraph.Graph
	Documents   map[string]*csdl.Document
	ParseErrors map[string]error
	Unresolved  []Unresolved
	Cycles      [][]string
	Stats       Statistics
}

// Document returns the parsed document at location, if it parsed.
func (r *Result) Document(location string) (*csdl.Document, bool) {
	doc, ok := r.Documents[r.Graph.Normalize(location)]
	return doc, ok
}

// Builder walks references recursively and builds the dependency graph.
type Builder struct {
	resolver    ports.Resolver
	parser      *csdl.Parser
	maxDepth    int
	concurrency int
	allowCycles bool
	graphOpts   []depgraph.Option
	logger      *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithResolver replaces the default resolver chain.
func WithResolver(r ports.Resolver) Option {
	return func(b *Builder) {
		b.resolver = r
	}
}

// WithMaxDepth bounds how deep reference chains may go.
func WithMaxDepth(depth int) Option {
	return func(b *Builder) {
		b.maxDepth = depth
	}
}

// WithConcurrency bounds simultaneous resolve and parse operations.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		b.concurrency = n
	}
}

// WithAllowCycles makes Build report cycles without failing.
func WithAllowCycles(allow bool) Option {
	return func(b *Builder) {
		b.allowCycles = allow
	}
}

// WithGraphOptions passes options to the graph created by each Build.
func WithGraphOptions(opts ...depgraph.Option) Option {
	return func(b *Builder) {
		b.graphOpts = append(b.graphOpts, opts...)
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a Builder that resolves from disk.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		resolver:    DefaultChain(false),
		parser:      csdl.NewParser(),
		maxDepth:    10,
		concurrency: 4,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.concurrency < 1 {
		b.concurrency = 1
	}
	return b
}

// Build resolves root and every document it transitively references.
//
// The result is returned even when Build fails, so callers can report the
// partial graph. A cycle fails with *domain.CircularDependencyError unless
// cycles are allowed; a chain deeper than the configured maximum fails with
// *domain.MaxDepthExceededError.
func (b *Builder) Build(ctx context.Context, root string) (*Result, error) {
	src, err := b.resolver.Resolve(ctx, "", root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	g := depgraph.New(append([]depgraph.Option{depgraph.WithLogger(b.logger)}, b.graphOpts...)...)
	w := &walk{
		b:       b,
		g:       g,
		sem:     semaphore.NewWeighted(int64(b.concurrency)),
		claimed: make(map[string]bool),
		res: &Result{
			Root:        g.Normalize(src.Location),
			Graph:       g,
			Documents:   make(map[string]*csdl.Document),
			ParseErrors: make(map[string]error),
		},
	}
	w.claim(w.res.Root)

	res := w.res
	err = w.visit(ctx, src, 0)
	res.Stats.Unresolved = len(res.Unresolved)
	if err != nil {
		return res, err
	}

	res.Cycles = g.DetectCycles()
	res.Stats.CircularDetected = len(res.Cycles) > 0
	b.logger.Debug("dependency graph built",
		"root", res.Root,
		"files", res.Stats.FilesProcessed,
		"depth", res.Stats.MaxDepthReached,
		"cycles", len(res.Cycles))

	if err := g.HandleCycles(res.Cycles, b.allowCycles); err != nil {
		return res, err
	}
	return res, nil
}

type walk struct {
	b   *Builder
	g   *depgraph.Graph
	sem *semaphore.Weighted

	mu      sync.Mutex
	claimed map[string]bool
	res     *Result
}

// claim reports whether key was not yet scheduled and marks it.
func (w *walk) claim(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.claimed[key] {
		return false
	}
	w.claimed[key] = true
	return true
}

func (w *walk) visit(ctx context.Context, src *ports.Source, depth int) error {
	key := w.g.Normalize(src.Location)
	if depth > w.b.maxDepth {
		return &domain.MaxDepthExceededError{Path: src.Location, Depth: depth, Max: w.b.maxDepth}
	}

	w.g.AddNode(key)
	w.g.MarkLoading(key)
	defer w.g.MarkFinished(key)

	if err := w.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	refs := w.parse(key, src, depth)
	w.sem.Release(1)

	eg, ctx := errgroup.WithContext(ctx)
	for _, uri := range refs {
		if err := w.sem.Acquire(ctx, 1); err != nil {
			return errors.Join(err, eg.Wait())
		}
		child, err := w.b.resolver.Resolve(ctx, src.Location, uri)
		w.sem.Release(1)
		if err != nil {
			if !errors.Is(err, domain.ErrSchemaNotFound) {
				return errors.Join(err, eg.Wait())
			}
			w.unresolved(key, uri, err)
			continue
		}

		childKey := w.g.Normalize(child.Location)
		w.g.AddDependency(key, childKey)
		if w.g.IsLoading(childKey) || w.g.IsDone(childKey) {
			w.b.logger.Debug("reference to a document already walked", "from", key, "to", childKey)
			continue
		}
		// Scheduled children are not marked loading until their walk starts.
		if !w.claim(childKey) {
			continue
		}
		eg.Go(func() error {
			return w.visit(ctx, child, depth+1)
		})
	}
	return eg.Wait()
}

// parse records the document and returns its distinct reference URIs.
// Documents that do not parse still contribute the references found in
// their raw text.
func (w *walk) parse(key string, src *ports.Source, depth int) []string {
	doc, err := w.b.parser.Parse(src.Content, src.Location)

	var uris []string
	if err != nil {
		uris = csdl.ScanReferences(string(src.Content))
	} else {
		for _, ref := range doc.References {
			uris = append(uris, ref.URI)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.res.Stats.FilesProcessed++
	if depth > w.res.Stats.MaxDepthReached {
		w.res.Stats.MaxDepthReached = depth
	}
	if err != nil {
		w.res.ParseErrors[key] = err
		w.b.logger.Warn("failed to parse referenced document", "file", key, "err", err)
	} else {
		w.res.Documents[key] = doc
	}

	seen := make(map[string]bool, len(uris))
	out := uris[:0]
	for _, u := range uris {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func (w *walk) unresolved(from, uri string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.res.Unresolved = append(w.res.Unresolved, Unresolved{From: from, URI: uri, Err: err})
}
