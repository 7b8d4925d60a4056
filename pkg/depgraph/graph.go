// Package depgraph records dependencies between schema documents or namespaces,
// finds circular references and computes a safe load order.
package depgraph

import (
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/csdlc/pkg/domain"
)

// Graph is a concurrency-safe directed dependency graph over normalized keys.
// An edge a -> b means a requires b to be loaded first.
//
// Nodes live in an arena: each key is assigned a stable index on first sight
// and every traversal works on indices, so traversals never recurse and
// snapshots are plain slices.
type Graph struct {
	mu sync.RWMutex

	root   string
	index  map[string]int
	keys   []string
	adj    [][]int
	edges  []map[int]struct{}
	report [][]string

	loading map[int]struct{}
	done    map[int]struct{}

	onCycle func([]string)
	logger  *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithDefaultRoot sets the resource subtree bare file names are placed under.
func WithDefaultRoot(root string) Option {
	return func(g *Graph) {
		g.root = root
	}
}

// WithCycleSink registers a callback invoked for every cycle passed to HandleCycles.
func WithCycleSink(fn func(cycle []string)) Option {
	return func(g *Graph) {
		g.onCycle = fn
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		root:    DefaultRoot,
		index:   make(map[string]int),
		loading: make(map[int]struct{}),
		done:    make(map[int]struct{}),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Normalize returns the graph's canonical form of key.
func (g *Graph) Normalize(key string) string {
	return NormalizeUnder(key, g.root)
}

// intern returns the arena index for an already normalized key. Caller holds the write lock.
func (g *Graph) intern(key string) int {
	if id, ok := g.index[key]; ok {
		return id
	}
	id := len(g.keys)
	g.index[key] = id
	g.keys = append(g.keys, key)
	g.adj = append(g.adj, nil)
	g.edges = append(g.edges, make(map[int]struct{}))
	return id
}

// AddDependency records that from requires to. Repeated calls are no-ops.
func (g *Graph) AddDependency(from, to string) {
	f, t := g.Normalize(from), g.Normalize(to)

	g.mu.Lock()
	defer g.mu.Unlock()

	fi := g.intern(f)
	ti := g.intern(t)
	if _, ok := g.edges[fi][ti]; ok {
		return
	}
	g.edges[fi][ti] = struct{}{}
	g.adj[fi] = append(g.adj[fi], ti)
}

// AddNode registers key without edges.
func (g *Graph) AddNode(key string) {
	k := g.Normalize(key)
	g.mu.Lock()
	g.intern(k)
	g.mu.Unlock()
}

// Contains reports whether key is a node of the graph.
func (g *Graph) Contains(key string) bool {
	k := g.Normalize(key)
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.index[k]
	return ok
}

// MarkLoading flags node as in progress.
func (g *Graph) MarkLoading(node string) {
	k := g.Normalize(node)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loading[g.intern(k)] = struct{}{}
}

// MarkFinished moves node from in progress to done.
func (g *Graph) MarkFinished(node string) {
	k := g.Normalize(node)
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.intern(k)
	delete(g.loading, id)
	g.done[id] = struct{}{}
}

// IsLoading reports whether node is currently in progress.
func (g *Graph) IsLoading(node string) bool {
	k := g.Normalize(node)
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.index[k]
	if !ok {
		return false
	}
	_, loading := g.loading[id]
	return loading
}

// IsDone reports whether node finished loading.
func (g *Graph) IsDone(node string) bool {
	k := g.Normalize(node)
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.index[k]
	if !ok {
		return false
	}
	_, done := g.done[id]
	return done
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.keys)
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, a := range g.adj {
		n += len(a)
	}
	return n
}

// Nodes returns every node key in insertion order.
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.keys))
	copy(out, g.keys)
	return out
}

// DependenciesOf returns the direct dependencies of node in insertion order.
func (g *Graph) DependenciesOf(node string) []string {
	k := g.Normalize(node)
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.index[k]
	if !ok {
		return nil
	}
	out := make([]string, len(g.adj[id]))
	for i, d := range g.adj[id] {
		out[i] = g.keys[d]
	}
	return out
}

// Dependencies returns a snapshot of the adjacency map with sorted targets.
// Nodes without outgoing edges are omitted.
func (g *Graph) Dependencies() map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string][]string, len(g.keys))
	for id, deps := range g.adj {
		if len(deps) == 0 {
			continue
		}
		targets := make([]string, len(deps))
		for i, d := range deps {
			targets[i] = g.keys[d]
		}
		sort.Strings(targets)
		out[g.keys[id]] = targets
	}
	return out
}

// Reachable returns every node reachable from node (excluding node unless it is on a cycle).
func (g *Graph) Reachable(node string) []string {
	k := g.Normalize(node)
	g.mu.RLock()
	defer g.mu.RUnlock()
	start, ok := g.index[k]
	if !ok {
		return nil
	}
	seen := make([]bool, len(g.keys))
	queue := append([]int(nil), g.adj[start]...)
	var out []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, g.keys[id])
		queue = append(queue, g.adj[id]...)
	}
	return out
}

// Clear resets adjacency, in-progress and done state. The cycle report is kept
// until ResetReport so callers can read it after a run.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.index = make(map[string]int)
	g.keys = nil
	g.adj = nil
	g.edges = nil
	g.loading = make(map[int]struct{})
	g.done = make(map[int]struct{})
}

// Report returns the cycles recorded by HandleCycles.
func (g *Graph) Report() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([][]string, len(g.report))
	for i, c := range g.report {
		out[i] = append([]string(nil), c...)
	}
	return out
}

// ResetReport discards recorded cycles.
func (g *Graph) ResetReport() {
	g.mu.Lock()
	g.report = nil
	g.mu.Unlock()
}

// HandleCycles records every cycle and, unless allow is set, fails with a
// *domain.CircularDependencyError carrying all of them.
func (g *Graph) HandleCycles(cycles [][]string, allow bool) error {
	if len(cycles) == 0 {
		return nil
	}

	g.mu.Lock()
	for _, c := range cycles {
		g.report = append(g.report, append([]string(nil), c...))
	}
	sink := g.onCycle
	g.mu.Unlock()

	for _, c := range cycles {
		g.logger.Warn("circular dependency", "cycle", c, "allowed", allow)
		if sink != nil {
			sink(c)
		}
	}

	if !allow {
		return &domain.CircularDependencyError{Cycles: cycles}
	}
	return nil
}
