package compliance

import (
	"context"
	"sort"

	"github.com/aretw0/csdlc/pkg/depgraph"
	"github.com/aretw0/csdlc/pkg/loader"
)

// GraphReport describes the reference graph reachable from one root.
type GraphReport struct {
	Root        string              `json:"root"`
	Nodes       []string            `json:"nodes"`
	Edges       map[string][]string `json:"edges"`
	Cycles      [][]string          `json:"cycles,omitempty"`
	LoadOrder   []string            `json:"loadOrder"`
	Stats       loader.Statistics   `json:"stats"`
	Unresolved  []loader.Unresolved `json:"unresolved,omitempty"`
	ParseErrors map[string]string   `json:"parseErrors,omitempty"`

	Graph *depgraph.Graph `json:"-"`
}

// BuildDependencyGraph follows edmx:Reference chains from root using the
// configured resolver.
//
// When the walk fails on a cycle or the depth bound, the partial report is
// returned together with the error.
func (v *Validator) BuildDependencyGraph(ctx context.Context, root string) (*GraphReport, error) {
	b := loader.NewBuilder(
		loader.WithResolver(v.resolver),
		loader.WithMaxDepth(v.cfg.MaxDependencyDepth),
		loader.WithAllowCycles(v.cfg.AllowCircularDependencies),
		loader.WithConcurrency(v.cfg.MaxConcurrentValidations),
		loader.WithLogger(v.logger.With("component", "loader")),
	)
	res, err := b.Build(ctx, root)
	if res == nil {
		return nil, err
	}

	report := &GraphReport{
		Root:       res.Root,
		Nodes:      res.Graph.Nodes(),
		Edges:      res.Graph.Dependencies(),
		Cycles:     res.Cycles,
		LoadOrder:  res.Graph.TopologicalOrder(),
		Stats:      res.Stats,
		Unresolved: res.Unresolved,
		Graph:      res.Graph,
	}
	if len(res.ParseErrors) > 0 {
		report.ParseErrors = make(map[string]string, len(res.ParseErrors))
		for k, perr := range res.ParseErrors {
			report.ParseErrors[k] = perr.Error()
		}
	}
	sort.Strings(report.Nodes)

	if v.recorder != nil {
		v.recorder.GraphBuilt(len(report.Nodes), res.Graph.EdgeCount(), len(report.Cycles))
	}
	v.logger.Info("dependency graph built",
		"root", root,
		"nodes", len(report.Nodes),
		"cycles", len(report.Cycles),
		"unresolved", len(report.Unresolved))
	return report, err
}
