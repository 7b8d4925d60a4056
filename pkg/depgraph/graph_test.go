package depgraph_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/csdlc/pkg/depgraph"
	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`dir\sub\a.xml`, "dir/sub/a.xml"},
		{"a.xml", "schemas/a.xml"},
		{"/abs/a.xml", "/abs/a.xml"},
		{"///abs/a.xml", "/abs/a.xml"},
		{`C:\data\a.xml`, "C:/data/a.xml"},
		{`\\server\share\a.xml`, "//server/share/a.xml"},
		{"Org.Example", "Org.Example"},
		{"rel/a.xml", "rel/a.xml"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, depgraph.Normalize(tt.in))
		})
	}

	assert.Equal(t, "res/a.xml", depgraph.NormalizeUnder("a.xml", "res/"))
}

func TestGraph_AddDependency_IsIdempotentAndNormalized(t *testing.T) {
	g := depgraph.New()
	g.AddDependency(`dir\a.xml`, "dir/b.xml")
	g.AddDependency("dir/a.xml", `dir\b.xml`)

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, []string{"dir/b.xml"}, g.DependenciesOf("dir/a.xml"))
	assert.True(t, g.Contains(`dir\b.xml`))
}

func TestGraph_LoadingMarks(t *testing.T) {
	g := depgraph.New()

	assert.False(t, g.IsLoading("a.xml"))
	g.MarkLoading("a.xml")
	assert.True(t, g.IsLoading("schemas/a.xml"))
	assert.False(t, g.IsDone("a.xml"))

	g.MarkFinished("a.xml")
	assert.False(t, g.IsLoading("a.xml"))
	assert.True(t, g.IsDone("a.xml"))

	g.Clear()
	assert.False(t, g.IsDone("a.xml"))
	assert.Equal(t, 0, g.Len())
}

// assertTraversable checks every consecutive pair of a reported cycle is an
// edge and that it ends where it started.
func assertTraversable(t *testing.T, g *depgraph.Graph, cycle []string) {
	t.Helper()
	require.GreaterOrEqual(t, len(cycle), 2)
	assert.Equal(t, cycle[0], cycle[len(cycle)-1], "cycle must close on its start")
	for i := 0; i+1 < len(cycle); i++ {
		assert.Contains(t, g.DependenciesOf(cycle[i]), cycle[i+1], "missing edge %s -> %s", cycle[i], cycle[i+1])
	}
}

func TestGraph_DetectCycles(t *testing.T) {
	t.Run("Simple cycle", func(t *testing.T) {
		g := depgraph.New()
		g.AddDependency("a/x.xml", "a/y.xml")
		g.AddDependency("a/y.xml", "a/z.xml")
		g.AddDependency("a/z.xml", "a/x.xml")

		cycles := g.DetectCycles()
		require.Len(t, cycles, 1)
		assert.Equal(t, []string{"a/x.xml", "a/y.xml", "a/z.xml", "a/x.xml"}, cycles[0])
		assertTraversable(t, g, cycles[0])
	})

	t.Run("Cycle reachable from a root", func(t *testing.T) {
		g := depgraph.New()
		g.AddDependency("root", "a")
		g.AddDependency("a", "b")
		g.AddDependency("b", "a")

		cycles := g.DetectCycles()
		require.NotEmpty(t, cycles)
		for _, c := range cycles {
			assertTraversable(t, g, c)
		}
		assert.Equal(t, []string{"a", "b", "a"}, cycles[0])
	})

	t.Run("Self loop", func(t *testing.T) {
		g := depgraph.New()
		g.AddDependency("self", "self")

		cycles := g.DetectCycles()
		require.Len(t, cycles, 1)
		assert.Equal(t, []string{"self", "self"}, cycles[0])
	})

	t.Run("One cycle per search start", func(t *testing.T) {
		// Two cycles hang off the same start; only the first is reported.
		g := depgraph.New()
		g.AddDependency("root", "a")
		g.AddDependency("a", "root")
		g.AddDependency("root", "b")
		g.AddDependency("b", "root")

		cycles := g.DetectCycles()
		require.Len(t, cycles, 1)
		assertTraversable(t, g, cycles[0])
	})

	t.Run("Disjoint cycles from separate starts", func(t *testing.T) {
		g := depgraph.New()
		g.AddDependency("a", "b")
		g.AddDependency("b", "a")
		g.AddDependency("c", "d")
		g.AddDependency("d", "c")

		cycles := g.DetectCycles()
		assert.ElementsMatch(t, [][]string{{"a", "b", "a"}, {"c", "d", "c"}}, cycles)
	})

	t.Run("Acyclic", func(t *testing.T) {
		g := depgraph.New()
		g.AddDependency("a", "b")
		g.AddDependency("a", "c")
		g.AddDependency("b", "c")

		assert.Empty(t, g.DetectCycles())
		assert.False(t, g.HasCycles())
	})
}

func TestGraph_TopologicalOrder(t *testing.T) {
	t.Run("Dependencies precede dependents", func(t *testing.T) {
		g := depgraph.New()
		edges := [][2]string{
			{"app", "orders"}, {"app", "customers"},
			{"orders", "common"}, {"customers", "common"},
			{"orders", "customers"}, {"common", "edm"},
		}
		for _, e := range edges {
			g.AddDependency(e[0], e[1])
		}
		g.AddNode("isolated")

		order := g.TopologicalOrder()
		assert.ElementsMatch(t, g.Nodes(), order)

		pos := make(map[string]int, len(order))
		for i, n := range order {
			pos[n] = i
		}
		for _, e := range edges {
			assert.Less(t, pos[e[1]], pos[e[0]], "%s must load before %s", e[1], e[0])
		}
	})

	t.Run("Cyclic graph still yields every node", func(t *testing.T) {
		g := depgraph.New()
		g.AddDependency("a", "b")
		g.AddDependency("b", "a")
		g.AddDependency("b", "c")

		order := g.TopologicalOrder()
		assert.ElementsMatch(t, []string{"a", "b", "c"}, order)
		assert.Equal(t, "c", order[0])
	})

	t.Run("Deep chain", func(t *testing.T) {
		g := depgraph.New()
		const depth = 50000
		for i := 0; i < depth; i++ {
			g.AddDependency(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i+1))
		}
		order := g.TopologicalOrder()
		require.Len(t, order, depth+1)
		assert.Equal(t, fmt.Sprintf("n%d", depth), order[0])
		assert.Equal(t, "n0", order[depth])
		assert.Empty(t, g.DetectCycles())
	})
}

func TestGraph_HandleCycles(t *testing.T) {
	var sunk [][]string
	g := depgraph.New(depgraph.WithCycleSink(func(c []string) { sunk = append(sunk, c) }))
	g.AddDependency("a", "b")
	g.AddDependency("b", "a")
	cycles := g.DetectCycles()

	t.Run("Allowed", func(t *testing.T) {
		assert.NoError(t, g.HandleCycles(cycles, true))
	})

	t.Run("Disallowed", func(t *testing.T) {
		err := g.HandleCycles(cycles, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrCircularDependency)

		var cycErr *domain.CircularDependencyError
		require.ErrorAs(t, err, &cycErr)
		assert.Equal(t, cycles, cycErr.Cycles)
		assert.Contains(t, err.Error(), "a -> b -> a")
	})

	t.Run("No cycles", func(t *testing.T) {
		assert.NoError(t, g.HandleCycles(nil, false))
	})

	assert.Len(t, g.Report(), 2)
	assert.Len(t, sunk, 2)
	g.ResetReport()
	assert.Empty(t, g.Report())
}

func TestGraph_ConcurrentInsertion(t *testing.T) {
	g := depgraph.New()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				from := fmt.Sprintf("w%d/n%d", w, i)
				g.MarkLoading(from)
				g.AddDependency(from, "shared/common.xml")
				g.MarkFinished(from)
				_ = g.IsLoading("shared/common.xml")
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 8*200+1, g.Len())
	assert.Equal(t, 8*200, g.EdgeCount())
	assert.Equal(t, "shared/common.xml", g.TopologicalOrder()[0])
	assert.Len(t, g.Reachable("w0/n0"), 1)
}

func TestGraph_Dependencies_Snapshot(t *testing.T) {
	g := depgraph.New()
	g.AddDependency("a", "c")
	g.AddDependency("a", "b")
	g.AddNode("d")

	deps := g.Dependencies()
	assert.Equal(t, map[string][]string{"a": {"b", "c"}}, deps)

	deps["a"][0] = "mutated"
	assert.Equal(t, []string{"c", "b"}, g.DependenciesOf("a"))
}
