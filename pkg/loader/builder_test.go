package loader_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/csdlc/pkg/adapters/memory"
	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/loader"
)

func edmx(ns string, refs ...string) string {
	var sb strings.Builder
	sb.WriteString(`<edmx:Edmx xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx" Version="4.0">`)
	for _, r := range refs {
		fmt.Fprintf(&sb, `<edmx:Reference Uri="%s"><edmx:Include Namespace="X"/></edmx:Reference>`, r)
	}
	fmt.Fprintf(&sb, `<edmx:DataServices><Schema xmlns="http://docs.oasis-open.org/odata/ns/edm" Namespace="%s"/></edmx:DataServices></edmx:Edmx>`, ns)
	return sb.String()
}

func build(t *testing.T, docs map[string]string, opts ...loader.Option) (*loader.Result, error) {
	t.Helper()
	opts = append([]loader.Option{loader.WithResolver(memory.NewResolver(docs))}, opts...)
	return loader.NewBuilder(opts...).Build(context.Background(), "root.xml")
}

func TestBuilder_Chain(t *testing.T) {
	res, err := build(t, map[string]string{
		"root.xml": edmx("Root", "a.xml"),
		"a.xml":    edmx("A", "b.xml"),
		"b.xml":    edmx("B"),
	})
	require.NoError(t, err)

	assert.Equal(t, "schemas/root.xml", res.Root)
	assert.Equal(t, []string{"schemas/b.xml", "schemas/a.xml", "schemas/root.xml"}, res.Graph.TopologicalOrder())
	assert.Equal(t, 3, res.Stats.FilesProcessed)
	assert.Equal(t, 2, res.Stats.MaxDepthReached)
	assert.False(t, res.Stats.CircularDetected)
	assert.True(t, res.Graph.IsDone("root.xml"))

	doc, ok := res.Document("a.xml")
	require.True(t, ok)
	assert.Equal(t, []string{"A"}, doc.Namespaces())
}

func TestBuilder_Diamond(t *testing.T) {
	res, err := build(t, map[string]string{
		"root.xml": edmx("Root", "a.xml", "b.xml"),
		"a.xml":    edmx("A", "c.xml"),
		"b.xml":    edmx("B", "c.xml"),
		"c.xml":    edmx("C"),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Stats.FilesProcessed)
	assert.Equal(t, 4, res.Graph.EdgeCount())

	order := res.Graph.TopologicalOrder()
	assert.Equal(t, "schemas/c.xml", order[0])
	assert.Equal(t, "schemas/root.xml", order[3])
}

func TestBuilder_Cycles(t *testing.T) {
	docs := map[string]string{
		"root.xml": edmx("Root", "a.xml"),
		"a.xml":    edmx("A", "b.xml"),
		"b.xml":    edmx("B", "a.xml"),
	}

	t.Run("Disallowed", func(t *testing.T) {
		res, err := build(t, docs)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrCircularDependency)

		var cycErr *domain.CircularDependencyError
		require.ErrorAs(t, err, &cycErr)
		assert.Equal(t, [][]string{{"schemas/a.xml", "schemas/b.xml", "schemas/a.xml"}}, cycErr.Cycles)
		require.NotNil(t, res)
		assert.True(t, res.Stats.CircularDetected)
	})

	t.Run("Allowed", func(t *testing.T) {
		res, err := build(t, docs, loader.WithAllowCycles(true))
		require.NoError(t, err)
		assert.True(t, res.Stats.CircularDetected)
		assert.Len(t, res.Graph.Report(), 1)
		assert.Equal(t, 3, res.Stats.FilesProcessed)
	})
}

func TestBuilder_BackReferences(t *testing.T) {
	res, err := build(t, map[string]string{
		"root.xml": edmx("Root", "a.xml"),
		"a.xml":    edmx("A", "root.xml", "b.xml"),
		"b.xml":    edmx("B", "a.xml", "root.xml"),
	}, loader.WithAllowCycles(true), loader.WithConcurrency(1))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Stats.FilesProcessed)
	assert.Equal(t, 5, res.Graph.EdgeCount(), "edges to ancestors are kept")
	for _, f := range []string{"root.xml", "a.xml", "b.xml"} {
		assert.True(t, res.Graph.IsDone(f), f)
		assert.False(t, res.Graph.IsLoading(f), f)
	}
}

func TestBuilder_MaxDepth(t *testing.T) {
	docs := map[string]string{
		"root.xml": edmx("Root", "d1.xml"),
		"d1.xml":   edmx("D1", "d2.xml"),
		"d2.xml":   edmx("D2", "d3.xml"),
		"d3.xml":   edmx("D3"),
	}

	_, err := build(t, docs, loader.WithMaxDepth(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMaxDepthExceeded)

	var depthErr *domain.MaxDepthExceededError
	require.ErrorAs(t, err, &depthErr)
	assert.Equal(t, 3, depthErr.Depth)
	assert.Equal(t, 2, depthErr.Max)

	_, err = build(t, docs, loader.WithMaxDepth(3))
	assert.NoError(t, err)
}

func TestBuilder_UnresolvedAndBroken(t *testing.T) {
	res, err := build(t, map[string]string{
		"root.xml":   edmx("Root", "gone.xml", "broken.xml", "https://example.com/vocab.xml"),
		"broken.xml": `<edmx:Edmx Version="4.0"><edmx:Reference Uri="leaf.xml"/>`,
		"leaf.xml":   edmx("Leaf"),
	}, loader.WithConcurrency(1))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Stats.Unresolved)
	assert.Contains(t, res.ParseErrors, "schemas/broken.xml")
	assert.ErrorIs(t, res.ParseErrors["schemas/broken.xml"], domain.ErrParsing)
	assert.True(t, res.Graph.Contains("leaf.xml"), "references of unparsable documents are still followed")
	assert.Equal(t, 3, res.Stats.FilesProcessed)
}

func TestBuilder_MissingRoot(t *testing.T) {
	_, err := build(t, map[string]string{})
	assert.ErrorIs(t, err, domain.ErrSchemaNotFound)
}
