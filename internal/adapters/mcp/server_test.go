package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/csdlc/pkg/compliance"
)

func doc(refs, ns string) string {
	return `<edmx:Edmx Version="4.0" xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx">` + refs + `
  <edmx:DataServices><Schema Namespace="` + ns + `" xmlns="http://docs.oasis-open.org/odata/ns/edm"/></edmx:DataServices>
</edmx:Edmx>`
}

func ref(uri, ns string) string {
	return `<edmx:Reference Uri="` + uri + `"><edmx:Include Namespace="` + ns + `"/></edmx:Reference>`
}

func newServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	write("a.xml", doc(ref("b.xml", "B"), "A"))
	write("b.xml", doc(ref("a.xml", "A"), "B"))
	write("c.xml", doc("", "C"))
	return NewServer(compliance.New(), root), root
}

func TestTools(t *testing.T) {
	ctx := context.Background()
	s, _ := newServer(t)
	req := mcp.CallToolRequest{}

	t.Run("validate_file", func(t *testing.T) {
		res, err := s.handleValidateFile(ctx, req, PathArgs{Path: "c.xml"})
		require.NoError(t, err)
		assert.True(t, res.Compliant(), res.Errors())
	})

	t.Run("validate_file requires path", func(t *testing.T) {
		_, err := s.handleValidateFile(ctx, req, PathArgs{})
		assert.Error(t, err)
	})

	t.Run("validate_content", func(t *testing.T) {
		res, err := s.handleValidateContent(ctx, req, ContentArgs{Name: "inline.xml", Content: "<Schema"})
		require.NoError(t, err)
		assert.False(t, res.Compliant())
	})

	t.Run("validate_directory", func(t *testing.T) {
		res, err := s.handleValidateDirectory(ctx, req, PathArgs{Path: "/", CrossFile: true})
		require.NoError(t, err)
		assert.Len(t, res.Files, 3)
	})

	t.Run("dependency_graph reports cycles", func(t *testing.T) {
		report, err := s.handleDependencyGraph(ctx, req, PathArgs{Path: "a.xml"})
		require.NoError(t, err)
		assert.NotEmpty(t, report.Cycles)
	})

	t.Run("dependency_graph missing root", func(t *testing.T) {
		_, err := s.handleDependencyGraph(ctx, req, PathArgs{Path: "missing.xml"})
		assert.Error(t, err)
	})
}

func TestResolve(t *testing.T) {
	s := NewServer(compliance.New(), "/srv/schemas")
	p, err := s.resolve("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/schemas", "etc", "passwd"), p)
}
