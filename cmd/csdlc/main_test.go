package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/csdlc/pkg/domain"
)

const header = `<?xml version="1.0" encoding="utf-8"?>
<edmx:Edmx Version="4.0" xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx">
`

func schema(ns, refs, body string) string {
	return header + refs + `  <edmx:DataServices>
    <Schema Namespace="` + ns + `" xmlns="http://docs.oasis-open.org/odata/ns/edm">
` + body + `
    </Schema>
  </edmx:DataServices>
</edmx:Edmx>`
}

func ref(uri, ns string) string {
	return `  <edmx:Reference Uri="` + uri + `"><edmx:Include Namespace="` + ns + `"/></edmx:Reference>
`
}

func entity(name, idType string) string {
	return `      <EntityType Name="` + name + `">
        <Key><PropertyRef Name="ID"/></Key>
        <Property Name="ID" Type="` + idType + `" Nullable="false"/>
      </EntityType>`
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// resetFlags restores every flag to its default; cobra keeps values between
// executions of the same command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "csdlc version 0.1.0\n", out)
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := write(t, dir, "good.xml", schema("Sales", "", entity("Order", "Edm.Int32")))
	dup := write(t, dir, "dup.xml", schema("Catalog", "", entity("Product", "Edm.Int32")+"\n"+entity("Product", "Edm.Int32")))

	t.Run("Compliant file", func(t *testing.T) {
		out, err := execute(t, "validate", good)
		require.NoError(t, err)
		assert.Contains(t, out, "compliant")
	})

	t.Run("Duplicate exits non-compliant", func(t *testing.T) {
		out, err := execute(t, "validate", good, dup)
		assert.ErrorIs(t, err, errNonCompliant)
		assert.Contains(t, out, "DuplicateElement")
	})

	t.Run("JSON output", func(t *testing.T) {
		out, err := execute(t, "validate", "--json", good)
		require.NoError(t, err)

		var body struct {
			Compliant bool   `json:"compliant"`
			Source    string `json:"source"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &body))
		assert.True(t, body.Compliant)
		assert.Equal(t, good, body.Source)
	})

	t.Run("Missing file is an error", func(t *testing.T) {
		_, err := execute(t, "validate", good, filepath.Join(dir, "none.xml"))
		require.Error(t, err)
		assert.Len(t, domain.Errors(err), 1)
		assert.NotErrorIs(t, err, errNonCompliant)
	})

	t.Run("Unknown preset", func(t *testing.T) {
		_, err := execute(t, "validate", "--preset", "paranoid", good)
		assert.ErrorContains(t, err, "paranoid")
	})

	t.Run("Bad log level", func(t *testing.T) {
		_, err := execute(t, "validate", "--log-level", "loud", good)
		assert.Error(t, err)
	})
}

func TestValidateDirCommand(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.xml", schema("Shared", "", entity("Item", "Edm.Int32")))
	write(t, dir, "b.xml", schema("Shared", "", entity("Item", "Edm.String")))

	t.Run("Independent files", func(t *testing.T) {
		_, err := execute(t, "validate-dir", dir)
		assert.NoError(t, err)
	})

	t.Run("Cross-file conflict", func(t *testing.T) {
		out, err := execute(t, "validate-dir", "--cross-file", dir)
		assert.ErrorIs(t, err, errNonCompliant)
		assert.Contains(t, out, "Element conflict")
	})
}

func TestGraphCommand(t *testing.T) {
	dir := t.TempDir()
	root := write(t, dir, "root.xml", schema("Root", ref("leaf.xml", "Leaf"), ""))
	write(t, dir, "leaf.xml", schema("Leaf", "", ""))
	a := write(t, dir, "a.xml", schema("A", ref("b.xml", "B"), ""))
	write(t, dir, "b.xml", schema("B", ref("a.xml", "A"), ""))

	t.Run("Markdown", func(t *testing.T) {
		out, err := execute(t, "graph", root)
		require.NoError(t, err)
		assert.Contains(t, out, "Load order")
		assert.Contains(t, out, "leaf.xml")
	})

	t.Run("Mermaid", func(t *testing.T) {
		out, err := execute(t, "graph", "-f", "mermaid", "--check", root)
		require.NoError(t, err)
		assert.Contains(t, out, "graph TD")
		assert.NotContains(t, out, "classDef failed")
	})

	t.Run("JSON", func(t *testing.T) {
		out, err := execute(t, "graph", "--json", root)
		require.NoError(t, err)

		var body struct {
			Nodes     []string `json:"nodes"`
			LoadOrder []string `json:"loadOrder"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &body))
		assert.Len(t, body.Nodes, 2)
	})

	t.Run("Cycle", func(t *testing.T) {
		out, err := execute(t, "graph", "-f", "mermaid", a)
		assert.ErrorIs(t, err, domain.ErrCircularDependency)
		assert.Contains(t, out, "==>")

		_, err = execute(t, "graph", "--allow-cycles", a)
		assert.NoError(t, err)
	})

	t.Run("Unknown format", func(t *testing.T) {
		_, err := execute(t, "graph", "-f", "dot", root)
		assert.ErrorContains(t, err, "dot")
	})
}

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	a := write(t, dir, "a.xml", schema("Shared", "", entity("Item", "Edm.Int32")))
	b := write(t, dir, "b.xml", schema("Shared", "", entity("Item", "Edm.String")))
	c := write(t, dir, "c.xml", schema("Shared", "", entity("Other", "Edm.Int32")))

	t.Run("Disjoint fragments", func(t *testing.T) {
		out, err := execute(t, "merge", "--json", a, c)
		require.NoError(t, err)

		var body mergeSummary
		require.NoError(t, json.Unmarshal([]byte(out), &body))
		assert.True(t, body.Success)
		assert.Equal(t, []string{"Shared"}, body.Namespaces)
	})

	t.Run("Conflict", func(t *testing.T) {
		out, err := execute(t, "merge", "--resolution", "keep-last", a, b)
		assert.ErrorIs(t, err, errNonCompliant)
		assert.Contains(t, out, "Item")
	})

	t.Run("Bad resolution", func(t *testing.T) {
		_, err := execute(t, "merge", "--resolution", "coin-flip", a, b)
		assert.ErrorContains(t, err, "coin-flip")
	})
}
