package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/csdlc/internal/presentation/graph"
	"github.com/aretw0/csdlc/pkg/compliance"
	"github.com/aretw0/csdlc/pkg/loader"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		report   *compliance.GraphReport
		overlay  *graph.GraphOverlay
		contains []string
		excludes []string
	}{
		{
			name: "Root Node Shape",
			report: &compliance.GraphReport{
				Root:  "/schemas/root.xml",
				Nodes: []string{"/schemas/root.xml", "/schemas/leaf.xml"},
				Edges: map[string][]string{"/schemas/root.xml": {"/schemas/leaf.xml"}},
			},
			contains: []string{
				`schemas_root_xml(("root.xml"))`,
				`schemas_leaf_xml["leaf.xml"]`,
				"schemas_root_xml --> schemas_leaf_xml",
			},
			excludes: []string{"classDef"},
		},
		{
			name: "Parse Failure Shape",
			report: &compliance.GraphReport{
				Root:        "/r.xml",
				Nodes:       []string{"/r.xml", "/bad.xml"},
				ParseErrors: map[string]string{"/bad.xml": "unexpected EOF"},
			},
			contains: []string{`bad_xml[/"bad.xml"/]`},
		},
		{
			name: "Cycle Edges",
			report: &compliance.GraphReport{
				Root:   "/a.xml",
				Nodes:  []string{"/a.xml", "/b.xml"},
				Edges:  map[string][]string{"/a.xml": {"/b.xml"}, "/b.xml": {"/a.xml"}},
				Cycles: [][]string{{"/a.xml", "/b.xml", "/a.xml"}},
			},
			contains: []string{
				"a_xml ==> b_xml",
				"b_xml ==> a_xml",
				"class a_xml cycle;",
				"class b_xml cycle;",
			},
		},
		{
			name: "Unresolved Reference",
			report: &compliance.GraphReport{
				Root:       "/a.xml",
				Nodes:      []string{"/a.xml"},
				Unresolved: []loader.Unresolved{{From: "/a.xml", URI: "http://example.com/x.xml"}},
			},
			contains: []string{
				`unresolved_0{{"http://example.com/x.xml"}}`,
				"a_xml -.-> unresolved_0",
				"class unresolved_0 missing;",
			},
		},
		{
			name: "Failed Overlay",
			report: &compliance.GraphReport{
				Root:  "/a.xml",
				Nodes: []string{"/a.xml"},
			},
			overlay:  &graph.GraphOverlay{Failed: []string{"/a.xml", "/a.xml"}},
			contains: []string{"class a_xml failed;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.report, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("GenerateMermaid() = \n%v\nUnexpected substring: %v", got, bad)
				}
			}
			if strings.Count(got, "class a_xml failed;") > 1 {
				t.Errorf("duplicate overlay class in\n%v", got)
			}
		})
	}
}
