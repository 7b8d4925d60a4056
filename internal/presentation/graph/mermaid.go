package graph

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/aretw0/csdlc/pkg/compliance"
)

// GraphOverlay marks nodes to highlight on top of the reference graph.
type GraphOverlay struct {
	Cycles [][]string
	Failed []string
}

// GenerateMermaid produces a Mermaid flowchart of a dependency graph report.
// Edges point from a document to the document it references.
//
//   - Root: ((Circle))
//   - Document that failed to parse: [/Parallelogram/]
//   - Unresolved reference: {{Hexagon}} reached by a dotted edge
//   - Default: [Rectangle]
//
// Cycles from the report are drawn with thick arrows and styled, as are any
// nodes in overlay.
func GenerateMermaid(report *compliance.GraphReport, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if report == nil {
		return sb.String()
	}

	cycleEdges := make(map[[2]string]bool)
	inCycle := make(map[string]bool)
	cycles := report.Cycles
	if overlay != nil {
		cycles = append(append([][]string(nil), cycles...), overlay.Cycles...)
	}
	for _, c := range cycles {
		for i := 0; i+1 < len(c); i++ {
			cycleEdges[[2]string{c[i], c[i+1]}] = true
			inCycle[c[i]] = true
		}
	}

	for _, node := range report.Nodes {
		opener, closer := "[", "]"
		switch {
		case node == report.Root:
			opener, closer = "((", "))"
		case report.ParseErrors[node] != "":
			opener, closer = "[/", "/]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", sanitizeMermaidID(node), opener, path.Base(node), closer))
	}

	from := make([]string, 0, len(report.Edges))
	for f := range report.Edges {
		from = append(from, f)
	}
	sort.Strings(from)
	for _, f := range from {
		for _, to := range report.Edges[f] {
			arrow := "-->"
			if cycleEdges[[2]string{f, to}] {
				arrow = "==>"
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", sanitizeMermaidID(f), arrow, sanitizeMermaidID(to)))
		}
	}

	for i, u := range report.Unresolved {
		id := fmt.Sprintf("unresolved_%d", i)
		label := strings.ReplaceAll(u.URI, "\"", "'")
		sb.WriteString(fmt.Sprintf("    %s{{\"%s\"}}\n", id, label))
		sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", sanitizeMermaidID(u.From), id))
	}

	var failed []string
	if overlay != nil {
		failed = overlay.Failed
	}
	if len(inCycle) == 0 && len(failed) == 0 && len(report.Unresolved) == 0 {
		return sb.String()
	}

	sb.WriteString("\n    %% Overlay Styles\n")
	sb.WriteString("    classDef cycle fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef failed fill:#fff3e0,stroke:#ef6c00,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef missing fill:#eeeeee,stroke:#616161,stroke-dasharray:4,color:#000;\n")

	nodes := make([]string, 0, len(inCycle))
	for n := range inCycle {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	for _, n := range nodes {
		sb.WriteString(fmt.Sprintf("    class %s cycle;\n", sanitizeMermaidID(n)))
	}
	seen := make(map[string]bool)
	for _, n := range failed {
		id := sanitizeMermaidID(n)
		if id != "" && !seen[id] {
			seen[id] = true
			sb.WriteString(fmt.Sprintf("    class %s failed;\n", id))
		}
	}
	for i := range report.Unresolved {
		sb.WriteString(fmt.Sprintf("    class unresolved_%d missing;\n", i))
	}
	return sb.String()
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", ":", "_", " ", "_")
	return strings.TrimLeft(r.Replace(id), "_")
}
