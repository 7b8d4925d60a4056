// Package report renders results as Markdown, styled with glamour on terminals.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/aretw0/csdlc/pkg/compliance"
	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/merger"
)

// NewRenderer returns a function that renders markdown for a terminal of the
// given width, picking a light or dark style automatically.
func NewRenderer(width int) (func(string) (string, error), error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render, nil
}

// Result renders a validation result.
func Result(res *compliance.Result) string {
	var sb strings.Builder
	verdict := "✅ compliant"
	if !res.Compliant() {
		verdict = "❌ non-compliant"
	}
	fmt.Fprintf(&sb, "# %s\n\n", escape(res.Source))
	fmt.Fprintf(&sb, "**%s**: %d error(s), %d warning(s) in %d file(s)", verdict, len(res.Errors()), len(res.Warnings()), len(res.Files))
	if res.Cached {
		sb.WriteString(" _(cached)_")
	}
	sb.WriteString("\n\n")

	if len(res.Global) > 0 {
		sb.WriteString("## Run\n\n")
		writeIssues(&sb, res.Global)
	}

	if len(res.Files) > 1 {
		sb.WriteString("| File | Status | Errors | Warnings |\n|---|---|---|---|\n")
		for _, f := range res.Files {
			status := "ok"
			if !f.Compliant() {
				status = "fail"
			}
			fmt.Fprintf(&sb, "| %s | %s | %d | %d |\n", escape(f.File), status, len(f.Errors()), countSeverity(f.Issues, domain.SeverityWarning))
		}
		sb.WriteString("\n")
	}

	for _, f := range res.Files {
		if len(f.Issues) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n\n", escape(f.File))
		writeIssues(&sb, f.Issues)
	}
	return sb.String()
}

// Graph renders a dependency graph report.
func Graph(g *compliance.GraphReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Dependencies of %s\n\n", escape(g.Root))
	fmt.Fprintf(&sb, "%d document(s), max depth %d", g.Stats.FilesProcessed, g.Stats.MaxDepthReached)
	if len(g.Cycles) > 0 {
		fmt.Fprintf(&sb, ", **%d cycle(s)**", len(g.Cycles))
	}
	sb.WriteString("\n\n## Load order\n\n")
	for i, n := range g.LoadOrder {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, escape(n))
	}
	if len(g.Cycles) > 0 {
		sb.WriteString("\n## Cycles\n\n")
		for _, c := range g.Cycles {
			fmt.Fprintf(&sb, "- %s\n", escape(strings.Join(c, " → ")))
		}
	}
	if len(g.Unresolved) > 0 {
		sb.WriteString("\n## Unresolved references\n\n")
		for _, u := range g.Unresolved {
			fmt.Fprintf(&sb, "- %s from %s\n", escape(u.URI), escape(u.From))
		}
	}
	if len(g.ParseErrors) > 0 {
		sb.WriteString("\n## Parse errors\n\n")
		keys := make([]string, 0, len(g.ParseErrors))
		for k := range g.ParseErrors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "- %s: %s\n", escape(k), escape(g.ParseErrors[k]))
		}
	}
	return sb.String()
}

// Merge renders a merge outcome.
func Merge(res *merger.Result) string {
	var sb strings.Builder
	sb.WriteString("# Merge\n\n")
	status := "✅ no conflicts"
	if !res.Success() {
		status = fmt.Sprintf("❌ %d conflicting element(s)", res.ConflictCount())
	}
	fmt.Fprintf(&sb, "**%s** across %d namespace(s)\n\n", status, len(res.Namespaces()))

	sections := []struct {
		title string
		items []string
	}{
		{"Errors", res.Errors()},
		{"Warnings", res.Warnings()},
		{"Notes", res.Notes()},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## %s\n\n", s.title)
		for _, m := range s.items {
			fmt.Fprintf(&sb, "- %s\n", escape(m))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeIssues(sb *strings.Builder, issues []domain.Issue) {
	for _, i := range issues {
		fmt.Fprintf(sb, "- **%s** `%s`", i.Severity, i.Kind)
		if i.Rule != "" {
			fmt.Fprintf(sb, " (%s)", i.Rule)
		}
		fmt.Fprintf(sb, ": %s\n", escape(i.Message))
	}
	sb.WriteString("\n")
}

func countSeverity(issues []domain.Issue, sev domain.Severity) int {
	n := 0
	for _, i := range issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

var escaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`)

func escape(s string) string {
	return escaper.Replace(s)
}
