package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/csdlc/internal/presentation/graph"
	"github.com/aretw0/csdlc/internal/presentation/report"
	"github.com/aretw0/csdlc/pkg/compliance"
	"github.com/aretw0/csdlc/pkg/domain"
)

var graphCmd = &cobra.Command{
	Use:   "graph FILE",
	Short: "Print the reference graph of a schema",
	Long: `Follows edmx:Reference includes from FILE and prints the resulting
graph with its load order, dependencies first. Formats: markdown (default),
mermaid (graph TD) or json.`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().StringP("format", "f", "markdown", "Output format: markdown, mermaid or json")
	graphCmd.Flags().Bool("check", false, "Validate every document and highlight the failing ones (mermaid)")
}

func runGraph(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	check, _ := cmd.Flags().GetBool("check")
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		format = "json"
	}

	c, logger, err := newCompiler(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	rep, buildErr := c.BuildDependencyGraph(cmd.Context(), args[0])
	if rep == nil {
		return buildErr
	}
	if buildErr != nil && !errors.Is(buildErr, domain.ErrCircularDependency) {
		logger.Warn("graph is incomplete", "err", buildErr)
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		if err := emitJSON(out, rep); err != nil {
			return err
		}
	case "mermaid":
		var overlay *graph.GraphOverlay
		if check {
			overlay = &graph.GraphOverlay{Failed: failedNodes(cmd, c.Validator, rep)}
		}
		fmt.Fprint(out, graph.GenerateMermaid(rep, overlay))
	case "markdown", "md":
		if err := printMarkdown(out, report.Graph(rep)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q: use markdown, mermaid or json", format)
	}
	return buildErr
}

// failedNodes validates every local document of the graph and returns the
// non-compliant ones.
func failedNodes(cmd *cobra.Command, v *compliance.Validator, rep *compliance.GraphReport) []string {
	var failed []string
	for _, node := range rep.Nodes {
		if strings.Contains(node, "://") {
			continue
		}
		if _, broken := rep.ParseErrors[node]; broken {
			failed = append(failed, node)
			continue
		}
		res, err := v.ValidateFile(cmd.Context(), node)
		if err != nil || !res.Compliant() {
			failed = append(failed, node)
		}
	}
	return failed
}
