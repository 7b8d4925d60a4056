package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/csdlc/internal/presentation/report"
	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/merger"
)

var mergeCmd = &cobra.Command{
	Use:   "merge FILE...",
	Short: "Merge schema fragments that share a namespace",
	Long: `Parses every file, groups their schemas by namespace and merges the
fragments of each namespace. Identical duplicates are reported as warnings,
differing ones as errors and settled by --resolution.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().String("resolution", "keep-first", "Conflict resolution: keep-first, keep-last or skip-conflicts")
}

type mergeSummary struct {
	Success    bool                                     `json:"success"`
	Namespaces []string                                 `json:"namespaces"`
	Elements   map[string]map[csdl.ElementKind][]string `json:"elements"`
	Conflicts  map[csdl.ElementKind][]string            `json:"conflicts,omitempty"`
	Errors     []string                                 `json:"errors,omitempty"`
	Warnings   []string                                 `json:"warnings,omitempty"`
	Notes      []string                                 `json:"notes,omitempty"`
}

func summarize(res *merger.Result) mergeSummary {
	s := mergeSummary{
		Success:    res.Success(),
		Namespaces: res.Namespaces(),
		Elements:   make(map[string]map[csdl.ElementKind][]string),
		Conflicts:  res.Conflicts(),
		Errors:     res.Errors(),
		Warnings:   res.Warnings(),
		Notes:      res.Notes(),
	}
	for ns, schema := range res.Schemas() {
		s.Elements[ns] = schema.ElementNames()
	}
	return s
}

func runMerge(cmd *cobra.Command, args []string) error {
	c, _, err := newCompiler(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := c.MergeFiles(cmd.Context(), args)
	if err != nil {
		return err
	}
	if err := emit(cmd, summarize(res), report.Merge(res)); err != nil {
		return err
	}
	if !res.Success() {
		return errNonCompliant
	}
	return nil
}
