package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/csdlc/internal/presentation/report"
	"github.com/aretw0/csdlc/internal/presentation/tui"
)

// emit prints v as indented JSON with --json, otherwise md as Markdown,
// styled when stdout is a terminal.
func emit(cmd *cobra.Command, v any, md string) error {
	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return emitJSON(out, v)
	}
	return printMarkdown(out, md)
}

func emitJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printMarkdown(out io.Writer, md string) error {
	f, ok := out.(*os.File)
	if !ok || !tui.IsTerminal(f) {
		_, err := io.WriteString(out, md)
		return err
	}

	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		width = 100
	}
	render, err := report.NewRenderer(width)
	if err != nil {
		return err
	}
	styled, err := render(md)
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	_, err = io.WriteString(out, styled)
	return err
}
