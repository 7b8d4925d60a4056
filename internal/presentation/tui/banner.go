package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/csdlc/pkg/domain"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// PrintBanner writes the ASCII art banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"   ___ ___ ___  _    ___ ", "#818cf8"},
		{"  / __/ __|   \\| |  / __|", "#a78bfa"},
		{" | (__\\__ \\ |) | |_| (__ ", "#c084fc"},
		{"  \\___|___/___/|____\\___|", "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  CSDL schema compiler "+version).Faint())
	fmt.Fprintln(w)
}

// Severity colours a severity label for terminal output.
func Severity(s domain.Severity) string {
	p := termenv.ColorProfile()
	label := termenv.String(string(s))
	switch s {
	case domain.SeverityError:
		return label.Foreground(p.Color("#ef4444")).Bold().String()
	case domain.SeverityWarning:
		return label.Foreground(p.Color("#f59e0b")).String()
	default:
		return label.Foreground(p.Color("#60a5fa")).String()
	}
}

// Verdict renders a compliant/non-compliant marker.
func Verdict(compliant bool) string {
	p := termenv.ColorProfile()
	if compliant {
		return termenv.String("✓ compliant").Foreground(p.Color("#22c55e")).Bold().String()
	}
	return termenv.String("✗ non-compliant").Foreground(p.Color("#ef4444")).Bold().String()
}
