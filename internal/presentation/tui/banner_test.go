package tui

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/csdlc/pkg/domain"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "CSDL schema compiler 1.2.3")
}

func TestLabels(t *testing.T) {
	assert.Contains(t, Severity(domain.SeverityError), "error")
	assert.Contains(t, Severity(domain.SeverityWarning), "warning")
	assert.Contains(t, Verdict(true), "compliant")
	assert.Contains(t, Verdict(false), "non-compliant")
}

func TestIsTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	assert.False(t, IsTerminal(f))
}
