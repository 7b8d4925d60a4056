package compliance

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/aretw0/csdlc/pkg/domain"
)

// FileResult is the outcome for one document.
type FileResult struct {
	File           string         `json:"file"`
	Namespaces     []string       `json:"namespaces,omitempty"`
	Issues         []domain.Issue `json:"issues"`
	ProcessingTime time.Duration  `json:"processingTime"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Compliant reports whether the file has no error issues.
func (f *FileResult) Compliant() bool {
	for _, i := range f.Issues {
		if i.IsError() {
			return false
		}
	}
	return true
}

// Errors returns the error issues of the file.
func (f *FileResult) Errors() []domain.Issue {
	return filter(f.Issues, domain.SeverityError)
}

// Result is the verdict for one validated unit (a file or a directory).
type Result struct {
	RunID    string         `json:"runId"`
	Source   string         `json:"source"`
	Duration time.Duration  `json:"duration"`
	Cached   bool           `json:"cached,omitempty"`
	Global   []domain.Issue `json:"globalIssues,omitempty"`
	Files    []*FileResult  `json:"files"`
}

// Compliant reports whether no issue anywhere in the run is an error.
// An empty directory is compliant.
func (r *Result) Compliant() bool {
	for _, i := range r.Issues() {
		if i.IsError() {
			return false
		}
	}
	return true
}

// Issues returns the run-level issues followed by every file's issues.
func (r *Result) Issues() []domain.Issue {
	out := append([]domain.Issue(nil), r.Global...)
	for _, f := range r.Files {
		out = append(out, f.Issues...)
	}
	return out
}

// FileResults returns the per-file results sorted by path.
func (r *Result) FileResults() []*FileResult {
	return append([]*FileResult(nil), r.Files...)
}

// FileResult returns the result of the file at path.
func (r *Result) FileResult(path string) (*FileResult, bool) {
	for _, f := range r.Files {
		if f.File == path {
			return f, true
		}
	}
	return nil, false
}

// IssuesOfKind returns every issue of the given kind.
func (r *Result) IssuesOfKind(kind domain.IssueKind) []domain.Issue {
	var out []domain.Issue
	for _, i := range r.Issues() {
		if i.Kind == kind {
			out = append(out, i)
		}
	}
	return out
}

// Errors returns every error issue.
func (r *Result) Errors() []domain.Issue { return filter(r.Issues(), domain.SeverityError) }

// Warnings returns every warning issue.
func (r *Result) Warnings() []domain.Issue { return filter(r.Issues(), domain.SeverityWarning) }

// MarshalJSON adds the computed verdict.
func (r *Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		*plain
		Compliant bool `json:"compliant"`
	}{(*plain)(r), r.Compliant()})
}

// Encode serializes r.
func (r *Result) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeResult parses a result produced by Encode.
func DecodeResult(data []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func filter(issues []domain.Issue, sev domain.Severity) []domain.Issue {
	var out []domain.Issue
	for _, i := range issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}
