package validation

import (
	"sort"
	"time"

	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/domain"
)

// Result is the aggregated outcome of one Validate call.
type Result struct {
	File           string         `json:"file,omitempty"`
	Strategy       string         `json:"strategy"`
	ProcessingTime time.Duration  `json:"processingTime"`
	Issues         []domain.Issue `json:"issues"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Files          []*Result      `json:"files,omitempty"`

	// Document is the parsed document, when there was one.
	Document *csdl.Document `json:"-"`
}

func newResult(vctx *Context, strategy string) *Result {
	res := &Result{
		File:           vctx.FilePath(),
		Strategy:       strategy,
		ProcessingTime: vctx.Elapsed(),
		Issues:         vctx.Issues(),
		Metadata:       vctx.Metadata(),
		Document:       vctx.Document(),
	}
	if vctx.IsDirectory() {
		res.File = vctx.Directory()
	}

	timings := vctx.Timings()
	if len(timings) > 0 {
		ms := make(map[string]int64, len(timings))
		for rule, d := range timings {
			ms[rule] = d.Milliseconds()
		}
		res.Metadata["ruleExecutionTimes"] = ms
	}

	for _, child := range vctx.Children() {
		res.Files = append(res.Files, newResult(child, strategy))
	}
	sort.Slice(res.Files, func(i, j int) bool { return res.Files[i].File < res.Files[j].File })
	return res
}

// Valid reports whether neither the result nor any file result holds an error.
func (r *Result) Valid() bool {
	for _, i := range r.AllIssues() {
		if i.IsError() {
			return false
		}
	}
	return true
}

// AllIssues returns the issues of r followed by those of every file result.
func (r *Result) AllIssues() []domain.Issue {
	out := append([]domain.Issue(nil), r.Issues...)
	for _, f := range r.Files {
		out = append(out, f.AllIssues()...)
	}
	return out
}

// Errors returns error messages of r formatted "[rule] message".
func (r *Result) Errors() []string { return tagged(r.Issues, domain.SeverityError) }

// Warnings returns warning messages of r formatted "[rule] message".
func (r *Result) Warnings() []string { return tagged(r.Issues, domain.SeverityWarning) }

// Infos returns informational messages of r formatted "[rule] message".
func (r *Result) Infos() []string { return tagged(r.Issues, domain.SeverityInfo) }

// IssuesOfKind returns every issue (including file results) of the given kind.
func (r *Result) IssuesOfKind(kind domain.IssueKind) []domain.Issue {
	var out []domain.Issue
	for _, i := range r.AllIssues() {
		if i.Kind == kind {
			out = append(out, i)
		}
	}
	return out
}
