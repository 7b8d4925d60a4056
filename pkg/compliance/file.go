package compliance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/validation"
)

// ValidateFile validates the document at path.
//
// An invalid document is reported through the result. Only infrastructure
// problems (a missing or unreadable file, cancellation) return an error.
func (v *Validator) ValidateFile(ctx context.Context, path string) (*Result, error) {
	if path == "" {
		return nil, errors.New("validate file: empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	if v.cfg.MaxFileSize > 0 && info.Size() > v.cfg.MaxFileSize {
		return v.run(ctx, path, validation.NewFileContext(path), "")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return v.ValidateContent(ctx, path, content)
}

// ValidateContent validates an in-memory document. name labels the result
// and is the base relative references are checked against.
func (v *Validator) ValidateContent(ctx context.Context, name string, content []byte) (*Result, error) {
	if name == "" {
		name = "<content>"
	}
	key := v.cacheKey(name, content)
	if cached, ok := v.lookup(ctx, key); ok {
		cached.RunID = uuid.NewString()
		cached.Source = name
		cached.Cached = true
		v.logger.Debug("result served from cache", "run", cached.RunID, "file", name)
		return cached, nil
	}
	return v.run(ctx, name, validation.NewDocumentContext(name, content, nil), key)
}

func (v *Validator) run(ctx context.Context, name string, vctx *validation.Context, key string) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()

	vres, err := v.engine.Validate(ctx, vctx, v.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to validate %s: %w", name, err)
	}

	fr := fileResult(vres)
	res := &Result{
		RunID:    runID,
		Source:   name,
		Duration: time.Since(start),
		Files:    []*FileResult{fr},
	}
	if v.recorder != nil {
		v.recorder.FileValidated(fr.Compliant(), fr.ProcessingTime)
	}
	v.logger.Debug("file validated",
		"run", runID,
		"file", name,
		"compliant", res.Compliant(),
		"issues", len(fr.Issues),
		"duration", res.Duration)

	if key != "" {
		v.store(ctx, key, res)
	}
	return res, nil
}

// fileResult converts an engine result and adds the duplicate checks the
// engine does not cover.
func fileResult(vres *validation.Result) *FileResult {
	fr := &FileResult{
		File:           vres.File,
		Issues:         append([]domain.Issue(nil), vres.Issues...),
		ProcessingTime: vres.ProcessingTime,
		Metadata:       vres.Metadata,
	}
	if vres.Document != nil {
		fr.Namespaces = vres.Document.Namespaces()
		fr.Issues = append(fr.Issues, duplicateIssues(vres.File, vres.Document, fr.Issues)...)
	}
	return fr
}

// Kinds whose names must be unique within a schema. Operations are keyed by
// signature instead.
var namedKinds = []csdl.ElementKind{
	csdl.KindEntityType,
	csdl.KindComplexType,
	csdl.KindEnumType,
	csdl.KindTypeDefinition,
	csdl.KindTerm,
	csdl.KindEntityContainer,
}

// duplicateIssues reports every same-kind duplicate in doc that is not already
// covered by an existing DuplicateElement issue on the same element.
func duplicateIssues(file string, doc *csdl.Document, existing []domain.Issue) []domain.Issue {
	key := func(kind, ns, name string) string {
		return ns + "\x00" + kind + "\x00" + name
	}
	reported := make(map[string]bool)
	for _, i := range existing {
		if i.Kind == domain.KindDuplicateElement {
			ns, name := csdl.SplitQualified(i.Element)
			reported[key(i.ElementKind, ns, name)] = true
		}
	}

	var out []domain.Issue
	add := func(kind csdl.ElementKind, name, ns string) {
		k := key(string(kind), ns, name)
		if reported[k] {
			return
		}
		reported[k] = true
		err := &domain.DuplicateElementError{Kind: string(kind), Name: name, Namespace: ns}
		out = append(out, domain.Issue{
			Kind:        domain.KindDuplicateElement,
			Severity:    domain.SeverityError,
			Message:     err.Error(),
			File:        file,
			Element:     ns + "." + name,
			ElementKind: string(kind),
		})
	}

	for _, s := range doc.Schemas {
		names := s.ElementNames()
		for _, kind := range namedKinds {
			seen := make(map[string]bool)
			for _, n := range names[kind] {
				if seen[n] {
					add(kind, n, s.Namespace)
				}
				seen[n] = true
			}
		}
		actions := make(map[string]bool)
		for _, a := range s.Actions {
			if actions[a.Signature()] {
				add(csdl.KindAction, a.Name, s.Namespace)
			}
			actions[a.Signature()] = true
		}
		functions := make(map[string]bool)
		for _, f := range s.Functions {
			if functions[f.Signature()] {
				add(csdl.KindFunction, f.Name, s.Namespace)
			}
			functions[f.Signature()] = true
		}
	}
	return out
}
