package compliance

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/registry"
	"github.com/aretw0/csdlc/pkg/typeregistry"
	"github.com/aretw0/csdlc/pkg/validation"
)

// DirectoryOptions controls ValidateDirectory.
type DirectoryOptions struct {
	// Recursive includes *.xml files in subdirectories.
	Recursive bool
	// CrossFile builds the directory-wide registries first and enables the
	// cross-file rule and conflict detection.
	CrossFile bool
}

// ValidateDirectory validates every *.xml document in dir.
//
// Files are validated concurrently; a file that fails never stops the
// others, its problem is attached to its own result. An empty directory is
// compliant. Only an unreadable directory returns an error.
func (v *Validator) ValidateDirectory(ctx context.Context, dir string, opts DirectoryOptions) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := v.logger.With("run", runID, "dir", dir)

	files, err := ListSchemaFiles(dir, opts.Recursive)
	if err != nil {
		return nil, err
	}
	res := &Result{RunID: runID, Source: dir}
	if len(files) == 0 {
		res.Duration = time.Since(start)
		log.Debug("no schema files found")
		return res, nil
	}

	cfg := v.cfg.Clone()
	cfg.CrossFileValidation = opts.CrossFile

	children, docs, err := v.preload(ctx, files, cfg)
	if err != nil {
		return nil, err
	}

	dctx := validation.NewDirectoryContext(dir, children...)
	if opts.CrossFile {
		reg := registry.New()
		var all []*csdl.Schema
		for _, f := range files {
			if doc := docs[f]; doc != nil {
				reg.RegisterDocument(doc)
				all = append(all, doc.Schemas...)
			}
		}
		dctx.WithRegistry(reg).WithTypes(typeregistry.Build(all...)).WithAllSchemas(all)
		log.Debug("registries built", "namespaces", len(reg.Namespaces()), "types", reg.Statistics().TotalTypes)
	}

	vres, err := v.engine.Validate(ctx, dctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to validate %s: %w", dir, err)
	}

	res.Global = append(res.Global, vres.Issues...)
	byFile := make(map[string]*FileResult, len(vres.Files))
	for _, child := range vres.Files {
		fr := fileResult(child)
		byFile[fr.File] = fr
		res.Files = append(res.Files, fr)
		if v.recorder != nil {
			v.recorder.FileValidated(fr.Compliant(), fr.ProcessingTime)
		}
	}

	if opts.CrossFile {
		for _, issue := range DetectConflicts(docs) {
			if fr, ok := byFile[issue.File]; ok {
				fr.Issues = append(fr.Issues, issue)
			} else {
				res.Global = append(res.Global, issue)
			}
		}
	}

	res.Duration = time.Since(start)
	log.Info("directory validated",
		"files", len(res.Files),
		"compliant", res.Compliant(),
		"errors", len(res.Errors()),
		"duration", res.Duration)
	return res, nil
}

// preload reads and parses every file concurrently. Oversized or unreadable
// files get a bare file context so the engine reports them.
func (v *Validator) preload(ctx context.Context, files []string, cfg *validation.Config) ([]*validation.Context, map[string]*csdl.Document, error) {
	children := make([]*validation.Context, len(files))
	parsed := make([]*csdl.Document, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrentValidations)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			info, err := os.Stat(f)
			if err != nil || (cfg.MaxFileSize > 0 && info.Size() > cfg.MaxFileSize) {
				children[i] = validation.NewFileContext(f)
				return nil
			}
			content, err := os.ReadFile(f)
			if err != nil {
				children[i] = validation.NewFileContext(f)
				return nil
			}
			// A parse failure leaves doc nil; the file strategy reports it.
			doc, _ := v.parser.Parse(content, f)
			parsed[i] = doc
			children[i] = validation.NewDocumentContext(f, content, doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	docs := make(map[string]*csdl.Document, len(files))
	for i, f := range files {
		docs[f] = parsed[i]
	}
	return children, docs, nil
}

// ListSchemaFiles returns the *.xml files in dir, sorted.
func ListSchemaFiles(dir string, recursive bool) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	isSchema := func(name string) bool {
		return strings.EqualFold(filepath.Ext(name), ".xml")
	}

	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
		}
		for _, e := range entries {
			if !e.IsDir() && isSchema(e.Name()) {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
		return files, nil
	}

	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isSchema(d.Name()) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
