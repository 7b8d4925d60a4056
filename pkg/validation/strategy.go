package validation

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/domain"
)

// Executor runs the applicable rules against a context.
type Executor interface {
	RunRules(ctx context.Context, vctx *Context, cfg *Config) error
}

// Strategy prepares a context of a given shape and drives rule execution.
type Strategy interface {
	Name() string
	CanHandle(vctx *Context) bool
	Execute(ctx context.Context, vctx *Context, cfg *Config, exec Executor) error
}

// DefaultStrategies returns the built-in strategies in selection order.
func DefaultStrategies() []Strategy {
	return []Strategy{DirectoryStrategy{}, FileStrategy{}, ContentStrategy{}, SchemaStrategy{}}
}

// FileStrategy handles a context backed by a file path. It enforces the size
// limit, reads and parses the document unless already loaded, then runs rules.
// A document that fails to parse is still handed to rules that work on raw
// content.
type FileStrategy struct{}

func (FileStrategy) Name() string { return "file" }

func (FileStrategy) CanHandle(vctx *Context) bool {
	return !vctx.IsDirectory() && vctx.FilePath() != ""
}

func (FileStrategy) Execute(ctx context.Context, vctx *Context, cfg *Config, exec Executor) error {
	if !vctx.HasContent() {
		info, err := os.Stat(vctx.FilePath())
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", vctx.FilePath(), err)
		}
		if tooLarge(vctx, info.Size(), cfg) {
			return nil
		}
		data, err := os.ReadFile(vctx.FilePath())
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", vctx.FilePath(), err)
		}
		vctx.setContent(data)
	} else if tooLarge(vctx, int64(len(vctx.Content())), cfg) {
		return nil
	}

	parseInto(vctx, vctx.FilePath())
	return exec.RunRules(ctx, vctx, cfg)
}

// ContentStrategy handles raw content with no backing file.
type ContentStrategy struct{}

func (ContentStrategy) Name() string { return "content" }

func (ContentStrategy) CanHandle(vctx *Context) bool {
	return !vctx.IsDirectory() && vctx.FilePath() == "" && vctx.HasContent()
}

func (ContentStrategy) Execute(ctx context.Context, vctx *Context, cfg *Config, exec Executor) error {
	if tooLarge(vctx, int64(len(vctx.Content())), cfg) {
		return nil
	}
	parseInto(vctx, "<content>")
	return exec.RunRules(ctx, vctx, cfg)
}

// SchemaStrategy handles in-memory schemas with no source text.
type SchemaStrategy struct{}

func (SchemaStrategy) Name() string { return "schema" }

func (SchemaStrategy) CanHandle(vctx *Context) bool {
	return !vctx.IsDirectory() && vctx.FilePath() == "" && !vctx.HasContent() && len(vctx.Schemas()) > 0
}

func (SchemaStrategy) Execute(ctx context.Context, vctx *Context, cfg *Config, exec Executor) error {
	setNamespace(vctx)
	return exec.RunRules(ctx, vctx, cfg)
}

// DirectoryStrategy validates every per-file context of a directory
// concurrently. A file that cannot be validated gets an issue; it never stops
// the others.
type DirectoryStrategy struct{}

func (DirectoryStrategy) Name() string { return "directory" }

func (DirectoryStrategy) CanHandle(vctx *Context) bool {
	return vctx.IsDirectory()
}

func (DirectoryStrategy) Execute(ctx context.Context, vctx *Context, cfg *Config, exec Executor) error {
	var g errgroup.Group
	g.SetLimit(cfg.MaxConcurrentValidations)

	for _, child := range vctx.Children() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var s Strategy = FileStrategy{}
			if !s.CanHandle(child) {
				s = ContentStrategy{}
			}
			if err := s.Execute(ctx, child, cfg, exec); err != nil {
				if ctx.Err() != nil {
					return err
				}
				child.AddIssue(domain.Issue{
					Kind:     domain.KindSchemaNotFound,
					Severity: domain.SeverityError,
					Message:  err.Error(),
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	vctx.SetMetadata("files", len(vctx.Children()))
	return nil
}

func tooLarge(vctx *Context, size int64, cfg *Config) bool {
	if cfg.MaxFileSize <= 0 || size <= cfg.MaxFileSize {
		return false
	}
	vctx.AddIssue(domain.Issue{
		Kind:     domain.KindFileTooLarge,
		Severity: domain.SeverityError,
		Message:  fmt.Sprintf("File size %d exceeds maximum allowed size %d", size, cfg.MaxFileSize),
	})
	return true
}

func parseInto(vctx *Context, source string) {
	if vctx.Document() == nil {
		doc, err := csdl.NewParser().Parse(vctx.Content(), source)
		if err != nil {
			vctx.AddIssue(domain.Issue{
				Kind:     domain.KindParsingError,
				Severity: domain.SeverityError,
				Message:  err.Error(),
			})
		} else {
			vctx.SetDocument(doc)
		}
	}
	setNamespace(vctx)
}

func setNamespace(vctx *Context) {
	if s := vctx.Schemas(); len(s) > 0 {
		vctx.SetMetadata("schemaNamespace", s[0].Namespace)
	}
}
