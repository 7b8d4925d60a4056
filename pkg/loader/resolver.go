package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/ports"
)

func isRemote(uri string) bool {
	return strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://")
}

func notFound(uri string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", domain.ErrSchemaNotFound, uri)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrSchemaNotFound, uri, err)
}

// FileResolver reads references from disk. Relative references resolve
// against the directory of the referencing document.
type FileResolver struct{}

func (FileResolver) Resolve(_ context.Context, base, uri string) (*ports.Source, error) {
	if isRemote(uri) {
		return nil, notFound(uri, nil)
	}
	p := uri
	if base != "" && !filepath.IsAbs(p) {
		p = filepath.Join(filepath.Dir(base), p)
	}
	return readFile(filepath.Clean(p), uri)
}

// DirResolver looks references up under a list of search roots, in order.
type DirResolver struct {
	Roots []string
}

func (r DirResolver) Resolve(_ context.Context, _ string, uri string) (*ports.Source, error) {
	if isRemote(uri) || filepath.IsAbs(uri) {
		return nil, notFound(uri, nil)
	}
	for _, root := range r.Roots {
		src, err := readFile(filepath.Join(root, uri), uri)
		if err == nil {
			return src, nil
		}
		if !errors.Is(err, domain.ErrSchemaNotFound) {
			return nil, err
		}
	}
	return nil, notFound(uri, nil)
}

func readFile(p, uri string) (*ports.Source, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound(uri, nil)
		}
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return &ports.Source{Location: p, Content: data}, nil
}

// DefaultHTTPTimeout bounds a single remote fetch.
const DefaultHTTPTimeout = 10 * time.Second

// HTTPResolver fetches http and https references.
type HTTPResolver struct {
	Client   *http.Client
	MaxBytes int64
}

// NewHTTPResolver returns a resolver with its own client bounded by timeout.
func NewHTTPResolver(timeout time.Duration) *HTTPResolver {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &HTTPResolver{Client: &http.Client{Timeout: timeout}}
}

func (r *HTTPResolver) Resolve(ctx context.Context, _ string, uri string) (*ports.Source, error) {
	if !isRemote(uri) {
		return nil, notFound(uri, nil)
	}
	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid reference %s: %w", uri, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, notFound(uri, fmt.Errorf("status %d", resp.StatusCode))
	}

	var body io.Reader = resp.Body
	if r.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, r.MaxBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", uri, err)
	}
	return &ports.Source{Location: uri, Content: data}, nil
}

// Chain tries each resolver in order. The first one that does not report
// domain.ErrSchemaNotFound wins.
type Chain []ports.Resolver

func (c Chain) Resolve(ctx context.Context, base, uri string) (*ports.Source, error) {
	for _, r := range c {
		src, err := r.Resolve(ctx, base, uri)
		if err == nil {
			return src, nil
		}
		if !errors.Is(err, domain.ErrSchemaNotFound) {
			return nil, err
		}
	}
	return nil, notFound(uri, nil)
}

// DefaultChain resolves from disk, then under roots. Remote references are
// only fetched when fetchRemote is set.
func DefaultChain(fetchRemote bool, roots ...string) Chain {
	c := Chain{FileResolver{}}
	if len(roots) > 0 {
		c = append(c, DirResolver{Roots: roots})
	}
	if fetchRemote {
		c = append(c, NewHTTPResolver(DefaultHTTPTimeout))
	}
	return c
}
