package loader_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/loader"
	"github.com/aretw0/csdlc/pkg/ports"
)

func TestFileResolver(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.xml"), []byte("<b/>"), 0o644))
	ctx := context.Background()

	src, err := loader.FileResolver{}.Resolve(ctx, filepath.Join(dir, "a.xml"), "sub/b.xml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sub", "b.xml"), src.Location)
	assert.Equal(t, "<b/>", string(src.Content))

	_, err = loader.FileResolver{}.Resolve(ctx, filepath.Join(dir, "a.xml"), "missing.xml")
	assert.ErrorIs(t, err, domain.ErrSchemaNotFound)

	_, err = loader.FileResolver{}.Resolve(ctx, "", "https://example.com/x.xml")
	assert.ErrorIs(t, err, domain.ErrSchemaNotFound)
}

func TestDirResolver(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(second, "shared.xml"), []byte("<s/>"), 0o644))

	r := loader.DirResolver{Roots: []string{first, second}}
	src, err := r.Resolve(context.Background(), "elsewhere/a.xml", "shared.xml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(second, "shared.xml"), src.Location)

	_, err = r.Resolve(context.Background(), "", "none.xml")
	assert.ErrorIs(t, err, domain.ErrSchemaNotFound)
}

func TestHTTPResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/vocab.xml" {
			_, _ = w.Write([]byte("<vocab/>"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	r := loader.NewHTTPResolver(0)
	r.Client = srv.Client()
	ctx := context.Background()

	src, err := r.Resolve(ctx, "", srv.URL+"/vocab.xml")
	require.NoError(t, err)
	assert.Equal(t, "<vocab/>", string(src.Content))

	_, err = r.Resolve(ctx, "", srv.URL+"/missing.xml")
	assert.ErrorIs(t, err, domain.ErrSchemaNotFound)

	_, err = r.Resolve(ctx, "", "local.xml")
	assert.ErrorIs(t, err, domain.ErrSchemaNotFound)
}

type failingResolver struct{ err error }

func (f failingResolver) Resolve(context.Context, string, string) (*ports.Source, error) {
	return nil, f.err
}

func TestChain(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.xml"), []byte("<x/>"), 0o644))
	ctx := context.Background()

	t.Run("Falls through not found", func(t *testing.T) {
		c := loader.Chain{failingResolver{domain.ErrSchemaNotFound}, loader.DirResolver{Roots: []string{dir}}}
		src, err := c.Resolve(ctx, "", "x.xml")
		require.NoError(t, err)
		assert.Equal(t, "<x/>", string(src.Content))
	})

	t.Run("Stops on other errors", func(t *testing.T) {
		boom := errors.New("boom")
		c := loader.Chain{failingResolver{boom}, loader.DirResolver{Roots: []string{dir}}}
		_, err := c.Resolve(ctx, "", "x.xml")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Nothing matches", func(t *testing.T) {
		_, err := loader.DefaultChain(false, dir).Resolve(ctx, "", "nope.xml")
		assert.ErrorIs(t, err, domain.ErrSchemaNotFound)
	})
}
