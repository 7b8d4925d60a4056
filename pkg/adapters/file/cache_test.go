package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/csdlc/pkg/adapters/file"
	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/ports"
)

func TestFileCache_Contract(t *testing.T) {
	ports.RunResultCacheContract(t, file.New(t.TempDir()))
}

func TestFileCache_TTL(t *testing.T) {
	dir := t.TempDir()
	cache := file.New(dir, file.WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "fresh", []byte("a")))
	require.NoError(t, cache.Set(ctx, "stale", []byte("b")))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "stale.json"), old, old))

	keys, err := cache.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, keys)

	_, err = cache.Get(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	assert.NoFileExists(t, filepath.Join(dir, "stale.json"))
}

func TestFileCache_Keys(t *testing.T) {
	cache := file.New(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", ".."} {
		assert.Error(t, cache.Set(ctx, key, []byte("x")), key)
	}

	keys, err := file.New(filepath.Join(t.TempDir(), "absent")).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
