package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/csdlc/pkg/domain"
)

// RunResultCacheContract runs a suite of tests to verify that a ResultCache
// implementation adheres to the defined interface contract.
func RunResultCacheContract(t *testing.T, cache ResultCache) {
	ctx := context.Background()
	key := "contract-" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		value := []byte(`{"compliant":true}`)
		require.NoError(t, cache.Set(ctx, key, value))

		got, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, got)

		// Mutating the caller's slice must not leak into the cache.
		value[2] = 'X'
		got, err = cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `{"compliant":true}`, string(got))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, []byte("v2")))
		got, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "v2", string(got))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := cache.Get(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Delete(ctx, key))
		_, err := cache.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrCacheMiss)

		assert.NoError(t, cache.Delete(ctx, key), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		k1, k2 := key+"-1", key+"-2"
		require.NoError(t, cache.Set(ctx, k1, []byte("a")))
		require.NoError(t, cache.Set(ctx, k2, []byte("b")))
		defer func() {
			_ = cache.Delete(ctx, k1)
			_ = cache.Delete(ctx, k2)
		}()

		keys, err := cache.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})
}
