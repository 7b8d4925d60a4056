package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/ports"
)

func TestMemoryCache_Contract(t *testing.T) {
	ports.RunResultCacheContract(t, NewCache())
}

func TestMemoryCache_TTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(WithTTL(time.Minute))
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	keys, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
