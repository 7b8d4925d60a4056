package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/csdlc/pkg/domain"
)

func TestResolver(t *testing.T) {
	r := NewResolver(map[string]string{
		"root.xml":        "<root/>",
		"shared/base.xml": "<base/>",
	})
	ctx := context.Background()

	t.Run("Relative to referencing document", func(t *testing.T) {
		src, err := r.Resolve(ctx, "shared/other.xml", "base.xml")
		require.NoError(t, err)
		assert.Equal(t, "shared/base.xml", src.Location)
		assert.Equal(t, "<base/>", string(src.Content))
	})

	t.Run("Without base", func(t *testing.T) {
		src, err := r.Resolve(ctx, "", "./root.xml")
		require.NoError(t, err)
		assert.Equal(t, "root.xml", src.Location)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := r.Resolve(ctx, "root.xml", "nope.xml")
		assert.ErrorIs(t, err, domain.ErrSchemaNotFound)
	})

	assert.Equal(t, []string{"root.xml", "shared/base.xml"}, r.Documents())
}
