package variants

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/weft/pkg/types"
)

func TestMemoryCatalog_GetVariants(t *testing.T) {
	c := NewDemoCatalog()

	vs, err := c.GetVariants(context.Background(), "hero")
	require.NoError(t, err)
	assert.Len(t, vs, 5)

	vs, err = c.GetVariants(context.Background(), "sidebar")
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestMemoryCatalog_GetVariantsReturnsCopies(t *testing.T) {
	c := NewDemoCatalog()

	first, err := c.GetVariants(context.Background(), "hero")
	require.NoError(t, err)
	first[0].Content["headline"] = "tampered"
	first[0].PerformanceMetrics["conversion_rate"] = 0.99

	second, err := c.GetVariants(context.Background(), "hero")
	require.NoError(t, err)
	assert.NotEqual(t, "tampered", second[0].Content["headline"])
	assert.NotEqual(t, 0.99, second[0].PerformanceMetrics["conversion_rate"])
}

func TestMemoryCatalog_UpdateContent(t *testing.T) {
	c := NewDemoCatalog()

	content := map[string]interface{}{"headline": "Fresh Copy", "cta_text": "Go"}
	err := c.UpdateContent(context.Background(), "hero_exploratory_v1", content)
	require.NoError(t, err)

	vs, err := c.GetVariants(context.Background(), "hero")
	require.NoError(t, err)
	var updated *types.Variant
	for _, v := range vs {
		if v.VariantID == "hero_exploratory_v1" {
			updated = v
		}
	}
	require.NotNil(t, updated)
	assert.Equal(t, "Fresh Copy", updated.Content["headline"])
	assert.False(t, updated.CreatedAt.IsZero())
}

func TestMemoryCatalog_UpdateUnknownVariant(t *testing.T) {
	c := NewMemoryCatalog()

	err := c.UpdateContent(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
