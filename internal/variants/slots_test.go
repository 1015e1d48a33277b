package variants

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/weft/pkg/types"
)

func TestSlotStore_MissingSlot(t *testing.T) {
	s := NewMemorySlotStore()

	_, err := s.GetSlotContent(context.Background(), "acme", "hero", types.SlotA)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSlotStore_RoundTrip(t *testing.T) {
	s := NewMemorySlotStore()
	content := map[string]interface{}{"headline": "Try Weft"}

	require.NoError(t, s.SetSlotContent(context.Background(), "acme", "hero", types.SlotA, content))

	got, err := s.GetSlotContent(context.Background(), "acme", "hero", types.SlotA)
	require.NoError(t, err)
	assert.Equal(t, "Try Weft", got["headline"])

	// Returned maps are copies; mutating one must not affect the store.
	got["headline"] = "mutated"
	again, err := s.GetSlotContent(context.Background(), "acme", "hero", types.SlotA)
	require.NoError(t, err)
	assert.Equal(t, "Try Weft", again["headline"])
}

func TestSlotStore_SlotsAreIndependent(t *testing.T) {
	s := NewMemorySlotStore()

	require.NoError(t, s.SetSlotContent(context.Background(), "acme", "hero", types.SlotA,
		map[string]interface{}{"headline": "A copy"}))
	require.NoError(t, s.SetSlotContent(context.Background(), "acme", "hero", types.SlotB,
		map[string]interface{}{"headline": "B copy"}))
	require.NoError(t, s.SetSlotContent(context.Background(), "other", "hero", types.SlotA,
		map[string]interface{}{"headline": "Other tenant"}))

	a, err := s.GetSlotContent(context.Background(), "acme", "hero", types.SlotA)
	require.NoError(t, err)
	assert.Equal(t, "A copy", a["headline"])

	b, err := s.GetSlotContent(context.Background(), "acme", "hero", types.SlotB)
	require.NoError(t, err)
	assert.Equal(t, "B copy", b["headline"])
}
