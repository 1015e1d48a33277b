package variants

import (
	"context"
	"fmt"
	"sync"

	"github.com/jordanhubbard/weft/pkg/types"
)

// SlotStore holds the A/B content pair the interaction scorer compares.
// This is deliberately separate from the identity-targeted Catalog: the
// bandit decides which variant an identity sees, the scorer decides
// whether slot content should evolve.
type SlotStore interface {
	// GetSlotContent returns the content currently in a slot. Missing
	// slots return ErrNotFound.
	GetSlotContent(ctx context.Context, tenant, componentID string, slot types.VariantSlot) (map[string]interface{}, error)

	// SetSlotContent replaces a slot's content.
	SetSlotContent(ctx context.Context, tenant, componentID string, slot types.VariantSlot, content map[string]interface{}) error
}

// MemorySlotStore is the in-memory SlotStore.
type MemorySlotStore struct {
	mu    sync.RWMutex
	slots map[string]map[string]interface{}
}

// NewMemorySlotStore creates an empty slot store.
func NewMemorySlotStore() *MemorySlotStore {
	return &MemorySlotStore{slots: make(map[string]map[string]interface{})}
}

func slotKey(tenant, componentID string, slot types.VariantSlot) string {
	return fmt.Sprintf("%s|%s|%s", tenant, componentID, slot)
}

func (s *MemorySlotStore) GetSlotContent(_ context.Context, tenant, componentID string, slot types.VariantSlot) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.slots[slotKey(tenant, componentID, slot)]
	if !ok {
		return nil, fmt.Errorf("slot %s/%s/%s: %w", tenant, componentID, slot, ErrNotFound)
	}
	return copyMap(content), nil
}

func (s *MemorySlotStore) SetSlotContent(_ context.Context, tenant, componentID string, slot types.VariantSlot, content map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slotKey(tenant, componentID, slot)] = copyMap(content)
	return nil
}
