// Package variants provides the variant catalog: read-mostly reference
// data per component, with out-of-band content updates from the
// regeneration worker.
package variants

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jordanhubbard/weft/pkg/types"
)

// ErrNotFound is returned when a variant does not exist in the catalog.
var ErrNotFound = fmt.Errorf("variant not found")

// Catalog exposes the variant data the selector and regeneration worker
// need.
type Catalog interface {
	// GetVariants lists candidate variants for a component. An empty
	// result is not an error.
	GetVariants(ctx context.Context, componentID string) ([]*types.Variant, error)

	// UpdateContent replaces a variant's content, bumping CreatedAt.
	UpdateContent(ctx context.Context, variantID string, content map[string]interface{}) error
}

// MemoryCatalog is the in-memory Catalog used for tests and the CLI demo.
type MemoryCatalog struct {
	mu       sync.RWMutex
	variants map[string][]*types.Variant // componentID -> variants
	byID     map[string]*types.Variant
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		variants: make(map[string][]*types.Variant),
		byID:     make(map[string]*types.Variant),
	}
}

// Add registers a variant under its component.
func (c *MemoryCatalog) Add(v *types.Variant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variants[v.ComponentID] = append(c.variants[v.ComponentID], v)
	c.byID[v.VariantID] = v
}

// GetVariants returns copies of the component's variants so callers cannot
// mutate catalog state.
func (c *MemoryCatalog) GetVariants(_ context.Context, componentID string) ([]*types.Variant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stored := c.variants[componentID]
	out := make([]*types.Variant, 0, len(stored))
	for _, v := range stored {
		cp := *v
		cp.Content = copyMap(v.Content)
		cp.PerformanceMetrics = copyFloatMap(v.PerformanceMetrics)
		out = append(out, &cp)
	}
	return out, nil
}

// UpdateContent swaps a variant's content in place.
func (c *MemoryCatalog) UpdateContent(_ context.Context, variantID string, content map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.byID[variantID]
	if !ok {
		return fmt.Errorf("update %s: %w", variantID, ErrNotFound)
	}
	v.Content = copyMap(content)
	v.CreatedAt = time.Now().UTC()
	return nil
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
